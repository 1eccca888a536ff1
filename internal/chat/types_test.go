package chat

import (
	"strings"
	"testing"
	"time"
)

func TestMessageKey(t *testing.T) {
	confirmed := Message{ID: 501, ClientToken: "abc"}
	if got := confirmed.Key(); got != "id:501" {
		t.Errorf("Key() = %q, want id:501", got)
	}
	provisional := Message{ClientToken: "abc"}
	if got := provisional.Key(); got != "tmp:abc" {
		t.Errorf("Key() = %q, want tmp:abc", got)
	}
	if !provisional.Provisional() || confirmed.Provisional() {
		t.Error("Provisional() mismatch")
	}
	if KeyForID(501) != confirmed.Key() {
		t.Error("KeyForID disagrees with Key")
	}
}

func TestCategoryForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want MediaCategory
	}{
		{"image/png", MediaImage},
		{"video/mp4", MediaVideo},
		{"audio/mpeg", MediaAudio},
		{"application/pdf", MediaDocument},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", MediaDocument},
		{"text/plain; charset=utf-8", MediaDocument},
		{"application/zip", MediaOther},
		{"", MediaOther},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := CategoryForMIME(tt.mime); got != tt.want {
				t.Errorf("CategoryForMIME(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestPreviewOfTruncates(t *testing.T) {
	m := &Message{Body: strings.Repeat("é", 150), AddedAt: time.Unix(10, 0), Media: []MediaRef{{ID: 1}, {ID: 2}}}
	p := PreviewOf(m)
	if n := len([]rune(p.Body)); n != 100 {
		t.Errorf("preview runes = %d, want 100", n)
	}
	if p.MediaCount != 2 {
		t.Errorf("MediaCount = %d, want 2", p.MediaCount)
	}
	if !p.AddedAt.Equal(m.AddedAt) {
		t.Errorf("AddedAt = %v, want %v", p.AddedAt, m.AddedAt)
	}
}
