package permission

import (
	"errors"
	"testing"
)

func TestGate(t *testing.T) {
	g := New(
		map[string]bool{AddConversation: true, DeleteConversation: true},
		map[string]bool{DeleteConversation: false, UploadAttachment: true},
	)

	tests := []struct {
		name string
		want bool
	}{
		{AddConversation, true},
		{DeleteConversation, false},
		{UploadAttachment, true},
		{"project:update", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Allow(tt.name); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.name, got, tt.want)
			}
			err := g.Check(tt.name)
			if tt.want && err != nil {
				t.Errorf("Check(%q) = %v", tt.name, err)
			}
			if !tt.want && !errors.Is(err, ErrDenied) {
				t.Errorf("Check(%q) = %v, want ErrDenied", tt.name, err)
			}
		})
	}
}

func TestNilGateDenies(t *testing.T) {
	var g *Gate
	if g.Allow(AddConversation) {
		t.Error("nil gate allowed")
	}
	if !errors.Is(g.Check(AddConversation), ErrDenied) {
		t.Error("nil gate Check did not deny")
	}
}

func TestReplace(t *testing.T) {
	g := New(nil, nil)
	g.Replace(map[string]bool{AddConversation: true})
	if !g.Allow(AddConversation) {
		t.Error("replaced permission not granted")
	}
	snap := g.Snapshot()
	snap[DeleteConversation] = true
	if g.Allow(DeleteConversation) {
		t.Error("snapshot mutation leaked into gate")
	}
}
