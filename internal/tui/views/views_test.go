package views

import (
	"strings"
	"testing"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "site visit", "site visit"},
		{"skin tone", "\U0001F44D\U0001F3FB", "\U0001F44D"},
		{"zwj family", "\U0001F468\u200d\U0001F469", "\U0001F468\U0001F469"},
		{"variation selector", "\u2764\ufe0f", "\u2764"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderBodyHighlightsMentions(t *testing.T) {
	theme := ui.DefaultTheme()
	members := []chat.Member{{UserID: 1, Name: "Sara Khan"}, {UserID: 2, Name: "Omar"}}

	got := renderBody("@Sara Khan please check [draft] with @Omar", members, 2, theme)
	tag := ui.Tag(theme.MentionColor)

	if !strings.Contains(got, "["+tag+"::]@Sara Khan[-:-:-]") {
		t.Errorf("mention of other member not colored: %q", got)
	}
	if !strings.Contains(got, "["+tag+"::b]@Omar[-:-:-]") {
		t.Errorf("mention of self not bold: %q", got)
	}
	if !strings.Contains(got, "[draft[]") {
		t.Errorf("literal brackets not escaped: %q", got)
	}
}

func TestAuthorName(t *testing.T) {
	members := []chat.Member{{UserID: 4, Name: "Lina"}}
	if got := authorName(4, 7, members); got != "Lina" {
		t.Errorf("authorName(member) = %q", got)
	}
	if got := authorName(7, 7, members); got != "You" {
		t.Errorf("authorName(self) = %q", got)
	}
	if got := authorName(9, 7, members); got != "user 9" {
		t.Errorf("authorName(unknown) = %q", got)
	}
}

func TestProjectListFilterAndIndex(t *testing.T) {
	pl := NewProjectList(ui.DefaultTheme())
	pl.Update([]chat.Summary{
		{ProjectID: 10, Title: "Villa Renovation", ReferenceNumber: "DP-001"},
		{ProjectID: 11, Title: "Office Fit-out", ReferenceNumber: "DP-002", UnreadCount: 3},
		{ProjectID: 12, Title: "Warehouse", LastMessage: &chat.Preview{Body: "villa drawings attached"}},
	}, 3)

	if got := pl.ProjectByIndex(2); got != 11 {
		t.Errorf("ProjectByIndex(2) = %d, want 11", got)
	}

	pl.SetFilter("VILLA")
	if got := pl.ProjectByIndex(1); got != 10 {
		t.Errorf("filtered ProjectByIndex(1) = %d, want 10", got)
	}
	if got := pl.ProjectByIndex(2); got != 12 {
		t.Errorf("filter should match previews: ProjectByIndex(2) = %d, want 12", got)
	}
	if got := pl.ProjectByIndex(3); got != 0 {
		t.Errorf("ProjectByIndex past end = %d, want 0", got)
	}

	pl.SetFilter("dp-002")
	if got := pl.ProjectByIndex(1); got != 11 {
		t.Errorf("filter by reference = %d, want 11", got)
	}

	pl.ClearFilter()
	pl.Select(12)
	if got := pl.SelectedProject(); got != 12 {
		t.Errorf("SelectedProject() = %d, want 12", got)
	}
	if !pl.AtBottom() {
		t.Error("AtBottom() = false on last row")
	}
}

func TestThreadViewRendersOldestFirst(t *testing.T) {
	tv := NewThreadView(ui.DefaultTheme(), 7)
	now := time.Now()
	tv.Update(rpc.Thread{
		ProjectID: 1,
		Items: []chat.Message{
			{ID: 0, ClientToken: "t", AuthorUserID: 7, Body: "third", AddedAt: now},
			{ID: 2, AuthorUserID: 4, Body: "second", AddedAt: now},
			{ID: 1, AuthorUserID: 4, Body: "first", AddedAt: now, Removed: true},
		},
		Members: []chat.Member{{UserID: 4, Name: "Lina"}},
		Total:   3,
		Phase:   "EXHAUSTED",
	}, []rpc.PendingSend{{ClientTempID: "abc", ProjectID: 1, Kind: "message", Body: "oops", State: "FAILED"}}, false)

	text := tv.Messages().GetText(true)
	if strings.Contains(text, "first") {
		t.Error("removed message rendered")
	}
	second, third := strings.Index(text, "second"), strings.Index(text, "third")
	if second < 0 || third < 0 || second > third {
		t.Errorf("want second before third, got:\n%s", text)
	}
	if !strings.Contains(text, "sending...") {
		t.Error("provisional message not marked")
	}
	if !strings.Contains(text, ":retry abc") {
		t.Error("failed send has no retry hint")
	}
	if !strings.Contains(text, "Beginning of conversation") {
		t.Error("exhausted thread has no start marker")
	}
}
