package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/mention"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

// sanitizeForTerminal drops codepoints tcell renders badly: skin tone
// modifiers, zero width joiners and variation selectors. A thumbs-up with a
// skin tone becomes a plain two-cell thumbs-up.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F3FB && r <= 0x1F3FF,
			r == 0x200D,
			r >= 0xFE00 && r <= 0xFE0F,
			r >= 0xE0100 && r <= 0xE01EF:
			return -1
		}
		return r
	}, s)
}

// renderBody escapes body for tview and colors @mentions of members.
// Mentions of self are bold.
func renderBody(body string, members []chat.Member, self int64, theme *ui.Theme) string {
	var b strings.Builder
	for _, seg := range mention.Tokenize(sanitizeForTerminal(body), members) {
		text := tview.Escape(seg.Text)
		if !seg.IsMention() {
			b.WriteString(text)
			continue
		}
		attr := ""
		if seg.Mention.UserID == self {
			attr = "b"
		}
		fmt.Fprintf(&b, "[%s::%s]%s[-:-:-]", ui.Tag(theme.MentionColor), attr, text)
	}
	return b.String()
}

// authorName resolves a user id against the thread's members.
func authorName(id, self int64, members []chat.Member) string {
	if id == self && self != 0 {
		return "You"
	}
	for _, m := range members {
		if m.UserID == id && m.Name != "" {
			return m.Name
		}
	}
	return fmt.Sprintf("user %d", id)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
