package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

// StatusBar displays persistent profile and feed status.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
	feed    string
	unread  int
	pending int
	failed  int
	busy    string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetFeed updates the live feed state.
func (sb *StatusBar) SetFeed(state string) {
	sb.feed = state
	sb.render()
}

// SetCounts updates the unread and pending counters.
func (sb *StatusBar) SetCounts(unread, pending, failed int) {
	sb.unread, sb.pending, sb.failed = unread, pending, failed
	sb.render()
}

// SetBusy shows what is in flight; empty hides it.
func (sb *StatusBar) SetBusy(what string) {
	sb.busy = what
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	feedColor := ui.Tag(sb.theme.FeedDownColor)
	if sb.feed == "CONNECTED" {
		feedColor = ui.Tag(sb.theme.FeedUpColor)
	}
	feed := sb.feed
	if feed == "" {
		feed = "?"
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | live [%s]%s[-]", tview.Escape(sb.profile), feedColor, feed)
	if sb.unread > 0 {
		line += fmt.Sprintf(" | [%s]%d unread[-]", ui.Tag(sb.theme.UnreadColor), sb.unread)
	}
	if sb.pending > 0 {
		line += fmt.Sprintf(" | %d pending", sb.pending)
	}
	if sb.failed > 0 {
		line += fmt.Sprintf(" | [%s]%d failed[-]", ui.Tag(sb.theme.FailedColor), sb.failed)
	}
	if sb.busy != "" {
		line += " | " + tview.Escape(sb.busy) + "..."
	}
	line += " | " + time.Now().Format("15:04")

	_, _ = fmt.Fprint(sb, line)
}
