package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
)

// Header shows the profile, the signed-in user and feed health.
type Header struct {
	*tview.TextView
	theme *Theme
}

// NewHeader creates a new header panel.
func NewHeader(theme *Theme) *Header {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &Header{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders st; nil means the daemon has not answered yet.
func (h *Header) Update(st *rpc.StatusResponse) {
	h.Clear()
	if st == nil {
		_, _ = fmt.Fprint(h, "connecting to dpd...")
		return
	}

	label := Tag(h.theme.FgColor)
	value := Tag(h.theme.CounterColor)
	feed := Tag(h.theme.FeedDownColor)
	if st.FeedState == "CONNECTED" {
		feed = Tag(h.theme.FeedUpColor)
	}
	user := st.UserName
	if user == "" {
		user = fmt.Sprintf("#%d", st.UserID)
	}

	_, _ = fmt.Fprintf(h,
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Feed:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Unread:[-:-:-]  [%s]%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		label, value, tview.Escape(st.Profile),
		label, value, tview.Escape(user),
		label, feed, st.FeedState,
		label, value, st.TotalUnread,
		label, value, formatDuration(time.Duration(st.UptimeMs)*time.Millisecond),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
