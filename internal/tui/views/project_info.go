package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

// ProjectInfo displays details about a project conversation.
type ProjectInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewProjectInfo creates a new project info view.
func NewProjectInfo(theme *ui.Theme) *ProjectInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Project Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ProjectInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the summary and the thread's member list.
func (pi *ProjectInfo) Update(p chat.Summary, members []chat.Member, total int) {
	pi.Clear()

	fg := ui.Tag(pi.theme.FgColor)
	ct := ui.Tag(pi.theme.CounterColor)

	lastActive := "-"
	if p.LastMessage != nil {
		lastActive = formatTimestamp(p.LastMessage.AddedAt)
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	memberList := "-"
	if len(names) > 0 {
		memberList = strings.Join(names, ", ")
	}

	_, _ = fmt.Fprintf(pi,
		"\n [%s::b]Title:[-:-:-]       [%s]%s[-]\n"+
			" [%s::b]Reference:[-:-:-]   [%s]%s[-]\n"+
			" [%s::b]Project ID:[-:-:-]  [%s]%d[-]\n"+
			" [%s::b]Messages:[-:-:-]    [%s]%d[-]\n"+
			" [%s::b]Unread:[-:-:-]      [%s]%d[-]\n"+
			" [%s::b]Last Active:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]Members:[-:-:-]     [%s]%s[-]",
		fg, ct, tview.Escape(p.Title),
		fg, ct, tview.Escape(p.ReferenceNumber),
		fg, ct, p.ProjectID,
		fg, ct, total,
		fg, ct, p.UnreadCount,
		fg, ct, lastActive,
		fg, ct, tview.Escape(memberList),
	)
	pi.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(p.Title)))
}
