package views

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

// ProjectList is the sidebar: one row per project conversation, newest
// activity first as the daemon orders them.
type ProjectList struct {
	*tview.Table
	theme    *ui.Theme
	projects []chat.Summary
	visible  []chat.Summary
	filter   string
	unread   int
}

// NewProjectList creates a new project list table.
func NewProjectList(theme *ui.Theme) *ProjectList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	pl := &ProjectList{
		Table: table,
		theme: theme,
	}
	pl.render()
	return pl
}

// Update replaces the rows, keeping the cursor on the same project.
func (pl *ProjectList) Update(projects []chat.Summary, totalUnread int) {
	selected := pl.SelectedProject()
	pl.projects, pl.unread = projects, totalUnread
	pl.render()
	pl.Select(selected)
}

// SetFilter sets the active filter text and re-renders.
func (pl *ProjectList) SetFilter(filter string) {
	pl.filter = filter
	pl.render()
}

// ClearFilter clears the active filter.
func (pl *ProjectList) ClearFilter() {
	pl.SetFilter("")
}

// Filter returns the active filter.
func (pl *ProjectList) Filter() string { return pl.filter }

func (pl *ProjectList) render() {
	pl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" PROJECT", 1},
		{" REF", 0},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(pl.theme.TableHeaderFg).
			SetBackgroundColor(pl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		pl.SetCell(0, col, cell)
	}

	pl.visible = pl.visible[:0]
	for _, p := range pl.projects {
		if pl.filter != "" && !pl.matches(p) {
			continue
		}
		pl.visible = append(pl.visible, p)
	}

	for i, p := range pl.visible {
		row := i + 1
		fg := pl.theme.FgColor
		var attr tcell.AttrMask
		unread := ""
		if p.UnreadCount > 0 {
			fg = pl.theme.UnreadColor
			attr = tcell.AttrBold
			unread = strconv.Itoa(p.UnreadCount)
		}
		preview, at := "", ""
		if p.LastMessage != nil {
			preview = p.LastMessage.Body
			if preview == "" && p.LastMessage.MediaCount > 0 {
				preview = fmt.Sprintf("[%d attachment(s)]", p.LastMessage.MediaCount)
			}
			at = formatTimestamp(p.LastMessage.AddedAt)
		}

		pl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(p.Title))).SetExpansion(1).SetTextColor(fg).SetAttributes(attr))
		pl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(p.ReferenceNumber)).SetTextColor(pl.theme.FgColor))
		pl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetExpansion(2).SetMaxWidth(60).SetTextColor(pl.theme.FgColor))
		pl.SetCell(row, 3, tview.NewTableCell(at).SetTextColor(pl.theme.FgColor).SetAlign(tview.AlignRight))
		pl.SetCell(row, 4, tview.NewTableCell(unread).SetTextColor(pl.theme.UnreadColor).SetAlign(tview.AlignRight))
	}

	title := fmt.Sprintf(" Projects (%d) ", len(pl.projects))
	if pl.filter != "" {
		title = fmt.Sprintf(" Projects (%d/%d) filter: %s ", len(pl.visible), len(pl.projects), tview.Escape(pl.filter))
	}
	if pl.unread > 0 {
		title += fmt.Sprintf("[%s]%d unread[-] ", ui.Tag(pl.theme.UnreadColor), pl.unread)
	}
	pl.SetTitle(title)
}

func (pl *ProjectList) matches(p chat.Summary) bool {
	if containsFold(p.Title, pl.filter) || containsFold(p.ReferenceNumber, pl.filter) {
		return true
	}
	return p.LastMessage != nil && containsFold(p.LastMessage.Body, pl.filter)
}

// SelectedProject returns the id under the cursor, or zero.
func (pl *ProjectList) SelectedProject() int64 {
	row, _ := pl.GetSelection()
	return pl.ProjectByIndex(row)
}

// ProjectByIndex returns the id of the Nth visible project (1-based).
func (pl *ProjectList) ProjectByIndex(n int) int64 {
	if n < 1 || n > len(pl.visible) {
		return 0
	}
	return pl.visible[n-1].ProjectID
}

// Select moves the cursor to projectID if it is visible.
func (pl *ProjectList) Select(projectID int64) {
	for i, p := range pl.visible {
		if p.ProjectID == projectID {
			pl.Table.Select(i+1, 0)
			return
		}
	}
}

// Project returns the summary of projectID.
func (pl *ProjectList) Project(projectID int64) (chat.Summary, bool) {
	for _, p := range pl.projects {
		if p.ProjectID == projectID {
			return p, true
		}
	}
	return chat.Summary{}, false
}

// AtBottom reports whether the cursor is on the last row.
func (pl *ProjectList) AtBottom() bool {
	row, _ := pl.GetSelection()
	return len(pl.visible) > 0 && row == len(pl.visible)
}
