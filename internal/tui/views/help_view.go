package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global Keys", [][2]string{
		{":", "Command mode"},
		{"/", "Filter projects"},
		{"?", "Help"},
		{"Esc", "Cancel / Go back"},
		{"q", "Quit"},
	}},
	{"Projects", [][2]string{
		{"Enter", "Open conversation"},
		{"1-9", "Open Nth project"},
		{"m", "Load more projects"},
		{"0", "Clear filter"},
	}},
	{"Conversation", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"PgUp", "Load older messages"},
		{"r", "Reload newest messages"},
		{"d", "Project details"},
	}},
	{"Commands", [][2]string{
		{":open <id>", "Open a project by id"},
		{":upload <file>...", "Attach files to the open conversation"},
		{":delete <message-id>", "Delete a message"},
		{":retry <id>", "Retry a failed send"},
		{":discard <id>", "Drop a failed send"},
		{":reload", "Reload the open conversation"},
		{":more", "Load more projects"},
		{":help / :h", "Show this help"},
		{":quit / :q", "Quit application"},
	}},
}

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)
	var b strings.Builder
	for _, sec := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", sec.title)
		for _, r := range sec.rows {
			fmt.Fprintf(&b, "  [%s]%-22s[-:-:-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
