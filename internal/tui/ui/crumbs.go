package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// maxCrumb bounds one trail entry; project titles in the portal run long.
const maxCrumb = 32

// Crumbs is a breadcrumb bar: profile, projects, then the open project.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail; the last entry is highlighted and every entry is
// clipped to maxCrumb runes.
func (c *Crumbs) Update(trail ...string) {
	c.Clear()
	parts := make([]string, 0, len(trail))
	for i, name := range trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(trail)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Tag(fg), Tag(bg), attr, tview.Escape(clip(name, maxCrumb))))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " > "))
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
