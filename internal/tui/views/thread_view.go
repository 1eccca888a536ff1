package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
)

// ThreadView displays the open conversation above a composer.
type ThreadView struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	self     int64
	onSend   func(text string)
}

// NewThreadView creates a new thread view. self is the signed-in user id,
// used to label own messages and bold mentions of the user.
func NewThreadView(theme *ui.Theme, self int64) *ThreadView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus, Esc to leave) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	tv := &ThreadView{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		self:     self,
	}

	// The composer keeps its text until the daemon accepts the send; the
	// app clears it through SetDraft.
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && tv.onSend != nil {
			if text := strings.TrimSpace(composer.GetText()); text != "" {
				tv.onSend(text)
			}
		}
	})

	return tv
}

// SetSelf sets the signed-in user id once the daemon reports it.
func (tv *ThreadView) SetSelf(id int64) { tv.self = id }

// SetTitle shows the project name.
func (tv *ThreadView) SetTitle(name string) {
	tv.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(name)))
}

// SetOnSend sets the callback when Enter is pressed in the composer.
func (tv *ThreadView) SetOnSend(fn func(text string)) {
	tv.onSend = fn
}

// SetDraft replaces the composer text.
func (tv *ThreadView) SetDraft(text string) {
	tv.composer.SetText(text)
}

// Update redraws the thread. Items arrive newest first and are drawn oldest
// first. keepTop holds the viewport at the top after an older page landed;
// otherwise the view follows the newest message.
func (tv *ThreadView) Update(th rpc.Thread, pending []rpc.PendingSend, keepTop bool) {
	tv.messages.Clear()
	w := tv.messages
	dim := ui.Tag(tv.theme.PendingColor)

	switch {
	case th.ProjectID == 0:
		_, _ = fmt.Fprintf(w, "[%s]Pick a project to open its conversation.[-]\n", dim)
		return
	case th.Phase == "INITIAL_LOADING" && len(th.Items) == 0:
		_, _ = fmt.Fprintf(w, "[%s]Loading...[-]\n", dim)
		return
	case th.Phase == "BACKWARD_LOADING":
		_, _ = fmt.Fprintf(w, "[%s]Loading older messages...[-]\n\n", dim)
	case th.HasMore:
		_, _ = fmt.Fprintf(w, "[%s]%d of %d messages, PgUp for older[-]\n\n", dim, len(th.Items), th.Total)
	case len(th.Items) == 0:
		_, _ = fmt.Fprintf(w, "[%s]No messages yet. Say hello.[-]\n", dim)
	default:
		_, _ = fmt.Fprintf(w, "[%s]Beginning of conversation[-]\n\n", dim)
	}

	for i := len(th.Items) - 1; i >= 0; i-- {
		m := th.Items[i]
		if m.Removed {
			continue
		}
		nameColor := ui.Tag(tv.theme.TitleColor)
		if m.AuthorUserID == tv.self {
			nameColor = ui.Tag(tv.theme.SelfColor)
		}
		meta := formatTimestamp(m.AddedAt)
		if m.Provisional() {
			meta = "sending..."
		} else {
			meta += fmt.Sprintf(" #%d", m.ID)
		}
		_, _ = fmt.Fprintf(w, "[%s::b]%s[-:-:-] [%s]%s[-]\n",
			nameColor, tview.Escape(sanitizeForTerminal(authorName(m.AuthorUserID, tv.self, th.Members))),
			dim, meta)
		if m.Body != "" {
			_, _ = fmt.Fprintln(w, renderBody(m.Body, th.Members, tv.self, tv.theme))
		}
		for _, media := range m.Media {
			_, _ = fmt.Fprintf(w, "[%s]  %s %s[-]\n", dim, tview.Escape("["+string(media.Category)+"]"), tview.Escape(media.Path))
		}
		_, _ = fmt.Fprintln(w)
	}

	failed := ui.Tag(tv.theme.FailedColor)
	for _, p := range pending {
		if p.ProjectID != th.ProjectID || p.State != "FAILED" {
			continue
		}
		what := p.Body
		if p.Kind != "message" {
			what = fmt.Sprintf("%d file(s)", len(p.Files))
		}
		_, _ = fmt.Fprintf(w, "[%s]not sent: %s (%s)[-]\n[%s]  :retry %s  or  :discard %s[-]\n\n",
			failed, tview.Escape(what), tview.Escape(p.Error), dim, p.ClientTempID, p.ClientTempID)
	}

	if keepTop {
		tv.messages.ScrollToBeginning()
	} else {
		tv.messages.ScrollToEnd()
	}
}

// AtTop reports whether the viewport shows the first line.
func (tv *ThreadView) AtTop() bool {
	row, _ := tv.messages.GetScrollOffset()
	return row == 0
}

// Messages returns the messages text view (for focus management).
func (tv *ThreadView) Messages() *tview.TextView {
	return tv.messages
}

// Composer returns the composer input field (for focus management).
func (tv *ThreadView) Composer() *tview.InputField {
	return tv.composer
}
