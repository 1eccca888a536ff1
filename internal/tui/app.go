// Package tui is the terminal console: a project sidebar, the open
// conversation and a composer, all backed by the daemon over gRPC.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/client"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/keys"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/model"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/ui"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/views"
	"google.golang.org/grpc/status"
)

const (
	pageProjects = "projects"
	pageThread   = "thread"
	pageInfo     = "info"
	pageHelp     = "help"

	headerHeight = 5
	promptHeight = 3

	rpcTimeout     = 30 * time.Second
	watchRetry     = 2 * time.Second
	statusInterval = 15 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *tview.Pages
	vm       *model.ViewModel
	client   *client.Client
	profile  string
	registry *keys.Registry

	header    *ui.Header
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	prompt    *ui.Prompt
	flash     *ui.FlashBar
	statusBar *views.StatusBar
	projects  *views.ProjectList
	thread    *views.ThreadView
	info      *views.ProjectInfo
	help      *views.HelpView

	clearFilter *keys.Action
	promptShown bool
	keepTop     atomic.Bool
	beep        atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, profile string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        model.NewViewModel(c),
		client:    c,
		profile:   profile,
		registry:  keys.NewRegistry(),
		header:    ui.NewHeader(theme),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flash:     ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(theme),
		projects:  views.NewProjectList(theme),
		thread:    views.NewThreadView(theme, 0),
		info:      views.NewProjectInfo(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profile)
	a.header.Update(nil)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("command", &keys.Action{
		Rune: ':', Key: tcell.KeyRune,
		Description: "::command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.showPage(pageHelp) },
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})

	a.registry.AddView(pageProjects, "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.clearFilter = &keys.Action{
		Rune: '0', Key: tcell.KeyRune,
		Description: "0:clear filter",
		Handler: func() {
			a.projects.ClearFilter()
			a.refreshChrome()
		},
	}
	a.registry.AddView(pageProjects, "clear", a.clearFilter)
	a.registry.AddView(pageProjects, "more", &keys.Action{
		Rune: 'm', Key: tcell.KeyRune,
		Description: "m:more", Visible: true,
		Handler: a.loadMoreProjects,
	})

	a.registry.AddView(pageThread, "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, "older", &keys.Action{
		Key:         tcell.KeyPgUp,
		Description: "PgUp:older", Visible: true,
		Handler: a.pageUp,
	})
	a.registry.AddView(pageThread, "reload", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:reload", Visible: true,
		Handler: func() {
			a.run("Reloading", func(ctx context.Context) error { return a.vm.Reload(ctx) }, a.renderThread)
		},
	})
	a.registry.AddView(pageThread, "details", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:details", Visible: true,
		Handler: a.showInfo,
	})
}

func (a *App) setupCallbacks() {
	a.projects.SetSelectedFunc(func(row, col int) {
		if id := a.projects.ProjectByIndex(row); id != 0 {
			a.openProject(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		a.run("Sending", func(ctx context.Context) error { return a.vm.Send(ctx, text) }, func() {
			a.thread.SetDraft("")
		})
	})

	a.prompt.SetOnChange(func(text string) {
		a.projects.SetFilter(text)
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.handleCommand(ParseCommand(text))
		}
		a.refreshChrome()
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.projects.ClearFilter()
		}
		a.hidePrompt()
		a.refreshChrome()
	})

	// A queued beep rings on the next draw, the only place the screen is
	// reachable.
	a.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		if a.beep.Swap(false) {
			_ = screen.Beep()
		}
		return false
	})
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageProjects, a.projects, true, true)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageInfo, a.info, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	top := tview.NewFlex().
		AddItem(a.header, 0, 1, false).
		AddItem(a.menu, 0, 1, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, headerHeight, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flash, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.refreshChrome()

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()
		focused := a.app.GetFocus()

		if focused == a.prompt || focused == a.prompt.InputField {
			return event
		}
		if focused == a.thread.Composer() {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			return event
		}

		if event.Key() == tcell.KeyEscape {
			switch page {
			case pageInfo:
				a.showPage(pageThread)
				return nil
			case pageHelp, pageThread:
				a.showPage(pageProjects)
				return nil
			}
		}

		if page == pageProjects {
			if event.Key() == tcell.KeyRune && event.Rune() >= '1' && event.Rune() <= '9' {
				if id := a.projects.ProjectByIndex(int(event.Rune() - '0')); id != 0 {
					a.openProject(id)
				}
				return nil
			}
			if event.Key() == tcell.KeyDown && a.projects.AtBottom() {
				a.loadMoreProjects()
			}
		}

		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

func (a *App) handleCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.showPage(pageHelp)
	case "open":
		id, err := cmd.ID()
		if err != nil {
			a.vm.Flash.Set(model.FlashWarn, err.Error())
			return
		}
		a.openProject(id)
	case "reload":
		a.run("Reloading", func(ctx context.Context) error { return a.vm.Reload(ctx) }, a.renderThread)
	case "more":
		a.loadMoreProjects()
	case "upload":
		paths := cmd.Fields()
		if len(paths) == 0 {
			a.vm.Flash.Set(model.FlashWarn, ":upload needs at least one file")
			return
		}
		var n int
		a.run("Uploading", func(ctx context.Context) error {
			var err error
			n, err = a.vm.Upload(ctx, paths)
			return err
		}, func() {
			a.vm.Flash.Set(model.FlashInfo, fmt.Sprintf("Uploaded %d file(s)", n))
		})
	case "delete":
		id, err := cmd.ID()
		if err != nil {
			a.vm.Flash.Set(model.FlashWarn, err.Error())
			return
		}
		a.run("Deleting", func(ctx context.Context) error { return a.vm.Delete(ctx, id) }, nil)
	case "retry", "discard":
		f := cmd.Fields()
		if len(f) != 1 {
			a.vm.Flash.Set(model.FlashWarn, fmt.Sprintf(":%s takes one pending id", cmd.Name))
			return
		}
		call := a.vm.Retry
		if cmd.Name == "discard" {
			call = a.vm.Discard
		}
		a.run("", func(ctx context.Context) error { return call(ctx, f[0]) }, nil)
	default:
		a.vm.Flash.Set(model.FlashWarn, "Unknown command: "+cmd.Name)
	}
}

func (a *App) openProject(id int64) {
	a.run("Opening", func(ctx context.Context) error { return a.vm.Open(ctx, id) }, func() {
		a.thread.SetTitle(a.vm.ProjectTitle(id))
		a.thread.SetDraft(a.vm.Draft())
		a.projects.Select(id)
		a.renderThread()
		a.showPage(pageThread)
	})
}

func (a *App) loadMoreProjects() {
	a.run("Loading projects", func(ctx context.Context) error { return a.vm.LoadMoreProjects(ctx) }, a.renderProjects)
}

// pageUp scrolls the thread one screen; at the top it asks for older
// messages instead.
func (a *App) pageUp() {
	if !a.thread.AtTop() {
		row, col := a.thread.Messages().GetScrollOffset()
		_, _, _, height := a.thread.Messages().GetInnerRect()
		a.thread.Messages().ScrollTo(max(row-height, 0), col)
		return
	}
	th := a.vm.Thread()
	if th.ProjectID == 0 || !th.HasMore {
		return
	}
	a.keepTop.Store(true)
	a.run("Loading older", func(ctx context.Context) error { return a.vm.LoadOlder(ctx) }, func() {
		a.renderThread()
		a.keepTop.Store(false)
	})
}

func (a *App) showInfo() {
	th := a.vm.Thread()
	if th.ProjectID == 0 {
		return
	}
	p, _ := a.projects.Project(th.ProjectID)
	if p.ProjectID == 0 {
		p.ProjectID, p.Title = th.ProjectID, a.vm.ProjectTitle(th.ProjectID)
	}
	a.info.Update(p, th.Members, th.Total)
	a.showPage(pageInfo)
}

func (a *App) showPage(name string) {
	a.pages.SwitchToPage(name)
	switch name {
	case pageProjects:
		a.app.SetFocus(a.projects)
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageInfo:
		a.app.SetFocus(a.info)
	case pageHelp:
		a.app.SetFocus(a.help)
	}
	a.refreshChrome()
}

func (a *App) showPrompt(mode ui.PromptMode) {
	if mode == ui.PromptFilter {
		page, _ := a.pages.GetFrontPage()
		if page != pageProjects {
			a.showPage(pageProjects)
		}
	}
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.promptShown = true
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if !a.promptShown {
		return
	}
	a.promptShown = false
	a.root.ResizeItem(a.prompt, 0, 0)
	page, _ := a.pages.GetFrontPage()
	a.showPage(page)
}

// run calls fn off the UI goroutine and applies done on success. Failures
// land in the flash bar. busy labels the status bar while fn runs.
func (a *App) run(busy string, fn func(ctx context.Context) error, done func()) {
	a.statusBar.SetBusy(busy)
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout)
		err := fn(ctx)
		cancel()
		if err != nil {
			a.vm.Flash.Set(model.FlashError, errorText(err))
		}
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetBusy("")
			if err == nil && done != nil {
				done()
			}
			a.flash.Update(a.vm.Flash.Get())
		})
	}()
}

// watch follows the daemon's event stream as a viewer, reconnecting until
// the app stops. Each reconnect resyncs the full state first.
func (a *App) watch() {
	for a.ctx.Err() == nil {
		stream, err := a.client.Watch(a.ctx, &rpc.WatchRequest{Viewer: true})
		if err == nil {
			err = a.consume(stream)
		}
		if a.ctx.Err() != nil {
			return
		}
		a.vm.Flash.Set(model.FlashWarn, "Lost daemon connection: "+errorText(err))
		a.app.QueueUpdateDraw(func() { a.flash.Update(a.vm.Flash.Get()) })

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(watchRetry):
		}
		a.resync()
	}
}

func (a *App) consume(stream interface{ Recv() (*rpc.Event, error) }) error {
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return errors.New("stream closed")
		}
		if err != nil {
			return err
		}
		change, err := a.vm.Apply(evt)
		if err != nil || change == 0 {
			continue
		}
		if change.Has(model.ChangeSound) {
			a.beep.Store(true)
		}
		a.app.QueueUpdateDraw(func() { a.render(change) })
	}
}

func (a *App) resync() {
	ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout)
	defer cancel()
	if err := a.vm.Refresh(ctx); err != nil {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.render(model.ChangeProjects | model.ChangeThread | model.ChangeStatus | model.ChangePending)
		a.thread.SetDraft(a.vm.Draft())
	})
}

func (a *App) render(change model.Change) {
	if change.Has(model.ChangeProjects) {
		a.renderProjects()
	}
	if change.Has(model.ChangeThread | model.ChangePending) {
		a.renderThread()
	}
	if change.Has(model.ChangeStatus) {
		st := a.vm.Status()
		a.header.Update(st)
		if st != nil {
			a.thread.SetSelf(st.UserID)
			a.statusBar.SetFeed(st.FeedState)
		}
	}
	a.flash.Update(a.vm.Flash.Get())
	a.refreshCounts()
}

func (a *App) renderProjects() {
	a.projects.Update(a.vm.Projects(), a.vm.TotalUnread())
	a.refreshCounts()
}

func (a *App) renderThread() {
	th := a.vm.Thread()
	a.thread.Update(th, a.vm.Pending(), a.keepTop.Load())
	a.refreshCounts()
}

func (a *App) refreshCounts() {
	pending, failed := 0, 0
	for _, p := range a.vm.Pending() {
		pending++
		if p.State == "FAILED" {
			failed++
		}
	}
	a.statusBar.SetCounts(a.vm.TotalUnread(), pending-failed, failed)
}

// refreshChrome redraws the breadcrumbs and key hints for the front page.
func (a *App) refreshChrome() {
	page, _ := a.pages.GetFrontPage()
	trail := []string{a.profile, "projects"}
	if id := a.vm.Thread().ProjectID; id != 0 && (page == pageThread || page == pageInfo) {
		trail = append(trail, a.vm.ProjectTitle(id))
	}
	switch page {
	case pageInfo:
		trail = append(trail, "details")
	case pageHelp:
		trail = append(trail, "help")
	}
	a.crumbs.Update(trail...)

	a.clearFilter.Visible = a.projects.Filter() != ""
	a.menu.Update(a.registry.Hints(page))
}

// tick keeps the flash bar, clock and uptime current.
func (a *App) tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	lastStatus := time.Now()
	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			change := model.ChangeFlash
			if now.Sub(lastStatus) >= statusInterval {
				lastStatus = now
				ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
				if a.vm.LoadStatus(ctx) == nil {
					change |= model.ChangeStatus
				}
				cancel()
			}
			a.app.QueueUpdateDraw(func() { a.render(change) })
		}
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		a.resync()
		a.app.QueueUpdateDraw(func() {
			if id := a.vm.Thread().ProjectID; id != 0 {
				a.thread.SetTitle(a.vm.ProjectTitle(id))
				a.projects.Select(id)
			}
		})
		go a.tick()
		a.watch()
	}()

	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	if s, ok := status.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}
