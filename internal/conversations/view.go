// Package conversations keeps the project sidebar and the open thread
// consistent while REST pages, live feed events and local sends interleave.
//
// All state lives behind one mutex. Network calls run outside it, and every
// response is checked against the open episode before it is applied, so a
// page that arrives after the user switched threads is dropped.
package conversations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/permission"
	"github.com/samiuddin-code/datportal-sub005/internal/push"
	"github.com/samiuddin-code/datportal-sub005/internal/sidebar"
	"github.com/samiuddin-code/datportal-sub005/internal/status"
	"github.com/samiuddin-code/datportal-sub005/internal/store"
	"github.com/samiuddin-code/datportal-sub005/internal/thread"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPermissionDenied is returned when the permission map refuses an
	// action. No request is made.
	ErrPermissionDenied = permission.ErrDenied
	// ErrNoOpenThread is returned by thread actions while no project is open.
	ErrNoOpenThread = errors.New("no conversation is open")
	// ErrNotMounted is returned by user actions before Mount or after
	// Unmount.
	ErrNotMounted = errors.New("conversations view is not mounted")
)

// Backend is the subset of the REST client the view calls.
type Backend interface {
	outbox.Backend
	ListConversations(ctx context.Context, q backend.ThreadQuery) (*backend.ThreadPage, error)
	ListProjects(ctx context.Context, page, perPage int) (*backend.ProjectPage, error)
	DeleteMessage(ctx context.Context, id int64) (string, error)
}

// Feed is the live feed connection shared by the whole process.
type Feed interface {
	push.Source
	Connect(ctx context.Context) error
	Disconnect()
}

// Cache keeps the sidebar and a little sync state across restarts.
type Cache interface {
	LoadSummaries(ctx context.Context) ([]chat.Summary, error)
	SaveSummaries(ctx context.Context, list []chat.Summary) error
	GetInt(ctx context.Context, key string) (int64, error)
	SetInt(ctx context.Context, key string, n int64) error
}

// Deps are the collaborators of a View. Cache, Pending, Bus and Metrics may
// be nil.
type Deps struct {
	Backend Backend
	Feed    Feed
	Cache   Cache
	Pending outbox.PendingStore
	Gate    *permission.Gate
	Bus     *bus.Bus
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Config tunes a View.
type Config struct {
	LocalUserID     int64
	PageSize        int
	SidebarPageSize int
	QuietPeriod     time.Duration
	MatchWindow     time.Duration
	DedupRetention  int
	Policy          outbox.Policy
	MaxFiles        int
	// RestoreLastOpen reopens the thread that was open when the view was
	// last unmounted.
	RestoreLastOpen bool
	Now             func() time.Time
}

const (
	defaultPageSize        = 10
	defaultSidebarPageSize = 20
	backgroundTimeout      = 30 * time.Second
)

// View is the conversations screen without its rendering.
type View struct {
	backend Backend
	feed    Feed
	cache   Cache
	gate    *permission.Gate
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     Config

	router *push.Router
	outbox *outbox.Coordinator

	mu             sync.Mutex
	mounted        bool
	index          *sidebar.Index
	store          *thread.Store
	pager          *thread.Paginator
	openID         int64
	episode        uint64
	sidebarPage    int
	sidebarPages   int
	sidebarLoading bool
	feedDone       chan struct{}

	bg sync.WaitGroup
}

// New wires a view. It does nothing until Mount.
func New(d Deps, cfg Config) *View {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.SidebarPageSize <= 0 {
		cfg.SidebarPageSize = defaultSidebarPageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	st := thread.NewStore()
	if cfg.MatchWindow > 0 {
		st.MatchWindow = cfg.MatchWindow
	}
	v := &View{
		backend: d.Backend,
		feed:    d.Feed,
		cache:   d.Cache,
		gate:    d.Gate,
		bus:     d.Bus,
		metrics: d.Metrics,
		logger:  logger,
		cfg:     cfg,
		index:   sidebar.New(),
		store:   st,
		pager:   thread.NewPaginator(st),
	}
	v.router = push.New(v, push.Config{
		LocalUserID: cfg.LocalUserID,
		Retention:   cfg.DedupRetention,
		QuietPeriod: cfg.QuietPeriod,
		Now:         cfg.Now,
	}, d.Metrics, logger.Named("push"))
	v.outbox = outbox.NewCoordinator(d.Backend, d.Pending, v, d.Bus, d.Metrics, logger.Named("outbox"), outbox.Config{
		Policy:      cfg.Policy,
		MaxFiles:    cfg.MaxFiles,
		LocalUserID: cfg.LocalUserID,
		Now:         cfg.Now,
	})
	return v
}

// Mount loads the sidebar, subscribes to the live feed and connects it.
// The cached sidebar and the first project page load concurrently; the
// fetched page wins when both succeed. Mounting twice is a no-op.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return nil
	}
	v.mounted = true
	v.mu.Unlock()

	if err := v.outbox.Load(ctx); err != nil {
		v.logger.Warn("could not restore pending sends", zap.Error(err))
	}

	var (
		cached  []chat.Summary
		fetched *backend.ProjectPage
		lastID  int64
	)
	var g errgroup.Group
	if v.cache != nil {
		g.Go(func() error {
			list, err := v.cache.LoadSummaries(ctx)
			if err != nil {
				v.logger.Warn("could not read cached sidebar", zap.Error(err))
				return nil
			}
			cached = list
			if v.cfg.RestoreLastOpen {
				lastID, _ = v.cache.GetInt(ctx, store.KeyLastOpenProject)
			}
			return nil
		})
	}
	g.Go(func() error {
		page, err := v.backend.ListProjects(ctx, 1, v.cfg.SidebarPageSize)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		fetched = page
		return nil
	})
	fetchErr := g.Wait()

	v.mu.Lock()
	switch {
	case fetched != nil:
		v.index.Load(fetched.Items)
		v.sidebarPage, v.sidebarPages = 1, fetched.Meta.PageCount
	case cached != nil:
		v.index.Load(cached)
	}
	projects := v.index.All()
	v.mu.Unlock()

	if fetchErr != nil {
		v.logger.Warn("sidebar fetch failed, showing cached projects", zap.Error(fetchErr), zap.Int("cached", len(cached)))
		v.flash(bus.LevelError, "Could not load projects: "+fetchErr.Error())
	} else {
		v.saveSidebar(ctx, projects)
	}
	v.emit(bus.KindSidebarChanged, projects)

	if err := v.router.Start(v.feed); err != nil {
		return fmt.Errorf("start push router: %w", err)
	}
	v.watchFeedStatus()
	if err := v.feed.Connect(context.WithoutCancel(ctx)); err != nil {
		v.logger.Error("live feed not connected", zap.Error(err))
		v.flash(bus.LevelWarn, "Live updates unavailable: "+err.Error())
	}
	v.logger.Info("conversations mounted", zap.Int("projects", len(projects)))

	if lastID > 0 {
		if err := v.open(ctx, lastID); err != nil {
			v.logger.Warn("could not restore last open project", zap.Int64("project_id", lastID), zap.Error(err))
		}
	}
	return nil
}

// Unmount tears down the feed subscription and waits for background
// reloads. Safe to call when not mounted.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	v.mu.Unlock()

	v.router.Stop()
	v.feed.Disconnect()
	if v.feedDone != nil {
		close(v.feedDone)
		v.feedDone = nil
	}
	v.bg.Wait()
	v.logger.Info("conversations unmounted")
}

// watchFeedStatus reloads the open thread each time the feed comes back
// after the first connection. Events sent while it was down are
// never replayed.
func (v *View) watchFeedStatus() {
	if v.bus == nil {
		return
	}
	ch, unsub := v.bus.Subscribe(bus.KindFeedStatusChanged, 8)
	done := make(chan struct{})
	v.feedDone = done

	v.bg.Add(1)
	go func() {
		defer v.bg.Done()
		defer unsub()
		connected := false
		for {
			select {
			case <-done:
				return
			case evt := <-ch:
				sc, ok := evt.Payload.(status.StatusChange)
				if !ok || sc.To != status.Connected {
					continue
				}
				if connected {
					v.metrics.Reload(metrics.ReloadReconnect)
					v.RequestReload(metrics.ReloadReconnect)
				}
				connected = true
			}
		}
	}()
}

// Mounted reports whether the view is live.
func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Open makes projectID the open thread and fetches its newest page. It
// counts as a user interaction.
func (v *View) Open(ctx context.Context, projectID int64) error {
	if err := v.live(); err != nil {
		return err
	}
	v.router.MarkInteraction()
	return v.open(ctx, projectID)
}

func (v *View) open(ctx context.Context, projectID int64) error {
	v.mu.Lock()
	v.episode++
	ep := v.episode
	v.openID = projectID
	v.store.Reset()
	v.pager.Begin()
	v.index.MarkOpened(projectID)
	projects := v.index.All()
	th := v.threadLocked()
	v.mu.Unlock()

	v.emit(bus.KindSidebarChanged, projects)
	v.emit(bus.KindThreadChanged, th)
	if v.cache != nil {
		if err := v.cache.SetInt(context.WithoutCancel(ctx), store.KeyLastOpenProject, projectID); err != nil {
			v.logger.Warn("could not remember open project", zap.Error(err))
		}
	}

	page, err := v.backend.ListConversations(ctx, backend.ThreadQuery{
		ProjectID: projectID,
		PerPage:   v.cfg.PageSize,
	})

	v.mu.Lock()
	if !v.currentLocked(ep, projectID) {
		v.mu.Unlock()
		v.discardStale("open", projectID)
		return nil
	}
	if err != nil {
		v.pager.Failed()
		th = v.threadLocked()
		v.mu.Unlock()
		v.emit(bus.KindThreadChanged, th)
		v.flash(bus.LevelError, "Could not load conversation: "+err.Error())
		return fmt.Errorf("load conversation %d: %w", projectID, err)
	}
	if v.store.Len() == 0 {
		v.store.LoadInitial(page.Items, page.Meta)
	} else {
		// Feed events landed while the page was in flight.
		v.store.Merge(page.Items, page.Meta)
	}
	v.pager.InitialLoaded()
	th = v.threadLocked()
	v.mu.Unlock()

	v.logger.Debug("conversation opened", zap.Int64("project_id", projectID), zap.Int("items", len(th.Items)), zap.Int("total", th.Total))
	v.emit(bus.KindThreadChanged, th)
	return nil
}

// LoadOlder fetches the next backward page. It is a no-op while a fetch is
// in flight or when history is exhausted.
func (v *View) LoadOlder(ctx context.Context) error {
	if err := v.live(); err != nil {
		return err
	}
	v.mu.Lock()
	if v.openID == 0 {
		v.mu.Unlock()
		return ErrNoOpenThread
	}
	before, ok := v.pager.RequestNext()
	if !ok {
		v.mu.Unlock()
		return nil
	}
	ep, projectID := v.episode, v.openID
	th := v.threadLocked()
	v.mu.Unlock()
	v.emit(bus.KindThreadChanged, th)

	page, err := v.backend.ListConversations(ctx, backend.ThreadQuery{
		ProjectID: projectID,
		PerPage:   v.cfg.PageSize,
		Before:    before,
	})

	v.mu.Lock()
	if !v.currentLocked(ep, projectID) {
		v.mu.Unlock()
		v.discardStale("older", projectID)
		return nil
	}
	if err != nil {
		v.pager.Failed()
		th = v.threadLocked()
		v.mu.Unlock()
		v.emit(bus.KindThreadChanged, th)
		v.flash(bus.LevelError, "Could not load older messages: "+err.Error())
		return fmt.Errorf("load older messages: %w", err)
	}
	added := v.store.AppendOlder(page.Items)
	v.pager.PageLoaded()
	th = v.threadLocked()
	v.mu.Unlock()

	v.logger.Debug("older page merged", zap.Int64("before", before), zap.Int("added", added))
	v.emit(bus.KindThreadChanged, th)
	return nil
}

// Reload re-fetches the open thread's newest page and merges it.
func (v *View) Reload(ctx context.Context) error {
	if err := v.live(); err != nil {
		return err
	}
	v.metrics.Reload(metrics.ReloadManual)
	return v.reload(ctx)
}

func (v *View) reload(ctx context.Context) error {
	v.mu.Lock()
	if v.openID == 0 {
		v.mu.Unlock()
		return nil
	}
	if v.pager.Phase() == thread.InitialLoading {
		// The first page is already on its way.
		v.mu.Unlock()
		return nil
	}
	ep, projectID := v.episode, v.openID
	v.mu.Unlock()

	page, err := v.backend.ListConversations(ctx, backend.ThreadQuery{
		ProjectID: projectID,
		PerPage:   v.cfg.PageSize,
	})

	v.mu.Lock()
	if !v.currentLocked(ep, projectID) {
		v.mu.Unlock()
		v.discardStale("reload", projectID)
		return nil
	}
	if err != nil {
		v.mu.Unlock()
		v.flash(bus.LevelWarn, "Could not refresh conversation: "+err.Error())
		return fmt.Errorf("reload conversation %d: %w", projectID, err)
	}
	added := v.store.Merge(page.Items, page.Meta)
	if !v.pager.Loading() {
		v.pager.Settle()
	}
	th := v.threadLocked()
	v.mu.Unlock()

	v.logger.Debug("conversation reloaded", zap.Int64("project_id", projectID), zap.Int("added", added))
	v.emit(bus.KindThreadChanged, th)
	return nil
}

// LoadMoreProjects appends the next sidebar page.
func (v *View) LoadMoreProjects(ctx context.Context) error {
	if err := v.live(); err != nil {
		return err
	}
	v.mu.Lock()
	if v.sidebarLoading || (v.sidebarPages > 0 && v.sidebarPage >= v.sidebarPages) {
		v.mu.Unlock()
		return nil
	}
	v.sidebarLoading = true
	next := v.sidebarPage + 1
	v.mu.Unlock()

	page, err := v.backend.ListProjects(ctx, next, v.cfg.SidebarPageSize)

	v.mu.Lock()
	v.sidebarLoading = false
	if err != nil {
		v.mu.Unlock()
		v.flash(bus.LevelError, "Could not load more projects: "+err.Error())
		return fmt.Errorf("list projects page %d: %w", next, err)
	}
	v.index.Append(page.Items)
	v.sidebarPage, v.sidebarPages = next, page.Meta.PageCount
	projects := v.index.All()
	v.mu.Unlock()

	v.saveSidebar(ctx, projects)
	v.emit(bus.KindSidebarChanged, projects)
	return nil
}

// Send submits body to projectID, or to the open thread when projectID is
// zero.
func (v *View) Send(ctx context.Context, projectID int64, body string) (*chat.Message, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	v.router.MarkInteraction()
	if err := v.check(permission.AddConversation); err != nil {
		return nil, err
	}
	projectID, err := v.target(projectID)
	if err != nil {
		return nil, err
	}
	msg, err := v.outbox.Send(ctx, projectID, body)
	if err != nil {
		v.flashSendError("Message not sent", err)
		return nil, err
	}
	return msg, nil
}

// Upload sends files to projectID, or to the open thread when projectID is
// zero.
func (v *View) Upload(ctx context.Context, projectID int64, paths []string) ([]chat.MediaRef, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	v.router.MarkInteraction()
	if err := v.check(permission.UploadAttachment); err != nil {
		return nil, err
	}
	projectID, err := v.target(projectID)
	if err != nil {
		return nil, err
	}
	refs, err := v.outbox.Upload(ctx, projectID, paths)
	if err != nil {
		v.flashSendError("Upload failed", err)
		return nil, err
	}
	v.flash(bus.LevelInfo, fmt.Sprintf("Uploaded %d file(s)", len(refs)))
	return refs, nil
}

// Delete removes a message on the server, then from the open thread.
func (v *View) Delete(ctx context.Context, messageID int64) error {
	if err := v.live(); err != nil {
		return err
	}
	v.router.MarkInteraction()
	if err := v.check(permission.DeleteConversation); err != nil {
		return err
	}
	note, err := v.backend.DeleteMessage(ctx, messageID)
	v.metrics.Send("delete", err)
	if err != nil {
		v.flash(bus.LevelError, "Could not delete message: "+err.Error())
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}

	v.mu.Lock()
	removed := v.store.RemoveID(messageID)
	if removed && !v.pager.Loading() {
		v.pager.Settle()
	}
	th := v.threadLocked()
	v.mu.Unlock()

	if removed {
		v.emit(bus.KindThreadChanged, th)
	}
	if note == "" {
		note = "Message deleted"
	}
	v.flash(bus.LevelInfo, note)
	return nil
}

// Retry resubmits a failed send.
func (v *View) Retry(ctx context.Context, clientTempID string) error {
	if err := v.live(); err != nil {
		return err
	}
	v.router.MarkInteraction()
	perm := permission.AddConversation
	for _, p := range v.outbox.Pending() {
		if p.ClientTempID == clientTempID && p.Kind == outbox.KindUpload {
			perm = permission.UploadAttachment
		}
	}
	if err := v.check(perm); err != nil {
		return err
	}
	if err := v.outbox.Retry(ctx, clientTempID); err != nil {
		v.flashSendError("Retry failed", err)
		return err
	}
	return nil
}

// Discard forgets a failed send.
func (v *View) Discard(ctx context.Context, clientTempID string) error {
	return v.outbox.Discard(ctx, clientTempID)
}

// SetDraft stores the composer content.
func (v *View) SetDraft(s string) { v.outbox.SetDraft(s) }

// SetVisible records whether anyone is looking at the view. Becoming
// visible after the quiet period reloads the open thread in the background.
// It reports whether that reload was started.
func (v *View) SetVisible(visible bool) bool {
	return v.router.SetVisible(visible)
}

// Visible reports the last recorded visibility.
func (v *View) Visible() bool { return v.router.Visible() }

func (v *View) live() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return ErrNotMounted
	}
	return nil
}

func (v *View) check(name string) error {
	if err := v.gate.Check(name); err != nil {
		v.flash(bus.LevelError, "You are not allowed to do that ("+name+")")
		return err
	}
	return nil
}

func (v *View) target(projectID int64) (int64, error) {
	if projectID != 0 {
		return projectID, nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.openID == 0 {
		return 0, ErrNoOpenThread
	}
	return v.openID, nil
}

func (v *View) currentLocked(ep uint64, projectID int64) bool {
	return v.episode == ep && v.openID == projectID
}

func (v *View) discardStale(what string, projectID int64) {
	v.metrics.StaleResponse()
	v.logger.Debug("discarding stale response", zap.String("request", what), zap.Int64("project_id", projectID))
}

func (v *View) saveSidebar(ctx context.Context, projects []chat.Summary) {
	if v.cache == nil {
		return
	}
	if err := v.cache.SaveSummaries(context.WithoutCancel(ctx), projects); err != nil {
		v.logger.Warn("could not cache sidebar", zap.Error(err))
	}
}

func (v *View) flashSendError(prefix string, err error) {
	switch {
	case errors.Is(err, outbox.ErrBusy), errors.Is(err, outbox.ErrEmptyMessage):
		v.flash(bus.LevelWarn, prefix+": "+err.Error())
	default:
		v.flash(bus.LevelError, prefix+": "+err.Error())
	}
}

func (v *View) flash(level, message string) {
	v.emit(bus.KindFlash, bus.Flash{Level: level, Message: message})
}

func (v *View) emit(kind string, payload any) {
	if v.bus != nil {
		v.bus.Emit(kind, payload)
	}
}
