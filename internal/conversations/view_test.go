package conversations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/feed"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/permission"
	"github.com/samiuddin-code/datportal-sub005/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const me = int64(7)

type fakeBackend struct {
	mu       sync.Mutex
	threads  map[int64][]chat.Message
	projects []chat.Summary
	gates    map[int64]chan struct{}
	started  chan int64
	queries  []backend.ThreadQuery
	sends    []backend.SendRequest
	uploads  int
	deleted  []int64
	sendErr  error
	listErr  error
	projErr  error
	nextID   int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		threads: make(map[int64][]chat.Message),
		gates:   make(map[int64]chan struct{}),
		started: make(chan int64, 16),
		nextID:  1000,
	}
}

// history fills a thread with ids hi..lo, newest first.
func (f *fakeBackend) history(projectID, hi, lo int64) {
	var items []chat.Message
	for id := hi; id >= lo; id-- {
		items = append(items, chat.Message{ID: id, ProjectID: projectID, AuthorUserID: 99, Body: fmt.Sprintf("m%d", id)})
	}
	f.mu.Lock()
	f.threads[projectID] = items
	f.mu.Unlock()
}

func (f *fakeBackend) block(projectID int64) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[projectID] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeBackend) ListConversations(ctx context.Context, q backend.ThreadQuery) (*backend.ThreadPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gates[q.ProjectID]
	f.mu.Unlock()

	if gate != nil {
		f.started <- q.ProjectID
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	all := f.threads[q.ProjectID]
	var page []chat.Message
	for _, m := range all {
		if q.Before != 0 && m.ID >= q.Before {
			continue
		}
		if len(page) == q.PerPage {
			break
		}
		page = append(page, m)
	}
	return &backend.ThreadPage{Items: page, Meta: chat.PageMeta{Total: len(all), Page: 1}}, nil
}

func (f *fakeBackend) ListProjects(ctx context.Context, page, perPage int) (*backend.ProjectPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projErr != nil {
		return nil, f.projErr
	}
	start := (page - 1) * perPage
	if start > len(f.projects) {
		start = len(f.projects)
	}
	end := min(start+perPage, len(f.projects))
	pages := (len(f.projects) + perPage - 1) / perPage
	return &backend.ProjectPage{
		Items: append([]chat.Summary(nil), f.projects[start:end]...),
		Meta:  chat.PageMeta{Total: len(f.projects), Page: page, PageCount: pages},
	}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, req backend.SendRequest) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	return &chat.Message{ID: f.nextID, ProjectID: req.ProjectID, AuthorUserID: me, Body: req.Message, ClientToken: req.ClientToken}, nil
}

func (f *fakeBackend) Upload(ctx context.Context, projectID int64, files []backend.File) ([]chat.MediaRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return []chat.MediaRef{{ID: 1}}, nil
}

func (f *fakeBackend) DeleteMessage(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return "Conversation deleted", nil
}

func (f *fakeBackend) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeFeed struct {
	mu          sync.Mutex
	handler     func(chat.Message)
	connects    int
	disconnects int
}

func (f *fakeFeed) Subscribe(h func(chat.Message)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler != nil {
		return nil, feed.ErrAlreadySubscribed
	}
	f.handler = h
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	}, nil
}

func (f *fakeFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
	return nil
}

func (f *fakeFeed) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeFeed) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

func (f *fakeFeed) emit(msg chat.Message) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

type memCache struct {
	mu        sync.Mutex
	summaries []chat.Summary
	ints      map[string]int64
}

func (c *memCache) LoadSummaries(ctx context.Context) ([]chat.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Summary(nil), c.summaries...), nil
}

func (c *memCache) SaveSummaries(ctx context.Context, list []chat.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append([]chat.Summary(nil), list...)
	return nil
}

func (c *memCache) GetInt(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ints[key], nil
}

func (c *memCache) SetInt(ctx context.Context, key string, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ints == nil {
		c.ints = make(map[string]int64)
	}
	c.ints[key] = n
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	view  *View
	be    *fakeBackend
	feed  *fakeFeed
	cache *memCache
	bus   *bus.Bus
	clock *clock
}

func allowAll() *permission.Gate {
	return permission.New(map[string]bool{
		permission.AddConversation:    true,
		permission.DeleteConversation: true,
		permission.UploadAttachment:   true,
	}, nil)
}

func newHarness(t *testing.T, gate *permission.Gate, tweak func(*Config)) *harness {
	t.Helper()
	h := &harness{
		be:    newFakeBackend(),
		feed:  &fakeFeed{},
		cache: &memCache{},
		bus:   bus.New(),
		clock: &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	cfg := Config{LocalUserID: me, PageSize: 10, Now: h.clock.Now}
	if tweak != nil {
		tweak(&cfg)
	}
	h.view = New(Deps{
		Backend: h.be,
		Feed:    h.feed,
		Cache:   h.cache,
		Gate:    gate,
		Bus:     h.bus,
	}, cfg)
	t.Cleanup(h.view.Unmount)
	return h
}

func (h *harness) mount(t *testing.T) {
	t.Helper()
	require.NoError(t, h.view.Mount(context.Background()))
}

func ids(items []chat.Message) []int64 {
	out := make([]int64, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func unread(t *testing.T, v *View, projectID int64) int {
	t.Helper()
	for _, s := range v.Projects() {
		if s.ProjectID == projectID {
			return s.UnreadCount
		}
	}
	t.Fatalf("project %d not in sidebar", projectID)
	return 0
}

func waitEvent(t *testing.T, ch <-chan bus.Event, kind string) bus.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Kind == kind {
				return evt
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
		}
	}
}

func TestMountSubscribesOnceAndUnmountTearsDown(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.projects = []chat.Summary{{ProjectID: 1, Title: "Villa"}, {ProjectID: 2, Title: "Tower"}}

	h.mount(t)
	h.mount(t)
	assert.True(t, h.feed.subscribed())
	assert.Equal(t, 1, h.feed.connects)
	assert.Len(t, h.view.Projects(), 2)
	assert.Len(t, h.cache.summaries, 2, "fetched sidebar is cached")

	h.view.Unmount()
	assert.False(t, h.feed.subscribed())
	assert.Equal(t, 1, h.feed.disconnects)

	// Re-mounting must not fail on a leaked listener.
	h.mount(t)
	assert.True(t, h.feed.subscribed())
}

func TestMountFallsBackToCachedSidebar(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.projErr = errors.New("backend down")
	h.cache.summaries = []chat.Summary{{ProjectID: 3, Title: "Cached"}}
	events, unsub := h.bus.Subscribe(bus.KindFlash, 16)
	defer unsub()

	h.mount(t)

	require.Len(t, h.view.Projects(), 1)
	assert.Equal(t, int64(3), h.view.Projects()[0].ProjectID)
	evt := waitEvent(t, events, bus.KindFlash)
	assert.Equal(t, bus.LevelError, evt.Payload.(bus.Flash).Level)
}

func TestMountRestoresLastOpenProject(t *testing.T) {
	h := newHarness(t, allowAll(), func(c *Config) { c.RestoreLastOpen = true })
	h.be.projects = []chat.Summary{{ProjectID: 4}}
	h.be.history(4, 3, 1)
	h.cache.ints = map[string]int64{"last_open_project": 4}

	h.mount(t)

	th := h.view.CurrentThread()
	assert.Equal(t, int64(4), th.ProjectID)
	assert.Equal(t, []int64{3, 2, 1}, ids(th.Items))
	assert.False(t, h.view.Snapshot().Interacted, "restoring is not a user interaction")
}

func TestPaginationBoundary(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(42, 25, 1)
	h.mount(t)
	ctx := context.Background()

	require.NoError(t, h.view.Open(ctx, 42))
	th := h.view.CurrentThread()
	require.Len(t, th.Items, 10)
	assert.Equal(t, int64(25), th.Items[0].ID)
	assert.True(t, th.HasMore)

	require.NoError(t, h.view.LoadOlder(ctx))
	assert.Equal(t, int64(16), h.be.queries[len(h.be.queries)-1].Before)
	th = h.view.CurrentThread()
	require.Len(t, th.Items, 20)
	assert.True(t, th.HasMore)
	for i := 1; i < len(th.Items); i++ {
		assert.Greater(t, th.Items[i-1].ID, th.Items[i].ID)
	}

	require.NoError(t, h.view.LoadOlder(ctx))
	th = h.view.CurrentThread()
	assert.Len(t, th.Items, 25)
	assert.False(t, th.HasMore)
	assert.Equal(t, thread.Exhausted, th.Phase)

	calls := h.be.queryCount()
	require.NoError(t, h.view.LoadOlder(ctx))
	assert.Equal(t, calls, h.be.queryCount(), "exhausted thread makes no request")
}

func TestLoadOlderFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(42, 25, 1)
	h.mount(t)
	ctx := context.Background()
	require.NoError(t, h.view.Open(ctx, 42))

	h.be.mu.Lock()
	h.be.listErr = errors.New("timeout")
	h.be.mu.Unlock()
	require.Error(t, h.view.LoadOlder(ctx))

	th := h.view.CurrentThread()
	assert.Equal(t, thread.Idle, th.Phase)
	assert.Len(t, th.Items, 10)

	h.be.mu.Lock()
	h.be.listErr = nil
	h.be.mu.Unlock()
	require.NoError(t, h.view.LoadOlder(ctx))
	assert.Len(t, h.view.CurrentThread().Items, 20)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 5, 1)
	h.be.history(2, 105, 101)
	gate := h.be.block(1)
	h.mount(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- h.view.Open(ctx, 1) }()
	require.Equal(t, int64(1), <-h.be.started)

	require.NoError(t, h.view.Open(ctx, 2))
	close(gate)
	require.NoError(t, <-done)

	th := h.view.CurrentThread()
	assert.Equal(t, int64(2), th.ProjectID)
	assert.Equal(t, []int64{105, 104, 103, 102, 101}, ids(th.Items))
}

func TestSwitchAwayAndBackIgnoresFirstResponse(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 3, 1)
	h.be.history(2, 9, 9)
	gate := h.be.block(1)
	h.mount(t)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- h.view.Open(ctx, 1) }()
	<-h.be.started
	require.NoError(t, h.view.Open(ctx, 2))

	second := make(chan error, 1)
	go func() { second <- h.view.Open(ctx, 1) }()
	<-h.be.started

	// Both requests for project 1 are released; only the second episode may
	// apply its page.
	close(gate)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	th := h.view.CurrentThread()
	assert.Equal(t, int64(1), th.ProjectID)
	assert.Equal(t, []int64{3, 2, 1}, ids(th.Items))
	assert.Equal(t, thread.Exhausted, th.Phase)
}

func TestSendEchoReconciliation(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.projects = []chat.Summary{{ProjectID: 42}}
	h.mount(t)
	ctx := context.Background()
	require.NoError(t, h.view.Open(ctx, 42))

	h.view.SetDraft("Hello")
	_, err := h.view.Send(ctx, 0, "Hello")
	require.NoError(t, err)

	snap := h.view.Snapshot()
	assert.Empty(t, snap.Draft, "composer clears on success")
	assert.Empty(t, snap.Thread.Items, "no row before the echo")

	token := h.be.sends[0].ClientToken
	require.NotEmpty(t, token)
	echo := chat.Message{ID: 501, ProjectID: 42, AuthorUserID: me, Body: "Hello", ClientToken: token}
	h.feed.emit(echo)
	h.feed.emit(echo)

	th := h.view.CurrentThread()
	assert.Equal(t, []int64{501}, ids(th.Items))
	assert.Equal(t, 0, unread(t, h.view, 42))
	assert.Empty(t, h.view.Pending())
}

func TestOptimisticSendShowsOneRow(t *testing.T) {
	h := newHarness(t, allowAll(), func(c *Config) { c.Policy = outbox.Optimistic })
	h.mount(t)
	ctx := context.Background()
	require.NoError(t, h.view.Open(ctx, 42))

	msg, err := h.view.Send(ctx, 0, "Hello")
	require.NoError(t, err)
	assert.Equal(t, []int64{msg.ID}, ids(h.view.CurrentThread().Items))

	h.feed.emit(*msg)
	assert.Equal(t, []int64{msg.ID}, ids(h.view.CurrentThread().Items))
}

func TestSendFailureKeepsDraftAndRetries(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.mount(t)
	ctx := context.Background()
	require.NoError(t, h.view.Open(ctx, 42))

	h.be.sendErr = errors.New("422 validation failed")
	h.view.SetDraft("Report attached")
	_, err := h.view.Send(ctx, 0, "Report attached")
	require.Error(t, err)

	snap := h.view.Snapshot()
	assert.Equal(t, "Report attached", snap.Draft)
	assert.Empty(t, snap.Thread.Items, "failed sends never show in the thread")
	require.Len(t, snap.Pending, 1)
	assert.Equal(t, outbox.Failed, snap.Pending[0].State)

	h.be.sendErr = nil
	require.NoError(t, h.view.Retry(ctx, snap.Pending[0].ClientTempID))
	require.Equal(t, 2, h.be.sendCount())
	assert.Equal(t, h.be.sends[0].ClientToken, h.be.sends[1].ClientToken)
	assert.Empty(t, h.view.Pending())
}

func TestSendWithoutOpenThread(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.mount(t)

	_, err := h.view.Send(context.Background(), 0, "hi")
	assert.ErrorIs(t, err, ErrNoOpenThread)
	assert.ErrorIs(t, h.view.LoadOlder(context.Background()), ErrNoOpenThread)
}

func TestPermissionDeniedMakesNoRequest(t *testing.T) {
	h := newHarness(t, permission.New(nil, nil), nil)
	h.mount(t)
	ctx := context.Background()
	require.NoError(t, h.view.Open(ctx, 42))
	events, unsub := h.bus.Subscribe(bus.KindFlash, 16)
	defer unsub()

	_, err := h.view.Send(ctx, 0, "hello")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = h.view.Upload(ctx, 0, []string{"a.pdf"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, h.view.Delete(ctx, 5), ErrPermissionDenied)

	assert.Zero(t, h.be.sendCount())
	assert.Zero(t, h.be.uploads)
	assert.Empty(t, h.be.deleted)
	assert.Empty(t, h.view.Pending())
	waitEvent(t, events, bus.KindFlash)
}

func TestUploadCapRejectedBeforeRequest(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 42))

	paths := make([]string, 11)
	for i := range paths {
		paths[i] = fmt.Sprintf("/tmp/file%d.png", i)
	}
	_, err := h.view.Upload(context.Background(), 0, paths)
	assert.ErrorIs(t, err, outbox.ErrTooManyFiles)
	assert.Zero(t, h.be.uploads)
}

func TestUnreadResetOnOpenBeforeFetch(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.projects = []chat.Summary{{ProjectID: 7, UnreadCount: 4}}
	gate := h.be.block(7)
	h.mount(t)

	done := make(chan error, 1)
	go func() { done <- h.view.Open(context.Background(), 7) }()
	<-h.be.started

	assert.Equal(t, 0, unread(t, h.view, 7))
	close(gate)
	require.NoError(t, <-done)
}

func TestPushEventsUpdateSidebarAndSound(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.projects = []chat.Summary{{ProjectID: 1}, {ProjectID: 2, UnreadCount: 1}}
	h.mount(t)
	sounds, unsub := h.bus.Subscribe(bus.KindSound, 16)
	defer unsub()

	// No interaction yet: the event counts but stays silent.
	h.feed.emit(chat.Message{ID: 10, ProjectID: 2, AuthorUserID: 99, Body: "one"})
	assert.Equal(t, 2, unread(t, h.view, 2))
	select {
	case <-sounds:
		t.Fatal("sound before first interaction")
	default:
	}

	require.NoError(t, h.view.Open(context.Background(), 1))
	h.feed.emit(chat.Message{ID: 11, ProjectID: 2, AuthorUserID: 99, Body: "two"})
	h.feed.emit(chat.Message{ID: 12, ProjectID: 2, AuthorUserID: me, Body: "mine"})
	h.feed.emit(chat.Message{ID: 11, ProjectID: 2, AuthorUserID: 99, Body: "two"})

	assert.Equal(t, 3, unread(t, h.view, 2), "self-authored and redelivered events do not count")
	assert.Equal(t, int64(2), h.view.Projects()[0].ProjectID, "active project moves to the top")
	waitEvent(t, sounds, bus.KindSound)

	h.feed.emit(chat.Message{ID: 13, ProjectID: 1, AuthorUserID: 99, Body: "open"})
	assert.Equal(t, 0, unread(t, h.view, 1))
	assert.Equal(t, []int64{13}, ids(h.view.CurrentThread().Items))
}

func TestPushOrderIsArrivalOrder(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 1))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.feed.emit(chat.Message{ID: 20, ProjectID: 1, AuthorUserID: 99, AddedAt: base})
	h.feed.emit(chat.Message{ID: 21, ProjectID: 1, AuthorUserID: 99, AddedAt: base.Add(-time.Minute)})

	assert.Equal(t, []int64{21, 20}, ids(h.view.CurrentThread().Items))
}

func TestPushRemovalDropsRow(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 3, 1)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 1))

	h.feed.emit(chat.Message{ID: 2, ProjectID: 1, AuthorUserID: 99, Removed: true})
	assert.Equal(t, []int64{3, 1}, ids(h.view.CurrentThread().Items))
}

func TestPushRemovalOfPushedMessage(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 3, 1)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 1))
	sounds, unsub := h.bus.Subscribe(bus.KindSound, 8)
	defer unsub()

	h.feed.emit(chat.Message{ID: 4, ProjectID: 1, AuthorUserID: 99, Body: "typo"})
	require.Equal(t, []int64{4, 3, 2, 1}, ids(h.view.CurrentThread().Items))
	<-sounds

	h.feed.emit(chat.Message{ID: 4, ProjectID: 1, AuthorUserID: 99, Removed: true})
	assert.Equal(t, []int64{3, 2, 1}, ids(h.view.CurrentThread().Items))
	h.feed.emit(chat.Message{ID: 2, ProjectID: 1, AuthorUserID: 99, Removed: true})
	assert.Equal(t, []int64{3, 1}, ids(h.view.CurrentThread().Items))

	select {
	case evt := <-sounds:
		t.Fatalf("removal played a sound: %+v", evt)
	default:
	}
}

func TestVisibilityResumeReloadsAfterQuietPeriod(t *testing.T) {
	h := newHarness(t, allowAll(), func(c *Config) { c.QuietPeriod = 8 * time.Second })
	h.be.history(1, 2, 1)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 1))
	assert.False(t, h.view.SetVisible(true), "startup is not a resume")

	h.view.SetVisible(false)
	h.be.history(1, 3, 1)
	h.clock.Advance(5 * time.Second)
	assert.False(t, h.view.SetVisible(true), "short absence does not reload")

	h.view.SetVisible(false)
	h.clock.Advance(9 * time.Second)
	require.True(t, h.view.SetVisible(true))

	require.Eventually(t, func() bool {
		return len(h.view.CurrentThread().Items) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{3, 2, 1}, ids(h.view.CurrentThread().Items))
}

func TestDeleteDuringOlderFetchKeepsItInFlight(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 25, 1)
	h.mount(t)
	ctx := context.Background()
	require.NoError(t, h.view.Open(ctx, 1))

	gate := h.be.block(1)
	older := make(chan error, 1)
	go func() { older <- h.view.LoadOlder(ctx) }()
	<-h.be.started
	require.Equal(t, thread.BackwardLoading, h.view.CurrentThread().Phase)

	require.NoError(t, h.view.Delete(ctx, 20))
	assert.Equal(t, thread.BackwardLoading, h.view.CurrentThread().Phase)

	queries := h.be.queryCount()
	require.NoError(t, h.view.LoadOlder(ctx))
	assert.Equal(t, queries, h.be.queryCount(), "no second backward fetch while one is in flight")

	close(gate)
	require.NoError(t, <-older)
	th := h.view.CurrentThread()
	assert.Equal(t, thread.Idle, th.Phase)
	assert.NotContains(t, ids(th.Items), int64(20))
	assert.Len(t, th.Items, 19)
}

func TestActionsNeedMountedView(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 3, 1)
	ctx := context.Background()

	assert.ErrorIs(t, h.view.Open(ctx, 1), ErrNotMounted)
	_, err := h.view.Send(ctx, 1, "hello")
	assert.ErrorIs(t, err, ErrNotMounted)
	assert.ErrorIs(t, h.view.Delete(ctx, 2), ErrNotMounted)
	assert.Zero(t, h.be.queryCount())
	assert.Zero(t, h.be.sendCount())

	h.mount(t)
	require.NoError(t, h.view.Open(ctx, 1))
	h.view.Unmount()
	assert.ErrorIs(t, h.view.LoadOlder(ctx), ErrNotMounted)
	assert.ErrorIs(t, h.view.Reload(ctx), ErrNotMounted)
}

func TestReloadRequestAfterUnmountIsDropped(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 3, 1)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 1))
	h.view.Unmount()

	queries := h.be.queryCount()
	h.view.RequestReload("test")
	h.view.Unmount()
	assert.Equal(t, queries, h.be.queryCount())
}

func TestDeleteRemovesConfirmedMessage(t *testing.T) {
	h := newHarness(t, allowAll(), nil)
	h.be.history(1, 3, 1)
	h.mount(t)
	require.NoError(t, h.view.Open(context.Background(), 1))

	require.NoError(t, h.view.Delete(context.Background(), 2))
	assert.Equal(t, []int64{2}, h.be.deleted)
	th := h.view.CurrentThread()
	assert.Equal(t, []int64{3, 1}, ids(th.Items))
	assert.Equal(t, 2, th.Total)
}

func TestLoadMoreProjects(t *testing.T) {
	h := newHarness(t, allowAll(), func(c *Config) { c.SidebarPageSize = 2 })
	h.be.projects = []chat.Summary{{ProjectID: 1}, {ProjectID: 2}, {ProjectID: 3}}
	h.mount(t)
	require.Len(t, h.view.Projects(), 2)

	require.NoError(t, h.view.LoadMoreProjects(context.Background()))
	assert.Len(t, h.view.Projects(), 3)

	require.NoError(t, h.view.LoadMoreProjects(context.Background()))
	assert.Len(t, h.view.Projects(), 3, "no page beyond the last")
}
