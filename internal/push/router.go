// Package push routes live feed messages into the sidebar and the open
// thread.
package push

import (
	"errors"
	"sync"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"github.com/samiuddin-code/datportal-sub005/internal/sidebar"
	"github.com/samiuddin-code/datportal-sub005/internal/thread"
	"go.uber.org/zap"
)

// ErrNoSource is returned by Start when given a nil source.
var ErrNoSource = errors.New("push: nil source")

// Source delivers feed messages, in receipt order, to a single handler.
type Source interface {
	Subscribe(handler func(chat.Message)) (unsubscribe func(), err error)
}

// State is what the router mutates for one event.
type State struct {
	Index         *sidebar.Index
	Thread        *thread.Store
	OpenProjectID int64
}

// Sink owns the state the router writes to.
type Sink interface {
	// WithState runs fn with exclusive access to the sidebar and thread.
	WithState(fn func(State))
	// Applied is called after an event was applied, outside the state lock.
	Applied(msg chat.Message, threadChanged bool)
	// Sound plays the new-message notification.
	Sound(msg chat.Message)
	// RequestReload re-fetches the open thread's first page. It must not block.
	RequestReload(reason string)
}

// Config tunes a Router.
type Config struct {
	LocalUserID int64
	Retention   int
	QuietPeriod time.Duration
	Now         func() time.Time
}

// Router is the single consumer of the live feed for a mounted view.
type Router struct {
	sink        Sink
	localUserID int64
	dedup       *Dedup
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu         sync.Mutex
	stale      *Staleness
	interacted bool
	unsub      func()
}

// New creates a stopped router.
func New(sink Sink, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		sink:        sink,
		localUserID: cfg.LocalUserID,
		dedup:       NewDedup(cfg.Retention),
		metrics:     m,
		logger:      logger,
		stale:       NewStaleness(cfg.QuietPeriod, cfg.Now),
	}
}

// Start subscribes to src. Calling Start on a running router keeps the
// existing subscription.
func (r *Router) Start(src Source) error {
	if src == nil {
		return ErrNoSource
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsub != nil {
		return nil
	}
	unsub, err := src.Subscribe(r.Handle)
	if err != nil {
		return err
	}
	r.unsub = unsub
	r.logger.Debug("push router started")
	return nil
}

// Stop drops the subscription. Safe to call more than once.
func (r *Router) Stop() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()
	if unsub != nil {
		unsub()
		r.logger.Debug("push router stopped")
	}
}

// Running reports whether a subscription is held.
func (r *Router) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsub != nil
}

// MarkInteraction sets the one-shot flag that allows notification sounds.
func (r *Router) MarkInteraction() {
	r.mu.Lock()
	r.interacted = true
	r.mu.Unlock()
}

// Interacted reports whether the user has interacted yet.
func (r *Router) Interacted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interacted
}

// SetVisible records visibility and asks the sink for a reload when the view
// resumes after the quiet period. It reports whether a reload was requested.
func (r *Router) SetVisible(visible bool) bool {
	r.mu.Lock()
	reload := r.stale.SetVisible(visible)
	r.mu.Unlock()
	if reload {
		r.logger.Info("view resumed after quiet period, reloading thread")
		r.metrics.Reload(metrics.ReloadStale)
		r.sink.RequestReload(metrics.ReloadStale)
	}
	return reload
}

// Visible reports the last recorded visibility.
func (r *Router) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale.Visible()
}

// Handle applies one feed message. Messages must be handed in receipt order;
// they are never re-sorted. A removal is deduplicated apart from the
// message it removes and never counts as new activity.
func (r *Router) Handle(msg chat.Message) {
	if msg.ID != 0 && !r.dedup.Add(dedupKey(msg)) {
		r.metrics.PushEvent(metrics.PushDuplicate)
		r.logger.Debug("duplicate push event dropped", zap.Int64("msg_id", msg.ID), zap.Bool("removed", msg.Removed))
		return
	}

	var threadChanged bool
	r.sink.WithState(func(s State) {
		open := s.OpenProjectID != 0 && msg.ProjectID == s.OpenProjectID
		if msg.Removed {
			if open {
				threadChanged = s.Thread.RemoveID(msg.ID)
			}
			return
		}
		s.Index.ApplyPushEvent(msg, s.OpenProjectID, r.localUserID)
		if open {
			threadChanged = s.Thread.Reconcile(msg)
		}
	})

	if msg.Removed {
		r.metrics.PushEvent(metrics.PushRemoved)
		r.sink.Applied(msg, threadChanged)
		return
	}

	r.mu.Lock()
	r.stale.Applied()
	sound := r.interacted && msg.AuthorUserID != r.localUserID
	r.mu.Unlock()

	r.metrics.PushEvent(metrics.PushApplied)
	r.sink.Applied(msg, threadChanged)
	if sound {
		r.sink.Sound(msg)
	}
}

func dedupKey(msg chat.Message) string {
	if msg.Removed {
		return "rm:" + msg.Key()
	}
	return msg.Key()
}
