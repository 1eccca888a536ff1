// Package outbox submits messages and attachments from the composer and
// tracks them until the server confirms or the user gives up.
package outbox

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrBusy rejects a send or upload while the previous one is in flight.
	ErrBusy = errors.New("previous send still in progress")
	// ErrEmptyMessage rejects a blank message.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTooManyFiles rejects an upload batch above the per-call cap.
	ErrTooManyFiles = backend.ErrTooManyFiles
	// ErrUnknownSend is returned for retry or discard of an unknown id.
	ErrUnknownSend = errors.New("no such pending send")
	// ErrNotFailed is returned when retrying a send that has not failed.
	ErrNotFailed = errors.New("pending send has not failed")
)

// Policy decides whether a send shows up before the server echo.
type Policy string

const (
	// Deferred leaves insertion to the server echo.
	Deferred Policy = "deferred"
	// Optimistic inserts a provisional row right away.
	Optimistic Policy = "optimistic"
)

// Backend is the subset of the REST client used for sends.
type Backend interface {
	SendMessage(ctx context.Context, req backend.SendRequest) (*chat.Message, error)
	Upload(ctx context.Context, projectID int64, files []backend.File) ([]chat.MediaRef, error)
}

// Placer puts provisional rows into the open thread for the Optimistic policy.
type Placer interface {
	PlaceProvisional(msg chat.Message)
	ResolveProvisional(msg chat.Message)
	DropProvisional(projectID int64, clientToken string)
}

// Config tunes a Coordinator.
type Config struct {
	Policy      Policy
	MaxFiles    int
	LocalUserID int64
	Now         func() time.Time
	NewToken    func() string
}

// Coordinator serializes sends from one composer and one upload slot.
type Coordinator struct {
	backend Backend
	store   PendingStore
	placer  Placer
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     Config

	mu        sync.Mutex
	sending   bool
	uploading bool
	draft     string
	pending   map[string]PendingSend
}

// NewCoordinator wires a coordinator. store, placer and b may be nil.
func NewCoordinator(be Backend, store PendingStore, placer Placer, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Coordinator {
	if cfg.Policy == "" {
		cfg.Policy = Deferred
	}
	if cfg.MaxFiles <= 0 || cfg.MaxFiles > backend.MaxFilesPerBatch {
		cfg.MaxFiles = backend.MaxFilesPerBatch
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewToken == nil {
		cfg.NewToken = uuid.NewString
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		backend: be,
		store:   store,
		placer:  placer,
		bus:     b,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		pending: make(map[string]PendingSend),
	}
}

// Policy returns the active update policy.
func (c *Coordinator) Policy() Policy { return c.cfg.Policy }

// Load restores persisted sends. Entries left in flight by a previous run are
// marked failed, since their outcome is unknown.
func (c *Coordinator) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	list, err := c.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending sends: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range list {
		if p.State == InFlight {
			p.State = Failed
			p.Error = "interrupted before the server answered"
			p.UpdatedAt = c.cfg.Now()
			c.persist(ctx, p)
		}
		c.pending[p.ClientTempID] = p
	}
	return nil
}

// Draft returns the composer content.
func (c *Coordinator) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the composer content.
func (c *Coordinator) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

// Busy reports the loading flags of the composer and the upload slot.
func (c *Coordinator) Busy() (sending, uploading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending, c.uploading
}

// Pending returns pending sends oldest first.
func (c *Coordinator) Pending() []PendingSend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *Coordinator) pendingLocked() []PendingSend {
	out := make([]PendingSend, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b PendingSend) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ClientTempID, b.ClientTempID)
	})
	return out
}

// Send submits body to projectID. On success the composer is cleared; the
// message itself arrives through the live feed. On failure the composer is
// restored and the send is kept as Failed.
func (c *Coordinator) Send(ctx context.Context, projectID int64, body string) (*chat.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.sending = true
	p := c.track(ctx, PendingSend{
		ClientTempID: c.cfg.NewToken(),
		ProjectID:    projectID,
		Kind:         KindMessage,
		Body:         body,
	})
	c.mu.Unlock()

	return c.sendTracked(ctx, p)
}

func (c *Coordinator) sendTracked(ctx context.Context, p PendingSend) (*chat.Message, error) {
	optimistic := c.cfg.Policy == Optimistic && c.placer != nil
	if optimistic {
		c.placer.PlaceProvisional(chat.Message{
			ProjectID:    p.ProjectID,
			AuthorUserID: c.cfg.LocalUserID,
			Body:         p.Body,
			AddedAt:      c.cfg.Now(),
			ClientToken:  p.ClientTempID,
		})
	}

	msg, err := c.backend.SendMessage(ctx, backend.SendRequest{
		ProjectID:   p.ProjectID,
		Message:     p.Body,
		ClientToken: p.ClientTempID,
	})
	c.metrics.Send(string(KindMessage), err)

	c.mu.Lock()
	c.sending = false
	if err != nil {
		if _, ok := c.pending[p.ClientTempID]; ok {
			c.draft = p.Body
		}
		c.failLocked(ctx, p, err)
		c.mu.Unlock()
		if optimistic {
			c.placer.DropProvisional(p.ProjectID, p.ClientTempID)
		}
		c.logger.Warn("send failed", zap.String("client_temp_id", p.ClientTempID), zap.Error(err))
		return nil, fmt.Errorf("send message: %w", err)
	}
	if c.draft == p.Body {
		c.draft = ""
	}
	c.settleLocked(ctx, p.ClientTempID, Confirmed)
	c.mu.Unlock()

	if optimistic {
		if msg.ClientToken == "" {
			msg.ClientToken = p.ClientTempID
		}
		c.placer.ResolveProvisional(*msg)
	}
	c.logger.Info("message sent", zap.String("client_temp_id", p.ClientTempID), zap.Int64("msg_id", msg.ID))
	return msg, nil
}

// Upload sends files from paths to projectID as one batch. More than the
// per-batch cap is rejected before anything is read or sent.
func (c *Coordinator) Upload(ctx context.Context, projectID int64, paths []string) ([]chat.MediaRef, error) {
	if len(paths) == 0 {
		return nil, backend.ErrNoFiles
	}
	if len(paths) > c.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyFiles, len(paths))
	}
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.uploading = true
	p := c.track(ctx, PendingSend{
		ClientTempID: c.cfg.NewToken(),
		ProjectID:    projectID,
		Kind:         KindUpload,
		Files:        slices.Clone(paths),
	})
	c.mu.Unlock()

	return c.uploadTracked(ctx, p)
}

func (c *Coordinator) uploadTracked(ctx context.Context, p PendingSend) ([]chat.MediaRef, error) {
	refs, err := c.upload(ctx, p)
	c.metrics.Send(string(KindUpload), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = false
	if err != nil {
		c.failLocked(ctx, p, err)
		c.logger.Warn("upload failed", zap.String("client_temp_id", p.ClientTempID), zap.Error(err))
		return nil, fmt.Errorf("upload: %w", err)
	}
	c.settleLocked(ctx, p.ClientTempID, Confirmed)
	return refs, nil
}

func (c *Coordinator) upload(ctx context.Context, p PendingSend) ([]chat.MediaRef, error) {
	files := make([]backend.File, 0, len(p.Files))
	for _, path := range p.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, backend.File{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		})
	}
	return c.backend.Upload(ctx, p.ProjectID, files)
}

// Retry resubmits a failed send with its original client token, so a send
// that did reach the server is not duplicated.
func (c *Coordinator) Retry(ctx context.Context, clientTempID string) error {
	c.mu.Lock()
	p, ok := c.pending[clientTempID]
	switch {
	case !ok:
		c.mu.Unlock()
		return ErrUnknownSend
	case p.State != Failed:
		c.mu.Unlock()
		return ErrNotFailed
	case p.Kind == KindUpload && c.uploading, p.Kind == KindMessage && c.sending:
		c.mu.Unlock()
		return ErrBusy
	}
	if p.Kind == KindUpload {
		c.uploading = true
	} else {
		c.sending = true
	}
	p = c.track(ctx, p)
	c.mu.Unlock()

	var err error
	if p.Kind == KindUpload {
		_, err = c.uploadTracked(ctx, p)
	} else {
		_, err = c.sendTracked(ctx, p)
	}
	return err
}

// Discard forgets a failed send.
func (c *Coordinator) Discard(ctx context.Context, clientTempID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[clientTempID]
	if !ok {
		return ErrUnknownSend
	}
	if p.State != Failed {
		return ErrNotFailed
	}
	c.settleLocked(ctx, clientTempID, Failed)
	return nil
}

// ConfirmEcho settles the pending send matching a message received from the
// feed. Without a client token the match falls back to project, author and
// body. It reports whether a pending send was settled.
func (c *Coordinator) ConfirmEcho(msg chat.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := msg.ClientToken
	if id != "" {
		if _, ok := c.pending[id]; !ok {
			return false
		}
	} else {
		if msg.AuthorUserID != c.cfg.LocalUserID {
			return false
		}
		for _, p := range c.pendingLocked() {
			if p.Kind == KindMessage && p.ProjectID == msg.ProjectID && p.Body == msg.Body {
				id = p.ClientTempID
				break
			}
		}
		if id == "" {
			return false
		}
	}
	c.logger.Debug("send confirmed by echo", zap.String("client_temp_id", id), zap.Int64("msg_id", msg.ID))
	c.settleLocked(context.Background(), id, Confirmed)
	return true
}

func (c *Coordinator) track(ctx context.Context, p PendingSend) PendingSend {
	now := c.cfg.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.State = InFlight
	p.Error = ""
	c.pending[p.ClientTempID] = p
	c.persist(ctx, p)
	c.notifyLocked()
	return p
}

func (c *Coordinator) failLocked(ctx context.Context, p PendingSend, err error) {
	if _, ok := c.pending[p.ClientTempID]; !ok {
		// Already confirmed by an echo that raced the failure.
		return
	}
	p.State = Failed
	p.Error = err.Error()
	p.UpdatedAt = c.cfg.Now()
	c.pending[p.ClientTempID] = p
	c.persist(ctx, p)
	c.notifyLocked()
}

// settleLocked drops a pending send that reached a terminal state.
func (c *Coordinator) settleLocked(ctx context.Context, id string, final State) {
	if _, ok := c.pending[id]; !ok {
		return
	}
	delete(c.pending, id)
	c.logger.Debug("pending send settled", zap.String("client_temp_id", id), zap.String("state", string(final)))
	if c.store != nil {
		if err := c.store.DeletePending(context.WithoutCancel(ctx), id); err != nil {
			c.logger.Error("failed to delete pending send", zap.String("client_temp_id", id), zap.Error(err))
		}
	}
	c.notifyLocked()
}

func (c *Coordinator) persist(ctx context.Context, p PendingSend) {
	if c.store == nil {
		return
	}
	if err := c.store.SavePending(context.WithoutCancel(ctx), p); err != nil {
		c.logger.Error("failed to persist pending send", zap.String("client_temp_id", p.ClientTempID), zap.Error(err))
	}
}

func (c *Coordinator) notifyLocked() {
	if c.bus != nil {
		c.bus.Emit(bus.KindPendingChanged, c.pendingLocked())
	}
}
