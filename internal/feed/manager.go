// Package feed owns the single live-feed websocket connection.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"github.com/samiuddin-code/datportal-sub005/internal/status"
	"go.uber.org/zap"
)

// ErrAlreadySubscribed is returned when a second handler subscribes.
var ErrAlreadySubscribed = errors.New("feed: already subscribed")

// Config configures a Manager. Zero values fall back to defaults.
type Config struct {
	URL   string
	Token string
	// Event is the inbound event name carrying messages.
	Event string

	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int // zero retries forever
	PingInterval         time.Duration
	ReadLimit            int64
}

func (c *Config) defaults() {
	if c.Event == "" {
		c.Event = "chat"
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
}

// Manager keeps one websocket open while connected and hands each decoded
// message, in receipt order, to the single subscriber.
type Manager struct {
	cfg     Config
	state   *status.Machine
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	handler func(chat.Message)
	subGen  int
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a disconnected manager.
func NewManager(cfg Config, state *status.Machine, m *metrics.Metrics, logger *zap.Logger) *Manager {
	cfg.defaults()
	if state == nil {
		state = status.NewMachine(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, state: state, metrics: m, logger: logger}
}

// Subscribe registers the message handler. Only one handler may be attached
// at a time; the returned function detaches it.
func (m *Manager) Subscribe(handler func(chat.Message)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler != nil {
		return nil, ErrAlreadySubscribed
	}
	m.handler = handler
	m.subGen++
	gen := m.subGen

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.subGen == gen {
				m.handler = nil
			}
			m.mu.Unlock()
		})
	}, nil
}

// Subscribed reports whether a handler is attached.
func (m *Manager) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

// State returns the connection state.
func (m *Manager) State() status.State {
	return m.state.Current()
}

// Connect starts the connection loop in the background. It returns at once;
// progress is visible through State. Calling Connect while running is a
// no-op.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.URL == "" {
		return errors.New("feed: no url configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
	return nil
}

// Disconnect stops the loop, closes the socket and waits for the loop to
// exit. Safe to call when not connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.transition(status.Closed)
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		m.transition(status.Connecting)
		conn, err := m.dial(ctx)
		if err == nil {
			m.transition(status.Connected)
			connectedAt := time.Now()
			err = m.serve(ctx, conn)
			if time.Since(connectedAt) > time.Minute {
				attempt = 0
			}
		}
		if ctx.Err() != nil {
			return
		}

		m.transition(status.Reconnecting)
		if m.cfg.MaxReconnectAttempts > 0 && attempt >= m.cfg.MaxReconnectAttempts {
			m.logger.Error("feed giving up", zap.Int("attempts", attempt), zap.Error(err))
			m.transition(status.Disconnected)
			return
		}
		delay := m.backoff(attempt)
		attempt++
		m.metrics.FeedReconnect()
		m.logger.Warn("feed connection lost",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if m.cfg.Token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+m.cfg.Token)
	}
	conn, _, err := websocket.Dial(dialCtx, m.cfg.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", m.cfg.URL, err)
	}
	conn.SetReadLimit(m.cfg.ReadLimit)
	return conn, nil
}

// serve reads frames until the connection fails or ctx ends. Handlers run on
// the read goroutine so delivery order is receipt order.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.CloseNow()

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go m.heartbeat(pingCtx, conn)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		if reply := controlReply(data); reply != nil {
			if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
				return fmt.Errorf("engine.io reply: %w", err)
			}
			continue
		}
		msg, ok, err := decodeFrame(data, m.cfg.Event)
		if err != nil {
			m.metrics.PushEvent(metrics.PushDecodeErr)
			m.logger.Warn("dropping undecodable feed frame", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		m.mu.Lock()
		h := m.handler
		m.mu.Unlock()
		if h != nil {
			h(msg)
		}
	}
}

func (m *Manager) heartbeat(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(m.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil && ctx.Err() == nil {
				m.logger.Warn("feed ping failed", zap.Error(err))
				conn.CloseNow()
				return
			}
		}
	}
}

func (m *Manager) backoff(attempt int) time.Duration {
	base := float64(m.cfg.ReconnectBaseDelay)
	jitter := rand.Float64() * base * 0.5
	d := math.Min(base*math.Pow(2, float64(attempt))+jitter, float64(m.cfg.ReconnectMaxDelay))
	return time.Duration(d)
}

func (m *Manager) transition(to status.State) {
	if err := m.state.Transition(to); err != nil {
		m.logger.Debug("feed state transition rejected", zap.Error(err))
	}
}
