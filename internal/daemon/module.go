package daemon

import (
	"context"
	"fmt"

	"github.com/samiuddin-code/datportal-sub005/internal/api"
	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/config"
	"github.com/samiuddin-code/datportal-sub005/internal/conversations"
	"github.com/samiuddin-code/datportal-sub005/internal/feed"
	"github.com/samiuddin-code/datportal-sub005/internal/lock"
	"github.com/samiuddin-code/datportal-sub005/internal/logging"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/permission"
	"github.com/samiuddin-code/datportal-sub005/internal/profile"
	"github.com/samiuddin-code/datportal-sub005/internal/status"
	"github.com/samiuddin-code/datportal-sub005/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string // optional override for testing; empty = use default
	// ConsolePath overrides the profile's console.toml.
	ConsolePath string
	LogLevel    string
	Foreground  bool
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConsole,
			provideBus,
			provideStateMachine,
			provideMetrics,
			provideLock,
			provideStore,
			provideIdentity,
			provideGate,
			provideBackend,
			provideFeed,
			provideView,
			provideConsoleService,
			NewServer,
			NewMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile, logging.Options{
		Level:  p.LogLevel,
		Stderr: p.Foreground,
	})
}

func provideConsole(p Params, logger *zap.Logger) (*config.Console, error) {
	path := p.ConsolePath
	if path == "" {
		path = profile.ConsolePath(p.Profile)
	}
	cfg, err := config.LoadConsole(path, profile.EnvPath(p.Profile))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("console config loaded",
		zap.String("path", path),
		zap.String("base_url", cfg.Backend.BaseURL),
		zap.String("feed_url", cfg.Feed.URL),
		zap.String("policy", cfg.Outbox.Policy),
	)
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so two daemons never share a cache.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(profile.CachePath(p.Profile))
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("console cache migrated", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("console cache up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", db.Path()))
	return db, nil
}

func provideIdentity(cfg *config.Console, logger *zap.Logger) (*backend.Identity, error) {
	id, err := backend.ParseIdentity(cfg.Backend.Token)
	if err != nil {
		return nil, err
	}
	logger.Info("signed in", zap.Int64("user_id", id.UserID), zap.String("name", id.Name))
	return id, nil
}

func provideGate(id *backend.Identity, cfg *config.Console) *permission.Gate {
	return permission.New(id.Permissions, cfg.Permissions)
}

func provideBackend(cfg *config.Console, logger *zap.Logger) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL,
		backend.WithToken(cfg.Backend.Token),
		backend.WithTimeout(cfg.Backend.Timeout.Duration),
		backend.WithRateLimit(rate.Limit(cfg.Backend.RateLimit), cfg.Backend.Burst),
		backend.WithLogger(logger.Named("backend")),
	)
}

func provideFeed(cfg *config.Console, m *status.Machine, mt *metrics.Metrics, logger *zap.Logger) *feed.Manager {
	return feed.NewManager(feed.Config{
		URL:                  cfg.Feed.URL,
		Token:                cfg.Backend.Token,
		Event:                cfg.Feed.Event,
		ReconnectBaseDelay:   cfg.Feed.ReconnectBase.Duration,
		ReconnectMaxDelay:    cfg.Feed.ReconnectMax.Duration,
		MaxReconnectAttempts: cfg.Feed.MaxAttempts,
		PingInterval:         cfg.Feed.PingInterval.Duration,
	}, m, mt, logger.Named("feed"))
}

type viewIn struct {
	fx.In

	Config   *config.Console
	Identity *backend.Identity
	Backend  *backend.Client
	Feed     *feed.Manager
	DB       *store.DB
	Gate     *permission.Gate
	Bus      *bus.Bus
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func provideView(in viewIn) *conversations.View {
	cfg := in.Config
	return conversations.New(conversations.Deps{
		Backend: in.Backend,
		Feed:    in.Feed,
		Cache:   in.DB,
		Pending: in.DB,
		Gate:    in.Gate,
		Bus:     in.Bus,
		Metrics: in.Metrics,
		Logger:  in.Logger.Named("conversations"),
	}, conversations.Config{
		LocalUserID:     in.Identity.UserID,
		PageSize:        cfg.Thread.PageSize,
		SidebarPageSize: cfg.Sidebar.PageSize,
		QuietPeriod:     cfg.Thread.QuietPeriod.Duration,
		MatchWindow:     cfg.Thread.MatchWindow.Duration,
		DedupRetention:  cfg.Thread.DedupRetention,
		Policy:          outbox.Policy(cfg.Outbox.Policy),
		MaxFiles:        cfg.Outbox.MaxFiles,
		RestoreLastOpen: true,
	})
}

func provideConsoleService(p Params, cfg *config.Console, view *conversations.View, m *status.Machine, id *backend.Identity, gate *permission.Gate, b *bus.Bus, mt *metrics.Metrics, logger *zap.Logger) *api.ConsoleService {
	return api.NewConsoleService(api.Deps{
		Profile:  p.Profile,
		BaseURL:  cfg.Backend.BaseURL,
		View:     view,
		Machine:  m,
		Identity: id,
		Gate:     gate,
		Bus:      b,
		Metrics:  mt,
		Logger:   logger.Named("api"),
	})
}

type lifecycleIn struct {
	fx.In

	Server  *Server
	Metrics *MetricsServer
	View    *conversations.View
	Lock    *lock.Lock
	DB      *store.DB
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, in lifecycleIn) {
	logger := in.Logger
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := in.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			in.Metrics.Start()

			// A failed first page is flashed to clients, not fatal.
			if err := in.View.Mount(ctx); err != nil {
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			in.View.Unmount()
			in.Server.Stop(ctx)
			in.Metrics.Stop(ctx)
			if err := in.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := in.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
