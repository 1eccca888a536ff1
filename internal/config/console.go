package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override console.toml.
const (
	EnvToken   = "DATPORTAL_TOKEN"
	EnvBaseURL = "DATPORTAL_BASE_URL"
	EnvFeedURL = "DATPORTAL_FEED_URL"
)

// Duration is a time.Duration written as a string such as "8s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Console is a profile's console.toml.
type Console struct {
	Backend     BackendConfig   `toml:"backend"`
	Feed        FeedConfig      `toml:"feed"`
	Thread      ThreadConfig    `toml:"thread"`
	Sidebar     SidebarConfig   `toml:"sidebar"`
	Outbox      OutboxConfig    `toml:"outbox"`
	Metrics     MetricsConfig   `toml:"metrics"`
	Permissions map[string]bool `toml:"permissions"`
}

type BackendConfig struct {
	BaseURL   string   `toml:"base_url"`
	Token     string   `toml:"token"`
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
}

type FeedConfig struct {
	// URL defaults to the backend URL with a ws scheme and /socket path.
	URL           string   `toml:"url"`
	Event         string   `toml:"event"`
	ReconnectBase Duration `toml:"reconnect_base"`
	ReconnectMax  Duration `toml:"reconnect_max"`
	MaxAttempts   int      `toml:"max_attempts"`
	PingInterval  Duration `toml:"ping_interval"`
}

type ThreadConfig struct {
	PageSize       int      `toml:"page_size"`
	QuietPeriod    Duration `toml:"quiet_period"`
	MatchWindow    Duration `toml:"match_window"`
	DedupRetention int      `toml:"dedup_retention"`
}

type SidebarConfig struct {
	PageSize int `toml:"page_size"`
}

type OutboxConfig struct {
	// Policy is "deferred" or "optimistic".
	Policy   string `toml:"policy"`
	MaxFiles int    `toml:"max_files"`
}

type MetricsConfig struct {
	// Listen is a host:port for /metrics; empty disables the endpoint.
	Listen string `toml:"listen"`
}

// DefaultConsole returns the settings used for anything console.toml omits.
func DefaultConsole() Console {
	return Console{
		Backend: BackendConfig{
			Timeout:   Duration{30 * time.Second},
			RateLimit: 10,
			Burst:     5,
		},
		Feed: FeedConfig{
			Event:         "chat",
			ReconnectBase: Duration{time.Second},
			ReconnectMax:  Duration{30 * time.Second},
			PingInterval:  Duration{25 * time.Second},
		},
		Thread: ThreadConfig{
			PageSize:       10,
			QuietPeriod:    Duration{8 * time.Second},
			MatchWindow:    Duration{30 * time.Second},
			DedupRetention: 512,
		},
		Sidebar: SidebarConfig{PageSize: 20},
		Outbox:  OutboxConfig{Policy: "deferred", MaxFiles: 10},
	}
}

// LoadConsole reads console.toml at path over the defaults, then applies the
// profile .env at envPath and finally the process environment. Missing files
// are not errors.
func LoadConsole(path, envPath string) (*Console, error) {
	cfg := DefaultConsole()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if envPath != "" {
		env, err := godotenv.Read(envPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envPath, err)
		}
		cfg.applyEnv(env)
	}
	cfg.applyEnv(map[string]string{
		EnvToken:   os.Getenv(EnvToken),
		EnvBaseURL: os.Getenv(EnvBaseURL),
		EnvFeedURL: os.Getenv(EnvFeedURL),
	})

	if cfg.Feed.URL == "" && cfg.Backend.BaseURL != "" {
		u, err := FeedURLFor(cfg.Backend.BaseURL)
		if err != nil {
			return nil, err
		}
		cfg.Feed.URL = u
	}
	return &cfg, nil
}

func (c *Console) applyEnv(env map[string]string) {
	if v := env[EnvToken]; v != "" {
		c.Backend.Token = v
	}
	if v := env[EnvBaseURL]; v != "" {
		c.Backend.BaseURL = v
	}
	if v := env[EnvFeedURL]; v != "" {
		c.Feed.URL = v
	}
}

// Validate reports settings the daemon cannot run without.
func (c *Console) Validate() error {
	var errs []error
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is not set"))
	}
	if c.Backend.Token == "" {
		errs = append(errs, fmt.Errorf("backend.token is not set (or export %s)", EnvToken))
	}
	switch c.Outbox.Policy {
	case "", "deferred", "optimistic":
	default:
		errs = append(errs, fmt.Errorf("outbox.policy %q is not deferred or optimistic", c.Outbox.Policy))
	}
	if c.Thread.PageSize <= 0 {
		errs = append(errs, errors.New("thread.page_size must be positive"))
	}
	return errors.Join(errs...)
}

// FeedURLFor derives the websocket URL from the REST base URL.
func FeedURLFor(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket"
	return u.String(), nil
}
