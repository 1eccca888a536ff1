package model

import (
	"sync"
	"time"
)

// Flash levels, matching the daemon's notify.flash levels.
const (
	FlashInfo  = "info"
	FlashWarn  = "warn"
	FlashError = "error"
)

// FlashMessage is one transient notification.
type FlashMessage struct {
	Text    string
	Level   string
	Expires time.Time
}

// Flash holds the latest notification until it expires.
type Flash struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// Set stores a message at level. Errors stay up longer than info.
func (f *Flash) Set(level, msg string) {
	d := 5 * time.Second
	switch level {
	case FlashWarn:
		d = 8 * time.Second
	case FlashError:
		d = 10 * time.Second
	default:
		level = FlashInfo
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = FlashMessage{Text: msg, Level: level, Expires: f.clock().Add(d)}
}

// Get returns the current message, or nil once it has expired.
func (f *Flash) Get() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.clock().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

func (f *Flash) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}
