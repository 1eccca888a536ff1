package bus

import "time"

// Event kinds published by the console. Subscribers filter by prefix, so
// "notify." receives both flash and sound.
const (
	KindSidebarChanged    = "sidebar.changed"
	KindThreadChanged     = "thread.changed"
	KindPendingChanged    = "outbox.changed"
	KindFlash             = "notify.flash"
	KindSound             = "notify.sound"
	KindFeedStatusChanged = "feed.status_changed"
)

// Event is one notification fanned out to watchers.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Flash is the payload of KindFlash events.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Flash levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)
