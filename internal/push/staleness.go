package push

import "time"

// DefaultQuietPeriod is the staleness threshold used when none is configured.
const DefaultQuietPeriod = 8 * time.Second

// Staleness decides when a visibility resume needs a full reload. The
// reference point is whichever is later: the last applied event or the moment
// the view was hidden. Not safe for concurrent use.
type Staleness struct {
	QuietPeriod time.Duration

	now         func() time.Time
	visible     bool
	lastApplied time.Time
	hiddenSince time.Time
}

// NewStaleness starts hidden as of now.
func NewStaleness(quiet time.Duration, now func() time.Time) *Staleness {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if now == nil {
		now = time.Now
	}
	return &Staleness{QuietPeriod: quiet, now: now, hiddenSince: now()}
}

// Applied records that an event was applied.
func (s *Staleness) Applied() {
	s.lastApplied = s.now()
}

// Visible reports the last known visibility.
func (s *Staleness) Visible() bool { return s.visible }

// LastApplied returns when an event was last applied, or the zero time.
func (s *Staleness) LastApplied() time.Time { return s.lastApplied }

// SetVisible records a visibility change. It returns true when the view
// becomes visible and nothing was applied for longer than the quiet period.
func (s *Staleness) SetVisible(visible bool) bool {
	if visible == s.visible {
		return false
	}
	s.visible = visible
	now := s.now()
	if !visible {
		s.hiddenSince = now
		return false
	}
	ref := s.hiddenSince
	if s.lastApplied.After(ref) {
		ref = s.lastApplied
	}
	return now.Sub(ref) > s.QuietPeriod
}
