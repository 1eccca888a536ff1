package thread

import (
	"fmt"
	"slices"
)

// Phase is the loading state of the open thread.
type Phase string

const (
	Idle            Phase = "IDLE"
	InitialLoading  Phase = "INITIAL_LOADING"
	BackwardLoading Phase = "BACKWARD_LOADING"
	Exhausted       Phase = "EXHAUSTED"
)

var validTransitions = map[Phase][]Phase{
	Idle:            {InitialLoading, BackwardLoading, Exhausted},
	InitialLoading:  {InitialLoading, Idle, Exhausted},
	BackwardLoading: {InitialLoading, Idle, Exhausted},
	Exhausted:       {InitialLoading, Idle},
}

// Paginator drives backward history loading for one Store.
type Paginator struct {
	store  *Store
	phase  Phase
	cursor int64
}

// NewPaginator creates an idle paginator over store.
func NewPaginator(store *Store) *Paginator {
	return &Paginator{store: store, phase: Idle}
}

// Phase returns the current phase.
func (p *Paginator) Phase() Phase { return p.phase }

// Cursor returns the last before-cursor handed out by RequestNext.
func (p *Paginator) Cursor() int64 { return p.cursor }

// HasMore reports whether older history exists on the server.
func (p *Paginator) HasMore() bool {
	return p.store.Len() < p.store.Total()
}

// Begin starts a new open episode.
func (p *Paginator) Begin() {
	p.cursor = 0
	_ = p.transition(InitialLoading)
}

// RequestNext moves to BackwardLoading and returns the id of the oldest
// loaded message as cursor. It is a no-op unless the paginator is idle and
// more history exists, which keeps repeated scroll triggers from stacking
// concurrent fetches.
func (p *Paginator) RequestNext() (before int64, ok bool) {
	if p.phase != Idle || !p.HasMore() {
		return 0, false
	}
	before = p.store.Oldest()
	if before == 0 {
		return 0, false
	}
	if err := p.transition(BackwardLoading); err != nil {
		return 0, false
	}
	p.cursor = before
	return before, true
}

// Settle is called once a page has been merged; it lands on Idle or
// Exhausted. From Idle or Exhausted it re-evaluates after out-of-band merges.
func (p *Paginator) Settle() {
	next := Idle
	if !p.HasMore() {
		next = Exhausted
	}
	if next == p.phase {
		return
	}
	_ = p.transition(next)
}

// Failed returns a loading phase to Idle so the user can retry. Items and
// cursor stay untouched.
func (p *Paginator) Failed() {
	if p.phase == InitialLoading || p.phase == BackwardLoading {
		_ = p.transition(Idle)
	}
}

// Loading reports whether a fetch is in flight.
func (p *Paginator) Loading() bool {
	return p.phase == InitialLoading || p.phase == BackwardLoading
}

func (p *Paginator) transition(to Phase) error {
	if !slices.Contains(validTransitions[p.phase], to) {
		return fmt.Errorf("invalid phase transition from %s to %s", p.phase, to)
	}
	p.phase = to
	return nil
}

// InitialLoaded settles the phase after the first page of an episode.
func (p *Paginator) InitialLoaded() { p.Settle() }

// PageLoaded settles the phase after a backward page was appended.
func (p *Paginator) PageLoaded() { p.Settle() }
