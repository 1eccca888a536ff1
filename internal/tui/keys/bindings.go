// Package keys dispatches key events to named actions, view bindings first.
package keys

import (
	"github.com/elliotchance/orderedmap/v3"
	"github.com/gdamore/tcell/v2"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type actions = orderedmap.OrderedMap[string, *Action]

// Registry holds keybindings by scope, in registration order so hints
// render the same way every time.
type Registry struct {
	global *actions
	views  map[string]*actions
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		global: orderedmap.NewOrderedMap[string, *Action](),
		views:  make(map[string]*actions),
	}
}

// AddGlobal registers a binding active in every view. Re-adding a name
// replaces the action in place.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global.Set(name, action)
}

// AddView registers a view-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	m, ok := r.views[view]
	if !ok {
		m = orderedmap.NewOrderedMap[string, *Action]()
		r.views[view] = m
	}
	m.Set(name, action)
}

// Hints returns visible descriptions, view bindings before global ones.
func (r *Registry) Hints(view string) []string {
	var hints []string
	each(r.views[view], func(a *Action) bool {
		if a.Visible {
			hints = append(hints, a.Description)
		}
		return false
	})
	each(r.global, func(a *Action) bool {
		if a.Visible {
			hints = append(hints, a.Description)
		}
		return false
	})
	return hints
}

// HandleEvent dispatches a key event to the first matching action of view,
// then of the global scope. Returns true if a handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	match := func(a *Action) bool {
		if !a.Matches(ev) {
			return false
		}
		a.Handler()
		return true
	}
	return each(r.views[view], match) || each(r.global, match)
}

// each visits m in order until fn returns true.
func each(m *actions, fn func(*Action) bool) bool {
	if m == nil {
		return false
	}
	for el := m.Front(); el != nil; el = el.Next() {
		if fn(el.Value) {
			return true
		}
	}
	return false
}
