// Package permission answers whether the signed-in user may perform a
// conversation action. Enforcement stays with the backend; this only avoids
// requests that are known to be refused.
package permission

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

// Permission names as carried in the access token.
const (
	AddConversation    = "conversation:add"
	DeleteConversation = "conversation:delete"
	UploadAttachment   = "conversation:upload"
)

// ErrDenied is wrapped by every refusal from Gate.Check.
var ErrDenied = errors.New("permission denied")

// Gate is a boolean permission map. Missing keys are denied.
type Gate struct {
	mu    sync.RWMutex
	perms map[string]bool
}

// New builds a gate from token permissions with overrides applied on top.
func New(fromToken, overrides map[string]bool) *Gate {
	perms := make(map[string]bool, len(fromToken)+len(overrides))
	maps.Copy(perms, fromToken)
	maps.Copy(perms, overrides)
	return &Gate{perms: perms}
}

// Allow reports whether name is granted.
func (g *Gate) Allow(name string) bool {
	if g == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.perms[name]
}

// Check returns an error wrapping ErrDenied when name is not granted.
func (g *Gate) Check(name string) error {
	if g.Allow(name) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDenied, name)
}

// Replace swaps the whole map, e.g. after a token refresh.
func (g *Gate) Replace(perms map[string]bool) {
	g.mu.Lock()
	g.perms = maps.Clone(perms)
	g.mu.Unlock()
}

// Snapshot returns a copy of the map.
func (g *Gate) Snapshot() map[string]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return maps.Clone(g.perms)
}
