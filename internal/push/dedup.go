package push

import (
	"sync"

	"github.com/elliotchance/orderedmap/v3"
)

// DefaultRetention is how many processed keys Dedup remembers.
const DefaultRetention = 512

// Dedup remembers the most recent processed message keys. Once full, the
// oldest key is evicted first.
type Dedup struct {
	mu        sync.Mutex
	retention int
	seen      *orderedmap.OrderedMap[string, struct{}]
}

// NewDedup creates a set keeping up to retention keys.
func NewDedup(retention int) *Dedup {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Dedup{
		retention: retention,
		seen:      orderedmap.NewOrderedMap[string, struct{}](),
	}
}

// Add records key and reports whether it was new.
func (d *Dedup) Add(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen.Get(key); ok {
		return false
	}
	d.seen.Set(key, struct{}{})
	for d.seen.Len() > d.retention {
		d.seen.Delete(d.seen.Front().Key)
	}
	return true
}

// Seen reports whether key is currently retained.
func (d *Dedup) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen.Get(key)
	return ok
}

// Len returns the number of retained keys.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen.Len()
}
