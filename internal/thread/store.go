package thread

import (
	"slices"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

// DefaultMatchWindow bounds the content heuristic used to pair a provisional
// entry with a server echo that carries no client token.
const DefaultMatchWindow = 30 * time.Second

// Store holds the messages of the open thread, newest first, unique by key.
// It is not safe for concurrent use; the owning view serializes access.
type Store struct {
	items       []chat.Message
	index       map[string]struct{}
	total       int
	MatchWindow time.Duration
}

// NewStore creates an empty message store.
func NewStore() *Store {
	return &Store{
		index:       make(map[string]struct{}),
		MatchWindow: DefaultMatchWindow,
	}
}

// Reset clears all state. Called on every thread switch.
func (s *Store) Reset() {
	s.items = nil
	s.index = make(map[string]struct{})
	s.total = 0
}

// LoadInitial replaces the list with a freshly fetched first page.
func (s *Store) LoadInitial(items []chat.Message, meta chat.PageMeta) {
	s.Reset()
	for _, m := range items {
		s.appendIfAbsent(m)
	}
	s.total = max(meta.Total, len(s.items))
}

// AppendOlder merges a backward page at the tail. Items already present are
// skipped, so merging the same page twice is a no-op.
func (s *Store) AppendOlder(items []chat.Message) int {
	added := 0
	for _, m := range items {
		if s.appendIfAbsent(m) {
			added++
		}
	}
	s.total = max(s.total, len(s.items))
	return added
}

// Merge folds a re-fetched first page into the list. Rows already present
// keep their relative order; missing rows are slotted in ahead of the first
// confirmed row with a lower id.
func (s *Store) Merge(items []chat.Message, meta chat.PageMeta) int {
	added := 0
	for _, m := range items {
		key := m.Key()
		if _, ok := s.index[key]; ok {
			continue
		}
		s.index[key] = struct{}{}
		pos := len(s.items)
		for i := range s.items {
			if !s.items[i].Provisional() && s.items[i].ID < m.ID {
				pos = i
				break
			}
		}
		s.items = slices.Insert(s.items, pos, m)
		added++
	}
	s.total = max(meta.Total, len(s.items))
	return added
}

// Prepend inserts a new message at the head unless its key is present. A new
// row also grows the thread total, keeping the backward cursor honest.
func (s *Store) Prepend(m chat.Message) bool {
	key := m.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = struct{}{}
	s.items = append([]chat.Message{m}, s.items...)
	s.total++
	return true
}

// Reconcile applies a confirmed server message. A provisional entry with the
// same client token, or failing that the same author and body within
// MatchWindow, is replaced in place; otherwise this behaves like Prepend.
func (s *Store) Reconcile(m chat.Message) bool {
	if _, ok := s.index[m.Key()]; ok {
		return false
	}
	if i := s.provisionalFor(m); i >= 0 {
		delete(s.index, s.items[i].Key())
		s.items[i] = m
		s.index[m.Key()] = struct{}{}
		return true
	}
	return s.Prepend(m)
}

// Remove drops the entry with the given key.
func (s *Store) Remove(key string) bool {
	if _, ok := s.index[key]; !ok {
		return false
	}
	delete(s.index, key)
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.total > 0 {
		s.total--
	}
	return true
}

// RemoveID drops a confirmed message after its deletion returned.
func (s *Store) RemoveID(id int64) bool {
	return s.Remove(chat.KeyForID(id))
}

// Has reports whether a key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Items returns a copy of the list, newest first.
func (s *Store) Items() []chat.Message {
	out := make([]chat.Message, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of loaded messages.
func (s *Store) Len() int { return len(s.items) }

// Total returns the server-reported thread size.
func (s *Store) Total() int { return s.total }

// Oldest returns the id of the oldest confirmed message, or 0.
func (s *Store) Oldest() int64 {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].ID != 0 {
			return s.items[i].ID
		}
	}
	return 0
}

func (s *Store) appendIfAbsent(m chat.Message) bool {
	key := m.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = struct{}{}
	s.items = append(s.items, m)
	return true
}

func (s *Store) provisionalFor(m chat.Message) int {
	if m.ClientToken != "" {
		key := "tmp:" + m.ClientToken
		if _, ok := s.index[key]; !ok {
			return -1
		}
		for i := range s.items {
			if s.items[i].Provisional() && s.items[i].ClientToken == m.ClientToken {
				return i
			}
		}
		return -1
	}
	for i := range s.items {
		p := &s.items[i]
		if !p.Provisional() || p.AuthorUserID != m.AuthorUserID || p.Body != m.Body {
			continue
		}
		d := m.AddedAt.Sub(p.AddedAt)
		if d < 0 {
			d = -d
		}
		if d <= s.MatchWindow {
			return i
		}
	}
	return -1
}
