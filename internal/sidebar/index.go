// Package sidebar keeps the per-project conversation summaries shown next to
// the open thread.
package sidebar

import (
	"slices"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

// Index is the ordered project list, most recently active first. It is not
// safe for concurrent use; the conversations view serializes access.
type Index struct {
	items []chat.Summary
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Load replaces the list with the first page of the project listing.
func (x *Index) Load(summaries []chat.Summary) {
	x.items = x.items[:0]
	x.Append(summaries)
}

// Append adds a further page of summaries, skipping projects already listed.
// It returns how many rows were added.
func (x *Index) Append(summaries []chat.Summary) int {
	added := 0
	for _, s := range summaries {
		if x.find(s.ProjectID) >= 0 {
			continue
		}
		s.UnreadCount = max(s.UnreadCount, 0)
		x.items = append(x.items, s)
		added++
	}
	return added
}

// ApplyPushEvent moves the summary for msg's project to the top, creating it
// from the embedded project payload when the project is not listed yet, and
// updates its preview and unread count.
func (x *Index) ApplyPushEvent(msg chat.Message, openProjectID, localUserID int64) chat.Summary {
	var s chat.Summary
	if i := x.find(msg.ProjectID); i >= 0 {
		s = x.items[i]
		x.items = slices.Delete(x.items, i, i+1)
	} else {
		s = synthesize(msg)
	}

	s.LastMessage = chat.PreviewOf(&msg)

	switch {
	case msg.ProjectID == openProjectID:
		s.UnreadCount = 0
	case msg.AuthorUserID != localUserID:
		s.UnreadCount++
	}

	x.items = slices.Insert(x.items, 0, s)
	return s
}

// MarkOpened clears the unread count of projectID. It reports whether the
// project is listed.
func (x *Index) MarkOpened(projectID int64) bool {
	i := x.find(projectID)
	if i < 0 {
		return false
	}
	x.items[i].UnreadCount = 0
	return true
}

// Get returns the summary for projectID.
func (x *Index) Get(projectID int64) (chat.Summary, bool) {
	i := x.find(projectID)
	if i < 0 {
		return chat.Summary{}, false
	}
	return x.items[i], true
}

// All returns a copy of the list in display order.
func (x *Index) All() []chat.Summary {
	return slices.Clone(x.items)
}

// Len returns the number of listed projects.
func (x *Index) Len() int { return len(x.items) }

// Members returns the member list of projectID, or nil.
func (x *Index) Members(projectID int64) []chat.Member {
	i := x.find(projectID)
	if i < 0 {
		return nil
	}
	return slices.Clone(x.items[i].Members)
}

// TotalUnread sums unread counts over all listed projects.
func (x *Index) TotalUnread() int {
	n := 0
	for _, s := range x.items {
		n += s.UnreadCount
	}
	return n
}

func (x *Index) find(projectID int64) int {
	return slices.IndexFunc(x.items, func(s chat.Summary) bool {
		return s.ProjectID == projectID
	})
}

func synthesize(msg chat.Message) chat.Summary {
	s := chat.Summary{
		ProjectID: msg.ProjectID,
		Members:   slices.Clone(msg.Members),
	}
	if msg.Project != nil {
		s.Title = msg.Project.Title
		s.ReferenceNumber = msg.Project.ReferenceNumber
	}
	return s
}
