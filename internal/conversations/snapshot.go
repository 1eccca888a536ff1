package conversations

import (
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/thread"
)

// Thread is the read model of the open thread, published with
// thread.changed events.
type Thread struct {
	ProjectID int64          `json:"projectId"`
	Items     []chat.Message `json:"items"`
	Total     int            `json:"total"`
	Phase     thread.Phase   `json:"phase"`
	HasMore   bool           `json:"hasMore"`
	Members   []chat.Member  `json:"members,omitempty"`
}

// Snapshot is everything a client needs to draw the screen.
type Snapshot struct {
	Projects    []chat.Summary       `json:"projects"`
	TotalUnread int                  `json:"totalUnread"`
	Thread      Thread               `json:"thread"`
	Pending     []outbox.PendingSend `json:"pending"`
	Draft       string               `json:"draft"`
	Sending     bool                 `json:"sending"`
	Uploading   bool                 `json:"uploading"`
	Interacted  bool                 `json:"interacted"`
	Visible     bool                 `json:"visible"`
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	snap := Snapshot{
		Projects:    v.index.All(),
		TotalUnread: v.index.TotalUnread(),
		Thread:      v.threadLocked(),
	}
	v.mu.Unlock()

	snap.Pending = v.outbox.Pending()
	snap.Draft = v.outbox.Draft()
	snap.Sending, snap.Uploading = v.outbox.Busy()
	snap.Interacted = v.router.Interacted()
	snap.Visible = v.router.Visible()
	return snap
}

// Projects returns the sidebar rows.
func (v *View) Projects() []chat.Summary {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index.All()
}

// CurrentThread returns the open thread.
func (v *View) CurrentThread() Thread {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.threadLocked()
}

// Pending returns the sends awaiting confirmation or retry.
func (v *View) Pending() []outbox.PendingSend {
	return v.outbox.Pending()
}

func (v *View) threadLocked() Thread {
	return Thread{
		ProjectID: v.openID,
		Items:     v.store.Items(),
		Total:     v.store.Total(),
		Phase:     v.pager.Phase(),
		HasMore:   v.pager.HasMore(),
		Members:   v.index.Members(v.openID),
	}
}
