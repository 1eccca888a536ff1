package rpc

import (
	"encoding/json"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

// Event kinds carried by Watch, mirrored from the daemon bus.
const (
	EventSidebarChanged    = "sidebar.changed"
	EventThreadChanged     = "thread.changed"
	EventPendingChanged    = "outbox.changed"
	EventFlash             = "notify.flash"
	EventSound             = "notify.sound"
	EventFeedStatusChanged = "feed.status_changed"
)

type StatusRequest struct{}

type StatusResponse struct {
	Profile       string          `json:"profile"`
	FeedState     string          `json:"feedState"`
	FeedSince     time.Time       `json:"feedSince"`
	UptimeMs      int64           `json:"uptimeMs"`
	BaseURL       string          `json:"baseUrl"`
	UserID        int64           `json:"userId"`
	UserName      string          `json:"userName,omitempty"`
	Projects      int             `json:"projects"`
	TotalUnread   int             `json:"totalUnread"`
	OpenProjectID int64           `json:"openProjectId"`
	Pending       int             `json:"pending"`
	Visible       bool            `json:"visible"`
	Viewers       int             `json:"viewers"`
	Permissions   map[string]bool `json:"permissions,omitempty"`
}

type ListProjectsRequest struct{}

type LoadMoreProjectsRequest struct{}

type ListProjectsResponse struct {
	Projects    []chat.Summary `json:"projects"`
	TotalUnread int            `json:"totalUnread"`
}

type OpenRequest struct {
	ProjectID int64 `json:"projectId"`
}

type LoadOlderRequest struct{}

type ReloadRequest struct{}

type GetThreadRequest struct{}

// Thread is the open conversation as drawn by clients.
type Thread struct {
	ProjectID int64          `json:"projectId"`
	Items     []chat.Message `json:"items"`
	Total     int            `json:"total"`
	Phase     string         `json:"phase"`
	HasMore   bool           `json:"hasMore"`
	Members   []chat.Member  `json:"members,omitempty"`
}

type ThreadResponse struct {
	Thread Thread `json:"thread"`
	Draft  string `json:"draft,omitempty"`
}

type SendRequest struct {
	// ProjectID zero targets the open thread.
	ProjectID int64  `json:"projectId"`
	Body      string `json:"body"`
}

type SendResponse struct {
	Message *chat.Message `json:"message,omitempty"`
}

type UploadRequest struct {
	ProjectID int64 `json:"projectId"`
	// Paths are read by the daemon, so they must be absolute.
	Paths []string `json:"paths"`
}

type UploadResponse struct {
	Media []chat.MediaRef `json:"media"`
}

type DeleteRequest struct {
	MessageID int64 `json:"messageId"`
}

type RetryRequest struct {
	ClientTempID string `json:"clientTempId"`
}

type DiscardRequest struct {
	ClientTempID string `json:"clientTempId"`
}

// Ack answers requests that only succeed or fail.
type Ack struct {
	Message string `json:"message,omitempty"`
}

type ListPendingRequest struct{}

// PendingSend is a send awaiting confirmation or a failed one kept for retry.
type PendingSend struct {
	ClientTempID string    `json:"clientTempId"`
	ProjectID    int64     `json:"projectId"`
	Kind         string    `json:"kind"`
	Body         string    `json:"body,omitempty"`
	Files        []string  `json:"files,omitempty"`
	State        string    `json:"state"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ListPendingResponse struct {
	Pending []PendingSend `json:"pending"`
}

type SetVisibleRequest struct {
	Visible bool `json:"visible"`
}

type SetVisibleResponse struct {
	Reloaded bool `json:"reloaded"`
}

type WatchRequest struct {
	// Prefix filters event kinds; empty receives everything.
	Prefix string `json:"prefix,omitempty"`
	// Viewer marks the watcher as someone looking at the conversation. The
	// view counts as visible while at least one viewer is attached.
	Viewer bool `json:"viewer,omitempty"`
}

// Event is one bus event. Payload is the JSON of the event's payload type.
type Event struct {
	EventID          string          `json:"eventId"`
	Profile          string          `json:"profile"`
	OccurredAtUnixMs int64           `json:"occurredAtUnixMs"`
	Kind             string          `json:"kind"`
	PayloadVersion   int             `json:"payloadVersion"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Flash is the payload of notify.flash events.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// StatusChange is the payload of feed.status_changed events.
type StatusChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}
