package outbox

import (
	"context"
	"time"
)

// State is the lifecycle of a pending send.
type State string

const (
	InFlight  State = "IN_FLIGHT"
	Failed    State = "FAILED"
	Confirmed State = "CONFIRMED"
)

// Kind tells a message send from an attachment upload.
type Kind string

const (
	KindMessage Kind = "message"
	KindUpload  Kind = "upload"
)

// PendingSend is a local send awaiting confirmation, or a failed one kept for
// retry.
type PendingSend struct {
	ClientTempID string    `json:"clientTempId"`
	ProjectID    int64     `json:"projectId"`
	Kind         Kind      `json:"kind"`
	Body         string    `json:"body,omitempty"`
	Files        []string  `json:"files,omitempty"`
	State        State     `json:"state"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PendingStore persists pending sends across daemon restarts.
type PendingStore interface {
	SavePending(ctx context.Context, p PendingSend) error
	DeletePending(ctx context.Context, clientTempID string) error
	ListPending(ctx context.Context) ([]PendingSend, error)
}
