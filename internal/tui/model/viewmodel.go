// Package model mirrors the daemon's console state for the TUI. It is fed by
// RPC responses and the Watch stream and never talks to the backend itself.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
)

// Change reports which parts of the state an update touched.
type Change uint8

const (
	ChangeProjects Change = 1 << iota
	ChangeThread
	ChangePending
	ChangeStatus
	ChangeFlash
	ChangeSound
)

// Has reports whether c includes any bit of o.
func (c Change) Has(o Change) bool { return c&o != 0 }

// ViewModel caches daemon state between redraws.
type ViewModel struct {
	mu sync.RWMutex

	client      rpc.ConsoleClient
	status      *rpc.StatusResponse
	projects    []chat.Summary
	totalUnread int
	thread      rpc.Thread
	draft       string
	pending     []rpc.PendingSend

	Flash Flash
}

// NewViewModel creates a view model backed by the daemon client.
func NewViewModel(c rpc.ConsoleClient) *ViewModel {
	return &ViewModel{client: c}
}

// Refresh pulls everything the screen shows.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	if err := vm.LoadStatus(ctx); err != nil {
		return err
	}
	projects, err := vm.client.ListProjects(ctx, &rpc.ListProjectsRequest{})
	if err != nil {
		return err
	}
	th, err := vm.client.GetThread(ctx, &rpc.GetThreadRequest{})
	if err != nil {
		return err
	}
	pending, err := vm.client.ListPending(ctx, &rpc.ListPendingRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.setProjectsLocked(projects.Projects, projects.TotalUnread)
	vm.thread, vm.draft = th.Thread, th.Draft
	vm.pending = pending.Pending
	vm.mu.Unlock()
	return nil
}

// LoadStatus fetches daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.client.Status(ctx, &rpc.StatusRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadMoreProjects appends the next sidebar page.
func (vm *ViewModel) LoadMoreProjects(ctx context.Context) error {
	resp, err := vm.client.LoadMoreProjects(ctx, &rpc.LoadMoreProjectsRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.setProjectsLocked(resp.Projects, resp.TotalUnread)
	vm.mu.Unlock()
	return nil
}

// Open makes projectID the open thread.
func (vm *ViewModel) Open(ctx context.Context, projectID int64) error {
	return vm.threadCall(func() (*rpc.ThreadResponse, error) {
		return vm.client.Open(ctx, &rpc.OpenRequest{ProjectID: projectID})
	})
}

// LoadOlder requests the next backward page of the open thread.
func (vm *ViewModel) LoadOlder(ctx context.Context) error {
	return vm.threadCall(func() (*rpc.ThreadResponse, error) {
		return vm.client.LoadOlder(ctx, &rpc.LoadOlderRequest{})
	})
}

// Reload refetches the newest page of the open thread.
func (vm *ViewModel) Reload(ctx context.Context) error {
	return vm.threadCall(func() (*rpc.ThreadResponse, error) {
		return vm.client.Reload(ctx, &rpc.ReloadRequest{})
	})
}

// Send posts body to the open thread.
func (vm *ViewModel) Send(ctx context.Context, body string) error {
	_, err := vm.client.Send(ctx, &rpc.SendRequest{Body: body})
	return err
}

// Upload attaches files to the open thread.
func (vm *ViewModel) Upload(ctx context.Context, paths []string) (int, error) {
	resp, err := vm.client.Upload(ctx, &rpc.UploadRequest{Paths: paths})
	if err != nil {
		return 0, err
	}
	return len(resp.Media), nil
}

func (vm *ViewModel) Delete(ctx context.Context, messageID int64) error {
	_, err := vm.client.Delete(ctx, &rpc.DeleteRequest{MessageID: messageID})
	return err
}

func (vm *ViewModel) Retry(ctx context.Context, clientTempID string) error {
	_, err := vm.client.Retry(ctx, &rpc.RetryRequest{ClientTempID: clientTempID})
	return err
}

func (vm *ViewModel) Discard(ctx context.Context, clientTempID string) error {
	_, err := vm.client.Discard(ctx, &rpc.DiscardRequest{ClientTempID: clientTempID})
	return err
}

// Apply folds one Watch event into the cached state.
func (vm *ViewModel) Apply(evt *rpc.Event) (Change, error) {
	switch evt.Kind {
	case rpc.EventSidebarChanged:
		var list []chat.Summary
		if err := evt.Decode(&list); err != nil {
			return 0, fmt.Errorf("decode %s: %w", evt.Kind, err)
		}
		vm.mu.Lock()
		vm.setProjectsLocked(list, -1)
		vm.mu.Unlock()
		return ChangeProjects, nil

	case rpc.EventThreadChanged:
		var th rpc.Thread
		if err := evt.Decode(&th); err != nil {
			return 0, fmt.Errorf("decode %s: %w", evt.Kind, err)
		}
		vm.mu.Lock()
		vm.thread = th
		vm.mu.Unlock()
		return ChangeThread, nil

	case rpc.EventPendingChanged:
		var list []rpc.PendingSend
		if err := evt.Decode(&list); err != nil {
			return 0, fmt.Errorf("decode %s: %w", evt.Kind, err)
		}
		vm.mu.Lock()
		vm.pending = list
		vm.mu.Unlock()
		return ChangePending, nil

	case rpc.EventFeedStatusChanged:
		var sc rpc.StatusChange
		if err := evt.Decode(&sc); err != nil {
			return 0, fmt.Errorf("decode %s: %w", evt.Kind, err)
		}
		vm.mu.Lock()
		if vm.status == nil {
			vm.status = &rpc.StatusResponse{}
		}
		st := *vm.status
		st.FeedState = sc.To
		vm.status = &st
		vm.mu.Unlock()
		return ChangeStatus, nil

	case rpc.EventFlash:
		var f rpc.Flash
		if err := evt.Decode(&f); err != nil {
			return 0, fmt.Errorf("decode %s: %w", evt.Kind, err)
		}
		vm.Flash.Set(f.Level, f.Message)
		return ChangeFlash, nil

	case rpc.EventSound:
		return ChangeSound, nil
	}
	return 0, nil
}

// Projects returns the sidebar rows.
func (vm *ViewModel) Projects() []chat.Summary {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.projects
}

func (vm *ViewModel) TotalUnread() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.totalUnread
}

// Thread returns the open thread.
func (vm *ViewModel) Thread() rpc.Thread {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.thread
}

// Draft is the composer text the daemon kept after a failed send.
func (vm *ViewModel) Draft() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.draft
}

// Pending returns sends awaiting confirmation or retry.
func (vm *ViewModel) Pending() []rpc.PendingSend {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.pending
}

// Status returns the last known daemon status, or nil.
func (vm *ViewModel) Status() *rpc.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// ProjectTitle returns the sidebar title of id, or its number.
func (vm *ViewModel) ProjectTitle(id int64) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, p := range vm.projects {
		if p.ProjectID == id && p.Title != "" {
			return p.Title
		}
	}
	return fmt.Sprintf("Project %d", id)
}

func (vm *ViewModel) threadCall(call func() (*rpc.ThreadResponse, error)) error {
	resp, err := call()
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.thread, vm.draft = resp.Thread, resp.Draft
	vm.mu.Unlock()
	return nil
}

// setProjectsLocked stores the sidebar. A negative total is recomputed.
func (vm *ViewModel) setProjectsLocked(list []chat.Summary, total int) {
	if total < 0 {
		total = 0
		for _, p := range list {
			total += p.UnreadCount
		}
	}
	vm.projects, vm.totalUnread = list, total
}
