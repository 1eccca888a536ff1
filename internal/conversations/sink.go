package conversations

import (
	"context"

	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/push"
	"go.uber.org/zap"
)

var (
	_ push.Sink     = (*View)(nil)
	_ outbox.Placer = (*View)(nil)
)

// WithState implements push.Sink.
func (v *View) WithState(fn func(push.State)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(push.State{Index: v.index, Thread: v.store, OpenProjectID: v.openID})
}

// Applied implements push.Sink. It settles the matching pending send and
// fans the change out.
func (v *View) Applied(msg chat.Message, threadChanged bool) {
	if !msg.Removed {
		v.outbox.ConfirmEcho(msg)
	}

	v.mu.Lock()
	if threadChanged && !v.pager.Loading() {
		v.pager.Settle()
	}
	projects := v.index.All()
	th := v.threadLocked()
	v.mu.Unlock()

	v.saveSidebar(context.Background(), projects)
	v.emit(bus.KindSidebarChanged, projects)
	if threadChanged {
		v.emit(bus.KindThreadChanged, th)
	}
}

// Sound implements push.Sink.
func (v *View) Sound(msg chat.Message) {
	v.emit(bus.KindSound, msg)
}

// RequestReload implements push.Sink. The reload runs in the background and is
// waited for by Unmount. Requests after Unmount are dropped.
func (v *View) RequestReload(reason string) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		v.logger.Debug("reload dropped, view not mounted", zap.String("reason", reason))
		return
	}
	v.bg.Add(1)
	v.mu.Unlock()
	go func() {
		defer v.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := v.reload(ctx); err != nil {
			v.logger.Warn("background reload failed", zap.String("reason", reason), zap.Error(err))
		}
	}()
}

// PlaceProvisional implements outbox.Placer.
func (v *View) PlaceProvisional(msg chat.Message) {
	v.withOpenThread(msg.ProjectID, func() bool { return v.store.Prepend(msg) })
}

// ResolveProvisional implements outbox.Placer.
func (v *View) ResolveProvisional(msg chat.Message) {
	v.withOpenThread(msg.ProjectID, func() bool { return v.store.Reconcile(msg) })
}

// DropProvisional implements outbox.Placer.
func (v *View) DropProvisional(projectID int64, clientToken string) {
	key := (&chat.Message{ClientToken: clientToken}).Key()
	v.withOpenThread(projectID, func() bool { return v.store.Remove(key) })
}

func (v *View) withOpenThread(projectID int64, fn func() bool) {
	v.mu.Lock()
	if projectID != v.openID || !fn() {
		v.mu.Unlock()
		return
	}
	th := v.threadLocked()
	v.mu.Unlock()
	v.emit(bus.KindThreadChanged, th)
}
