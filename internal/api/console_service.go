// Package api serves the console gRPC API on top of the conversations view.
package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/conversations"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/permission"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
	"github.com/samiuddin-code/datportal-sub005/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ConsoleService implements rpc.ConsoleServer.
type ConsoleService struct {
	rpc.UnimplementedConsoleServer

	profile   string
	baseURL   string
	startedAt time.Time
	view      *conversations.View
	machine   *status.Machine
	identity  *backend.Identity
	gate      *permission.Gate
	bus       *bus.Bus
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu      sync.Mutex
	viewers int
}

// Deps are the collaborators of a ConsoleService. Identity, Gate, Metrics
// and Logger may be nil.
type Deps struct {
	Profile  string
	BaseURL  string
	View     *conversations.View
	Machine  *status.Machine
	Identity *backend.Identity
	Gate     *permission.Gate
	Bus      *bus.Bus
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewConsoleService creates the console service.
func NewConsoleService(d Deps) *ConsoleService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleService{
		profile:   d.Profile,
		baseURL:   d.BaseURL,
		startedAt: time.Now(),
		view:      d.View,
		machine:   d.Machine,
		identity:  d.Identity,
		gate:      d.Gate,
		bus:       d.Bus,
		metrics:   d.Metrics,
		logger:    logger,
	}
}

func (s *ConsoleService) Status(_ context.Context, _ *rpc.StatusRequest) (*rpc.StatusResponse, error) {
	snap := s.view.Snapshot()
	resp := &rpc.StatusResponse{
		Profile:       s.profile,
		FeedState:     string(s.machine.Current()),
		FeedSince:     s.machine.Since(),
		UptimeMs:      time.Since(s.startedAt).Milliseconds(),
		BaseURL:       s.baseURL,
		Projects:      len(snap.Projects),
		TotalUnread:   snap.TotalUnread,
		OpenProjectID: snap.Thread.ProjectID,
		Pending:       len(snap.Pending),
		Visible:       snap.Visible,
		Viewers:       s.Viewers(),
	}
	if s.identity != nil {
		resp.UserID = s.identity.UserID
		resp.UserName = s.identity.Name
	}
	if s.gate != nil {
		resp.Permissions = s.gate.Snapshot()
	}
	return resp, nil
}

func (s *ConsoleService) ListProjects(_ context.Context, _ *rpc.ListProjectsRequest) (*rpc.ListProjectsResponse, error) {
	return s.projects(), nil
}

func (s *ConsoleService) LoadMoreProjects(ctx context.Context, _ *rpc.LoadMoreProjectsRequest) (*rpc.ListProjectsResponse, error) {
	if err := s.view.LoadMoreProjects(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.projects(), nil
}

func (s *ConsoleService) Open(ctx context.Context, req *rpc.OpenRequest) (*rpc.ThreadResponse, error) {
	if req.ProjectID <= 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "project id is required")
	}
	if err := s.view.Open(ctx, req.ProjectID); err != nil {
		return nil, toStatus(err)
	}
	return s.thread(), nil
}

func (s *ConsoleService) LoadOlder(ctx context.Context, _ *rpc.LoadOlderRequest) (*rpc.ThreadResponse, error) {
	if err := s.view.LoadOlder(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.thread(), nil
}

func (s *ConsoleService) Reload(ctx context.Context, _ *rpc.ReloadRequest) (*rpc.ThreadResponse, error) {
	if err := s.view.Reload(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.thread(), nil
}

func (s *ConsoleService) GetThread(_ context.Context, _ *rpc.GetThreadRequest) (*rpc.ThreadResponse, error) {
	return s.thread(), nil
}

func (s *ConsoleService) Send(ctx context.Context, req *rpc.SendRequest) (*rpc.SendResponse, error) {
	msg, err := s.view.Send(ctx, req.ProjectID, req.Body)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SendResponse{Message: msg}, nil
}

func (s *ConsoleService) Upload(ctx context.Context, req *rpc.UploadRequest) (*rpc.UploadResponse, error) {
	refs, err := s.view.Upload(ctx, req.ProjectID, req.Paths)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.UploadResponse{Media: refs}, nil
}

func (s *ConsoleService) Delete(ctx context.Context, req *rpc.DeleteRequest) (*rpc.Ack, error) {
	if req.MessageID <= 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "message id is required")
	}
	if err := s.view.Delete(ctx, req.MessageID); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.Ack{Message: "deleted"}, nil
}

func (s *ConsoleService) Retry(ctx context.Context, req *rpc.RetryRequest) (*rpc.Ack, error) {
	if err := s.view.Retry(ctx, req.ClientTempID); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.Ack{Message: "sent"}, nil
}

func (s *ConsoleService) Discard(ctx context.Context, req *rpc.DiscardRequest) (*rpc.Ack, error) {
	if err := s.view.Discard(ctx, req.ClientTempID); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.Ack{Message: "discarded"}, nil
}

func (s *ConsoleService) ListPending(_ context.Context, _ *rpc.ListPendingRequest) (*rpc.ListPendingResponse, error) {
	return &rpc.ListPendingResponse{Pending: pendingToRPC(s.view.Pending())}, nil
}

func (s *ConsoleService) SetVisible(_ context.Context, req *rpc.SetVisibleRequest) (*rpc.SetVisibleResponse, error) {
	return &rpc.SetVisibleResponse{Reloaded: s.view.SetVisible(req.Visible)}, nil
}

// Watch streams bus events until the client goes away. Viewer watchers drive
// the view's visibility: the first one makes it visible, the last one to
// leave hides it.
func (s *ConsoleService) Watch(req *rpc.WatchRequest, stream grpc.ServerStreamingServer[rpc.Event]) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 256)
	defer unsub()

	s.metrics.WatcherAttached()
	defer s.metrics.WatcherDetached()
	if req.Viewer {
		s.attachViewer()
		defer s.detachViewer()
	}

	for {
		select {
		case evt := <-ch:
			out, err := s.toEvent(evt)
			if err != nil {
				s.logger.Warn("dropping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

// Viewers returns the number of attached viewer watchers.
func (s *ConsoleService) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewers
}

func (s *ConsoleService) attachViewer() {
	s.mu.Lock()
	s.viewers++
	first := s.viewers == 1
	s.mu.Unlock()
	if first {
		s.view.SetVisible(true)
	}
}

func (s *ConsoleService) detachViewer() {
	s.mu.Lock()
	s.viewers--
	last := s.viewers == 0
	s.mu.Unlock()
	if last {
		s.view.SetVisible(false)
	}
}

func (s *ConsoleService) projects() *rpc.ListProjectsResponse {
	snap := s.view.Snapshot()
	return &rpc.ListProjectsResponse{Projects: snap.Projects, TotalUnread: snap.TotalUnread}
}

func (s *ConsoleService) thread() *rpc.ThreadResponse {
	snap := s.view.Snapshot()
	return &rpc.ThreadResponse{Thread: threadToRPC(snap.Thread), Draft: snap.Draft}
}

func (s *ConsoleService) toEvent(evt bus.Event) (*rpc.Event, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, err
	}
	return &rpc.Event{
		EventID:          uuid.NewString(),
		Profile:          s.profile,
		OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
		Kind:             evt.Kind,
		PayloadVersion:   1,
		Payload:          payload,
	}, nil
}

func threadToRPC(t conversations.Thread) rpc.Thread {
	return rpc.Thread{
		ProjectID: t.ProjectID,
		Items:     t.Items,
		Total:     t.Total,
		Phase:     string(t.Phase),
		HasMore:   t.HasMore,
		Members:   t.Members,
	}
}

func pendingToRPC(list []outbox.PendingSend) []rpc.PendingSend {
	out := make([]rpc.PendingSend, 0, len(list))
	for _, p := range list {
		out = append(out, rpc.PendingSend{
			ClientTempID: p.ClientTempID,
			ProjectID:    p.ProjectID,
			Kind:         string(p.Kind),
			Body:         p.Body,
			Files:        p.Files,
			State:        string(p.State),
			Error:        p.Error,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		})
	}
	return out
}
