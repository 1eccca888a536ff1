package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/bus"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/samiuddin-code/datportal-sub005/internal/conversations"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"github.com/samiuddin-code/datportal-sub005/internal/permission"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
	"github.com/samiuddin-code/datportal-sub005/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubBackend struct {
	mu    sync.Mutex
	sends int
}

func (b *stubBackend) ListConversations(_ context.Context, q backend.ThreadQuery) (*backend.ThreadPage, error) {
	if q.ProjectID == 404 {
		return nil, &backend.APIError{Status: 404, Message: "project not found"}
	}
	return &backend.ThreadPage{
		Items: []chat.Message{{ID: 2, ProjectID: q.ProjectID}, {ID: 1, ProjectID: q.ProjectID}},
		Meta:  chat.PageMeta{Total: 2},
	}, nil
}

func (b *stubBackend) ListProjects(_ context.Context, page, _ int) (*backend.ProjectPage, error) {
	return &backend.ProjectPage{
		Items: []chat.Summary{{ProjectID: 42, Title: "Villa", UnreadCount: 3}},
		Meta:  chat.PageMeta{Total: 1, Page: page, PageCount: 1},
	}, nil
}

func (b *stubBackend) SendMessage(_ context.Context, req backend.SendRequest) (*chat.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sends++
	return &chat.Message{ID: 501, ProjectID: req.ProjectID, Body: req.Message}, nil
}

func (b *stubBackend) Upload(context.Context, int64, []backend.File) ([]chat.MediaRef, error) {
	return nil, nil
}

func (b *stubBackend) DeleteMessage(context.Context, int64) (string, error) {
	return "deleted", nil
}

type stubFeed struct {
	mu sync.Mutex
	h  func(chat.Message)
}

func (f *stubFeed) Subscribe(h func(chat.Message)) (func(), error) {
	f.mu.Lock()
	f.h = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.h = nil
		f.mu.Unlock()
	}, nil
}

func (f *stubFeed) Connect(context.Context) error { return nil }
func (f *stubFeed) Disconnect()                  {}

type fixture struct {
	svc    *ConsoleService
	view   *conversations.View
	be     *stubBackend
	client rpc.ConsoleClient
}

func newFixture(t *testing.T, perms map[string]bool) *fixture {
	t.Helper()
	b := bus.New()
	be := &stubBackend{}
	gate := permission.New(perms, nil)
	view := conversations.New(conversations.Deps{
		Backend: be,
		Feed:    &stubFeed{},
		Gate:    gate,
		Bus:     b,
	}, conversations.Config{LocalUserID: 7})
	require.NoError(t, view.Mount(context.Background()))
	t.Cleanup(view.Unmount)

	svc := NewConsoleService(Deps{
		Profile:  "test",
		View:     view,
		Machine:  status.NewMachine(b),
		Identity: &backend.Identity{UserID: 7, Name: "Sara"},
		Gate:     gate,
		Bus:      b,
	})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterConsoleServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{svc: svc, view: view, be: be, client: rpc.NewConsoleClient(conn)}
}

func TestStatusAndProjects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	st, err := f.client.Status(ctx, &rpc.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "test", st.Profile)
	assert.Equal(t, string(status.Disconnected), st.FeedState)
	assert.Equal(t, int64(7), st.UserID)
	assert.Equal(t, 1, st.Projects)
	assert.Equal(t, 3, st.TotalUnread)

	list, err := f.client.ListProjects(ctx, &rpc.ListProjectsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, "Villa", list.Projects[0].Title)
}

func TestOpenReturnsThread(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.client.Open(context.Background(), &rpc.OpenRequest{ProjectID: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.Thread.ProjectID)
	assert.Len(t, resp.Thread.Items, 2)
	assert.Equal(t, "EXHAUSTED", resp.Thread.Phase)
	assert.False(t, resp.Thread.HasMore)

	_, err = f.client.Open(context.Background(), &rpc.OpenRequest{ProjectID: 404})
	assert.Equal(t, codes.NotFound, grpcstatus.Code(err))

	_, err = f.client.Open(context.Background(), &rpc.OpenRequest{})
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))
}

func TestSendDeniedWithoutPermission(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.client.Open(context.Background(), &rpc.OpenRequest{ProjectID: 42})
	require.NoError(t, err)

	_, err = f.client.Send(context.Background(), &rpc.SendRequest{Body: "hi"})
	assert.Equal(t, codes.PermissionDenied, grpcstatus.Code(err))
	assert.Zero(t, f.be.sends)
}

func TestSendAllowed(t *testing.T) {
	f := newFixture(t, map[string]bool{permission.AddConversation: true})

	_, err := f.client.Send(context.Background(), &rpc.SendRequest{Body: "hi"})
	assert.Equal(t, codes.FailedPrecondition, grpcstatus.Code(err), "no open thread")

	resp, err := f.client.Send(context.Background(), &rpc.SendRequest{ProjectID: 42, Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(501), resp.Message.ID)
}

func TestViewerWatchDrivesVisibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := f.client.Watch(ctx, &rpc.WatchRequest{Viewer: true})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.svc.Viewers() == 1 && f.view.Visible() }, 2*time.Second, 10*time.Millisecond)

	_, err = f.client.Open(context.Background(), &rpc.OpenRequest{ProjectID: 42})
	require.NoError(t, err)
	evt, err := stream.Recv()
	require.NoError(t, err)
	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, "test", evt.Profile)

	cancel()
	require.Eventually(t, func() bool { return f.svc.Viewers() == 0 && !f.view.Visible() }, 2*time.Second, 10*time.Millisecond)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{conversations.ErrPermissionDenied, codes.PermissionDenied},
		{fmt.Errorf("x: %w", conversations.ErrNoOpenThread), codes.FailedPrecondition},
		{outbox.ErrBusy, codes.Aborted},
		{fmt.Errorf("%w: got 11", outbox.ErrTooManyFiles), codes.InvalidArgument},
		{outbox.ErrUnknownSend, codes.NotFound},
		{fmt.Errorf("send: %w", &backend.APIError{Status: 401}), codes.Unauthenticated},
		{&backend.APIError{Status: 422}, codes.InvalidArgument},
		{&backend.APIError{Status: 502}, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("connection refused"), codes.Unavailable},
	}
	for _, tt := range tests {
		if got := grpcstatus.Code(toStatus(tt.err)); got != tt.want {
			t.Errorf("toStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if toStatus(nil) != nil {
		t.Error("toStatus(nil) != nil")
	}
}
