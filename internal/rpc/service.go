package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "datportal.console.v1.Console"

// ConsoleServer is the server API of the console service.
// Implementations must embed UnimplementedConsoleServer.
type ConsoleServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	ListProjects(context.Context, *ListProjectsRequest) (*ListProjectsResponse, error)
	LoadMoreProjects(context.Context, *LoadMoreProjectsRequest) (*ListProjectsResponse, error)
	Open(context.Context, *OpenRequest) (*ThreadResponse, error)
	LoadOlder(context.Context, *LoadOlderRequest) (*ThreadResponse, error)
	Reload(context.Context, *ReloadRequest) (*ThreadResponse, error)
	GetThread(context.Context, *GetThreadRequest) (*ThreadResponse, error)
	Send(context.Context, *SendRequest) (*SendResponse, error)
	Upload(context.Context, *UploadRequest) (*UploadResponse, error)
	Delete(context.Context, *DeleteRequest) (*Ack, error)
	Retry(context.Context, *RetryRequest) (*Ack, error)
	Discard(context.Context, *DiscardRequest) (*Ack, error)
	ListPending(context.Context, *ListPendingRequest) (*ListPendingResponse, error)
	SetVisible(context.Context, *SetVisibleRequest) (*SetVisibleResponse, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[Event]) error
	mustEmbedUnimplementedConsoleServer()
}

// UnimplementedConsoleServer answers every method with codes.Unimplemented.
type UnimplementedConsoleServer struct{}

func (UnimplementedConsoleServer) Status(context.Context, *StatusRequest) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedConsoleServer) ListProjects(context.Context, *ListProjectsRequest) (*ListProjectsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListProjects not implemented")
}
func (UnimplementedConsoleServer) LoadMoreProjects(context.Context, *LoadMoreProjectsRequest) (*ListProjectsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LoadMoreProjects not implemented")
}
func (UnimplementedConsoleServer) Open(context.Context, *OpenRequest) (*ThreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Open not implemented")
}
func (UnimplementedConsoleServer) LoadOlder(context.Context, *LoadOlderRequest) (*ThreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LoadOlder not implemented")
}
func (UnimplementedConsoleServer) Reload(context.Context, *ReloadRequest) (*ThreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Reload not implemented")
}
func (UnimplementedConsoleServer) GetThread(context.Context, *GetThreadRequest) (*ThreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetThread not implemented")
}
func (UnimplementedConsoleServer) Send(context.Context, *SendRequest) (*SendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Send not implemented")
}
func (UnimplementedConsoleServer) Upload(context.Context, *UploadRequest) (*UploadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedConsoleServer) Delete(context.Context, *DeleteRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedConsoleServer) Retry(context.Context, *RetryRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "method Retry not implemented")
}
func (UnimplementedConsoleServer) Discard(context.Context, *DiscardRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "method Discard not implemented")
}
func (UnimplementedConsoleServer) ListPending(context.Context, *ListPendingRequest) (*ListPendingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPending not implemented")
}
func (UnimplementedConsoleServer) SetVisible(context.Context, *SetVisibleRequest) (*SetVisibleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetVisible not implemented")
}
func (UnimplementedConsoleServer) Watch(*WatchRequest, grpc.ServerStreamingServer[Event]) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}
func (UnimplementedConsoleServer) mustEmbedUnimplementedConsoleServer() {}

// RegisterConsoleServer registers srv on s.
func RegisterConsoleServer(s grpc.ServiceRegistrar, srv ConsoleServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the console service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConsoleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", ConsoleServer.Status),
		unary("ListProjects", ConsoleServer.ListProjects),
		unary("LoadMoreProjects", ConsoleServer.LoadMoreProjects),
		unary("Open", ConsoleServer.Open),
		unary("LoadOlder", ConsoleServer.LoadOlder),
		unary("Reload", ConsoleServer.Reload),
		unary("GetThread", ConsoleServer.GetThread),
		unary("Send", ConsoleServer.Send),
		unary("Upload", ConsoleServer.Upload),
		unary("Delete", ConsoleServer.Delete),
		unary("Retry", ConsoleServer.Retry),
		unary("Discard", ConsoleServer.Discard),
		unary("ListPending", ConsoleServer.ListPending),
		unary("SetVisible", ConsoleServer.SetVisible),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "datportal/console/v1",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(ConsoleServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ConsoleServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ConsoleServer).Watch(in, &grpc.GenericServerStream[WatchRequest, Event]{ServerStream: stream})
}

// ConsoleClient is the client API of the console service.
type ConsoleClient interface {
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	ListProjects(ctx context.Context, in *ListProjectsRequest, opts ...grpc.CallOption) (*ListProjectsResponse, error)
	LoadMoreProjects(ctx context.Context, in *LoadMoreProjectsRequest, opts ...grpc.CallOption) (*ListProjectsResponse, error)
	Open(ctx context.Context, in *OpenRequest, opts ...grpc.CallOption) (*ThreadResponse, error)
	LoadOlder(ctx context.Context, in *LoadOlderRequest, opts ...grpc.CallOption) (*ThreadResponse, error)
	Reload(ctx context.Context, in *ReloadRequest, opts ...grpc.CallOption) (*ThreadResponse, error)
	GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*ThreadResponse, error)
	Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error)
	Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*Ack, error)
	Retry(ctx context.Context, in *RetryRequest, opts ...grpc.CallOption) (*Ack, error)
	Discard(ctx context.Context, in *DiscardRequest, opts ...grpc.CallOption) (*Ack, error)
	ListPending(ctx context.Context, in *ListPendingRequest, opts ...grpc.CallOption) (*ListPendingResponse, error)
	SetVisible(ctx context.Context, in *SetVisibleRequest, opts ...grpc.CallOption) (*SetVisibleResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error)
}

type consoleClient struct {
	cc grpc.ClientConnInterface
}

// NewConsoleClient returns a client speaking the JSON codec over cc.
func NewConsoleClient(cc grpc.ClientConnInterface) ConsoleClient {
	return &consoleClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *consoleClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "Status", in, opts)
}

func (c *consoleClient) ListProjects(ctx context.Context, in *ListProjectsRequest, opts ...grpc.CallOption) (*ListProjectsResponse, error) {
	return invoke[ListProjectsResponse](ctx, c.cc, "ListProjects", in, opts)
}

func (c *consoleClient) LoadMoreProjects(ctx context.Context, in *LoadMoreProjectsRequest, opts ...grpc.CallOption) (*ListProjectsResponse, error) {
	return invoke[ListProjectsResponse](ctx, c.cc, "LoadMoreProjects", in, opts)
}

func (c *consoleClient) Open(ctx context.Context, in *OpenRequest, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, "Open", in, opts)
}

func (c *consoleClient) LoadOlder(ctx context.Context, in *LoadOlderRequest, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, "LoadOlder", in, opts)
}

func (c *consoleClient) Reload(ctx context.Context, in *ReloadRequest, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, "Reload", in, opts)
}

func (c *consoleClient) GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, "GetThread", in, opts)
}

func (c *consoleClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, "Send", in, opts)
}

func (c *consoleClient) Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error) {
	return invoke[UploadResponse](ctx, c.cc, "Upload", in, opts)
}

func (c *consoleClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "Delete", in, opts)
}

func (c *consoleClient) Retry(ctx context.Context, in *RetryRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "Retry", in, opts)
}

func (c *consoleClient) Discard(ctx context.Context, in *DiscardRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "Discard", in, opts)
}

func (c *consoleClient) ListPending(ctx context.Context, in *ListPendingRequest, opts ...grpc.CallOption) (*ListPendingResponse, error) {
	return invoke[ListPendingResponse](ctx, c.cc, "ListPending", in, opts)
}

func (c *consoleClient) SetVisible(ctx context.Context, in *SetVisibleRequest, opts ...grpc.CallOption) (*SetVisibleResponse, error) {
	return invoke[SetVisibleResponse](ctx, c.cc, "SetVisible", in, opts)
}

func (c *consoleClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Watch"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, Event]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
