// Package chatv1 declares the real-time chat gRPC service.
// Frames are domain.Envelope values carried by the JSON codec.
package chatv1

import (
	"context"
	"minimessenger/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName                        = "minimessenger.chat.v1.ChatService"
	ChatService_Connect_FullMethodName = "/" + ServiceName + "/Connect"
)

// ChatServiceClient is the client API for ChatService.
type ChatServiceClient interface {
	// Connect opens the real-time channel of the authenticated user.
	Connect(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[domain.Envelope, domain.Envelope], error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc}
}

func (c *chatServiceClient) Connect(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[domain.Envelope, domain.Envelope], error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_Connect_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[domain.Envelope, domain.Envelope]{ClientStream: stream}, nil
}

// ChatServiceServer is the server API for ChatService.
type ChatServiceServer interface {
	Connect(grpc.BidiStreamingServer[domain.Envelope, domain.Envelope]) error
}

// UnimplementedChatServiceServer must be embedded to have forward compatible implementations.
type UnimplementedChatServiceServer struct{}

func (UnimplementedChatServiceServer) Connect(grpc.BidiStreamingServer[domain.Envelope, domain.Envelope]) error {
	return status.Error(codes.Unimplemented, "method Connect not implemented")
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

func _ChatService_Connect_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatServiceServer).Connect(&grpc.GenericServerStream[domain.Envelope, domain.Envelope]{ServerStream: stream})
}

// ChatService_ServiceDesc is the grpc.ServiceDesc for ChatService.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       _ChatService_Connect_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "minimessenger/chat/v1/chat.json",
}
