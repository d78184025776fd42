package client

import (
	"context"
	"fmt"
	"minimessenger/domain"
	"minimessenger/infrastructure/grpc/chatv1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// ChatClient opens authenticated real-time channels on a chat server.
type ChatClient struct {
	Client chatv1.ChatServiceClient
	conn   *grpc.ClientConn
}

func NewChatClient(client chatv1.ChatServiceClient) *ChatClient {
	return &ChatClient{Client: client}
}

// Dial connects to address without transport security.
func Dial(address string, opts ...grpc.DialOption) (*ChatClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &ChatClient{Client: chatv1.NewChatServiceClient(conn), conn: conn}, nil
}

func (c *ChatClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Connect opens the channel of the user owning token. An invalid token
// surfaces as codes.Unauthenticated on the first Recv.
func (c *ChatClient) Connect(ctx context.Context, token string) (*Stream, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	stream, err := c.Client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &Stream{stream: stream}, nil
}

// Stream is one open real-time channel seen from the client side.
type Stream struct {
	stream grpc.BidiStreamingClient[domain.Envelope, domain.Envelope]
}

// Send asks the server to deliver text to the user named to.
func (s *Stream) Send(to, text string) error {
	e := domain.SendMessage(domain.SendIntent{To: to, Text: text})
	return s.stream.Send(&e)
}

// Recv blocks until the next message-delivered or send-error event.
func (s *Stream) Recv() (domain.Envelope, error) {
	e, err := s.stream.Recv()
	if err != nil {
		return domain.Envelope{}, err
	}
	return *e, nil
}

// CloseSend half-closes the stream; deliveries keep arriving.
func (s *Stream) CloseSend() error {
	return s.stream.CloseSend()
}
