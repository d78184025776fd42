package server

import (
	"context"
	goerrors "errors"
	"io"
	"log/slog"
	"minimessenger/auth"
	"minimessenger/domain"
	"minimessenger/infrastructure/grpc/chatv1"
	"minimessenger/observability"
	"minimessenger/services"
	"minimessenger/sink"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ChatServer struct {
	chatv1.UnimplementedChatServiceServer
	chatService          services.IChatService
	metrics              *observability.Metrics
	connectionBufferSize int
	deliveryTimeout      time.Duration
	log                  *slog.Logger
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, metrics *observability.Metrics,
	connectionBufferSize int, deliveryTimeout time.Duration) *ChatServer {
	return &ChatServer{
		chatService:          chatService,
		metrics:              metrics,
		connectionBufferSize: connectionBufferSize,
		deliveryTimeout:      deliveryTimeout,
		log:                  log,
	}
}

// Connect serves one real-time channel for the lifetime of the stream.
// The identity was attached by the auth interceptor, so by the time we get
// here the stream is authenticated. Incoming send-message frames are handled
// one at a time, in arrival order; outgoing events are drained from the
// channel outbox. The channel is unregistered as soon as the stream ends.
func (s *ChatServer) Connect(stream grpc.BidiStreamingServer[domain.Envelope, domain.Envelope]) error {
	identity, ok := auth.IdentityFromContext(stream.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "identity is missing")
	}

	channel := sink.NewChannel(s.log, identity, s.connectionBufferSize, s.deliveryTimeout)
	s.chatService.Connect(channel)
	s.metrics.Connected()
	defer func() {
		s.chatService.Disconnect(channel)
		channel.Close()
		s.metrics.Disconnected()
	}()

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	recvErr := make(chan error, 1)
	go func() {
		if err := s.receive(ctx, stream, channel); err != nil {
			recvErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Client disconnected", "username", identity.Username, "channel", channel.ID())
			return nil
		case err := <-recvErr:
			s.log.Warn("Receive loop failed", "username", identity.Username, "error", err)
			return err
		case e := <-channel.Events():
			if err := stream.Send(&e); err != nil {
				s.log.Error("Failed to push event to stream",
					"username", identity.Username,
					"channel", channel.ID(),
					"error", err)
				return err
			}
		}
	}
}

// receive reads client frames until the client half-closes or the stream dies.
// A half-closed client keeps receiving deliveries.
func (s *ChatServer) receive(ctx context.Context, stream grpc.BidiStreamingServer[domain.Envelope, domain.Envelope], channel *sink.Channel) error {
	for {
		frame, err := stream.Recv()
		if goerrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch frame.Type {
		case domain.EventSendMessage:
			// Rejections already reached the channel as send-error events
			_, _ = s.chatService.Send(ctx, channel, frame.Intent())
		default:
			s.log.Debug("Unsupported frame ignored", "username", channel.Username(), "type", frame.Type)
		}
	}
}
