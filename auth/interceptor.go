package auth

import (
	"context"
	"log/slog"
	"minimessenger/contract"
	"minimessenger/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// StreamAuthInterceptor authenticates every stream before its handler runs.
// An unauthenticated stream is closed with codes.Unauthenticated before
// any message is exchanged.
func StreamAuthInterceptor(log *slog.Logger, authenticator contract.IAuthenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		md, ok := metadata.FromIncomingContext(ss.Context())
		if !ok {
			return status.Error(codes.Unauthenticated, "metadata is missing")
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return status.Error(codes.Unauthenticated, "authorization token is missing")
		}

		identity, err := authenticator.Authenticate(ss.Context(), BearerToken(values[0]))
		if err != nil {
			log.Info("Stream rejected", "method", info.FullMethod, "error", err)
			return status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(srv, &identifiedStream{ServerStream: ss, ctx: WithIdentity(ss.Context(), identity)})
	}
}

type identifiedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identifiedStream) Context() context.Context {
	return s.ctx
}
