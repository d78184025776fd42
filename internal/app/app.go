// Package app wires the messenger components from a configuration.
package app

import (
	"fmt"
	"log/slog"
	"minimessenger/auth"
	"minimessenger/contract"
	"minimessenger/infrastructure/grpc/chatv1"
	"minimessenger/infrastructure/grpc/server"
	"minimessenger/infrastructure/web"
	"minimessenger/internal"
	"minimessenger/moderation"
	"minimessenger/observability"
	"minimessenger/repositories"
	"minimessenger/runtime"
	"minimessenger/runtime/workers"
	"minimessenger/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
)

// App holds the servers and background workers of one messenger process.
type App struct {
	Grpc       *grpc.Server
	HTTP       *echo.Echo
	Metrics    *echo.Echo
	Monitoring *observability.MonitoringManager
	Presence   *runtime.Registry
	Users      *repositories.UserRepository

	config   internal.Config
	log      *slog.Logger
	messages *repositories.MessageRepository
}

// New builds every component on top of an open badger store.
// The caller owns db and must call Close before closing it.
func New(log *slog.Logger, config internal.Config, db *badger.DB) (*App, error) {
	filter, err := moderation.NewFilter(config.Censored(), moderation.DefaultMask)
	if err != nil {
		return nil, fmt.Errorf("censored words: %w", err)
	}

	userRepository := repositories.NewUserRepository(db)
	sessionRepository := repositories.NewSessionRepository(db)
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	presence := runtime.NewRegistry()
	gate := runtime.NewFriendshipGate(log, userRepository)
	pipeline := runtime.NewPipeline(log, userRepository, gate, messageRepository, presence, metrics)
	if filter != nil {
		pipeline.WithFilter(filter)
	}

	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	authenticator := auth.NewAuthenticator(log, tokens, sessionRepository, userRepository)
	authService := services.NewAuthService(log, userRepository, sessionRepository, tokens, config.Admins())
	friendService := services.NewFriendService(log, userRepository)
	chatService := services.NewChatService(log, presence, pipeline, messageRepository, userRepository)

	grpcServer := grpc.NewServer(grpc.StreamInterceptor(auth.StreamAuthInterceptor(log, authenticator)))
	chatv1.RegisterChatServiceServer(grpcServer,
		server.NewChatServer(log, chatService, metrics, config.ConnectionBufferSize, config.DeliveryTimeout))

	monitoring := observability.NewMonitoringManager(log, presence, config.MetricInterval)
	httpServer := web.NewServer(log, web.Dependencies{
		Auth:          authService,
		Friends:       friendService,
		Chat:          chatService,
		Authenticator: authenticator,
		Health:        monitoring,
		Metrics:       metrics,
		Registerer:    registry,
	}, web.Options{
		ConnectionBufferSize: config.ConnectionBufferSize,
		DeliveryTimeout:      config.DeliveryTimeout,
		SecureCookie:         config.SecureCookie,
	})

	return &App{
		Grpc:       grpcServer,
		HTTP:       httpServer,
		Metrics:    web.NewMetricsServer(registry),
		Monitoring: monitoring,
		Presence:   presence,
		Users:      userRepository,
		config:     config,
		log:        log,
		messages:   messageRepository,
	}, nil
}

// Workers returns the supervised workers serving the configured addresses.
func (a *App) Workers() []contract.Worker {
	return []contract.Worker{
		workers.NewGrpcServerWorker(a.log, a.Grpc, a.config.GrpcAddress()),
		workers.NewEchoServerWorker(a.log, a.HTTP, a.config.HTTPAddress(), a.config.ShutdownTimeout),
		workers.NewEchoServerWorker(a.log, a.Metrics, a.config.MetricsAddress(), a.config.ShutdownTimeout),
		a.Monitoring,
	}
}

// Close releases the message sequence lease.
func (a *App) Close() error {
	return a.messages.Close()
}
