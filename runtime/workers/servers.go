package workers

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc"
)

// GrpcServerWorker serves a gRPC server until the context is cancelled,
// then stops it gracefully.
type GrpcServerWorker struct {
	log     *slog.Logger
	server  *grpc.Server
	address string
}

func NewGrpcServerWorker(log *slog.Logger, server *grpc.Server, address string) *GrpcServerWorker {
	return &GrpcServerWorker{log: log, server: server, address: address}
}

func (w *GrpcServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC server", "address", w.address, "at", time.Now().UTC())
		errChan <- w.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Stopping gRPC server", "address", w.address)
		w.server.GracefulStop()
		return nil
	case err := <-errChan:
		if err == nil || goerrors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("gRPC server error: %w", err)
	}
}

// EchoServerWorker serves an echo server until the context is cancelled,
// then shuts it down within the shutdown timeout.
type EchoServerWorker struct {
	log             *slog.Logger
	server          *echo.Echo
	address         string
	shutdownTimeout time.Duration
}

func NewEchoServerWorker(log *slog.Logger, server *echo.Echo, address string, shutdownTimeout time.Duration) *EchoServerWorker {
	return &EchoServerWorker{log: log, server: server, address: address, shutdownTimeout: shutdownTimeout}
}

func (w *EchoServerWorker) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", w.address, "at", time.Now().UTC())
		errChan <- w.server.Start(w.address)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()
		w.log.Info("Stopping HTTP server", "address", w.address)
		if err := w.server.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("HTTP server shutdown incomplete", "address", w.address, "error", err)
		}
		return nil
	case err := <-errChan:
		if goerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	}
}
