package workers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := l.Addr().String()
	require.NoError(t, l.Close())
	return address
}

func TestEchoServerWorker_Serves_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	address := freeAddress(t)
	server := echo.New()
	server.HideBanner = true
	server.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewEchoServerWorker(testLog, server, address, time.Second).Run(ctx) }()

	req.Eventually(func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/ping", address))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestGrpcServerWorker_Stops_Gracefully(t *testing.T) {
	req := require.New(t)
	address := freeAddress(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewGrpcServerWorker(testLog, grpc.NewServer(), address).Run(ctx) }()

	req.Eventually(func() bool {
		conn, err := net.Dial("tcp", address)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestGrpcServerWorker_Reports_Listen_Failure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = NewGrpcServerWorker(testLog, grpc.NewServer(), l.Addr().String()).Run(context.Background())
	require.Error(t, err)
}
