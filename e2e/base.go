package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"minimessenger/domain"
	"minimessenger/infrastructure/grpc/client"
	"minimessenger/internal"
	"minimessenger/internal/app"
	"minimessenger/services"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// BaseSuite talks to a messenger over its public surfaces only:
// REST for accounts, gRPC and websocket for the real-time channel.
type BaseSuite struct {
	suite.Suite
	Config Config

	grpcAddr string
	httpURL  string
	cleanup  []func()
}

// SetupSuite loads the environment configuration and, unless a running
// server is targeted, starts one on loopback listeners.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.External() {
		s.grpcAddr = s.Config.GrpcAddr
		s.httpURL = "http://" + s.Config.HTTPAddr
		return
	}
	s.startInProcess()
}

func (s *BaseSuite) TearDownSuite() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func (s *BaseSuite) startInProcess() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	config := internal.Config{
		JWTSecret:            strings.Repeat("e2e-secret-", 4),
		AuthTokenDuration:    time.Hour,
		AdminUsernames:       s.Config.Admin,
		ConnectionBufferSize: 16,
		DeliveryTimeout:      time.Second,
		MetricInterval:       time.Second,
	}

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.cleanup = append(s.cleanup, func() { _ = db.Close() })

	messenger, err := app.New(log, config, db)
	s.Require().NoError(err)
	s.cleanup = append(s.cleanup, func() { _ = messenger.Close() })

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	go func() { _ = messenger.Grpc.Serve(lis) }()
	s.cleanup = append(s.cleanup, messenger.Grpc.Stop)
	s.grpcAddr = lis.Addr().String()

	httpServer := httptest.NewServer(messenger.HTTP)
	s.cleanup = append(s.cleanup, httpServer.Close)
	s.httpURL = httpServer.URL
}

// Step prints a header so scenario logs read as a story.
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Username returns a fresh name so scenarios never collide on a shared server.
func (s *BaseSuite) Username(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// Register creates an account and returns its session token.
func (s *BaseSuite) Register(username string) string {
	var session services.Session
	s.Call(http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"password": "Correct-Horse-42",
	}, http.StatusCreated, &session)
	return session.Token
}

// Befriend makes a and b friends on behalf of a.
func (s *BaseSuite) Befriend(token, other string) {
	s.Call(http.MethodPost, "/api/friends/add", token, map[string]string{"username": other}, http.StatusOK, nil)
}

// Call issues a JSON request and checks the status code.
func (s *BaseSuite) Call(method, path, token string, body any, expected int, out any) {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, s.httpURL+path, &payload)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(expected, resp.StatusCode, "%s %s", method, path)
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
}

// WithGrpc opens a gRPC real-time channel for token.
func (s *BaseSuite) WithGrpc(name, token string, fn func(ctx context.Context, stream *client.Stream)) {
	s.Step(name)
	chatClient, err := client.Dial(s.grpcAddr)
	s.Require().NoError(err)
	defer chatClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stream, err := chatClient.Connect(ctx, token)
	s.Require().NoError(err)
	fn(ctx, stream)
}

// Websocket opens a websocket channel for token. It is closed with the test.
func (s *BaseSuite) Websocket(token string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.httpURL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// Recv reads the next event, logging it when E2E_DEBUG_JSON is set.
func (s *BaseSuite) Recv(stream *client.Stream) domain.Envelope {
	e, err := stream.Recv()
	s.Require().NoError(err)
	s.debug(e)
	return e
}

// Ready blocks until the server has bound the channel: a send to an unknown
// user is answered on the origin channel only once it is registered.
func (s *BaseSuite) Ready(stream *client.Stream) {
	s.Require().NoError(stream.Send(s.Username("nobody"), "ping"))
	e := s.Recv(stream)
	s.Require().Equal(domain.EventSendError, e.Type)
	s.Require().Equal("UserNotFound", e.Reason)
}

func (s *BaseSuite) WebsocketReady(conn *websocket.Conn) {
	s.Require().NoError(conn.WriteJSON(domain.SendMessage(domain.SendIntent{To: s.Username("nobody"), Text: "ping"})))
	e := s.ReadWebsocket(conn)
	s.Require().Equal(domain.EventSendError, e.Type)
	s.Require().Equal("UserNotFound", e.Reason)
}

func (s *BaseSuite) ReadWebsocket(conn *websocket.Conn) domain.Envelope {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var e domain.Envelope
	s.Require().NoError(conn.ReadJSON(&e))
	s.debug(e)
	return e
}

func (s *BaseSuite) debug(e domain.Envelope) {
	if !s.Config.DebugJSON {
		return
	}
	data, _ := json.MarshalIndent(e, "", "  ")
	s.T().Log("EVENT:\n" + string(data))
}
