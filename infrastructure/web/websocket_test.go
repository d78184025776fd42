package web_test

import (
	"minimessenger/auth"
	"minimessenger/domain"
	"minimessenger/infrastructure/web"
	"minimessenger/repositories"
	"minimessenger/runtime"
	"minimessenger/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type liveFixture struct {
	url      string
	users    *repositories.UserRepository
	registry *runtime.Registry
	tokens   *auth.TokenIssuer
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	sessions := repositories.NewSessionRepository(db)
	messages, err := repositories.NewMessageRepository(db, testLog)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	registry := runtime.NewRegistry()
	pipeline := runtime.NewPipeline(testLog, users, runtime.NewFriendshipGate(testLog, users), messages, registry, nil)

	server := web.NewServer(testLog, web.Dependencies{
		Auth:          services.NewAuthService(testLog, users, sessions, tokens, nil),
		Friends:       services.NewFriendService(testLog, users),
		Chat:          services.NewChatService(testLog, registry, pipeline, messages, users),
		Authenticator: auth.NewAuthenticator(testLog, tokens, sessions, users),
		Health:        fixedHealth{},
		Registerer:    prometheus.NewRegistry(),
	}, web.Options{ConnectionBufferSize: 16, DeliveryTimeout: time.Second})

	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	return &liveFixture{
		url:      "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws",
		users:    users,
		registry: registry,
		tokens:   tokens,
	}
}

func (f *liveFixture) user(t *testing.T, username string) string {
	t.Helper()
	user, err := f.users.CreateUser(username, "", "hash", nil)
	require.NoError(t, err)
	token, _, err := f.tokens.GenerateToken(domain.IdentityOf(user))
	require.NoError(t, err)
	return token
}

func (f *liveFixture) dial(t *testing.T, token, username string, expected int) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool {
		return len(f.registry.ChannelsFor(username)) == expected
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) domain.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e domain.Envelope
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestWebsocket_Refuses_Unauthenticated_Upgrade(t *testing.T) {
	req := require.New(t)
	f := newLiveFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?token=forged", nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Zero(f.registry.Connections())
}

func TestWebsocket_Delivers_To_Every_Device(t *testing.T) {
	req := require.New(t)
	f := newLiveFixture(t)
	aliceToken := f.user(t, "alice")
	bobToken := f.user(t, "bob")
	req.NoError(f.users.AddFriendship("alice", "bob"))

	phone := f.dial(t, aliceToken, "alice", 1)
	laptop := f.dial(t, aliceToken, "alice", 2)
	bob := f.dial(t, bobToken, "bob", 1)

	req.NoError(bob.WriteJSON(domain.SendMessage(domain.SendIntent{To: "alice", Text: "hey"})))

	ack := read(t, bob)
	req.Equal(domain.EventMessageDelivered, ack.Type)
	for _, conn := range []*websocket.Conn{phone, laptop} {
		e := read(t, conn)
		req.Equal(ack.Message.ID, e.Message.ID)
		req.Equal("bob", e.Message.From)
	}
}

func TestWebsocket_Token_In_Query_And_Rejection(t *testing.T) {
	req := require.New(t)
	f := newLiveFixture(t)
	aliceToken := f.user(t, "alice")
	f.user(t, "carol")

	conn, _, err := websocket.DefaultDialer.Dial(f.url+"?token="+aliceToken, nil)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.WriteJSON(domain.SendMessage(domain.SendIntent{To: "carol", Text: "hi"})))
	req.Equal(domain.SendError("NotFriends"), read(t, conn))
}

func TestWebsocket_Disconnect_Unregisters(t *testing.T) {
	req := require.New(t)
	f := newLiveFixture(t)
	aliceToken := f.user(t, "alice")

	conn := f.dial(t, aliceToken, "alice", 1)
	req.NoError(conn.Close())

	req.Eventually(func() bool {
		return f.registry.Connections() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
