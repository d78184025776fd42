package web

import (
	"context"
	"log/slog"
	"minimessenger/contract"
	"minimessenger/domain"
	"minimessenger/observability"
	"minimessenger/services"
	"minimessenger/sink"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Connect upgrades to a websocket real-time channel. The token is checked
// before the upgrade: an unauthenticated request gets a plain 401 and no
// channel is ever registered.
func Connect(log *slog.Logger, authenticator contract.IAuthenticator, chatService services.IChatService,
	metrics *observability.Metrics, opts Options) echo.HandlerFunc {
	upgrader := newUpgrader()
	return func(c echo.Context) error {
		identity, err := authenticator.Authenticate(c.Request().Context(), tokenFrom(c))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// The upgrader already answered the client
			log.Debug("Websocket upgrade failed", "username", identity.Username, "error", err)
			return nil
		}
		defer func() { _ = conn.Close() }()

		channel := sink.NewChannel(log, identity, opts.ConnectionBufferSize, opts.DeliveryTimeout)
		chatService.Connect(channel)
		metrics.Connected()
		defer func() {
			chatService.Disconnect(channel)
			channel.Close()
			metrics.Disconnected()
		}()

		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			writePump(ctx, log, conn, channel)
		}()

		readPump(ctx, log, conn, chatService, channel)
		cancel()
		wg.Wait()
		return nil
	}
}

// readPump handles client frames one at a time until the socket closes.
func readPump(ctx context.Context, log *slog.Logger, conn *websocket.Conn, chatService services.IChatService, channel *sink.Channel) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var frame domain.Envelope
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("Websocket closed unexpectedly", "username", channel.Username(), "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		switch frame.Type {
		case domain.EventSendMessage:
			// Rejections already reached the channel as send-error events
			_, _ = chatService.Send(ctx, channel, frame.Intent())
		default:
			log.Debug("Unsupported frame ignored", "username", channel.Username(), "type", frame.Type)
		}
	}
}

// writePump is the only writer on the socket.
func writePump(ctx context.Context, log *slog.Logger, conn *websocket.Conn, channel *sink.Channel) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case e := <-channel.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				log.Debug("Websocket write failed", "username", channel.Username(), "error", err)
				// Unblock the reader
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
