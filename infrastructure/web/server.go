// Package web exposes the REST surface, the websocket real-time channel
// and the prometheus endpoint with echo.
package web

import (
	goerrors "errors"
	"log/slog"
	"minimessenger/contract"
	"minimessenger/errors"
	"minimessenger/observability"
	"minimessenger/services"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nrednav/cuid2"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthProvider is satisfied by observability.MonitoringManager.
type HealthProvider interface {
	GetLatest() observability.MonitoringStats
}

type Dependencies struct {
	Auth          services.IAuthService
	Friends       services.IFriendService
	Chat          services.IChatService
	Authenticator contract.IAuthenticator
	Health        HealthProvider
	Metrics       *observability.Metrics
	Registerer    prometheus.Registerer
}

type Options struct {
	ConnectionBufferSize int
	DeliveryTimeout      time.Duration
	SecureCookie         bool
}

// NewServer builds the public echo server. Routes under /api require a
// session except register and login.
func NewServer(log *slog.Logger, deps Dependencies, opts Options) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.HTTPErrorHandler = errorHandler(log)

	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "minimessenger",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/ws"
		},
	}))
	server.Use(middleware.Recover())
	server.Use(requestLogger(log))

	cookies := cookieJar{secure: opts.SecureCookie}
	session := requireSession(deps.Authenticator)

	server.GET("/healthz", Health(deps.Health))
	server.GET("/ws", Connect(log, deps.Authenticator, deps.Chat, deps.Metrics, opts))

	api := server.Group("/api")
	api.POST("/register", Register(deps.Auth, cookies))
	api.POST("/login", Login(deps.Auth, cookies))
	api.POST("/logout", Logout(deps.Auth, cookies), session)
	api.GET("/me", Me(), session)
	api.GET("/search", Search(deps.Friends), session)
	api.GET("/friends", Friends(deps.Friends), session)
	api.POST("/friends/add", AddFriend(deps.Friends), session)
	api.POST("/friends/remove", RemoveFriend(deps.Friends), session)
	api.GET("/conversation/:peer", Conversation(deps.Chat), session)
	api.GET("/messages/:peer", Conversation(deps.Chat), session)
	api.POST("/admin/impersonate", Impersonate(deps.Auth), session)

	return server
}

// NewMetricsServer serves /metrics on its own listener.
func NewMetricsServer(gatherer prometheus.Gatherer) *echo.Echo {
	metrics := echo.New()
	metrics.HideBanner = true
	metrics.HidePort = true
	metrics.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	return metrics
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.Info("Request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Debug("Request served", attrs...)
			return nil
		},
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorHandler renders domain errors with their mapped status code.
// Internal failures never leak their message.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := errors.MapToHTTPStatus(err)
		message := err.Error()

		var httpErr *echo.HTTPError
		if goerrors.As(err, &httpErr) {
			code = httpErr.Code
			if m, ok := httpErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("Request failed", "path", c.Path(), "error", err)
			message = "internal error"
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, errorResponse{Error: message})
		}
		if err != nil {
			log.Debug("Failed to write error response", "error", err)
		}
	}
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}
