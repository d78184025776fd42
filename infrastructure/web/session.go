package web

import (
	"minimessenger/auth"
	"minimessenger/contract"
	"minimessenger/domain"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	sessionCookie = "session"
	identityKey   = "identity"
	tokenKey      = "token"
)

// tokenFrom looks for the session token in the Authorization header,
// then the session cookie, then the token query parameter (browsers
// cannot set headers on a websocket upgrade).
func tokenFrom(c echo.Context) string {
	if token := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); token != "" {
		return token
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return c.QueryParam("token")
}

func requireSession(authenticator contract.IAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFrom(c)
			identity, err := authenticator.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}
			c.Set(identityKey, identity)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

func identityOf(c echo.Context) domain.Identity {
	identity, _ := c.Get(identityKey).(domain.Identity)
	return identity
}

func sessionToken(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}

type cookieJar struct {
	secure bool
}

func (j cookieJar) set(c echo.Context, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (j cookieJar) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
