package web

import (
	"minimessenger/auth"
	"minimessenger/errors"
	"minimessenger/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

func Register(authService services.IAuthService, cookies cookieJar) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req auth.RegisterRequest
		if err := c.Bind(&req); err != nil {
			return errors.ErrInvalidRegistration
		}
		session, err := authService.Register(req)
		if err != nil {
			return err
		}
		cookies.set(c, session.Token, session.ExpiresAt)
		return c.JSON(http.StatusCreated, session)
	}
}

func Login(authService services.IAuthService, cookies cookieJar) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req auth.LoginRequest
		if err := c.Bind(&req); err != nil {
			return errors.ErrInvalidCredentials
		}
		session, err := authService.Login(req)
		if err != nil {
			return err
		}
		cookies.set(c, session.Token, session.ExpiresAt)
		return c.JSON(http.StatusOK, session)
	}
}

func Logout(authService services.IAuthService, cookies cookieJar) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authService.Logout(sessionToken(c)); err != nil {
			return err
		}
		cookies.clear(c)
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}
}

func Me() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, meResponse{User: identityOf(c)})
	}
}

func Search(friendService services.IFriendService) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := friendService.Search(c.QueryParam("q"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, searchResponse{Results: toUserViews(users)})
	}
}

func Friends(friendService services.IFriendService) echo.HandlerFunc {
	return func(c echo.Context) error {
		friends, err := friendService.Friends(identityOf(c).Username)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, friendsResponse{Friends: toUserViews(friends)})
	}
}

func AddFriend(friendService services.IFriendService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req usernameRequest
		if err := c.Bind(&req); err != nil || req.Username == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username is required")
		}
		friends, err := friendService.AddFriend(identityOf(c).Username, req.Username)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, friendshipResponse{OK: true, Friends: friends})
	}
}

// RemoveFriend drops the friendship both ways. The conversation history stays.
func RemoveFriend(friendService services.IFriendService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req usernameRequest
		if err := c.Bind(&req); err != nil || req.Username == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username is required")
		}
		friends, err := friendService.RemoveFriend(identityOf(c).Username, req.Username)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, friendshipResponse{OK: true, Friends: friends})
	}
}

func Conversation(chatService services.IChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		messages, err := chatService.Conversation(identityOf(c).Username, c.Param("peer"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, messagesResponse{Messages: messages})
	}
}

// Impersonate returns an act-as session for the requested user.
// The admin check itself lives in the auth service.
func Impersonate(authService services.IAuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req usernameRequest
		if err := c.Bind(&req); err != nil || req.Username == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username is required")
		}
		session, err := authService.Impersonate(identityOf(c), req.Username)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, session)
	}
}

func Health(health HealthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, health.GetLatest())
	}
}
