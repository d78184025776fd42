package web

import (
	"minimessenger/domain"

	"github.com/samber/lo"
)

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Display  string `json:"display"`
}

func toUserViews(users []domain.User) []userView {
	return lo.Map(users, func(u domain.User, _ int) userView {
		return userView{ID: u.ID, Username: u.Username, Display: u.DisplayName}
	})
}

type usernameRequest struct {
	Username string `json:"username"`
}

type meResponse struct {
	User domain.Identity `json:"user"`
}

type searchResponse struct {
	Results []userView `json:"results"`
}

type friendsResponse struct {
	Friends []userView `json:"friends"`
}

type friendshipResponse struct {
	OK      bool     `json:"ok"`
	Friends []string `json:"friends"`
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
