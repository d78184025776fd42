// Package domain contains core concepts of the chat system.
// This file defines User entities and the Identity bound to a live connection.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"slices"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is owned by the identity store. Friends holds usernames and is expected
// to be symmetric across users once a friendship mutation completes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Friends      []string  `json:"friends"`
	Roles        []string  `json:"roles"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) HasFriend(username string) bool {
	return slices.Contains(u.Friends, username)
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Identity is what a session token resolves to.
// Actor is set only for act-as sessions and names the privileged user
// operating on behalf of Username.
type Identity struct {
	UserID      string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display"`
	Roles       []string `json:"-"`
	Actor       string   `json:"actor,omitempty"`
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

func (i Identity) IsActingAs() bool {
	return i.Actor != "" && i.Actor != i.Username
}

func IdentityOf(u User) Identity {
	return Identity{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
	}
}
