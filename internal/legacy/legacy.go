// Package legacy imports the single-file JSON store used before badger.
package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"minimessenger/auth"
	"minimessenger/domain"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// namespace derives stable message ids from legacy ids that are not uuids,
// so a second import run finds them again.
var namespace = uuid.MustParse("6f1c3a52-7d4e-4f0b-9a57-2a1f0c8e9b11")

type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Display  string   `json:"display"`
	Friends  []string `json:"friends"`
}

type Message struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

type Data struct {
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}

type UserImporter interface {
	ImportUser(user domain.User) (bool, error)
	ListUsers() ([]domain.User, error)
}

type MessageImporter interface {
	ImportMessage(message domain.Message) (bool, error)
	Count() (int, error)
}

// Report sums up one import run.
type Report struct {
	FoundUsers       int
	FoundMessages    int
	ImportedUsers    int
	ImportedMessages int
	Failures         int
	TotalUsers       int
	TotalMessages    int
}

func Decode(r io.Reader) (Data, error) {
	var data Data
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return Data{}, fmt.Errorf("invalid legacy data: %w", err)
	}
	return data, nil
}

// Import inserts every user missing by username and every message missing
// by id. Records that fail are logged and skipped, the run goes on.
// Usernames end up inside storage keys, so users, friend entries and
// messages naming an invalid username are dropped.
// Friend lists are otherwise copied as they are, asymmetric ones included.
func Import(log *slog.Logger, data Data, users UserImporter, messages MessageImporter, now func() time.Time) (Report, error) {
	report := Report{FoundUsers: len(data.Users), FoundMessages: len(data.Messages)}

	for _, u := range data.Users {
		if !auth.IsValidUsername(u.Username) {
			log.Warn("Skipping legacy user with an invalid username", "id", u.ID, "username", u.Username)
			report.Failures++
			continue
		}
		inserted, err := users.ImportUser(toUser(u))
		if err != nil {
			log.Error("User import failed", "username", u.Username, "error", err)
			report.Failures++
			continue
		}
		report.ImportedUsers += lo.Ternary(inserted, 1, 0)
	}

	for _, m := range data.Messages {
		if !auth.IsValidUsername(m.From) || !auth.IsValidUsername(m.To) {
			log.Warn("Skipping legacy message with an invalid participant", "id", m.ID, "from", m.From, "to", m.To)
			report.Failures++
			continue
		}
		inserted, err := messages.ImportMessage(toMessage(m, now))
		if err != nil {
			log.Error("Message import failed", "id", m.ID, "error", err)
			report.Failures++
			continue
		}
		report.ImportedMessages += lo.Ternary(inserted, 1, 0)
	}

	all, err := users.ListUsers()
	if err != nil {
		return report, err
	}
	report.TotalUsers = len(all)
	if report.TotalMessages, err = messages.Count(); err != nil {
		return report, err
	}
	return report, nil
}

func toUser(u User) domain.User {
	return domain.User{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  lo.Ternary(u.Display == "", u.Username, u.Display),
		Friends:      lo.Filter(u.Friends, func(f string, _ int) bool { return auth.IsValidUsername(f) }),
		Roles:        []string{domain.RoleUser},
		PasswordHash: u.Password,
	}
}

func toMessage(m Message, now func() time.Time) domain.Message {
	at := lo.Ternary(m.TS == 0, now(), time.UnixMilli(m.TS))
	return domain.Message{
		ID:        messageID(m),
		From:      m.From,
		To:        m.To,
		Text:      m.Text,
		Timestamp: at.UTC(),
	}
}

func messageID(m Message) uuid.UUID {
	if id, err := uuid.Parse(m.ID); err == nil {
		return id
	}
	if m.ID != "" {
		return uuid.NewSHA1(namespace, []byte(m.ID))
	}
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s|%s|%d|%s", m.From, m.To, m.TS, m.Text)))
}
