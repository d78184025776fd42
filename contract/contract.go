//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"minimessenger/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Channel is one live real-time connection bound to an authenticated username.
// Push must never panic, even once the underlying connection is gone.
type Channel interface {
	ID() string
	Username() string
	Actor() string
	Push(ctx context.Context, e domain.Envelope) error
}

// IRegistry is the presence registry: username -> live channels.
type IRegistry interface {
	Register(username string, channel Channel)
	Unregister(channel Channel)
	ChannelsFor(username string) []Channel
}

type IFriendshipGate interface {
	CanDeliver(ctx context.Context, sender, recipient string) (bool, error)
}

// ITextFilter rewrites message text before it is persisted.
type ITextFilter interface {
	Apply(text string) string
}

type IPipeline interface {
	Send(ctx context.Context, origin Channel, intent domain.SendIntent) (domain.Message, error)
}

type IAuthenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}
