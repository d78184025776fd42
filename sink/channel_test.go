package sink

import (
	"context"
	"log/slog"
	"minimessenger/domain"
	"minimessenger/errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testLog = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func alice() domain.Identity {
	return domain.Identity{UserID: "u-alice", Username: "alice", Actor: "root"}
}

func TestChannel_Binding(t *testing.T) {
	req := require.New(t)
	c1 := NewChannel(testLog, alice(), 1, time.Millisecond)
	c2 := NewChannel(testLog, alice(), 1, time.Millisecond)

	req.Equal("alice", c1.Username())
	req.Equal("root", c1.Actor())
	req.NotEqual(c1.ID(), c2.ID())
}

func TestChannel_Push_Then_Drain_In_Order(t *testing.T) {
	req := require.New(t)
	c := NewChannel(testLog, alice(), 4, 10*time.Millisecond)

	req.NoError(c.Push(context.Background(), domain.SendError("NotFriends")))
	req.NoError(c.Push(context.Background(), domain.SendError("UserNotFound")))

	req.Equal("NotFriends", (<-c.Events()).Reason)
	req.Equal("UserNotFound", (<-c.Events()).Reason)
}

func TestChannel_Backpressure(t *testing.T) {
	req := require.New(t)
	c := NewChannel(testLog, alice(), 1, 10*time.Millisecond)

	req.NoError(c.Push(context.Background(), domain.SendError("NotFriends")))
	err := c.Push(context.Background(), domain.SendError("NotFriends"))
	req.ErrorIs(err, errors.ErrChannelBackpressure)
}

func TestChannel_Waits_For_Room(t *testing.T) {
	req := require.New(t)
	c := NewChannel(testLog, alice(), 1, time.Second)
	req.NoError(c.Push(context.Background(), domain.SendError("first")))

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-c.Events()
	}()

	req.NoError(c.Push(context.Background(), domain.SendError("second")))
}

func TestChannel_Push_After_Close_Never_Panics(t *testing.T) {
	req := require.New(t)
	c := NewChannel(testLog, alice(), 1, time.Second)
	c.Close()
	c.Close()

	req.NotPanics(func() {
		err := c.Push(context.Background(), domain.SendError("NotFriends"))
		req.ErrorIs(err, errors.ErrChannelClosed)
	})

	select {
	case <-c.Done():
	default:
		t.Fatal("done should be closed")
	}
}

func TestChannel_Close_Unblocks_A_Waiting_Push(t *testing.T) {
	req := require.New(t)
	c := NewChannel(testLog, alice(), 1, time.Minute)
	req.NoError(c.Push(context.Background(), domain.SendError("first")))

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		err = c.Push(context.Background(), domain.SendError("second"))
	}()
	time.Sleep(10 * time.Millisecond)
	c.Close()
	wg.Wait()

	req.ErrorIs(err, errors.ErrChannelClosed)
}
