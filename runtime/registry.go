package runtime

import (
	"minimessenger/contract"
	"sync"
)

type Set map[string]contract.Channel

// Registry is the presence registry: which channels are live for which username.
// A username may hold any number of channels at once (tabs, devices).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Set    // map username -> channel id -> Channel
	owners   map[string]string // map channel id -> username
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Set),
		owners:   make(map[string]string),
	}
}

// Register binds a live channel to a username. Registering the same channel
// again under another username moves it.
func (r *Registry) Register(username string, channel contract.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.owners[channel.ID()]; ok && previous != username {
		r.remove(previous, channel.ID())
	}
	if _, ok := r.sessions[username]; !ok {
		r.sessions[username] = make(Set)
	}
	r.sessions[username][channel.ID()] = channel
	r.owners[channel.ID()] = username
}

// Unregister removes the channel. Calling it twice is harmless.
func (r *Registry) Unregister(channel contract.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.owners[channel.ID()]
	if !ok {
		return
	}
	r.remove(username, channel.ID())
}

// ChannelsFor returns a snapshot of the live channels of username.
// The slice is owned by the caller; later registry changes do not affect it.
func (r *Registry) ChannelsFor(username string) []contract.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels, ok := r.sessions[username]
	if !ok {
		return nil
	}
	snapshot := make([]contract.Channel, 0, len(channels))
	for _, channel := range channels {
		snapshot = append(snapshot, channel)
	}
	return snapshot
}

// Online counts the usernames holding at least one live channel.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Connections counts every live channel.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

func (r *Registry) remove(username, channelID string) {
	delete(r.owners, channelID)
	if channels, ok := r.sessions[username]; ok {
		delete(channels, channelID)

		// If no channel is left, remove the username entry entirely
		if len(channels) == 0 {
			delete(r.sessions, username)
		}
	}
}
