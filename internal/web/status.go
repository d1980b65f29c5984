package web

import (
	"sync"
)

type BotStatus string

const (
	StatusStarting     BotStatus = "starting"
	StatusConnected    BotStatus = "connected"
	StatusDisconnected BotStatus = "disconnected"
	StatusError        BotStatus = "error"
)

type StatusInfo struct {
	Status  BotStatus `json:"status"`
	Message string    `json:"message,omitempty"`
	Guilds  int       `json:"guilds,omitempty"`
}

// StatusBroadcaster holds the bot's connection state and pushes changes to
// subscribers without blocking on slow ones.
type StatusBroadcaster struct {
	status    StatusInfo
	listeners []chan StatusInfo
	mu        sync.RWMutex
}

func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		status: StatusInfo{
			Status:  StatusStarting,
			Message: "Starting up...",
		},
	}
}

func (b *StatusBroadcaster) GetStatus() StatusInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *StatusBroadcaster) SetStatus(status BotStatus, message string) {
	b.mu.Lock()
	b.status = StatusInfo{
		Status:  status,
		Message: message,
		Guilds:  b.status.Guilds,
	}
	current := b.status
	b.mu.Unlock()

	b.broadcast(current)
}

func (b *StatusBroadcaster) SetConnected(guilds int) {
	b.mu.Lock()
	b.status = StatusInfo{
		Status:  StatusConnected,
		Message: "Connected to Discord",
		Guilds:  guilds,
	}
	current := b.status
	b.mu.Unlock()

	b.broadcast(current)
}

func (b *StatusBroadcaster) Subscribe() chan StatusInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan StatusInfo, 10)
	b.listeners = append(b.listeners, ch)
	ch <- b.status
	return ch
}

func (b *StatusBroadcaster) Unsubscribe(ch chan StatusInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *StatusBroadcaster) broadcast(status StatusInfo) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.listeners {
		select {
		case ch <- status:
		default:
		}
	}
}
