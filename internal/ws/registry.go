package ws

import (
	"log/slog"
	"sync"
)

// Channel is one connected client. SendJSON must be safe for concurrent
// use; the registry calls it from whichever goroutine produced the
// message.
type Channel interface {
	SendJSON(v any) error
	Close() error
}

// Registry tracks connected channels by connection ID. A channel whose
// send fails is unregistered and closed; delivery is best effort.
type Registry struct {
	logger *slog.Logger

	mu       sync.Mutex
	channels map[string]Channel
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, channels: make(map[string]Channel)}
}

func (r *Registry) Register(id string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; ok {
		return
	}
	r.channels[id] = ch
	r.logger.Info("channel registered", "connection_id", id, "total", len(r.channels))
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return
	}
	delete(r.channels, id)
	r.logger.Info("channel unregistered", "connection_id", id, "total", len(r.channels))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// SendTo delivers one message; on failure the channel is dropped.
func (r *Registry) SendTo(id string, msg Message) bool {
	r.mu.Lock()
	ch, ok := r.channels[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	if err := ch.SendJSON(msg); err != nil {
		r.logger.Warn("send failed, dropping channel", "connection_id", id, "error", err)
		r.drop(id, ch)
		return false
	}
	return true
}

// Broadcast delivers to every channel registered at call time. Channels
// that fail mid-broadcast are dropped without affecting the rest.
func (r *Registry) Broadcast(msg Message) {
	r.mu.Lock()
	snapshot := make(map[string]Channel, len(r.channels))
	for id, ch := range r.channels {
		snapshot[id] = ch
	}
	r.mu.Unlock()

	for id, ch := range snapshot {
		if err := ch.SendJSON(msg); err != nil {
			r.logger.Warn("broadcast send failed, dropping channel", "connection_id", id, "error", err)
			r.drop(id, ch)
		}
	}
}

func (r *Registry) drop(id string, ch Channel) {
	r.mu.Lock()
	if current, ok := r.channels[id]; ok && current == ch {
		delete(r.channels, id)
	}
	r.mu.Unlock()
	_ = ch.Close()
}
