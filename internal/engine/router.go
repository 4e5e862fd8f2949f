package engine

import (
	"encoding/json"
	"sync"

	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

// HandlerFunc consumes the payload of one inbound message.
type HandlerFunc func(payload json.RawMessage)

// Router demultiplexes inbound engine messages to the handler
// registered for their type. Registration is last-write-wins per type:
// the envelope carries no correlation id, so the router is only correct
// while at most one call per capability is outstanding.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   logger.Logger
}

func NewRouter(log logger.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   log,
	}
}

// Register installs h for msgType, replacing any previous handler.
func (r *Router) Register(msgType string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = h
}

// Deregister removes the handlers for the given types.
func (r *Router) Deregister(msgTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range msgTypes {
		delete(r.handlers, t)
	}
}

// Dispatch routes one envelope. A message with no registered handler is
// dropped with a warning: the sender may have completed already or been
// superseded by a newer registration.
func (r *Router) Dispatch(env Envelope) {
	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warnf("no handler registered for engine message type %q, dropping", env.Type)
		return
	}
	h(env.Payload)
}
