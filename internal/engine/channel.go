package engine

import (
	"fmt"
	"sync"

	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

// Conn is the subset of *websocket.Conn the channel needs. Tests
// substitute an in-memory implementation.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// channel is the duplex message link to one running engine. Writes are
// serialized under a mutex; reads happen on a single loop goroutine
// that feeds the router. The supervisor owns at most one live channel.
type channel struct {
	conn    Conn
	router  *Router
	logger  logger.Logger
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func newChannel(conn Conn, router *Router, log logger.Logger) *channel {
	return &channel{
		conn:   conn,
		router: router,
		logger: log,
		closed: make(chan struct{}),
	}
}

// run reads envelopes until the connection dies, then reports the read
// error through onClose. onClose is not called after Close().
func (c *channel) run(onClose func(err error)) {
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.closed:
				// requested close, not a crash
			default:
				c.logger.Warnf("engine channel read failed: %v", err)
				c.Close()
				onClose(err)
			}
			return
		}
		c.router.Dispatch(env)
	}
}

func (c *channel) Send(msgType string, payload interface{}) error {
	select {
	case <-c.closed:
		return fmt.Errorf("engine channel is closed")
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"payload": payload,
	})
}

func (c *channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
