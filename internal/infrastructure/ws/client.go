package ws

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// client owns one socket and its outbound buffer. A single goroutine writes
// to the socket.
type client struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	sock   *socket
	out    chan []byte
	once   sync.Once
	log    zerolog.Logger
}

func newClient(parent context.Context, id string, sock *socket, buffer int, log zerolog.Logger) *client {
	ctx, cancel := context.WithCancel(parent)
	return &client{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		sock:   sock,
		out:    make(chan []byte, buffer),
		log:    log,
	}
}

// send enqueues without blocking.
func (c *client) send(data []byte) error {
	select {
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
		return domain.ErrSendBufferFull
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.sock.Close()
	})
}

func (c *client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if err := c.sock.write(data); err != nil {
				c.log.Debug().Err(err).Str("conn_id", c.id).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := c.sock.ping(); err != nil {
				c.log.Debug().Err(err).Str("conn_id", c.id).Msg("ping failed")
				return
			}
		}
	}
}
