package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// client is one live connection. Frames are queued on send and written by a
// single pump, so host calls made under a session lock never block on I/O.
type client struct {
	id       id.ConnectionID
	identity types.Identity
	conn     *websocket.Conn
	log      *zap.Logger

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, identity types.Identity, log *zap.Logger) *client {
	cid := id.NewConnectionID()
	return &client{
		id:       cid,
		identity: identity,
		conn:     conn,
		log:      log.With(zap.String("connection", cid.String())),
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// enqueue queues a frame without blocking. A client that cannot keep up is
// disconnected.
func (c *client) enqueue(msg *Outbound) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrNotConnected
	default:
		c.log.Warn("send buffer full, dropping connection")
		c.close()
		return ErrSlowClient
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
