package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 12 * time.Second
	pingPeriod     = 3 * time.Second // must be < pongWait
	maxMessageSize = 4096
)

// Conn wraps one websocket connection. The company identity is fixed at
// handshake time and never changes for the connection's lifetime. Outbound
// frames go through a bounded queue drained by writePump; a publisher never
// blocks on a slow socket.
type Conn struct {
	ID        string
	CompanyID string

	sock *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(sock *websocket.Conn, companyID string, queueSize int) *Conn {
	return &Conn{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		sock:      sock,
		send:      make(chan []byte, queueSize),
		done:      make(chan struct{}),
	}
}

// enqueue hands a frame to the writer pump without blocking. A saturated or
// closing connection loses the frame; the caller decides whether to log it.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		if c.sock != nil {
			_ = c.sock.Close()
		}
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
