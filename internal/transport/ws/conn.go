package ws

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// sendDepth bounds the outbound queue; the channel is lossy by design.
	sendDepth = 16
)

// conn is one wire-channel connection speaking for a single user.
type conn struct {
	hub      *Hub
	sock     *websocket.Conn
	userID   string
	username string
	send     chan []byte
	done     chan struct{}

	// inbound throttles command floods from a misbehaving destination.
	inbound *rate.Limiter

	closeOnce sync.Once
}

func newConn(h *Hub, sock *websocket.Conn, userID, username string) *conn {
	return &conn{
		hub:      h,
		sock:     sock,
		userID:   userID,
		username: username,
		send:     make(chan []byte, sendDepth),
		done:     make(chan struct{}),
		inbound:  rate.NewLimiter(rate.Limit(1), 5),
	}
}

// trySend queues an outbound frame. It reports false when the connection is
// closed or the queue is full; the send channel itself is never closed, so
// a racing close cannot panic a sender.
func (c *conn) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump consumes inbound frames: each is a space-separated command token
// sequence executed on behalf of the connection's user.
func (c *conn) readPump() {
	defer func() {
		c.hub.dissociate(c)
		c.close()
	}()

	c.sock.SetReadLimit(1024)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("wire channel read error", "user_id", c.userID, "err", err)
			}
			return
		}
		if !c.inbound.Allow() {
			c.hub.log.Warn("inbound command dropped by flood limiter", "user_id", c.userID)
			continue
		}

		args := strings.Fields(string(payload))
		if len(args) == 0 {
			continue
		}
		if err := c.hub.dispatcher.Dispatch(c.userID, c.username, args); err != nil {
			// Rejections already produced user feedback and, where the
			// contract requires it, a status frame.
			c.hub.log.Info("inbound command rejected", "user_id", c.userID, "reason", err)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
