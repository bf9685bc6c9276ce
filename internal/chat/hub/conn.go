package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 5 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// websocket max message size to read.
	readLimit = 64 << 10
)

// Conn is a websocket-backed Session. Frames queue on a bounded channel that
// WritePump drains; Deliver never blocks.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	log    zerolog.Logger
}

func NewConn(ws *websocket.Conn, userID string, buffer int, log zerolog.Logger) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	id := uuid.NewString()
	connectionsOpen.Inc()
	return &Conn{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		log:    log.With().Str("session_id", id).Str("user_id", userID).Logger(),
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

func (c *Conn) Deliver(frame []byte) error {
	select {
	case <-c.done:
		return ErrSessionClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close stops both pumps. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		connectionsOpen.Dec()
	})
}

// Done is closed once the session is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// ReadPump hands every text frame to handle until the peer goes away or the
// session is closed. It closes the session on return.
func (c *Conn) ReadPump(handle func(frame []byte)) {
	defer c.Close()

	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(frame)
	}
}

// WritePump drains the outbound queue and keeps the connection alive with pings.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("write error")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
