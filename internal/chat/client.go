package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-relay/internal/engine"
	"chat-relay/internal/metrics"
	"chat-relay/internal/middleware"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 10 * time.Second

	// File payloads travel inline as base64, so the read limit has to cover
	// a full message, not just chat text.
	maxMessageSize = 1 << 20

	sendBuffer = 256
)

// Client is one websocket session. It decodes inbound frames into engine
// events and drains the send channel the hub writes to.
type Client struct {
	ID string

	hub     *Hub
	engine  *engine.Engine
	conn    *websocket.Conn
	send    chan []byte
	limiter *middleware.RateLimiter
	log     zerolog.Logger

	lastWarning time.Time
	once        sync.Once
}

func NewClient(hub *Hub, eng *engine.Engine, conn *websocket.Conn, log zerolog.Logger) *Client {
	c := &Client{
		ID:      uuid.NewString(),
		hub:     hub,
		engine:  eng,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: middleware.NewRateLimiter(10, 100*time.Millisecond),
	}
	c.log = log.With().Str("conn", c.ID).Logger()
	return c
}

// Close tears the socket down; the read pump then runs the disconnect path.
func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// ReadPump consumes inbound frames until the connection dies, then releases
// the connection's engine footprint. Must run in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.engine.Disconnect(c.ID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("unexpected close")
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.RateLimitHits.Inc()
			if time.Since(c.lastWarning) > 3*time.Second {
				c.lastWarning = time.Now()
				c.hub.Unicast(c.ID, engine.NewEvent(engine.EvtError, engine.ErrorPayload{
					Message: "rate limit exceeded",
				}))
			}
			continue
		}

		c.engine.HandleEvent(c.ID, raw)
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings. Must run in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Fold queued events into the same frame batch.
			n := len(c.send)
			for i := 0; i < n; i++ {
				queued, ok := <-c.send
				if !ok {
					break
				}
				w.Write([]byte{'\n'})
				w.Write(queued)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
