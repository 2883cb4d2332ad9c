package signaling

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	DefaultMaxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages

	DefaultSendBuffer = 256
)

var (
	ErrSendBufferFull  = errors.New("send buffer full")
	ErrTransportClosed = errors.New("transport closed")
)

// ClientOptions tunes a websocket client.
type ClientOptions struct {
	SendBuffer     int
	MaxMessageSize int64
	// MessagesPerSecond limits inbound frames; zero disables the limit.
	MessagesPerSecond float64
	Burst             int
}

// Client is a wrapper for a single websocket connection (a peer). It is the
// Transport the hub writes to.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	peer *Conn
	log  *zap.Logger

	maxMessageSize int64
	limiter        *rate.Limiter

	// send is a buffered channel for all outbound frames. WritePump is its
	// only reader.
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// ServeClient registers the websocket with the hub and starts its pumps.
func ServeClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) (*Client, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	c := &Client{
		hub:            hub,
		conn:           conn,
		log:            hub.log,
		maxMessageSize: opts.MaxMessageSize,
		send:           make(chan []byte, opts.SendBuffer),
	}
	if opts.MessagesPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.MessagesPerSecond)
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), max(burst, 1))
	}

	peer, err := hub.Connect(c)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.peer = peer

	go c.WritePump()
	go c.ReadPump()
	return c, nil
}

// Enqueue implements Transport.
func (c *Client) Enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrTransportClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Ping implements Transport. WriteControl may run alongside WritePump.
func (c *Client) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close implements Transport. WritePump sends a close frame and then
// releases the connection, which also unblocks ReadPump.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c.peer)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.peer.Ack()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Info("read failed", zap.String("peer", c.peer.ID), zap.Error(err))
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.hub.drop(c.peer, dropRateLimited, "")
			continue
		}
		c.hub.Receive(c.peer, data)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.log.Info("write failed", zap.String("peer", c.peer.ID), zap.Error(err))
			return
		}
	}

	// The hub closed the channel.
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
