package signaling

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrDisconnected = errors.New("disconnected from signaling server")

// Handler routes incoming relay messages to typed channels.
type Handler struct {
	client     *Client
	ClientID   chan string
	Joined     chan *Message
	PeerJoined chan string
	PeerLeft   chan string
	Signal     chan *Message
	Pong       chan time.Time

	// Disconnected is closed once the relay connection is gone.
	Disconnected chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:       client,
		ClientID:     make(chan string, 1),
		Joined:       make(chan *Message, 1),
		PeerJoined:   make(chan string, 16),
		PeerLeft:     make(chan string, 16),
		Signal:       make(chan *Message, 64),
		Pong:         make(chan time.Time, 4),
		Disconnected: make(chan struct{}),
		stop:         make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection ends or Close is called.
func (h *Handler) Start() {
	defer close(h.Disconnected)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case MessageTypeClientID:
			h.deliver(h.ClientID, msg.ClientID)

		case MessageTypeJoined:
			h.deliverMsg(h.Joined, msg)

		case MessageTypePeerJoined:
			h.deliver(h.PeerJoined, msg.PeerID)

		case MessageTypePeerLeft:
			h.deliver(h.PeerLeft, msg.PeerID)

		case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
			h.deliverMsg(h.Signal, msg)

		case MessageTypePong:
			// Nobody waiting for a pong is fine.
			select {
			case h.Pong <- time.UnixMilli(msg.TS):
			default:
			}

		default:
		}

		select {
		case <-h.stop:
			return
		default:
		}
	}
}

func (h *Handler) deliver(ch chan string, v string) {
	select {
	case ch <- v:
	case <-h.stop:
	}
}

func (h *Handler) deliverMsg(ch chan *Message, m *Message) {
	select {
	case ch <- m:
	case <-h.stop:
	}
}

// WaitClientID returns the identity the relay assigned to this connection.
func (h *Handler) WaitClientID(ctx context.Context) (string, error) {
	select {
	case id := <-h.ClientID:
		return id, nil
	case <-h.Disconnected:
		return "", ErrDisconnected
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Join enters room and waits for the relay's acknowledgement.
func (h *Handler) Join(ctx context.Context, room string) (*Message, error) {
	if err := h.client.SendMessage(&Message{Type: MessageTypeJoinRoom, Room: room}); err != nil {
		return nil, err
	}
	select {
	case msg := <-h.Joined:
		return msg, nil
	case <-h.Disconnected:
		return nil, ErrDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Leave leaves the current room.
func (h *Handler) Leave(room string) error {
	return h.client.SendMessage(&Message{Type: MessageTypeLeaveRoom, Room: room})
}

// Heartbeat sends a heartbeat and returns the round-trip time once the pong
// arrives.
func (h *Handler) Heartbeat(ctx context.Context) (time.Duration, error) {
	// Discard a pong left over from an earlier heartbeat.
	select {
	case <-h.Pong:
	default:
	}

	start := time.Now()
	if err := h.client.SendMessage(&Message{Type: MessageTypeHeartbeat}); err != nil {
		return 0, err
	}
	select {
	case <-h.Pong:
		return time.Since(start), nil
	case <-h.Disconnected:
		return 0, ErrDisconnected
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close stops routing. Channels are left open; wait on Disconnected instead.
func (h *Handler) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}
