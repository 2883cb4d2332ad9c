package signaling

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Transport is the outbound half of one peer connection.
type Transport interface {
	// Enqueue hands a frame to the connection's writer. It must not block.
	Enqueue(frame []byte) error
	// Ping sends a liveness probe.
	Ping() error
	// Close tears the transport down. Safe to call more than once.
	Close() error
	RemoteAddr() string
}

// ConnState is the lifecycle of a connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is a registered connection and its server-assigned identity.
type Conn struct {
	ID          string
	ConnectedAt time.Time

	transport Transport
	state     atomic.Int32

	// awaitingAck is set when a probe goes out and cleared by any ack.
	awaitingAck atomic.Bool
	lastAck     atomic.Time
}

func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Conn) setState(s ConnState) {
	c.state.Store(int32(s))
}

// Send queues a frame for the peer.
func (c *Conn) Send(frame []byte) error {
	return c.transport.Enqueue(frame)
}

func (c *Conn) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Ack records a liveness acknowledgment from the peer.
func (c *Conn) Ack() {
	c.awaitingAck.Store(false)
	c.lastAck.Store(time.Now())
}

// LastAck returns the time of the most recent acknowledgment.
func (c *Conn) LastAck() time.Time {
	return c.lastAck.Load()
}

// Registry maps identities to live connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
		newID: uuid.NewString,
	}
}

// Register assigns a fresh identity to the transport and sends it to the
// peer as the first frame on the connection.
func (r *Registry) Register(t Transport) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = r.newID()
	}

	now := time.Now()
	c := &Conn{ID: id, ConnectedAt: now, transport: t}
	c.lastAck.Store(now)
	c.setState(StateConnecting)

	if err := t.Enqueue(encodeClientID(id)); err != nil {
		c.setState(StateClosed)
		return nil, err
	}

	c.setState(StateOpen)
	r.conns[id] = c
	return c, nil
}

// Resolve returns the open connection with the given identity.
func (r *Registry) Resolve(id string) (*Conn, bool) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok || c.State() != StateOpen {
		return nil, false
	}
	return c, true
}

// Deregister removes the identity. Removing an absent identity is a no-op.
func (r *Registry) Deregister(id string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	c.setState(StateClosed)
	return c, true
}

// Snapshot returns the registered connections in no particular order.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
