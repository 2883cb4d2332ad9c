package signaling

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("hub closed")

// Drop reasons, used as the metric label and in logs.
const (
	dropMalformed    = "malformed"
	dropUnknownKind  = "unknown_kind"
	dropUnresolved   = "unresolved_target"
	dropSendFailed   = "send_failed"
	dropRateLimited  = "rate_limited"
	dropNotOpen      = "not_open"
	dropInvalidRoom  = "invalid_room"
	dropMissingField = "missing_field"
)

type registration struct {
	transport Transport
	reply     chan registrationResult
}

type registrationResult struct {
	conn *Conn
	err  error
}

type inbound struct {
	conn *Conn
	data []byte
}

// HubOptions configures a Hub.
type HubOptions struct {
	MaxRoomCodeLength int
	// Registerer receives the hub's metrics. Nil disables them.
	Registerer prometheus.Registerer
	Logger     *zap.Logger
}

// Hub is the central brain of the signaling server. All inbound frames pass
// through its single event loop, so a connection's messages are handled in
// the order they arrived and never concurrently with each other.
type Hub struct {
	registry *Registry
	rooms    *Directory
	metrics  *Metrics
	log      *zap.Logger
	now      func() time.Time

	register   chan registration
	unregister chan *Conn
	inbound    chan inbound

	running atomic.Bool
	done    chan struct{}
}

func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		registry:   NewRegistry(),
		log:        logger.Named("signaling.hub"),
		now:        time.Now,
		register:   make(chan registration),
		unregister: make(chan *Conn, 64),
		inbound:    make(chan inbound, 256),
		done:       make(chan struct{}),
	}
	h.rooms = NewDirectory(opts.MaxRoomCodeLength, h)
	h.metrics = newMetrics(opts.Registerer, h)
	return h
}

func (h *Hub) Registry() *Registry   { return h.registry }
func (h *Hub) Directory() *Directory { return h.rooms }

// Running reports whether the event loop is accepting work.
func (h *Hub) Running() bool { return h.running.Load() }

// Connect registers a transport and waits for its identity.
func (h *Hub) Connect(t Transport) (*Conn, error) {
	reply := make(chan registrationResult, 1)
	select {
	case h.register <- registration{transport: t, reply: reply}:
	case <-h.done:
		return nil, ErrHubClosed
	}
	res := <-reply
	return res.conn, res.err
}

// Receive queues a frame read from conn.
func (h *Hub) Receive(conn *Conn, data []byte) {
	select {
	case h.inbound <- inbound{conn: conn, data: data}:
	case <-h.done:
	}
}

// Disconnect queues the cleanup of conn. It is safe to call more than once.
func (h *Hub) Disconnect(conn *Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Evict forcibly closes conn and runs the same cleanup as a normal close.
func (h *Hub) Evict(conn *Conn) {
	conn.setState(StateClosing)
	_ = conn.transport.Close()
	h.metrics.evicted()
	h.Disconnect(conn)
}

// Run processes events until ctx is done. Open transports are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
		for _, c := range h.registry.Snapshot() {
			_ = c.transport.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case reg := <-h.register:
			conn, err := h.registry.Register(reg.transport)
			if err != nil {
				h.log.Warn("register failed", zap.String("addr", reg.transport.RemoteAddr()), zap.Error(err))
			} else {
				h.log.Info("client registered", zap.String("peer", conn.ID), zap.String("addr", conn.RemoteAddr()))
			}
			reg.reply <- registrationResult{conn: conn, err: err}

		case conn := <-h.unregister:
			h.disconnect(conn)

		case in := <-h.inbound:
			h.dispatch(in.conn, in.data)
		}
	}
}

func (h *Hub) disconnect(conn *Conn) {
	if conn.State() == StateOpen {
		conn.setState(StateClosing)
	}
	if room, left := h.rooms.LeaveAll(conn.ID); left {
		h.log.Info("peer left room", zap.String("peer", conn.ID), zap.String("room", room))
	}
	if _, ok := h.registry.Deregister(conn.ID); !ok {
		return
	}
	_ = conn.transport.Close()
	h.log.Info("client unregistered", zap.String("peer", conn.ID), zap.String("addr", conn.RemoteAddr()))
}

func (h *Hub) dispatch(conn *Conn, data []byte) {
	if conn.State() != StateOpen {
		h.drop(conn, dropNotOpen, "")
		return
	}

	env, err := ParseEnvelope(data)
	if err != nil {
		h.drop(conn, dropMalformed, "", zap.Error(err))
		return
	}
	h.metrics.received(env.Type)

	switch {
	case env.IsRelay():
		h.relay(conn, env)

	case env.Type == TypeJoinRoom:
		res, err := h.rooms.Join(conn.ID, env.Room)
		if err != nil {
			h.drop(conn, dropInvalidRoom, env.Type, zap.String("room", env.Room))
			return
		}
		if res.Rejoined {
			h.log.Debug("duplicate join ignored", zap.String("peer", conn.ID), zap.String("room", res.Room))
		} else {
			h.log.Info("peer joined room", zap.String("peer", conn.ID), zap.String("room", res.Room), zap.Int("peers", len(res.Peers)))
		}
		h.send(conn, encodeJoined(res.Room, res.Peers))

	case env.Type == TypeLeaveRoom:
		var (
			room string
			left bool
		)
		if env.Room == "" {
			room, left = h.rooms.LeaveAll(conn.ID)
		} else {
			room, left = env.Room, h.rooms.Leave(conn.ID, env.Room)
		}
		if left {
			h.log.Info("peer left room", zap.String("peer", conn.ID), zap.String("room", room))
		}

	case env.Type == TypeHeartbeat:
		conn.Ack()
		h.send(conn, encodePong(h.now()))

	default:
		h.drop(conn, dropUnknownKind, env.Type)
	}
}

// relay forwards an offer, answer or candidate to its target with the
// sender's identity stamped over whatever the client claimed.
func (h *Hub) relay(from *Conn, env *Envelope) {
	if env.Target == "" {
		h.drop(from, dropMissingField, env.Type, zap.Error(ErrMissingTarget))
		return
	}
	target, ok := h.registry.Resolve(env.Target)
	if !ok {
		h.drop(from, dropUnresolved, env.Type, zap.String("target", env.Target))
		return
	}
	frame, err := env.Stamp(from.ID)
	if err != nil {
		h.drop(from, dropMalformed, env.Type, zap.Error(err))
		return
	}
	if h.send(target, frame) {
		h.metrics.relayed(env.Type)
		h.log.Debug("relayed", zap.String("type", env.Type), zap.String("from", from.ID), zap.String("target", target.ID))
	}
}

// Deliver sends a frame to the connection holding identity to.
func (h *Hub) Deliver(to string, frame []byte) bool {
	conn, ok := h.registry.Resolve(to)
	if !ok {
		h.metrics.dropped(dropUnresolved)
		h.log.Debug("delivery target gone", zap.String("target", to))
		return false
	}
	return h.send(conn, frame)
}

// send never blocks. A closed transport is scheduled for cleanup; a full
// buffer only loses this frame.
func (h *Hub) send(conn *Conn, frame []byte) bool {
	err := conn.Send(frame)
	if err == nil {
		return true
	}
	h.metrics.dropped(dropSendFailed)
	h.log.Warn("send failed", zap.String("peer", conn.ID), zap.Error(err))
	if errors.Is(err, ErrTransportClosed) && conn.State() == StateOpen {
		conn.setState(StateClosing)
		go h.Disconnect(conn)
	}
	return false
}

func (h *Hub) drop(conn *Conn, reason, kind string, fields ...zap.Field) {
	h.metrics.dropped(reason)
	fields = append([]zap.Field{
		zap.String("peer", conn.ID),
		zap.String("reason", reason),
		zap.String("type", kind),
	}, fields...)
	h.log.Info("dropped message", fields...)
}

// Stats is a point-in-time summary of the relay.
type Stats struct {
	Connections int        `json:"connections"`
	Rooms       []RoomInfo `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	return Stats{
		Connections: h.registry.Len(),
		Rooms:       h.rooms.Rooms(),
	}
}
