package call

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/BioHazard786/warpmeet/cli/internal/config"
	"github.com/BioHazard786/warpmeet/cli/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/version"
)

const (
	DefaultProbeInterval     = time.Second
	DefaultHeartbeatInterval = 10 * time.Second
)

// Signaler sends messages to the relay. *signaling.Client implements it.
type Signaler interface {
	SendMessage(msg *signaling.Message) error
}

// MeshOptions configures a Mesh.
type MeshOptions struct {
	ProbeInterval     time.Duration
	HeartbeatInterval time.Duration
	// SettingEngine customizes pion, e.g. to allow loopback candidates.
	SettingEngine *pion.SettingEngine
	Logger        *zap.Logger
}

// PeerStatus is a snapshot of one remote peer.
type PeerStatus struct {
	ID     string
	Device string
	State  string
	RTT    time.Duration
	Probes int
}

// Mesh holds one PeerConnection per remote member of the room. The member
// that joins later sends the offer, so every pair negotiates exactly once.
type Mesh struct {
	cfg      *config.Config
	api      *pion.API
	signaler Signaler
	log      *zap.Logger
	opts     MeshOptions

	mu       sync.Mutex
	peers    map[string]*peer
	relayRTT time.Duration
	closed   bool
}

type peer struct {
	id   string
	pc   *pion.PeerConnection
	stop chan struct{}

	mu      sync.Mutex
	dc      *pion.DataChannel
	pending []pion.ICECandidateInit
	state   pion.PeerConnectionState
	device  string
	rtt     time.Duration
	probes  int
	seq     uint32
	stopped bool
}

func NewMesh(cfg *config.Config, signaler Signaler, opts MeshOptions) *Mesh {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = DefaultProbeInterval
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}

	var apiOpts []func(*pion.API)
	if opts.SettingEngine != nil {
		apiOpts = append(apiOpts, pion.WithSettingEngine(*opts.SettingEngine))
	}

	return &Mesh{
		cfg:      cfg,
		api:      pion.NewAPI(apiOpts...),
		signaler: signaler,
		log:      logger.Named("call.mesh"),
		opts:     opts,
		peers:    make(map[string]*peer),
	}
}

// Run dials every existing member and then handles relay events until ctx is
// done or the relay connection drops.
func (m *Mesh) Run(ctx context.Context, h *signaling.Handler, existing []string) error {
	for _, id := range existing {
		if err := m.Dial(id); err != nil {
			m.log.Warn("dial failed", zap.String("peer", id), zap.Error(err))
		}
	}

	heartbeat := time.NewTicker(m.opts.HeartbeatInterval)
	defer heartbeat.Stop()
	var heartbeatSent time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-h.Disconnected:
			return NewError("signaling", signaling.ErrDisconnected)

		case id := <-h.PeerJoined:
			// The newcomer sends the offer.
			m.log.Debug("peer joined", zap.String("peer", id))

		case id := <-h.PeerLeft:
			m.Remove(id)

		case msg := <-h.Signal:
			if err := m.HandleSignal(msg); err != nil {
				m.log.Warn("signal failed", zap.String("type", msg.Type), zap.String("peer", msg.From), zap.Error(err))
			}

		case <-heartbeat.C:
			heartbeatSent = time.Now()
			if err := m.signaler.SendMessage(&signaling.Message{Type: signaling.MessageTypeHeartbeat}); err != nil {
				return NewError("heartbeat", err)
			}

		case <-h.Pong:
			if !heartbeatSent.IsZero() {
				m.mu.Lock()
				m.relayRTT = time.Since(heartbeatSent)
				m.mu.Unlock()
			}
		}
	}
}

// Dial creates a connection to id and sends it an offer.
func (m *Mesh) Dial(id string) error {
	p, err := m.addPeer(id)
	if err != nil {
		return err
	}

	dc, err := CreateProbeChannel(p.pc)
	if err != nil {
		m.Remove(id)
		return err
	}
	m.attachChannel(p, dc)

	offer, err := CreateOffer(p.pc)
	if err != nil {
		m.Remove(id)
		return err
	}
	return m.sendDescription(signaling.MessageTypeOffer, id, offer)
}

// HandleSignal applies an offer, answer or ICE candidate relayed from a peer.
func (m *Mesh) HandleSignal(msg *signaling.Message) error {
	switch msg.Type {
	case signaling.MessageTypeOffer:
		var offer pion.SessionDescription
		if err := json.Unmarshal(msg.SDP, &offer); err != nil {
			return NewPeerError("decode offer", msg.From, err)
		}
		p, err := m.addPeer(msg.From)
		if err != nil {
			return err
		}
		answer, err := CreateAnswer(p.pc, offer)
		if err != nil {
			return err
		}
		m.flushCandidates(p)
		return m.sendDescription(signaling.MessageTypeAnswer, msg.From, answer)

	case signaling.MessageTypeAnswer:
		p, ok := m.lookup(msg.From)
		if !ok {
			return NewPeerError("handle answer", msg.From, ErrUnknownPeer)
		}
		var answer pion.SessionDescription
		if err := json.Unmarshal(msg.SDP, &answer); err != nil {
			return NewPeerError("decode answer", msg.From, err)
		}
		if err := p.pc.SetRemoteDescription(answer); err != nil {
			return NewPeerError("set remote description", msg.From, err)
		}
		m.flushCandidates(p)
		return nil

	case signaling.MessageTypeICECandidate:
		p, ok := m.lookup(msg.From)
		if !ok {
			return NewPeerError("handle candidate", msg.From, ErrUnknownPeer)
		}
		var candidate pion.ICECandidateInit
		if err := json.Unmarshal(msg.Candidate, &candidate); err != nil {
			return NewPeerError("decode candidate", msg.From, err)
		}
		return m.addCandidate(p, candidate)
	}
	return WrapError("handle signal", ErrUnexpectedSignal, msg.Type)
}

// Remove closes the connection to id, if any.
func (m *Mesh) Remove(id string) {
	m.mu.Lock()
	p, ok := m.peers[id]
	delete(m.peers, id)
	m.mu.Unlock()
	if ok {
		p.close()
	}
}

// Peers returns the status of every remote peer ordered by identity.
func (m *Mesh) Peers() []PeerStatus {
	m.mu.Lock()
	list := make([]*peer, 0, len(m.peers))
	for _, p := range m.peers {
		list = append(list, p)
	}
	m.mu.Unlock()

	out := make([]PeerStatus, 0, len(list))
	for _, p := range list {
		p.mu.Lock()
		out = append(out, PeerStatus{
			ID:     p.id,
			Device: p.device,
			State:  p.state.String(),
			RTT:    p.rtt,
			Probes: p.probes,
		})
		p.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RelayRTT is the last heartbeat round trip to the relay.
func (m *Mesh) RelayRTT() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relayRTT
}

// Close tears down every peer connection.
func (m *Mesh) Close() {
	m.mu.Lock()
	m.closed = true
	peers := m.peers
	m.peers = make(map[string]*peer)
	m.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

func (m *Mesh) lookup(id string) (*peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[id]
	return p, ok
}

// addPeer returns the existing peer for id or creates a new connection.
func (m *Mesh) addPeer(id string) (*peer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrMeshClosed
	}
	if p, ok := m.peers[id]; ok {
		return p, nil
	}

	pc, err := NewPeerConnection(m.api, m.cfg)
	if err != nil {
		return nil, err
	}
	p := &peer{id: id, pc: pc, stop: make(chan struct{}), state: pion.PeerConnectionStateNew}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		_ = m.signaler.SendMessage(&signaling.Message{
			Type:      signaling.MessageTypeICECandidate,
			Target:    id,
			Candidate: raw,
		})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		p.mu.Lock()
		p.state = state
		p.mu.Unlock()
		m.log.Debug("peer connection state", zap.String("peer", id), zap.String("state", state.String()))
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == probeChannelLabel {
			m.attachChannel(p, dc)
		}
	})

	m.peers[id] = p
	return p, nil
}

func (m *Mesh) sendDescription(kind, target string, desc *pion.SessionDescription) error {
	raw, err := json.Marshal(desc)
	if err != nil {
		return NewPeerError("encode "+kind, target, err)
	}
	if err := m.signaler.SendMessage(&signaling.Message{Type: kind, Target: target, SDP: raw}); err != nil {
		return NewPeerError("send "+kind, target, err)
	}
	return nil
}

// addCandidate queues candidates that arrive before the remote description.
func (m *Mesh) addCandidate(p *peer, c pion.ICECandidateInit) error {
	p.mu.Lock()
	if p.pc.RemoteDescription() == nil {
		p.pending = append(p.pending, c)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(c); err != nil {
		return NewPeerError("add ICE candidate", p.id, err)
	}
	return nil
}

func (m *Mesh) flushCandidates(p *peer) {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, c := range pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			m.log.Debug("add queued candidate", zap.String("peer", p.id), zap.Error(err))
		}
	}
}

func (m *Mesh) attachChannel(p *peer, dc *pion.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		m.sendHello(p)
		go m.probeLoop(p)
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		m.handleProbe(p, msg.Data)
	})
}

func (m *Mesh) sendHello(p *peer) {
	name, _ := os.Hostname()
	frame, err := EncodeProbe(ProbeTypeHello, HelloPayload{DeviceName: name, DeviceVersion: version.Version})
	if err != nil {
		return
	}
	_ = p.send(frame)
}

func (m *Mesh) probeLoop(p *peer) {
	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		p.seq++
		seq := p.seq
		p.mu.Unlock()

		frame, err := EncodeProbe(ProbeTypePing, PingPayload{Seq: seq, SentAt: time.Now().UnixNano()})
		if err == nil {
			if err := p.send(frame); err != nil {
				m.log.Debug("probe send failed", zap.String("peer", p.id), zap.Error(err))
			}
		}

		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

func (m *Mesh) handleProbe(p *peer, data []byte) {
	probe, err := DecodeProbe(data)
	if err != nil {
		m.log.Debug("bad probe", zap.String("peer", p.id), zap.Error(err))
		return
	}

	switch probe.Type {
	case ProbeTypeHello:
		var hello HelloPayload
		if err := probe.DecodePayload(&hello); err != nil {
			return
		}
		p.mu.Lock()
		p.device = hello.DeviceName
		p.mu.Unlock()

	case ProbeTypePing:
		// Echo the payload untouched so the sender measures with its own clock.
		frame, err := EncodeProbe(ProbeTypePong, probe.Payload)
		if err != nil {
			return
		}
		_ = p.send(frame)

	case ProbeTypePong:
		var ping PingPayload
		if err := probe.DecodePayload(&ping); err != nil {
			return
		}
		rtt := time.Since(time.Unix(0, ping.SentAt))
		p.mu.Lock()
		p.rtt = rtt
		p.probes++
		p.mu.Unlock()
	}
}

func (p *peer) send(frame []byte) error {
	p.mu.Lock()
	dc := p.dc
	p.mu.Unlock()
	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.Send(frame)
}

func (p *peer) close() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	p.mu.Unlock()
	_ = p.pc.Close()
}
