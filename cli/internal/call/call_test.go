package call

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BioHazard786/warpmeet/cli/internal/config"
	"github.com/BioHazard786/warpmeet/cli/internal/signaling"
)

func TestError(t *testing.T) {
	err := NewPeerError("handle answer", "abc", ErrUnknownPeer)
	assert.Equal(t, "handle answer abc: unknown peer", err.Error())
	assert.ErrorIs(t, err, ErrUnknownPeer)

	err = WrapError("handle signal", ErrUnexpectedSignal, "bogus")
	assert.Equal(t, "handle signal: unexpected signal type (bogus)", err.Error())

	var callErr *Error
	assert.True(t, errors.As(error(NewError("dial", ErrTimeout)), &callErr))
	assert.Equal(t, "dial", callErr.Op)
}

func TestProbeRoundTrip(t *testing.T) {
	frame, err := EncodeProbe(ProbeTypePing, PingPayload{Seq: 7, SentAt: 42})
	require.NoError(t, err)

	probe, err := DecodeProbe(frame)
	require.NoError(t, err)
	assert.Equal(t, ProbeTypePing, probe.Type)

	// A pong echoes the raw ping payload.
	echo, err := EncodeProbe(ProbeTypePong, probe.Payload)
	require.NoError(t, err)
	pong, err := DecodeProbe(echo)
	require.NoError(t, err)

	var ping PingPayload
	require.NoError(t, pong.DecodePayload(&ping))
	assert.Equal(t, PingPayload{Seq: 7, SentAt: 42}, ping)
}

func TestIsTunnelInterface(t *testing.T) {
	assert.True(t, isTunnelInterface("wg0"))
	assert.True(t, isTunnelInterface("utun3"))
	assert.True(t, isTunnelInterface("CloudflareWARP"))
	assert.False(t, isTunnelInterface("eth0"))
	assert.False(t, isTunnelInterface("en0"))
}

func TestICEConfiguration(t *testing.T) {
	cfg := &config.Config{STUNServer: config.DefaultSTUN}
	conf := ICEConfiguration(cfg)
	require.Len(t, conf.ICEServers, 1)
	assert.Equal(t, pion.ICETransportPolicyAll, conf.ICETransportPolicy)

	cfg.TURNServer = "turn.example.com"
	cfg.TURNUser = "user"
	cfg.TURNPass = "pass"
	cfg.ForceRelay = true
	conf = ICEConfiguration(cfg)
	require.Len(t, conf.ICEServers, 2)
	assert.Equal(t, "user", conf.ICEServers[1].Username)
	assert.Equal(t, pion.ICETransportPolicyRelay, conf.ICETransportPolicy)
}

type discard struct{}

func (discard) SendMessage(*signaling.Message) error { return nil }

func TestHandleSignal_Errors(t *testing.T) {
	m := NewMesh(&config.Config{}, discard{}, MeshOptions{Logger: zap.NewNop()})
	defer m.Close()

	err := m.HandleSignal(&signaling.Message{Type: signaling.MessageTypeAnswer, From: "ghost", SDP: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrUnknownPeer)

	err = m.HandleSignal(&signaling.Message{Type: signaling.MessageTypeICECandidate, From: "ghost", Candidate: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrUnknownPeer)

	err = m.HandleSignal(&signaling.Message{Type: "renegotiate", From: "ghost"})
	assert.ErrorIs(t, err, ErrUnexpectedSignal)

	err = m.HandleSignal(&signaling.Message{Type: signaling.MessageTypeOffer, From: "ghost", SDP: json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	m := NewMesh(&config.Config{}, discard{}, MeshOptions{Logger: zap.NewNop()})
	defer m.Close()

	p, err := m.addPeer("early")
	require.NoError(t, err)

	require.NoError(t, m.addCandidate(p, pion.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 5000 typ host"}))
	p.mu.Lock()
	assert.Len(t, p.pending, 1)
	p.mu.Unlock()
}

func TestRemoveAndClose(t *testing.T) {
	m := NewMesh(&config.Config{}, discard{}, MeshOptions{Logger: zap.NewNop()})

	require.NoError(t, m.Dial("b"))
	require.NoError(t, m.Dial("a"))
	peers := m.Peers()
	require.Len(t, peers, 2)
	assert.Equal(t, "a", peers[0].ID)

	m.Remove("a")
	m.Remove("a")
	assert.Len(t, m.Peers(), 1)

	m.Close()
	assert.Empty(t, m.Peers())
	assert.ErrorIs(t, m.Dial("c"), ErrMeshClosed)
}

// pipe delivers signals to another mesh in order, stamping the sender the
// way the relay does.
type pipe struct {
	from string
	ch   chan *signaling.Message
}

func (p *pipe) SendMessage(msg *signaling.Message) error {
	m := *msg
	m.From = p.from
	p.ch <- &m
	return nil
}

func (p *pipe) pump(dst *Mesh) {
	go func() {
		for msg := range p.ch {
			_ = dst.HandleSignal(msg)
		}
	}()
}

func TestMeshProbesOverDataChannel(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real peer connections")
	}

	se := pion.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)
	opts := MeshOptions{ProbeInterval: 50 * time.Millisecond, SettingEngine: &se, Logger: zap.NewNop()}

	toB := &pipe{from: "a", ch: make(chan *signaling.Message, 128)}
	toA := &pipe{from: "b", ch: make(chan *signaling.Message, 128)}
	a := NewMesh(&config.Config{}, toB, opts)
	b := NewMesh(&config.Config{}, toA, opts)
	defer a.Close()
	defer b.Close()

	toB.pump(b)
	toA.pump(a)

	require.NoError(t, a.Dial("b"))

	probed := func(m *Mesh, id string) func() bool {
		return func() bool {
			peers := m.Peers()
			return len(peers) == 1 && peers[0].ID == id && peers[0].Probes > 0
		}
	}
	require.Eventually(t, probed(a, "b"), 15*time.Second, 50*time.Millisecond)
	require.Eventually(t, probed(b, "a"), 15*time.Second, 50*time.Millisecond)

	status := a.Peers()[0]
	assert.Equal(t, pion.PeerConnectionStateConnected.String(), status.State)
	assert.Greater(t, status.RTT, time.Duration(0))
}
