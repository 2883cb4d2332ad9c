package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SecondJoinerLearnsFirst(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	b, tb := h.connect(t)

	h.handle(t, a, joinMsg("Room-1"))
	joinedA := ta.ofType(t, TypeJoined)
	require.Len(t, joinedA, 1)
	assert.Empty(t, peersOf(t, joinedA[0]))
	assert.Equal(t, "room-1", joinedA[0]["room"])

	h.handle(t, b, joinMsg("room-1 "))
	joinedB := tb.ofType(t, TypeJoined)
	require.Len(t, joinedB, 1)
	assert.Equal(t, []string{a.ID}, peersOf(t, joinedB[0]))

	peerJoined := ta.ofType(t, TypePeerJoined)
	require.Len(t, peerJoined, 1)
	assert.Equal(t, b.ID, peerJoined[0]["peerId"])
	assert.Empty(t, tb.ofType(t, TypePeerJoined))
}

func TestHub_JoinedNeverListsJoiner(t *testing.T) {
	h := newTestHub(t)
	conns := make([]*Conn, 0, 4)
	transports := make([]*fakeTransport, 0, 4)
	for i := 0; i < 4; i++ {
		c, ft := h.connect(t)
		conns = append(conns, c)
		transports = append(transports, ft)
		h.handle(t, c, joinMsg("r"))
		h.handle(t, c, joinMsg("r"))
	}
	for i, ft := range transports {
		for _, m := range ft.ofType(t, TypeJoined) {
			assert.NotContains(t, peersOf(t, m), conns[i].ID)
		}
	}
}

func TestHub_DuplicateJoinDoesNotRenotify(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	b, tb := h.connect(t)
	h.handle(t, a, joinMsg("r"))
	h.handle(t, b, joinMsg("r"))
	h.handle(t, b, joinMsg("R"))
	h.handle(t, b, joinMsg("r"))

	assert.Len(t, ta.ofType(t, TypePeerJoined), 1)
	assert.Len(t, h.rooms.Members("r"), 2)
	for _, m := range tb.ofType(t, TypeJoined) {
		assert.Equal(t, []string{a.ID}, peersOf(t, m))
	}
}

func TestHub_RelayStampsSender(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	b, tb := h.connect(t)

	h.handle(t, a, map[string]any{
		"type":   TypeOffer,
		"target": b.ID,
		"from":   "someone-else",
		"sdp":    map[string]any{"type": "offer", "sdp": "v=0"},
		"extra":  42,
	})

	offers := tb.ofType(t, TypeOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, a.ID, offers[0]["from"])
	assert.Equal(t, b.ID, offers[0]["target"])
	assert.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, offers[0]["sdp"])
	assert.EqualValues(t, 42, offers[0]["extra"])
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.relayedTotal.WithLabelValues(TypeOffer)))
}

func TestHub_RelayAllKinds(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	b, tb := h.connect(t)

	h.handle(t, a, map[string]any{"type": TypeOffer, "target": b.ID})
	h.handle(t, b, map[string]any{"type": TypeAnswer, "target": a.ID})
	h.handle(t, a, map[string]any{"type": TypeICECandidate, "target": b.ID, "candidate": map[string]any{"candidate": "c1"}})
	h.handle(t, a, map[string]any{"type": TypeICECandidate, "target": b.ID, "candidate": map[string]any{"candidate": "c2"}})

	require.Len(t, ta.ofType(t, TypeAnswer), 1)
	candidates := tb.ofType(t, TypeICECandidate)
	require.Len(t, candidates, 2)
	assert.Equal(t, "c1", candidates[0]["candidate"].(map[string]any)["candidate"])
	assert.Equal(t, "c2", candidates[1]["candidate"].(map[string]any)["candidate"])
}

func TestHub_RelayToMissingTargetIsSilent(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	h.handle(t, a, joinMsg("r"))
	ta.reset()
	roomsBefore := h.rooms.Rooms()

	h.handle(t, a, map[string]any{"type": TypeOffer, "target": "gone", "sdp": "x"})

	assert.Empty(t, ta.messages(t))
	assert.Equal(t, roomsBefore, h.rooms.Rooms())
	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropUnresolved)))
}

func TestHub_RelayWithoutTargetIsDropped(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	ta.reset()

	h.handle(t, a, map[string]any{"type": TypeAnswer, "sdp": "x"})

	assert.Empty(t, ta.messages(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropMissingField)))
}

func TestHub_MalformedAndUnknownKeepConnectionOpen(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	ta.reset()

	h.dispatch(a, []byte("{not json"))
	h.dispatch(a, []byte(`["array"]`))
	h.dispatch(a, []byte(`{"room":"r"}`))
	h.dispatch(a, []byte(`{"type":"join-room","room":7}`))
	h.handle(t, a, map[string]any{"type": "chat-message", "text": "hi"})
	h.handle(t, a, joinMsg("   "))

	assert.Empty(t, ta.messages(t))
	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, 4.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropUnknownKind)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropInvalidRoom)))

	h.handle(t, a, joinMsg("r"))
	assert.Len(t, ta.ofType(t, TypeJoined), 1)
}

func TestHub_HeartbeatRepliesWithPong(t *testing.T) {
	h := newTestHub(t)
	now := time.UnixMilli(1_700_000_000_000)
	h.now = func() time.Time { return now }
	a, ta := h.connect(t)
	a.awaitingAck.Store(true)

	h.handle(t, a, map[string]any{"type": TypeHeartbeat})

	pongs := ta.ofType(t, TypePong)
	require.Len(t, pongs, 1)
	assert.EqualValues(t, now.UnixMilli(), pongs[0]["ts"])
	assert.False(t, a.awaitingAck.Load())
	assert.Equal(t, 0, h.rooms.Len())
}

func TestHub_CloseSoleMemberRemovesRoom(t *testing.T) {
	h := newTestHub(t)
	a, ta := h.connect(t)
	h.handle(t, a, joinMsg("r"))
	ta.reset()

	h.disconnect(a)

	assert.Equal(t, 0, h.rooms.Len())
	assert.Equal(t, 0, h.registry.Len())
	assert.True(t, ta.isClosed())
	assert.Empty(t, ta.messages(t))
}

func TestHub_CloseNotifiesRemainingMember(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	b, tb := h.connect(t)
	h.handle(t, a, joinMsg("r"))
	h.handle(t, b, joinMsg("r"))
	tb.reset()

	h.disconnect(a)
	h.disconnect(a)

	left := tb.ofType(t, TypePeerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, a.ID, left[0]["peerId"])
	assert.Equal(t, "r", left[0]["room"])
	assert.Equal(t, []string{b.ID}, h.rooms.Members("r"))
}

func TestHub_ExplicitLeaveThenCloseNotifiesOnce(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	b, tb := h.connect(t)
	h.handle(t, a, joinMsg("r"))
	h.handle(t, b, joinMsg("r"))
	tb.reset()

	h.handle(t, a, map[string]any{"type": TypeLeaveRoom, "room": "R"})
	h.handle(t, a, map[string]any{"type": TypeLeaveRoom, "room": "r"})
	h.disconnect(a)

	assert.Len(t, tb.ofType(t, TypePeerLeft), 1)
}

func TestHub_LeaveWithoutRoomLeavesCurrent(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	h.handle(t, a, joinMsg("r"))

	h.handle(t, a, map[string]any{"type": TypeLeaveRoom})

	_, ok := h.rooms.RoomOf(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, h.rooms.Len())
}

func TestHub_RelayAfterCloseIsNotFound(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	b, tb := h.connect(t)
	h.disconnect(b)

	h.handle(t, a, map[string]any{"type": TypeOffer, "target": b.ID})

	assert.Empty(t, tb.ofType(t, TypeOffer))
}

func TestHub_FullBufferDropsFrameOnly(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	b, tb := h.connect(t)
	tb.full = true

	h.handle(t, a, map[string]any{"type": TypeOffer, "target": b.ID})

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropSendFailed)))
}

func TestHub_MessagesFromClosingConnectionAreDropped(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.connect(t)
	a.setState(StateClosing)

	h.handle(t, a, joinMsg("r"))

	assert.Equal(t, 0, h.rooms.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.droppedTotal.WithLabelValues(dropNotOpen)))
}

func TestHub_RunLoop(t *testing.T) {
	h := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	ta := &fakeTransport{addr: "a"}
	a, err := h.Connect(ta)
	require.NoError(t, err)
	tb := &fakeTransport{addr: "b"}
	b, err := h.Connect(tb)
	require.NoError(t, err)

	h.Receive(a, []byte(`{"type":"join-room","room":"r"}`))
	h.Receive(b, []byte(`{"type":"join-room","room":"r"}`))
	require.Eventually(t, func() bool {
		return len(ta.ofType(t, TypePeerJoined)) == 1
	}, time.Second, 5*time.Millisecond)

	// A dead transport discovered on send is cleaned up like a close.
	_ = tb.Close()
	h.Receive(a, []byte(`{"type":"offer","target":"`+b.ID+`"}`))
	require.Eventually(t, func() bool {
		_, ok := h.registry.Resolve(b.ID)
		return !ok && h.registry.Len() == 1
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(ta.ofType(t, TypePeerLeft)) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
	assert.True(t, ta.isClosed())
	assert.False(t, h.Running())

	_, err = h.Connect(&fakeTransport{})
	assert.ErrorIs(t, err, ErrHubClosed)
}
