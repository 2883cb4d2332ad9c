package signaling

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu      sync.Mutex
	addr    string
	frames  [][]byte
	pings   int
	closed  bool
	full    bool
	pingErr error
}

func (f *fakeTransport) Enqueue(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrTransportClosed
	}
	if f.full {
		return ErrSendBufferFull
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pingErr != nil {
		return f.pingErr
	}
	if f.closed {
		return errors.New("ping on closed transport")
	}
	f.pings++
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return f.addr }

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// messages decodes every frame received so far.
func (f *fakeTransport) messages(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(frame, &m))
		out = append(out, m)
	}
	return out
}

// ofType returns the decoded frames of one kind.
func (f *fakeTransport) ofType(t *testing.T, kind string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range f.messages(t) {
		if m["type"] == kind {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

type testHub struct {
	*Hub
	reg *prometheus.Registry
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	reg := prometheus.NewRegistry()
	return &testHub{Hub: NewHub(HubOptions{Registerer: reg}), reg: reg}
}

// connect registers a fake peer directly, bypassing the event loop.
func (h *testHub) connect(t *testing.T) (*Conn, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{addr: "10.0.0.1:5000"}
	c, err := h.registry.Register(ft)
	require.NoError(t, err)
	return c, ft
}

// handle runs one inbound frame through the router synchronously.
func (h *testHub) handle(t *testing.T, c *Conn, msg any) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	h.dispatch(c, data)
}

// drainUnregister runs any queued disconnects.
func (h *testHub) drainUnregister() {
	for {
		select {
		case c := <-h.unregister:
			h.disconnect(c)
		default:
			return
		}
	}
}

func joinMsg(room string) map[string]any {
	return map[string]any{"type": TypeJoinRoom, "room": room}
}

func peersOf(t *testing.T, m map[string]any) []string {
	t.Helper()
	raw, ok := m["peers"].([]any)
	require.True(t, ok, "peers must be an array: %v", m)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.(string))
	}
	return out
}
