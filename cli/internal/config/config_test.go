package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"WARPMEET_SERVER", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD", "WARPMEET_FORCE_RELAY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebSocketURL)
	assert.Equal(t, []string{DefaultSTUN}, cfg.GetSTUNServers())
	assert.Nil(t, cfg.GetTURNServers())
	assert.False(t, cfg.ForceRelay)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("WARPMEET_SERVER", "relay.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{STUNServer: "stun:flag.example.com:3478"})
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.example.com/ws", cfg.WebSocketURL)
	assert.Equal(t, "stun:flag.example.com:3478", cfg.STUNServer)
}

func TestLoad_ForceRelayNeedsTURN(t *testing.T) {
	clearEnv(t)

	_, err := Load(Options{ForceRelay: true})
	require.Error(t, err)

	t.Setenv("TURN_SERVER", "turn.example.com")
	t.Setenv("WARPMEET_FORCE_RELAY", "true")
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.True(t, cfg.ForceRelay)
	assert.Equal(t, []string{
		"turn:turn.example.com:3478?transport=udp",
		"turn:turn.example.com:3478?transport=tcp",
		"turns:turn.example.com:5349?transport=tcp",
	}, cfg.GetTURNServers())
}

func TestWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"localhost:9000":              "ws://localhost:9000/ws",
		"meet.example.com":            "wss://meet.example.com/ws",
		"http://10.0.0.2:8080":        "ws://10.0.0.2:8080/ws",
		"https://meet.example.com/":   "wss://meet.example.com/ws",
		"wss://meet.example.com/call": "wss://meet.example.com/call",
	}
	for in, want := range cases {
		got, err := websocketURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := websocketURL("ftp://meet.example.com")
	assert.Error(t, err)
}

func TestHTTPURL(t *testing.T) {
	cfg := &Config{WebSocketURL: "wss://meet.example.com/ws"}
	assert.Equal(t, "https://meet.example.com/stats", cfg.HTTPURL("/stats"))

	cfg.WebSocketURL = "ws://localhost:8080/ws"
	assert.Equal(t, "http://localhost:8080/stats", cfg.HTTPURL("/stats"))
}
