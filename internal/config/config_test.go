package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/warpmeet/internal/signaling"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, signaling.DefaultLivenessInterval, cfg.LivenessInterval)
	assert.Equal(t, signaling.DefaultSendBuffer, cfg.SendBuffer)
	assert.EqualValues(t, signaling.DefaultMaxMessageSize, cfg.MaxMessageBytes)
	assert.Equal(t, signaling.DefaultMaxRoomCodeLength, cfg.MaxRoomCodeLength)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, DefaultDrainDelay, cfg.DrainDelay)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warpmeet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
liveness_interval: 45s
send_buffer: 32
allowed_origins:
  - https://meet.example.com
`), 0o600))

	t.Setenv("WARPMEET_SEND_BUFFER", "64")
	t.Setenv("WARPMEET_LOG_LEVEL", "debug")

	cfg, err := Load(path, newFlags(t, "--listen-addr", "127.0.0.1:7000"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr, "flag beats file")
	assert.Equal(t, 45*time.Second, cfg.LivenessInterval, "file beats default")
	assert.Equal(t, 64, cfg.SendBuffer, "env beats file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://meet.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.LivenessInterval = 0
	bad.SendBuffer = -1
	bad.LogFormat = "xml"
	bad.DrainDelay = -time.Second
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "liveness_interval")
	assert.Contains(t, err.Error(), "send_buffer")
	assert.Contains(t, err.Error(), "log_format")
	assert.Contains(t, err.Error(), "drain_delay")
}

func TestClientOptions(t *testing.T) {
	cfg := &Config{SendBuffer: 8, MaxMessageBytes: 1024, MaxMessagesPerSecond: 5, MessageBurst: 10}
	assert.Equal(t, signaling.ClientOptions{
		SendBuffer:        8,
		MaxMessageSize:    1024,
		MessagesPerSecond: 5,
		Burst:             10,
	}, cfg.ClientOptions())
}
