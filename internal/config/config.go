package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BioHazard786/warpmeet/internal/signaling"
)

// Config keys. Each is also settable as WARPMEET_<KEY> and --<key with dashes>.
const (
	KeyListenAddr           = "listen_addr"
	KeyLivenessInterval     = "liveness_interval"
	KeySendBuffer           = "send_buffer"
	KeyMaxMessageBytes      = "max_message_bytes"
	KeyMaxMessagesPerSecond = "max_messages_per_second"
	KeyMessageBurst         = "message_burst"
	KeyMaxRoomCodeLength    = "max_room_code_length"
	KeyAllowedOrigins       = "allowed_origins"
	KeyLogLevel             = "log_level"
	KeyLogFormat            = "log_format"
	KeyShutdownTimeout      = "shutdown_timeout"
	KeyDrainDelay           = "drain_delay"
)

const envPrefix = "WARPMEET"

// Default configuration values
const (
	DefaultListenAddr           = ":8080"
	DefaultMaxMessagesPerSecond = 50
	DefaultMessageBurst         = 100
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "console"
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultDrainDelay           = 2 * time.Second
)

// Config holds the relay server configuration
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	// LivenessInterval is the probe period of the liveness monitor.
	LivenessInterval time.Duration `mapstructure:"liveness_interval"`

	SendBuffer           int     `mapstructure:"send_buffer"`
	MaxMessageBytes      int64   `mapstructure:"max_message_bytes"`
	MaxMessagesPerSecond float64 `mapstructure:"max_messages_per_second"`
	MessageBurst         int     `mapstructure:"message_burst"`
	MaxRoomCodeLength    int     `mapstructure:"max_room_code_length"`

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DrainDelay is how long /readyz reports 503 before the listener closes.
	DrainDelay time.Duration `mapstructure:"drain_delay"`
}

// RegisterFlags adds a flag per config key.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(flagName(KeyListenAddr), DefaultListenAddr, "address to listen on")
	fs.Duration(flagName(KeyLivenessInterval), signaling.DefaultLivenessInterval, "liveness probe interval")
	fs.Int(flagName(KeySendBuffer), signaling.DefaultSendBuffer, "outbound frames buffered per connection")
	fs.Int64(flagName(KeyMaxMessageBytes), signaling.DefaultMaxMessageSize, "largest accepted inbound frame")
	fs.Float64(flagName(KeyMaxMessagesPerSecond), DefaultMaxMessagesPerSecond, "inbound frames per second per connection (0 disables)")
	fs.Int(flagName(KeyMessageBurst), DefaultMessageBurst, "inbound frame burst per connection")
	fs.Int(flagName(KeyMaxRoomCodeLength), signaling.DefaultMaxRoomCodeLength, "longest accepted room code")
	fs.StringSlice(flagName(KeyAllowedOrigins), nil, "origins allowed to open a websocket (empty allows all)")
	fs.String(flagName(KeyLogLevel), DefaultLogLevel, "log level: debug, info, warn, error")
	fs.String(flagName(KeyLogFormat), DefaultLogFormat, "log format: console or json")
	fs.Duration(flagName(KeyShutdownTimeout), DefaultShutdownTimeout, "graceful shutdown timeout")
	fs.Duration(flagName(KeyDrainDelay), DefaultDrainDelay, "time spent reporting not-ready before closing the listener")
}

// Load reads configuration with the following priority:
// 1. CLI flags - highest priority
// 2. Environment variables (WARPMEET_*)
// 3. Config file, when path is set
// 4. Defaults - lowest priority
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var defaults = map[string]any{
	KeyListenAddr:           DefaultListenAddr,
	KeyLivenessInterval:     signaling.DefaultLivenessInterval,
	KeySendBuffer:           signaling.DefaultSendBuffer,
	KeyMaxMessageBytes:      signaling.DefaultMaxMessageSize,
	KeyMaxMessagesPerSecond: DefaultMaxMessagesPerSecond,
	KeyMessageBurst:         DefaultMessageBurst,
	KeyMaxRoomCodeLength:    signaling.DefaultMaxRoomCodeLength,
	KeyAllowedOrigins:       []string{},
	KeyLogLevel:             DefaultLogLevel,
	KeyLogFormat:            DefaultLogFormat,
	KeyShutdownTimeout:      DefaultShutdownTimeout,
	KeyDrainDelay:           DefaultDrainDelay,
}

func setDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Validate rejects settings the relay cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	if c.LivenessInterval <= 0 {
		errs = append(errs, errors.New("liveness_interval must be positive"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("max_message_bytes must be positive"))
	}
	if c.MaxMessagesPerSecond < 0 {
		errs = append(errs, errors.New("max_messages_per_second must not be negative"))
	}
	if c.MaxRoomCodeLength <= 0 {
		errs = append(errs, errors.New("max_room_code_length must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.DrainDelay < 0 {
		errs = append(errs, errors.New("drain_delay must not be negative"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be console or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ClientOptions returns the per-connection settings.
func (c *Config) ClientOptions() signaling.ClientOptions {
	return signaling.ClientOptions{
		SendBuffer:        c.SendBuffer,
		MaxMessageSize:    c.MaxMessageBytes,
		MessagesPerSecond: c.MaxMessagesPerSecond,
		Burst:             c.MessageBurst,
	}
}
