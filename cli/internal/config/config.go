package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Default configuration values (local development)
const (
	DefaultServer   = "localhost:8080"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""
)

// Config holds CLI configuration
type Config struct {
	// Server is the relay address. Either host[:port] or a full
	// ws://, wss://, http:// or https:// URL.
	Server string

	// WebSocketURL is derived from Server
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN candidates
	ForceRelay bool
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := firstNonEmpty(opts.Server, os.Getenv("WARPMEET_SERVER"), DefaultServer)
	stunServer := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	forceRelay := opts.ForceRelay
	if !forceRelay {
		if v := os.Getenv("WARPMEET_FORCE_RELAY"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("WARPMEET_FORCE_RELAY: %w", err)
			}
			forceRelay = b
		}
	}

	wsURL, err := websocketURL(server)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:       server,
		WebSocketURL: wsURL,
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   forceRelay,
	}
	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// websocketURL turns a server address into the relay's /ws endpoint. Bare
// hosts use ws:// for localhost and wss:// otherwise.
func websocketURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		scheme := "wss"
		host := server
		if h, _, found := strings.Cut(host, ":"); found {
			host = h
		}
		if host == "localhost" || host == "127.0.0.1" {
			scheme = "ws"
		}
		server = scheme + "://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", server, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server address %q: unsupported scheme %q", server, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server address %q: missing host", server)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// HTTPURL returns the relay's HTTP URL for path, e.g. /stats.
func (c *Config) HTTPURL(path string) string {
	u, err := url.Parse(c.WebSocketURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = path
	return u.String()
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
