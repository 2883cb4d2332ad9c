package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/version"
)

// Server is the HTTP surface of the relay: the websocket endpoint plus
// health, stats and metrics.
type Server struct {
	hub      *signaling.Hub
	cfg      *config.Config
	log      *zap.Logger
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	draining atomic.Bool

	mux *http.ServeMux
	srv *http.Server
}

func New(cfg *config.Config, hub *signaling.Hub, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		hub:      hub,
		cfg:      cfg,
		log:      logger.Named("server"),
		gatherer: gatherer,
		mux:      http.NewServeMux(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	s.registerRoutes()

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           chain(s.mux, recoverMiddleware(s.log), requestIDMiddleware(), requestLoggerMiddleware(s.log)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Serve(l net.Listener) error {
	s.log.Info("http server serving", zap.String("addr", l.Addr().String()))
	return s.srv.Serve(l)
}

// Drain makes /readyz report 503 while the listener keeps serving.
func (s *Server) Drain() {
	if s.draining.CompareAndSwap(false, true) {
		s.log.Info("draining")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.Drain()
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Signaling server is healthy."))
	})

	s.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.draining.Load() || !s.hub.Running() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
	})

	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"version": version.Version})
	})

	s.mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.hub.Stats())
	})

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.mux.HandleFunc("/ws", s.serveWs)
}

// serveWs upgrades the request and hands the connection to the hub.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("failed to upgrade connection", zap.String("addr", r.RemoteAddr), zap.Error(err))
		return
	}

	if _, err := signaling.ServeClient(s.hub, conn, s.cfg.ClientOptions()); err != nil {
		s.log.Warn("client rejected", zap.String("addr", r.RemoteAddr), zap.Error(err))
	}
}

// originChecker allows any origin when allowed is empty. Requests without an
// Origin header come from non-browser clients and are always accepted.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
