package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/BioHazard786/warpmeet/internal/logging"
	"github.com/BioHazard786/warpmeet/internal/server"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "warpmeet-server",
	Short:   "Signaling relay for WarpMeet calls",
	Long:    `warpmeet-server accepts websocket connections from call participants, groups them into rooms and relays their WebRTC offers, answers and ICE candidates to each other. Media never passes through it.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel, cfg.LogFormat)
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json or toml)")
	config.RegisterFlags(rootCmd.Flags())
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := signaling.NewHub(signaling.HubOptions{
		MaxRoomCodeLength: cfg.MaxRoomCodeLength,
		Registerer:        reg,
		Logger:            logger,
	})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)
	go signaling.NewMonitor(hub, cfg.LivenessInterval).Run(hubCtx)

	srv := server.New(cfg, hub, reg, logger)
	l, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	logger.Info("starting signaling server",
		zap.String("addr", l.Addr().String()),
		zap.String("version", version.Version),
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(l)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	srv.Drain()
	if cfg.DrainDelay > 0 {
		logger.Info("draining before shutdown", zap.Duration("delay", cfg.DrainDelay))
		select {
		case <-time.After(cfg.DrainDelay):
		case err := <-serveErr:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
		}
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Stop accepting upgrades first, then close every open socket through
	// the hub so peers see a clean close frame.
	err = srv.Shutdown(shutdownCtx)
	stopHub()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
