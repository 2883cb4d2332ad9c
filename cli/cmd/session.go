package cmd

import (
	"context"
	"time"

	"github.com/BioHazard786/warpmeet/cli/internal/call"
	"github.com/BioHazard786/warpmeet/cli/internal/config"
	"github.com/BioHazard786/warpmeet/cli/internal/signaling"
)

const connectTimeout = 15 * time.Second

// ConnectionContext is an open relay connection with its identity.
type ConnectionContext struct {
	Client   *signaling.Client
	Handler  *signaling.Handler
	Config   *config.Config
	ClientID string
}

func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(ctx); err != nil {
		return nil, call.NewError("connect to server", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	c := &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}

	id, err := handler.WaitClientID(ctx)
	if err != nil {
		c.Close()
		return nil, call.WrapError("wait for identity", call.ErrSignalingError, err.Error())
	}
	c.ClientID = id
	return c, nil
}

func (c *ConnectionContext) Close() {
	if c.Handler != nil {
		c.Handler.Close()
	}
	if c.Client != nil {
		c.Client.Close()
	}
}
