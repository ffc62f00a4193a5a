package cli

import (
	"context"
	"log/slog"

	"github.com/kilnhq/kilnd/internal/config"
	"github.com/kilnhq/kilnd/internal/server"
)

// Represents the 'kilnd start' command.
type StartCmd struct{}

// Executes the start command.
//
// Loads configuration, starts the engine server on a Unix domain
// socket, and blocks until the context is cancelled (e.g. via SIGINT or
// SIGTERM) or a shutdown operation arrives over the socket.
func (c *StartCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(RootCmd.Config)
	if err != nil {
		return err
	}

	pullDelay, err := cfg.PullDelay()
	if err != nil {
		return err
	}

	limits, err := cfg.DefaultLimits()
	if err != nil {
		return err
	}

	socketPath := RootCmd.Socket
	if socketPath == "" {
		socketPath = cfg.Socket
	}

	srv, err := server.New(server.Config{
		SocketPath:    socketPath,
		DataDir:       cfg.DataDir,
		PullDelay:     pullDelay,
		DefaultLimits: limits,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("kilnd is running")

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return srv.Stop()
	case <-stopped:
		return nil
	}
}
