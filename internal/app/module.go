// Package app wires the terminal client: relay transport, directory client,
// engine and the per-identity lock.
package app

import (
	"context"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/config"
	"github.com/matheus3301/chatbox/internal/directory"
	"github.com/matheus3301/chatbox/internal/engine"
	"github.com/matheus3301/chatbox/internal/logging"
	"github.com/matheus3301/chatbox/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved client configuration passed to the fx module.
type Params struct {
	Config  *config.Client
	LogPath string // empty = no log file
}

// Module returns the fx module for the terminal client.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			bus.New,
			provideTransport,
			provideDirectory,
			provideEngine,
			NewClient,
		),
		fx.Invoke(registerLifecycle),
	)
}

// The terminal owns stdout and stderr while the UI runs, so the client only
// ever logs to its file.
func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:      p.LogPath,
		Level:     p.Config.LogLevel,
		Component: "chatbox",
	})
}

func provideTransport(p Params, logger *zap.Logger) *transport.Session {
	return transport.NewSession(transport.Options{
		URL:              p.Config.RelayURL,
		HandshakeTimeout: p.Config.HandshakeTimeout.Duration,
	}, logger)
}

func provideDirectory(p Params, logger *zap.Logger) (*directory.Client, error) {
	c, err := directory.Dial(p.Config.DirectoryAddr)
	if err != nil {
		return nil, err
	}
	logger.Info("directory client ready", zap.String("addr", p.Config.DirectoryAddr))
	return c, nil
}

func provideEngine(p Params, t *transport.Session, dir *directory.Client, b *bus.Bus, logger *zap.Logger) (*engine.Engine, error) {
	opts, err := engineOptions(p.Config)
	if err != nil {
		return nil, err
	}
	return engine.New(t, dir, b, logger, opts), nil
}

// engineOptions maps the client config onto engine options. A zero
// pending_timeout in the file turns expiry off.
func engineOptions(cfg *config.Client) (engine.Options, error) {
	policy, err := engine.ParsePolicy(cfg.HistoryPolicy)
	if err != nil {
		return engine.Options{}, err
	}
	timeout := cfg.PendingTimeout.Duration
	if timeout == 0 {
		timeout = -1
	}
	return engine.Options{
		HistoryPolicy:  policy,
		PendingTimeout: timeout,
	}, nil
}

func registerLifecycle(lc fx.Lifecycle, c *Client, dir *directory.Client, b *bus.Bus, logger *zap.Logger) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			c.Start(ctx)
			logger.Info("client started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			c.Stop()
			if cancel != nil {
				cancel()
			}
			if err := dir.Close(); err != nil {
				logger.Warn("error closing directory client", zap.Error(err))
			}
			logger.Info("client stopped", zap.Uint64("dropped_events", b.Dropped()))
			_ = logger.Sync()
			return nil
		},
	})
}
