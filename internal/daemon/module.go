package daemon

import (
	"context"
	"path/filepath"

	"github.com/matheus3301/chatbox/internal/api"
	"github.com/matheus3301/chatbox/internal/config"
	"github.com/matheus3301/chatbox/internal/lock"
	"github.com/matheus3301/chatbox/internal/logging"
	"github.com/matheus3301/chatbox/internal/paths"
	"github.com/matheus3301/chatbox/internal/relay"
	"github.com/matheus3301/chatbox/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved relay configuration passed to the fx module.
type Params struct {
	Config  *config.Relay
	LogPath string // empty = no log file
	Console bool   // also log to stderr
}

// Module returns the fx module for the relay daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideLock,
			provideStore,
			provideHub,
			provideDirectoryService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:      p.LogPath,
		Console:   p.Console,
		Level:     p.Config.LogLevel,
		Component: "chatrelayd",
	})
}

func dbPath(p Params) string {
	if p.Config.DBPath != "" {
		return p.Config.DBPath
	}
	return paths.RelayDBPath()
}

// provideLock keeps two relays from sharing one database.
func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	dir := filepath.Dir(dbPath(p))
	logger.Info("acquiring relay lock", zap.String("dir", dir))
	l, err := lock.Acquire(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("relay lock acquired")
	return l, nil
}

func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	path := dbPath(p)
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate(logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", path))
	return db, nil
}

func provideHub(p Params, db *store.DB, logger *zap.Logger) *relay.Hub {
	return relay.NewHub(db, p.Config.HandshakeTimeout.Duration, logger)
}

func provideDirectoryService(db *store.DB, hub *relay.Hub, logger *zap.Logger) *api.DirectoryService {
	return api.NewDirectoryService(db, hub, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, hub *relay.Hub, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := srv.Listen(); err != nil {
				return err
			}
			srv.Serve()
			logger.Info("relay started",
				zap.String("http", srv.HTTPAddr()),
				zap.String("grpc", srv.GRPCAddr()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			hub.Close()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("relay stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
