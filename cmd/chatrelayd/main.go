package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/chatbox/internal/config"
	"github.com/matheus3301/chatbox/internal/daemon"
	"github.com/matheus3301/chatbox/internal/paths"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("chatrelayd", pflag.ContinueOnError)
	configPath := flags.String("config", paths.RelayConfigPath(), "relay config file")
	console := flags.Bool("console", true, "also log to stderr")
	httpAddr := flags.String("http-addr", "", "websocket and metrics listen address (overrides config)")
	grpcAddr := flags.String("grpc-addr", "", "directory gRPC listen address, or unix:///path (overrides config)")
	dbPath := flags.String("db", "", "sqlite database path (overrides config)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := paths.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadRelay(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: config: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Config:  cfg,
			LogPath: paths.RelayLogPath(),
			Console: *console,
		}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	app.Run()
}
