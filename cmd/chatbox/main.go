package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatbox/internal/app"
	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/config"
	"github.com/matheus3301/chatbox/internal/paths"
	"github.com/matheus3301/chatbox/internal/tui"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("chatbox", pflag.ContinueOnError)
	configPath := flags.String("config", paths.ConfigPath(), "client config file")
	identityFlag := flags.String("identity", "", "mobile number to prefill in the registration form")
	relayURL := flags.String("relay-url", "", "relay websocket URL (overrides config)")
	directoryAddr := flags.String("directory-addr", "", "directory gRPC address (overrides config)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if err := paths.EnsureDir(); err != nil {
		return fmt.Errorf("create %s: %w", paths.BaseDir(), err)
	}
	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		return err
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *directoryAddr != "" {
		cfg.DirectoryAddr = *directoryAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var (
		client *app.Client
		b      *bus.Bus
		logger *zap.Logger
	)
	fxApp := fx.New(
		app.Module(app.Params{Config: cfg, LogPath: paths.ClientLogPath()}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Populate(&client, &b, &logger),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	ui := tui.NewApp(client, b, paths.Resolve(*identityFlag, cfg), logger)
	runErr := ui.Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := fxApp.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
