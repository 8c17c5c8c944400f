package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"markestedt/winchord/audio"
	"markestedt/winchord/config"
	"markestedt/winchord/notify"
	"markestedt/winchord/platform"
	"markestedt/winchord/storage"
	"markestedt/winchord/systray"
)

var logLevel = new(slog.LevelVar)

func main() {
	// Setup logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setLogLevel(cfg.LogLevel)

	configPath, _ := config.ConfigPath()
	slog.Info("Configuration loaded", "path", configPath, "shortcuts", len(cfg.Shortcuts))

	dataDir, err := config.Dir()
	if err != nil {
		slog.Error("Failed to resolve data directory", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(dataDir)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	deps := Deps{
		Keys:     platform.NewKeyHook(),
		Pointer:  platform.NewPointerHook(),
		Windows:  platform.NewWindowControl(),
		Notifier: notify.LogNotifier{},
	}

	if cfg.Feedback.Notifications {
		deps.Notifier = notify.New()
		defer deps.Notifier.Close()
	}

	if cfg.Feedback.Sound {
		player, err := audio.NewPlayer()
		if err != nil {
			slog.Warn("Sound feedback disabled", "error", err)
		} else {
			deps.Player = player
			defer player.Close()
		}
	}

	agent, err := NewAgent(cfg, configPath, db, deps)
	if err != nil {
		slog.Error("Failed to create agent", "error", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tray := systray.NewSystrayManager(agent.WebURL(), nil, systray.Actions{
		Pause:     agent.Pause,
		Resume:    agent.Resume,
		Configure: agent.Configure,
	})
	agent.OnStateChange(tray.SetState)

	errCh := make(chan error, 1)
	go func() {
		errCh <- agent.Run(ctx)
		tray.Stop()
	}()

	go func() {
		select {
		case <-tray.WaitForQuit():
			cancel()
		case <-ctx.Done():
			tray.Stop()
		}
	}()

	// The tray owns the main thread until it quits
	tray.Run()
	cancel()

	if err := <-errCh; err != nil {
		slog.Error("Agent error", "error", err)
		os.Exit(1)
	}

	slog.Info("winchord stopped")
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}
