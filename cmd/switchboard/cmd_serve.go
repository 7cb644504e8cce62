package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chr1sbest/switchboard/internal/config"
	"github.com/chr1sbest/switchboard/internal/dispatch"
	"github.com/chr1sbest/switchboard/internal/gateway"
	"github.com/chr1sbest/switchboard/internal/logger"
	"github.com/chr1sbest/switchboard/internal/notify"
	"github.com/chr1sbest/switchboard/internal/server"
	"github.com/chr1sbest/switchboard/internal/store"
	"github.com/chr1sbest/switchboard/internal/tracker"
)

func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "switchboard.json", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(filepath.Dir(*configFile))
	watcher, err := config.NewWatcher(loader, *configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := watcher.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := watcher.Current()

	log, closeLog, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	// Notification settings, session key, and the shared token read through
	// the watcher so edits to the config file apply without a restart. The
	// listen address, state path, and gateway endpoint are startup-only.
	settings := watcher.Current
	notifySettings := func() config.NotifyConfig { return settings().Notify }
	sessionKey := func() string { return settings().Gateway.SessionKey }

	gw := gateway.New(cfg.Gateway.URL, cfg.Gateway.Token, cfg.Gateway.GetRequestTimeout(), log)
	tr := tracker.New(store.New(cfg.StatePath, log), log)
	resolver := notify.NewResolver(notifySettings, sessionKey, gw, log)
	notifier := notify.NewNotifier(resolver, gw, notifySettings, log)
	calls := dispatch.NewCallState()
	registry := dispatch.NewRegistry(log)

	controller := dispatch.NewController(dispatch.ControllerOptions{
		Backend:          gw,
		Tracker:          tr,
		Notifier:         notifier,
		Calls:            calls,
		Registry:         registry,
		SessionKey:       sessionKey,
		DefaultTimeoutMs: func() int { return settings().Dispatch.GetDefaultTimeoutMs() },
		Log:              log,
	})

	srv := server.New(settings, controller, calls, log)

	listen := cfg.GetListenAddr()
	if *addr != "" {
		listen = *addr
	}
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		for ev := range watcher.Events() {
			if ev.Error != nil {
				log.Warn("config reload failed, keeping previous config", logger.F("error", ev.Error))
				continue
			}
			log.Info("config reloaded", logger.F("path", ev.Path))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	log.Info("switchboard listening",
		logger.F("addr", listen),
		logger.F("gateway", cfg.Gateway.URL),
		logger.F("state", cfg.StatePath))

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logger.F("error", err))
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown incomplete", logger.F("error", err))
	}
	registry.Shutdown(shutdownCtx)
	_ = watcher.Stop()
	return 0
}

// buildLogger assembles the configured logger: stdout always, plus a file
// sink when log_file is set.
func buildLogger(cfg *config.Config) (logger.Logger, func(), error) {
	level := logger.ParseLevel(cfg.LogLevel)
	stdout := logger.NewStdoutLogger(level)
	if cfg.LogFile == "" {
		return stdout, func() {}, nil
	}

	file, err := logger.NewFileLogger(cfg.LogFile, level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	multi := logger.NewMultiLogger(stdout, file)
	return multi, func() { _ = file.Close() }, nil
}
