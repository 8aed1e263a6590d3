package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/chronywatch/chronywatch/internal/api"
	"github.com/chronywatch/chronywatch/internal/chronyc"
	"github.com/chronywatch/chronywatch/internal/config"
	"github.com/chronywatch/chronywatch/internal/engine"
	"github.com/chronywatch/chronywatch/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; defaults apply when empty")
	listenAddr := flag.String("listen", "", "override the configured listen address")
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("chronywatch starting",
		"listen", cfg.ListenAddr,
		"tick", cfg.TickInterval,
		"chronyc", cfg.Chronyc.Binary,
		"thermal", cfg.Thermal.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	runner := chronyc.NewRunner(cfg.Chronyc.Binary, cfg.Chronyc.Timeout)
	eng := engine.New(cfg, runner, reg)

	hub := ws.New(eng)
	eng.OnSnapshot(hub.Publish)
	go hub.Run(ctx)
	go eng.Run(ctx)

	// Display knobs reload on config writes; structural settings need a
	// restart.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				eng.UpdateDisplay(next.History, next.Trust.MaxSourceRows)
			})
			if err != nil {
				slog.Error("config watcher failed", "err", err)
			}
		}()
	}

	router := api.NewRouter(eng, reg)
	router.Handle("/ws", hub)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("chronywatch shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
