package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse/internal/broadcast"
	"pulse/internal/collector"
	"pulse/internal/config"
	"pulse/internal/docker"
)

func main() {
	cfg := config.LoadAgent()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).With("service", "pulse-agent")
	logger.Info("starting agent", "addr", cfg.Addr, "max_clients", cfg.MaxClients, "auth", cfg.Token != "")

	dc, err := docker.New(cfg.DockerHost, logger.With("module", "docker"))
	if err != nil {
		logger.Warn("docker client unavailable", "err", err)
	} else {
		defer dc.Close()
	}
	var inv collector.Inventory
	if dc != nil {
		inv = dc
	}
	sampler, err := collector.NewSampler(cfg.ProcRoot, inv, logger.With("module", "collector"))
	if err != nil {
		logger.Error("init sampler failed", "err", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub(cfg.Token, cfg.MaxClients, logger.With("module", "broadcast"))
	srv := &http.Server{Addr: cfg.Addr, Handler: hub, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("websocket server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("websocket server failed", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			cancel()
			logger.Info("agent stopped")
			return
		case <-ticker.C:
			sampleCtx, cancel := context.WithTimeout(ctx, cfg.Interval)
			s := sampler.Sample(sampleCtx)
			cancel()
			if hub.Len() == 0 {
				continue
			}
			frame, err := json.Marshal(s)
			if err != nil {
				logger.Error("encode frame", "err", err)
				continue
			}
			hub.Broadcast(frame)
		}
	}
}
