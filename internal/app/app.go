package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/internal/config"
	"pulse/internal/db"
	"pulse/internal/engine"
	"pulse/internal/kv"
	"pulse/internal/metrics"
	"pulse/internal/notifier"
	"pulse/internal/settings"
	"pulse/internal/snapshots"
	"pulse/internal/stream"
	"pulse/internal/web"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db    *db.Repository
	redis *kv.Redis

	engine *engine.Engine
	stream *stream.Manager
	notify *notifier.StatusNotifier
	web    *web.Server

	httpSrv *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	sqldb, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	repo := db.NewRepository(sqldb)

	a := &App{cfg: cfg, log: logger, db: repo}

	var store kv.Store = repo
	if cfg.RedisAddr != "" {
		r, err := kv.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger.With("module", "kv"))
		if err != nil {
			logger.Warn("redis unavailable, using sqlite", "addr", cfg.RedisAddr, "err", err)
		} else {
			logger.Info("persisting to redis", "addr", cfg.RedisAddr)
			a.redis = r
			store = r
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a.engine = engine.New(context.Background(), engine.Options{
		Interval:  cfg.SampleInterval,
		Location:  time.Local,
		Settings:  settings.NewStore(store, logger.With("module", "settings")).WithDefaultRetention(cfg.RetentionDays),
		Snapshots: snapshots.NewStore(store, logger.With("module", "snapshots")),
		Metrics:   m,
		Logger:    logger.With("module", "engine"),
	})

	a.notify = notifier.NewStatusNotifier(
		notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID),
		logger.With("module", "notifier"),
	)
	a.engine.OnSample(func(u engine.Update) {
		if u.Event != nil {
			a.notify.Notify(*u.Event)
		}
	})

	a.stream = stream.NewManager(
		stream.BuildURL(cfg.StreamURL, cfg.StreamToken),
		stream.NewWebsocketDialer(),
		a.engine.HandleFrame,
		cfg.ReconnectDelay,
		logger.With("module", "stream"),
	)
	a.stream.OnState(m.StreamState)

	a.web = web.NewServer(a.engine, a.stream.State, a.ready,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger.With("module", "http"))
	a.httpSrv = &http.Server{Addr: cfg.Addr, Handler: a.web.Routes(), ReadHeaderTimeout: 10 * time.Second}
	return a, nil
}

func (a *App) ready(ctx context.Context) error {
	if err := a.db.Ping(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		return a.redis.Ping(ctx)
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server failed", "err", err)
		}
	}()
	go a.notify.Run(ctx)
	a.stream.Start(ctx)

	<-ctx.Done()
	a.stream.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", "err", err)
		}
	}
	return a.db.Close()
}
