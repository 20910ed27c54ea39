package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"memer/internal/blacklist"
	"memer/internal/bot"
	"memer/internal/config"
	"memer/internal/delivery"
	"memer/internal/fetcher"
	"memer/internal/model"
	"memer/internal/postcache"
	"memer/internal/ratelimit"
	"memer/internal/registry"
	"memer/internal/scheduler"
	"memer/internal/storage"
	"memer/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Error("load sources", "path", cfg.SourcesPath, "error", err)
		os.Exit(1)
	}
	log.Info("loaded sources", "groups", len(sources), "sources", len(sources.Names()))

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	src, err := fetcher.New(cfg.SourceFormat, http.DefaultClient, fetcher.Options{
		BaseURL: cfg.SourceBaseURL,
		Limit:   cfg.SourceLimit,
		Timeout: cfg.FetchTimeout,
	})
	if err != nil {
		log.Error("create fetcher", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clock := ratelimit.NewCoarseClock(10 * time.Millisecond)
	go clock.Start(ctx)

	limiter, err := ratelimit.New[model.ChannelID](ratelimit.Quota{
		Requests: cfg.RateLimit,
		Period:   cfg.RatePeriod,
		Burst:    cfg.RateBurst,
	}, clock)
	if err != nil {
		log.Error("create rate limiter", "error", err)
		os.Exit(1)
	}

	cache := postcache.New(src, postcache.Options{
		Concurrency:  cfg.FetchConcurrency,
		FetchTimeout: cfg.FetchTimeout,
	}, log)
	reg := registry.New(store, log)
	bl := blacklist.New(time.Now().Add(blacklist.Window))

	deliverer := delivery.New(delivery.Deps{
		Sources:   sources,
		Limiter:   limiter,
		Blacklist: bl,
		Tracker:   tracker.New(),
		Cache:     cache,
		Registry:  reg,
	}, log)

	sched := scheduler.New(sources, cache, reg, bl, limiter, cfg.RefreshSchedule, log)

	log.Info("booting")
	if err := sched.Boot(ctx); err != nil {
		log.Error("boot", "error", err)
		os.Exit(1)
	}

	b, err := bot.New(cfg.TelegramBotToken, cfg, deliverer, reg, sched, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	log.Info("starting bot")

	go func() {
		if err := sched.Run(ctx); err != nil {
			log.Error("scheduler", "error", err)
			cancel()
		}
	}()

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
