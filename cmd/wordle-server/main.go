package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/archive"
	appcfg "github.com/park285/wordle-duel/internal/config"
	"github.com/park285/wordle-duel/internal/httpapi"
	"github.com/park285/wordle-duel/internal/match"
	"github.com/park285/wordle-duel/internal/metrics"
	"github.com/park285/wordle-duel/internal/msgcat"
	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/render"
	"github.com/park285/wordle-duel/internal/session"
	"github.com/park285/wordle-duel/internal/words"
)

func main() {
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store session.Store
	if cfg.RedisURL != "" {
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := session.DialRedis(dctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		store = session.NewRedisStore(rdb)
		logger.Info("store_ready", zap.String("kind", "redis"))
	} else {
		store = session.NewMemoryStore()
		logger.Warn("store_ready", zap.String("kind", "memory"))
	}

	wordList, err := words.Load(cfg.WordsAnswersFile, cfg.WordsAllowedFile)
	if err != nil {
		logger.Fatal("words_init_error", zap.Error(err))
	}
	answers, allowed := wordList.Stats()
	logger.Info("words_ready", zap.Int("answers", answers), zap.Int("allowed", allowed))

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_init_error", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.NewMetrics(cfg.MetricsNamespace, reg)

	mgr := match.NewManager(store, wordList, match.Options{
		PollInterval: cfg.PollInterval,
		JoinTimeout:  cfg.JoinTimeout,
		StaleAfter:   cfg.StaleAfter,
		MaxGuesses:   cfg.MaxGuesses,
	})
	mgr.AttachMetrics(mt)

	apiCfg := httpapi.Config{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
		LongPoll:       2 * cfg.JoinTimeout,
		Catalog:        catalog,
		Metrics:        mt,
		Gatherer:       reg,
		Renderer:       render.NewCardRenderer(),
	}
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_init_error", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		mgr.AttachArchive(repo)
		apiCfg.Stats = repo
		logger.Info("archive_ready")
	}

	go mgr.RunSweeper(ctx, cfg.SweepInterval)

	srv := httpapi.New(mgr, apiCfg)
	if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("http_server_error", zap.Error(err))
		return
	}
	logger.Info("shutdown_complete")
}
