package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stitchkart/orders/internal/config"
	kafkax "github.com/stitchkart/orders/internal/kafka"
	"github.com/stitchkart/orders/internal/orders"
	"github.com/stitchkart/orders/internal/postgres"
	"github.com/stitchkart/orders/internal/redisx"
	"github.com/stitchkart/orders/internal/tracking"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Store != "postgres" {
		log.Fatal("tracker requires STORE=postgres; it shares the store with the api")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	warmer := &tracking.CacheWarmer{
		Store:   &orders.PGStore{DB: db},
		Redis:   rdb,
		Service: cfg.ServiceName + "-tracker",
		Log:     logger,
	}

	group := getenv("TRACKER_GROUP", "tracker-svc")
	workers := mustAtoi(os.Getenv("TRACKER_WORKERS"), "4")

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicOrderStatus} {
		topic := topic
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, logger)
		g.Go(func() error {
			logger.Info("tracker consumer started",
				zap.String("group", group),
				zap.String("topic", topic),
				zap.Int("workers", workers))
			return cons.Start(gctx, warmer.Handle)
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down tracker")
		cancel()
	case <-gctx.Done():
	}
	if err := g.Wait(); err != nil {
		logger.Error("consumer exit", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
