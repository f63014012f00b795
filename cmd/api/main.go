package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stitchkart/orders/internal/config"
	"github.com/stitchkart/orders/internal/httpx"
	"github.com/stitchkart/orders/internal/inventory"
	kafkax "github.com/stitchkart/orders/internal/kafka"
	"github.com/stitchkart/orders/internal/lifecycle"
	"github.com/stitchkart/orders/internal/notify"
	"github.com/stitchkart/orders/internal/orders"
	"github.com/stitchkart/orders/internal/payments"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store  orders.Store
		ledger inventory.Ledger
		feed   notify.Feed
	)
	switch cfg.Store {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		store = &orders.PGStore{DB: db}
		ledger = &inventory.PGLedger{DB: db}
		feed = &notify.PGFeed{DB: db}
	default:
		mem := inventory.NewMemoryLedger()
		seedDemo(mem)
		store = orders.NewMemoryStore()
		ledger = mem
		feed = notify.NewMemoryFeed()
		logger.Info("using in-memory store (dev mode)")
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024, logger)
	pStatus.Start(ctx)

	dispatcher := &notify.Dispatcher{Feed: feed, Log: logger}
	trackSvc := &tracking.Service{Store: store, Redis: rdb}
	engine := &lifecycle.Engine{
		Store:       store,
		Ledger:      ledger,
		Gateway:     payments.MockGateway{},
		Dispatcher:  dispatcher,
		CreatedSink: pCreated,
		StatusSink:  pStatus,
		Tracker:     trackSvc,
		Redis:       rdb,
		Pricing: orders.PricingPolicy{
			DeliveryFeeCents:     cfg.DeliveryFeeCents,
			FreeDeliveryMinCents: cfg.FreeDeliveryMinCents,
			Coupons:              map[string]int64{"FIRST50": 5000},
		},
		Service: cfg.ServiceName,
		Log:     logger,
	}
	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Engine: engine, Tracking: trackSvc, JWTSecret: cfg.JWTSecret}).Register(router)
	(&httpx.NotificationsHandler{Feed: feed, Dispatcher: dispatcher, JWTSecret: cfg.JWTSecret}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close() // stop accepting, flush
	pStatus.Close()
	cancel()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}

// seedDemo gives the dev setup something to sell.
func seedDemo(l *inventory.MemoryLedger) {
	l.AddProduct(inventory.Product{
		ID: "p-tee-01", SKU: "TEE-CLASSIC", Name: "Classic Tee", PriceCents: 49900,
		Stock: map[string]int{"S": 10, "M": 10, "L": 10, "XL": 5},
	})
	l.AddProduct(inventory.Product{
		ID: "p-hoodie-01", SKU: "HOODIE-ZIP", Name: "Zip Hoodie", PriceCents: 129900,
		Stock: map[string]int{"M": 6, "L": 6},
	})
	l.AddProduct(inventory.Product{
		ID: "p-cap-01", SKU: "CAP-LOGO", Name: "Logo Cap", PriceCents: 29900,
		Stock: map[string]int{"": 20}, // one size
	})
}
