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

	"github.com/gemilang/stone-orders/internal/config"
	"github.com/gemilang/stone-orders/internal/httpx"
	kafkax "github.com/gemilang/stone-orders/internal/kafka"
	"github.com/gemilang/stone-orders/internal/notify"
	"github.com/gemilang/stone-orders/internal/orders"
	"github.com/gemilang/stone-orders/internal/postgres"
	"github.com/gemilang/stone-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for completion notifications
	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.NotifyTopic, 1024, logger)
	prod.Start(ctx)

	// Stores & services, constructed once and passed by reference.
	orderStore := &postgres.OrderStore{DB: db}
	customStore := &postgres.CustomOrderStore{DB: db}
	stoneStore := &postgres.StoneStore{DB: db}
	customers := &postgres.CustomerDirectory{DB: db}
	employees := &postgres.EmployeeDirectory{DB: db}
	notifier := &notify.KafkaNotifier{Producer: prod, Service: cfg.ServiceName}

	svc := orders.NewService(orderStore, stoneStore, customers, db, notifier, logger)
	customSvc := orders.NewCustomOrderService(customStore, orderStore, db)
	lookupSvc := orders.NewLookupService(orderStore, stoneStore, employees)

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Svc: svc, Cache: rdb}).Register(router)
	(&httpx.CustomOrdersHandler{Svc: customSvc}).Register(router)
	(&httpx.LookupHandler{Svc: lookupSvc}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
	cancel()
}
