package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	webAdapter "fieldservice/internal/adapters/web"
	"fieldservice/internal/app"
	"fieldservice/internal/cache"
	"fieldservice/internal/config"
	"fieldservice/internal/core"
	"fieldservice/internal/db"
	"fieldservice/internal/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	readCache, err := cache.Connect(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer readCache.Close()

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	stockService := core.NewStockService(pool)
	svc := app.NewAppService(ctx,
		core.NewPurchaseOrderService(pool),
		core.NewWorkOrderService(pool),
		stockService,
		core.NewLineReceiver(pool, stockService),
		readCache,
		publisher,
		cfg.ReceptionSessionTTL,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Println("server stopped")
}
