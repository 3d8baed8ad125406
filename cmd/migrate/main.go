package main

import (
	"context"
	"log"

	"fieldservice/internal/config"
	"fieldservice/internal/db"
	"fieldservice/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("[FAIL] %v", err)
	}
	log.Println("[DONE] All migrations processed.")
}
