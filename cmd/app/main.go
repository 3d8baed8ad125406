package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"fieldservice/internal/adapters/cli"
	"fieldservice/internal/adapters/repl"
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

	// token needs no database.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		printToken(cfg, os.Args[2:])
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	op, err := resolveOperator(ctx, core.NewOperatorService(pool), cfg)
	if err != nil {
		log.Fatalf("Operator: %v", err)
	}

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

	if len(os.Args) > 1 {
		cli.Run(ctx, svc, op, os.Args[1:])
		return
	}
	repl.Run(ctx, svc, op, bufio.NewReader(os.Stdin))
}

// resolveOperator loads the technician named by OPERATOR_ID. Every write is
// stamped with an operator, so the CLI refuses to run without one.
func resolveOperator(ctx context.Context, operators core.OperatorService, cfg *config.Config) (core.Operator, error) {
	if cfg.OperatorID == uuid.Nil {
		return core.Operator{}, fmt.Errorf("OPERATOR_ID environment variable not set")
	}
	tech, err := operators.GetByID(ctx, cfg.OperatorID)
	if err != nil {
		return core.Operator{}, err
	}
	return tech.Operator(), nil
}

// printToken mints a development token: app token <operator-uuid> <name> [ttl]
func printToken(cfg *config.Config, args []string) {
	if len(args) < 2 {
		log.Fatal("Usage: app token <operator-uuid> <name> [ttl]")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		log.Fatalf("Invalid operator id: %v", err)
	}
	ttl := 12 * time.Hour
	if len(args) > 2 {
		if ttl, err = time.ParseDuration(args[2]); err != nil {
			log.Fatalf("Invalid ttl: %v", err)
		}
	}
	token, err := webAdapter.SignOperatorToken(cfg.JWTSecret, core.Operator{ID: id, Name: args[1]}, ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
