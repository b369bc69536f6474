package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
)

// dbcheck connects to every backing store named in the environment and
// reports what it finds. It exits non-zero on the first failure.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logger)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	for _, table := range []string{"products", "orders"} {
		var n int64
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			fmt.Printf("  - %s: unavailable (%v)\n", table, err)
			continue
		}
		fmt.Printf("  - %s: %d rows\n", table, n)
	}

	mongoDB, err := database.ConnectMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to cart store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()

	lines, err := mongoDB.Collection("cart_lines").EstimatedDocumentCount(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to cart store: %s (%d lines)\n", mongoDB.Name(), lines)

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to settings cache: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	fmt.Printf("Successfully connected to settings cache: %s\n", cfg.Redis.Addr)
}
