package main

import (
	"context"
	"log"

	"pos-core/internal/config"
	"pos-core/internal/db"
	"pos-core/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()
	log.Println("[CONNECT] success")

	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	log.Printf("[DONE] All migrations processed (%d applied).", len(applied))
}
