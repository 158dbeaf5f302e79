package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"pos-core/internal/adapters/cli"
	"pos-core/internal/app"
	"pos-core/internal/archive"
	"pos-core/internal/config"
	"pos-core/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: app <command> [args...]   (app help for the list)")
		os.Exit(2)
	}
	if os.Args[1] == "help" || os.Args[1] == "-h" {
		cli.Run(context.Background(), nil, nil)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	services := app.NewServices(pool, archive.NewSQLiteWriter(cfg.POS.BackupDir), cfg.POS.MinCashIn, cfg.POS.Location)
	svc := app.NewAppService(pool, services)

	cli.Run(ctx, svc, os.Args[1:])
}
