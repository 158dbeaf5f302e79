package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	webAdapter "pos-core/internal/adapters/web"
	"pos-core/internal/app"
	"pos-core/internal/archive"
	"pos-core/internal/config"
	"pos-core/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	writer := archive.NewSQLiteWriter(cfg.POS.BackupDir)
	services := app.NewServices(pool, writer, cfg.POS.MinCashIn, cfg.POS.Location)
	svc := app.NewAppService(pool, services)

	handler := webAdapter.NewHandler(svc, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
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

	log.Printf("server starting on :%s (backups in %s)", cfg.Server.Port, cfg.POS.BackupDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
	log.Println("server stopped")
}
