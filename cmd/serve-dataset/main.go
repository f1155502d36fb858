package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/rail-timetable/collector/internal/api/handlers"
	"github.com/rail-timetable/collector/internal/config"
	"github.com/rail-timetable/collector/internal/dataset"
)

func main() {
	// .env.local overrides .env for local development
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loader := dataset.NewLoader(cfg.DataDir)
	if meta, ok := loader.Metadata(); ok {
		log.Printf("Dataset: %d stations, %d routes, updated %s", meta.StationCount, meta.RouteCount, meta.LastUpdated)
	} else {
		log.Printf("Warning: no dataset metadata in %s, run fetch-train-data first", cfg.DataDir)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(loader, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("API server starting on :%s", cfg.Port)
		log.Println("Dataset endpoints:")
		log.Println("  GET /api/metadata")
		log.Println("  GET /api/stations[?city=]")
		log.Println("  GET /api/stations/{stationId}")
		log.Println("  GET /api/stations/{stationId}/routes")
		log.Println("  GET /api/routes/{category}")
		log.Println("  GET /api/routes/{depId}/{arrId}[?category=]")
		log.Println("Health:")
		log.Println("  GET /health")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("API server stopped")
}
