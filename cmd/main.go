// carscan-search-service
//
// Vehicle and commercial-property listing aggregator for Colombia.
// A search request fans out to the marketplace providers (MercadoLibre,
// TuCarro, FincaRaíz, BodegasYLocales, VendeTuNave), normalizes and
// deduplicates what they return, scores every listing against the current
// population, and answers with a ranked, filtered, distance-annotated set.
//
// Publishes EVENT_LISTING_UPSERTED to Redis for downstream consumers and
// runs a periodic full-population rescore sweep.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"carscan/search-service/internal/api"
	"carscan/search-service/internal/config"
	"carscan/search-service/internal/db"
	"carscan/search-service/internal/normalize"
	"carscan/search-service/internal/scheduler"
	"carscan/search-service/internal/scraper"
	"carscan/search-service/internal/search"
	"carscan/search-service/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[search-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Store ────────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[search-service] Store: %v", err)
	}
	defer st.Close()
	log.Printf("[search-service] Store ready (%s) ✓", cfg.StoreDriver)

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		log.Println("[search-service] Connecting to Redis…")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[search-service] Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("[search-service] Redis connected ✓")
	} else {
		log.Println("[search-service] REDIS_URL not set — event publishing disabled")
	}

	// ── Gazetteer and normalizer ─────────────────────────────────────────────
	gaz, err := normalize.LoadGazetteer(cfg.CitiesFile)
	if err != nil {
		log.Fatalf("[search-service] Gazetteer: %v", err)
	}
	norm := normalize.NewNormalizer(gaz)

	// ── Pipeline ─────────────────────────────────────────────────────────────
	svc := search.New(st, buildProviders(cfg), norm, rdb, search.Options{
		DefaultCity:     cfg.DefaultCity,
		DefaultRadiusKM: cfg.DefaultRadiusKM,
		MaxConcurrent:   cfg.MaxConcurrentScrapes,
	})

	sched := scheduler.New(svc, cfg.RescoreIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[search-service] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	router := mux.NewRouter()
	api.NewHandler(svc, version).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
		// Search requests scrape live marketplaces; give them room.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		log.Printf("[search-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[search-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[search-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[search-service] Shutdown error: %v", err)
	}
	log.Println("[search-service] Stopped.")
}

// openStore picks the persistence backend from config.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		st, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		log.Println("[search-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st, err := store.NewPostgres(ctx, pool)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// buildProviders assembles the marketplace providers in scrape order.
func buildProviders(cfg *config.Config) []scraper.Provider {
	opts := scraper.Options{
		MaxListings: cfg.MaxListingsPerSource,
		DelayMin:    time.Duration(cfg.ScrapeDelayMinS) * time.Second,
		DelayMax:    time.Duration(cfg.ScrapeDelayMaxS) * time.Second,
		Timeout:     time.Duration(cfg.ProviderTimeoutS) * time.Second,
	}
	return []scraper.Provider{
		scraper.NewMercadoLibre(opts),
		scraper.NewTuCarro(opts),
		scraper.NewFincaRaiz(opts),
		scraper.NewBodegasYLocales(opts),
		scraper.NewVendeTuNave(cfg.VendeTuNaveBin, time.Duration(cfg.VendeTuNaveTimeoutS)*time.Second, opts),
	}
}
