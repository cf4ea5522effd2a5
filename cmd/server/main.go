package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/tutor-ratings/internal/config"
	httpserver "github.com/Clark-Hu/tutor-ratings/internal/http"
	"github.com/Clark-Hu/tutor-ratings/internal/metrics"
	"github.com/Clark-Hu/tutor-ratings/internal/rating"
	"github.com/Clark-Hu/tutor-ratings/internal/repository"
	"github.com/Clark-Hu/tutor-ratings/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[tutor-ratings] ", log.LstdFlags|log.Lshortfile)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(ctx, cfg, logger); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	repo, st, err := repository.Open(dbCtx, cfg, true, logger)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}

	m := metrics.New()
	var health httpserver.HealthChecker
	if st != nil {
		defer st.Close()
		m.RegisterPoolStats(st.Stats)
		health = st
	}

	svc := rating.NewService(repo.Ratings, repo.Tutors, rating.Options{
		Cooldown: cfg.RatingCooldown,
		Logger:   logger,
		Recorder: m,
		Locker:   repo.Lock,
	})
	server := httpserver.New(cfg, svc, health, m, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}

// runMigrate applies the schema and exits. Only meaningful for postgres.
func runMigrate(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	if cfg.StorageBackend != config.BackendPostgres {
		logger.Printf("migrate: nothing to do for the %s backend", cfg.StorageBackend)
		return nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, repository.StoreOptions(cfg, logger))
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Migrate(dbCtx)
}
