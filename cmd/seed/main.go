package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/tutor-ratings/internal/config"
	"github.com/Clark-Hu/tutor-ratings/internal/domain"
	"github.com/Clark-Hu/tutor-ratings/internal/rating"
	"github.com/Clark-Hu/tutor-ratings/internal/repository"
)

type tutorEntry struct {
	ID       int     `json:"id" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required"`
	Subject  string  `json:"subject"`
	Location string  `json:"location"`
	Faculty  string  `json:"faculty"`
	Image    string  `json:"image"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=5"`
	Reviews  int     `json:"reviews" validate:"gte=0"`
}

func main() {
	var (
		tutorsPath = flag.String("tutors", "", "path to a JSON array of tutor profiles to load")
		recompute  = flag.Bool("recompute", false, "rebuild every tutor's rating from stored ratings")
	)
	flag.Parse()

	if *tutorsPath == "" && !*recompute {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "[tutor-ratings-seed] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	repo, st, err := repository.Open(ctx, cfg, true, logger)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	if st != nil {
		defer st.Close()
	}

	svc := rating.NewService(repo.Ratings, repo.Tutors, rating.Options{
		Cooldown: cfg.RatingCooldown,
		Logger:   logger,
		Locker:   repo.Lock,
	})
	if err := run(ctx, svc, *tutorsPath, *recompute, logger); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

// run loads the tutors document, if any, then optionally recomputes every
// projection. Loading already recomputes the tutors that have ratings.
func run(ctx context.Context, svc *rating.Service, tutorsPath string, recompute bool, logger *log.Logger) error {
	if tutorsPath != "" {
		tutors, err := readTutors(tutorsPath)
		if err != nil {
			return fmt.Errorf("read tutors: %w", err)
		}
		n, err := svc.ReplaceTutors(ctx, tutors)
		if err != nil {
			return fmt.Errorf("save tutors: %w", err)
		}
		logger.Printf("loaded %d tutors from %s (%d recomputed from ratings)", len(tutors), tutorsPath, n)
	}

	if recompute {
		n, err := svc.RecomputeAll(ctx)
		if err != nil {
			return fmt.Errorf("recompute: %w", err)
		}
		logger.Printf("recomputed ratings for %d tutors", n)
	}
	return nil
}

func readTutors(path string) ([]domain.Tutor, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []tutorEntry
	if err := json.Unmarshal(file, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	validate := validator.New()
	seen := make(map[int]struct{}, len(entries))
	tutors := make([]domain.Tutor, 0, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("entry %d: duplicate tutor id %d", i, e.ID)
		}
		seen[e.ID] = struct{}{}
		tutors = append(tutors, domain.Tutor{
			ID:       e.ID,
			Name:     e.Name,
			Subject:  e.Subject,
			Location: e.Location,
			Faculty:  e.Faculty,
			Image:    e.Image,
			Rating:   e.Rating,
			Reviews:  e.Reviews,
		})
	}
	return tutors, nil
}
