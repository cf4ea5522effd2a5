package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
	"github.com/Clark-Hu/tutor-ratings/internal/repository"
)

// Submission outcomes reported to the Recorder.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeCooldown = "cooldown"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder receives one outcome per SubmitRating call.
type Recorder interface {
	ObserveSubmission(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSubmission(string) {}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Cooldown time.Duration
	Now      func() time.Time
	Logger   *log.Logger
	Recorder Recorder
	// Locker excludes mutations made by other processes sharing the stores.
	// Without it only this Service's own calls are serialized.
	Locker repository.Locker
}

// Service admits, records and aggregates tutor ratings.
//
// Every mutation runs its read-modify-write of both stores under one mutex
// and, when configured, the backend's cross-process lock. Reads take no lock;
// the stores replace their collections atomically.
type Service struct {
	ratings  repository.RatingStore
	tutors   repository.TutorStore
	policy   CooldownPolicy
	now      func() time.Time
	logger   *log.Logger
	recorder Recorder
	locker   repository.Locker

	mu sync.Mutex
}

// NewService wires a Service over the given stores.
func NewService(ratings repository.RatingStore, tutors repository.TutorStore, opts Options) *Service {
	s := &Service{
		ratings:  ratings,
		tutors:   tutors,
		policy:   NewCooldownPolicy(opts.Cooldown),
		now:      opts.Now,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		locker:   opts.Locker,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

// lock takes the in-process mutex and then the shared backend lock.
func (s *Service) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.locker == nil {
		return s.mu.Unlock, nil
	}
	release, err := s.locker.Lock(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return func() {
		release()
		s.mu.Unlock()
	}, nil
}

// Eligibility is the answer to CanRate.
type Eligibility struct {
	CanRate        bool
	Message        string
	NextRatingDate *time.Time
}

// CanRate reports whether deviceID may currently rate tutorID. It has no side effects.
func (s *Service) CanRate(ctx context.Context, tutorID int, deviceID string) (Eligibility, error) {
	records, err := s.ratings.LoadAll(ctx)
	if err != nil {
		return Eligibility{}, fmt.Errorf("load ratings: %w", err)
	}
	decision := s.policy.Check(records, tutorID, deviceID, s.now())
	if decision.Admitted {
		return Eligibility{CanRate: true}, nil
	}
	next := decision.NextEligibleAt.UTC()
	return Eligibility{CanRate: false, Message: decision.Message, NextRatingDate: &next}, nil
}

// SubmitRequest is a rating submission. When Categories is set, Rating is
// ignored; otherwise Rating is taken as a pre-averaged legacy scalar.
type SubmitRequest struct {
	TutorID    int
	Categories *domain.CategoryScores
	Rating     float64
	ReviewText string
	Email      string
	DeviceID   string
	DeviceInfo json.RawMessage
}

// SubmitResult is returned on a successful submission. Aggregate is nil when
// the tutor does not exist and the projection refresh was skipped.
type SubmitResult struct {
	Success   bool
	Updated   bool
	Aggregate *domain.Aggregate
}

// SubmitRating admits the submission against the cooldown, upserts the record
// under the normalized email and refreshes the tutor's projection.
//
// Errors: *CooldownError when the device is cooling down, *ValidationError for
// malformed input, and storage errors (repository.ErrStorage) otherwise.
func (s *Service) SubmitRating(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	res, outcome, err := s.submit(ctx, req)
	s.recorder.ObserveSubmission(outcome)
	return res, err
}

func (s *Service) submit(ctx context.Context, req SubmitRequest) (SubmitResult, string, error) {
	key := domain.NormalizeEmail(req.Email)
	if key == "" {
		return SubmitResult{}, OutcomeInvalid, &ValidationError{Field: "email", Message: "is required"}
	}
	if req.TutorID <= 0 {
		return SubmitResult{}, OutcomeInvalid, &ValidationError{Field: "tutorId", Message: "must be a positive integer"}
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return SubmitResult{}, OutcomeError, err
	}
	defer unlock()

	now := s.now().UTC()
	records, err := s.ratings.LoadAll(ctx)
	if err != nil {
		return SubmitResult{}, OutcomeError, fmt.Errorf("load ratings: %w", err)
	}

	if decision := s.policy.Check(records, req.TutorID, req.DeviceID, now); !decision.Admitted {
		return SubmitResult{}, OutcomeCooldown, &CooldownError{
			NextEligibleAt: decision.NextEligibleAt.UTC(),
			Message:        decision.Message,
		}
	}

	scalar, err := scalarRating(req)
	if err != nil {
		return SubmitResult{}, OutcomeInvalid, err
	}

	reviewText := req.ReviewText
	if reviewText == "" && req.Categories != nil {
		reviewText = req.Categories.Breakdown()
	}
	var categories *domain.CategoryScores
	if req.Categories != nil {
		cp := *req.Categories
		categories = &cp
	}

	updated := false
	for i := range records {
		if records[i].TutorID == req.TutorID && records[i].SubmitterKey() == key {
			rec := &records[i]
			rec.Rating = scalar
			rec.Categories = categories
			rec.ReviewText = reviewText
			rec.DeviceID = req.DeviceID
			rec.DeviceInfo = req.DeviceInfo
			rec.Timestamp = now
			updated = true
			break
		}
	}
	if !updated {
		records = append(records, domain.RatingRecord{
			ID:         uuid.NewString(),
			TutorID:    req.TutorID,
			Rating:     scalar,
			Categories: categories,
			ReviewText: reviewText,
			Email:      strings.TrimSpace(req.Email),
			DeviceID:   req.DeviceID,
			DeviceInfo: req.DeviceInfo,
			Timestamp:  now,
		})
	}

	if err := s.ratings.Save(ctx, records); err != nil {
		return SubmitResult{}, OutcomeError, fmt.Errorf("save ratings: %w", err)
	}

	outcome := OutcomeCreated
	if updated {
		outcome = OutcomeUpdated
	}
	result := SubmitResult{Success: true, Updated: updated}

	agg, err := s.refreshTutor(ctx, req.TutorID, records)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Printf("rating: tutor %d not found, aggregate refresh skipped", req.TutorID)
	case err != nil:
		return SubmitResult{}, OutcomeError, err
	default:
		result.Aggregate = &agg
	}
	return result, outcome, nil
}

// refreshTutor recomputes tutorID's projection from records and persists it.
// Callers hold the service lock.
func (s *Service) refreshTutor(ctx context.Context, tutorID int, records []domain.RatingRecord) (domain.Aggregate, error) {
	if _, err := s.tutors.FindByID(ctx, tutorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Aggregate{}, err
		}
		return domain.Aggregate{}, fmt.Errorf("find tutor: %w", err)
	}

	agg, err := Aggregate(recordsForTutor(records, tutorID))
	if err != nil {
		return domain.Aggregate{}, err
	}

	tutors, err := s.tutors.LoadAll(ctx)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("load tutors: %w", err)
	}
	for i := range tutors {
		if tutors[i].ID == tutorID {
			tutors[i].Apply(agg)
		}
	}
	if err := s.tutors.Save(ctx, tutors); err != nil {
		return domain.Aggregate{}, fmt.Errorf("save tutors: %w", err)
	}
	return agg, nil
}

// RecomputeAll rebuilds every tutor's projection from the rating records.
// Tutors without ratings keep their current values. It returns the number of
// tutors whose projection was recomputed.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, err := s.ratings.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ratings: %w", err)
	}
	tutors, err := s.tutors.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tutors: %w", err)
	}
	return s.saveProjections(ctx, tutors, records)
}

// ReplaceTutors replaces the tutor collection with profiles. A profile whose
// tutor already has ratings gets its projection recomputed from them; the
// supplied rating and reviews are kept only for tutors nobody has rated. It
// returns the number of tutors whose projection was recomputed.
func (s *Service) ReplaceTutors(ctx context.Context, profiles []domain.Tutor) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, err := s.ratings.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ratings: %w", err)
	}
	tutors := make([]domain.Tutor, len(profiles))
	copy(tutors, profiles)
	return s.saveProjections(ctx, tutors, records)
}

// saveProjections applies the aggregate of records to every rated tutor and
// saves the collection. Callers hold the service lock.
func (s *Service) saveProjections(ctx context.Context, tutors []domain.Tutor, records []domain.RatingRecord) (int, error) {
	n := 0
	for i := range tutors {
		own := recordsForTutor(records, tutors[i].ID)
		if len(own) == 0 {
			continue
		}
		agg, err := Aggregate(own)
		if err != nil {
			return 0, err
		}
		tutors[i].Apply(agg)
		n++
	}
	if err := s.tutors.Save(ctx, tutors); err != nil {
		return 0, fmt.Errorf("save tutors: %w", err)
	}
	return n, nil
}

// Tutors returns every tutor profile.
func (s *Service) Tutors(ctx context.Context) ([]domain.Tutor, error) {
	return s.tutors.LoadAll(ctx)
}

// Ratings returns every rating record.
func (s *Service) Ratings(ctx context.Context) ([]domain.RatingRecord, error) {
	return s.ratings.LoadAll(ctx)
}

func scalarRating(req SubmitRequest) (float64, error) {
	if req.Categories == nil {
		if req.Rating < 1 || req.Rating > 5 {
			return 0, &ValidationError{Field: "rating", Message: "must be between 1 and 5"}
		}
		return req.Rating, nil
	}
	names := [5]string{"communication", "experience", "clarity", "punctuality", "satisfaction"}
	for i, v := range req.Categories.Values() {
		if v < 1 || v > 5 {
			return 0, &ValidationError{Field: names[i], Message: "must be an integer between 1 and 5"}
		}
	}
	return req.Categories.Mean(), nil
}
