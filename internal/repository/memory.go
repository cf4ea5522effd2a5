package repository

import (
	"context"
	"sync"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

// MemoryRatingStore holds rating records in process memory. Load and Save copy
// so callers never alias the stored slice.
type MemoryRatingStore struct {
	mu      sync.RWMutex
	records []domain.RatingRecord
}

func (s *MemoryRatingStore) LoadAll(ctx context.Context) ([]domain.RatingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records), nil
}

func (s *MemoryRatingStore) Save(ctx context.Context, records []domain.RatingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := cloneRecords(records)
	s.mu.Lock()
	s.records = cp
	s.mu.Unlock()
	return nil
}

func cloneRecords(in []domain.RatingRecord) []domain.RatingRecord {
	out := make([]domain.RatingRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// MemoryTutorStore holds tutor profiles in process memory.
type MemoryTutorStore struct {
	mu     sync.RWMutex
	tutors []domain.Tutor
}

func (s *MemoryTutorStore) LoadAll(ctx context.Context) ([]domain.Tutor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Tutor{}, s.tutors...), nil
}

func (s *MemoryTutorStore) Save(ctx context.Context, tutors []domain.Tutor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := append([]domain.Tutor{}, tutors...)
	s.mu.Lock()
	s.tutors = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryTutorStore) FindByID(ctx context.Context, id int) (domain.Tutor, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tutor{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findTutor(s.tutors, id)
}
