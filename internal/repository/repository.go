package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
	"github.com/Clark-Hu/tutor-ratings/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrStorage marks failures of the backing medium. Callers treat it as fatal
	// for the operation in progress.
	ErrStorage = errors.New("repository: storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// RatingStore persists the full collection of rating records. Save replaces
// the collection atomically; there are no partial writes.
type RatingStore interface {
	LoadAll(ctx context.Context) ([]domain.RatingRecord, error)
	Save(ctx context.Context, records []domain.RatingRecord) error
}

// TutorStore persists the full collection of tutor profiles.
type TutorStore interface {
	LoadAll(ctx context.Context) ([]domain.Tutor, error)
	Save(ctx context.Context, tutors []domain.Tutor) error
	FindByID(ctx context.Context, id int) (domain.Tutor, error)
}

// Repository bundles the two stores behind one backend, plus the lock that
// serializes their read-modify-write cycles across processes.
type Repository struct {
	Ratings RatingStore
	Tutors  TutorStore
	Lock    Locker
}

// New constructs postgres-backed stores on top of the shared pool.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Ratings: &PostgresRatingStore{pool: pool},
		Tutors:  &PostgresTutorStore{pool: pool},
		Lock:    &PostgresLocker{pool: pool},
	}
}

// NewFile constructs JSON-document stores inside dir.
func NewFile(dir, ratingsFile, tutorsFile string) *Repository {
	return &Repository{
		Ratings: NewFileRatingStore(filepath.Join(dir, ratingsFile)),
		Tutors:  NewFileTutorStore(filepath.Join(dir, tutorsFile)),
		Lock:    NewFileLocker(lockPath(dir)),
	}
}

// NewMemory constructs in-process stores, mainly for tests.
func NewMemory() *Repository {
	return &Repository{
		Ratings: &MemoryRatingStore{},
		Tutors:  &MemoryTutorStore{},
		Lock:    NewMemoryLocker(),
	}
}

func findTutor(tutors []domain.Tutor, id int) (domain.Tutor, error) {
	for _, t := range tutors {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Tutor{}, ErrNotFound
}
