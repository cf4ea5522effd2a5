package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

// jsonDocument is a collection stored as a single JSON array on disk.
type jsonDocument[T any] struct {
	path string
	// replace commits a written pending file over path.
	replace func(*renameio.PendingFile) error
}

func (d jsonDocument[T]) load() ([]T, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, storageErr("read "+d.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, storageErr("decode "+d.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// save writes a temp file in the target directory and renames it over the
// target, so readers observe either the old or the new document.
func (d jsonDocument[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("mkdir "+dir, err)
	}
	pf, err := renameio.NewPendingFile(d.path, renameio.WithTempDir(dir), renameio.WithPermissions(0o644))
	if err != nil {
		return storageErr("create temp file", err)
	}
	defer pf.Cleanup()

	enc := json.NewEncoder(pf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return storageErr("encode "+d.path, err)
	}

	replace := d.replace
	if replace == nil {
		replace = (*renameio.PendingFile).CloseAtomicallyReplace
	}
	if err := replace(pf); err != nil {
		return storageErr("replace "+d.path, err)
	}
	return nil
}

// FileRatingStore keeps rating records in a JSON file.
type FileRatingStore struct {
	doc jsonDocument[domain.RatingRecord]
}

// NewFileRatingStore returns a store backed by the file at path. The file is
// created on first save.
func NewFileRatingStore(path string) *FileRatingStore {
	return &FileRatingStore{doc: jsonDocument[domain.RatingRecord]{path: path}}
}

// LoadAll reads every rating record.
func (s *FileRatingStore) LoadAll(ctx context.Context) ([]domain.RatingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.doc.load()
}

// Save replaces the rating document.
func (s *FileRatingStore) Save(ctx context.Context, records []domain.RatingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.doc.save(records)
}

// FileTutorStore keeps tutor profiles in a JSON file.
type FileTutorStore struct {
	doc jsonDocument[domain.Tutor]
}

// NewFileTutorStore returns a store backed by the file at path.
func NewFileTutorStore(path string) *FileTutorStore {
	return &FileTutorStore{doc: jsonDocument[domain.Tutor]{path: path}}
}

func (s *FileTutorStore) LoadAll(ctx context.Context) ([]domain.Tutor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.doc.load()
}

func (s *FileTutorStore) Save(ctx context.Context, tutors []domain.Tutor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.doc.save(tutors)
}

func (s *FileTutorStore) FindByID(ctx context.Context, id int) (domain.Tutor, error) {
	tutors, err := s.LoadAll(ctx)
	if err != nil {
		return domain.Tutor{}, err
	}
	return findTutor(tutors, id)
}
