package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/renameio/v2"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

func TestFileRatingStore_MissingFileLoadsEmpty(t *testing.T) {
	st := NewFileRatingStore(filepath.Join(t.TempDir(), "ratings.json"))
	records, err := st.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("records = %#v, want empty non-nil slice", records)
	}
}

func TestFileRatingStore_RoundTripAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ratings.json")
	st := NewFileRatingStore(path)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := st.Save(ctx, sampleRecords(now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len = %d, want 2", len(loaded))
	}
	if loaded[0].Categories == nil || loaded[0].Categories.Communication != 5 {
		t.Fatalf("categories lost: %+v", loaded[0])
	}
	if !loaded[1].Timestamp.Equal(now) {
		t.Fatalf("timestamp = %s, want %s", loaded[1].Timestamp, now)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ratings.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestFileRatingStore_ReadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.json")
	legacy := `[
  {
    "tutorId": 3,
    "rating": 4,
    "reviewText": "great",
    "email": "old@x.com",
    "timestamp": "2024-05-01T10:00:00.000Z"
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := NewFileRatingStore(path).LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.TutorID != 3 || rec.Rating != 4 || rec.DeviceID != "" || rec.Categories != nil {
		t.Fatalf("legacy record = %+v", rec)
	}
}

func TestFileRatingStore_CorruptDocumentIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.json")
	if err := os.WriteFile(path, []byte(`[{"tutorId":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := NewFileRatingStore(path).LoadAll(context.Background())
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func assertDirEntries(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("directory contents = %v, want %v", got, want)
	}
}

func TestFileRatingStore_FailedReplaceKeepsPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ratings.json")
	st := NewFileRatingStore(path)
	ctx := context.Background()

	if err := st.Save(ctx, sampleRecords(time.Now().UTC())); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	replaceErr := errors.New("rename failed")
	var pendingName string
	st.doc.replace = func(pf *renameio.PendingFile) error {
		pendingName = pf.Name()
		return replaceErr
	}
	err = st.Save(ctx, []domain.RatingRecord{{TutorID: 9, Rating: 1, Email: "x@y.com"}})
	if !errors.Is(err, ErrStorage) || !errors.Is(err, replaceErr) {
		t.Fatalf("expected wrapped replace error, got %v", err)
	}
	if filepath.Dir(pendingName) != dir {
		t.Fatalf("temp file %q not written next to the target", pendingName)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("document changed after a failed save:\n%s", after)
	}
	assertDirEntries(t, dir, "ratings.json")
}

func TestFileRatingStore_FailedEncodeKeepsPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ratings.json")
	st := NewFileRatingStore(path)
	ctx := context.Background()

	if err := st.Save(ctx, sampleRecords(time.Now().UTC())); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	broken := []domain.RatingRecord{{TutorID: 1, Rating: 4, Email: "a@x.com", DeviceInfo: []byte("{not json")}}
	if err := st.Save(ctx, broken); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("document changed after a failed save")
	}
	assertDirEntries(t, dir, "ratings.json")
}

func TestFileRatingStore_SaveOntoDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "blocked")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := NewFileRatingStore(target).Save(context.Background(), nil); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	assertDirEntries(t, dir, "blocked")
}

func TestFileTutorStore_FindByID(t *testing.T) {
	st := NewFileTutorStore(filepath.Join(t.TempDir(), "tutors.json"))
	ctx := context.Background()

	if _, err := st.FindByID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if err := st.Save(ctx, []domain.Tutor{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Grace"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.FindByID(ctx, 2)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Grace" {
		t.Fatalf("name = %s, want Grace", got.Name)
	}
}

func TestMemoryStores_DoNotAlias(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	records := sampleRecords(time.Now().UTC())
	if err := repo.Ratings.Save(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}
	records[0].Categories.Communication = 1
	records[0].DeviceInfo[0] = 'x'

	loaded, err := repo.Ratings.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded[0].Categories.Communication != 5 || loaded[0].DeviceInfo[0] != '{' {
		t.Fatalf("stored record aliased caller slice: %+v", loaded[0])
	}

	tutors := []domain.Tutor{{ID: 7, Name: "Linus"}}
	if err := repo.Tutors.Save(ctx, tutors); err != nil {
		t.Fatalf("save tutors: %v", err)
	}
	tutors[0].Name = "changed"
	got, err := repo.Tutors.FindByID(ctx, 7)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Linus" {
		t.Fatalf("tutor aliased: %+v", got)
	}
}
