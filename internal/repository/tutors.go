package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

// PostgresTutorStore stores tutor profiles in the tutors table.
type PostgresTutorStore struct {
	pool *pgxpool.Pool
}

const tutorColumns = `id, name, subject, location, faculty, image, rating, reviews`

func scanTutor(row pgx.Row) (domain.Tutor, error) {
	var t domain.Tutor
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Location, &t.Faculty, &t.Image, &t.Rating, &t.Reviews)
	return t, err
}

func (r *PostgresTutorStore) LoadAll(ctx context.Context) ([]domain.Tutor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tutorColumns+` FROM tutors ORDER BY id`)
	if err != nil {
		return nil, storageErr("query tutors", err)
	}
	defer rows.Close()

	tutors := []domain.Tutor{}
	for rows.Next() {
		t, err := scanTutor(rows)
		if err != nil {
			return nil, storageErr("scan tutor", err)
		}
		tutors = append(tutors, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate tutors", err)
	}
	return tutors, nil
}

func (r *PostgresTutorStore) FindByID(ctx context.Context, id int) (domain.Tutor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tutorColumns+` FROM tutors WHERE id = $1`, id)
	t, err := scanTutor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tutor{}, ErrNotFound
		}
		return domain.Tutor{}, storageErr("find tutor", err)
	}
	return t, nil
}

// Save upserts every tutor and removes those not present, in one transaction.
func (r *PostgresTutorStore) Save(ctx context.Context, tutors []domain.Tutor) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
        INSERT INTO tutors (id, name, subject, location, faculty, image, rating, reviews)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            subject = EXCLUDED.subject,
            location = EXCLUDED.location,
            faculty = EXCLUDED.faculty,
            image = EXCLUDED.image,
            rating = EXCLUDED.rating,
            reviews = EXCLUDED.reviews,
            updated_at = now()
    `
	ids := make([]int32, 0, len(tutors))
	batch := &pgx.Batch{}
	for _, t := range tutors {
		ids = append(ids, int32(t.ID))
		batch.Queue(upsert, t.ID, t.Name, t.Subject, t.Location, t.Faculty, t.Image, t.Rating, t.Reviews)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return storageErr("upsert tutors", err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tutors WHERE NOT (id = ANY($1))`, ids); err != nil {
		return storageErr("prune tutors", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit tutors", err)
	}
	return nil
}
