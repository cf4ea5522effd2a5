package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

// PostgresRatingStore stores rating records in the ratings table.
type PostgresRatingStore struct {
	pool *pgxpool.Pool
}

const ratingColumns = `
    id::text,
    tutor_id,
    email,
    rating,
    communication,
    experience,
    clarity,
    punctuality,
    satisfaction,
    review_text,
    device_id,
    device_info,
    rated_at
`

// LoadAll returns every rating record ordered by submission time.
func (r *PostgresRatingStore) LoadAll(ctx context.Context) ([]domain.RatingRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ratingColumns+` FROM ratings ORDER BY rated_at, id`)
	if err != nil {
		return nil, storageErr("query ratings", err)
	}
	defer rows.Close()

	records := []domain.RatingRecord{}
	for rows.Next() {
		rec, err := scanRating(rows)
		if err != nil {
			return nil, storageErr("scan rating", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate ratings", err)
	}
	return records, nil
}

func scanRating(row pgx.Row) (domain.RatingRecord, error) {
	var (
		rec                              domain.RatingRecord
		comm, exp, clarity, punct, satis *int
		deviceID                         *string
		deviceInfo                       []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.TutorID,
		&rec.Email,
		&rec.Rating,
		&comm,
		&exp,
		&clarity,
		&punct,
		&satis,
		&rec.ReviewText,
		&deviceID,
		&deviceInfo,
		&rec.Timestamp,
	)
	if err != nil {
		return domain.RatingRecord{}, err
	}
	if comm != nil && exp != nil && clarity != nil && punct != nil && satis != nil {
		rec.Categories = &domain.CategoryScores{
			Communication: *comm,
			Experience:    *exp,
			Clarity:       *clarity,
			Punctuality:   *punct,
			Satisfaction:  *satis,
		}
	}
	if deviceID != nil {
		rec.DeviceID = *deviceID
	}
	if len(deviceInfo) > 0 {
		rec.DeviceInfo = deviceInfo
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

// Save replaces the ratings table with records inside one transaction.
// Records without an ID (imported legacy data) are assigned one.
func (r *PostgresRatingStore) Save(ctx context.Context, records []domain.RatingRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ratings`); err != nil {
		return storageErr("clear ratings", err)
	}

	const insert = `
        INSERT INTO ratings (id, tutor_id, submitter_key, email, rating,
            communication, experience, clarity, punctuality, satisfaction,
            review_text, device_id, device_info, rated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `
	batch := &pgx.Batch{}
	for _, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		var cats [5]any
		if rec.Categories != nil {
			for i, v := range rec.Categories.Values() {
				cats[i] = v
			}
		}
		var deviceID any
		if rec.DeviceID != "" {
			deviceID = rec.DeviceID
		}
		var deviceInfo any
		if len(rec.DeviceInfo) > 0 {
			deviceInfo = []byte(rec.DeviceInfo)
		}
		batch.Queue(insert,
			id, rec.TutorID, rec.SubmitterKey(), rec.Email, rec.Rating,
			cats[0], cats[1], cats[2], cats[3], cats[4],
			rec.ReviewText, deviceID, deviceInfo, rec.Timestamp,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return storageErr("insert ratings", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit ratings", err)
	}
	return nil
}
