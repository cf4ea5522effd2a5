package rating

import (
	"errors"
	"math"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

// ErrNoRatings is returned by Aggregate for an empty record set.
var ErrNoRatings = errors.New("rating: no ratings to aggregate")

// Aggregate computes a tutor's projection from that tutor's records.
func Aggregate(records []domain.RatingRecord) (domain.Aggregate, error) {
	if len(records) == 0 {
		return domain.Aggregate{}, ErrNoRatings
	}
	var sum float64
	for _, r := range records {
		sum += r.Rating
	}
	return domain.Aggregate{
		Rating:  roundToOneDecimal(sum / float64(len(records))),
		Reviews: len(records),
	}, nil
}

// roundToOneDecimal rounds half up. The value is snapped to 1e-9 first so
// that binary artefacts such as 4.4499999999 round the way 4.45 reads.
func roundToOneDecimal(value float64) float64 {
	snapped := math.Round(value*1e9) / 1e9
	return math.Floor(snapped*10+0.5) / 10
}

func recordsForTutor(records []domain.RatingRecord, tutorID int) []domain.RatingRecord {
	var out []domain.RatingRecord
	for _, r := range records {
		if r.TutorID == tutorID {
			out = append(out, r)
		}
	}
	return out
}
