package rating

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

var t0 = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestCooldownPolicy_Check(t *testing.T) {
	day := 24 * time.Hour
	policy := NewCooldownPolicy(0)

	tests := []struct {
		name     string
		records  []domain.RatingRecord
		deviceID string
		now      time.Time
		admitted bool
		next     time.Time
		message  string
	}{
		{
			name:     "no records",
			deviceID: "D",
			now:      t0,
			admitted: true,
		},
		{
			name:     "same device rated three days ago",
			records:  []domain.RatingRecord{{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-3 * day)}},
			deviceID: "D",
			now:      t0,
			next:     t0.Add(4 * day),
			message:  "You can rate this tutor again in 4 day(s).",
		},
		{
			name:     "same device rated eight days ago",
			records:  []domain.RatingRecord{{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-8 * day)}},
			deviceID: "D",
			now:      t0,
			admitted: true,
		},
		{
			name:     "exactly at window edge is admitted",
			records:  []domain.RatingRecord{{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-7 * day)}},
			deviceID: "D",
			now:      t0,
			admitted: true,
		},
		{
			name:     "legacy record without device",
			records:  []domain.RatingRecord{{TutorID: 1, Timestamp: t0.Add(-time.Minute)}},
			deviceID: "D",
			now:      t0,
			admitted: true,
		},
		{
			name:     "empty device id never matches legacy records",
			records:  []domain.RatingRecord{{TutorID: 1, Timestamp: t0.Add(-time.Minute)}},
			deviceID: "",
			now:      t0,
			admitted: true,
		},
		{
			name:     "other tutor",
			records:  []domain.RatingRecord{{TutorID: 2, DeviceID: "D", Timestamp: t0.Add(-time.Hour)}},
			deviceID: "D",
			now:      t0,
			admitted: true,
		},
		{
			name:     "other device",
			records:  []domain.RatingRecord{{TutorID: 1, DeviceID: "E", Timestamp: t0.Add(-time.Hour)}},
			deviceID: "D",
			now:      t0,
			admitted: true,
		},
		{
			name: "latest qualifying record wins",
			records: []domain.RatingRecord{
				{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-5 * day)},
				{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-1 * day)},
				{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-3 * day)},
			},
			deviceID: "D",
			now:      t0,
			next:     t0.Add(6 * day),
			message:  "You can rate this tutor again in 6 day(s).",
		},
		{
			name:     "partial day rounds up",
			records:  []domain.RatingRecord{{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-6*day - time.Hour)}},
			deviceID: "D",
			now:      t0,
			next:     t0.Add(23 * time.Hour),
			message:  "You can rate this tutor again in 1 day(s).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Check(tt.records, 1, tt.deviceID, tt.now)
			assert.Equal(t, tt.admitted, got.Admitted)
			if !tt.admitted {
				assert.True(t, tt.next.Equal(got.NextEligibleAt), "next = %s, want %s", got.NextEligibleAt, tt.next)
				assert.Equal(t, tt.message, got.Message)
			}
		})
	}
}

func TestCooldownPolicy_CustomWindow(t *testing.T) {
	policy := NewCooldownPolicy(time.Hour)
	records := []domain.RatingRecord{{TutorID: 1, DeviceID: "D", Timestamp: t0.Add(-30 * time.Minute)}}

	got := policy.Check(records, 1, "D", t0)
	assert.False(t, got.Admitted)
	assert.True(t, got.NextEligibleAt.Equal(t0.Add(30*time.Minute)))

	got = policy.Check(records, 1, "D", t0.Add(31*time.Minute))
	assert.True(t, got.Admitted)
}
