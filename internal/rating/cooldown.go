package rating

import (
	"fmt"
	"math"
	"time"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
)

// DefaultCooldown is how long a device must wait before rating the same tutor again.
const DefaultCooldown = 7 * 24 * time.Hour

// Decision is the outcome of a cooldown check.
type Decision struct {
	Admitted       bool
	NextEligibleAt time.Time
	Message        string
}

// CooldownPolicy admits at most one rating per (device, tutor) per window.
// Records without a device id never count against a device.
type CooldownPolicy struct {
	Window time.Duration
}

// NewCooldownPolicy returns a policy with the given window, falling back to
// DefaultCooldown when window is not positive.
func NewCooldownPolicy(window time.Duration) CooldownPolicy {
	if window <= 0 {
		window = DefaultCooldown
	}
	return CooldownPolicy{Window: window}
}

// Check decides whether deviceID may rate tutorID at now, given every stored record.
func (p CooldownPolicy) Check(records []domain.RatingRecord, tutorID int, deviceID string, now time.Time) Decision {
	window := p.Window
	if window <= 0 {
		window = DefaultCooldown
	}
	if deviceID == "" {
		return Decision{Admitted: true}
	}

	since := now.Add(-window)
	var latest time.Time
	found := false
	for _, r := range records {
		if r.TutorID != tutorID || r.DeviceID == "" || r.DeviceID != deviceID {
			continue
		}
		if !r.Timestamp.After(since) {
			continue
		}
		if !found || r.Timestamp.After(latest) {
			latest = r.Timestamp
			found = true
		}
	}
	if !found {
		return Decision{Admitted: true}
	}

	next := latest.Add(window)
	return Decision{
		Admitted:       false,
		NextEligibleAt: next,
		Message:        fmt.Sprintf("You can rate this tutor again in %d day(s).", daysUntil(now, next)),
	}
}

func daysUntil(now, t time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}
