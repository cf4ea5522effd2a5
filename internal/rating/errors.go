package rating

import (
	"errors"
	"fmt"
	"time"
)

// ErrCooldownActive matches any *CooldownError via errors.Is.
var ErrCooldownActive = errors.New("rating: cooldown active")

// ValidationError reports malformed submission input. No state is changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// CooldownError reports that the device rated this tutor too recently.
type CooldownError struct {
	NextEligibleAt time.Time
	Message        string
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("rating: cooldown active until %s", e.NextEligibleAt.Format(time.RFC3339))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
