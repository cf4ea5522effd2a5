package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CategoryScores holds the five per-category scores of a single rating.
type CategoryScores struct {
	Communication int `json:"communication"`
	Experience    int `json:"experience"`
	Clarity       int `json:"clarity"`
	Punctuality   int `json:"punctuality"`
	Satisfaction  int `json:"satisfaction"`
}

// Values returns the scores in display order.
func (c CategoryScores) Values() [5]int {
	return [5]int{c.Communication, c.Experience, c.Clarity, c.Punctuality, c.Satisfaction}
}

// Mean returns the scalar rating for the five categories.
func (c CategoryScores) Mean() float64 {
	sum := 0
	for _, v := range c.Values() {
		sum += v
	}
	return float64(sum) / 5
}

// Breakdown renders the scores the way the rating form labels them.
func (c CategoryScores) Breakdown() string {
	return fmt.Sprintf("Communication: %d/5, Experience: %d/5, Clarity: %d/5, Punctuality: %d/5, Satisfaction: %d/5",
		c.Communication, c.Experience, c.Clarity, c.Punctuality, c.Satisfaction)
}

// RatingRecord is one submitter's rating of one tutor. Records are keyed by
// (TutorID, SubmitterKey()); a resubmission rewrites the record in place.
type RatingRecord struct {
	ID         string          `json:"id,omitempty"`
	TutorID    int             `json:"tutorId"`
	Rating     float64         `json:"rating"`
	Categories *CategoryScores `json:"categories,omitempty"`
	ReviewText string          `json:"reviewText,omitempty"`
	Email      string          `json:"email"`
	DeviceID   string          `json:"deviceId,omitempty"`
	DeviceInfo json.RawMessage `json:"deviceInfo,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SubmitterKey is the normalized identity a record is upserted under.
func (r RatingRecord) SubmitterKey() string {
	return NormalizeEmail(r.Email)
}

// NormalizeEmail case-folds and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Aggregate is the derived rating projection for a tutor.
type Aggregate struct {
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

// Clone returns a copy that shares no mutable state with r.
func (r RatingRecord) Clone() RatingRecord {
	out := r
	if r.Categories != nil {
		cats := *r.Categories
		out.Categories = &cats
	}
	if r.DeviceInfo != nil {
		out.DeviceInfo = append(json.RawMessage(nil), r.DeviceInfo...)
	}
	return out
}
