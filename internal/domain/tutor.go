package domain

// Tutor is a tutor profile as served to clients. Rating and Reviews are a
// projection of the tutor's rating records and are rewritten on every
// successful rating submission.
type Tutor struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Subject  string  `json:"subject,omitempty"`
	Location string  `json:"location,omitempty"`
	Faculty  string  `json:"faculty,omitempty"`
	Image    string  `json:"image,omitempty"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews"`
}

// Apply copies an aggregate onto the tutor's projection fields.
func (t *Tutor) Apply(agg Aggregate) {
	t.Rating = agg.Rating
	t.Reviews = agg.Reviews
}
