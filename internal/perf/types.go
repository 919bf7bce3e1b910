package perf

import "time"

// Test is a single timed-distance exercise record. Subject name, society,
// weight and height are snapshots taken at creation; the derived metrics are
// always recomputed server-side from distance, time and weight and never
// accepted as client input.
type Test struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	SocietyID   string    `json:"society_id,omitempty"`
	Date        string    `json:"date"`
	Distance    float64   `json:"distance"`
	TimeSeconds float64   `json:"time_seconds"`
	Split500    float64   `json:"split_500"`
	Watts       float64   `json:"watts"`
	WattsPerKg  *float64  `json:"watts_per_kg,omitempty"`
	Strokes     *int      `json:"strokes,omitempty"`
	Weight      *float64  `json:"weight,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
