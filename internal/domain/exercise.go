package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ExerciseAssignment is an exercise a physiotherapist has put on a patient's
// daily plan. An assignment is active for every day between StartDate and
// EndDate inclusive; a nil EndDate means open-ended.
type ExerciseAssignment struct {
	bun.BaseModel `bun:"table:exercise_assignments"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	PatientID         int64      `bun:"patient_id,notnull" json:"patient_id"`
	PhysiotherapistID int64      `bun:"physiotherapist_id,notnull" json:"physiotherapist_id"`
	Name              string     `bun:"name,notnull" json:"name"`
	Repetitions       int        `bun:"repetitions" json:"repetitions"`
	StartDate         time.Time  `bun:"start_date,notnull" json:"start_date"`
	EndDate           *time.Time `bun:"end_date" json:"end_date,omitempty"`
	CreatedAt         time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

func (e *ExerciseAssignment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

// ActiveOn reports whether the assignment counts toward the given day.
func (e ExerciseAssignment) ActiveOn(day time.Time) bool {
	d := DayKey(day)
	if d.Before(DayKey(e.StartDate)) {
		return false
	}
	if e.EndDate != nil && d.After(DayKey(*e.EndDate)) {
		return false
	}
	return true
}

// ExerciseFeedback is a patient's report for one assigned exercise on one day.
type ExerciseFeedback struct {
	bun.BaseModel `bun:"table:exercise_feedback"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	PatientID    int64     `bun:"patient_id,notnull" json:"patient_id"`
	AssignmentID int64     `bun:"assignment_id,notnull" json:"assignment_id"`
	Day          time.Time `bun:"day,notnull" json:"day"`
	Completed    bool      `bun:"completed,notnull" json:"completed"`
	PainLevel    int       `bun:"pain_level" json:"pain_level"`
	Comment      string    `bun:"comment" json:"comment"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (f *ExerciseFeedback) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		f.UpdatedAt = now
	}
	return nil
}

// ProgressMetrics is a patient's exercise completion count for one day.
type ProgressMetrics struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Ratio is the completion fraction in [0, 1], the value behind the progress
// ring on the patient's home screen.
func (m ProgressMetrics) Ratio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Completed) / float64(m.Total)
}
