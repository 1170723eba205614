package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AppointmentStatus is the approval state of an appointment. A booking starts
// pending and becomes confirmed only through an explicit confirmation action;
// an accepted reschedule moves the appointment without touching its status.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                int64             `bun:"id,pk,autoincrement" json:"id"`
	PatientID         int64             `bun:"patient_id,notnull" json:"patient_id"`
	PhysiotherapistID int64             `bun:"physiotherapist_id,notnull" json:"physiotherapist_id"`
	Date              time.Time         `bun:"date,notnull" json:"date"`
	TimeOfDay         string            `bun:"time_of_day,notnull" json:"time_of_day"`
	Notes             string            `bun:"notes" json:"notes"`
	Status            AppointmentStatus `bun:"status,notnull" json:"status"`
	CreatedAt         time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// RescheduleState tracks a reschedule request through its lifecycle. The state
// machine is pending -> accepted or pending -> declined; terminal once resolved.
type RescheduleState string

const (
	RescheduleStatePending  RescheduleState = "pending"
	RescheduleStateAccepted RescheduleState = "accepted"
	RescheduleStateDeclined RescheduleState = "declined"
)

// RescheduleRequest is a physiotherapist-side proposal to move an existing
// appointment. It carries no appointment foreign key: the target is re-derived
// by matching the original date, time-of-day string and patient id against the
// patient's history.
type RescheduleRequest struct {
	bun.BaseModel `bun:"table:reschedule_requests"`

	ID                uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	PatientID         int64           `bun:"patient_id,notnull" json:"patient_id"`
	OriginalDate      time.Time       `bun:"original_date,notnull" json:"original_date"`
	OriginalTimeOfDay string          `bun:"original_time_of_day,notnull" json:"original_time_of_day"`
	ProposedDate      time.Time       `bun:"proposed_date,notnull" json:"proposed_date"`
	ProposedTimeOfDay string          `bun:"proposed_time_of_day,notnull" json:"proposed_time_of_day"`
	State             RescheduleState `bun:"state,notnull" json:"state"`
	CreatedAt         time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

func (r *RescheduleRequest) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}
