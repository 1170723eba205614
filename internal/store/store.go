package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"physiotrack/backend/internal/domain"
)

// Store is the single source of truth for patients, physiotherapists,
// appointments, reschedule requests and exercise data. Implementations must
// serialize mutations so that concurrent reschedule acceptance and direct
// rescheduling of the same appointment cannot lose updates; readers get
// snapshots and never observe partial writes.
type Store interface {
	GetPatient(ctx context.Context, id int64) (domain.Patient, error)
	GetPhysiotherapist(ctx context.Context, id int64) (domain.Physiotherapist, error)
	UpdatePatient(ctx context.Context, p domain.Patient) (domain.Patient, error)

	// AddAppointment appends to the owning patient's history and assigns the
	// appointment id. The caller has already validated that the patient exists.
	AddAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	ListAppointments(ctx context.Context, patientID int64) ([]domain.Appointment, error)
	// RescheduleAppointment overwrites date and time of the appointment,
	// leaving its status untouched.
	RescheduleAppointment(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error)
	ConfirmAppointment(ctx context.Context, appointmentID int64) (domain.Appointment, error)
	// FindAppointmentByOriginal resolves an appointment by (date, time-of-day
	// string, patient id). Zero matches and multiple matches are both
	// ErrNotFound: an ambiguous link is treated as a miss.
	FindAppointmentByOriginal(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error)

	CreateRescheduleRequest(ctx context.Context, req domain.RescheduleRequest) (domain.RescheduleRequest, error)
	GetRescheduleRequest(ctx context.Context, id uuid.UUID) (domain.RescheduleRequest, error)
	ListRescheduleRequests(ctx context.Context, patientID int64) ([]domain.RescheduleRequest, error)
	// ResolveRescheduleRequest moves a pending request to accepted or
	// declined. Resolved requests are terminal; resolving twice is
	// ErrAlreadyResolved.
	ResolveRescheduleRequest(ctx context.Context, id uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error)

	ListExerciseAssignments(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseAssignment, error)
	AddExerciseFeedback(ctx context.Context, fb domain.ExerciseFeedback) (domain.ExerciseFeedback, error)
	ListExerciseFeedback(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseFeedback, error)
}
