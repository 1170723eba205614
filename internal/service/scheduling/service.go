package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrRequestNotFound = errors.New("reschedule request not found")
)

// Service owns the booking and reschedule workflows: it validates user intent
// against the clock and turns it into store mutations. A past-dated or
// incomplete appointment never reaches the store.
type Service struct {
	store store.Store
	log   *slog.Logger

	// now is swappable so the today/future boundary is testable.
	now func() time.Time
}

func NewService(st store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: st,
		log:   log.With(slog.String("component", "scheduling")),
		now:   time.Now,
	}
}

type BookingInput struct {
	PatientID         int64
	PhysiotherapistID int64
	Date              time.Time
	TimeOfDay         string
	Notes             string
}

// ProposeBooking validates and books a new pending appointment. The selected
// date and time must be strictly after the current moment; exactly "now" is
// rejected.
func (s *Service) ProposeBooking(ctx context.Context, in BookingInput) (domain.Appointment, error) {
	timeOfDay := strings.TrimSpace(in.TimeOfDay)
	if timeOfDay == "" {
		return domain.Appointment{}, validationError("time_of_day is required")
	}

	patient, err := s.store.GetPatient(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, ErrPatientNotFound
		}
		return domain.Appointment{}, err
	}

	now := s.now()
	if err := s.rejectPast(in.Date, timeOfDay, now); err != nil {
		return domain.Appointment{}, err
	}

	physioID := in.PhysiotherapistID
	if physioID == 0 && patient.PhysiotherapistID != nil {
		physioID = *patient.PhysiotherapistID
	}
	if physioID == 0 {
		return domain.Appointment{}, validationError("physiotherapist_id is required")
	}

	appt, err := s.store.AddAppointment(ctx, domain.Appointment{
		PatientID:         patient.ID,
		PhysiotherapistID: physioID,
		Date:              domain.DayKey(in.Date),
		TimeOfDay:         timeOfDay,
		Notes:             strings.TrimSpace(in.Notes),
		Status:            domain.AppointmentStatusPending,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.log.Info("appointment booked",
		slog.Int64("appointment_id", appt.ID),
		slog.Int64("patient_id", appt.PatientID),
		slog.Time("date", appt.Date),
		slog.String("time_of_day", appt.TimeOfDay),
	)
	return appt, nil
}

// DefaultBookingSlot pre-populates the booking form: tomorrow at 09:00 local
// time, regardless of the current time of day.
func (s *Service) DefaultBookingSlot() (time.Time, string) {
	now := s.now()
	// Build 09:00 from calendar components so the wall clock holds on days
	// when the UTC offset changes.
	y, m, d := now.AddDate(0, 0, 1).Date()
	slot := time.Date(y, m, d, 9, 0, 0, 0, now.Location())
	return domain.StartOfDay(slot, now.Location()), domain.FormatTimeOfDay(slot)
}

// MinimumSelectableTime is the floor for the time picker. For today it is the
// current instant, so the floor moves forward continuously; for any other day
// it is that day's midnight.
func (s *Service) MinimumSelectableTime(date time.Time) time.Time {
	now := s.now()
	if domain.SameDay(date, now) {
		return now
	}
	return domain.StartOfDay(date, now.Location())
}

// CombineDatePreservingTime recombines a previously chosen calendar day with
// a newly picked time of day. The new time is rejected, keeping the prior
// selection, only when the combination would be in the past and the chosen
// day is today; a future day accepts any time.
func (s *Service) CombineDatePreservingTime(current time.Time, newTimeOfDay string) time.Time {
	candidate, err := domain.CombineDateAndTime(current, newTimeOfDay, current.Location())
	if err != nil {
		return current
	}
	now := s.now()
	if candidate.Before(now) && domain.SameDay(current, now) {
		return current
	}
	return candidate
}

type RescheduleResponseInput struct {
	RequestID    uuid.UUID
	NewDate      time.Time
	NewTimeOfDay string
	Accept       bool
}

// RescheduleOutcome reports how a response was applied. OriginalFound is
// false when the request could not be matched back to an appointment; the
// request is resolved regardless and the miss is logged. Appointment is nil
// whenever no move was applied, including when the move itself failed after
// the request was accepted.
type RescheduleOutcome struct {
	Request       domain.RescheduleRequest
	Appointment   *domain.Appointment
	OriginalFound bool
}

// RespondToReschedule applies the patient's accept or decline decision to a
// pending reschedule request. Decline never touches the appointment. Accept
// validates the new date/time like a booking, then overwrites the matched
// appointment's date and time, leaving its status unchanged.
func (s *Service) RespondToReschedule(ctx context.Context, in RescheduleResponseInput) (RescheduleOutcome, error) {
	req, err := s.store.GetRescheduleRequest(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RescheduleOutcome{}, ErrRequestNotFound
		}
		return RescheduleOutcome{}, err
	}
	if req.State != domain.RescheduleStatePending {
		return RescheduleOutcome{}, store.ErrAlreadyResolved
	}

	if !in.Accept {
		resolved, err := s.store.ResolveRescheduleRequest(ctx, req.ID, domain.RescheduleStateDeclined)
		if err != nil {
			return RescheduleOutcome{}, err
		}
		s.log.Info("reschedule declined", slog.String("request_id", req.ID.String()), slog.Int64("patient_id", req.PatientID))
		return RescheduleOutcome{Request: resolved, OriginalFound: true}, nil
	}

	newDate := in.NewDate
	newTimeOfDay := strings.TrimSpace(in.NewTimeOfDay)
	if newTimeOfDay == "" {
		newDate = req.ProposedDate
		newTimeOfDay = req.ProposedTimeOfDay
	}

	if err := s.rejectPast(newDate, newTimeOfDay, s.now()); err != nil {
		return RescheduleOutcome{}, err
	}

	resolved, err := s.store.ResolveRescheduleRequest(ctx, req.ID, domain.RescheduleStateAccepted)
	if err != nil {
		return RescheduleOutcome{}, err
	}

	original, err := s.store.FindAppointmentByOriginal(ctx, req.PatientID, req.OriginalDate, req.OriginalTimeOfDay)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The request is already accepted; the appointment link is broken
			// but the user-facing flow must not fail.
			s.log.Warn("original appointment not found for accepted reschedule",
				slog.String("request_id", req.ID.String()),
				slog.Int64("patient_id", req.PatientID),
				slog.Time("original_date", req.OriginalDate),
				slog.String("original_time_of_day", req.OriginalTimeOfDay),
			)
			return RescheduleOutcome{Request: resolved, OriginalFound: false}, nil
		}
		return RescheduleOutcome{}, err
	}

	moved, err := s.store.RescheduleAppointment(ctx, original.ID, newDate, newTimeOfDay)
	if err != nil {
		// The request is already accepted; report the outcome with the
		// appointment unmoved rather than masking the resolution.
		s.log.Error("appointment move failed for accepted reschedule",
			slog.Any("err", err),
			slog.String("request_id", req.ID.String()),
			slog.Int64("appointment_id", original.ID),
		)
		return RescheduleOutcome{Request: resolved, OriginalFound: true}, nil
	}

	s.log.Info("reschedule accepted",
		slog.String("request_id", req.ID.String()),
		slog.Int64("appointment_id", moved.ID),
		slog.Time("date", moved.Date),
		slog.String("time_of_day", moved.TimeOfDay),
	)
	return RescheduleOutcome{Request: resolved, Appointment: &moved, OriginalFound: true}, nil
}

type ProposeRescheduleInput struct {
	PatientID         int64
	OriginalDate      time.Time
	OriginalTimeOfDay string
	ProposedDate      time.Time
	ProposedTimeOfDay string
}

// ProposeReschedule records a physiotherapist-side request to move one of the
// patient's appointments. The request stays pending until the patient
// responds.
func (s *Service) ProposeReschedule(ctx context.Context, in ProposeRescheduleInput) (domain.RescheduleRequest, error) {
	if _, err := s.store.GetPatient(ctx, in.PatientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RescheduleRequest{}, ErrPatientNotFound
		}
		return domain.RescheduleRequest{}, err
	}

	originalTime := strings.TrimSpace(in.OriginalTimeOfDay)
	if originalTime == "" {
		return domain.RescheduleRequest{}, validationError("original_time_of_day is required")
	}
	proposedTime := strings.TrimSpace(in.ProposedTimeOfDay)
	if err := s.rejectPast(in.ProposedDate, proposedTime, s.now()); err != nil {
		return domain.RescheduleRequest{}, err
	}

	req, err := s.store.CreateRescheduleRequest(ctx, domain.RescheduleRequest{
		PatientID:         in.PatientID,
		OriginalDate:      domain.DayKey(in.OriginalDate),
		OriginalTimeOfDay: originalTime,
		ProposedDate:      domain.DayKey(in.ProposedDate),
		ProposedTimeOfDay: proposedTime,
		State:             domain.RescheduleStatePending,
	})
	if err != nil {
		return domain.RescheduleRequest{}, err
	}

	s.log.Info("reschedule proposed",
		slog.String("request_id", req.ID.String()),
		slog.Int64("patient_id", req.PatientID),
		slog.Time("proposed_date", req.ProposedDate),
		slog.String("proposed_time_of_day", req.ProposedTimeOfDay),
	)
	return req, nil
}

// Reschedules lists a patient's reschedule requests, pending and resolved.
func (s *Service) Reschedules(ctx context.Context, patientID int64) ([]domain.RescheduleRequest, error) {
	if _, err := s.store.GetPatient(ctx, patientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return s.store.ListRescheduleRequests(ctx, patientID)
}

// Confirm marks a pending appointment as confirmed. This is the only
// transition that sets the confirmed status.
func (s *Service) Confirm(ctx context.Context, appointmentID int64) (domain.Appointment, error) {
	appt, err := s.store.ConfirmAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	s.log.Info("appointment confirmed", slog.Int64("appointment_id", appt.ID))
	return appt, nil
}

func (s *Service) rejectPast(date time.Time, timeOfDay string, now time.Time) error {
	combined, err := domain.CombineDateAndTime(date, timeOfDay, now.Location())
	if err != nil {
		return validationError(err.Error())
	}
	if !combined.After(now) {
		return validationError("selected date and time is in the past")
	}
	return nil
}
