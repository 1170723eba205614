package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/store"
)

type fakeStore struct {
	getPatientFn         func(ctx context.Context, id int64) (domain.Patient, error)
	addAppointmentFn     func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	rescheduleFn         func(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error)
	confirmFn            func(ctx context.Context, appointmentID int64) (domain.Appointment, error)
	findByOriginalFn     func(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error)
	getRequestFn         func(ctx context.Context, id uuid.UUID) (domain.RescheduleRequest, error)
	resolveRequestFn     func(ctx context.Context, id uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error)
	rescheduleCalls      int
	resolveRequestCalls  int
}

func (f *fakeStore) GetPatient(ctx context.Context, id int64) (domain.Patient, error) {
	if f.getPatientFn == nil {
		panic("GetPatient not configured")
	}
	return f.getPatientFn(ctx, id)
}

func (f *fakeStore) GetPhysiotherapist(ctx context.Context, id int64) (domain.Physiotherapist, error) {
	panic("GetPhysiotherapist not configured")
}

func (f *fakeStore) UpdatePatient(ctx context.Context, p domain.Patient) (domain.Patient, error) {
	panic("UpdatePatient not configured")
}

func (f *fakeStore) AddAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if f.addAppointmentFn == nil {
		panic("AddAppointment not configured")
	}
	return f.addAppointmentFn(ctx, appt)
}

func (f *fakeStore) ListAppointments(ctx context.Context, patientID int64) ([]domain.Appointment, error) {
	panic("ListAppointments not configured")
}

func (f *fakeStore) RescheduleAppointment(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error) {
	f.rescheduleCalls++
	if f.rescheduleFn == nil {
		panic("RescheduleAppointment not configured")
	}
	return f.rescheduleFn(ctx, appointmentID, newDate, newTimeOfDay)
}

func (f *fakeStore) ConfirmAppointment(ctx context.Context, appointmentID int64) (domain.Appointment, error) {
	if f.confirmFn == nil {
		panic("ConfirmAppointment not configured")
	}
	return f.confirmFn(ctx, appointmentID)
}

func (f *fakeStore) FindAppointmentByOriginal(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error) {
	if f.findByOriginalFn == nil {
		panic("FindAppointmentByOriginal not configured")
	}
	return f.findByOriginalFn(ctx, patientID, date, timeOfDay)
}

func (f *fakeStore) CreateRescheduleRequest(ctx context.Context, req domain.RescheduleRequest) (domain.RescheduleRequest, error) {
	panic("CreateRescheduleRequest not configured")
}

func (f *fakeStore) GetRescheduleRequest(ctx context.Context, id uuid.UUID) (domain.RescheduleRequest, error) {
	if f.getRequestFn == nil {
		panic("GetRescheduleRequest not configured")
	}
	return f.getRequestFn(ctx, id)
}

func (f *fakeStore) ListRescheduleRequests(ctx context.Context, patientID int64) ([]domain.RescheduleRequest, error) {
	panic("ListRescheduleRequests not configured")
}

func (f *fakeStore) ResolveRescheduleRequest(ctx context.Context, id uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
	f.resolveRequestCalls++
	if f.resolveRequestFn == nil {
		panic("ResolveRescheduleRequest not configured")
	}
	return f.resolveRequestFn(ctx, id, state)
}

func (f *fakeStore) ListExerciseAssignments(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseAssignment, error) {
	panic("ListExerciseAssignments not configured")
}

func (f *fakeStore) AddExerciseFeedback(ctx context.Context, fb domain.ExerciseFeedback) (domain.ExerciseFeedback, error) {
	panic("AddExerciseFeedback not configured")
}

func (f *fakeStore) ListExerciseFeedback(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseFeedback, error) {
	panic("ListExerciseFeedback not configured")
}

func newTestService(st store.Store, now time.Time) *Service {
	svc := NewService(st, slog.Default())
	svc.now = func() time.Time { return now }
	return svc
}

func existingPatient(physioID int64) func(ctx context.Context, id int64) (domain.Patient, error) {
	return func(ctx context.Context, id int64) (domain.Patient, error) {
		return domain.Patient{ID: id, Name: "Sara", PhysiotherapistID: &physioID}, nil
	}
}

func TestProposeBooking_UnknownPatient(t *testing.T) {
	svc := newTestService(&fakeStore{
		getPatientFn: func(ctx context.Context, id int64) (domain.Patient, error) {
			return domain.Patient{}, store.ErrNotFound
		},
	}, time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))

	_, err := svc.ProposeBooking(context.Background(), BookingInput{
		PatientID: 42,
		Date:      time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:00 AM",
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrPatientNotFound)
	}
}

func TestProposeBooking_RejectsPastAndExactNow(t *testing.T) {
	now := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeStore{getPatientFn: existingPatient(7)}, now)

	// Earlier today.
	_, err := svc.ProposeBooking(context.Background(), BookingInput{
		PatientID: 1,
		Date:      time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "9:00 AM",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("past time error type = %T, want *ValidationError", err)
	}

	// Exactly now: the boundary is a strict inequality.
	_, err = svc.ProposeBooking(context.Background(), BookingInput{
		PatientID: 1,
		Date:      time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:00 AM",
	})
	if !errors.As(err, &vErr) {
		t.Fatalf("exact-now error type = %T, want *ValidationError", err)
	}
}

func TestProposeBooking_CreatesPendingAppointment(t *testing.T) {
	now := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	var got domain.Appointment
	st := &fakeStore{
		getPatientFn: existingPatient(7),
		addAppointmentFn: func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
			got = appt
			appt.ID = 11
			return appt, nil
		},
	}
	svc := newTestService(st, now)

	appt, err := svc.ProposeBooking(context.Background(), BookingInput{
		PatientID: 1,
		Date:      time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:01 AM",
		Notes:     "  knee pain  ",
	})
	if err != nil {
		t.Fatalf("ProposeBooking error: %v", err)
	}
	if appt.ID != 11 {
		t.Fatalf("id = %d, want store-assigned 11", appt.ID)
	}
	if got.Status != domain.AppointmentStatusPending {
		t.Fatalf("status = %q, want pending", got.Status)
	}
	if got.PhysiotherapistID != 7 {
		t.Fatalf("physiotherapist_id = %d, want patient's assigned 7", got.PhysiotherapistID)
	}
	if got.Notes != "knee pain" {
		t.Fatalf("notes = %q, want trimmed", got.Notes)
	}
}

func TestDefaultBookingSlot_TomorrowAtNine(t *testing.T) {
	for _, now := range []time.Time{
		time.Date(2025, 6, 10, 0, 1, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC),
	} {
		svc := newTestService(&fakeStore{}, now)
		date, timeOfDay := svc.DefaultBookingSlot()
		if !date.Equal(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("now=%v: date = %v, want tomorrow midnight", now, date)
		}
		if timeOfDay != "9:00 AM" {
			t.Fatalf("time_of_day = %q, want %q", timeOfDay, "9:00 AM")
		}
	}
}

func TestDefaultBookingSlot_HoldsNineAcrossOffsetChange(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// Tomorrow is 2025-03-09, when clocks jump from 02:00 to 03:00.
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, loc)
	svc := newTestService(&fakeStore{}, now)

	date, timeOfDay := svc.DefaultBookingSlot()
	if timeOfDay != "9:00 AM" {
		t.Fatalf("time_of_day = %q, want %q", timeOfDay, "9:00 AM")
	}
	y, m, d := date.Date()
	if y != 2025 || m != time.March || d != 9 {
		t.Fatalf("date = %v, want 2025-03-09", date)
	}
}

func TestMinimumSelectableTime(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	svc := newTestService(&fakeStore{}, now)

	if got := svc.MinimumSelectableTime(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)); !got.Equal(now) {
		t.Fatalf("today floor = %v, want now %v", got, now)
	}
	future := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	if got := svc.MinimumSelectableTime(future); !got.Equal(future) {
		t.Fatalf("future floor = %v, want start of day %v", got, future)
	}
}

func TestCombineDatePreservingTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeStore{}, now)

	// Future day keeps its date and takes the new earlier time.
	current := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	got := svc.CombineDatePreservingTime(current, "9:00 AM")
	if !got.Equal(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("combined = %v, want 2025-06-10 09:00", got)
	}

	// Today with a time earlier than now keeps the prior selection.
	today := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	if got := svc.CombineDatePreservingTime(today, "8:00 AM"); !got.Equal(today) {
		t.Fatalf("combined = %v, want unchanged %v", got, today)
	}

	// Unparsable time keeps the prior selection.
	if got := svc.CombineDatePreservingTime(today, "soon"); !got.Equal(today) {
		t.Fatalf("combined = %v, want unchanged %v", got, today)
	}
}

func pendingRequest(id uuid.UUID) domain.RescheduleRequest {
	return domain.RescheduleRequest{
		ID:                id,
		PatientID:         1,
		OriginalDate:      time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		OriginalTimeOfDay: "10:00 AM",
		ProposedDate:      time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC),
		ProposedTimeOfDay: "1:00 PM",
		State:             domain.RescheduleStatePending,
	}
}

func TestRespondToReschedule_UnknownRequest(t *testing.T) {
	svc := newTestService(&fakeStore{
		getRequestFn: func(ctx context.Context, id uuid.UUID) (domain.RescheduleRequest, error) {
			return domain.RescheduleRequest{}, store.ErrNotFound
		},
	}, time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	_, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{RequestID: uuid.New(), Accept: true})
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrRequestNotFound)
	}
}

func TestRespondToReschedule_AlreadyResolved(t *testing.T) {
	id := uuid.New()
	req := pendingRequest(id)
	req.State = domain.RescheduleStateDeclined
	svc := newTestService(&fakeStore{
		getRequestFn: func(ctx context.Context, got uuid.UUID) (domain.RescheduleRequest, error) {
			return req, nil
		},
	}, time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	_, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{RequestID: id, Accept: true})
	if !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("error = %v, want %v", err, store.ErrAlreadyResolved)
	}
}

func TestRespondToReschedule_DeclineNeverTouchesAppointment(t *testing.T) {
	id := uuid.New()
	st := &fakeStore{
		getRequestFn: func(ctx context.Context, got uuid.UUID) (domain.RescheduleRequest, error) {
			return pendingRequest(id), nil
		},
		resolveRequestFn: func(ctx context.Context, got uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
			req := pendingRequest(id)
			req.State = state
			return req, nil
		},
	}
	svc := newTestService(st, time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	out, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{RequestID: id, Accept: false})
	if err != nil {
		t.Fatalf("RespondToReschedule error: %v", err)
	}
	if out.Request.State != domain.RescheduleStateDeclined {
		t.Fatalf("state = %q, want declined", out.Request.State)
	}
	if st.rescheduleCalls != 0 {
		t.Fatalf("reschedule calls = %d, want 0", st.rescheduleCalls)
	}
	if out.Appointment != nil {
		t.Fatalf("appointment = %+v, want nil", out.Appointment)
	}
}

func TestRespondToReschedule_AcceptMovesAppointmentKeepsStatus(t *testing.T) {
	id := uuid.New()
	original := domain.Appointment{
		ID:        3,
		PatientID: 1,
		Date:      time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:00 AM",
		Status:    domain.AppointmentStatusPending,
	}
	st := &fakeStore{
		getRequestFn: func(ctx context.Context, got uuid.UUID) (domain.RescheduleRequest, error) {
			return pendingRequest(id), nil
		},
		resolveRequestFn: func(ctx context.Context, got uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
			req := pendingRequest(id)
			req.State = state
			return req, nil
		},
		findByOriginalFn: func(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error) {
			if patientID != 1 || !date.Equal(original.Date) || timeOfDay != "10:00 AM" {
				t.Fatalf("lookup = (%d, %v, %q), want original key", patientID, date, timeOfDay)
			}
			return original, nil
		},
		rescheduleFn: func(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error) {
			moved := original
			moved.Date = domain.DayKey(newDate)
			moved.TimeOfDay = newTimeOfDay
			return moved, nil
		},
	}
	svc := newTestService(st, time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	out, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{
		RequestID:    id,
		NewDate:      time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		NewTimeOfDay: "3:00 PM",
		Accept:       true,
	})
	if err != nil {
		t.Fatalf("RespondToReschedule error: %v", err)
	}
	if out.Request.State != domain.RescheduleStateAccepted {
		t.Fatalf("state = %q, want accepted", out.Request.State)
	}
	if !out.OriginalFound || out.Appointment == nil {
		t.Fatalf("outcome = %+v, want matched appointment", out)
	}
	if !out.Appointment.Date.Equal(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)) || out.Appointment.TimeOfDay != "3:00 PM" {
		t.Fatalf("moved = %v %q", out.Appointment.Date, out.Appointment.TimeOfDay)
	}
	if out.Appointment.Status != domain.AppointmentStatusPending {
		t.Fatalf("status = %q, want unchanged pending", out.Appointment.Status)
	}
}

func TestRespondToReschedule_AcceptWithBrokenLinkStillResolves(t *testing.T) {
	id := uuid.New()
	st := &fakeStore{
		getRequestFn: func(ctx context.Context, got uuid.UUID) (domain.RescheduleRequest, error) {
			return pendingRequest(id), nil
		},
		resolveRequestFn: func(ctx context.Context, got uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
			req := pendingRequest(id)
			req.State = state
			return req, nil
		},
		findByOriginalFn: func(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrNotFound
		},
	}
	svc := newTestService(st, time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	out, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{
		RequestID:    id,
		NewDate:      time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		NewTimeOfDay: "3:00 PM",
		Accept:       true,
	})
	if err != nil {
		t.Fatalf("RespondToReschedule error: %v", err)
	}
	if out.Request.State != domain.RescheduleStateAccepted {
		t.Fatalf("state = %q, want accepted despite miss", out.Request.State)
	}
	if out.OriginalFound {
		t.Fatalf("OriginalFound = true, want false")
	}
	if st.rescheduleCalls != 0 {
		t.Fatalf("reschedule calls = %d, want 0", st.rescheduleCalls)
	}
}

func TestRespondToReschedule_AcceptMoveFailureStillResolves(t *testing.T) {
	id := uuid.New()
	original := domain.Appointment{
		ID:        3,
		PatientID: 1,
		Date:      time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:00 AM",
	}
	st := &fakeStore{
		getRequestFn: func(ctx context.Context, got uuid.UUID) (domain.RescheduleRequest, error) {
			return pendingRequest(id), nil
		},
		resolveRequestFn: func(ctx context.Context, got uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
			req := pendingRequest(id)
			req.State = state
			return req, nil
		},
		findByOriginalFn: func(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error) {
			return original, nil
		},
		rescheduleFn: func(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error) {
			return domain.Appointment{}, errors.New("connection reset")
		},
	}
	svc := newTestService(st, time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	out, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{
		RequestID:    id,
		NewDate:      time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		NewTimeOfDay: "3:00 PM",
		Accept:       true,
	})
	if err != nil {
		t.Fatalf("RespondToReschedule error: %v", err)
	}
	if out.Request.State != domain.RescheduleStateAccepted {
		t.Fatalf("state = %q, want accepted despite failed move", out.Request.State)
	}
	if !out.OriginalFound {
		t.Fatalf("OriginalFound = false, want true")
	}
	if out.Appointment != nil {
		t.Fatalf("appointment = %+v, want nil when the move did not apply", out.Appointment)
	}
}

func TestRespondToReschedule_AcceptRejectsPastNewTime(t *testing.T) {
	id := uuid.New()
	st := &fakeStore{
		getRequestFn: func(ctx context.Context, got uuid.UUID) (domain.RescheduleRequest, error) {
			return pendingRequest(id), nil
		},
	}
	svc := newTestService(st, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	_, err := svc.RespondToReschedule(context.Background(), RescheduleResponseInput{
		RequestID:    id,
		NewDate:      time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		NewTimeOfDay: "3:00 PM",
		Accept:       true,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if st.resolveRequestCalls != 0 {
		t.Fatalf("resolve calls = %d, want 0 on validation failure", st.resolveRequestCalls)
	}
}

func TestConfirm_SetsConfirmedStatus(t *testing.T) {
	st := &fakeStore{
		confirmFn: func(ctx context.Context, appointmentID int64) (domain.Appointment, error) {
			return domain.Appointment{ID: appointmentID, Status: domain.AppointmentStatusConfirmed}, nil
		},
	}
	svc := newTestService(st, time.Now())

	appt, err := svc.Confirm(context.Background(), 5)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if appt.Status != domain.AppointmentStatusConfirmed {
		t.Fatalf("status = %q, want confirmed", appt.Status)
	}
}
