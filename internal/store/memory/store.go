package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/store"
)

// Store keeps the whole dataset in process memory behind one mutex. It is the
// session-scoped store the mobile client works against and the fixture store
// for tests; the postgres implementation replaces it in server deployments.
type Store struct {
	mu sync.RWMutex

	patients         map[int64]domain.Patient
	physiotherapists map[int64]domain.Physiotherapist
	appointments     map[int64]domain.Appointment
	historyOrder     map[int64][]int64
	requests         map[uuid.UUID]domain.RescheduleRequest
	assignments      []domain.ExerciseAssignment
	feedback         []domain.ExerciseFeedback

	nextPatientID     int64
	nextAppointmentID int64
	nextAssignmentID  int64
	nextFeedbackID    int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		patients:         make(map[int64]domain.Patient),
		physiotherapists: make(map[int64]domain.Physiotherapist),
		appointments:     make(map[int64]domain.Appointment),
		historyOrder:     make(map[int64][]int64),
		requests:         make(map[uuid.UUID]domain.RescheduleRequest),
	}
}

// SeedPatient inserts a patient, assigning an id when none is set.
func (s *Store) SeedPatient(p domain.Patient) domain.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		s.nextPatientID++
		p.ID = s.nextPatientID
	} else if p.ID > s.nextPatientID {
		s.nextPatientID = p.ID
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.History = nil
	s.patients[p.ID] = p
	return p
}

func (s *Store) SeedPhysiotherapist(p domain.Physiotherapist) domain.Physiotherapist {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = int64(len(s.physiotherapists) + 1)
	}
	s.physiotherapists[p.ID] = p
	return p
}

func (s *Store) SeedAssignment(a domain.ExerciseAssignment) domain.ExerciseAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		s.nextAssignmentID++
		a.ID = s.nextAssignmentID
	} else if a.ID > s.nextAssignmentID {
		s.nextAssignmentID = a.ID
	}
	a.StartDate = domain.DayKey(a.StartDate)
	if a.EndDate != nil {
		end := domain.DayKey(*a.EndDate)
		a.EndDate = &end
	}
	s.assignments = append(s.assignments, a)
	return a
}

func (s *Store) GetPatient(ctx context.Context, id int64) (domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return domain.Patient{}, store.ErrNotFound
	}
	p.History = s.historyLocked(id)
	return p, nil
}

func (s *Store) GetPhysiotherapist(ctx context.Context, id int64) (domain.Physiotherapist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.physiotherapists[id]
	if !ok {
		return domain.Physiotherapist{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdatePatient(ctx context.Context, p domain.Patient) (domain.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.patients[p.ID]
	if !ok {
		return domain.Patient{}, store.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.History = nil
	s.patients[p.ID] = p
	return p, nil
}

func (s *Store) AddAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAppointmentID++
	appt.ID = s.nextAppointmentID
	appt.Date = domain.DayKey(appt.Date)
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	s.appointments[appt.ID] = appt
	s.historyOrder[appt.PatientID] = append(s.historyOrder[appt.PatientID], appt.ID)
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, patientID int64) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.historyLocked(patientID), nil
}

func (s *Store) RescheduleAppointment(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[appointmentID]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	appt.Date = domain.DayKey(newDate)
	appt.TimeOfDay = newTimeOfDay
	appt.UpdatedAt = time.Now().UTC()
	s.appointments[appointmentID] = appt
	return appt, nil
}

func (s *Store) ConfirmAppointment(ctx context.Context, appointmentID int64) (domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[appointmentID]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	appt.Status = domain.AppointmentStatusConfirmed
	appt.UpdatedAt = time.Now().UTC()
	s.appointments[appointmentID] = appt
	return appt, nil
}

func (s *Store) FindAppointmentByOriginal(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.DayKey(date)
	var found []domain.Appointment
	for _, id := range s.historyOrder[patientID] {
		appt := s.appointments[id]
		if appt.Date.Equal(day) && appt.TimeOfDay == timeOfDay {
			found = append(found, appt)
		}
	}
	if len(found) != 1 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return found[0], nil
}

func (s *Store) CreateRescheduleRequest(ctx context.Context, req domain.RescheduleRequest) (domain.RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.RescheduleRequest{}, err
		}
		req.ID = id
	}
	if req.State == "" {
		req.State = domain.RescheduleStatePending
	}
	req.OriginalDate = domain.DayKey(req.OriginalDate)
	req.ProposedDate = domain.DayKey(req.ProposedDate)
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) GetRescheduleRequest(ctx context.Context, id uuid.UUID) (domain.RescheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return domain.RescheduleRequest{}, store.ErrNotFound
	}
	return req, nil
}

func (s *Store) ListRescheduleRequests(ctx context.Context, patientID int64) ([]domain.RescheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RescheduleRequest
	for _, req := range s.requests {
		if req.PatientID == patientID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ResolveRescheduleRequest(ctx context.Context, id uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return domain.RescheduleRequest{}, store.ErrNotFound
	}
	if req.State != domain.RescheduleStatePending {
		return domain.RescheduleRequest{}, store.ErrAlreadyResolved
	}
	req.State = state
	req.UpdatedAt = time.Now().UTC()
	s.requests[id] = req
	return req, nil
}

func (s *Store) ListExerciseAssignments(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ExerciseAssignment
	for _, a := range s.assignments {
		if a.PatientID == patientID && a.ActiveOn(day) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) AddExerciseFeedback(ctx context.Context, fb domain.ExerciseFeedback) (domain.ExerciseFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFeedbackID++
	fb.ID = s.nextFeedbackID
	fb.Day = domain.DayKey(fb.Day)
	now := time.Now().UTC()
	fb.CreatedAt = now
	fb.UpdatedAt = now
	s.feedback = append(s.feedback, fb)
	return fb, nil
}

func (s *Store) ListExerciseFeedback(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.DayKey(day)
	var out []domain.ExerciseFeedback
	for _, fb := range s.feedback {
		if fb.PatientID == patientID && fb.Day.Equal(key) {
			out = append(out, fb)
		}
	}
	return out, nil
}

// historyLocked returns the patient's appointments in booking order. Callers
// hold at least the read lock.
func (s *Store) historyLocked(patientID int64) []domain.Appointment {
	ids := s.historyOrder[patientID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]domain.Appointment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.appointments[id])
	}
	return out
}
