package patients

import (
	"context"
	"errors"
	"log/slog"
	"strings"

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

var ErrPatientNotFound = errors.New("patient not found")

// Service handles the profile-editing flow: it validates field edits and
// replaces the stored patient record. The id is immutable.
type Service struct {
	store store.Store
	log   *slog.Logger
}

func NewService(st store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: st,
		log:   log.With(slog.String("component", "patients")),
	}
}

type ProfileInput struct {
	PatientID int64
	Name      string
	Email     string
	Phone     string
	Age       int
}

func (s *Service) Get(ctx context.Context, patientID int64) (domain.Patient, error) {
	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Patient{}, ErrPatientNotFound
		}
		return domain.Patient{}, err
	}
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (domain.Patient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Patient{}, validationError("name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Patient{}, validationError("invalid email")
	}
	if in.Age < 0 || in.Age > 130 {
		return domain.Patient{}, validationError("invalid age")
	}

	existing, err := s.store.GetPatient(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Patient{}, ErrPatientNotFound
		}
		return domain.Patient{}, err
	}

	existing.Name = name
	existing.Email = email
	existing.Phone = strings.TrimSpace(in.Phone)
	existing.Age = in.Age

	updated, err := s.store.UpdatePatient(ctx, existing)
	if err != nil {
		return domain.Patient{}, err
	}

	s.log.Info("patient profile updated", slog.Int64("patient_id", updated.ID))
	return updated, nil
}
