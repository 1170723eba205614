package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/store"
)

// Store is the Postgres-backed implementation of store.Store. Mutations that
// read and then write the same patient's data run inside a transaction holding
// an advisory lock on the patient, so concurrent reschedules cannot lose
// updates.
type Store struct {
	db *bun.DB
}

var _ store.Store = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetPatient(ctx context.Context, id int64) (domain.Patient, error) {
	var p domain.Patient
	err := s.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Relation("History", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("id ASC")
		}).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Patient{}, store.ErrNotFound
		}
		return domain.Patient{}, err
	}
	return p, nil
}

func (s *Store) GetPhysiotherapist(ctx context.Context, id int64) (domain.Physiotherapist, error) {
	var p domain.Physiotherapist
	err := s.db.NewSelect().Model(&p).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Physiotherapist{}, store.ErrNotFound
		}
		return domain.Physiotherapist{}, err
	}
	return p, nil
}

func (s *Store) UpdatePatient(ctx context.Context, p domain.Patient) (domain.Patient, error) {
	res, err := s.db.NewUpdate().
		Model(&p).
		Column("name", "email", "phone", "age", "physiotherapist_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Patient{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Patient{}, err
	}
	if affected == 0 {
		return domain.Patient{}, store.ErrNotFound
	}
	return s.GetPatient(ctx, p.ID)
}

func (s *Store) AddAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.Date = domain.DayKey(appt.Date)
	if _, err := s.db.NewInsert().Model(&appt).Exec(ctx); err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, patientID int64) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := s.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) RescheduleAppointment(ctx context.Context, appointmentID int64, newDate time.Time, newTimeOfDay string) (domain.Appointment, error) {
	var out domain.Appointment
	err := s.inAppointmentTx(ctx, appointmentID, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*domain.Appointment)(nil)).
			Set("date = ?", domain.DayKey(newDate)).
			Set("time_of_day = ?", newTimeOfDay).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", appointmentID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return tx.NewSelect().Model(&out).Where("id = ?", appointmentID).Scan(ctx)
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Store) ConfirmAppointment(ctx context.Context, appointmentID int64) (domain.Appointment, error) {
	var out domain.Appointment
	err := s.inAppointmentTx(ctx, appointmentID, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*domain.Appointment)(nil)).
			Set("status = ?", domain.AppointmentStatusConfirmed).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", appointmentID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return tx.NewSelect().Model(&out).Where("id = ?", appointmentID).Scan(ctx)
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Store) FindAppointmentByOriginal(ctx context.Context, patientID int64, date time.Time, timeOfDay string) (domain.Appointment, error) {
	var rows []domain.Appointment
	err := s.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		Where("date = ?", domain.DayKey(date)).
		Where("time_of_day = ?", timeOfDay).
		Limit(2).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(rows) != 1 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) CreateRescheduleRequest(ctx context.Context, req domain.RescheduleRequest) (domain.RescheduleRequest, error) {
	if req.State == "" {
		req.State = domain.RescheduleStatePending
	}
	req.OriginalDate = domain.DayKey(req.OriginalDate)
	req.ProposedDate = domain.DayKey(req.ProposedDate)
	if _, err := s.db.NewInsert().Model(&req).Exec(ctx); err != nil {
		return domain.RescheduleRequest{}, err
	}
	return req, nil
}

func (s *Store) GetRescheduleRequest(ctx context.Context, id uuid.UUID) (domain.RescheduleRequest, error) {
	var req domain.RescheduleRequest
	err := s.db.NewSelect().Model(&req).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RescheduleRequest{}, store.ErrNotFound
		}
		return domain.RescheduleRequest{}, err
	}
	return req, nil
}

func (s *Store) ListRescheduleRequests(ctx context.Context, patientID int64) ([]domain.RescheduleRequest, error) {
	var rows []domain.RescheduleRequest
	err := s.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ResolveRescheduleRequest(ctx context.Context, id uuid.UUID, state domain.RescheduleState) (domain.RescheduleRequest, error) {
	res, err := s.db.NewUpdate().
		Model((*domain.RescheduleRequest)(nil)).
		Set("state = ?", state).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("state = ?", domain.RescheduleStatePending).
		Exec(ctx)
	if err != nil {
		return domain.RescheduleRequest{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.RescheduleRequest{}, err
	}
	if affected == 0 {
		// Either unknown or already resolved; disambiguate for the caller.
		if _, getErr := s.GetRescheduleRequest(ctx, id); getErr != nil {
			return domain.RescheduleRequest{}, getErr
		}
		return domain.RescheduleRequest{}, store.ErrAlreadyResolved
	}
	return s.GetRescheduleRequest(ctx, id)
}

func (s *Store) ListExerciseAssignments(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseAssignment, error) {
	key := domain.DayKey(day)
	var rows []domain.ExerciseAssignment
	err := s.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		Where("start_date <= ?", key).
		Where("end_date IS NULL OR end_date >= ?", key).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) AddExerciseFeedback(ctx context.Context, fb domain.ExerciseFeedback) (domain.ExerciseFeedback, error) {
	fb.Day = domain.DayKey(fb.Day)
	if _, err := s.db.NewInsert().Model(&fb).Exec(ctx); err != nil {
		return domain.ExerciseFeedback{}, err
	}
	return fb, nil
}

func (s *Store) ListExerciseFeedback(ctx context.Context, patientID int64, day time.Time) ([]domain.ExerciseFeedback, error) {
	var rows []domain.ExerciseFeedback
	err := s.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		Where("day = ?", domain.DayKey(day)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) inAppointmentTx(ctx context.Context, appointmentID int64, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(?)", appointmentID).Exec(ctx); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}
