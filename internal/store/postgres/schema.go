package postgres

import (
	"context"

	"github.com/uptrace/bun"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS physiotherapists (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		specialty TEXT NOT NULL DEFAULT '',
		clinic_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL DEFAULT 0,
		physiotherapist_id BIGINT REFERENCES physiotherapists (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id BIGSERIAL PRIMARY KEY,
		patient_id BIGINT NOT NULL REFERENCES patients (id),
		physiotherapist_id BIGINT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		time_of_day TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, date)`,
	`CREATE TABLE IF NOT EXISTS reschedule_requests (
		id UUID PRIMARY KEY,
		patient_id BIGINT NOT NULL REFERENCES patients (id),
		original_date TIMESTAMPTZ NOT NULL,
		original_time_of_day TEXT NOT NULL,
		proposed_date TIMESTAMPTZ NOT NULL,
		proposed_time_of_day TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS exercise_assignments (
		id BIGSERIAL PRIMARY KEY,
		patient_id BIGINT NOT NULL REFERENCES patients (id),
		physiotherapist_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		repetitions INTEGER NOT NULL DEFAULT 0,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS exercise_feedback (
		id BIGSERIAL PRIMARY KEY,
		patient_id BIGINT NOT NULL REFERENCES patients (id),
		assignment_id BIGINT NOT NULL REFERENCES exercise_assignments (id),
		day TIMESTAMPTZ NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		pain_level INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS exercise_feedback_day_idx ON exercise_feedback (patient_id, day)`,
}

// Migrate creates the schema. Statements are idempotent so it is safe to run
// on every startup.
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
