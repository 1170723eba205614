package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type Patient struct {
	bun.BaseModel `bun:"table:patients"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	Name              string    `bun:"name,notnull" json:"name"`
	Email             string    `bun:"email" json:"email"`
	Phone             string    `bun:"phone" json:"phone"`
	Age               int       `bun:"age" json:"age"`
	PhysiotherapistID *int64    `bun:"physiotherapist_id" json:"physiotherapist_id,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at"`

	History []Appointment `bun:"rel:has-many,join:id=patient_id" json:"history,omitempty"`
}

func (p *Patient) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

type Physiotherapist struct {
	bun.BaseModel `bun:"table:physiotherapists"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	Specialty  string    `bun:"specialty" json:"specialty"`
	ClinicName string    `bun:"clinic_name" json:"clinic_name"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (p *Physiotherapist) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}
