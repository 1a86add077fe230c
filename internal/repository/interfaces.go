package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/records-api/internal/model"
)

// Sentinel errors surfaced by all implementations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrNotOwner is returned when a scoped mutation finds the row owned by
	// a different physician at transaction time.
	ErrNotOwner = errors.New("record owned by another physician")
)

// All repository interfaces in one file
type (
	// PhysicianRepository handles physician identity records
	PhysicianRepository interface {
		Create(ctx context.Context, physician *model.Physician) error
		Get(ctx context.Context, id int64) (*model.Physician, error)
		GetByEmail(ctx context.Context, email string) (*model.Physician, error)
		UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	}

	// PatientRepository handles patient records. Update and Delete are
	// owner-scoped and run the ownership re-check and the mutation inside
	// a single transaction with a row lock.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		ListByPhysician(ctx context.Context, physicianID int64) ([]*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id, physicianID int64) error
	}

	// OutboxRepository stores side-effect events for asynchronous dispatch
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
	}
)
