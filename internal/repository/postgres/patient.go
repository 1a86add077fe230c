package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			physician_id, first_name, last_name, email, dob,
			mri_file, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		patient.PhysicianID,
		patient.FirstName,
		patient.LastName,
		patient.Email,
		patient.DOB,
		patient.MRIFile,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Scan(&patient.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`

	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) ListByPhysician(ctx context.Context, physicianID int64) ([]*model.Patient, error) {
	query := `SELECT * FROM patients WHERE physician_id = $1 ORDER BY id`

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, physicianID); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Update re-checks ownership under a row lock and applies the mutation in
// the same transaction, so a concurrent delete cannot turn into a
// use-after-delete write.
func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		ownerID, err := lockPatientRow(ctx, tx, patient.ID)
		if err != nil {
			return err
		}
		if ownerID != patient.PhysicianID {
			return repository.ErrNotOwner
		}

		query := `
			UPDATE patients SET
				first_name = $1, last_name = $2, email = $3, dob = $4,
				mri_file = $5, updated_at = $6
			WHERE id = $7 AND physician_id = $8
		`
		patient.UpdatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, query,
			patient.FirstName,
			patient.LastName,
			patient.Email,
			patient.DOB,
			patient.MRIFile,
			patient.UpdatedAt,
			patient.ID,
			patient.PhysicianID,
		); err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateEmail
			}
			return fmt.Errorf("failed to update patient: %w", err)
		}
		return nil
	})
}

func (r *patientRepository) Delete(ctx context.Context, id, physicianID int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		ownerID, err := lockPatientRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if ownerID != physicianID {
			return repository.ErrNotOwner
		}

		query := `DELETE FROM patients WHERE id = $1 AND physician_id = $2`
		if _, err := tx.ExecContext(ctx, query, id, physicianID); err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		return nil
	})
}

func lockPatientRow(ctx context.Context, tx *sqlx.Tx, id int64) (int64, error) {
	var ownerID int64
	err := tx.QueryRowxContext(ctx,
		`SELECT physician_id FROM patients WHERE id = $1 FOR UPDATE`, id,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("failed to lock patient row: %w", err)
	}
	return ownerID, nil
}
