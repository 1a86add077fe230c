package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository"
)

type physicianRepository struct {
	BaseRepository
}

func NewPhysicianRepository(base BaseRepository) repository.PhysicianRepository {
	return &physicianRepository{base}
}

func (r *physicianRepository) Create(ctx context.Context, physician *model.Physician) error {
	query := `
		INSERT INTO physicians (
			email, password_hash, first_name, last_name,
			is_active, is_admin, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	physician.CreatedAt = time.Now()
	physician.UpdatedAt = physician.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		physician.Email,
		physician.PasswordHash,
		physician.FirstName,
		physician.LastName,
		physician.IsActive,
		physician.IsAdmin,
		physician.CreatedAt,
		physician.UpdatedAt,
	).Scan(&physician.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create physician: %w", err)
	}
	return nil
}

func (r *physicianRepository) Get(ctx context.Context, id int64) (*model.Physician, error) {
	query := `SELECT * FROM physicians WHERE id = $1`

	var physician model.Physician
	if err := r.db.GetContext(ctx, &physician, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get physician: %w", err)
	}
	return &physician, nil
}

func (r *physicianRepository) GetByEmail(ctx context.Context, email string) (*model.Physician, error) {
	query := `SELECT * FROM physicians WHERE email = $1`

	var physician model.Physician
	if err := r.db.GetContext(ctx, &physician, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get physician by email: %w", err)
	}
	return &physician, nil
}

func (r *physicianRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE physicians SET last_login = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, at, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
