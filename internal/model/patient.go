package model

import (
	"time"
)

// Patient is a record owned by exactly one physician. PhysicianID is
// assigned server-side at creation and never changes afterwards.
type Patient struct {
	ID          int64     `json:"id" db:"id"`
	PhysicianID int64     `json:"physician_id" db:"physician_id"`
	FirstName   string    `json:"first_name" db:"first_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	Email       string    `json:"email" db:"email"`
	DOB         Date      `json:"dob" db:"dob"`
	MRIFile     *string   `json:"mri_file,omitempty" db:"mri_file"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreatePatientRequest deliberately has no physician field: the owner is
// always the authenticated caller, never request-supplied.
type CreatePatientRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	DOB       Date    `json:"dob" binding:"required"`
	MRIFile   *string `json:"mri_file"`
}

// UpdatePatientRequest supports partial updates; nil fields are left
// untouched. Ownership is not expressible here either.
type UpdatePatientRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	DOB       *Date   `json:"dob"`
	MRIFile   *string `json:"mri_file"`
}
