package model

import (
	"errors"
	"time"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Physician is an authenticated identity that owns patient records.
type Physician struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsAdmin      bool       `json:"-" db:"is_admin"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// SignupRequest carries the self-service registration fields. Clients
// supply the password in plaintext exactly once; only the hash is stored.
type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// TokenResponse is the token pair returned by signup and login.
type TokenResponse struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
	Message string `json:"message,omitempty"`
}

type AccessResponse struct {
	Access string `json:"access"`
}

// PhysicianInfo is the profile subset exposed at /physician/info.
type PhysicianInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
