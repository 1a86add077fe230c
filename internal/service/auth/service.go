package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository"
	"github.com/medcore/records-api/pkg/auth"
	apperrors "github.com/medcore/records-api/pkg/errors"
	"github.com/medcore/records-api/pkg/logger"
	"github.com/medcore/records-api/pkg/security"
)

// Service implements the credential lifecycle: registration, password
// verification and the bearer-token pair.
type Service struct {
	physicianRepo repository.PhysicianRepository
	jwtSvc        auth.JWTService
	hasher        security.PasswordHasher
	logger        *logger.Logger
}

func NewService(physicianRepo repository.PhysicianRepository, jwtSvc auth.JWTService,
	hasher security.PasswordHasher, logger *logger.Logger) *Service {
	return &Service{
		physicianRepo: physicianRepo,
		jwtSvc:        jwtSvc,
		hasher:        hasher,
		logger:        logger,
	}
}

// Register creates a physician from a self-service sign-up and issues a
// fresh token pair. Only a hash of the password is ever stored.
func (s *Service) Register(ctx context.Context, req *model.SignupRequest) (*model.TokenResponse, error) {
	email := NormalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, apperrors.Validation("email, first name and last name are required", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("invalid password", err)
	}

	physician := &model.Physician{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     true,
		IsAdmin:      false,
	}

	if err := s.physicianRepo.Create(ctx, physician); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, apperrors.Validation("email already registered", err)
		}
		return nil, fmt.Errorf("failed to create physician: %w", err)
	}

	s.logger.Info("physician signed up", "physician_id", physician.ID, "email", physician.Email)

	return s.issueTokens(physician)
}

// Login verifies an email/password pair. Unknown email, inactive account
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	physician, err := s.physicianRepo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, apperrors.Unauthenticated(model.ErrInvalidCredentials)
	}
	if !physician.IsActive {
		return nil, apperrors.Unauthenticated(model.ErrInvalidCredentials)
	}
	if err := s.hasher.Compare(physician.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthenticated(model.ErrInvalidCredentials)
	}

	now := time.Now()
	if err := s.physicianRepo.UpdateLastLogin(ctx, physician.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update login timestamp: %w", err)
	}
	physician.LastLogin = &now

	tokens, err := s.issueTokens(physician)
	if err != nil {
		return nil, err
	}
	tokens.Message = "Login Successful"
	return tokens, nil
}

// Resolve maps a bearer access token to the active physician it encodes.
func (s *Service) Resolve(ctx context.Context, accessToken string) (*model.Physician, error) {
	claims, err := s.jwtSvc.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperrors.Unauthenticated(err)
	}

	physician, err := s.physicianRepo.Get(ctx, claims.PhysicianID)
	if err != nil {
		return nil, apperrors.Unauthenticated(err)
	}
	if !physician.IsActive {
		return nil, apperrors.Unauthenticated(model.ErrInvalidCredentials)
	}
	return physician, nil
}

// Refresh mints a new access token from a refresh token. Refresh tokens
// never authorize resource operations directly.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.Unauthenticated(err)
	}

	physician, err := s.physicianRepo.Get(ctx, claims.PhysicianID)
	if err != nil {
		return "", apperrors.Unauthenticated(err)
	}
	if !physician.IsActive {
		return "", apperrors.Unauthenticated(model.ErrInvalidCredentials)
	}

	access, err := s.jwtSvc.GenerateAccessToken(physician)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return access, nil
}

func (s *Service) issueTokens(physician *model.Physician) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(physician)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.jwtSvc.GenerateRefreshToken(physician)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &model.TokenResponse{
		Refresh: refresh,
		Access:  access,
	}, nil
}

// NormalizeEmail lowercases and trims an email so the same address always
// resolves to the same login identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
