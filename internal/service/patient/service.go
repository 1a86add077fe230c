package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository"
	"github.com/medcore/records-api/internal/service/notification"
	"github.com/medcore/records-api/internal/service/policy"
	apperrors "github.com/medcore/records-api/pkg/errors"
	"github.com/medcore/records-api/pkg/logger"
)

// Service enforces creation-time ownership assignment and query-time
// ownership filtering for patient records. Every call takes the
// authenticated physician explicitly; there is no ambient request state.
type Service struct {
	repo     repository.PatientRepository
	policy   *policy.Policy
	notifier notification.Notifier
	logger   *logger.Logger
}

func NewService(repo repository.PatientRepository, policy *policy.Policy,
	notifier notification.Notifier, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		policy:   policy,
		notifier: notifier,
		logger:   logger,
	}
}

// Create persists a new patient owned by the caller. Any owner value a
// client might try to smuggle in is structurally impossible: the create
// request has no owner field, and the owner is taken from owner.ID here.
func (s *Service) Create(ctx context.Context, owner *model.Physician, req *model.CreatePatientRequest) (*model.Patient, error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated(nil)
	}
	if err := validateNames(req.FirstName, req.LastName); err != nil {
		return nil, err
	}
	if req.DOB.InFuture() {
		return nil, apperrors.Validation("date of birth cannot be in the future", nil)
	}

	patient := &model.Patient{
		PhysicianID: owner.ID,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.TrimSpace(req.Email),
		DOB:         req.DOB,
		MRIFile:     req.MRIFile,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, apperrors.Validation("patient email already in use", err)
		}
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	if err := s.notifier.PatientCreated(ctx, patient); err != nil {
		s.logger.Error(err, "failed to enqueue patient created event",
			"physician_id", owner.ID, "patient_id", patient.ID)
	}

	return patient, nil
}

// List returns only the caller's records, in persistence order.
func (s *Service) List(ctx context.Context, owner *model.Physician) ([]*model.Patient, error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated(nil)
	}
	patients, err := s.repo.ListByPhysician(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Get distinguishes a missing record (NotFound) from one owned by another
// physician (Forbidden). The lookup is unscoped on purpose so the policy
// check below is authoritative.
func (s *Service) Get(ctx context.Context, owner *model.Physician, id int64) (*model.Patient, error) {
	patient, err := s.fetchOwned(ctx, owner, id, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// Update applies a partial update. The owning physician is never mutable
// through this path; the repository re-checks ownership inside the
// mutation transaction as a second line of defense.
func (s *Service) Update(ctx context.Context, owner *model.Physician, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.fetchOwned(ctx, owner, id, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, apperrors.Validation("first name must not be empty", nil)
		}
		patient.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, apperrors.Validation("last name must not be empty", nil)
		}
		patient.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		patient.Email = strings.TrimSpace(*req.Email)
	}
	if req.DOB != nil {
		if req.DOB.InFuture() {
			return nil, apperrors.Validation("date of birth cannot be in the future", nil)
		}
		patient.DOB = *req.DOB
	}
	if req.MRIFile != nil {
		patient.MRIFile = req.MRIFile
	}

	patient.PhysicianID = owner.ID

	if err := s.repo.Update(ctx, patient); err != nil {
		switch err {
		case repository.ErrNotFound:
			return nil, apperrors.NotFound("patient", err)
		case repository.ErrNotOwner:
			return nil, apperrors.Forbidden(policy.ReasonNotOwner)
		case repository.ErrDuplicateEmail:
			return nil, apperrors.Validation("patient email already in use", err)
		default:
			return nil, fmt.Errorf("failed to update patient: %w", err)
		}
	}

	if err := s.notifier.PatientUpdated(ctx, patient); err != nil {
		s.logger.Error(err, "failed to enqueue patient updated event",
			"physician_id", owner.ID, "patient_id", patient.ID)
	}

	return patient, nil
}

// Delete removes the record; terminal state.
func (s *Service) Delete(ctx context.Context, owner *model.Physician, id int64) error {
	if _, err := s.fetchOwned(ctx, owner, id, policy.ActionDelete); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, owner.ID); err != nil {
		switch err {
		case repository.ErrNotFound:
			return apperrors.NotFound("patient", err)
		case repository.ErrNotOwner:
			return apperrors.Forbidden(policy.ReasonNotOwner)
		default:
			return fmt.Errorf("failed to delete patient: %w", err)
		}
	}

	if err := s.notifier.PatientDeleted(ctx, id); err != nil {
		s.logger.Error(err, "failed to enqueue patient deleted event",
			"physician_id", owner.ID, "patient_id", id)
	}

	return nil
}

// SendInfo queues a best-effort patient-info notification. Enqueue
// failures are logged and do not fail the request.
func (s *Service) SendInfo(ctx context.Context, owner *model.Physician, id int64) error {
	patient, err := s.fetchOwned(ctx, owner, id, policy.ActionRead)
	if err != nil {
		return err
	}

	if err := s.notifier.PatientInfoRequested(ctx, patient, owner); err != nil {
		s.logger.Error(err, "failed to enqueue patient info event",
			"physician_id", owner.ID, "patient_id", id)
	}
	return nil
}

func (s *Service) fetchOwned(ctx context.Context, owner *model.Physician, id int64, action policy.Action) (*model.Patient, error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if err := s.policy.Authorize(owner, patient, action); err != nil {
		return nil, err
	}
	return patient, nil
}

func validateNames(first, last string) error {
	if strings.TrimSpace(first) == "" {
		return apperrors.Validation("first name is required", nil)
	}
	if strings.TrimSpace(last) == "" {
		return apperrors.Validation("last name is required", nil)
	}
	return nil
}
