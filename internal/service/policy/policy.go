package policy

import (
	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/pkg/errors"
)

// Action is an operation on a patient record.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ReasonNotOwner is the denial reason surfaced when the requesting
// physician does not own the record.
const ReasonNotOwner = "not_owner"

// Policy implements the single access rule of the system: an operation on
// a patient record is permitted iff the requesting physician's identifier
// equals the record's owning-physician identifier. There is no cross-owner
// read grant of any kind.
type Policy struct{}

func New() *Policy {
	return &Policy{}
}

// Authorize decides allow/deny for one physician, patient and action. It is
// called on every per-object operation, even when the record was already
// looked up through an owner-scoped query.
func (p *Policy) Authorize(physician *model.Physician, patient *model.Patient, action Action) error {
	if physician == nil {
		return errors.Unauthenticated(nil)
	}
	if patient == nil {
		return errors.NotFound("patient", nil)
	}
	if patient.PhysicianID != physician.ID {
		return errors.Forbidden(ReasonNotOwner)
	}
	return nil
}
