package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository"
	"github.com/medcore/records-api/pkg/logger"
)

// Notifier records side-effect events for asynchronous, best-effort
// dispatch. Callers treat failures as non-fatal: the authoritative state
// change has already committed.
type Notifier interface {
	PatientCreated(ctx context.Context, patient *model.Patient) error
	PatientUpdated(ctx context.Context, patient *model.Patient) error
	PatientDeleted(ctx context.Context, id int64) error
	PatientInfoRequested(ctx context.Context, patient *model.Patient, physician *model.Physician) error
}

type service struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
}

func NewService(outboxRepo repository.OutboxRepository, logger *logger.Logger) Notifier {
	return &service{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

func (s *service) PatientCreated(ctx context.Context, patient *model.Patient) error {
	return s.enqueue(ctx, model.EventPatientCreated, patient)
}

func (s *service) PatientUpdated(ctx context.Context, patient *model.Patient) error {
	return s.enqueue(ctx, model.EventPatientUpdated, patient)
}

func (s *service) PatientDeleted(ctx context.Context, id int64) error {
	return s.enqueue(ctx, model.EventPatientDeleted, map[string]string{
		"id": strconv.FormatInt(id, 10),
	})
}

func (s *service) PatientInfoRequested(ctx context.Context, patient *model.Patient, physician *model.Physician) error {
	return s.enqueue(ctx, model.EventPatientInfoRequested, &model.PatientInfoEvent{
		Patient:        patient,
		PhysicianName:  physician.FirstName + " " + physician.LastName,
		PhysicianEmail: physician.Email,
	})
}

func (s *service) enqueue(ctx context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", eventType, err)
	}

	s.logger.Debug("event enqueued", "event_type", eventType)
	return nil
}
