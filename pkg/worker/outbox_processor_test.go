package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/pkg/logger"
	"github.com/medcore/records-api/pkg/metrics"
)

type fakeOutboxRepo struct {
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failed    []uuid.UUID
}

func (r *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.pending = append(r.pending, event)
	return nil
}

func (r *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.processed = append(r.processed, id)
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	r.failed = append(r.failed, id)
	return nil
}

type fakeBroker struct {
	published map[string][]interface{}
	failures  int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]interface{})}
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unavailable")
	}
	b.published[channel] = append(b.published[channel], message)
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBroker) Close() error { return nil }

func pendingEvent(eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{"id":1}`),
		Status:    string(model.OutboxStatusPending),
		CreatedAt: time.Now(),
	}
}

func newTestProcessor(repo *fakeOutboxRepo, broker *fakeBroker, m *metrics.Metrics) *OutboxProcessor {
	quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, quiet, m)
}

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{
		pendingEvent(model.EventPatientCreated),
		pendingEvent(model.EventPatientUpdated),
	}}
	broker := newFakeBroker()
	p := newTestProcessor(repo, broker, metrics.New("test_processor_ok"))

	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, broker.published[model.EventPatientCreated], 1)
	assert.Len(t, broker.published[model.EventPatientUpdated], 1)
	assert.Len(t, repo.processed, 2)
	assert.Empty(t, repo.failed)
}

func TestProcessEventsMarksFailedAfterRetries(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{
		pendingEvent(model.EventPatientDeleted),
	}}
	broker := newFakeBroker()
	broker.failures = 10
	p := newTestProcessor(repo, broker, metrics.New("test_processor_fail"))

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, repo.processed)
	assert.Len(t, repo.failed, 1)
}

func TestProcessEventsRetriesTransientFailure(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{
		pendingEvent(model.EventPatientInfoRequested),
	}}
	broker := newFakeBroker()
	broker.failures = 1
	p := newTestProcessor(repo, broker, metrics.New("test_processor_retry"))

	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, broker.published[model.EventPatientInfoRequested], 1)
	assert.Len(t, repo.processed, 1)
	assert.Empty(t, repo.failed)
}
