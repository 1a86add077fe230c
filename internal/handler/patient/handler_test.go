package patient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authHandler "github.com/medcore/records-api/internal/handler/auth"
	patientHandler "github.com/medcore/records-api/internal/handler/patient"
	physicianHandler "github.com/medcore/records-api/internal/handler/physician"
	"github.com/medcore/records-api/internal/middleware"
	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository"
	"github.com/medcore/records-api/internal/router"
	authService "github.com/medcore/records-api/internal/service/auth"
	"github.com/medcore/records-api/internal/service/notification"
	patientService "github.com/medcore/records-api/internal/service/patient"
	"github.com/medcore/records-api/internal/service/policy"
	"github.com/medcore/records-api/pkg/auth"
	"github.com/medcore/records-api/pkg/logger"
	"github.com/medcore/records-api/pkg/security"

	"github.com/google/uuid"
)

type memPhysicianRepo struct {
	mu      sync.Mutex
	byID    map[int64]*model.Physician
	byEmail map[string]*model.Physician
	nextID  int64
}

func newMemPhysicianRepo() *memPhysicianRepo {
	return &memPhysicianRepo{
		byID:    make(map[int64]*model.Physician),
		byEmail: make(map[string]*model.Physician),
		nextID:  1,
	}
}

func (r *memPhysicianRepo) Create(ctx context.Context, physician *model.Physician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[physician.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	physician.ID = r.nextID
	r.nextID++
	r.byID[physician.ID] = physician
	r.byEmail[physician.Email] = physician
	return nil
}

func (r *memPhysicianRepo) Get(ctx context.Context, id int64) (*model.Physician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *memPhysicianRepo) GetByEmail(ctx context.Context, email string) (*model.Physician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *memPhysicianRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.LastLogin = &at
	return nil
}

type memPatientRepo struct {
	mu      sync.Mutex
	byID    map[int64]*model.Patient
	byEmail map[string]int64
	nextID  int64
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{
		byID:    make(map[int64]*model.Patient),
		byEmail: make(map[string]int64),
		nextID:  1,
	}
}

func (r *memPatientRepo) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[patient.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	patient.ID = r.nextID
	r.nextID++
	copied := *patient
	r.byID[patient.ID] = &copied
	r.byEmail[patient.Email] = patient.ID
	return nil
}

func (r *memPatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memPatientRepo) ListByPhysician(ctx context.Context, physicianID int64) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Patient, 0)
	for i := int64(1); i < r.nextID; i++ {
		if p, ok := r.byID[i]; ok && p.PhysicianID == physicianID {
			copied := *p
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *memPatientRepo) Update(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[patient.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if existing.PhysicianID != patient.PhysicianID {
		return repository.ErrNotOwner
	}
	if id, exists := r.byEmail[patient.Email]; exists && id != patient.ID {
		return repository.ErrDuplicateEmail
	}
	delete(r.byEmail, existing.Email)
	copied := *patient
	r.byID[patient.ID] = &copied
	r.byEmail[patient.Email] = patient.ID
	return nil
}

func (r *memPatientRepo) Delete(ctx context.Context, id, physicianID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if existing.PhysicianID != physicianID {
		return repository.ErrNotOwner
	}
	delete(r.byEmail, existing.Email)
	delete(r.byID, id)
	return nil
}

type memOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (r *memOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.New()
	r.events = append(r.events, event)
	return nil
}

func (r *memOutboxRepo) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *memOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (r *memOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return nil
}

var (
	setupOnce  sync.Once
	testEngine *gin.Engine
	testOutbox *memOutboxRepo
)

func testServer() *gin.Engine {
	setupOnce.Do(func() {
		quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

		physicianRepo := newMemPhysicianRepo()
		patientRepo := newMemPatientRepo()
		testOutbox = &memOutboxRepo{}

		jwtSvc := auth.NewJWTService(auth.Config{
			Secret:        "test-secret",
			RefreshSecret: "test-refresh-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
		})
		hasher := security.NewBcryptHasher(bcrypt.MinCost)

		authSvc := authService.NewService(physicianRepo, jwtSvc, hasher, quiet)
		notifier := notification.NewService(testOutbox, quiet)
		patientSvc := patientService.NewService(patientRepo, policy.New(), notifier, quiet)

		r := router.NewRouter(middleware.NewAuthMiddleware(authSvc), router.Config{
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "records_api_test",
		})
		r.Setup(
			[]router.Handler{authHandler.NewHandler(authSvc)},
			[]router.Handler{
				physicianHandler.NewHandler(),
				patientHandler.NewHandler(patientSvc),
			},
		)
		testEngine = r.Engine()
	})
	return testEngine
}

func doRequest(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	testServer().ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func signup(t *testing.T, email, first, last string) (access string) {
	t.Helper()
	w, body := doRequest(t, http.MethodPost, "/signup", "", map[string]string{
		"email":      email,
		"first_name": first,
		"last_name":  last,
		"password":   "pw1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, body["access"])
	require.NotEmpty(t, body["refresh"])
	return body["access"].(string)
}

func TestOwnershipScenario(t *testing.T) {
	tokenA := signup(t, "alice@example.com", "Alice", "Adams")
	tokenB := signup(t, "bob@example.com", "Bob", "Brown")

	// A creates Jane.
	w, created := doRequest(t, http.MethodPost, "/patients", tokenA, map[string]interface{}{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "jane@example.com",
		"dob":        "1981-06-05",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	janeID := fmt.Sprintf("%v", created["id"])

	// B cannot read, update or delete her; the denial names the reason.
	w, body := doRequest(t, http.MethodGet, "/patients/"+janeID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_owner", body["reason"])

	w, _ = doRequest(t, http.MethodPatch, "/patients/"+janeID, tokenB, map[string]string{
		"first_name": "Hacked",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, http.MethodDelete, "/patients/"+janeID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A still sees the unmodified record.
	w, body = doRequest(t, http.MethodGet, "/patients/"+janeID, tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane", body["first_name"])
	assert.Equal(t, "1981-06-05", body["dob"])

	// B's list is empty, A's has exactly Jane.
	w, _ = doRequest(t, http.MethodGet, "/patients", tokenB, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", string(bytes.TrimSpace([]byte(w.Body.String()))))

	// A deletes; a later read is a 404, not a 403.
	w, _ = doRequest(t, http.MethodDelete, "/patients/"+janeID, tokenA, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doRequest(t, http.MethodGet, "/patients/"+janeID, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateIgnoresClientSuppliedOwner(t *testing.T) {
	tokenA := signup(t, "carol@example.com", "Carol", "Clark")
	signup(t, "dave@example.com", "Dave", "Dunn")

	w, created := doRequest(t, http.MethodPost, "/patients", tokenA, map[string]interface{}{
		"first_name":   "Pete",
		"last_name":    "Price",
		"email":        "pete@example.com",
		"dob":          "1975-01-20",
		"physician_id": 99999,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Owner is the caller, not the smuggled value.
	w, body := doRequest(t, http.MethodGet, "/physician/info", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Carol", body["first_name"])
	assert.NotEqual(t, float64(99999), created["physician_id"])

	patientID := fmt.Sprintf("%v", created["id"])
	w, _ = doRequest(t, http.MethodGet, "/patients/"+patientID, tokenA, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRejectsFutureDOB(t *testing.T) {
	token := signup(t, "erin@example.com", "Erin", "Evans")

	future := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")
	w, _ := doRequest(t, http.MethodPost, "/patients", token, map[string]interface{}{
		"first_name": "Future",
		"last_name":  "Person",
		"email":      "future@example.com",
		"dob":        future,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/patients"},
		{http.MethodPost, "/patients"},
		{http.MethodGet, "/patients/1"},
		{http.MethodGet, "/physician/info"},
	} {
		w, _ := doRequest(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestRefreshTokenFlow(t *testing.T) {
	w, body := doRequest(t, http.MethodPost, "/signup", "", map[string]string{
		"email":      "frank@example.com",
		"first_name": "Frank",
		"last_name":  "Ford",
		"password":   "pw1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	refresh := body["refresh"].(string)

	w, body = doRequest(t, http.MethodPost, "/api/token/refresh", "", map[string]string{
		"refresh": refresh,
	})
	require.Equal(t, http.StatusOK, w.Code)
	access := body["access"].(string)
	require.NotEmpty(t, access)

	w, body = doRequest(t, http.MethodGet, "/physician/info", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Frank", body["first_name"])
	assert.Equal(t, "Ford", body["last_name"])

	// A refresh token is not an access token.
	w, _ = doRequest(t, http.MethodGet, "/physician/info", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	signup(t, "grace@example.com", "Grace", "Green")

	w, _ := doRequest(t, http.MethodPost, "/login", "", map[string]string{
		"email":    "grace@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := doRequest(t, http.MethodPost, "/login", "", map[string]string{
		"email":    "grace@example.com",
		"password": "pw1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login Successful", body["message"])
}

func TestSignupDuplicateEmail(t *testing.T) {
	signup(t, "henry@example.com", "Henry", "Hill")

	w, _ := doRequest(t, http.MethodPost, "/signup", "", map[string]string{
		"email":      "henry@example.com",
		"first_name": "Henry",
		"last_name":  "Hill",
		"password":   "pw1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupMissingFields(t *testing.T) {
	w, _ := doRequest(t, http.MethodPost, "/signup", "", map[string]string{
		"email":    "incomplete@example.com",
		"password": "pw1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendPatientInfoQueuesEvent(t *testing.T) {
	token := signup(t, "ivy@example.com", "Ivy", "Irwin")

	w, created := doRequest(t, http.MethodPost, "/patients", token, map[string]interface{}{
		"first_name": "Nina",
		"last_name":  "North",
		"email":      "nina@example.com",
		"dob":        "1990-09-09",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	patientID := fmt.Sprintf("%v", created["id"])

	before := len(testOutbox.events)
	w, _ = doRequest(t, http.MethodPost, "/patients/"+patientID+"/send-info", token, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Greater(t, len(testOutbox.events), before)

	var found bool
	for _, e := range testOutbox.events {
		if e.EventType == model.EventPatientInfoRequested {
			found = true
		}
	}
	assert.True(t, found)
}
