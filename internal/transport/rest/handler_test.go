package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/config"
	"medcenter/internal/domain"
	"medcenter/internal/service"
	"medcenter/pkg/validator"
)

// Fake services embed the interface so that only the methods a test needs
// have to be implemented.

type fakeAuthService struct {
	service.AuthService
	tokens map[string]domain.Actor
}

func (f fakeAuthService) ParseToken(_ context.Context, token string) (int64, domain.UserRole, error) {
	actor, ok := f.tokens[token]
	if !ok {
		return 0, "", domain.ErrUnauthorized
	}
	return actor.UserID, actor.Role, nil
}

type fakeVisitService struct {
	service.VisitService
	createErr   error
	cancelErr   error
	limit       bool
	lastCreate  domain.CreateVisitDTO
	lastActor   domain.Actor
	limitUserID int64
}

func (f *fakeVisitService) Create(_ context.Context, actor domain.Actor, dto domain.CreateVisitDTO) (*domain.Visit, error) {
	f.lastActor = actor
	f.lastCreate = dto
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Visit{ID: 1, DoctorID: dto.DoctorID, PatientID: 10, Status: domain.VisitStatusPending}, nil
}

func (f *fakeVisitService) Cancel(_ context.Context, _ domain.Actor, id int64) (*domain.Visit, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &domain.Visit{ID: id, Status: domain.VisitStatusCancelled}, nil
}

func (f *fakeVisitService) HasUserReachedActiveVisitsLimit(_ context.Context, userID int64) (bool, error) {
	f.limitUserID = userID
	return f.limit, nil
}

type fakeSummaryService struct {
	service.SummaryService
	description string
	files       []domain.UploadedFile
}

func (f *fakeSummaryService) Attach(_ context.Context, _ domain.Actor, visitID int64, dto domain.SummaryDTO, files []domain.UploadedFile) (*domain.VisitSummary, error) {
	f.description = dto.Description
	f.files = files
	return &domain.VisitSummary{ID: 1, VisitID: visitID, Description: dto.Description}, nil
}

var (
	testPatient = domain.Actor{UserID: 200, Role: domain.UserRolePatient}
	testDoctor  = domain.Actor{UserID: 100, Role: domain.UserRoleDoctor}
)

type testEnv struct {
	router  *gin.Engine
	visits  *fakeVisitService
	summary *fakeSummaryService
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.HTTP.AllowedOrigins = []string{"*"}
	if cfg.Files.MaxFileSizeMB == 0 {
		cfg.Files = config.FilesConfig{MaxSummaryFiles: 2, MaxFileSizeMB: 1}
	}

	env := &testEnv{
		visits:  &fakeVisitService{},
		summary: &fakeSummaryService{},
	}

	services := &service.Services{
		Auth: fakeAuthService{tokens: map[string]domain.Actor{
			"patient-token": testPatient,
			"doctor-token":  testDoctor,
		}},
		Visit:   env.visits,
		Summary: env.summary,
	}

	env.router = gin.New()
	NewHandler(services, zap.NewNop(), cfg, nil).InitRoutes(env.router)

	return env
}

func (e *testEnv) do(method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponseBody {
	t.Helper()

	var body errorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"unknown token", "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/visits/limit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/v1/patients", "patient-token", nil, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCreateVisit(t *testing.T) {
	env := newTestEnv(t, nil)

	body := []byte(`{"doctor_id": 5, "date": "2025-12-01", "time": "14:00"}`)
	w := env.do(http.MethodPost, "/api/v1/visits", "patient-token", body, "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if env.visits.lastActor != testPatient {
		t.Errorf("expected actor %+v, got %+v", testPatient, env.visits.lastActor)
	}
	if env.visits.lastCreate.DoctorID != 5 || env.visits.lastCreate.Date != "2025-12-01" || env.visits.lastCreate.Time != "14:00" {
		t.Errorf("unexpected dto %+v", env.visits.lastCreate)
	}
}

func TestCreateVisit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"limit", fmt.Errorf("пациент 10: %w", domain.ErrVisitLimitExceeded), http.StatusConflict, domain.ErrVisitLimitExceeded.Error()},
		{"slot taken", domain.ErrSlotTaken, http.StatusConflict, domain.ErrSlotTaken.Error()},
		{"invalid schedule", fmt.Errorf("%w: %w", domain.ErrInvalidSchedule, domain.ErrInvalidSlot), http.StatusBadRequest, ""},
		{"not found", fmt.Errorf("врач 5: %w", domain.ErrNotFound), http.StatusNotFound, domain.ErrNotFound.Error()},
		{"forbidden", fmt.Errorf("%w: visit.book", domain.ErrForbidden), http.StatusForbidden, domain.ErrForbidden.Error()},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "внутренняя ошибка сервера"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.visits.createErr = tt.err

			body := []byte(`{"doctor_id": 5, "date": "2025-12-01", "time": "14:00"}`)
			w := env.do(http.MethodPost, "/api/v1/visits", "patient-token", body, "application/json")
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}

			resp := decodeError(t, w)
			if tt.message != "" && resp.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Message)
			}
		})
	}
}

func TestCreateVisit_ValidationFields(t *testing.T) {
	env := newTestEnv(t, nil)

	var fields validator.FieldErrors
	fields.Add("visit_type", "слишком длинный тип визита")
	env.visits.createErr = domain.NewValidationError(fields)

	body := []byte(`{"doctor_id": 5, "date": "2025-12-01", "time": "14:00"}`)
	w := env.do(http.MethodPost, "/api/v1/visits", "patient-token", body, "application/json")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}

	resp := decodeError(t, w)
	if len(resp.Fields) != 1 || resp.Fields[0].Field != "visit_type" {
		t.Errorf("unexpected fields %+v", resp.Fields)
	}
}

func TestCreateVisit_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/v1/visits", "patient-token", []byte(`{"doctor_id": "x"}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateVisit_RateLimited(t *testing.T) {
	env := newTestEnv(t, &config.Config{RateLimit: config.RateLimitConfig{BookingPerMinute: 1, BookingBurst: 1}})

	body := []byte(`{"doctor_id": 5, "date": "2025-12-01", "time": "14:00"}`)
	if w := env.do(http.MethodPost, "/api/v1/visits", "patient-token", body, "application/json"); w.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/v1/visits", "patient-token", body, "application/json"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}

	// Buckets are per user.
	if w := env.do(http.MethodPost, "/api/v1/visits", "doctor-token", body, "application/json"); w.Code != http.StatusCreated {
		t.Fatalf("other user: expected 201, got %d", w.Code)
	}
}

func TestCancelVisit(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/v1/visits/7/cancel", "patient-token", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	env.visits.cancelErr = fmt.Errorf("визит 7: %w", domain.ErrNotCancellable)
	w = env.do(http.MethodPost, "/api/v1/visits/7/cancel", "patient-token", nil, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Message != domain.ErrNotCancellable.Error() {
		t.Errorf("unexpected message %q", resp.Message)
	}

	w = env.do(http.MethodPost, "/api/v1/visits/abc/cancel", "patient-token", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", w.Code)
	}
}

func TestGetVisitLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.visits.limit = true

	w := env.do(http.MethodGet, "/api/v1/visits/limit", "patient-token", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data struct {
			LimitReached bool `json:"limit_reached"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.LimitReached || env.visits.limitUserID != testPatient.UserID {
		t.Errorf("unexpected response %s for user %d", w.Body.String(), env.visits.limitUserID)
	}

	if w := env.do(http.MethodGet, "/api/v1/visits/limit", "doctor-token", nil, ""); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a doctor, got %d", w.Code)
	}
}

func TestAttachSummary_Multipart(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("description", "Pacjent zdrowy"); err != nil {
		t.Fatal(err)
	}
	part, err := mw.CreateFormFile("files", "wyniki.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("%PDF-1.4 wyniki"))
	mw.Close()

	w := env.do(http.MethodPost, "/api/v1/visits/3/summary", "doctor-token", buf.Bytes(), mw.FormDataContentType())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if env.summary.description != "Pacjent zdrowy" {
		t.Errorf("unexpected description %q", env.summary.description)
	}
	if len(env.summary.files) != 1 || env.summary.files[0].FileName != "wyniki.pdf" {
		t.Fatalf("unexpected files %+v", env.summary.files)
	}
	if !strings.HasPrefix(string(env.summary.files[0].Data), "%PDF") {
		t.Errorf("unexpected file content")
	}
}

func TestAttachSummary_JSON(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/v1/visits/3/summary", "doctor-token", []byte(`{"description": "Bez zmian"}`), "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if env.summary.description != "Bez zmian" || len(env.summary.files) != 0 {
		t.Errorf("unexpected summary input %q %d", env.summary.description, len(env.summary.files))
	}
}

func TestAttachSummary_TooLarge(t *testing.T) {
	env := newTestEnv(t, &config.Config{Files: config.FilesConfig{MaxSummaryFiles: 1, MaxFileSizeMB: 1}})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("description", "Opis")
	part, _ := mw.CreateFormFile("files", "big.bin")
	part.Write(bytes.Repeat([]byte{'a'}, 3<<20))
	mw.Close()

	w := env.do(http.MethodPost, "/api/v1/visits/3/summary", "doctor-token", buf.Bytes(), mw.FormDataContentType())
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/v1/unknown", "", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestKeyedRateLimiter_DropsIdleVisitors(t *testing.T) {
	limiter := newKeyedRateLimiter(1, 1)
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	if !limiter.allow("a") {
		t.Fatal("first request must pass")
	}
	if limiter.allow("a") {
		t.Fatal("second request in the same instant must be limited")
	}

	now = now.Add(limiterIdleTTL + limiterSweepInterval)
	limiter.allow("b")

	if _, ok := limiter.visitors["a"]; ok {
		t.Error("expected idle visitor to be dropped")
	}
}
