package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/typeb/familyhub/internal/adapters/memory"
	"github.com/typeb/familyhub/internal/adapters/security"
	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
)

func newTestRouter(t *testing.T, billingSecret string) http.Handler {
	t.Helper()
	repos := memory.NewRepositories()
	signer, err := security.NewEphemeralJWTSigner("router-test-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:             time.Hour,
			SessionTTL:           24 * time.Hour,
			FailedLoginThreshold: 5,
			FailedLoginWindow:    15 * time.Minute,
			LockoutDuration:      30 * time.Minute,
			InviteCodeAttempts:   5,
			ReminderOffsets:      []time.Duration{30 * time.Minute, 15 * time.Minute, 5 * time.Minute},
		},
		Users:         repos.Users,
		Families:      repos.Families,
		Tasks:         repos.Tasks,
		Categories:    repos.Categories,
		Notifications: repos.Notifications,
		Preferences:   repos.Preferences,
		Activities:    repos.Activities,
		Sessions:      repos.Sessions,
		LoginAttempts: repos.LoginAttempts,
		Outbox:        repos.Outbox,
		Idempotency:   repos.Idempotency,
		Lockouts:      memory.NewLockoutStore(),
		Revocations:   memory.NewSessionRevocationStore(),
		Hasher:        security.NewBcryptHasher(4),
		TokenSigner:   signer,
	})
	return NewRouter(NewHandler(svc, billingSecret))
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func loginToken(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rec, _ := doJSON(t, router, http.MethodPost, "/auth/v1/register", "", map[string]string{
		"email":        email,
		"password":     "CorrectHorse1",
		"display_name": "Router Test",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	rec, env := doJSON(t, router, http.MethodPost, "/auth/v1/login", "", map[string]string{
		"email":    email,
		"password": "CorrectHorse1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login data %s: %v", env.Data, err)
	}
	return data.Token
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")
	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := doJSON(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, rec.Code)
		}
	}
}

func TestRegisterLoginMeFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")
	token := loginToken(t, router, "flow@example.com")

	rec, env := doJSON(t, router, http.MethodGet, "/auth/v1/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", rec.Code, rec.Body.String())
	}
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("me data: %v", err)
	}
	if me.Email != "flow@example.com" || me.Role != domain.RoleParent {
		t.Fatalf("unexpected profile: %+v", me)
	}
}

func TestAuthRequiredAndRequestID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if env.Status != "error" || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Error.RequestID != "req-abc-123" {
		t.Fatalf("request id not echoed: %q", env.Error.RequestID)
	}
}

func TestJoinFamilyValidationOverHTTP(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")
	token := loginToken(t, router, "joiner@example.com")

	rec, env := doJSON(t, router, http.MethodPost, "/v1/families/join", token, map[string]string{"invite_code": "ABC"})
	if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("short code: status %d code %q", rec.Code, env.Error.Code)
	}

	// Unknown fields are rejected at the decode boundary.
	rec, env = doJSON(t, router, http.MethodPost, "/v1/families/join", token, map[string]string{"invite_code": "ABCDEF", "extra": "nope"})
	if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unknown field: status %d code %q", rec.Code, env.Error.Code)
	}

	rec, env = doJSON(t, router, http.MethodPost, "/v1/families/join", token, map[string]string{"invite_code": "ZZZZZZ"})
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unknown code: status %d code %q", rec.Code, env.Error.Code)
	}
}

func TestBillingWebhookSecret(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "hook-secret")
	token := loginToken(t, router, "hookparent@example.com")

	rec, env := doJSON(t, router, http.MethodPost, "/v1/families", token, map[string]string{"name": "Hooked"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create family status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		FamilyID string `json:"family_id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil || created.FamilyID == "" {
		t.Fatalf("family data %s: %v", env.Data, err)
	}

	payload := map[string]string{
		"family_id":  created.FamilyID,
		"event":      domain.BillingEventActivated,
		"expires_at": time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
	}

	// Missing secret is rejected before the body is considered.
	rec, env = doJSON(t, router, http.MethodPost, "/internal/v1/billing/events", "", payload)
	if rec.Code != http.StatusUnauthorized || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("missing secret: status %d code %q", rec.Code, env.Error.Code)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/billing/events", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("webhook status %d: %s", out.Code, out.Body.String())
	}
	var sub struct {
		Plan string `json:"plan"`
	}
	var okEnv envelope
	if err := json.Unmarshal(out.Body.Bytes(), &okEnv); err != nil {
		t.Fatalf("decode webhook body: %v", err)
	}
	if err := json.Unmarshal(okEnv.Data, &sub); err != nil || sub.Plan != domain.PlanPremium {
		t.Fatalf("webhook data %s: %v", okEnv.Data, err)
	}

	// Members read the upgrade back through the normal API.
	rec, env = doJSON(t, router, http.MethodGet, "/v1/families/"+created.FamilyID+"/subscription", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscription status %d: %s", rec.Code, rec.Body.String())
	}
	var subAfter struct {
		Plan       string `json:"plan"`
		MaxMembers int    `json:"max_members"`
	}
	if err := json.Unmarshal(env.Data, &subAfter); err != nil || subAfter.Plan != domain.PlanPremium || subAfter.MaxMembers != 10 {
		t.Fatalf("subscription data %s: %v", env.Data, err)
	}
}

func TestCreateTaskWithoutCategory(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")
	token := loginToken(t, router, "nocategory@example.com")

	rec, env := doJSON(t, router, http.MethodPost, "/v1/families", token, map[string]string{"name": "Uncategorized"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create family status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		FamilyID string `json:"family_id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil || created.FamilyID == "" {
		t.Fatalf("family data %s: %v", env.Data, err)
	}

	// category_id is optional; a bare title and due date is a valid task.
	rec, env = doJSON(t, router, http.MethodPost, "/v1/families/"+created.FamilyID+"/tasks/", token, map[string]string{
		"title":  "Water the garden",
		"due_at": time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task status %d: %s", rec.Code, rec.Body.String())
	}
	var task struct {
		Status     string `json:"status"`
		CategoryID string `json:"category_id"`
	}
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatalf("task data %s: %v", env.Data, err)
	}
	if task.Status != domain.TaskStatusPending {
		t.Fatalf("task status %q", task.Status)
	}
	if task.CategoryID != "" {
		t.Fatalf("uncategorized task should not carry a category, got %q", task.CategoryID)
	}

	// A malformed category id is still rejected.
	rec, env = doJSON(t, router, http.MethodPost, "/v1/families/"+created.FamilyID+"/tasks/", token, map[string]string{
		"title":       "Bad category",
		"due_at":      time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
		"category_id": "not-a-uuid",
	})
	if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("bad category: status %d code %q", rec.Code, env.Error.Code)
	}
}
