package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/api"
	"github.com/notifyhub/mail-dispatcher/internal/content"
	"github.com/notifyhub/mail-dispatcher/internal/dispatch"
	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/events"
	"github.com/notifyhub/mail-dispatcher/internal/repository"
	"github.com/notifyhub/mail-dispatcher/internal/sender"
	"github.com/notifyhub/mail-dispatcher/internal/service"
	"github.com/notifyhub/mail-dispatcher/internal/worker"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, *domain.Envelope) (*sender.Receipt, error) {
	return &sender.Receipt{}, nil
}

type fixedUsage struct{}

func (fixedUsage) Usage(context.Context) (*sender.Usage, error) {
	return &sender.Usage{Date: "2026-07-01", EmailsSentToday: 7, DailyLimit: 100, PrimarySent: 7, ActiveSlot: "primary"}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newServer(t *testing.T, health func(context.Context) error) http.Handler {
	t.Helper()
	repo := repository.NewMemoryJobRepository()
	d := dispatch.Default(content.DefaultGroups())
	reg := worker.NewRegistry(repo, d, nopMailer{}, events.NopPublisher{}, worker.DefaultConfig(), zap.NewNop(), worker.MetricHooks{})
	svc := service.NewEmailService(reg, fixedUsage{}, d, zap.NewNop())
	return api.NewRouter(svc, health, prometheus.NewRegistry(), zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func sendBody() map[string]any {
	return map[string]any{
		"category": "account",
		"type":     "PASSWORD_RESET",
		"payload":  map[string]any{"to": "a@x.io", "resetLink": "https://x.io/r"},
	}
}

func TestSend_AcceptedThenJobLookup(t *testing.T) {
	h := newServer(t, nil)

	rec, env := do(t, h, http.MethodPost, "/api/v1/emails/send", sendBody())
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	var queued struct {
		JobID    string `json:"jobId"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &queued))
	require.NotEmpty(t, queued.JobID)
	assert.Equal(t, "account", queued.Category)

	rec, env = do(t, h, http.MethodGet, "/api/v1/emails/queues/account/jobs/"+queued.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.JobView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, domain.StatusWaiting, view.Status)
	assert.Equal(t, domain.TypePasswordReset, view.Type)
}

func TestSend_ErrorMapping(t *testing.T) {
	h := newServer(t, nil)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown category", map[string]any{"category": "marketing", "type": "PASSWORD_RESET", "payload": map[string]any{"to": "a@x.io"}}, http.StatusNotFound},
		{"type not in category", map[string]any{"category": "payment", "type": "PASSWORD_RESET", "payload": map[string]any{"to": "a@x.io"}}, http.StatusUnprocessableEntity},
		{"missing payload", map[string]any{"category": "account", "type": "PASSWORD_RESET"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/emails/send", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, env.Error)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/send", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendCategory_Shortcut(t *testing.T) {
	h := newServer(t, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/emails/send/storage", map[string]any{
		"type":    "STORAGE_FULL",
		"payload": map[string]any{"userEmail": "s@x.io"},
	})
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec, _ = do(t, h, http.MethodPost, "/api/v1/emails/send/storage", map[string]any{
		"type":    "PASSWORD_RESET",
		"payload": map[string]any{"to": "s@x.io"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBatch(t *testing.T) {
	h := newServer(t, nil)

	bad := sendBody()
	bad["category"] = "payment"
	rec, env := do(t, h, http.MethodPost, "/api/v1/emails/batch", map[string]any{"emails": []any{sendBody(), bad}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var res service.BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Rejected)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/emails/batch", map[string]any{"emails": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStats(t *testing.T) {
	h := newServer(t, nil)
	do(t, h, http.MethodPost, "/api/v1/emails/send", sendBody())

	rec, env := do(t, h, http.MethodGet, "/api/v1/emails/stats?category=account", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var one struct {
		Category string            `json:"category"`
		Stats    domain.QueueStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Equal(t, 1, one.Stats.Waiting)

	rec, env = do(t, h, http.MethodGet, "/api/v1/emails/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all map[string]*domain.QueueStats
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, len(domain.Categories))

	rec, _ = do(t, h, http.MethodGet, "/api/v1/emails/stats?category=marketing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminQueueControls(t *testing.T) {
	h := newServer(t, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/emails/queues/security/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env := do(t, h, http.MethodGet, "/api/v1/emails/stats?category=security", nil)
	assert.Contains(t, string(env.Data), `"paused":true`)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/emails/queues/security/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/emails/queues/security/clean?grace=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.CleanResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Zero(t, res.Completed)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/emails/queues/security/clean?grace=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/emails/queues/marketing/pause", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	h := newServer(t, nil)

	rec, env := do(t, h, http.MethodGet, "/api/v1/emails/queues/account/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job not found", env.Error)
}

func TestUsageAndRoutes(t *testing.T) {
	h := newServer(t, nil)

	rec, env := do(t, h, http.MethodGet, "/api/v1/emails/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var usage sender.Usage
	require.NoError(t, json.Unmarshal(env.Data, &usage))
	assert.Equal(t, 7, usage.EmailsSentToday)
	assert.Equal(t, "primary", usage.ActiveSlot)

	rec, env = do(t, h, http.MethodGet, "/api/v1/emails/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var routes []dispatch.Route
	require.NoError(t, json.Unmarshal(env.Data, &routes))
	assert.NotEmpty(t, routes)
}

func TestHealth(t *testing.T) {
	rec, _ := do(t, newServer(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := func(context.Context) error { return errors.New("db down") }
	rec, _ = do(t, newServer(t, failing), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := do(t, newServer(t, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
