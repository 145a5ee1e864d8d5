package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	got := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{Server: server, OutputWriter: buf})
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	return buf.String(), err
}

func TestStatsCommand(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{"success":true,"data":{"category":"account","stats":{"waiting":2}}}`)

	out, err := run(t, srv.URL, "stats", "account")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/v1/emails/stats", got.path)
	assert.Equal(t, "category=account", got.query)
	assert.Contains(t, out, `"waiting": 2`)
}

func TestCleanCommand_GraceInMilliseconds(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{"success":true,"message":"Queue cleaned","data":{"completed":3,"failed":0}}`)

	out, err := run(t, srv.URL, "clean", "payment", "--grace", "90s")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v1/emails/queues/payment/clean", got.path)
	assert.Equal(t, "grace=90000", got.query)
	assert.Contains(t, out, "Queue cleaned")
	assert.Contains(t, out, `"completed": 3`)
}

func TestSendCommand(t *testing.T) {
	srv, got := newTestServer(t, http.StatusAccepted, `{"success":true,"message":"Email queued successfully","data":{"jobId":"j-1"}}`)

	out, err := run(t, srv.URL, "send", "account", "PASSWORD_RESET", "--payload", `{"to":"a@x.io","resetLink":"https://x.io/r"}`)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/emails/send", got.path)
	assert.Equal(t, "account", got.body["category"])
	assert.Equal(t, "PASSWORD_RESET", got.body["type"])
	assert.Equal(t, map[string]any{"to": "a@x.io", "resetLink": "https://x.io/r"}, got.body["payload"])
	assert.Contains(t, out, "j-1")
}

func TestSendCommand_InvalidPayload(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusAccepted, `{}`)

	_, err := run(t, srv.URL, "send", "account", "PASSWORD_RESET", "--payload", `not-json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object")
}

func TestJobCommand_NotFound(t *testing.T) {
	srv, got := newTestServer(t, http.StatusNotFound, `{"error":"job not found"}`)

	_, err := run(t, srv.URL, "job", "account", "missing")
	require.Error(t, err)
	assert.Equal(t, "/api/v1/emails/queues/account/jobs/missing", got.path)
	assert.Contains(t, err.Error(), "job not found")
	assert.Contains(t, err.Error(), "404")
}

func TestRoutesCommand_Table(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK,
		`{"success":true,"data":[{"category":"account","type":"PASSWORD_RESET","target":"account/password_reset"}]}`)

	out, err := run(t, srv.URL, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "account/password_reset")
}

func TestServerFromEnvironment(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{"success":true,"data":{"category":"security"}}`)
	t.Setenv("MAILCTL_SERVER", srv.URL)

	_, err := run(t, "", "pause", "security")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/emails/queues/security/pause", got.path)
}

func TestArgsValidation(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "job", "account")
	assert.Error(t, err)
}
