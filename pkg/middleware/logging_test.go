package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
)

func jsonLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	logger, _ := jsonLogger()
	var seen string
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = composables.UseRequestID(r.Context())
		composables.UseLogger(r.Context()).Info("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "abc-123", seen)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestWithLogger_GeneratesRequestID(t *testing.T) {
	logger, _ := jsonLogger()
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestWithLogger_RedactsAuthorizationAndKeepsBody(t *testing.T) {
	logger, buf := jsonLogger()
	var body []byte
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/handle_import", strings.NewReader(`{"bucketId":"b"}`))
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, `{"bucketId":"b"}`, string(body))
	require.NotContains(t, buf.String(), "secret-token")
	require.Contains(t, buf.String(), "[redacted]")
}

func TestWithLogger_InvalidJSONReachesHandler(t *testing.T) {
	logger, buf := jsonLogger()
	called := false
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/trigger_import", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusNoContent, rec.Code)
	var captured bool
	for _, line := range logLines(t, buf) {
		if line["msg"] == "request-body captured" {
			require.Equal(t, "{not json", line["request-body"])
			captured = true
		}
	}
	require.True(t, captured)
}

func TestWithLogger_RecoversPanicWithJSONEnvelope(t *testing.T) {
	logger, buf := jsonLogger()
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodPost, "/handle_import", strings.NewReader(`{}`))
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, req) })

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	require.NotNil(t, env.Meta)
	require.Equal(t, "req-1", env.Meta.RequestID)
	require.Contains(t, buf.String(), "panic recovered in request handler")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate([]byte("abc"), 0))
	require.Equal(t, "ab...(truncated)", truncate([]byte("abc"), 2))
}
