package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/application"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
)

func testConfig() *configuration.Configuration {
	return &configuration.Configuration{
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		Prometheus:      configuration.PrometheusOptions{Enabled: true, Path: "/debug/prometheus"},
		RateLimit:       configuration.RateLimitOptions{Enabled: true, GlobalRPS: 1000, Storage: "memory"},
	}
}

func TestDefault_ServesMetricsAndJSONFallbacks(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := application.New(&application.ApplicationOptions{Logger: logger})

	srv, err := Default(&DefaultOptions{Logger: logger, Configuration: testConfig(), Application: app})
	require.NoError(t, err)
	h := srv.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "NOT_FOUND", env.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/prometheus", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
