package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/metrics"
)

func TestPrometheusController_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "sentencing_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	ctrl := metrics.NewPrometheusController("", reg)
	require.Equal(t, "/debug/prometheus", ctrl.Key())

	r := mux.NewRouter()
	ctrl.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sentencing_test_total 3")
}
