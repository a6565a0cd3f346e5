package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
)

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerPeriod: 2, Period: time.Hour, Store: NewMemoryStore()})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger_import", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, "RATE_LIMITED", env.Code)
		}
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := RateLimit(RateLimitConfig{})(next)
	for range 5 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}
}

func TestNewRedisStore_RejectsBadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	require.Error(t, err)
}
