package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
)

func TestWriteError_CarriesRequestMeta(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/handle_import", nil)
	r = r.WithContext(composables.WithRequestID(r.Context(), "req-7"))
	rec := httptest.NewRecorder()

	require.NoError(t, httpapi.WriteError(rec, http.StatusBadRequest, "INVALID_REQUEST", "bad body", httpapi.RequestMeta(r)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.JSONEq(t,
		`{"code":"INVALID_REQUEST","message":"bad body","meta":{"request_id":"req-7","path":"/handle_import"}}`,
		rec.Body.String())
}

func TestWriteError_OmitsEmptyMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, httpapi.WriteError(rec, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "boom", nil))

	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	require.Nil(t, env.Meta)
	require.NotContains(t, rec.Body.String(), "meta")

	meta := httpapi.RequestMeta(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, &httpapi.Meta{Path: "/nope"}, meta)
}

func TestWriteJSON_NilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, httpapi.WriteJSON(rec, http.StatusNoContent, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.NoError(t, httpapi.WriteJSON(nil, http.StatusOK, map[string]string{"a": "b"}))
}
