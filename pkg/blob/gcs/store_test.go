package gcs_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
	"github.com/iota-uz/sentencing-etl/pkg/blob/gcs"
)

func newStore(t *testing.T, h http.HandlerFunc) *gcs.Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := gcs.New(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return s
}

func TestStore_Get(t *testing.T) {
	var gotPath, gotAlt string
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAlt = r.URL.Query().Get("alt")
		_, _ = io.WriteString(w, `[{"external_id":"1"}]`)
	})
	require.Equal(t, blob.DriverGCS, s.Driver())

	rc, err := s.Get(context.Background(), "imports", "US_ID/sentencing_case_record.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, `[{"external_id":"1"}]`, string(data))
	require.True(t, strings.HasPrefix(gotPath, "/storage/v1/b/imports/o/"), gotPath)
	require.Equal(t, "media", gotAlt)
}

func TestStore_GetMissing(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"No such object"}}`)
	})
	_, err := s.Get(context.Background(), "imports", "US_ID/missing.json")
	require.True(t, errors.Is(err, blob.ErrNotFound), "got %v", err)
}

func TestStore_InvalidKey(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := s.Get(context.Background(), "imports", "../secret")
	require.True(t, errors.Is(err, blob.ErrInvalidKey))
}
