package tasks_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/cloudtasks/v2"
	"google.golang.org/api/option"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/tasks"
)

func newCloudTasks(t *testing.T, handler http.HandlerFunc, opts tasks.CloudTasksOptions) *tasks.CloudTasksScheduler {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := tasks.NewCloudTasksScheduler(context.Background(), opts,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return s
}

func TestCloudTasksScheduler_CreatesOIDCTask(t *testing.T) {
	var path string
	var got cloudtasks.CreateTaskRequest
	s := newCloudTasks(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(cloudtasks.Task{Name: "tasks/1"})
	}, tasks.CloudTasksOptions{
		Project:             "recidiviz",
		Location:            "us-central1",
		Queue:               "sentencing-import",
		HandleURL:           "https://etl.example.com/handle_import",
		ServiceAccountEmail: "tasks@recidiviz.iam.gserviceaccount.com",
	})

	require.NoError(t, s.Schedule(context.Background(), "bucket", "US_ID/sentencing_case_record.json"))

	require.Equal(t, "/v2/projects/recidiviz/locations/us-central1/queues/sentencing-import/tasks", path)
	req := got.Task.HttpRequest
	require.Equal(t, "POST", req.HttpMethod)
	require.Equal(t, "https://etl.example.com/handle_import", req.Url)
	require.Equal(t, "tasks@recidiviz.iam.gserviceaccount.com", req.OidcToken.ServiceAccountEmail)
	require.Equal(t, "https://etl.example.com/handle_import", req.OidcToken.Audience)

	body, err := base64.StdEncoding.DecodeString(req.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"bucketId":"bucket","objectId":"US_ID/sentencing_case_record.json"}`, string(body))
}

func TestCloudTasksScheduler_PropagatesAPIErrors(t *testing.T) {
	s := newCloudTasks(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"queue is paused"}}`))
	}, tasks.CloudTasksOptions{Project: "p", Location: "l", Queue: "q", HandleURL: "https://etl.example.com/handle_import"})

	err := s.Schedule(context.Background(), "b", "US_ID/sentencing_case_record.json")
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue is paused")
}

func TestNewCloudTasksScheduler_RequiresQueue(t *testing.T) {
	_, err := tasks.NewCloudTasksScheduler(context.Background(), tasks.CloudTasksOptions{Project: "p", HandleURL: "u"}, option.WithoutAuthentication())
	require.Error(t, err)
}
