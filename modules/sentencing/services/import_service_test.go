package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
	"github.com/iota-uz/sentencing-etl/pkg/blob/memory"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

type stubFetcher struct {
	records []json.RawMessage
	err     error
	calls   []string
}

func (f *stubFetcher) Fetch(_ context.Context, bucket, object string) ([]json.RawMessage, error) {
	f.calls = append(f.calls, bucket+"/"+object)
	return f.records, f.err
}

func TestImportService_FetchesAndLoads(t *testing.T) {
	ctx := context.Background()
	e := newEnv(1)
	blobs := memory.New()
	body, err := json.Marshal([]doc{caseDoc("new")})
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, "b", "US_ID/sentencing_case_record.json", bytes.NewReader(body), "application/json"))

	svc := services.NewImportService(services.NewBlobFetcher(blobs, 0))
	target, err := services.NewPathResolver("", e.loaders).Resolve("b", "US_ID/sentencing_case_record.json")
	require.NoError(t, err)

	res, err := svc.Import(ctx, target)
	require.NoError(t, err)
	require.Equal(t, domain.EntityCase, res.Entity)
	require.Equal(t, 1, res.Created)

	cases, err := e.repos.Cases.List(ctx, domain.StateCodeUSID)
	require.NoError(t, err)
	require.Equal(t, []string{"new"}, caseIDs(cases))
}

func TestImportService_PropagatesFailures(t *testing.T) {
	ctx := context.Background()
	e := newEnv(1)
	target, err := services.NewPathResolver("", e.loaders).Resolve("b", "US_ID/sentencing_client_record.json")
	require.NoError(t, err)

	fetchErr := errors.New("bucket unavailable")
	_, err = services.NewImportService(&stubFetcher{err: fetchErr}).Import(ctx, target)
	require.ErrorIs(t, err, fetchErr)

	f := &stubFetcher{records: []json.RawMessage{json.RawMessage(`{"external_id":1}`)}}
	_, err = services.NewImportService(f).Import(ctx, target)
	require.Error(t, err)
	require.Equal(t, []string{"b/US_ID/sentencing_client_record.json"}, f.calls)

	_, err = services.NewImportService(f).Import(ctx, services.Target{Bucket: "b", Object: "x"})
	require.ErrorIs(t, err, domain.ErrUnsupportedObject)
}

func TestLogReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx := composables.WithRequestID(context.Background(), "req-1")
	services.NewLogReporter(logger).Report(ctx, "Unsupported bucket + object pair: b/o")

	line := buf.String()
	require.True(t, strings.Contains(line, `"level":"error"`), line)
	require.Contains(t, line, "Unsupported bucket + object pair: b/o")
	require.Contains(t, line, `"request-id":"req-1"`)
}
