package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	err   error
	calls []string
}

func (s *fakeScheduler) Schedule(_ context.Context, bucket, object string) error {
	s.calls = append(s.calls, bucket+"/"+object)
	return s.err
}

func TestRunSchedule_SchedulesResolvedObject(t *testing.T) {
	s := &fakeScheduler{}
	var out bytes.Buffer
	err := runSchedule(context.Background(), scheduleOptions{bucket: "imports", object: "US_IX/case_insights_record.json"}, "imports", s, &out)
	require.NoError(t, err)
	require.Equal(t, []string{"imports/US_IX/case_insights_record.json"}, s.calls)
	require.JSONEq(t, `{"bucketId":"imports","objectId":"US_IX/case_insights_record.json","entity":"insight","state":"US_ID"}`, out.String())
}

func TestRunSchedule_RejectsUnsupportedObject(t *testing.T) {
	s := &fakeScheduler{}
	err := runSchedule(context.Background(), scheduleOptions{bucket: "other", object: "US_ID/case_insights_record.json"}, "imports", s, &bytes.Buffer{})
	require.Equal(t, exitUsage, exitCode(err))
	require.Empty(t, s.calls)
}

func TestRunSchedule_SchedulerFailure(t *testing.T) {
	s := &fakeScheduler{err: errors.New("queue paused")}
	err := runSchedule(context.Background(), scheduleOptions{bucket: "b", object: "US_ID/sentencing_charge_record.json"}, "", s, &bytes.Buffer{})
	require.Equal(t, exitDBWrite, exitCode(err))
	require.Contains(t, err.Error(), "queue paused")
}
