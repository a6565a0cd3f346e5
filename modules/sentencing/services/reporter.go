package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

// LogReporter writes reports as error level log lines, which the log
// pipeline turns into alerts.
type LogReporter struct {
	logger *logrus.Logger
}

func NewLogReporter(logger *logrus.Logger) *LogReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, message string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithField("panic", rec).Error("reporter panicked")
		}
	}()
	metricsSingleton().reports.Inc()
	entry := r.logger.WithField("report", true)
	if id, ok := composables.UseRequestID(ctx); ok {
		entry = entry.WithField("request-id", id)
	}
	entry.Error(message)
}
