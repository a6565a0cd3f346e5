package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	f, logger, err := FileLogger(logrus.InfoLevel, path)
	require.NoError(t, err)
	require.NotNil(t, f)
	t.Cleanup(func() { _ = f.Close() })

	logger.WithField("entity", "case").Info("import finished")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"entity":"case"`)
	require.Contains(t, string(data), "import finished")
}

func TestFileLogger_EmptyPathFallsBackToConsole(t *testing.T) {
	f, logger, err := FileLogger(logrus.WarnLevel, "")
	require.NoError(t, err)
	require.Nil(t, f)
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())
}
