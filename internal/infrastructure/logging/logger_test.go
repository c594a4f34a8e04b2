package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")

	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	log := logger.Component("dispatch")
	log.Debug("hidden")
	log.Info("Job completed", Job("job_1", "conn-1", "https://example.com")...)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"Job completed"`)
	assert.Contains(t, out, `"logger":"dispatch"`)
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"timestamp":"`)
	assert.NotContains(t, out, `"msg":`)
	assert.Contains(t, out, `"job_id":"job_1"`)
	assert.Contains(t, out, `"owner":"conn-1"`)
}

func TestNew_EmptyLevelIsInfo(t *testing.T) {
	logger, err := New(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "capture.log")}})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "info", DefaultConfig().Level)
	assert.False(t, DefaultConfig().Development)
	assert.True(t, DevelopmentConfig().Development)

	assert.NotNil(t, NewDefault())
	assert.NotNil(t, NewDevelopment())

	nop := NewNop()
	assert.NotPanics(t, func() { nop.Info("ignored", zap.Int("n", 1)) })
}
