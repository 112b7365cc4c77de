package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.WarnLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestVerbosity(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, Verbosity(zapcore.WarnLevel, 0))
	assert.Equal(t, zapcore.InfoLevel, Verbosity(zapcore.WarnLevel, 1))
	assert.Equal(t, zapcore.DebugLevel, Verbosity(zapcore.WarnLevel, 2))
	assert.Equal(t, zapcore.DebugLevel, Verbosity(zapcore.WarnLevel, 7))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crnsim.log")

	logger, err := New(zapcore.InfoLevel, FormatJSON, path)
	require.NoError(t, err)
	logger.Info("compiled", zap.String("model", "odesystem"))
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"compiled"`)
	assert.Contains(t, string(data), `"model":"odesystem"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
