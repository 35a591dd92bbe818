package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"development": zapcore.DebugLevel,
		"DEBUG":       zapcore.DebugLevel,
		"production":  zapcore.InfoLevel,
		"warn":        zapcore.WarnLevel,
		"error":       zapcore.ErrorLevel,
		"":            zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestGet_WithoutInitReturnsNop(t *testing.T) {
	mu.Lock()
	global = nil
	mu.Unlock()

	l := Get()
	require.NotNil(t, l)
	l.Info("discarded")
}

func TestInit_SetsGlobal(t *testing.T) {
	err := Init(&Config{Level: "production", ServiceName: "nejat-test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		mu.Lock()
		global = nil
		mu.Unlock()
	})

	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
}
