package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSatisfiesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	DefaultLogger.Info("wrote part", zap.String("bucket", "Protein"))
	DefaultLogger.Debug("hidden")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "wrote part", entry.Message)
	assert.Equal(t, "Protein", entry.ContextMap()["bucket"])
}

func TestSetLoggerNilFallsBackToNoop(t *testing.T) {
	SetLogger(nil)
	assert.IsType(t, NoopLogger{}, DefaultLogger)
}

func TestNew(t *testing.T) {
	l, err := New("debug", false)
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = New("loud", true)
	assert.Error(t, err)
}
