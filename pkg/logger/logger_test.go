package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_InvalidLevel(t *testing.T) {
	err := Init("loud", "json", "stdout")
	assert.Error(t, err)
}

func TestInit_FileOutput(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Set(prev) })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("debug", "console", path))
	Info("hello")
	Sync()
	assert.FileExists(t, path)
}

func TestSet_RoutesPackageHelpers(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Set(prev) })

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Warn("degenerate axis", zap.String("axis", "x"))
	Debug("cache miss")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "x", entry.ContextMap()["axis"])
}

func TestSet_NilFallsBackToNop(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Set(prev) })

	Set(nil)
	assert.NotPanics(t, func() { Info("ignored") })
}
