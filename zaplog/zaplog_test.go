package zaplog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerForwardsLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.Debug("lock busy", "lock", "joboutbox:relay")
	logger.Info("started")
	logger.Warn("release failed", "err", errors.New("boom"))
	logger.Error("dispatch failed", "entry_id", int64(7))

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, "joboutbox:relay", entries[0].ContextMap()["lock"])
	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.Equal(t, zapcore.WarnLevel, entries[2].Level)
	require.Equal(t, "boom", entries[2].ContextMap()["err"])
	require.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	require.Equal(t, int64(7), entries[3].ContextMap()["entry_id"])
}

func TestWrapNil(t *testing.T) {
	require.NotPanics(t, func() { Wrap(nil).Info("ignored") })
}

func TestNewLevels(t *testing.T) {
	l, err := New(ProductionMode, "warn")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New(DevelopmentMode, "")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New(ProductionMode, "loud")
	require.Error(t, err)
}
