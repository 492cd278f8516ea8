package observability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func TestNewLogger(t *testing.T) {
	logger, err := observability.NewLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger, err = observability.NewLogger(config.LoggingConfig{Level: "info", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewLogger_Rejects(t *testing.T) {
	_, err := observability.NewLogger(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = observability.NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestLogSink_DispatchedActionLogsAtInfo(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := observability.NewLogSink(zap.New(core))

	sink.ObserveAction(combat.Action{
		ID: "a-1", Skill: "Shot", TargetID: "gnoll-1",
		Success: true, Damage: 12, State: combat.StateEngaged,
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "combat action", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "Shot", fields["skill"])
	assert.Equal(t, "gnoll-1", fields["target"])
	assert.Equal(t, true, fields["success"])
}

func TestLogSink_NoOpLogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := observability.NewLogSink(zap.New(core))

	sink.ObserveAction(combat.Action{
		ID: "a-1", NoOp: true, Reason: combat.ReasonIdle, State: combat.StateIdle,
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "idle", entries[0].ContextMap()["reason"])
}

func TestLogSink_Summary(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := observability.NewLogSink(zap.New(core))

	sink.ObserveSummary(combat.Summary{
		SessionID: "s-1", Profile: "ranged", State: "engaged",
		Ticks: 100, Dispatched: 60, Succeeded: 55,
		SuccessRate: 55.0 / 60.0, DominantSkill: "Shot",
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ranged", fields["profile"])
	assert.Equal(t, "Shot", fields["dominant_skill"])
}
