package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func setupStore(t *testing.T) *postgres.ActionStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewActionStore(pc.RawPool)
}

func dispatched(skillName, targetID string, at time.Time, success bool, damage int) combat.Action {
	return combat.Action{
		ID:        uuid.NewString(),
		Skill:     skillName,
		TargetID:  targetID,
		Timestamp: at,
		Success:   success,
		Damage:    damage,
		Latency:   8 * time.Millisecond,
		State:     combat.StateEngaged,
	}
}

func TestActionStore_RecordAndRecent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	sessionID := uuid.NewString()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordAction(ctx, sessionID, "ranged", dispatched("Shot", "gnoll-1", base, true, 12)))
	require.NoError(t, store.RecordAction(ctx, sessionID, "ranged", dispatched("Bash", "gnoll-1", base.Add(time.Second), true, 4)))
	require.NoError(t, store.RecordAction(ctx, sessionID, "ranged", dispatched("Shot", "gnoll-2", base.Add(2*time.Second), false, 0)))

	actions, err := store.RecentActions(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	// Newest first.
	assert.Equal(t, "Shot", actions[0].Skill)
	assert.Equal(t, "gnoll-2", actions[0].TargetID)
	assert.False(t, actions[0].Success)
	assert.Equal(t, "Bash", actions[1].Skill)
	assert.Equal(t, 8*time.Millisecond, actions[1].Latency)
}

func TestActionStore_RejectsNoOp(t *testing.T) {
	store := setupStore(t)
	err := store.RecordAction(context.Background(), uuid.NewString(), "ranged", combat.Action{
		ID: uuid.NewString(), NoOp: true, Reason: combat.ReasonIdle,
	})
	assert.Error(t, err)
}

func TestActionStore_Summary(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	sessionID := uuid.NewString()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordAction(ctx, sessionID, "ranged", dispatched("Shot", "gnoll-1", base, true, 10)))
	require.NoError(t, store.RecordAction(ctx, sessionID, "ranged", dispatched("Shot", "gnoll-1", base.Add(time.Second), true, 14)))
	require.NoError(t, store.RecordAction(ctx, sessionID, "ranged", dispatched("Bash", "gnoll-1", base.Add(2*time.Second), false, 0)))

	sum, err := store.Summary(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, sum.SessionID)
	assert.Equal(t, 3, sum.Dispatched)
	assert.Equal(t, 2, sum.Succeeded)
	assert.InDelta(t, 2.0/3.0, sum.SuccessRate, 1e-9)
	assert.Equal(t, "Shot", sum.DominantSkill)
	assert.Equal(t, 24, sum.TotalDamage)
}

func TestActionStore_Summary_UnknownSession(t *testing.T) {
	store := setupStore(t)
	_, err := store.Summary(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, postgres.ErrSessionNotFound))
}

func TestAsyncSink_PersistsInBackground(t *testing.T) {
	store := setupStore(t)
	sessionID := uuid.NewString()
	sink := postgres.NewAsyncSink(store, sessionID, "ranged", 16, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- sink.Start() }()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sink.ObserveAction(dispatched("Shot", "gnoll-1", base, true, 12))
	sink.ObserveAction(combat.Action{ID: uuid.NewString(), NoOp: true, Reason: combat.ReasonIdle})
	sink.ObserveAction(dispatched("Bash", "gnoll-1", base.Add(time.Second), true, 4))

	// Stop drains the queue before returning.
	sink.Stop()
	require.NoError(t, <-done)

	actions, err := store.RecentActions(context.Background(), sessionID, 10)
	require.NoError(t, err)
	assert.Len(t, actions, 2, "no-op markers are never persisted")
}
