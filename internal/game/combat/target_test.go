package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

func newSelector() *combat.Selector {
	return combat.NewSelector(combat.DefaultSelectorWeights())
}

func TestSelector_Pick_FiltersNonHostile(t *testing.T) {
	sel := newSelector()
	_, ok := sel.Pick([]combat.Target{
		{ID: "npc-1", Hostile: false, Distance: 2},
	}, 30)
	assert.False(t, ok)
}

func TestSelector_Pick_FiltersOutOfRange(t *testing.T) {
	sel := newSelector()
	_, ok := sel.Pick([]combat.Target{
		{ID: "far", Hostile: true, Distance: 50},
	}, 30)
	assert.False(t, ok)

	got, ok := sel.Pick([]combat.Target{
		{ID: "far", Hostile: true, Distance: 50},
		{ID: "near", Hostile: true, Distance: 20},
	}, 30)
	require.True(t, ok)
	assert.Equal(t, "near", got.ID)
}

func TestSelector_Pick_PrefersWeakerCloserThreatening(t *testing.T) {
	sel := newSelector()
	got, ok := sel.Pick([]combat.Target{
		{ID: "tank", Hostile: true, Distance: 10, HealthPct: 100, ThreatWeight: 0.2},
		{ID: "wounded", Hostile: true, Distance: 10, HealthPct: 20, ThreatWeight: 0.2},
	}, 30)
	require.True(t, ok)
	assert.Equal(t, "wounded", got.ID)
}

func TestSelector_Pick_TieBreaksByDistance(t *testing.T) {
	// Identical scores except the distance term: not a true score tie. Make
	// scores exactly equal and distances differ is impossible with a
	// distance term, so zero out the distance weight.
	sel := combat.NewSelector(combat.SelectorWeights{Health: 1})
	got, ok := sel.Pick([]combat.Target{
		{ID: "far", Hostile: true, Distance: 25, HealthPct: 50},
		{ID: "near", Hostile: true, Distance: 5, HealthPct: 50},
	}, 30)
	require.True(t, ok)
	assert.Equal(t, "near", got.ID)
}

func TestSelector_Pick_TieBreaksByLastSeen(t *testing.T) {
	sel := newSelector()
	early := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	got, ok := sel.Pick([]combat.Target{
		{ID: "newer", Hostile: true, Distance: 10, HealthPct: 50, LastSeen: late},
		{ID: "older", Hostile: true, Distance: 10, HealthPct: 50, LastSeen: early},
	}, 30)
	require.True(t, ok)
	assert.Equal(t, "older", got.ID)
}

func TestSelector_Pick_Deterministic(t *testing.T) {
	sel := newSelector()
	candidates := []combat.Target{
		{ID: "a", Hostile: true, Distance: 12, HealthPct: 80, ThreatWeight: 0.3},
		{ID: "b", Hostile: true, Distance: 8, HealthPct: 90, ThreatWeight: 0.5},
		{ID: "c", Hostile: true, Distance: 20, HealthPct: 30, ThreatWeight: 0.1},
	}

	first, ok := sel.Pick(candidates, 30)
	require.True(t, ok)
	for i := 0; i < 100; i++ {
		again, ok := sel.Pick(candidates, 30)
		require.True(t, ok)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestSelector_Score_Monotonicity(t *testing.T) {
	sel := newSelector()
	base := combat.Target{Distance: 10, HealthPct: 50, ThreatWeight: 0.5}

	further := base
	further.Distance = 20
	assert.Less(t, sel.Score(further), sel.Score(base))

	healthier := base
	healthier.HealthPct = 90
	assert.Less(t, sel.Score(healthier), sel.Score(base))

	scarier := base
	scarier.ThreatWeight = 0.9
	assert.Greater(t, sel.Score(scarier), sel.Score(base))
}

func TestSelector_Pick_Empty(t *testing.T) {
	sel := newSelector()
	_, ok := sel.Pick(nil, 30)
	assert.False(t, ok)
}
