package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/profile"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

var (
	shot = &skill.Skill{Name: "Shot", Cooldown: 2 * time.Second, Priority: skill.PriorityNormal, DamageMin: 8, DamageMax: 14, MaxRange: 30}
	bash = &skill.Skill{Name: "Bash", Cooldown: 1 * time.Second, Priority: skill.PriorityLow, DamageMin: 3, DamageMax: 6, MaxRange: 5}
	heal = &skill.Skill{Name: "Heal", Cooldown: 5 * time.Second, Priority: skill.PriorityEmergency,
		Conditions: []skill.ActivationCondition{{Kind: skill.CondSelfHealthBelow, Value: 50}}}
)

// testProfile builds a ranged profile with Shot/Bash rotation, Heal
// emergency, and Bash fallback.
func testProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p := &profile.Profile{
		Name:                   "ranged",
		Rotation:               []*skill.Skill{shot, bash},
		Emergency:              []*skill.Skill{heal},
		Fallback:               bash,
		EmergencyThresholdPct:  20,
		EmergencyHysteresisPct: 10,
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	got, err := store.Get("ranged")
	require.NoError(t, err)
	return got
}

func newScheduler(tr *combat.CooldownTracker, policy combat.CooldownPolicy, conds combat.ConditionEvaluator) *combat.Scheduler {
	return combat.NewScheduler(tr, policy, conds, zap.NewNop())
}

func closeTarget() *combat.Target {
	return &combat.Target{ID: "gnoll-1", Hostile: true, Distance: 3, HealthPct: 80}
}

func TestScheduler_PicksHighestPriorityAvailable(t *testing.T) {
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sk, ok := s.Select(combat.StateEngaged, prof, closeTarget(), combat.SelfState{HealthPct: 100, Resource: 100}, now)
	require.True(t, ok)
	assert.Equal(t, "Shot", sk.Name)
}

func TestScheduler_CooldownFallsThroughToNext(t *testing.T) {
	// Shot used at t=0 with a 2s cooldown: the t=1s tick must pick Bash,
	// and the t=2s tick picks Shot again.
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 100, Resource: 100}

	sk, ok := s.Select(combat.StateEngaged, prof, closeTarget(), self, t0)
	require.True(t, ok)
	assert.Equal(t, "Shot", sk.Name)

	sk, ok = s.Select(combat.StateEngaged, prof, closeTarget(), self, t0.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "Bash", sk.Name)

	sk, ok = s.Select(combat.StateEngaged, prof, closeTarget(), self, t0.Add(2*time.Second))
	require.True(t, ok)
	assert.Equal(t, "Shot", sk.Name)
}

func TestScheduler_AllOnCooldownIsExplicitNoOp(t *testing.T) {
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 100, Resource: 100}

	tr.MarkUsed("Shot", now, time.Minute)
	tr.MarkUsed("Bash", now, time.Minute)

	_, ok := s.Select(combat.StateEngaged, prof, closeTarget(), self, now)
	assert.False(t, ok)
}

func TestScheduler_RangeGating(t *testing.T) {
	// Target at distance 10: Bash (range 5) unusable, Shot (range 30) fine.
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 100, Resource: 100}
	far := &combat.Target{ID: "gnoll-1", Hostile: true, Distance: 10, HealthPct: 80}

	sk, ok := s.Select(combat.StateEngaged, prof, far, self, now)
	require.True(t, ok)
	assert.Equal(t, "Shot", sk.Name)

	// Shot now on cooldown; Bash is out of range and the fallback (Bash)
	// is equally out of range, so the tick is a no-op.
	_, ok = s.Select(combat.StateEngaged, prof, far, self, now.Add(time.Second))
	assert.False(t, ok)
}

func TestScheduler_EmergencyScansDeclaredOrder(t *testing.T) {
	second := &skill.Skill{Name: "SecondWind", Cooldown: 30 * time.Second, Priority: skill.PriorityEmergency}
	p := &profile.Profile{
		Name:      "defensive",
		Rotation:  []*skill.Skill{shot},
		Emergency: []*skill.Skill{second, heal},
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	prof, err := store.Get("defensive")
	require.NoError(t, err)

	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 15, Resource: 100}

	sk, ok := s.Select(combat.StateEmergency, prof, closeTarget(), self, now)
	require.True(t, ok)
	assert.Equal(t, "SecondWind", sk.Name)

	// SecondWind on cooldown: next emergency tick takes Heal.
	sk, ok = s.Select(combat.StateEmergency, prof, closeTarget(), self, now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "Heal", sk.Name)
}

func TestScheduler_EmergencySelfTargetedNeedsNoTarget(t *testing.T) {
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sk, ok := s.Select(combat.StateEmergency, prof, nil, combat.SelfState{HealthPct: 15, Resource: 100}, now)
	require.True(t, ok)
	assert.Equal(t, "Heal", sk.Name)
}

func TestScheduler_FallbackWhenRotationExhausted(t *testing.T) {
	fast := &skill.Skill{Name: "Jab", Cooldown: 500 * time.Millisecond, Priority: skill.PriorityFiller, MaxRange: 5}
	p := &profile.Profile{
		Name:     "brawler",
		Rotation: []*skill.Skill{shot},
		Fallback: fast,
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	prof, err := store.Get("brawler")
	require.NoError(t, err)

	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 100, Resource: 100}
	tr.MarkUsed("Shot", now, time.Minute)

	sk, ok := s.Select(combat.StateEngaged, prof, closeTarget(), self, now)
	require.True(t, ok)
	assert.Equal(t, "Jab", sk.Name)
}

func TestScheduler_ResourceGating(t *testing.T) {
	pricey := &skill.Skill{Name: "Cleave", Cooldown: 6 * time.Second, Priority: skill.PriorityHigh, ResourceCost: 20, MaxRange: 5}
	p := &profile.Profile{
		Name:     "brawler",
		Rotation: []*skill.Skill{pricey, bash},
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	prof, err := store.Get("brawler")
	require.NoError(t, err)

	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sk, ok := s.Select(combat.StateEngaged, prof, closeTarget(), combat.SelfState{HealthPct: 100, Resource: 10}, now)
	require.True(t, ok)
	assert.Equal(t, "Bash", sk.Name)

	sk, ok = s.Select(combat.StateEngaged, prof, closeTarget(), combat.SelfState{HealthPct: 100, Resource: 50}, now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "Cleave", sk.Name)
}

func TestScheduler_TargetHealthCondition(t *testing.T) {
	execute := &skill.Skill{Name: "Execute", Cooldown: 10 * time.Second, Priority: skill.PriorityHigh, MaxRange: 5,
		Conditions: []skill.ActivationCondition{{Kind: skill.CondTargetHealthBelow, Value: 25}}}
	p := &profile.Profile{
		Name:     "brawler",
		Rotation: []*skill.Skill{execute, bash},
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	prof, err := store.Get("brawler")
	require.NoError(t, err)

	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 100, Resource: 100}

	healthy := &combat.Target{ID: "gnoll-1", Hostile: true, Distance: 3, HealthPct: 80}
	sk, ok := s.Select(combat.StateEngaged, prof, healthy, self, now)
	require.True(t, ok)
	assert.Equal(t, "Bash", sk.Name)

	dying := &combat.Target{ID: "gnoll-1", Hostile: true, Distance: 3, HealthPct: 10}
	sk, ok = s.Select(combat.StateEngaged, prof, dying, self, now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "Execute", sk.Name)
}

func TestScheduler_ScriptConditionFailsClosedWithoutEvaluator(t *testing.T) {
	scripted := &skill.Skill{Name: "Fortify", Cooldown: 12 * time.Second, Priority: skill.PriorityHigh,
		Conditions: []skill.ActivationCondition{{Kind: skill.CondScript, Hook: "should_fortify"}}}
	p := &profile.Profile{
		Name:     "brawler",
		Rotation: []*skill.Skill{scripted, bash},
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	prof, err := store.Get("brawler")
	require.NoError(t, err)

	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sk, ok := s.Select(combat.StateEngaged, prof, closeTarget(), combat.SelfState{HealthPct: 100, Resource: 100}, now)
	require.True(t, ok)
	assert.Equal(t, "Bash", sk.Name)
}

// stubEvaluator records the snapshots it saw and returns a fixed verdict.
type stubEvaluator struct {
	verdict bool
	calls   []combat.ConditionSnapshot
}

func (s *stubEvaluator) EvaluateScript(profileName, hook string, snap combat.ConditionSnapshot) bool {
	s.calls = append(s.calls, snap)
	return s.verdict
}

func TestScheduler_ScriptConditionSnapshot(t *testing.T) {
	scripted := &skill.Skill{Name: "Fortify", Cooldown: 12 * time.Second, Priority: skill.PriorityHigh,
		Conditions: []skill.ActivationCondition{{Kind: skill.CondScript, Hook: "should_fortify"}}}
	p := &profile.Profile{
		Name:     "brawler",
		Rotation: []*skill.Skill{scripted},
	}
	store, err := profile.NewStore(p)
	require.NoError(t, err)
	prof, err := store.Get("brawler")
	require.NoError(t, err)

	eval := &stubEvaluator{verdict: true}
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, eval)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tgt := &combat.Target{ID: "gnoll-1", Hostile: true, Distance: 3, HealthPct: 42}
	sk, ok := s.Select(combat.StateEngaged, prof, tgt, combat.SelfState{HealthPct: 55, Resource: 70}, now)
	require.True(t, ok)
	assert.Equal(t, "Fortify", sk.Name)

	require.Len(t, eval.calls, 1)
	snap := eval.calls[0]
	assert.Equal(t, 55.0, snap.SelfHealthPct)
	assert.Equal(t, 70.0, snap.Resource)
	assert.Equal(t, "gnoll-1", snap.TargetID)
	assert.Equal(t, 42.0, snap.TargetHealthPct)
	assert.Equal(t, "engaged", snap.State)
}

func TestScheduler_CommitOnSelectReservesBeforeDispatch(t *testing.T) {
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, ok := s.Select(combat.StateEngaged, prof, closeTarget(), combat.SelfState{HealthPct: 100, Resource: 100}, now)
	require.True(t, ok)

	// Reserved at selection: unavailable even though nothing dispatched yet.
	assert.False(t, tr.IsAvailable("Shot", now))
	ready, _ := tr.ReadyAt("Shot")
	assert.Equal(t, now.Add(2*time.Second), ready)
}

func TestScheduler_CommitOnSuccessDefersToConfirm(t *testing.T) {
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSuccess, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sk, ok := s.Select(combat.StateEngaged, prof, closeTarget(), combat.SelfState{HealthPct: 100, Resource: 100}, now)
	require.True(t, ok)
	assert.True(t, tr.IsAvailable("Shot", now), "no reservation under confirm policy")

	s.ConfirmSuccess(sk, now)
	assert.False(t, tr.IsAvailable("Shot", now))
}

func TestScheduler_IdleAndSeekingSelectNothing(t *testing.T) {
	prof := testProfile(t)
	tr := combat.NewCooldownTracker()
	s := newScheduler(tr, combat.CommitOnSelect, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	self := combat.SelfState{HealthPct: 100, Resource: 100}

	_, ok := s.Select(combat.StateIdle, prof, nil, self, now)
	assert.False(t, ok)
	_, ok = s.Select(combat.StateSeeking, prof, nil, self, now)
	assert.False(t, ok)
}

func TestParseCooldownPolicy(t *testing.T) {
	p, err := combat.ParseCooldownPolicy("reserve")
	require.NoError(t, err)
	assert.Equal(t, combat.CommitOnSelect, p)

	p, err = combat.ParseCooldownPolicy("CONFIRM")
	require.NoError(t, err)
	assert.Equal(t, combat.CommitOnSuccess, p)

	_, err = combat.ParseCooldownPolicy("optimistic")
	assert.Error(t, err)
}
