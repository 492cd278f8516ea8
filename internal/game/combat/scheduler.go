package combat

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/profile"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// CooldownPolicy decides when a selected skill's cooldown is committed
// relative to actuator dispatch.
type CooldownPolicy int

const (
	// CommitOnSelect reserves the cooldown at selection time, before the
	// actuator result is awaited. Prevents double-dispatch when the actuator
	// is slow; a failed dispatch still consumes the cooldown.
	CommitOnSelect CooldownPolicy = iota
	// CommitOnSuccess commits the cooldown only after the actuator confirms
	// success. Suits environments where actuator failures are frequent and
	// wasted cooldowns cost more than an occasional re-dispatch.
	CommitOnSuccess
)

// ParseCooldownPolicy converts a config string into a CooldownPolicy.
//
// Postcondition: Returns CommitOnSelect for "reserve", CommitOnSuccess for
// "confirm", or an error for anything else.
func ParseCooldownPolicy(s string) (CooldownPolicy, error) {
	switch strings.ToLower(s) {
	case "reserve":
		return CommitOnSelect, nil
	case "confirm":
		return CommitOnSuccess, nil
	default:
		return CommitOnSelect, fmt.Errorf("unknown cooldown policy %q: must be 'reserve' or 'confirm'", s)
	}
}

// ConditionSnapshot is the per-tick data scripted activation conditions
// evaluate against.
type ConditionSnapshot struct {
	SelfHealthPct   float64
	Resource        float64
	TargetID        string
	TargetHealthPct float64
	TargetDistance  float64
	State           string
}

// ConditionEvaluator evaluates scripted activation conditions. Evaluation
// must be side-effect free and must never panic.
type ConditionEvaluator interface {
	// EvaluateScript returns the boolean result of the named predicate for
	// profileName. Must fail closed: any evaluation problem returns false.
	EvaluateScript(profileName, hook string, snap ConditionSnapshot) bool
}

// Scheduler picks at most one skill per tick. Selection is priority plus
// cooldown based, re-evaluated fresh every tick: a fixed rotation index
// would desynchronize whenever a skill is skipped for cooldown or range.
type Scheduler struct {
	cooldowns  *CooldownTracker
	policy     CooldownPolicy
	conditions ConditionEvaluator // nil = scripted conditions evaluate false
	logger     *zap.Logger
}

// NewScheduler creates a Scheduler committing cooldowns per policy.
//
// Precondition: cooldowns and logger must be non-nil. conditions may be nil
// when no scripting is configured.
func NewScheduler(cooldowns *CooldownTracker, policy CooldownPolicy, conditions ConditionEvaluator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cooldowns:  cooldowns,
		policy:     policy,
		conditions: conditions,
		logger:     logger,
	}
}

// Select picks the skill to use this tick, or (nil, false) for an explicit
// no-op. tgt is nil when no target was acquired.
//
// Order: under emergency the profile's emergency set is scanned in declared
// order; under engagement the rotation is scanned in priority order with
// declaration order breaking ties; if nothing qualified, the fallback is
// tried. Under CommitOnSelect the winning skill's cooldown is committed here,
// before the caller dispatches: a selection is a reservation.
//
// Precondition: prof must be non-nil; st is the state Observe derived this tick.
// Postcondition: At most one skill is returned per call, and never one whose
// cooldown has not expired.
func (s *Scheduler) Select(st State, prof *profile.Profile, tgt *Target, self SelfState, now time.Time) (*skill.Skill, bool) {
	var chosen *skill.Skill

	switch st {
	case StateEmergency:
		for _, sk := range prof.Emergency {
			if s.available(sk, prof, tgt, self, st, now) {
				chosen = sk
				break
			}
		}
	case StateEngaged:
		for _, sk := range prof.RotationByPriority() {
			if s.available(sk, prof, tgt, self, st, now) {
				chosen = sk
				break
			}
		}
	default:
		return nil, false
	}

	if chosen == nil && prof.Fallback != nil && s.available(prof.Fallback, prof, tgt, self, st, now) {
		chosen = prof.Fallback
	}
	if chosen == nil {
		return nil, false
	}

	if s.policy == CommitOnSelect {
		s.cooldowns.MarkUsed(chosen.Name, now, chosen.Cooldown)
	}
	return chosen, true
}

// ConfirmSuccess commits the cooldown after a confirmed dispatch. No-op
// under CommitOnSelect, where the cooldown was already reserved at selection.
func (s *Scheduler) ConfirmSuccess(sk *skill.Skill, now time.Time) {
	if s.policy == CommitOnSuccess {
		s.cooldowns.MarkUsed(sk.Name, now, sk.Cooldown)
	}
}

// available reports whether sk qualifies this tick: off cooldown, target in
// range (self-targeted skills need no target), resource affordable, and all
// activation conditions passing.
func (s *Scheduler) available(sk *skill.Skill, prof *profile.Profile, tgt *Target, self SelfState, st State, now time.Time) bool {
	if !s.cooldowns.IsAvailable(sk.Name, now) {
		return false
	}
	if !sk.SelfTargeted() {
		if tgt == nil || tgt.Distance > sk.MaxRange {
			return false
		}
	}
	if self.Resource < float64(sk.ResourceCost) {
		return false
	}
	for _, cond := range sk.Conditions {
		if !s.evaluate(cond, prof, tgt, self, st) {
			return false
		}
	}
	return true
}

// evaluate checks one activation condition against the tick snapshot.
func (s *Scheduler) evaluate(cond skill.ActivationCondition, prof *profile.Profile, tgt *Target, self SelfState, st State) bool {
	switch cond.Kind {
	case skill.CondSelfHealthBelow:
		return self.HealthPct < cond.Value
	case skill.CondSelfHealthAbove:
		return self.HealthPct >= cond.Value
	case skill.CondTargetHealthBelow:
		return tgt != nil && tgt.HealthPct < cond.Value
	case skill.CondTargetHealthAbove:
		return tgt != nil && tgt.HealthPct >= cond.Value
	case skill.CondScript:
		if s.conditions == nil {
			s.logger.Debug("script condition with no evaluator configured",
				zap.String("hook", cond.Hook),
			)
			return false
		}
		snap := ConditionSnapshot{
			SelfHealthPct: self.HealthPct,
			Resource:      self.Resource,
			State:         st.String(),
		}
		if tgt != nil {
			snap.TargetID = tgt.ID
			snap.TargetHealthPct = tgt.HealthPct
			snap.TargetDistance = tgt.Distance
		}
		return s.conditions.EvaluateScript(prof.Name, cond.Hook, snap)
	default:
		// Unknown kinds are rejected at load time; fail closed if one leaks.
		return false
	}
}
