// Package combat implements the per-tick combat decision engine: cooldown
// bookkeeping, target selection, the combat state machine, the action
// scheduler, and the orchestrating Engine. The engine decides which single
// ability to use each tick; how targets are sensed and how abilities are
// physically triggered belong to the Perception and Actuator collaborators.
package combat

import (
	"context"
	"time"
)

// Target is one sensed engagement candidate. Ephemeral: recomputed each
// tick with no identity guarantee beyond that tick.
type Target struct {
	// ID identifies the target within this tick's snapshot.
	ID string
	// Name is the display name, informational only.
	Name string
	// HealthPct is the target's health in [0, 100].
	HealthPct float64
	// Distance is the distance from self to the target.
	Distance float64
	// Hostile marks the target as attackable.
	Hostile bool
	// ThreatWeight biases target scoring; 0 for neutral threat.
	ThreatWeight float64
	// LastSeen is when perception last observed the target.
	LastSeen time.Time
}

// SelfState is the perception snapshot of the acting character.
type SelfState struct {
	// HealthPct is self health in [0, 100].
	HealthPct float64
	// Resource is the current resource pool (mana, energy) spent by skills.
	Resource float64
	// HostilePresent reports whether any hostile is sensed, even out of range.
	HostilePresent bool
}

// Perception senses targets and self status. Implementations publish
// immutable snapshots; the engine reads them only at tick start.
type Perception interface {
	// DetectCombatState returns the current self snapshot.
	DetectCombatState(ctx context.Context) (SelfState, error)
	// ListTargets returns this tick's target candidates.
	ListTargets(ctx context.Context) ([]Target, error)
}

// ExecuteResult is the actuator's report for one skill dispatch.
type ExecuteResult struct {
	// Success reports whether the ability fired in the game world.
	Success bool
	// Damage is the observed damage, 0 if unobserved.
	Damage int
}

// Actuator performs the chosen ability in the game world. Calls are bounded
// by the context deadline the engine supplies; a slow actuator must not
// stall future ticks.
type Actuator interface {
	ExecuteSkill(ctx context.Context, skillName, targetID string) (ExecuteResult, error)
}
