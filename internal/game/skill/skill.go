// Package skill provides immutable combat ability definitions and the
// catalog they are loaded into. Skills are pure data: nothing in this
// package knows how an ability is sensed or triggered in the game world.
package skill

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders skills within a rotation. Higher values are considered
// first when the scheduler scans a rotation.
type Priority int

const (
	PriorityFiller Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityEmergency
)

// ParsePriority converts a YAML priority string into a Priority.
//
// Precondition: s should be one of "emergency", "high", "normal", "low", "filler"
// (case-insensitive).
// Postcondition: Returns the matching Priority, or an error for unknown values.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "emergency":
		return PriorityEmergency, nil
	case "high":
		return PriorityHigh, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "filler":
		return PriorityFiller, nil
	default:
		return PriorityFiller, fmt.Errorf("unknown priority %q", s)
	}
}

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityEmergency:
		return "emergency"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "filler"
	}
}

// ConditionKind identifies how an activation condition is evaluated.
type ConditionKind string

const (
	// CondSelfHealthBelow passes when self health % is strictly below Value.
	CondSelfHealthBelow ConditionKind = "self_health_below"
	// CondSelfHealthAbove passes when self health % is at or above Value.
	CondSelfHealthAbove ConditionKind = "self_health_above"
	// CondTargetHealthBelow passes when the current target's health % is
	// strictly below Value. Fails when there is no target.
	CondTargetHealthBelow ConditionKind = "target_health_below"
	// CondTargetHealthAbove passes when the current target's health % is at
	// or above Value. Fails when there is no target.
	CondTargetHealthAbove ConditionKind = "target_health_above"
	// CondScript delegates to a Lua predicate named by Hook. Evaluates false
	// when no script evaluator is configured (fail-closed).
	CondScript ConditionKind = "script"
)

// ActivationCondition is one gate a skill must pass before it can be used.
type ActivationCondition struct {
	Kind  ConditionKind
	Value float64 // health percent threshold for the health kinds
	Hook  string  // Lua function name for CondScript
}

// Validate checks the condition's internal consistency.
//
// Postcondition: Returns nil iff Kind is recognised, health kinds carry a
// Value in [0, 100], and CondScript carries a non-empty Hook.
func (c ActivationCondition) Validate() error {
	switch c.Kind {
	case CondSelfHealthBelow, CondSelfHealthAbove, CondTargetHealthBelow, CondTargetHealthAbove:
		if c.Value < 0 || c.Value > 100 {
			return fmt.Errorf("condition %s: value must be in [0, 100], got %v", c.Kind, c.Value)
		}
	case CondScript:
		if c.Hook == "" {
			return fmt.Errorf("condition %s: hook must not be empty", c.Kind)
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// Skill is one combat ability. Immutable after load; safe to share across
// engines without synchronization.
type Skill struct {
	// Name uniquely identifies the skill within a catalog.
	Name string
	// Cooldown is the minimum wait between two uses.
	Cooldown time.Duration
	// Priority orders the skill within a rotation scan.
	Priority Priority
	// DamageMin and DamageMax bound the expected damage per use. Both zero
	// for non-damaging skills.
	DamageMin int
	DamageMax int
	// ResourceCost is deducted from the actor's resource pool per use.
	ResourceCost int
	// MaxRange is the furthest distance at which the skill can reach a
	// target. Zero means the skill is self-targeted and needs no target in
	// range.
	MaxRange float64
	// Conditions must all pass for the skill to be usable this tick.
	Conditions []ActivationCondition
}

// SelfTargeted reports whether the skill needs no engagement target.
func (s *Skill) SelfTargeted() bool {
	return s.MaxRange == 0
}

// Validate checks all field invariants of a loaded skill.
//
// Postcondition: Returns nil iff Name is non-empty, Cooldown >= 0,
// 0 <= DamageMin <= DamageMax, ResourceCost >= 0, MaxRange >= 0, and every
// activation condition validates.
func (s *Skill) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("skill: name must not be empty")
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("skill %q: cooldown must not be negative", s.Name)
	}
	if s.DamageMin < 0 || s.DamageMax < 0 {
		return fmt.Errorf("skill %q: damage bounds must not be negative", s.Name)
	}
	if s.DamageMin > s.DamageMax {
		return fmt.Errorf("skill %q: damage_min %d exceeds damage_max %d", s.Name, s.DamageMin, s.DamageMax)
	}
	if s.ResourceCost < 0 {
		return fmt.Errorf("skill %q: resource_cost must not be negative", s.Name)
	}
	if s.MaxRange < 0 {
		return fmt.Errorf("skill %q: range must not be negative", s.Name)
	}
	for _, c := range s.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("skill %q: %w", s.Name, err)
		}
	}
	return nil
}
