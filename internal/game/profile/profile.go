// Package profile provides combat profile definitions: the priority-ordered
// rotation, emergency set, and fallback an engine runs against a skill
// catalog. Profiles are validated against the catalog at load time and are
// swappable at runtime.
package profile

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// ValidationError is returned when a profile references a skill the catalog
// does not define. It names the missing skill so load failures are actionable.
type ValidationError struct {
	Profile string
	Skill   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profile %q references unknown skill %q", e.Profile, e.Skill)
}

// Profile is one named combat configuration. Immutable after load.
type Profile struct {
	// Name uniquely identifies the profile within a store.
	Name string
	// Rotation holds the skills considered during normal engagement, in
	// declaration order. Scanning order is byPriority, not this slice.
	Rotation []*skill.Skill
	// Emergency holds the skills considered under the emergency state, in
	// declaration order (scanned as declared, not by priority).
	Emergency []*skill.Skill
	// Fallback is used when nothing else qualifies. Nil if undefined.
	Fallback *skill.Skill
	// EmergencyThresholdPct enters the emergency state when self health %
	// drops strictly below it.
	EmergencyThresholdPct float64
	// EmergencyHysteresisPct is the margin above the threshold self health
	// must recover to before leaving the emergency state.
	EmergencyHysteresisPct float64
	// ScriptDir optionally holds Lua predicates for this profile's scripted
	// activation conditions. Empty means no scripts.
	ScriptDir string

	// byPriority is Rotation sorted by priority descending, stable on
	// declaration order. Precomputed once at load.
	byPriority []*skill.Skill

	// maxRange is the largest MaxRange across all referenced skills.
	maxRange float64
}

// RotationByPriority returns the rotation in scheduler scan order: priority
// descending, declaration order breaking ties. The returned slice is shared
// and must not be mutated.
func (p *Profile) RotationByPriority() []*skill.Skill {
	return p.byPriority
}

// MaxRange returns the largest skill range in the profile. A target further
// away than this can never be engaged by any of the profile's skills.
func (p *Profile) MaxRange() float64 {
	return p.maxRange
}

// finalize computes the derived scan order and range bound.
func (p *Profile) finalize() {
	p.byPriority = make([]*skill.Skill, len(p.Rotation))
	copy(p.byPriority, p.Rotation)
	sort.SliceStable(p.byPriority, func(i, j int) bool {
		return p.byPriority[i].Priority > p.byPriority[j].Priority
	})

	p.maxRange = 0
	for _, sk := range p.allSkills() {
		if sk.MaxRange > p.maxRange {
			p.maxRange = sk.MaxRange
		}
	}
}

// allSkills returns every skill the profile references, rotation first.
func (p *Profile) allSkills() []*skill.Skill {
	out := make([]*skill.Skill, 0, len(p.Rotation)+len(p.Emergency)+1)
	out = append(out, p.Rotation...)
	out = append(out, p.Emergency...)
	if p.Fallback != nil {
		out = append(out, p.Fallback)
	}
	return out
}

// Validate checks profile invariants that do not depend on the catalog.
//
// Postcondition: Returns nil iff Name is non-empty, the rotation is
// non-empty, the emergency threshold is in [0, 100], and the hysteresis
// margin is non-negative.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: name must not be empty")
	}
	if len(p.Rotation) == 0 {
		return fmt.Errorf("profile %q: rotation must not be empty", p.Name)
	}
	if p.EmergencyThresholdPct < 0 || p.EmergencyThresholdPct > 100 {
		return fmt.Errorf("profile %q: emergency_threshold_pct must be in [0, 100], got %v", p.Name, p.EmergencyThresholdPct)
	}
	if p.EmergencyHysteresisPct < 0 {
		return fmt.Errorf("profile %q: emergency_hysteresis_pct must not be negative", p.Name)
	}
	return nil
}
