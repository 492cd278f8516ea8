package sim

import (
	"context"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Perception replays a scenario's frames as perception snapshots. The tick
// cursor advances on each DetectCombatState call; ListTargets reads the same
// frame, matching the engine's snapshot-at-tick-start contract.
//
// Owned by a single engine's tick loop; not safe for concurrent use.
type Perception struct {
	scenario *Scenario
	clock    func() time.Time
	tick     int
	current  *Frame
}

// NewPerception creates a Perception replaying scenario.
//
// Precondition: scenario must have validated. clock may be nil (time.Now).
func NewPerception(scenario *Scenario, clock func() time.Time) *Perception {
	if clock == nil {
		clock = time.Now
	}
	return &Perception{scenario: scenario, clock: clock}
}

// Tick returns how many snapshots have been taken.
func (p *Perception) Tick() int { return p.tick }

// DetectCombatState returns the self snapshot for the current tick and
// advances the cursor.
func (p *Perception) DetectCombatState(ctx context.Context) (combat.SelfState, error) {
	p.current = p.scenario.frameAt(p.tick)
	p.tick++

	hostile := false
	for _, t := range p.current.Targets {
		if t.Hostile {
			hostile = true
			break
		}
	}
	return combat.SelfState{
		HealthPct:      p.current.SelfHealthPct,
		Resource:       p.current.Resource,
		HostilePresent: hostile,
	}, nil
}

// ListTargets returns the current frame's targets.
//
// Precondition: DetectCombatState has been called this tick.
func (p *Perception) ListTargets(ctx context.Context) ([]combat.Target, error) {
	if p.current == nil {
		return nil, nil
	}
	now := p.clock()
	out := make([]combat.Target, 0, len(p.current.Targets))
	for _, t := range p.current.Targets {
		out = append(out, combat.Target{
			ID:           t.ID,
			Name:         t.Name,
			HealthPct:    t.HealthPct,
			Distance:     t.Distance,
			Hostile:      t.Hostile,
			ThreatWeight: t.Threat,
			LastSeen:     now,
		})
	}
	return out, nil
}

// Actuator is a scripted combat.Actuator with configurable latency and
// failure injection.
type Actuator struct {
	spec  ActuatorSpec
	calls int
}

// NewActuator creates an Actuator with the given spec.
func NewActuator(spec ActuatorSpec) *Actuator {
	return &Actuator{spec: spec}
}

// Calls returns how many dispatches have been made.
func (a *Actuator) Calls() int { return a.calls }

// ExecuteSkill simulates one dispatch: waits the configured latency
// (respecting ctx), then reports success unless this call is an injected
// failure.
func (a *Actuator) ExecuteSkill(ctx context.Context, skillName, targetID string) (combat.ExecuteResult, error) {
	a.calls++

	if a.spec.Latency > 0 {
		timer := time.NewTimer(a.spec.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return combat.ExecuteResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	if a.spec.FailEveryN > 0 && a.calls%a.spec.FailEveryN == 0 {
		return combat.ExecuteResult{Success: false}, nil
	}
	return combat.ExecuteResult{Success: true, Damage: a.spec.DamagePerHit}, nil
}
