// Package sim provides a scenario-driven Perception and Actuator pair so
// the engine can run end-to-end without a live game behind it. Scenarios
// are YAML timelines of what perception reports per tick, plus actuator
// failure injection.
package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// TargetSpec is one sensed target within a frame.
type TargetSpec struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	HealthPct float64 `yaml:"health_pct"`
	Distance  float64 `yaml:"distance"`
	Hostile   bool    `yaml:"hostile"`
	Threat    float64 `yaml:"threat"`
}

// Frame is what perception reports from a given tick onward, until the next
// frame takes over.
type Frame struct {
	// Tick is the zero-based tick index this frame applies from.
	Tick int `yaml:"tick"`
	// SelfHealthPct is self health in [0, 100].
	SelfHealthPct float64 `yaml:"self_health_pct"`
	// Resource is the self resource pool.
	Resource float64 `yaml:"resource"`
	// Targets are this frame's candidates. Hostile presence is derived
	// from them.
	Targets []TargetSpec `yaml:"targets"`
}

// ActuatorSpec configures the scripted actuator.
type ActuatorSpec struct {
	// FailEveryN makes every Nth dispatch report failure; 0 disables.
	FailEveryN int `yaml:"fail_every_n"`
	// Latency is simulated per-dispatch latency.
	Latency time.Duration `yaml:"-"`
	// DamagePerHit is the observed damage reported on success; 0 lets the
	// engine estimate from the skill's damage bounds.
	DamagePerHit int `yaml:"damage_per_hit"`
}

// UnmarshalYAML decodes the actuator settings with latency as a Go duration
// string, e.g. "5ms".
func (a *ActuatorSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		FailEveryN   int    `yaml:"fail_every_n"`
		Latency      string `yaml:"latency"`
		DamagePerHit int    `yaml:"damage_per_hit"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	a.FailEveryN = raw.FailEveryN
	a.DamagePerHit = raw.DamagePerHit
	a.Latency = 0
	if raw.Latency != "" {
		d, err := time.ParseDuration(raw.Latency)
		if err != nil {
			return fmt.Errorf("actuator latency %q is not a valid duration: %w", raw.Latency, err)
		}
		a.Latency = d
	}
	return nil
}

// Scenario is a full simulation timeline.
type Scenario struct {
	Name     string       `yaml:"name"`
	Frames   []Frame      `yaml:"frames"`
	Actuator ActuatorSpec `yaml:"actuator"`
}

// yamlScenarioFile wraps the YAML top-level key.
type yamlScenarioFile struct {
	Scenario *Scenario `yaml:"scenario"`
}

// Validate checks scenario invariants.
//
// Postcondition: Returns nil iff the name is non-empty, at least one frame
// exists, the first frame applies from tick 0, frame ticks strictly
// increase, and all health percentages are in [0, 100].
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario: name must not be empty")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("scenario %q: must have at least one frame", s.Name)
	}
	if s.Frames[0].Tick != 0 {
		return fmt.Errorf("scenario %q: first frame must apply from tick 0, got %d", s.Name, s.Frames[0].Tick)
	}
	for i, f := range s.Frames {
		if i > 0 && f.Tick <= s.Frames[i-1].Tick {
			return fmt.Errorf("scenario %q: frame ticks must strictly increase (frame %d)", s.Name, i)
		}
		if f.SelfHealthPct < 0 || f.SelfHealthPct > 100 {
			return fmt.Errorf("scenario %q frame %d: self_health_pct must be in [0, 100], got %v", s.Name, i, f.SelfHealthPct)
		}
		for _, t := range f.Targets {
			if t.ID == "" {
				return fmt.Errorf("scenario %q frame %d: target with empty id", s.Name, i)
			}
			if t.HealthPct < 0 || t.HealthPct > 100 {
				return fmt.Errorf("scenario %q frame %d target %q: health_pct must be in [0, 100], got %v", s.Name, i, t.ID, t.HealthPct)
			}
			if t.Distance < 0 {
				return fmt.Errorf("scenario %q frame %d target %q: distance must not be negative", s.Name, i, t.ID)
			}
		}
	}
	if s.Actuator.FailEveryN < 0 {
		return fmt.Errorf("scenario %q: actuator.fail_every_n must be >= 0", s.Name)
	}
	if s.Actuator.Latency < 0 {
		return fmt.Errorf("scenario %q: actuator.latency must not be negative", s.Name)
	}
	return nil
}

// frameAt returns the frame in effect at tick.
//
// Precondition: the scenario has validated, so frame 0 applies from tick 0.
func (s *Scenario) frameAt(tick int) *Frame {
	idx := sort.Search(len(s.Frames), func(i int) bool {
		return s.Frames[i].Tick > tick
	}) - 1
	return &s.Frames[idx]
}

// LoadScenarioFromBytes parses and validates a scenario from YAML bytes.
//
// Precondition: data must be valid YAML with a top-level "scenario" key.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadScenarioFromBytes(data []byte) (*Scenario, error) {
	var file yamlScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if file.Scenario == nil {
		return nil, fmt.Errorf("scenario file missing top-level 'scenario' key")
	}
	if err := file.Scenario.Validate(); err != nil {
		return nil, err
	}
	return file.Scenario, nil
}

// LoadScenarioFromFile reads and validates a single scenario YAML file.
//
// Precondition: path must point to a valid scenario file.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	return LoadScenarioFromBytes(data)
}
