package sim_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/sim"
)

const scenarioYAML = `
scenario:
  name: two-frame
  actuator:
    fail_every_n: 3
    latency: 5ms
    damage_per_hit: 7
  frames:
    - tick: 0
      self_health_pct: 100
      resource: 100
      targets: []
    - tick: 10
      self_health_pct: 80
      resource: 90
      targets:
        - id: gnoll-1
          name: Gnoll
          health_pct: 100
          distance: 12
          hostile: true
          threat: 0.5
`

func TestLoadScenarioFromBytes(t *testing.T) {
	s, err := sim.LoadScenarioFromBytes([]byte(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "two-frame", s.Name)
	require.Len(t, s.Frames, 2)
	assert.Equal(t, 3, s.Actuator.FailEveryN)
	assert.Equal(t, 5*time.Millisecond, s.Actuator.Latency)
	assert.Equal(t, 7, s.Actuator.DamagePerHit)
}

func TestLoadScenarioFromBytes_Rejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing top-level key", `frames: []`},
		{"empty name", `
scenario:
  frames:
    - tick: 0
      self_health_pct: 100
`},
		{"no frames", `
scenario:
  name: x
  frames: []
`},
		{"first frame not tick zero", `
scenario:
  name: x
  frames:
    - tick: 5
      self_health_pct: 100
`},
		{"non-increasing ticks", `
scenario:
  name: x
  frames:
    - tick: 0
      self_health_pct: 100
    - tick: 0
      self_health_pct: 90
`},
		{"health out of range", `
scenario:
  name: x
  frames:
    - tick: 0
      self_health_pct: 140
`},
		{"bad latency", `
scenario:
  name: x
  actuator:
    latency: soon
  frames:
    - tick: 0
      self_health_pct: 100
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sim.LoadScenarioFromBytes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))

	s, err := sim.LoadScenarioFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two-frame", s.Name)

	_, err = sim.LoadScenarioFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
