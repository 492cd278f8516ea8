package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// yamlProfileFile is the top-level YAML structure for profile files.
type yamlProfileFile struct {
	Profile yamlProfile `yaml:"profile"`
}

// yamlProfile is the YAML representation of a combat profile.
type yamlProfile struct {
	Name                   string   `yaml:"name"`
	Rotation               []string `yaml:"rotation"`
	Emergency              []string `yaml:"emergency"`
	Fallback               string   `yaml:"fallback"`
	EmergencyThresholdPct  float64  `yaml:"emergency_threshold_pct"`
	EmergencyHysteresisPct float64  `yaml:"emergency_hysteresis_pct"`
	ScriptDir              string   `yaml:"script_dir"`
}

// LoadFromBytes parses a profile from YAML bytes and resolves every skill
// reference against cat.
//
// Precondition: cat must be a loaded catalog.
// Postcondition: Returns a validated Profile with resolved skill pointers,
// or a *ValidationError naming the first missing skill, or a parse error.
func LoadFromBytes(data []byte, cat *skill.Catalog) (*Profile, error) {
	var file yamlProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}
	yp := file.Profile

	p := &Profile{
		Name:                   yp.Name,
		EmergencyThresholdPct:  yp.EmergencyThresholdPct,
		EmergencyHysteresisPct: yp.EmergencyHysteresisPct,
		ScriptDir:              yp.ScriptDir,
	}

	resolve := func(name string) (*skill.Skill, error) {
		sk, err := cat.Get(name)
		if err != nil {
			return nil, &ValidationError{Profile: yp.Name, Skill: name}
		}
		return sk, nil
	}

	for _, name := range yp.Rotation {
		sk, err := resolve(name)
		if err != nil {
			return nil, err
		}
		p.Rotation = append(p.Rotation, sk)
	}
	for _, name := range yp.Emergency {
		sk, err := resolve(name)
		if err != nil {
			return nil, err
		}
		p.Emergency = append(p.Emergency, sk)
	}
	if yp.Fallback != "" {
		sk, err := resolve(yp.Fallback)
		if err != nil {
			return nil, err
		}
		p.Fallback = sk
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.finalize()
	return p, nil
}

// Store holds all loaded profiles keyed by name.
type Store struct {
	profiles map[string]*Profile
}

// NewStore builds a Store from already-resolved profiles, validating and
// finalizing each. For embedders and tests that construct profiles
// programmatically instead of from YAML.
//
// Precondition: every profile's skill pointers must already be resolved.
// Postcondition: Returns a Store with all profiles, or an error on the first
// invalid or duplicate profile.
func NewStore(profiles ...*Profile) (*Store, error) {
	store := &Store{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := store.profiles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		p.finalize()
		store.profiles[p.Name] = p
	}
	if len(store.profiles) == 0 {
		return nil, fmt.Errorf("store must hold at least one profile")
	}
	return store, nil
}

// Get returns the named profile.
//
// Postcondition: Returns the Profile or an error naming the missing profile.
func (s *Store) Get(name string) (*Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// Names returns the loaded profile names in unspecified order.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		out = append(out, name)
	}
	return out
}

// Len returns the number of loaded profiles.
func (s *Store) Len() int { return len(s.profiles) }

// LoadStoreFromDir loads all *.yaml profile files in dir, resolving every
// skill reference against cat.
//
// Precondition: dir must be a readable directory; cat must be loaded.
// Postcondition: Returns a Store with all profiles, or the first load error;
// duplicate profile names are rejected.
func LoadStoreFromDir(dir string, cat *skill.Catalog) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile dir %q: %w", dir, err)
	}

	store := &Store{profiles: make(map[string]*Profile)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		p, err := LoadFromBytes(data, cat)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if _, dup := store.profiles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile name %q (from %s)", p.Name, entry.Name())
		}
		store.profiles[p.Name] = p
	}

	if len(store.profiles) == 0 {
		return nil, fmt.Errorf("no profile files found in %s", dir)
	}
	return store, nil
}
