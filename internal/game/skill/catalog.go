package skill

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrDuplicateSkill is returned when a catalog source defines the same skill
// name more than once.
var ErrDuplicateSkill = errors.New("duplicate skill name")

// NotFoundError is returned by Catalog.Get for unknown skill names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("skill %q not found in catalog", e.Name)
}

// Catalog is an immutable, validated set of skills keyed by name.
// Safe to share across engines without synchronization once loaded.
type Catalog struct {
	skills map[string]*Skill
	names  []string // load order, for stable iteration
}

// Get returns the named skill.
//
// Postcondition: Returns the Skill, or a *NotFoundError if the name is unknown.
func (c *Catalog) Get(name string) (*Skill, error) {
	sk, ok := c.skills[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return sk, nil
}

// Has reports whether the catalog defines name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.skills[name]
	return ok
}

// Names returns the skill names in load order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of skills in the catalog.
func (c *Catalog) Len() int { return len(c.names) }

// yamlCatalogFile is the top-level YAML structure for catalog files.
type yamlCatalogFile struct {
	Skills []yamlSkill `yaml:"skills"`
}

// yamlSkill is the YAML representation of a skill.
type yamlSkill struct {
	Name         string          `yaml:"name"`
	Cooldown     string          `yaml:"cooldown"` // Go duration string, e.g. "2s"
	Priority     string          `yaml:"priority"`
	DamageMin    int             `yaml:"damage_min"`
	DamageMax    int             `yaml:"damage_max"`
	ResourceCost int             `yaml:"resource_cost"`
	Range        float64         `yaml:"range"`
	Conditions   []yamlCondition `yaml:"conditions"`
}

// yamlCondition is the YAML representation of an activation condition.
type yamlCondition struct {
	Kind  string  `yaml:"kind"`
	Value float64 `yaml:"value"`
	Hook  string  `yaml:"hook"`
}

// LoadCatalogFromBytes parses and validates a catalog from YAML bytes.
//
// Precondition: data must be valid YAML with a top-level "skills" list.
// Postcondition: Returns a fully validated Catalog, or an error on the first
// malformed field or duplicate name; on error no partial catalog is returned.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var file yamlCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	if len(file.Skills) == 0 {
		return nil, fmt.Errorf("catalog defines no skills")
	}

	cat := &Catalog{skills: make(map[string]*Skill, len(file.Skills))}
	for _, ys := range file.Skills {
		sk, err := convertYAMLSkill(ys)
		if err != nil {
			return nil, err
		}
		if _, dup := cat.skills[sk.Name]; dup {
			return nil, fmt.Errorf("catalog: skill %q: %w", sk.Name, ErrDuplicateSkill)
		}
		cat.skills[sk.Name] = sk
		cat.names = append(cat.names, sk.Name)
	}
	return cat, nil
}

// LoadCatalogFromDir loads all *.yaml files in dir into a single catalog.
// Duplicate names across files are rejected the same as within one file.
//
// Precondition: dir must be a readable directory containing at least one
// catalog YAML file.
// Postcondition: Returns the merged validated Catalog or the first error.
func LoadCatalogFromDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
	}

	merged := &Catalog{skills: make(map[string]*Skill)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		cat, err := LoadCatalogFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		for _, name := range cat.names {
			if _, dup := merged.skills[name]; dup {
				return nil, fmt.Errorf("catalog: skill %q (from %s): %w", name, entry.Name(), ErrDuplicateSkill)
			}
			merged.skills[name] = cat.skills[name]
			merged.names = append(merged.names, name)
		}
	}

	if len(merged.names) == 0 {
		return nil, fmt.Errorf("no skill files found in %s", dir)
	}
	return merged, nil
}

// convertYAMLSkill converts the parsed YAML structure into the domain type.
func convertYAMLSkill(ys yamlSkill) (*Skill, error) {
	if ys.Name == "" {
		return nil, fmt.Errorf("catalog: skill with empty name")
	}
	cd, err := time.ParseDuration(ys.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("skill %q: cooldown %q is not a valid duration: %w", ys.Name, ys.Cooldown, err)
	}
	prio, err := ParsePriority(ys.Priority)
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", ys.Name, err)
	}

	sk := &Skill{
		Name:         ys.Name,
		Cooldown:     cd,
		Priority:     prio,
		DamageMin:    ys.DamageMin,
		DamageMax:    ys.DamageMax,
		ResourceCost: ys.ResourceCost,
		MaxRange:     ys.Range,
	}
	for _, yc := range ys.Conditions {
		sk.Conditions = append(sk.Conditions, ActivationCondition{
			Kind:  ConditionKind(yc.Kind),
			Value: yc.Value,
			Hook:  yc.Hook,
		})
	}
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	return sk, nil
}
