// Package config provides Viper-based configuration loading for the
// skirmish engine daemon.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EngineConfig holds combat engine tuning.
type EngineConfig struct {
	// TickInterval is the duration between combat cycles.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// IdleAfterTicks is how many consecutive no-hostile ticks return the
	// engine to idle.
	IdleAfterTicks int `mapstructure:"idle_after_ticks"`
	// HistorySize bounds the in-memory action history ring.
	HistorySize int `mapstructure:"history_size"`
	// ActuatorTimeout bounds each skill dispatch.
	ActuatorTimeout time.Duration `mapstructure:"actuator_timeout"`
	// CooldownPolicy is "reserve" (commit on selection) or "confirm"
	// (commit on confirmed success).
	CooldownPolicy string `mapstructure:"cooldown_policy"`
	// Profile is the combat profile activated at startup.
	Profile string `mapstructure:"profile"`
	// SummaryEveryTicks is the summary emission cadence; <0 disables.
	SummaryEveryTicks int `mapstructure:"summary_every_ticks"`
	// Selector holds the target scoring weights.
	Selector SelectorConfig `mapstructure:"selector"`
}

// SelectorConfig holds target scoring weights.
type SelectorConfig struct {
	DistanceWeight float64 `mapstructure:"distance_weight"`
	HealthWeight   float64 `mapstructure:"health_weight"`
	ThreatWeight   float64 `mapstructure:"threat_weight"`
}

// ContentConfig holds paths to the engine's data files.
type ContentConfig struct {
	// SkillsDir holds skill catalog YAML files.
	SkillsDir string `mapstructure:"skills_dir"`
	// ProfilesDir holds combat profile YAML files.
	ProfilesDir string `mapstructure:"profiles_dir"`
	// ScriptsDir is the root for profile Lua condition scripts. Empty
	// disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit caps Lua opcodes per predicate evaluation;
	// 0 uses the scripting package default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// Scenario is the simulator scenario file driving the daemon's
	// perception and actuator.
	Scenario string `mapstructure:"scenario"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds PostgreSQL connection settings for the optional
// action-log store.
type DatabaseConfig struct {
	// Enabled turns the persistent action log on.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// SinkBuffer bounds the async action sink queue.
	SinkBuffer int `mapstructure:"sink_buffer"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Config is the top-level application configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Content  ContentConfig  `mapstructure:"content"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("engine.tick_interval must be positive, got %v", e.TickInterval))
	}
	if e.IdleAfterTicks < 1 {
		errs = append(errs, fmt.Sprintf("engine.idle_after_ticks must be >= 1, got %d", e.IdleAfterTicks))
	}
	if e.HistorySize < 1 {
		errs = append(errs, fmt.Sprintf("engine.history_size must be >= 1, got %d", e.HistorySize))
	}
	if e.ActuatorTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("engine.actuator_timeout must be positive, got %v", e.ActuatorTimeout))
	}
	validPolicies := map[string]bool{"reserve": true, "confirm": true}
	if !validPolicies[e.CooldownPolicy] {
		errs = append(errs, fmt.Sprintf("engine.cooldown_policy must be one of [reserve, confirm], got %q", e.CooldownPolicy))
	}
	if e.Profile == "" {
		errs = append(errs, "engine.profile must not be empty")
	}
	if e.Selector.DistanceWeight < 0 || e.Selector.HealthWeight < 0 || e.Selector.ThreatWeight < 0 {
		errs = append(errs, "engine.selector weights must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.SkillsDir == "" {
		errs = append(errs, "content.skills_dir must not be empty")
	}
	if c.ProfilesDir == "" {
		errs = append(errs, "content.profiles_dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if d.SinkBuffer < 1 {
		errs = append(errs, fmt.Sprintf("database.sink_buffer must be >= 1, got %d", d.SinkBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.tick_interval", "100ms")
	v.SetDefault("engine.idle_after_ticks", 5)
	v.SetDefault("engine.history_size", 500)
	v.SetDefault("engine.actuator_timeout", "2s")
	v.SetDefault("engine.cooldown_policy", "reserve")
	v.SetDefault("engine.summary_every_ticks", 100)
	v.SetDefault("engine.selector.distance_weight", 0.5)
	v.SetDefault("engine.selector.health_weight", 0.3)
	v.SetDefault("engine.selector.threat_weight", 0.2)

	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.profiles_dir", "content/profiles")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.script_instruction_limit", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.sink_buffer", 256)
}
