// Package main is the skirmish combat engine daemon. It loads the skill
// catalog, combat profiles, and a perception scenario, then drives the
// per-tick decision loop until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/profile"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/sim"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "skirmishd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	catalog, err := skill.LoadCatalogFromDir(cfg.Content.SkillsDir)
	if err != nil {
		return fmt.Errorf("loading skill catalog: %w", err)
	}
	logger.Info("skill catalog loaded",
		zap.String("dir", cfg.Content.SkillsDir),
		zap.Int("skills", catalog.Len()),
	)

	profiles, err := profile.LoadStoreFromDir(cfg.Content.ProfilesDir, catalog)
	if err != nil {
		return fmt.Errorf("loading combat profiles: %w", err)
	}
	logger.Info("combat profiles loaded",
		zap.String("dir", cfg.Content.ProfilesDir),
		zap.Strings("profiles", profiles.Names()),
	)

	evaluator, err := loadScripts(cfg, profiles, logger)
	if err != nil {
		return err
	}
	if evaluator != nil {
		defer evaluator.Close()
	}

	if cfg.Content.Scenario == "" {
		return fmt.Errorf("content.scenario must be set: the daemon needs a scenario to drive perception")
	}
	scenario, err := sim.LoadScenarioFromFile(cfg.Content.Scenario)
	if err != nil {
		return fmt.Errorf("loading scenario: %w", err)
	}
	logger.Info("scenario loaded",
		zap.String("name", scenario.Name),
		zap.Int("frames", len(scenario.Frames)),
	)

	policy, err := combat.ParseCooldownPolicy(cfg.Engine.CooldownPolicy)
	if err != nil {
		return fmt.Errorf("parsing cooldown policy: %w", err)
	}

	var conditions combat.ConditionEvaluator
	if evaluator != nil {
		conditions = evaluator
	}

	engine, err := combat.NewEngine(combat.EngineConfig{
		Catalog:        catalog,
		Profiles:       profiles,
		InitialProfile: cfg.Engine.Profile,
		Perception:     sim.NewPerception(scenario, nil),
		Actuator:       sim.NewActuator(scenario.Actuator),
		Logger:         logger,
		Conditions:     conditions,
		Observers:       []combat.Observer{observability.NewLogSink(logger)},
		HistorySize:     cfg.Engine.HistorySize,
		IdleAfterTicks:  cfg.Engine.IdleAfterTicks,
		ActuatorTimeout: cfg.Engine.ActuatorTimeout,
		CooldownPolicy:  policy,
		SelectorWeights: combat.SelectorWeights{
			Distance: cfg.Engine.Selector.DistanceWeight,
			Health:   cfg.Engine.Selector.HealthWeight,
			Threat:   cfg.Engine.Selector.ThreatWeight,
		},
		SummaryEveryTicks: cfg.Engine.SummaryEveryTicks,
	})
	if err != nil {
		return fmt.Errorf("creating combat engine: %w", err)
	}

	lifecycle := server.NewLifecycle(logger)
	ctx := context.Background()

	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		sink := postgres.NewAsyncSink(
			postgres.NewActionStore(pool.DB()),
			engine.ID(),
			engine.ActiveProfile(),
			cfg.Database.SinkBuffer,
			logger,
		)
		engine.AddObserver(sink)
		// Registered before the engine so the engine stops first and the
		// sink drains after the last tick.
		lifecycle.Add("action-sink", sink)
	}

	engineCtx, engineCancel := context.WithCancel(ctx)
	lifecycle.Add("combat-engine", &server.FuncService{
		StartFn: func() error {
			return engine.Run(engineCtx, cfg.Engine.TickInterval)
		},
		StopFn: engineCancel,
	})

	logger.Info("skirmishd starting",
		zap.String("session", engine.ID()),
		zap.String("profile", engine.ActiveProfile()),
		zap.Duration("tick_interval", cfg.Engine.TickInterval),
	)
	return lifecycle.Run(ctx)
}

// loadScripts builds the Lua condition evaluator and loads each profile's
// script directory. Returns nil when scripting is disabled or no profile
// declares scripts.
func loadScripts(cfg config.Config, profiles *profile.Store, logger *zap.Logger) (*scripting.Evaluator, error) {
	if cfg.Content.ScriptsDir == "" {
		return nil, nil
	}

	evaluator := scripting.NewEvaluator(logger)
	loaded := 0
	start := time.Now()
	for _, name := range profiles.Names() {
		p, err := profiles.Get(name)
		if err != nil {
			evaluator.Close()
			return nil, err
		}
		if p.ScriptDir == "" {
			continue
		}
		dir := filepath.Join(cfg.Content.ScriptsDir, p.ScriptDir)
		if err := evaluator.LoadProfile(p.Name, dir, cfg.Content.ScriptInstructionLimit); err != nil {
			evaluator.Close()
			return nil, fmt.Errorf("loading scripts for profile %q: %w", p.Name, err)
		}
		loaded++
	}
	if loaded == 0 {
		evaluator.Close()
		return nil, nil
	}
	logger.Info("condition scripts loaded",
		zap.Int("profiles", loaded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return evaluator, nil
}
