package combat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/profile"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Engine defaults, applied by NewEngine when the corresponding EngineConfig
// field is zero.
const (
	DefaultHistorySize       = 500
	DefaultIdleAfterTicks    = 5
	DefaultActuatorTimeout   = 2 * time.Second
	DefaultSummaryEveryTicks = 100
)

// EngineConfig assembles an Engine's collaborators and tuning knobs.
type EngineConfig struct {
	// Catalog is the loaded skill catalog. Required.
	Catalog *skill.Catalog
	// Profiles holds the loadable combat profiles. Required.
	Profiles *profile.Store
	// InitialProfile is the profile activated at construction. Required.
	InitialProfile string
	// Perception senses targets and self status. Required.
	Perception Perception
	// Actuator performs chosen abilities. Required.
	Actuator Actuator
	// Logger receives engine logging. Required.
	Logger *zap.Logger

	// Conditions evaluates scripted activation conditions. Optional; nil
	// makes script conditions evaluate false.
	Conditions ConditionEvaluator
	// Observers receive action events and summaries. Optional.
	Observers []Observer
	// DamageSource seeds damage estimation. Defaults to crypto randomness.
	DamageSource dice.Source
	// Clock supplies tick timestamps. Defaults to time.Now; injectable for tests.
	Clock func() time.Time

	// HistorySize bounds the action history ring. Default 500.
	HistorySize int
	// IdleAfterTicks is the no-hostile hysteresis before returning to idle.
	// Default 5.
	IdleAfterTicks int
	// ActuatorTimeout bounds each dispatch. Default 2s.
	ActuatorTimeout time.Duration
	// CooldownPolicy decides when cooldowns commit. Default CommitOnSelect.
	CooldownPolicy CooldownPolicy
	// SelectorWeights tune target scoring. Zero value uses the defaults.
	SelectorWeights SelectorWeights
	// SummaryEveryTicks is how often Run emits a Summary to observers.
	// Default 100; negative disables.
	SummaryEveryTicks int
}

// Engine orchestrates one character's combat automation. Each instance is
// owned by its caller; multiple engines may share a catalog but nothing else.
//
// Invariant: exactly one tick is in flight at a time. All mutable state
// (cooldowns, active profile, history, counters) is touched only from
// ExecuteCombatCycle, so the engine needs no locks.
type Engine struct {
	id        string
	catalog   *skill.Catalog
	profiles  *profile.Store
	active    *profile.Profile
	cooldowns *CooldownTracker
	selector  *Selector
	machine   *StateMachine
	scheduler *Scheduler

	perception Perception
	actuator   Actuator
	observers  []Observer

	history *History
	damage  dice.Source
	clock   func() time.Time
	logger  *zap.Logger

	actuatorTimeout time.Duration
	summaryEvery    int

	ticks      int
	noOps      int
	dispatched int
	succeeded  int
	skillCount map[string]int
}

// NewEngine validates cfg, activates the initial profile, and returns a
// ready engine.
//
// Precondition: Catalog, Profiles, Perception, Actuator, and Logger must be
// set; InitialProfile must name a loaded profile.
// Postcondition: Returns an engine in StateIdle with empty cooldowns and
// history, or a non-nil error.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("combat.NewEngine: Catalog must not be nil")
	case cfg.Profiles == nil:
		return nil, fmt.Errorf("combat.NewEngine: Profiles must not be nil")
	case cfg.Perception == nil:
		return nil, fmt.Errorf("combat.NewEngine: Perception must not be nil")
	case cfg.Actuator == nil:
		return nil, fmt.Errorf("combat.NewEngine: Actuator must not be nil")
	case cfg.Logger == nil:
		return nil, fmt.Errorf("combat.NewEngine: Logger must not be nil")
	}

	active, err := cfg.Profiles.Get(cfg.InitialProfile)
	if err != nil {
		return nil, fmt.Errorf("combat.NewEngine: initial profile: %w", err)
	}

	if cfg.HistorySize == 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.IdleAfterTicks == 0 {
		cfg.IdleAfterTicks = DefaultIdleAfterTicks
	}
	if cfg.ActuatorTimeout == 0 {
		cfg.ActuatorTimeout = DefaultActuatorTimeout
	}
	if cfg.SummaryEveryTicks == 0 {
		cfg.SummaryEveryTicks = DefaultSummaryEveryTicks
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.DamageSource == nil {
		cfg.DamageSource = dice.NewCryptoSource()
	}
	if cfg.SelectorWeights == (SelectorWeights{}) {
		cfg.SelectorWeights = DefaultSelectorWeights()
	}

	cooldowns := NewCooldownTracker()
	e := &Engine{
		id:              uuid.NewString(),
		catalog:         cfg.Catalog,
		profiles:        cfg.Profiles,
		active:          active,
		cooldowns:       cooldowns,
		selector:        NewSelector(cfg.SelectorWeights),
		machine:         NewStateMachine(cfg.IdleAfterTicks),
		scheduler:       NewScheduler(cooldowns, cfg.CooldownPolicy, cfg.Conditions, cfg.Logger),
		perception:      cfg.Perception,
		actuator:        cfg.Actuator,
		observers:       cfg.Observers,
		history:         NewHistory(cfg.HistorySize),
		damage:          cfg.DamageSource,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		actuatorTimeout: cfg.ActuatorTimeout,
		summaryEvery:    cfg.SummaryEveryTicks,
		skillCount:      make(map[string]int),
	}
	return e, nil
}

// ID returns the engine's session identifier.
func (e *Engine) ID() string { return e.id }

// ActiveProfile returns the name of the profile currently in use.
func (e *Engine) ActiveProfile() string { return e.active.Name }

// State returns the combat state of the most recent tick.
func (e *Engine) State() State { return e.machine.State() }

// Cooldowns returns the engine's tracker. Read-mutate only from the tick
// loop's goroutine.
func (e *Engine) Cooldowns() *CooldownTracker { return e.cooldowns }

// History returns up to n most recent dispatched actions, oldest first.
func (e *Engine) History(n int) []Action { return e.history.Recent(n) }

// AddObserver registers an additional observer. Not safe to call once Run
// has started; intended for observers that need the session ID, which only
// exists after construction.
func (e *Engine) AddObserver(obs Observer) {
	e.observers = append(e.observers, obs)
}

// LoadCombatProfile swaps the active profile. Cooldown entries persist: a
// skill shared between the old and new profile keeps its ready-at timestamp.
//
// Postcondition: On error the previous profile stays active.
func (e *Engine) LoadCombatProfile(name string) error {
	p, err := e.profiles.Get(name)
	if err != nil {
		return err
	}
	old := e.active.Name
	e.active = p
	e.logger.Info("combat profile swapped",
		zap.String("session", e.id),
		zap.String("from", old),
		zap.String("to", p.Name),
	)
	return nil
}

// ResetCooldowns clears all cooldown entries. The only path that ever
// removes entries.
func (e *Engine) ResetCooldowns() {
	e.cooldowns.Reset()
}

// ExecuteCombatCycle runs one tick: perception snapshot, state derivation,
// target selection, scheduling, dispatch, and bookkeeping. It never returns
// an error and never panics; per-tick failures degrade to a no-op marker and
// are retried next tick.
//
// Postcondition: At most one skill was dispatched; the returned Action is
// either the dispatched action (recorded in history) or a no-op marker
// (not recorded).
func (e *Engine) ExecuteCombatCycle(ctx context.Context) (action Action) {
	now := e.clock()
	e.ticks++

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("combat cycle panic, degrading tick to no-op",
				zap.String("session", e.id),
				zap.Any("panic", r),
			)
			action = e.noOp(now, ReasonInternalError)
		}
	}()

	self, err := e.perception.DetectCombatState(ctx)
	if err != nil {
		e.logger.Warn("perception unavailable",
			zap.String("session", e.id),
			zap.Error(err),
		)
		return e.noOp(now, ReasonPerceptionUnavailable)
	}
	targets, err := e.perception.ListTargets(ctx)
	if err != nil {
		e.logger.Warn("perception unavailable",
			zap.String("session", e.id),
			zap.Error(err),
		)
		return e.noOp(now, ReasonPerceptionUnavailable)
	}

	picked, acquired := e.selector.Pick(targets, e.active.MaxRange())

	st := e.machine.Observe(
		self.HostilePresent,
		self.HealthPct,
		e.active.EmergencyThresholdPct,
		e.active.EmergencyHysteresisPct,
		acquired,
	)

	switch st {
	case StateIdle:
		return e.noOp(now, ReasonIdle)
	case StateSeeking:
		return e.noOp(now, ReasonSeeking)
	}

	var tgt *Target
	if acquired {
		tgt = &picked
	}

	chosen, ok := e.scheduler.Select(st, e.active, tgt, self, now)
	if !ok {
		e.machine.MarkNoSkills()
		e.logger.Debug("no skill available this tick",
			zap.String("session", e.id),
			zap.String("state", st.String()),
		)
		return e.noOp(now, ReasonNoSkillAvailable)
	}

	return e.dispatch(ctx, chosen, tgt, st, now)
}

// dispatch sends the chosen skill to the actuator with a bounded timeout and
// records the resulting action. The cooldown was already reserved by the
// scheduler under CommitOnSelect, so a slow or failing actuator cannot cause
// a double dispatch.
func (e *Engine) dispatch(ctx context.Context, chosen *skill.Skill, tgt *Target, st State, now time.Time) Action {
	targetID := ""
	if tgt != nil && !chosen.SelfTargeted() {
		targetID = tgt.ID
	}

	actCtx, cancel := context.WithTimeout(ctx, e.actuatorTimeout)
	defer cancel()

	start := time.Now()
	result, err := e.actuator.ExecuteSkill(actCtx, chosen.Name, targetID)
	latency := time.Since(start)

	success := err == nil && result.Success
	if err != nil {
		e.logger.Warn("actuator dispatch failed",
			zap.String("session", e.id),
			zap.String("skill", chosen.Name),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	}
	if success {
		e.scheduler.ConfirmSuccess(chosen, now)
	}

	damage := result.Damage
	if success && damage == 0 && chosen.DamageMax > 0 {
		damage = dice.RollBetween(e.damage, chosen.DamageMin, chosen.DamageMax)
	}

	a := Action{
		ID:        uuid.NewString(),
		Skill:     chosen.Name,
		TargetID:  targetID,
		Timestamp: now,
		Success:   success,
		Damage:    damage,
		Latency:   latency,
		State:     st,
	}

	e.history.Append(a)
	e.dispatched++
	e.skillCount[chosen.Name]++
	if success {
		e.succeeded++
	}

	e.logger.Debug("skill dispatched",
		zap.String("session", e.id),
		zap.String("skill", a.Skill),
		zap.String("target", a.TargetID),
		zap.Bool("success", a.Success),
		zap.Int("damage", a.Damage),
		zap.Duration("latency", a.Latency),
	)
	e.notifyAction(a)
	return a
}

// noOp builds, counts, and publishes a no-op marker for this tick.
func (e *Engine) noOp(now time.Time, reason NoOpReason) Action {
	e.noOps++
	a := Action{
		ID:        uuid.NewString(),
		Timestamp: now,
		NoOp:      true,
		Reason:    reason,
		State:     e.machine.State(),
	}
	e.notifyAction(a)
	return a
}

// notifyAction fans the action out to observers, fire-and-forget.
func (e *Engine) notifyAction(a Action) {
	for _, obs := range e.observers {
		obs.ObserveAction(a)
	}
}

// Summary aggregates this session's counters.
func (e *Engine) Summary() Summary {
	s := Summary{
		SessionID:   e.id,
		Profile:     e.active.Name,
		State:       e.machine.State().String(),
		Ticks:       e.ticks,
		NoOps:       e.noOps,
		Dispatched:  e.dispatched,
		Succeeded:   e.succeeded,
		SkillCounts: make(map[string]int, len(e.skillCount)),
	}
	if e.dispatched > 0 {
		s.SuccessRate = float64(e.succeeded) / float64(e.dispatched)
	}
	best := 0
	for name, count := range e.skillCount {
		s.SkillCounts[name] = count
		// Ties resolve to the lexicographically smallest name so the
		// summary is deterministic.
		if count > best || (count == best && (s.DominantSkill == "" || name < s.DominantSkill)) {
			best = count
			s.DominantSkill = name
		}
	}
	return s
}

// Run drives the cooperative tick loop until ctx is cancelled. Exactly one
// tick is in flight at a time; cancellation takes effect at the next tick
// boundary, so no partial ticks are ever recorded.
//
// Precondition: interval > 0.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("combat.Engine.Run: interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("combat engine running",
		zap.String("session", e.id),
		zap.String("profile", e.active.Name),
		zap.Duration("tick_interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("combat engine stopped",
				zap.String("session", e.id),
				zap.Int("ticks", e.ticks),
			)
			return nil
		case <-ticker.C:
			e.ExecuteCombatCycle(ctx)
			if e.summaryEvery > 0 && e.ticks%e.summaryEvery == 0 {
				summary := e.Summary()
				for _, obs := range e.observers {
					obs.ObserveSummary(summary)
				}
			}
		}
	}
}
