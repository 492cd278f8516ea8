package combat

// State is the engine's combat state, fully derived each tick from the
// perception snapshot and timers. Never independently mutated.
type State int

const (
	// StateIdle is the initial state: no hostiles sensed.
	StateIdle State = iota
	// StateSeeking means hostiles are sensed but no target is engageable.
	StateSeeking
	// StateEngaged means a target is picked and skills are being scheduled.
	StateEngaged
	// StateEmergency means self health has crossed below the profile's
	// emergency threshold.
	StateEmergency
	// StateNoSkills means no skill qualified this tick. Per-tick only, never
	// sticky: the next tick re-evaluates from the engaged baseline.
	StateNoSkills
)

// String returns the state's snake_case name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeking:
		return "seeking"
	case StateEngaged:
		return "engaged"
	case StateEmergency:
		return "emergency"
	case StateNoSkills:
		return "no_skills_available"
	default:
		return "unknown"
	}
}

// StateMachine derives the combat state each tick. It owns the idle
// hysteresis counter that absorbs sensing noise: the machine only returns to
// idle after idleAfterTicks consecutive ticks without a hostile.
type StateMachine struct {
	state          State
	noHostileTicks int
	idleAfterTicks int
}

// NewStateMachine creates a machine in StateIdle.
//
// Precondition: idleAfterTicks >= 1.
func NewStateMachine(idleAfterTicks int) *StateMachine {
	if idleAfterTicks < 1 {
		idleAfterTicks = 1
	}
	return &StateMachine{state: StateIdle, idleAfterTicks: idleAfterTicks}
}

// State returns the state derived by the most recent Observe or MarkNoSkills.
func (m *StateMachine) State() State { return m.state }

// Observe derives this tick's state from the perception snapshot.
// Transitions cascade within a single call, so a target appearing in range
// while idle moves idle -> seeking -> engaged in one tick.
//
// hostilePresent is whether any hostile is sensed at all, even out of range.
// targetAcquired is whether the selector picked a target this tick.
// threshold and hysteresis come from the active profile.
//
// Postcondition: State() is one of idle, seeking, engaged, or emergency.
func (m *StateMachine) Observe(hostilePresent bool, selfHealthPct, threshold, hysteresis float64, targetAcquired bool) State {
	// NoSkills is a per-tick verdict, not a resting state: re-evaluate from
	// the engaged baseline.
	if m.state == StateNoSkills {
		m.state = StateEngaged
	}

	if !hostilePresent {
		m.noHostileTicks++
		if m.noHostileTicks >= m.idleAfterTicks {
			m.state = StateIdle
			return m.state
		}
		// Hysteresis window: hold the previous state against sensing noise.
		return m.state
	}
	m.noHostileTicks = 0

	if m.state == StateIdle {
		m.state = StateSeeking
	}
	if m.state == StateSeeking && targetAcquired {
		m.state = StateEngaged
	}
	if m.state == StateEngaged && !targetAcquired {
		m.state = StateSeeking
	}
	if m.state == StateEngaged && selfHealthPct < threshold {
		m.state = StateEmergency
	}
	if m.state == StateEmergency && selfHealthPct >= threshold+hysteresis {
		m.state = StateEngaged
		if !targetAcquired {
			m.state = StateSeeking
		}
	}

	return m.state
}

// MarkNoSkills records that no skill qualified this tick.
//
// Precondition: only meaningful after Observe returned engaged or emergency.
// Postcondition: State() == StateNoSkills until the next Observe.
func (m *StateMachine) MarkNoSkills() {
	m.state = StateNoSkills
}
