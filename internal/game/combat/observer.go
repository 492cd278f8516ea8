package combat

// Summary aggregates a session's tick outcomes for observability and tests.
type Summary struct {
	// SessionID identifies the engine instance.
	SessionID string
	// Profile is the active profile name.
	Profile string
	// State is the state of the most recent tick.
	State string
	// Ticks is the total number of executed ticks.
	Ticks int
	// NoOps is the number of ticks that dispatched nothing.
	NoOps int
	// Dispatched is the number of actions sent to the actuator.
	Dispatched int
	// Succeeded is the number of dispatches the actuator confirmed.
	Succeeded int
	// SuccessRate is Succeeded/Dispatched, 0 when nothing was dispatched.
	SuccessRate float64
	// DominantSkill is the most-dispatched skill name, empty when none.
	DominantSkill string
	// SkillCounts maps skill name to dispatch count.
	SkillCounts map[string]int
}

// Observer receives action events and periodic summaries. Calls happen
// synchronously on the tick loop and are fire-and-forget: implementations
// must return quickly and must not fail the tick.
type Observer interface {
	ObserveAction(a Action)
	ObserveSummary(s Summary)
}
