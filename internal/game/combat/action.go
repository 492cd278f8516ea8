package combat

import "time"

// NoOpReason explains why a tick dispatched nothing.
type NoOpReason string

const (
	// ReasonIdle: no hostile sensed; nothing to do.
	ReasonIdle NoOpReason = "idle"
	// ReasonSeeking: hostiles sensed but no engageable target.
	ReasonSeeking NoOpReason = "seeking"
	// ReasonNoSkillAvailable: engaged or emergency, but no skill qualified.
	ReasonNoSkillAvailable NoOpReason = "no_skill_available"
	// ReasonPerceptionUnavailable: the perception snapshot failed this tick.
	ReasonPerceptionUnavailable NoOpReason = "perception_unavailable"
	// ReasonInternalError: the tick panicked and was degraded to a no-op.
	ReasonInternalError NoOpReason = "internal_error"
)

// Action is the event record for one tick. Dispatched actions land in the
// engine's bounded history; no-op markers are returned but not recorded.
// History is observability, not a source of truth.
type Action struct {
	// ID is a unique identifier for the action event.
	ID string
	// Skill is the name of the dispatched skill. Empty for no-ops.
	Skill string
	// TargetID is the engaged target, empty for self-targeted skills and no-ops.
	TargetID string
	// Timestamp is the tick time the action was selected.
	Timestamp time.Time
	// Success reports whether the actuator confirmed the dispatch.
	Success bool
	// Damage is the observed damage, or an estimate when unobserved.
	Damage int
	// Latency is how long the actuator took to respond.
	Latency time.Duration
	// NoOp marks a tick that dispatched nothing; Reason says why.
	NoOp   bool
	Reason NoOpReason
	// State is the combat state the tick resolved to.
	State State
}

// History is an append-only bounded ring of dispatched actions. Oldest
// entries are overwritten once capacity is reached.
//
// Invariant: Len() <= capacity at all times.
type History struct {
	buf   []Action
	next  int
	count int
}

// NewHistory creates a ring holding at most capacity actions.
//
// Precondition: capacity >= 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]Action, capacity)}
}

// Append records an action, overwriting the oldest entry when full.
func (h *History) Append(a Action) {
	h.buf[h.next] = a
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len returns the number of recorded actions, at most the ring capacity.
func (h *History) Len() int { return h.count }

// Recent returns up to n actions, oldest first.
//
// Postcondition: len(result) == min(n, Len()); the returned slice is a copy.
func (h *History) Recent(n int) []Action {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Action, 0, n)
	start := (h.next - n + len(h.buf)) % len(h.buf)
	for i := 0; i < n; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}
