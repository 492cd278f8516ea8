package combat

import "time"

// CooldownTracker keeps per-skill earliest-next-use timestamps.
//
// Invariant: timestamps never move backward; entries are cleared only by
// Reset, never by a profile swap. Mutated exclusively from the engine's
// single-threaded tick loop, so no locking is needed.
type CooldownTracker struct {
	readyAt map[string]time.Time
}

// NewCooldownTracker creates an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{readyAt: make(map[string]time.Time)}
}

// IsAvailable reports whether the named skill is off cooldown at now.
// A skill that has never been used is always available.
func (t *CooldownTracker) IsAvailable(name string, now time.Time) bool {
	ready, ok := t.readyAt[name]
	if !ok {
		return true
	}
	return !now.Before(ready)
}

// ReadyAt returns the earliest-next-use timestamp for name.
//
// Postcondition: Returns (timestamp, true) if the skill has been used, or
// (zero, false) otherwise.
func (t *CooldownTracker) ReadyAt(name string) (time.Time, bool) {
	ready, ok := t.readyAt[name]
	return ready, ok
}

// MarkUsed records a use of the named skill at now, setting the
// earliest-next-use to now + cooldown.
//
// Postcondition: ReadyAt(name) >= its previous value; a MarkUsed that would
// move the timestamp backward is ignored.
func (t *CooldownTracker) MarkUsed(name string, now time.Time, cooldown time.Duration) {
	next := now.Add(cooldown)
	if existing, ok := t.readyAt[name]; ok && existing.After(next) {
		return
	}
	t.readyAt[name] = next
}

// Reset clears all cooldown entries. The only way entries are ever removed.
func (t *CooldownTracker) Reset() {
	t.readyAt = make(map[string]time.Time)
}

// Snapshot returns a copy of the current entries, for observability and tests.
func (t *CooldownTracker) Snapshot() map[string]time.Time {
	out := make(map[string]time.Time, len(t.readyAt))
	for name, ready := range t.readyAt {
		out[name] = ready
	}
	return out
}
