// Package scripting provides a sandboxed GopherLua environment for scripted
// skill activation conditions. Scripts are pure predicates over a per-tick
// snapshot; they get no filesystem, network, or game-state access.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// predicate evaluation when no limit is configured.
const DefaultInstructionLimit = 100_000

// InstructionBudget is a context.Context that cancels itself after Done()
// has been called limit times. GopherLua's main loop calls Done() once per
// opcode, making this an exact instruction-count limit. The budget is
// renewable: Renew rearms the limit for the next evaluation, so a long-lived
// VM evaluating one predicate per tick never exhausts it.
type InstructionBudget struct {
	context.Context
	cancel    context.CancelFunc
	limit     int64
	remaining *atomic.Int64
}

// Done returns the underlying cancellation channel. Each call decrements the
// remaining counter; when it reaches zero the cancel function fires,
// terminating the Lua VM on the next opcode boundary.
func (b *InstructionBudget) Done() <-chan struct{} {
	if b.remaining.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// Renew rearms the budget for another evaluation. A budget whose limit was
// breached stays cancelled: the VM is considered compromised and every later
// evaluation on it fails closed.
func (b *InstructionBudget) Renew() {
	b.remaining.Store(b.limit)
}

// Cancel releases the budget's resources.
func (b *InstructionBudget) Cancel() { b.cancel() }

// newInstructionBudget returns a budget that cancels after limit calls to Done().
// Precondition: limit > 0.
func newInstructionBudget(limit int) *InstructionBudget {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &InstructionBudget{
		Context:   base,
		cancel:    cancel,
		limit:     int64(limit),
		remaining: rem,
	}
}

// NewSandboxedState creates a GopherLua LState with:
//   - Only safe stdlib loaded: base, table, string, math
//   - Dangerous globals removed: dofile, loadfile, load, collectgarbage, require
//   - Execution limited to at most instLimit Lua opcodes per evaluation
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil LState and its renewable budget. The
// caller owns the LState and must call budget.Cancel() and L.Close() when done.
func NewSandboxedState(instLimit int) (*lua.LState, *InstructionBudget) {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// Open only safe standard libraries.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Strip dangerous globals left by OpenBase.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	budget := newInstructionBudget(limit)
	L.SetContext(budget)

	return L, budget
}
