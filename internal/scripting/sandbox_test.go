package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func TestNewSandboxedState_SafeLibsOnly(t *testing.T) {
	L, budget := scripting.NewSandboxedState(0)
	defer func() {
		budget.Cancel()
		L.Close()
	}()

	// Safe libraries present.
	require.NoError(t, L.DoString(`x = math.max(1, 2) + string.len("ab") + #({1, 2})`))

	// Dangerous globals stripped.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), name)
	}
	// io and os were never opened.
	assert.Equal(t, lua.LNil, L.GetGlobal("io"))
	assert.Equal(t, lua.LNil, L.GetGlobal("os"))
}

func TestSandbox_InstructionBudgetTerminatesRunaway(t *testing.T) {
	L, budget := scripting.NewSandboxedState(10_000)
	defer func() {
		budget.Cancel()
		L.Close()
	}()

	err := L.DoString(`while true do end`)
	require.Error(t, err)
}

func TestInstructionBudget_RenewSurvivesRepeatedEvaluations(t *testing.T) {
	// A small per-evaluation budget must not accumulate across calls:
	// fifty cheap evaluations on one VM all succeed when each is renewed.
	L, budget := scripting.NewSandboxedState(5_000)
	defer func() {
		budget.Cancel()
		L.Close()
	}()

	require.NoError(t, L.DoString(`function f() return 1 + 1 end`))
	for i := 0; i < 50; i++ {
		budget.Renew()
		require.NoError(t, L.DoString(`f()`), "evaluation %d", i)
	}
}

func TestInstructionBudget_BreachedBudgetStaysCancelled(t *testing.T) {
	L, budget := scripting.NewSandboxedState(1_000)
	defer func() {
		budget.Cancel()
		L.Close()
	}()

	require.Error(t, L.DoString(`while true do end`))

	// Renew does not resurrect a breached budget: the VM fails closed from
	// here on.
	budget.Renew()
	assert.Error(t, L.DoString(`return 1`))
}
