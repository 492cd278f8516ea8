package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Evaluator owns one sandboxed LState per combat profile and implements
// combat.ConditionEvaluator. Lua problems never propagate: a missing hook, a
// runtime error, or an exhausted instruction budget all evaluate false
// (fail-closed) and are logged.
//
// Evaluator is safe for concurrent EvaluateScript across profiles after all
// LoadProfile calls complete; each profile's LState is single-threaded.
type Evaluator struct {
	mu      sync.RWMutex
	states  map[string]*lua.LState
	budgets map[string]*InstructionBudget
	logger  *zap.Logger
}

// NewEvaluator creates an Evaluator with no profiles loaded.
//
// Precondition: logger must be non-nil.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{
		states:  make(map[string]*lua.LState),
		budgets: make(map[string]*InstructionBudget),
		logger:  logger,
	}
}

// LoadProfile creates a sandboxed VM for profileName and executes every
// *.lua file in scriptDir in lexicographic order. Reloading a profile
// replaces its previous VM.
//
// Precondition: profileName must be non-empty; scriptDir must be a readable
// directory.
// Postcondition: The profile VM is registered; returns error on Lua load
// failure, in which case any previous VM for the profile stays active.
func (e *Evaluator) LoadProfile(profileName, scriptDir string, instLimit int) error {
	L, budget := NewSandboxedState(instLimit)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		budget.Cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, profileName, err)
	}

	var luaFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, entry.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			budget.Cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, profileName, err)
		}
	}

	e.mu.Lock()
	if old, ok := e.states[profileName]; ok {
		e.budgets[profileName].Cancel()
		old.Close()
	}
	e.states[profileName] = L
	e.budgets[profileName] = budget
	e.mu.Unlock()
	return nil
}

// Close releases all VMs.
func (e *Evaluator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, L := range e.states {
		e.budgets[name].Cancel()
		L.Close()
		delete(e.states, name)
		delete(e.budgets, name)
	}
}

// EvaluateScript calls the named Lua predicate in profileName's VM with a
// single snapshot table argument and returns whether it yielded true.
//
// The snapshot table carries: self_health, resource, target_id,
// target_health, target_distance, state.
//
// Postcondition: Returns true iff the hook exists and returned Lua true;
// every failure mode returns false.
func (e *Evaluator) EvaluateScript(profileName, hook string, snap combat.ConditionSnapshot) bool {
	e.mu.RLock()
	L, ok := e.states[profileName]
	budget := e.budgets[profileName]
	e.mu.RUnlock()

	if !ok {
		e.logger.Debug("scripting: no VM for profile",
			zap.String("profile", profileName),
			zap.String("hook", hook),
		)
		return false
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		e.logger.Warn("scripting: hook not defined",
			zap.String("profile", profileName),
			zap.String("hook", hook),
		)
		return false
	}

	budget.Renew()

	tbl := L.NewTable()
	L.SetField(tbl, "self_health", lua.LNumber(snap.SelfHealthPct))
	L.SetField(tbl, "resource", lua.LNumber(snap.Resource))
	L.SetField(tbl, "target_id", lua.LString(snap.TargetID))
	L.SetField(tbl, "target_health", lua.LNumber(snap.TargetHealthPct))
	L.SetField(tbl, "target_distance", lua.LNumber(snap.TargetDistance))
	L.SetField(tbl, "state", lua.LString(snap.State))

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, tbl); err != nil {
		e.logger.Warn("scripting: Lua runtime error",
			zap.String("profile", profileName),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return false
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret == lua.LTrue
}
