// Package engine is the embeddable facade over the compile pipeline and
// runtime: translate a resolved AST, load it, and run it to completion or
// to its first suspension. Grounded on go-dws/pkg/dwscript's top-level
// Compile/Run entrypoints, which wrap the same kind of multi-package
// pipeline behind a small functional-options surface.
package engine

import (
	"fmt"

	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/loader"
	"github.com/lua53go/engine/internal/runtime"
	"github.com/lua53go/engine/internal/translate"
)

// Option configures a Program at construction time, the way
// go-dws/internal/bytecode's CompilerOption/OptimizeOption configure a
// Compiler (SPEC_FULL.md §3).
type Option func(*Config)

// Config is the resolved set of pipeline and runtime options; config.go
// loads one from YAML, and Options layer on top of (or in place of) it.
type Config struct {
	// SegmentLimit bounds a function's IR node count per segment
	// (spec.md 4.3); 0 disables segmentation.
	SegmentLimit int
	// AccountingMode selects how the scheduler counts ticks (spec.md 4.9).
	AccountingMode runtime.AccountingMode
	// TickLimit bounds ticks consumed per Resume call; 0 means unlimited.
	TickLimit int64
	// HandlerDepthLimit records a bound on nested xpcall handler
	// invocations (spec.md 7; default matches
	// runtime.DefaultHandlerDepthLimit). The runtime does not read it: its
	// xpcall check always uses runtime.DefaultHandlerDepthLimit.
	HandlerDepthLimit int
	// MaxConcurrentCalls bounds how many Calls sharing a StateContext may
	// run at once (spec.md 5); 0 means unbounded.
	MaxConcurrentCalls int64
}

// DefaultConfig matches the runtime's own defaults: no segmentation, no
// tick accounting, the spec's default handler-depth limit, unbounded
// concurrency.
func DefaultConfig() Config {
	return Config{
		AccountingMode:    runtime.NoAccounting,
		HandlerDepthLimit: runtime.DefaultHandlerDepthLimit,
	}
}

// WithSegmentLimit bounds per-function IR node count (spec.md 4.3).
func WithSegmentLimit(n int) Option {
	return func(c *Config) { c.SegmentLimit = n }
}

// WithTickAccounting enables per-basic-block tick withdrawal with the given
// limit (0 disables the limit while still counting ticks).
func WithTickAccounting(limit int64) Option {
	return func(c *Config) {
		c.AccountingMode = runtime.PerBasicBlock
		c.TickLimit = limit
	}
}

// WithHandlerDepthLimit sets Config.HandlerDepthLimit. The value is not
// passed to the runtime, whose xpcall check uses
// runtime.DefaultHandlerDepthLimit regardless.
func WithHandlerDepthLimit(n int) Option {
	return func(c *Config) { c.HandlerDepthLimit = n }
}

// WithMaxConcurrentCalls bounds the CallPool a Program's RunAll uses.
func WithMaxConcurrentCalls(n int64) Option {
	return func(c *Config) { c.MaxConcurrentCalls = n }
}

// Program is a translated, loaded Lua chunk ready to run. It owns its own
// StateContext and Scheduler, both fresh per Program, so two Programs never
// share table/metatable/interner state (spec.md 5).
type Program struct {
	cfg    Config
	entry  runtime.Value
	state  *runtime.StateContext
	sched  *runtime.Scheduler
	pool   *runtime.CallPool
}

// Compile translates chunk and loads every function it (transitively)
// defines, without running anything yet.
func Compile(chunk *ast.Chunk, opts ...Option) (*Program, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	mod, err := translate.Translate(chunk)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	ld := loader.New(mod, loader.Options{SegmentLimit: cfg.SegmentLimit})
	entry, err := ld.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Program{
		cfg:   cfg,
		entry: entry,
		state: runtime.NewDefaultStateContext(),
		sched: runtime.NewScheduler(cfg.AccountingMode, cfg.TickLimit),
		pool:  runtime.NewCallPool(cfg.MaxConcurrentCalls),
	}, nil
}

// NewCall starts a fresh top-level call of the program's entry chunk, the
// global environment table passed as its sole argument (_ENV, per
// internal/translate's modeling of it — see DESIGN.md).
func (p *Program) NewCall(env runtime.Value, extraArgs ...runtime.Value) *runtime.Call {
	args := append([]runtime.Value{env}, extraArgs...)
	return runtime.NewCall(p.entry, args, p.state, p.sched)
}

// Run starts and drives a call to completion or to its first suspension, in
// one step: a convenience for hosts that do not need to inspect the
// returned Continuation before resuming (spec.md 4.7's common case).
func (p *Program) Run(env runtime.Value, extraArgs ...runtime.Value) (*runtime.Outcome, error) {
	call := p.NewCall(env, extraArgs...)
	return call.Resume(call.Continuation())
}

// State returns the Program's shared StateContext, for a host that wants to
// pre-populate globals before the first Run.
func (p *Program) State() *runtime.StateContext { return p.state }

// Pool returns the Program's CallPool, for a host driving several
// independent top-level calls with runtime.RunAll.
func (p *Program) Pool() *runtime.CallPool { return p.pool }

// Sched returns the Program's Scheduler, for a host that wants to adjust
// the tick budget between Resume calls (e.g. the CLI's repeatable
// --tick-limit flag).
func (p *Program) Sched() *runtime.Scheduler { return p.sched }
