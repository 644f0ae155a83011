// Package runtime's Call is the executor (C7, spec.md 4.7): it owns a
// stack of coroutines, drives whichever is current one suspension segment
// at a time, and exposes a version-CAS resume protocol so a paused Call can
// only ever be resumed once per continuation token — grounded on
// internal/bytecode/vm.go's central dispatch loop, restructured from a
// single-threaded bytecode interpreter loop into a segment-at-a-time
// resumable driver.
package runtime

import (
	"sync/atomic"

	"github.com/google/uuid"

	lerr "github.com/lua53go/engine/errors"
)

const (
	versionRunning    = 0
	versionTerminated = 1
)

// Continuation is the opaque token a host holds onto between Resume calls.
// The UUID half (spec.md 4.7's "a fresh continuation token") is what the
// host logs or correlates an async suspension against without needing a
// reference to the Go Call struct; the version half is what Resume actually
// checks via CAS. Neither field is meant to be constructed by hand — a host
// only ever passes back a Continuation it received from NewCall or Outcome.
type Continuation struct {
	ID      uuid.UUID
	version int64
}

// Outcome is what Resume hands back to the host: either the call finished
// (Done, with its final Results or a terminal Err), or it paused (a fresh
// Continuation to resume with later, and, if the pause was for an async
// task, the Task the host must complete before resuming).
type Outcome struct {
	Done         bool
	Results      []Value
	Err          error
	Continuation Continuation
	Task         AsyncTask
}

// Call represents one execution in progress or paused (spec.md 4.7).
type Call struct {
	version        int64
	nextVersion    int64
	continuationID uuid.UUID
	coroutines     []*Coroutine // last element is current
	Scheduler      *Scheduler
	State          *StateContext
	Dispatch       *Dispatch
	pendingResult  []Value
	handlerDepth   int
}

// DefaultHandlerDepthLimit bounds nested xpcall handler invocations (spec.md
// 4.10's propagation policy: "the host sets a limit, e.g. 220").
const DefaultHandlerDepthLimit = 220

// NewCall constructs a call targeting target with args, placing them in a
// fresh ReturnBuffer and pushing a single main coroutine.
func NewCall(target Value, args []Value, state *StateContext, sched *Scheduler) *Call {
	c := &Call{
		nextVersion: 2, // 0 and 1 are reserved for RUNNING/TERMINATED
		State:       state,
		Scheduler:   sched,
	}
	c.Dispatch = NewDispatch(state)
	entry := &callEntryFrame{call: c, target: target, args: args}
	main := NewCoroutine("main", entry)
	main.Status = StatusRunning
	c.coroutines = []*Coroutine{main}
	c.allocToken()
	return c
}

// Continuation returns the token the host must present, unmodified, to the
// next Resume call; presenting any other value fails with
// InvalidContinuation (spec.md 4.7).
func (c *Call) Continuation() Continuation {
	return Continuation{ID: c.continuationID, version: c.version}
}

// allocToken mints a fresh continuation (new version and a new correlation
// UUID), installs it as the call's current token, and returns it.
func (c *Call) allocToken() Continuation {
	c.nextVersion++
	c.version = c.nextVersion
	c.continuationID = uuid.New()
	return Continuation{ID: c.continuationID, version: c.version}
}

func (c *Call) currentCoroutine() *Coroutine {
	return c.coroutines[len(c.coroutines)-1]
}

// TailCall records a pending tail call on the current coroutine's return
// buffer (spec.md 4.10/9: the is-call flag is the only tail-call mechanism).
// Resume's drive loop checks it after every frame runs to completion and
// replaces the frame instead of recursing, so emitted TCallTerm code never
// invokes the callee directly.
func (c *Call) TailCall(target Value, args []Value) {
	c.currentCoroutine().ReturnBuffer.SetToCallWithContentsOf(target, args)
}

func (c *Call) popCoroutine() {
	c.coroutines = c.coroutines[:len(c.coroutines)-1]
}

func (c *Call) pushCoroutine(co *Coroutine) {
	c.coroutines = append(c.coroutines, co)
}

// PendingResult returns the values the most recently completed frame
// returned, for a resuming frame that needs to know what its suspended
// call site received.
func (c *Call) PendingResult() []Value { return c.pendingResult }

// Resume drives the call forward from cont until it finishes or pauses
// again (spec.md 4.7's resume protocol).
func (c *Call) Resume(cont Continuation) (*Outcome, error) {
	if !atomic.CompareAndSwapInt64(&c.version, cont.version, versionRunning) {
		return nil, lerr.New(lerr.InvalidContinuation, "resume token %s does not match the call's current continuation", cont.ID)
	}
	if c.Scheduler != nil {
		c.Scheduler.ResetForResume()
	}

	var pendingErr error
	for {
		cur := c.currentCoroutine()
		if cur.isEmpty() {
			outcome, done, carryErr := c.finishCoroutine(cur, pendingErr)
			if done {
				return outcome, nil
			}
			pendingErr = carryErr
			continue
		}

		frame := cur.popTop()
		results, err, sig := c.runFrame(frame, pendingErr)
		pendingErr = nil

		if sig != nil {
			outcome, cont, sigErr := c.dispatchSignal(sig)
			if !cont {
				return outcome, nil
			}
			pendingErr = sigErr
			continue
		}
		if err != nil {
			pendingErr = err
			continue
		}

		if cur.ReturnBuffer.IsCall {
			target, args := cur.ReturnBuffer.Target, cur.ReturnBuffer.Args
			cur.ReturnBuffer.IsCall = false
			cur.pushAll([]*ResumeInfo{{Frame: &callEntryFrame{call: c, target: target, args: args}}})
			continue
		}

		c.pendingResult = results
		if cur.isEmpty() {
			cur.ReturnBuffer.SetToContentsOf(results)
		}
	}
}

func (c *Call) runFrame(frame *ResumeInfo, pendingErr error) (results []Value, err error, sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(Signal); ok {
				sig = s
				return
			}
			panic(r)
		}
	}()
	results, err = frame.Frame.Run(c, pendingErr)
	return
}

// finishCoroutine handles an exhausted call stack for cur: the main
// coroutine terminates the whole Call; any other dies and implicitly
// yields its result (or error) to its resumer (spec.md 4.7 "Termination").
func (c *Call) finishCoroutine(cur *Coroutine, pendingErr error) (outcome *Outcome, done bool, carryErr error) {
	cur.Status = StatusDead
	if len(c.coroutines) == 1 {
		atomic.StoreInt64(&c.version, versionTerminated)
		if pendingErr != nil {
			return &Outcome{Done: true, Err: pendingErr}, true, nil
		}
		return &Outcome{Done: true, Results: c.pendingResult}, true, nil
	}
	c.popCoroutine()
	resumer := c.currentCoroutine()
	resumer.Status = StatusRunning
	if pendingErr != nil {
		// The dying coroutine's error becomes the resumer's pendingErr;
		// the resumer's coroutine.resume implementation (a host builtin)
		// is responsible for converting it into a (false, message) return
		// per Lua's resume contract, exactly as it does for an explicit
		// ResumeSignal whose target ran to a normal conclusion.
		c.pendingResult = nil
		return nil, false, pendingErr
	}
	c.pendingResult = cur.ReturnBuffer.GetAsArray()
	resumer.ReturnBuffer.SetToContentsOf(c.pendingResult)
	return nil, false, nil
}

func (c *Call) dispatchSignal(sig Signal) (outcome *Outcome, cont bool, pendingErr error) {
	switch s := sig.(type) {
	case *PauseSignal:
		cur := c.currentCoroutine()
		cur.pushAll(s.frames())
		return &Outcome{Continuation: c.allocToken()}, false, nil

	case *AsyncSignal:
		cur := c.currentCoroutine()
		cur.pushAll(s.frames())
		return &Outcome{Continuation: c.allocToken(), Task: s.Task}, false, nil

	case *YieldSignal:
		if len(c.coroutines) == 1 {
			atomic.StoreInt64(&c.version, versionTerminated)
			return &Outcome{Done: true, Err: lerr.New(lerr.IllegalCoroutineState, "attempt to yield from outside a coroutine")}, false, nil
		}
		cur := c.currentCoroutine()
		cur.pushAll(s.frames())
		cur.transition(StatusRunning, StatusSuspended)
		c.popCoroutine()
		resumer := c.currentCoroutine()
		resumer.transition(StatusNormal, StatusRunning)
		resumer.ReturnBuffer.SetToContentsOf(s.Values)
		c.pendingResult = s.Values
		return nil, true, nil

	case *ResumeSignal:
		cur := c.currentCoroutine()
		cur.pushAll(s.frames())
		if s.Target.Status != StatusSuspended {
			c.pendingResult = nil
			// spec.md 4.7's coroutineResume visitor: resuming anything but a
			// suspended coroutine is a Lua-catchable error, raised here so it
			// reaches the resumer frame as an ordinary pendingErr rather than
			// being silently swallowed.
			return nil, true, lerr.New(lerr.IllegalCoroutineState, "cannot resume %s coroutine", s.Target.Status)
		}
		cur.transition(StatusRunning, StatusNormal)
		s.Target.Status = StatusRunning
		s.Target.ReturnBuffer.SetToContentsOf(s.Values)
		c.pushCoroutine(s.Target)
		c.pendingResult = s.Values
		return nil, true, nil
	}
	return &Outcome{Done: true, Err: lerr.New(lerr.IllegalOperationAttempt, "unknown signal type")}, false, nil
}

// callEntryFrame adapts the initial (target, args) invocation into a
// Resumable so it can sit on the main coroutine's stack like any other
// frame.
type callEntryFrame struct {
	call   *Call
	target Value
	args   []Value
}

func (f *callEntryFrame) Run(call *Call, pendingErr error) ([]Value, error) {
	if pendingErr != nil {
		return nil, pendingErr
	}
	return call.Dispatch.Call(call, f.target, f.args)
}

func (f *callEntryFrame) IsErrorHandler() bool { return false }
