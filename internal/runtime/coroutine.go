package runtime

import "fmt"

// CoroutineStatus is one of Lua 5.3's four coroutine statuses (reference
// manual 2.6, spec.md 4.8).
type CoroutineStatus int

const (
	StatusSuspended CoroutineStatus = iota
	StatusRunning
	StatusNormal
	StatusDead
)

func (s CoroutineStatus) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	}
	return "unknown"
}

// Resumable is one paused call frame's continuation — what internal/emit's
// compiled functions implement so the executor can drive them one
// suspension segment at a time.
type Resumable interface {
	// Run executes from this frame's saved resumption point (0 on first
	// invocation) until it returns normally, returns a non-Signal error, or
	// panics with a Signal. pendingErr carries an error unwinding from a
	// callee this frame's handler (pcall/xpcall) should observe, or nil.
	Run(call *Call, pendingErr error) ([]Value, error)
	// IsErrorHandler reports whether this frame is a pcall/xpcall boundary:
	// if true, a pendingErr reaching it is converted into a return value
	// rather than continuing to unwind.
	IsErrorHandler() bool
}

// ResumeInfo is one entry in a coroutine's paused call stack.
type ResumeInfo struct {
	Frame Resumable
}

// Coroutine holds a linked (here: sliced) list of pending ResumeInfo
// frames — its paused stack — and a status, guarded by the Call's single
// version CAS rather than its own lock (spec.md 5: "driven by one thread
// at a time").
type Coroutine struct {
	Name         string
	Status       CoroutineStatus
	stack        []*ResumeInfo // stack[0] is the top (innermost, runs next)
	ReturnBuffer ReturnBuffer
}

// NewCoroutine creates a suspended coroutine whose first resumption runs
// entry.
func NewCoroutine(name string, entry Resumable) *Coroutine {
	return &Coroutine{
		Name:   name,
		Status: StatusSuspended,
		stack:  []*ResumeInfo{{Frame: entry}},
	}
}

func (c *Coroutine) pushAll(frames []*ResumeInfo) {
	if len(frames) == 0 {
		return
	}
	c.stack = append(append([]*ResumeInfo(nil), frames...), c.stack...)
}

func (c *Coroutine) popTop() *ResumeInfo {
	if len(c.stack) == 0 {
		return nil
	}
	top := c.stack[0]
	c.stack = c.stack[1:]
	return top
}

func (c *Coroutine) isEmpty() bool { return len(c.stack) == 0 }

// transition validates and applies a status change, matching the legality
// table in spec.md 4.8; illegal transitions are a programmer/engine bug
// (the executor never attempts one outside the documented protocol), so
// this panics rather than returning an error.
func (c *Coroutine) transition(from, to CoroutineStatus) {
	if c.Status != from {
		panic(fmt.Sprintf("runtime: coroutine %q: illegal transition %s->%s while in %s", c.Name, from, to, c.Status))
	}
	c.Status = to
}
