package runtime

// Signal is thrown via Go panic when a Resumable needs the executor's
// attention before it can continue: a yield, a coroutine resume, an async
// suspension, or a scheduler-requested pause (spec.md 4.7's "recoverable
// control signal"). Every Resumable.Run the emitter produces wraps its body
// in a deferred recover that, on catching a Signal, appends its own saved
// continuation via PushFrame and re-panics; by the time the signal reaches
// Call.Resume's recover it carries the complete paused call chain, ordered
// innermost-first.
type Signal interface {
	PushFrame(f *ResumeInfo)
	frames() []*ResumeInfo
	signalTag()
}

type signalFrames struct {
	Frames []*ResumeInfo
}

func (s *signalFrames) PushFrame(f *ResumeInfo)   { s.Frames = append(s.Frames, f) }
func (s *signalFrames) frames() []*ResumeInfo     { return s.Frames }

// YieldSignal is thrown by coroutine.yield.
type YieldSignal struct {
	signalFrames
	Values []Value
}

func (*YieldSignal) signalTag() {}

// ResumeSignal is thrown by coroutine.resume.
type ResumeSignal struct {
	signalFrames
	Target *Coroutine
	Values []Value
}

func (*ResumeSignal) signalTag() {}

// AsyncSignal is thrown when a host function suspends on an asynchronous
// task; the host completes Task and calls the returned continuation later.
type AsyncSignal struct {
	signalFrames
	Task AsyncTask
}

func (*AsyncSignal) signalTag() {}

// PauseSignal is thrown by the scheduler's cooperative preemption
// (PauseIfRequested), carrying no payload beyond the saved frames.
type PauseSignal struct {
	signalFrames
}

func (*PauseSignal) signalTag() {}

// AsyncTask is a host-defined unit of asynchronous work; the host completes
// it out of band and calls Call.Resume with the continuation token the
// paused Outcome carried.
type AsyncTask interface {
	Describe() string
}

// Suspend panics with sig — the single call emitted code uses to enter a
// suspension point; every enclosing Resumable.Run must recover, call
// sig.PushFrame with its own saved continuation, and re-panic with the same
// sig (see Propagate).
func Suspend(sig Signal) {
	panic(sig)
}

// Propagate is the helper an emitted Resumable.Run's deferred recover calls:
// if r is a Signal, it pushes frame and re-panics with the same signal so
// the frame chain accumulates outward; any other recovered value is not
// ours and is re-panicked unchanged.
func Propagate(r interface{}, frame *ResumeInfo) {
	sig, ok := r.(Signal)
	if !ok {
		panic(r)
	}
	sig.PushFrame(frame)
	panic(sig)
}
