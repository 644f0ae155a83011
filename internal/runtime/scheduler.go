package runtime

// AccountingMode selects how the scheduler counts ticks (spec.md 4.9).
type AccountingMode int

const (
	// NoAccounting never accumulates ticks; ShouldPause reports true only
	// after the host calls RequestPause.
	NoAccounting AccountingMode = iota
	// PerBasicBlock counts one withdrawal per CpuWithdraw node the
	// translator inserts at each basic-block entry and backward edge.
	PerBasicBlock
)

// Scheduler receives tick withdrawals the translator inserts (one
// CpuWithdraw per basic-block entry or backward edge in the default
// accounting mode) and exposes ShouldPause, consulted by
// PauseIfRequested at every resumption point emitted code reaches.
type Scheduler struct {
	Mode     AccountingMode
	TickLimit int64 // 0 means unlimited
	consumed  int64
	pauseRequested bool
}

func NewScheduler(mode AccountingMode, tickLimit int64) *Scheduler {
	return &Scheduler{Mode: mode, TickLimit: tickLimit}
}

// RegisterTicks withdraws n ticks from the current resume call's budget.
func (s *Scheduler) RegisterTicks(n int) {
	if s.Mode == NoAccounting {
		return
	}
	s.consumed += int64(n)
	if s.TickLimit > 0 && s.consumed >= s.TickLimit {
		s.pauseRequested = true
	}
}

// RequestPause lets the host ask for cooperative preemption independent of
// tick accounting (e.g. a wall-clock deadline).
func (s *Scheduler) RequestPause() { s.pauseRequested = true }

// ShouldPause reports whether the next PauseIfRequested call should
// suspend the call.
func (s *Scheduler) ShouldPause() bool { return s.pauseRequested }

// ResetForResume clears the per-resume tick budget and pause flag; Call
// calls this at the start of every Resume so a tick limit applies per
// resume call, not cumulatively across the whole Call's lifetime.
func (s *Scheduler) ResetForResume() {
	s.consumed = 0
	s.pauseRequested = false
}

// PauseIfRequested is the call emitted code makes at every resumption
// point; if the scheduler currently wants a pause, it suspends via the
// PauseSignal control-flow mechanism (spec.md 4.9). The frame argument is
// this call site's own saved continuation, appended to the signal before
// it propagates.
func PauseIfRequested(sched *Scheduler, frame *ResumeInfo) {
	if sched != nil && sched.ShouldPause() {
		sig := &PauseSignal{}
		sig.PushFrame(frame)
		panic(sig)
	}
}
