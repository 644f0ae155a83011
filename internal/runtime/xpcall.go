package runtime

import lerr "github.com/lua53go/engine/errors"

// pcallFrame is the Resumable pcall/xpcall installs as an error-handler
// boundary: when a pendingErr reaches it, it converts the error into a
// (false, message) result pair instead of letting it continue unwinding
// (spec.md 4.10's propagation policy).
type pcallFrame struct {
	call     *Call
	target   Value
	args     []Value
	handler  Value // Nil for pcall, the message handler for xpcall
	started  bool
}

func (f *pcallFrame) IsErrorHandler() bool { return true }

func (f *pcallFrame) Run(call *Call, pendingErr error) ([]Value, error) {
	if pendingErr != nil {
		return f.handleError(call, pendingErr)
	}
	if !f.started {
		f.started = true
		results, err := call.Dispatch.Call(call, f.target, f.args)
		if err != nil {
			return f.handleError(call, err)
		}
		return append([]Value{Bool(true)}, results...), nil
	}
	// Resumed after a prior suspension inside the protected call with no
	// error: the protected call's own continuation already returned
	// through call.PendingResult(); wrap it as success.
	return append([]Value{Bool(true)}, call.PendingResult()...), nil
}

// handleError converts a pending error into the (false, message) pair
// pcall/xpcall return, running the message handler first if one was given.
func (f *pcallFrame) handleError(call *Call, cause error) ([]Value, error) {
	msg := errorValue(cause)
	if !f.handler.IsNil() {
		if call.handlerDepth >= DefaultHandlerDepthLimit {
			return nil, lerr.New(lerr.IllegalOperationAttempt, "error handler depth limit exceeded")
		}
		call.handlerDepth++
		results, err := call.Dispatch.Call(call, f.handler, []Value{msg})
		call.handlerDepth--
		if err != nil {
			return append([]Value{Bool(false)}, errorValue(err)), nil
		}
		if len(results) == 0 {
			results = []Value{Nil}
		}
		return append([]Value{Bool(false)}, results[0]), nil
	}
	return []Value{Bool(false), msg}, nil
}

func errorValue(err error) Value {
	if re, ok := err.(*lerr.RuntimeError); ok && re.Kind == lerr.LuaRuntimeError {
		if v, ok := re.Value.(Value); ok {
			return v
		}
		return Str(re.Message)
	}
	return Str(err.Error())
}

// Pcall implements the `pcall` builtin: protect target(args...), catching
// any catchable error and returning (true, results...) or (false, message).
func Pcall(call *Call, target Value, args []Value) ([]Value, error) {
	return runProtected(call, target, args, Nil)
}

// Xpcall implements the `xpcall` builtin with an explicit message handler.
func Xpcall(call *Call, target Value, handler Value, args []Value) ([]Value, error) {
	return runProtected(call, target, args, handler)
}

func runProtected(call *Call, target Value, args []Value, handler Value) (results []Value, err error) {
	frame := &pcallFrame{call: call, target: target, args: args, handler: handler}
	// pcall itself must participate in the suspend/resume protocol like
	// any other call: it pushes its frame onto the current coroutine and
	// lets the executor drive it, so a yield inside the protected call
	// still surfaces correctly to the caller. Since Dispatch.Call already
	// runs synchronously within the current Go call stack (see
	// signal.go), we run the frame directly here and let any Signal
	// propagate through normally; the executor's own recover at the top
	// of runFrame will push this frame back if it suspends.
	defer func() {
		if r := recover(); r != nil {
			Propagate(r, &ResumeInfo{Frame: frame})
		}
	}()
	results, err = frame.Run(call, nil)
	return
}
