package emit

import (
	lerr "github.com/lua53go/engine/errors"
	"github.com/lua53go/engine/internal/ir"
	"github.com/lua53go/engine/internal/runtime"
)

// exec is the body of frame.Run: it interprets code one block at a time
// from fr.at, re-entering at exactly the point a prior Run call suspended
// or returned plain-error'd from. A Signal panicking out of execNode or
// execTerm is not caught here — it propagates straight through to Run's
// deferred Propagate, carrying the frame chain outward.
func (fr *frame) exec(call *runtime.Call, pendingErr error) ([]runtime.Value, error) {
	if pendingErr != nil {
		return nil, pendingErr
	}

	if fr.awaiting != nil {
		fr.setMulti(fr.awaiting, call.PendingResult())
		fr.awaiting = nil
	}

	code := fr.cl.tmpl.Fn.Code
	for {
		block := code.ByLabel(fr.at.block)
		if block == nil {
			panic(lerr.New(lerr.IllegalOperationAttempt, "emit: %s: no block labeled L%d", fr.cl.Name(), fr.at.block))
		}

		for fr.at.idx < len(block.Body) {
			n := block.Body[fr.at.idx]
			// Advance before executing: if n suspends, resuming this frame
			// must land past it, not re-run it.
			fr.at.idx++
			if err := fr.execNode(call, n); err != nil {
				return nil, err
			}
		}

		next, results, done, err := fr.execTerm(call, block.Term)
		if err != nil {
			return nil, err
		}
		if done {
			return results, nil
		}
		fr.at = point{block: next}
	}
}

// execNode interprets one body Node. It returns a plain Lua-level error to
// unwind normally; a Call that suspends panics with a Signal instead, which
// this function does not (and must not) recover.
func (fr *frame) execNode(call *runtime.Call, n ir.Node) error {
	switch v := n.(type) {
	case *ir.LoadConst:
		fr.set(v.Dst, constValue(v))
		return nil

	case *ir.BinOp:
		return fr.execBinOp(call, v)

	case *ir.UnOp:
		return fr.execUnOp(call, v)

	case *ir.Concat:
		return fr.execConcat(call, v)

	case *ir.ToNumber:
		src := fr.get(v.Src)
		n, ok := runtime.CoerceToNumber(src)
		if !ok {
			return lerr.New(lerr.ConversionFailure, "attempt to convert a %s value to a number", src.Type)
		}
		fr.set(v.Dst, n)
		return nil

	case *ir.TabNew:
		fr.set(v.Dst, runtime.Table(call.State.Tables.NewTable()))
		return nil

	case *ir.TabGet:
		val, err := call.Dispatch.Index(call, fr.get(v.Tab), fr.get(v.Key))
		if err != nil {
			return err
		}
		fr.set(v.Dst, val)
		return nil

	case *ir.TabSet:
		return call.Dispatch.SetIndex(call, fr.get(v.Tab), fr.get(v.Key), fr.get(v.Val))

	case *ir.TabRawSetInt:
		fr.get(v.Tab).AsTable().Set(runtime.Int(v.Index), fr.get(v.Val))
		return nil

	case *ir.TabStackAppend:
		tab := fr.get(v.Tab).AsTable()
		base := tab.Len()
		for i, val := range fr.getMulti(v.Multi) {
			tab.Set(runtime.Int(base+int64(i)+1), val)
		}
		return nil

	case *ir.VarInit:
		fr.bind(v.Dst, fr.get(v.Src))
		return nil

	case *ir.VarLoad:
		fr.set(v.Dst, fr.get(v.Src))
		return nil

	case *ir.VarStore:
		fr.set(v.Dst, fr.get(v.Src))
		return nil

	case *ir.UpLoad:
		fr.set(v.Dst, fr.cellForUpVar(v.Src).V)
		return nil

	case *ir.UpStore:
		fr.cellForUpVar(v.Dst).V = fr.get(v.Src)
		return nil

	case *ir.PhiLoad:
		fr.set(v.Dst, fr.get(v.Src))
		return nil

	case *ir.PhiStore:
		fr.set(v.Dst, fr.get(v.Src))
		return nil

	case *ir.MultiGet:
		fr.set(v.Dst, multiProject(fr.getMulti(v.Src), v.Index))
		return nil

	case *ir.Vararg:
		fr.setMulti(v.Dst, fr.vararg)
		return nil

	case *ir.Bundle:
		vs := make([]runtime.Value, 0, len(v.Vals)+1)
		for _, e := range v.Vals {
			vs = append(vs, fr.get(e))
		}
		if v.Tail != nil {
			vs = append(vs, fr.getMulti(v.Tail)...)
		}
		fr.setMulti(v.Dst, vs)
		return nil

	case *ir.Call:
		return fr.execCall(call, v)

	case *ir.MakeClosure:
		upvals := make([]*Cell, len(v.Sources))
		for i, src := range v.Sources {
			upvals[i] = fr.cellFor(src)
		}
		fr.set(v.Dst, fr.cl.tmpl.Resolve.Closure(v.Target, upvals))
		return nil

	case *ir.Line:
		return nil

	case *ir.CpuWithdraw:
		call.Scheduler.RegisterTicks(v.Ticks)
		runtime.PauseIfRequested(call.Scheduler, &runtime.ResumeInfo{Frame: fr})
		return nil
	}
	return lerr.New(lerr.IllegalOperationAttempt, "emit: %s: unhandled node type %T", fr.cl.Name(), n)
}

// execTerm interprets a block's Terminator. done reports whether the
// function itself has finished (RetTerm/TCallTerm); otherwise next names
// the label execution resumes at.
func (fr *frame) execTerm(call *runtime.Call, t ir.Terminator) (next ir.Label, results []runtime.Value, done bool, err error) {
	switch v := t.(type) {
	case *ir.ToNextTerm:
		return v.Target, nil, false, nil

	case *ir.BranchTerm:
		if fr.get(v.Cond).Truthy() {
			return v.Then, nil, false, nil
		}
		return v.Else, nil, false, nil

	case *ir.ForTestTerm:
		return fr.execForTest(v)

	case *ir.RetTerm:
		return 0, fr.getMulti(v.Multi), true, nil

	case *ir.TCallTerm:
		target := fr.get(v.Target)
		args := fr.evalArgs(v.Args, v.ArgsTail)
		// Record the pending call on the coroutine's return buffer instead
		// of invoking it here: Call.Resume's drive loop replaces this frame
		// with the callee rather than recursing, so a long tail-call chain
		// grows the buffer's target/args, not the Go stack.
		call.TailCall(target, args)
		return 0, nil, true, nil
	}
	return 0, nil, false, lerr.New(lerr.IllegalOperationAttempt, "emit: %s: unhandled terminator %T", fr.cl.Name(), t)
}

func (fr *frame) execCall(call *runtime.Call, v *ir.Call) error {
	target := fr.get(v.Target)
	args := fr.evalArgs(v.Args, v.ArgsTail)
	fr.awaiting = v.Dst
	results, err := call.Dispatch.Call(call, target, args)
	fr.awaiting = nil
	if err != nil {
		return err
	}
	fr.setMulti(v.Dst, results)
	return nil
}

func (fr *frame) execForTest(v *ir.ForTestTerm) (ir.Label, []runtime.Value, bool, error) {
	step := fr.get(v.Step)
	if numIsZero(step) {
		return 0, nil, false, lerr.New(lerr.IllegalOperationAttempt, "'for' step is zero")
	}
	init := fr.get(v.Init)
	limit := fr.get(v.Limit)
	var runBody bool
	if numIsPositive(step) {
		runBody = numLe(init, limit)
	} else {
		runBody = numLe(limit, init)
	}
	if runBody {
		return v.Body, nil, false, nil
	}
	return v.Exit, nil, false, nil
}

func constValue(v *ir.LoadConst) runtime.Value {
	switch v.Kind {
	case ir.ConstNil:
		return runtime.Nil
	case ir.ConstBool:
		return runtime.Bool(v.Bool)
	case ir.ConstInt:
		return runtime.Int(v.Int)
	case ir.ConstFlt:
		return runtime.Float(v.Flt)
	case ir.ConstStr:
		return runtime.Str(v.Str)
	}
	return runtime.Nil
}

// multiProject implements MultiGet: index >= 0 reads one element (Nil past
// the end); index < 0 reads the first surviving element of the tail
// starting at -index-1 (Nil if that, too, runs past the end). A true
// multi-valued tail projection would need a MultiVal destination, which
// MultiGet's single-Val Dst does not provide — translators that need the
// whole tail use a MultiVal-producing node instead (Vararg, Call's Dst).
func multiProject(vs []runtime.Value, index int) runtime.Value {
	i := index
	if i < 0 {
		i = -i - 1
	}
	if i >= 0 && i < len(vs) {
		return vs[i]
	}
	return runtime.Nil
}
