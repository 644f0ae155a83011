package emit

import (
	lerr "github.com/lua53go/engine/errors"
	"github.com/lua53go/engine/internal/ir"
	"github.com/lua53go/engine/internal/runtime"
)

func (fr *frame) execBinOp(call *runtime.Call, v *ir.BinOp) error {
	a := fr.get(v.Left)
	b := fr.get(v.Right)
	switch v.Op {
	case ir.OpEq:
		r, err := call.Dispatch.Eq(call, a, b)
		if err != nil {
			return err
		}
		fr.set(v.Dst, runtime.Bool(r))
		return nil
	case ir.OpNeq:
		r, err := call.Dispatch.Eq(call, a, b)
		if err != nil {
			return err
		}
		fr.set(v.Dst, runtime.Bool(!r))
		return nil
	case ir.OpLt:
		r, err := call.Dispatch.Lt(call, a, b)
		if err != nil {
			return err
		}
		fr.set(v.Dst, runtime.Bool(r))
		return nil
	case ir.OpLe:
		r, err := call.Dispatch.Le(call, a, b)
		if err != nil {
			return err
		}
		fr.set(v.Dst, runtime.Bool(r))
		return nil
	}

	event, ok := runtime.BinMetaEvent(v.Op.String())
	if !ok {
		return lerr.New(lerr.IllegalOperationAttempt, "emit: %s: unhandled binary operator %s", fr.cl.Name(), v.Op)
	}
	res, err := call.Dispatch.Arith(call, event, a, b)
	if err != nil {
		return err
	}
	fr.set(v.Dst, res)
	return nil
}

func (fr *frame) execUnOp(call *runtime.Call, v *ir.UnOp) error {
	src := fr.get(v.Src)
	switch v.Op {
	case ir.OpUnm:
		res, err := call.Dispatch.Unm(call, src)
		if err != nil {
			return err
		}
		fr.set(v.Dst, res)
		return nil
	case ir.OpLen:
		res, err := call.Dispatch.Len(call, src)
		if err != nil {
			return err
		}
		fr.set(v.Dst, res)
		return nil
	case ir.OpNot:
		fr.set(v.Dst, runtime.Bool(!src.Truthy()))
		return nil
	case ir.OpBNot:
		res, err := call.Dispatch.BNot(call, src)
		if err != nil {
			return err
		}
		fr.set(v.Dst, res)
		return nil
	}
	return lerr.New(lerr.IllegalOperationAttempt, "emit: %s: unhandled unary operator %s", fr.cl.Name(), v.Op)
}

// execConcat folds an n-ary Concat right-to-left, matching Lua's right
// associativity for `..` and letting each pairwise step honor __concat the
// same way a chain of BinOp{OpConcat} nodes would.
func (fr *frame) execConcat(call *runtime.Call, v *ir.Concat) error {
	n := len(v.Operands)
	if n == 0 {
		fr.set(v.Dst, runtime.Str(""))
		return nil
	}
	acc := fr.get(v.Operands[n-1])
	for i := n - 2; i >= 0; i-- {
		res, err := call.Dispatch.Arith(call, runtime.MetaConcat, fr.get(v.Operands[i]), acc)
		if err != nil {
			return err
		}
		acc = res
	}
	fr.set(v.Dst, acc)
	return nil
}

func numIsZero(v runtime.Value) bool { return v.AsFloat() == 0 }

func numIsPositive(v runtime.Value) bool { return v.AsFloat() > 0 }

// numLe compares two Lua numbers the way the reference `for` header does:
// mixed int/float compares by mathematical value.
func numLe(a, b runtime.Value) bool { return a.AsFloat() <= b.AsFloat() }
