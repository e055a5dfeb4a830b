package isa

import (
	"math/bits"

	"pseudoasm"
	"pseudoasm/machine"
	"pseudoasm/operand"
)

const (
	idADDX ExecutorID = iota + 100
	idSUBX
	idZERO
	idNOP
)

// NewExtended wraps parent (normally Core) with the historical
// multi-operand arithmetic forms and the two convenience mnemonics
// ZERO/NOP, per spec §4.C. Lookup and Dispatch both try the local table
// first and fall back to parent on a miss, per the composition contract.
func NewExtended(parent Set) Set {
	t := newTable(parent)

	t.registerArities("ADD", idADDX, []int{1, 3}, execArithVariadic("add", func(a, b pseudoasm.Cell) (pseudoasm.Cell, bool) {
		r, carry := bits.Add64(a, b, 0)
		return r, carry != 0
	}))
	t.registerArities("SUB", idSUBX, []int{1, 3}, execArithVariadic("sub", func(a, b pseudoasm.Cell) (pseudoasm.Cell, bool) {
		r, borrow := bits.Sub64(a, b, 0)
		return r, borrow != 0
	}))
	t.register("ZERO", idZERO, 1, -1, execZERO)
	t.register("NOP", idNOP, 0, 0, execNOP)

	return t
}

// execArithVariadic handles both the unary form (operate on ACC, shared
// with Core's ADD/SUB) and the destination+two-sources ternary form
// ("ADD dst, a, b" => dst = a + b").
func execArithVariadic(name string, f func(a, b pseudoasm.Cell) (pseudoasm.Cell, bool)) Executor {
	return func(ctx *machine.Context, op operand.Operand) (bool, error) {
		if op.Arity() == 1 {
			v, err := op.Fetch(ctx)
			if err != nil {
				return false, err
			}
			result, overflowed := f(ctx.ACC, v)
			ctx.ACC = result
			if overflowed {
				ctx.EffectiveLogger().Warnf("%v", pseudoasm.OverflowWarning{PC: ctx.PC, Mnemonic: ctx.CurrentMnemonic, Operation: name})
			}
			return false, nil
		}
		dst, err := op.At(0)
		if err != nil {
			return false, err
		}
		a, err := op.At(1)
		if err != nil {
			return false, err
		}
		b, err := op.At(2)
		if err != nil {
			return false, err
		}
		av, err := a.Fetch(ctx)
		if err != nil {
			return false, err
		}
		bv, err := b.Fetch(ctx)
		if err != nil {
			return false, err
		}
		result, overflowed := f(av, bv)
		if overflowed {
			ctx.EffectiveLogger().Warnf("%v", pseudoasm.OverflowWarning{PC: ctx.PC, Mnemonic: ctx.CurrentMnemonic, Operation: name})
		}
		return false, dst.Store(ctx, result)
	}
}

func execZERO(ctx *machine.Context, op operand.Operand) (bool, error) {
	for i := 0; i < op.Arity(); i++ {
		target, err := op.At(i)
		if err != nil {
			return false, err
		}
		if err := target.Store(ctx, 0); err != nil {
			return false, err
		}
	}
	return false, nil
}

func execNOP(ctx *machine.Context, _ operand.Operand) (bool, error) {
	return false, nil
}
