package isa

import (
	"math/bits"

	"pseudoasm"
	"pseudoasm/machine"
	"pseudoasm/operand"
)

// Core executor identities. Stable across compile/load cycles: a
// persisted program stores the mnemonic string (see package persist) and
// re-resolves it to one of these ids at load time, so the numeric values
// themselves never need to be stable, only the mapping from mnemonic to
// id within one process.
const (
	idLDM ExecutorID = iota + 1
	idLDD
	idLDI
	idLDX
	idLDR
	idMOV
	idSTO
	idADD
	idSUB
	idINC
	idDEC
	idCMP
	idCMI
	idJMP
	idJPE
	idJPN
	idAND
	idOR
	idXOR
	idEND
	idCALL
	idRET
	idIN
	idOUT
)

// NewCore builds the always-present Core instruction set: the base case
// of the composition chain, with no parent.
func NewCore() Set {
	t := newTable(nil)

	t.register("LDM", idLDM, 1, 1, execLoadInto(accessACC))
	t.register("LDR", idLDR, 1, 1, execLoadInto(accessIX))
	t.register("LDD", idLDD, 1, 1, execLDD)
	t.register("LDI", idLDI, 1, 1, execLDI)
	t.register("LDX", idLDX, 1, 1, execLDX)
	t.register("MOV", idMOV, 2, 2, execMOV)
	t.register("STO", idSTO, 1, 1, execSTO)

	t.register("ADD", idADD, 1, 1, execArithUnary("add", func(a, b pseudoasm.Cell) (pseudoasm.Cell, bool) {
		r, carry := bits.Add64(a, b, 0)
		return r, carry != 0
	}))
	t.register("SUB", idSUB, 1, 1, execArithUnary("sub", func(a, b pseudoasm.Cell) (pseudoasm.Cell, bool) {
		r, borrow := bits.Sub64(a, b, 0)
		return r, borrow != 0
	}))
	t.register("INC", idINC, 1, 1, execArithInPlace("inc", true))
	t.register("DEC", idDEC, 1, 1, execArithInPlace("dec", false))

	t.register("CMP", idCMP, 1, 1, execCMP)
	t.register("CMI", idCMI, 1, 1, execCMI)
	t.register("JMP", idJMP, 1, 1, execJMP)
	t.register("JPE", idJPE, 1, 1, execBranchIf(true))
	t.register("JPN", idJPN, 1, 1, execBranchIf(false))

	t.register("AND", idAND, 1, 1, execBitwise(func(a, b pseudoasm.Cell) pseudoasm.Cell { return a & b }))
	t.register("OR", idOR, 1, 1, execBitwise(func(a, b pseudoasm.Cell) pseudoasm.Cell { return a | b }))
	t.register("XOR", idXOR, 1, 1, execBitwise(func(a, b pseudoasm.Cell) pseudoasm.Cell { return a ^ b }))

	t.register("END", idEND, 0, 0, execEND)
	t.register("CALL", idCALL, 1, 1, execCALL)
	t.register("RET", idRET, 0, 0, execRET)

	// IN/OUT accept either an explicit operand or none at all, in which
	// case ACC is the implicit source/destination (the form every
	// concrete program in spec §8 actually uses — "OUT" alone after
	// loading the character into ACC).
	t.register("IN", idIN, 0, 1, execIN)
	t.register("OUT", idOUT, 0, 1, execOUT)

	return t
}

// addressOf extracts the address a control-flow or address-arithmetic
// operand names, as distinct from Fetch's "dereference through memory"
// semantics. "JMP label", "LDX addr", "LDI addr" and "CMI addr" all need
// the address a Direct operand *is*, not the Cell stored at it — the
// resolved label/bare-literal value itself.
func addressOf(ctx *machine.Context, op operand.Operand) (pseudoasm.Cell, error) {
	switch op.Kind {
	case operand.Direct:
		return op.Address, nil
	case operand.Immediate:
		return op.Immediate, nil
	default:
		return op.Fetch(ctx)
	}
}

func accessACC(ctx *machine.Context) operand.Operand {
	return operand.Operand{Kind: operand.Special, Special: operand.ACC}
}

func accessIX(ctx *machine.Context) operand.Operand {
	return operand.Operand{Kind: operand.Special, Special: operand.IX}
}

// execLoadInto builds the LDM/LDR executor shape: dst := fetch(op), where
// dst is always the same special register regardless of what op is.
func execLoadInto(dst func(*machine.Context) operand.Operand) Executor {
	return func(ctx *machine.Context, op operand.Operand) (bool, error) {
		v, err := op.Fetch(ctx)
		if err != nil {
			return false, err
		}
		return false, dst(ctx).Store(ctx, v)
	}
}

func execLDD(ctx *machine.Context, op operand.Operand) (bool, error) {
	v, err := op.Fetch(ctx)
	if err != nil {
		return false, err
	}
	ctx.ACC = v
	return false, nil
}

// execLDI implements ACC := memory[memory[addr]]: op must resolve to an
// address (addressOf gives the address to re-read through), which is
// double indirection through memory rather than the register-indirect
// addressing operand.Indirect already models.
func execLDI(ctx *machine.Context, op operand.Operand) (bool, error) {
	addr, err := addressOf(ctx, op)
	if err != nil {
		return false, err
	}
	ctx.ACC = ctx.Memory.Load(ctx.Memory.Load(addr))
	return false, nil
}

// execLDX implements ACC := memory[addr + IX].
func execLDX(ctx *machine.Context, op operand.Operand) (bool, error) {
	addr, err := addressOf(ctx, op)
	if err != nil {
		return false, err
	}
	ctx.ACC = ctx.Memory.Load(addr + ctx.IX)
	return false, nil
}

func execMOV(ctx *machine.Context, op operand.Operand) (bool, error) {
	dst, err := op.At(0)
	if err != nil {
		return false, err
	}
	src, err := op.At(1)
	if err != nil {
		return false, err
	}
	v, err := src.Fetch(ctx)
	if err != nil {
		return false, err
	}
	return false, dst.Store(ctx, v)
}

func execSTO(ctx *machine.Context, op operand.Operand) (bool, error) {
	return false, op.Store(ctx, ctx.ACC)
}

// execArithUnary implements ADD/SUB's single-operand form: ACC := wrap(f(ACC, fetch(op))).
func execArithUnary(name string, f func(a, b pseudoasm.Cell) (pseudoasm.Cell, bool)) Executor {
	return func(ctx *machine.Context, op operand.Operand) (bool, error) {
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
}

// execArithInPlace implements INC/DEC: the named operand's own stored
// value is incremented/decremented by one, in place (so "INC IX"
// increments IX itself, not ACC).
func execArithInPlace(name string, increment bool) Executor {
	return func(ctx *machine.Context, op operand.Operand) (bool, error) {
		v, err := op.Fetch(ctx)
		if err != nil {
			return false, err
		}
		var result pseudoasm.Cell
		var overflowed bool
		if increment {
			result, overflowed = v+1, v == ^pseudoasm.Cell(0)
		} else {
			result, overflowed = v-1, v == 0
		}
		if err := op.Store(ctx, result); err != nil {
			return false, err
		}
		if overflowed {
			ctx.EffectiveLogger().Warnf("%v", pseudoasm.OverflowWarning{PC: ctx.PC, Mnemonic: ctx.CurrentMnemonic, Operation: name})
		}
		return false, nil
	}
}

func execCMP(ctx *machine.Context, op operand.Operand) (bool, error) {
	v, err := op.Fetch(ctx)
	if err != nil {
		return false, err
	}
	ctx.CMP = ctx.ACC == v
	return false, nil
}

// execCMI implements "compares ACC to memory[op]": two dereferences from
// op's own address, same depth as LDI's memory[memory[addr]].
func execCMI(ctx *machine.Context, op operand.Operand) (bool, error) {
	addr, err := addressOf(ctx, op)
	if err != nil {
		return false, err
	}
	ctx.CMP = ctx.ACC == ctx.Memory.Load(ctx.Memory.Load(addr))
	return false, nil
}

func execJMP(ctx *machine.Context, op operand.Operand) (bool, error) {
	addr, err := addressOf(ctx, op)
	if err != nil {
		return false, err
	}
	ctx.PC = addr
	return true, nil
}

func execBranchIf(want bool) Executor {
	return func(ctx *machine.Context, op operand.Operand) (bool, error) {
		if ctx.CMP != want {
			return false, nil
		}
		addr, err := addressOf(ctx, op)
		if err != nil {
			return false, err
		}
		ctx.PC = addr
		return true, nil
	}
}

func execBitwise(f func(a, b pseudoasm.Cell) pseudoasm.Cell) Executor {
	return func(ctx *machine.Context, op operand.Operand) (bool, error) {
		v, err := op.Fetch(ctx)
		if err != nil {
			return false, err
		}
		ctx.ACC = f(ctx.ACC, v)
		return false, nil
	}
}

func execEND(ctx *machine.Context, _ operand.Operand) (bool, error) {
	ctx.Halted = true
	return false, nil
}

// execCALL pushes the address of the instruction following the call and
// jumps. It relies on Program addresses being an ascending sequence of
// consecutive integers (spec §4.D), so ctx.PC+1 names that instruction.
func execCALL(ctx *machine.Context, op operand.Operand) (bool, error) {
	target, err := addressOf(ctx, op)
	if err != nil {
		return false, err
	}
	ctx.PushCall(ctx.PC + 1)
	ctx.PC = target
	return true, nil
}

func execRET(ctx *machine.Context, _ operand.Operand) (bool, error) {
	addr, err := ctx.PopCall()
	if err != nil {
		return false, err
	}
	ctx.PC = addr
	return true, nil
}

// impliedACC substitutes ACC for a None operand, the shape IN/OUT's
// zero-arity form takes.
func impliedACC(op operand.Operand) operand.Operand {
	if op.Kind == operand.None {
		return operand.Operand{Kind: operand.Special, Special: operand.ACC}
	}
	return op
}

func execIN(ctx *machine.Context, op operand.Operand) (bool, error) {
	dst := impliedACC(op)
	var v pseudoasm.Cell
	if ctx.Input == nil {
		ctx.EffectiveLogger().Warnf("%v", pseudoasm.IoWarning{PC: ctx.PC, Msg: "no input handle attached, read as EOF"})
	} else {
		b, err := ctx.Input.ReadByte()
		if err != nil {
			ctx.EffectiveLogger().Warnf("%v", pseudoasm.IoWarning{PC: ctx.PC, Msg: "EOF on IN"})
		} else {
			v = pseudoasm.Cell(b)
		}
	}
	return false, dst.Store(ctx, v)
}

func execOUT(ctx *machine.Context, op operand.Operand) (bool, error) {
	src := impliedACC(op)
	v, err := src.Fetch(ctx)
	if err != nil {
		return false, err
	}
	if ctx.Output == nil {
		return false, nil
	}
	return false, ctx.Output.WriteByte(byte(v & 0xff))
}
