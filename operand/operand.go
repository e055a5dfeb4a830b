// Package operand implements component B: the tagged Operand variant and
// its fetch/store behaviour against a machine Context.
package operand

import (
	"fmt"

	"pseudoasm"
	"pseudoasm/machine"
)

// Kind discriminates an Operand.
type Kind int

const (
	None Kind = iota
	Immediate
	Direct
	Indirect
	Register
	Special
	Label
	LinearArray
	MultiOperand
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Immediate:
		return "immediate"
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	case Register:
		return "register"
	case Special:
		return "special"
	case Label:
		return "label"
	case LinearArray:
		return "linear-array"
	case MultiOperand:
		return "multi-operand"
	default:
		return "unknown"
	}
}

// SpecialReg names one of the machine's named special registers.
type SpecialReg int

const (
	ACC SpecialReg = iota
	IX
	CMP
)

func (s SpecialReg) String() string {
	switch s {
	case ACC:
		return "ACC"
	case IX:
		return "IX"
	case CMP:
		return "CMP"
	default:
		return "?"
	}
}

// Operand is a tagged value describing where an instruction reads or
// writes a Cell. Only the fields relevant to Kind are meaningful; the
// zero value is Kind == None.
type Operand struct {
	Kind Kind

	Immediate pseudoasm.Cell
	Address   pseudoasm.Cell // Direct
	RegIndex  int            // Indirect, Register
	Special   SpecialReg

	// ViaSpecial, when set on an Indirect operand, means the address lives
	// in Special (e.g. "(IX)") rather than in the general-purpose register
	// file named by RegIndex (e.g. "(r3)").
	ViaSpecial bool

	Label string // unresolved until the parser's second pass

	Fill  pseudoasm.Cell // LinearArray
	Count int            // LinearArray

	Multi []Operand // MultiOperand
}

// At returns the i'th operand of a MultiOperand, or op itself if op is not
// a MultiOperand and i == 0. Used by executors for instructions whose
// arity is greater than one, per §4.B's "positional access by index".
func (op Operand) At(i int) (Operand, error) {
	if op.Kind == MultiOperand {
		if i < 0 || i >= len(op.Multi) {
			return Operand{}, fmt.Errorf("operand index %d out of range (arity %d)", i, len(op.Multi))
		}
		return op.Multi[i], nil
	}
	if i == 0 {
		return op, nil
	}
	return Operand{}, fmt.Errorf("operand index %d out of range (arity 1)", i)
}

// Arity reports how many positional operands op carries.
func (op Operand) Arity() int {
	if op.Kind == MultiOperand {
		return len(op.Multi)
	}
	if op.Kind == None {
		return 0
	}
	return 1
}

// Fetch reads the Cell this operand denotes, per the table in spec §4.B.
func (op Operand) Fetch(ctx *machine.Context) (pseudoasm.Cell, error) {
	switch op.Kind {
	case Immediate:
		return op.Immediate, nil
	case Direct:
		return ctx.Memory.Load(op.Address), nil
	case Indirect:
		addr, err := op.indirectAddress(ctx)
		if err != nil {
			return 0, err
		}
		return ctx.Memory.Load(addr), nil
	case Register:
		return ctx.Registers.Get(op.RegIndex)
	case Special:
		return fetchSpecial(ctx, op.Special), nil
	default:
		return 0, &pseudoasm.ExecError{Kind: pseudoasm.ErrBadOperand, PC: ctx.PC, Msg: "cannot read a " + op.Kind.String() + " operand"}
	}
}

// Store writes v to the Cell this operand denotes. Immediate, Label,
// LinearArray and MultiOperand operands cannot be stored to.
func (op Operand) Store(ctx *machine.Context, v pseudoasm.Cell) error {
	switch op.Kind {
	case Direct:
		ctx.Memory.Store(op.Address, v)
		return nil
	case Indirect:
		addr, err := op.indirectAddress(ctx)
		if err != nil {
			return err
		}
		ctx.Memory.Store(addr, v)
		return nil
	case Register:
		return ctx.Registers.Set(op.RegIndex, v)
	case Special:
		storeSpecial(ctx, op.Special, v)
		return nil
	default:
		return &pseudoasm.ExecError{Kind: pseudoasm.ErrBadOperand, PC: ctx.PC, Msg: "cannot write a " + op.Kind.String() + " operand"}
	}
}

// indirectAddress resolves the address an Indirect operand reads through,
// either a general register or a named special register.
func (op Operand) indirectAddress(ctx *machine.Context) (pseudoasm.Cell, error) {
	if op.ViaSpecial {
		return fetchSpecial(ctx, op.Special), nil
	}
	return ctx.Registers.Get(op.RegIndex)
}

func fetchSpecial(ctx *machine.Context, s SpecialReg) pseudoasm.Cell {
	switch s {
	case ACC:
		return ctx.ACC
	case IX:
		return ctx.IX
	case CMP:
		if ctx.CMP {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func storeSpecial(ctx *machine.Context, s SpecialReg, v pseudoasm.Cell) {
	switch s {
	case ACC:
		ctx.ACC = v
	case IX:
		ctx.IX = v
	case CMP:
		ctx.CMP = v != 0
	}
}
