// Package vm implements component F: the interpreter loop that walks a
// compiled Program against a machine.Context, dispatching through an
// isa.Set.
package vm

import (
	"context"

	"pseudoasm"
	"pseudoasm/isa"
	"pseudoasm/machine"
	"pseudoasm/program"
)

// Engine owns one Program and one Context for the duration of a run,
// matching spec §3's lifecycle ("A Program plus a freshly initialised
// Context... is owned by an Executor").
type Engine struct {
	Program *program.Program
	Context *machine.Context
	Set     isa.Set
}

// New creates an Engine. The Context's memory is seeded from prog.Data
// before the first step.
func New(prog *program.Program, ctx *machine.Context, set isa.Set) *Engine {
	for addr, v := range prog.Data {
		ctx.Memory.Store(addr, v)
	}
	return &Engine{Program: prog, Context: ctx, Set: set}
}

// Run executes until halt, a fatal ExecError, or ctx's cancellation,
// whichever comes first. It never calls time.Now or any other wall-clock
// API itself — a deadline on the supplied context.Context is the only
// timing mechanism the core exposes (spec §5/§9).
func (e *Engine) Run(ctx context.Context) error {
	for {
		if e.Context.Halted {
			return nil
		}
		select {
		case <-ctx.Done():
			return &pseudoasm.ExecError{Kind: pseudoasm.ErrCancelled, PC: e.Context.PC, Msg: ctx.Err().Error()}
		default:
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
}

// Step dispatches exactly one instruction, per the loop in spec §4.E.
func (e *Engine) Step() error {
	entry, ok := e.Program.Lookup(e.Context.PC)
	if !ok {
		return &pseudoasm.ExecError{Kind: pseudoasm.ErrOutOfBounds, PC: e.Context.PC, Msg: "program counter does not name an instruction"}
	}

	e.Context.CurrentMnemonic = entry.Instruction.Mnemonic
	jumped, err := e.Set.Dispatch(entry.Instruction.ExecutorID, e.Context, entry.Instruction.Operand)
	if err != nil {
		var execErr *pseudoasm.ExecError
		if as, ok := err.(*pseudoasm.ExecError); ok {
			execErr = as
		} else {
			execErr = &pseudoasm.ExecError{Kind: pseudoasm.ErrBadOperand, PC: e.Context.PC, Msg: err.Error()}
		}
		if execErr.PC == 0 {
			execErr.PC = e.Context.PC
		}
		return execErr
	}

	e.Context.Step()
	if !jumped {
		e.Context.PC = entry.Next
	}
	return nil
}

// Steps reports how many instructions have been dispatched.
func (e *Engine) Steps() uint64 { return e.Context.Steps() }
