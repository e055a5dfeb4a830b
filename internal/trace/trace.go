// Package trace implements the ambient diagnostics cmd/pasm's repeatable
// --verbose flag turns on: one line per dispatched instruction at level
// 1, plus a dump of the operand and of ACC, IX, CMP and PC at level 2. It is grounded on the
// teacher's use of github.com/k0kubun/pp/v3 for pretty-printing compiler
// artefacts (debug/objdump.go's pp.Println(obj), shared/assembler's
// pp.Fprintf(os.Stderr, ...)) — generalised here from a one-shot object
// dump to a per-step trace sink.
package trace

import (
	"io"
	"time"

	"github.com/k0kubun/pp/v3"

	"pseudoasm"
	"pseudoasm/machine"
)

// Tracer writes step-by-step diagnostics to an io.Writer. A nil *Tracer
// is valid and silent, so callers needn't guard every call site behind
// an "if verbose" check.
type Tracer struct {
	w     io.Writer
	level int
}

// New returns a Tracer at the given verbosity level (the count of
// repeated --verbose flags). Level 0 is silent; New(w, 0) still returns
// a non-nil Tracer so callers can pass it through uniformly, but no
// level-0 *Tracer will ever print.
func New(w io.Writer, level int) *Tracer {
	return &Tracer{w: w, level: level}
}

// Step records one dispatched instruction. At level 1 it prints a
// compact "pc: MNEMONIC" line; level 2 adds a pretty-printed dump of the
// operand and of ACC, IX, CMP and PC after the instruction runs (the
// general-purpose register file is not dumped).
func (t *Tracer) Step(pc pseudoasm.Cell, mnemonic string, op any, ctx *machine.Context) {
	if t == nil || t.level < 1 {
		return
	}
	pp.Fprintf(t.w, "%04d: %s\n", pc, mnemonic)
	if t.level < 2 {
		return
	}
	pp.Fprintln(t.w, op)
	pp.Fprintln(t.w, registerSnapshot{
		ACC: ctx.ACC,
		IX:  ctx.IX,
		CMP: ctx.CMP,
		PC:  ctx.PC,
	})
}

// registerSnapshot is the level-2 per-step dump shape; a small value
// type keeps pp's field-name-and-value rendering readable instead of
// dumping the whole Context (call stack, memory, I/O handles included).
type registerSnapshot struct {
	ACC pseudoasm.Cell
	IX  pseudoasm.Cell
	CMP bool
	PC  pseudoasm.Cell
}

// Bench reports wall-clock timing for a completed run. Only cmd/pasm
// calls time.Now, at the embedder boundary (spec §4.E/§9); Bench just
// formats a duration it's handed.
func (t *Tracer) Bench(steps uint64, elapsed time.Duration) {
	if t == nil || t.level < 1 {
		return
	}
	pp.Fprintf(t.w, "%d steps in %s\n", steps, elapsed)
}
