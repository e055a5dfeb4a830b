// Package isa implements component C: a composable instruction set
// registry mapping mnemonics to stable executor identities, grounded on
// the teacher's InstMap/InstHandlers split into a parse/dispatch pair so
// sets can wrap one another (spec §4.C's "composition contract").
package isa

import (
	"strings"

	"pseudoasm"
	"pseudoasm/machine"
	"pseudoasm/operand"
)

// ExecutorID is a stable identifier for a handler in the currently
// selected instruction set. It must survive persistence: the on-disk
// form stores the mnemonic string instead (see package persist) and
// resolves it back to an ExecutorID at load time via Lookup.
type ExecutorID int

// Def describes one recognised mnemonic: its executor identity and the
// legal operand counts. MinArgs == MaxArgs for every mnemonic except the
// variadic ones (ZERO) and IN/OUT (zero or one operand). Mnemonics with
// more than one historical arity (Extended ADD/SUB, unary or ternary — see
// DESIGN.md's Open Question resolution) use LegalArities instead.
type Def struct {
	ID       ExecutorID
	Mnemonic string
	MinArgs  int
	MaxArgs  int // -1 means unbounded

	// LegalArities, when non-empty, is the exact set of accepted operand
	// counts, for mnemonics like extended ADD/SUB that accept exactly one
	// operand (operate on ACC) or exactly three (destination + two
	// sources) but never two. When empty, [MinArgs, MaxArgs] applies.
	LegalArities []int
}

// Accepts reports whether n operands is a legal arity for def.
func (d Def) Accepts(n int) bool {
	if len(d.LegalArities) > 0 {
		for _, a := range d.LegalArities {
			if a == n {
				return true
			}
		}
		return false
	}
	if d.MaxArgs < 0 {
		return n >= d.MinArgs
	}
	return n >= d.MinArgs && n <= d.MaxArgs
}

// Executor runs one dispatched instruction against ctx. It returns
// jumped == true when it altered ctx.PC itself (branches, CALL, RET),
// telling the engine to suppress automatic PC advancement.
type Executor func(ctx *machine.Context, op operand.Operand) (jumped bool, err error)

// Set is the abstract capability spec §4.C describes: total parse and
// dispatch functions over mnemonics, composable by wrapping a parent.
type Set interface {
	// Lookup recognises mnemonic (case-insensitively) or reports !ok.
	Lookup(mnemonic string) (Def, bool)
	// Dispatch invokes the executor behind id.
	Dispatch(id ExecutorID, ctx *machine.Context, op operand.Operand) (jumped bool, err error)
}

// table is the shared implementation behind Core and Extended: a set of
// locally-defined mnemonics plus an optional parent to delegate to on a
// miss. Both Lookup and Dispatch try the local table first.
type table struct {
	defs     map[string]Def
	execs    map[ExecutorID]Executor
	parent   Set
}

func newTable(parent Set) *table {
	return &table{
		defs:   make(map[string]Def),
		execs:  make(map[ExecutorID]Executor),
		parent: parent,
	}
}

func (t *table) register(mnemonic string, id ExecutorID, minArgs, maxArgs int, exec Executor) {
	t.defs[mnemonic] = Def{ID: id, Mnemonic: mnemonic, MinArgs: minArgs, MaxArgs: maxArgs}
	t.execs[id] = exec
}

func (t *table) registerArities(mnemonic string, id ExecutorID, arities []int, exec Executor) {
	t.defs[mnemonic] = Def{ID: id, Mnemonic: mnemonic, LegalArities: arities}
	t.execs[id] = exec
}

func (t *table) Lookup(mnemonic string) (Def, bool) {
	mnemonic = strings.ToUpper(mnemonic)
	if def, ok := t.defs[mnemonic]; ok {
		return def, true
	}
	if t.parent != nil {
		return t.parent.Lookup(mnemonic)
	}
	return Def{}, false
}

func (t *table) Dispatch(id ExecutorID, ctx *machine.Context, op operand.Operand) (bool, error) {
	if exec, ok := t.execs[id]; ok {
		return exec(ctx, op)
	}
	if t.parent != nil {
		return t.parent.Dispatch(id, ctx, op)
	}
	return false, &pseudoasm.ExecError{Kind: pseudoasm.ErrUnknownOp, PC: ctx.PC, Msg: "no executor registered for this id"}
}

// Mnemonics lists every mnemonic recognised by set, including inherited
// ones, for diagnostics and --help-style listings.
func Mnemonics(set Set) []string {
	var out []string
	type lister interface {
		list() []string
	}
	if l, ok := set.(lister); ok {
		out = append(out, l.list()...)
	}
	return out
}

func (t *table) list() []string {
	out := make([]string, 0, len(t.defs))
	for m := range t.defs {
		out = append(out, m)
	}
	if t.parent != nil {
		if l, ok := t.parent.(*table); ok {
			out = append(out, l.list()...)
		}
	}
	return out
}
