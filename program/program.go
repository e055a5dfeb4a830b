// Package program is the addressed-instruction representation that sits
// between the parser (which produces it) and both the execution engine
// and the persistence adapter (which consume it): spec §3's "Program".
package program

import (
	"sort"

	"pseudoasm"
	"pseudoasm/isa"
	"pseudoasm/operand"
)

// HaltSentinel is the PC value meaning "there is no next instruction".
// It is deliberately distinct from any real address (addresses are
// assigned sequentially from zero by the assembler) so that walking off
// the end of a program that never executed END is observably different
// from a clean halt.
const HaltSentinel = ^pseudoasm.Cell(0)

// Instruction is spec §3's (ExecutorId, Operand) pair. Mnemonic is carried
// alongside the id so persistence can round-trip through a different
// instruction-set configuration (spec §4.F) and so warnings and traces can
// name the instruction; the engine always dispatches via ID.
type Instruction struct {
	ExecutorID isa.ExecutorID
	Mnemonic   string
	Operand    operand.Operand
}

// Entry is one addressed instruction, plus the address execution should
// continue at if the instruction did not alter the PC itself.
type Entry struct {
	Address     pseudoasm.Cell
	Instruction Instruction
	Next        pseudoasm.Cell // HaltSentinel if this is the last entry
}

// Program is an ordered sequence of addressed instructions plus the
// initial memory image built from data declarations (spec §3/§4.D).
type Program struct {
	Entries map[pseudoasm.Cell]Entry
	Order   []pseudoasm.Cell // ascending, Entries' keys
	Data    map[pseudoasm.Cell]pseudoasm.Cell
	Debug   *DebugInfo // nil unless the caller asked for it
}

// DebugInfo is the optional retained-debuginfo record from spec §4.D/§6.
type DebugInfo struct {
	SourceLine map[pseudoasm.Cell]uint32
	Label      map[pseudoasm.Cell]string
	Globals    map[string]bool // labels declared GLOBAL, SPEC_FULL §4.G
}

// New builds a Program from an ordered list of instructions (addresses
// 0..n-1, matching spec §4.D's "addresses assigned sequentially") and a
// data image.
func New(instructions []Instruction, data map[pseudoasm.Cell]pseudoasm.Cell) *Program {
	p := &Program{
		Entries: make(map[pseudoasm.Cell]Entry, len(instructions)),
		Order:   make([]pseudoasm.Cell, len(instructions)),
		Data:    data,
	}
	for i, inst := range instructions {
		addr := pseudoasm.Cell(i)
		p.Order[i] = addr
		p.Entries[addr] = Entry{Address: addr, Instruction: inst}
	}
	p.relinkNext()
	return p
}

// relinkNext recomputes every Entry's Next field from Order. Called after
// New and after any direct mutation of Order/Entries (e.g. by persist on
// load).
func (p *Program) relinkNext() {
	sort.Slice(p.Order, func(i, j int) bool { return p.Order[i] < p.Order[j] })
	for i, addr := range p.Order {
		e := p.Entries[addr]
		if i+1 < len(p.Order) {
			e.Next = p.Order[i+1]
		} else {
			e.Next = HaltSentinel
		}
		p.Entries[addr] = e
	}
}

// Lookup returns the Entry at addr, or !ok if addr names no instruction.
func (p *Program) Lookup(addr pseudoasm.Cell) (Entry, bool) {
	e, ok := p.Entries[addr]
	return e, ok
}

// FromEntries rebuilds a Program from a set of entries whose relative
// order is already known — used by package persist when deserializing,
// where addresses may not start at zero or be contiguous if the source
// program had data interleaved unusually.
func FromEntries(entries []Entry, data map[pseudoasm.Cell]pseudoasm.Cell, debug *DebugInfo) *Program {
	p := &Program{
		Entries: make(map[pseudoasm.Cell]Entry, len(entries)),
		Order:   make([]pseudoasm.Cell, 0, len(entries)),
		Data:    data,
		Debug:   debug,
	}
	for _, e := range entries {
		p.Order = append(p.Order, e.Address)
		p.Entries[e.Address] = e
	}
	p.relinkNext()
	return p
}
