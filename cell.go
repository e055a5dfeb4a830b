// Package pseudoasm holds the types shared across the whole interpreter
// pipeline: the Cell value, source positions, the error taxonomy, and the
// logging seam the rest of the packages are injected with.
package pseudoasm

import "strconv"

// Cell is the unit of storage for every memory address and register. All
// arithmetic on a Cell wraps modulo 2^64; overflow is reported through a
// Logger, never by returning an error.
type Cell = uint64

// Position locates a lexeme or diagnostic in the original source text.
type Position struct {
	Line   int // 1-based
	Col    int // 1-based, in runes
	Offset int // 0-based byte offset
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}
