package assembler

import (
	"strconv"
	"strings"

	"pseudoasm"
	"pseudoasm/operand"
	"pseudoasm/token"
)

func cellFromToken(tok token.Token) (pseudoasm.Cell, error) {
	v, err := strconv.ParseUint(tok.Text, tok.Base, 64)
	if err != nil {
		return 0, &pseudoasm.LexError{Pos: tok.Pos, Msg: "malformed integer literal: " + err.Error()}
	}
	return pseudoasm.Cell(v), nil
}

// parseOperand turns one comma-separated group of tokens into an Operand,
// per the grammar in spec §4.B/§6. Label operands are left unresolved
// (Kind == operand.Label) for the parser's second pass.
func parseOperand(group []token.Token, registerCount int) (operand.Operand, error) {
	switch {
	case len(group) == 1:
		return parseScalarOperand(group[0], registerCount)
	case len(group) == 3 && group[0].Kind == token.LParen && group[2].Kind == token.RParen:
		if group[1].Kind != token.Identifier {
			return operand.Operand{}, &pseudoasm.ParseError{Pos: group[1].Pos, Msg: "indirect operand must name a register or ACC/IX"}
		}
		return parseIndirectOperand(group[1], registerCount)
	case len(group) == 0:
		return operand.Operand{}, &pseudoasm.ParseError{Msg: "empty operand (stray comma?)"}
	default:
		return operand.Operand{}, &pseudoasm.ParseError{Pos: group[0].Pos, Msg: "malformed operand"}
	}
}

func parseScalarOperand(tok token.Token, registerCount int) (operand.Operand, error) {
	switch tok.Kind {
	case token.Integer:
		v, err := cellFromToken(tok)
		if err != nil {
			return operand.Operand{}, err
		}
		if tok.Hashed {
			return operand.Operand{Kind: operand.Immediate, Immediate: v}, nil
		}
		return operand.Operand{Kind: operand.Direct, Address: v}, nil
	case token.Identifier:
		return parseIdentOperand(tok, registerCount)
	default:
		return operand.Operand{}, &pseudoasm.ParseError{Pos: tok.Pos, Msg: "unexpected token in operand position: " + tok.Kind.String()}
	}
}

func parseIdentOperand(tok token.Token, registerCount int) (operand.Operand, error) {
	upper := strings.ToUpper(tok.Text)
	switch upper {
	case "ACC":
		return operand.Operand{Kind: operand.Special, Special: operand.ACC}, nil
	case "IX":
		return operand.Operand{Kind: operand.Special, Special: operand.IX}, nil
	case "CMP":
		return operand.Operand{Kind: operand.Special, Special: operand.CMP}, nil
	}
	if idx, ok := parseRegisterName(upper); ok {
		if idx < 0 || idx >= registerCount {
			return operand.Operand{}, &pseudoasm.ParseError{Pos: tok.Pos, Msg: "register index out of range", Label: tok.Text}
		}
		return operand.Operand{Kind: operand.Register, RegIndex: idx}, nil
	}
	return operand.Operand{Kind: operand.Label, Label: tok.Text}, nil
}

func parseIndirectOperand(tok token.Token, registerCount int) (operand.Operand, error) {
	upper := strings.ToUpper(tok.Text)
	switch upper {
	case "ACC":
		return operand.Operand{Kind: operand.Indirect, ViaSpecial: true, Special: operand.ACC}, nil
	case "IX":
		return operand.Operand{Kind: operand.Indirect, ViaSpecial: true, Special: operand.IX}, nil
	}
	if idx, ok := parseRegisterName(upper); ok {
		if idx < 0 || idx >= registerCount {
			return operand.Operand{}, &pseudoasm.ParseError{Pos: tok.Pos, Msg: "register index out of range", Label: tok.Text}
		}
		return operand.Operand{Kind: operand.Indirect, RegIndex: idx}, nil
	}
	return operand.Operand{}, &pseudoasm.ParseError{Pos: tok.Pos, Msg: "indirect operand must name a register or ACC/IX", Label: tok.Text}
}

// parseRegisterName recognises "R<digits>" case-insensitively, per
// spec §4.D's "register names are case-insensitive".
func parseRegisterName(upper string) (int, bool) {
	if len(upper) < 2 || upper[0] != 'R' {
		return 0, false
	}
	n, err := strconv.Atoi(upper[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// dataValue is the right-hand side of a data declaration: either a single
// Cell or a LinearArray(fill, count) to be expanded across consecutive
// addresses.
type dataValue struct {
	scalar  pseudoasm.Cell
	isArray bool
	fill    pseudoasm.Cell
	count   int
}

func parseDataValue(toks []token.Token) (dataValue, error) {
	if len(toks) == 0 {
		return dataValue{}, &pseudoasm.ParseError{Msg: "data declaration is missing a value"}
	}
	if toks[0].Kind == token.Integer {
		if len(toks) != 1 {
			return dataValue{}, &pseudoasm.ParseError{Pos: toks[0].Pos, Msg: "unexpected tokens after data value"}
		}
		v, err := cellFromToken(toks[0])
		if err != nil {
			return dataValue{}, err
		}
		return dataValue{scalar: v}, nil
	}
	if toks[0].Kind == token.LBracket {
		if len(toks) != 5 || toks[1].Kind != token.Integer || toks[2].Kind != token.Semicolon ||
			toks[3].Kind != token.Integer || toks[4].Kind != token.RBracket {
			return dataValue{}, &pseudoasm.ParseError{Pos: toks[0].Pos, Msg: "malformed array literal, want [fill;count]"}
		}
		fill, err := cellFromToken(toks[1])
		if err != nil {
			return dataValue{}, err
		}
		countCell, err := cellFromToken(toks[3])
		if err != nil {
			return dataValue{}, err
		}
		return dataValue{isArray: true, fill: fill, count: int(countCell)}, nil
	}
	return dataValue{}, &pseudoasm.ParseError{Pos: toks[0].Pos, Msg: "expected a Cell literal or an array literal"}
}
