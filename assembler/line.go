package assembler

import (
	"pseudoasm"
	"pseudoasm/token"
)

// statement is one classified line after macro expansion: an optional
// label and the tokens that follow it, matching spec §6's line grammar
// "[LABEL ':'] [MNEMONIC [OPERAND (',' OPERAND)*]]".
type statement struct {
	label    string
	labelPos pseudoasm.Position
	rest     []token.Token
	pos      pseudoasm.Position
}

// tokenizeLines lexes src in full and groups tokens by source line,
// splitting off a leading "IDENT ':'" as the statement's label. Empty
// lines (no tokens at all) are dropped; a label with nothing after it is
// kept, since a bare label line is meaningful (spec §4.D's "NONE:"
// code/data boundary marker).
func tokenizeLines(src string) ([]statement, error) {
	lx := token.New(src)
	var stmts []statement
	var cur []token.Token

	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		st, err := toStatement(cur)
		if err != nil {
			return err
		}
		stmts = append(stmts, st)
		cur = nil
		return nil
	}

	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case token.EOF:
			if err := flush(); err != nil {
				return nil, err
			}
			return stmts, nil
		case token.Newline:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur = append(cur, tok)
		}
	}
}

func toStatement(toks []token.Token) (statement, error) {
	pos := toks[0].Pos
	if len(toks) >= 2 && toks[0].Kind == token.Identifier && toks[1].Kind == token.Colon {
		return statement{label: toks[0].Text, labelPos: toks[0].Pos, rest: toks[2:], pos: pos}, nil
	}
	return statement{rest: toks, pos: pos}, nil
}

// splitOperandGroups splits an instruction's trailing tokens on Comma into
// one slice of tokens per operand.
func splitOperandGroups(toks []token.Token) [][]token.Token {
	if len(toks) == 0 {
		return nil
	}
	var groups [][]token.Token
	var cur []token.Token
	for _, t := range toks {
		if t.Kind == token.Comma {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	groups = append(groups, cur)
	return groups
}
