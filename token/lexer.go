package token

import (
	"pseudoasm"
	"strings"
)

// Lexer turns source text into a Token stream. It is grounded on the
// teacher's line-oriented parseAsmLine, generalized into a real
// character-by-character scanner so that byte offsets, multiple integer
// bases, and bracketed array literals are first-class instead of being
// pulled apart with strings.Fields and regexes after the fact.
type Lexer struct {
	src        []byte
	pos        int
	line, col  int
	peeked     *Token
	peekedErr  error
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: []byte(src), line: 1, col: 1}
}

func (l *Lexer) position() pseudoasm.Position {
	return pseudoasm.Position{Line: l.line, Col: l.col, Offset: l.pos}
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) peekByte() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

// Next returns the next Token, or a *pseudoasm.LexError.
func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		t, err := *l.peeked, l.peekedErr
		l.peeked, l.peekedErr = nil, nil
		return t, err
	}
	return l.scan()
}

// Peek returns the next Token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked == nil {
		t, err := l.scan()
		l.peeked, l.peekedErr = &t, err
	}
	return *l.peeked, l.peekedErr
}

func (l *Lexer) scan() (Token, error) {
	l.skipLineWhitespaceAndComments()

	pos := l.position()
	if l.atEnd() {
		return Token{Kind: EOF, Pos: pos}, nil
	}

	b := l.peekByte()
	switch {
	case b == '\n':
		l.advance()
		return Token{Kind: Newline, Text: "\n", Pos: pos}, nil
	case b == ',':
		l.advance()
		return Token{Kind: Comma, Text: ",", Pos: pos}, nil
	case b == ':':
		l.advance()
		return Token{Kind: Colon, Text: ":", Pos: pos}, nil
	case b == '(':
		l.advance()
		return Token{Kind: LParen, Text: "(", Pos: pos}, nil
	case b == ')':
		l.advance()
		return Token{Kind: RParen, Text: ")", Pos: pos}, nil
	case b == '[':
		l.advance()
		return Token{Kind: LBracket, Text: "[", Pos: pos}, nil
	case b == ']':
		l.advance()
		return Token{Kind: RBracket, Text: "]", Pos: pos}, nil
	case b == ';':
		l.advance()
		return Token{Kind: Semicolon, Text: ";", Pos: pos}, nil
	case b == '#':
		return l.scanImmediate(pos)
	case isDigit(b):
		return l.scanDecimal(pos)
	case isIdentStart(b):
		return l.scanIdentifier(pos)
	default:
		l.advance()
		return Token{}, &pseudoasm.LexError{Pos: pos, Msg: "unknown punctuation " + string(b)}
	}
}

// skipLineWhitespaceAndComments eats spaces, tabs, carriage returns and
// "// ..." comments, but leaves newlines for the caller to tokenize (they
// are significant: they separate statements).
func (l *Lexer) skipLineWhitespaceAndComments() {
	for !l.atEnd() {
		b := l.peekByte()
		switch {
		case b == ' ' || b == '\t' || b == '\r':
			l.advance()
		case b == '/' && l.peekByteAt(1) == '/':
			for !l.atEnd() && l.peekByte() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanImmediate(pos pseudoasm.Position) (Token, error) {
	l.advance() // consume '#'
	if l.atEnd() {
		return Token{Kind: Hash, Text: "#", Pos: pos}, nil
	}
	base := 10
	switch lowerByte(l.peekByte()) {
	case 'x':
		if isDigitRunChar(l.peekByteAt(1)) {
			l.advance()
			base = 16
		}
	case 'o':
		if isDigitRunChar(l.peekByteAt(1)) {
			l.advance()
			base = 8
		}
	case 'b':
		if isDigitRunChar(l.peekByteAt(1)) {
			l.advance()
			base = 2
		}
	}
	if !isDigitRunChar(l.peekByte()) {
		// "#" alone, or "#" followed by something that isn't a digit at
		// all: surface the bare Hash and let the parser decide whether
		// that is an error.
		return Token{Kind: Hash, Text: "#", Pos: pos}, nil
	}
	start := l.pos
	for !l.atEnd() && isDigitRunChar(l.peekByte()) {
		l.advance()
	}
	digits := string(l.src[start:l.pos])
	if !allDigitsValid(digits, base) {
		return Token{}, &pseudoasm.LexError{Pos: pos, Msg: "invalid digit for base " + baseName(base) + ": " + digits}
	}
	return Token{Kind: Integer, Text: digits, Base: base, Hashed: true, Pos: pos}, nil
}

func (l *Lexer) scanDecimal(pos pseudoasm.Position) (Token, error) {
	start := l.pos
	for !l.atEnd() && isDigit(l.peekByte()) {
		l.advance()
	}
	return Token{Kind: Integer, Text: string(l.src[start:l.pos]), Base: 10, Pos: pos}, nil
}

func (l *Lexer) scanIdentifier(pos pseudoasm.Position) (Token, error) {
	start := l.pos
	for !l.atEnd() && isIdentPart(l.peekByte()) {
		l.advance()
	}
	return Token{Kind: Identifier, Text: string(l.src[start:l.pos]), Pos: pos}, nil
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool   { return isDigit(b) || (lowerByte(b) >= 'a' && lowerByte(b) <= 'f') }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }
func isBinaryDigit(b byte) bool { return b == '0' || b == '1' }

// isDigitRunChar is deliberately wider than any single base's digit set:
// it consumes anything that looks like it was meant to be part of a
// numeric literal (0-9, a-f/A-F), so a literal like "#b102" reads the
// whole "102" run before allDigitsValid rejects the trailing '2' for
// base 2, instead of silently truncating at the first bad digit.
func isDigitRunChar(b byte) bool { return isHexDigit(b) }
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentPart(b byte) bool { return isIdentStart(b) || isDigit(b) }
func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func allDigitsValid(digits string, base int) bool {
	switch base {
	case 16:
		return strings.IndexFunc(digits, func(r rune) bool { return !isHexDigit(byte(r)) }) < 0
	case 8:
		return strings.IndexFunc(digits, func(r rune) bool { return !isOctalDigit(byte(r)) }) < 0
	case 2:
		return strings.IndexFunc(digits, func(r rune) bool { return !isBinaryDigit(byte(r)) }) < 0
	default:
		return strings.IndexFunc(digits, func(r rune) bool { return !isDigit(byte(r)) }) < 0
	}
}

func baseName(base int) string {
	switch base {
	case 16:
		return "hex"
	case 8:
		return "octal"
	case 2:
		return "binary"
	default:
		return "decimal"
	}
}
