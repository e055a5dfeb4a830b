// Package assembler implements component D: the two-phase parser that
// turns lexed pseudoassembly source into a program.Program, resolving
// labels and consulting an isa.Set for mnemonic recognition. It is
// grounded in the teacher's Info/firstPass/SecondPass split
// (shared/assembler/assembler.go), generalized from a fixed binary
// instruction encoding to the Operand/ExecutorID model in packages
// operand and isa.
package assembler

import (
	"fmt"
	"strings"

	"pseudoasm"
	"pseudoasm/isa"
	"pseudoasm/machine"
	"pseudoasm/operand"
	"pseudoasm/program"
	"pseudoasm/token"
)

// Options configures one Assemble call.
type Options struct {
	// Set is the active instruction set mnemonics are resolved against.
	// Required.
	Set isa.Set

	// RegisterCount bounds register-operand indices; defaults to
	// machine.DefaultRegisterCount when zero.
	RegisterCount int

	// WithDebugInfo, when true, retains source-line and label debuginfo
	// on the returned Program (spec §4.D/§6).
	WithDebugInfo bool

	// Logger receives non-fatal diagnostics (currently: macro
	// redefinition). Defaults to pseudoasm.StdLogger.
	Logger pseudoasm.Logger
}

// Assemble runs the full pipeline: macro expansion, lexing, phase-1 line
// classification (assigning addresses and populating the symbol table),
// and phase-2 label resolution.
func Assemble(source string, opts Options) (*program.Program, error) {
	if opts.Set == nil {
		return nil, &pseudoasm.ParseError{Msg: "assembler.Options.Set must not be nil"}
	}
	if opts.RegisterCount == 0 {
		opts.RegisterCount = machine.DefaultRegisterCount
	}
	logger := opts.Logger
	if logger == nil {
		logger = pseudoasm.StdLogger{}
	}

	expandedLines, err := expandMacros(strings.Split(source, "\n"), logger)
	if err != nil {
		return nil, err
	}
	stmts, err := tokenizeLines(strings.Join(expandedLines, "\n"))
	if err != nil {
		return nil, err
	}

	p := newParser(opts)
	if err := p.firstPass(stmts); err != nil {
		return nil, err
	}
	if err := p.resolveLabels(); err != nil {
		return nil, err
	}

	prog := program.New(p.instructions, p.data)
	prog.Debug = p.debug
	return prog, nil
}

type parser struct {
	set           isa.Set
	registerCount int

	symbols      map[string]pseudoasm.Cell
	instructions []program.Instruction
	data         map[pseudoasm.Cell]pseudoasm.Cell
	debug        *program.DebugInfo

	nextImplicitData     pseudoasm.Cell
	haveNextImplicitData bool
}

func newParser(opts Options) *parser {
	p := &parser{
		set:           opts.Set,
		registerCount: opts.RegisterCount,
		symbols:       make(map[string]pseudoasm.Cell),
		data:          make(map[pseudoasm.Cell]pseudoasm.Cell),
	}
	if opts.WithDebugInfo {
		p.debug = &program.DebugInfo{
			SourceLine: make(map[pseudoasm.Cell]uint32),
			Label:      make(map[pseudoasm.Cell]string),
			Globals:    make(map[string]bool),
		}
	}
	return p
}

// implicitDataAddr returns the next free data address after the
// instruction section (spec §4.D), initializing it lazily to the
// instruction count the first time it's needed — by then every
// instruction line has already been seen, since data follows code.
func (p *parser) implicitDataAddr() pseudoasm.Cell {
	if !p.haveNextImplicitData {
		p.nextImplicitData = pseudoasm.Cell(len(p.instructions))
		p.haveNextImplicitData = true
	}
	return p.nextImplicitData
}

func (p *parser) advanceImplicitData(n pseudoasm.Cell) {
	p.implicitDataAddr()
	p.nextImplicitData += n
}

func (p *parser) firstPass(stmts []statement) error {
	for _, st := range stmts {
		if st.label != "" {
			if _, dup := p.symbols[st.label]; dup {
				return &pseudoasm.ParseError{Pos: st.labelPos, Msg: "duplicate label", Label: st.label}
			}
		}

		switch {
		case len(st.rest) == 0:
			if st.label != "" {
				p.symbols[st.label] = p.implicitDataAddr()
			}

		case isGlobalDirective(st.rest):
			name, err := globalLabelName(st.rest)
			if err != nil {
				return err
			}
			if p.debug != nil {
				p.debug.Globals[name] = true
			}

		case st.rest[0].Kind == token.Integer || st.rest[0].Kind == token.LBracket:
			if err := p.dataStatement(st); err != nil {
				return err
			}

		case st.rest[0].Kind == token.Identifier:
			if err := p.instructionStatement(st); err != nil {
				return err
			}

		default:
			return &pseudoasm.ParseError{Pos: st.pos, Msg: "expected a mnemonic or a data declaration"}
		}
	}
	return nil
}

func (p *parser) dataStatement(st statement) error {
	var addr pseudoasm.Cell
	var valueToks = st.rest

	if st.label == "" {
		addrTok := st.rest[0]
		if addrTok.Kind != token.Integer {
			return &pseudoasm.ParseError{Pos: addrTok.Pos, Msg: "data declaration needs a leading address or a label"}
		}
		v, err := cellFromToken(addrTok)
		if err != nil {
			return err
		}
		addr = v
		valueToks = st.rest[1:]
	} else {
		addr = p.implicitDataAddr()
	}

	val, err := parseDataValue(valueToks)
	if err != nil {
		return err
	}

	size := pseudoasm.Cell(1)
	if val.isArray {
		size = pseudoasm.Cell(val.count)
		for i := 0; i < val.count; i++ {
			p.data[addr+pseudoasm.Cell(i)] = val.fill
		}
	} else {
		p.data[addr] = val.scalar
	}

	if st.label != "" {
		p.symbols[st.label] = addr
		p.advanceImplicitData(size)
	}
	return nil
}

func (p *parser) instructionStatement(st statement) error {
	mnemonicTok := st.rest[0]
	mnemonic := strings.ToUpper(mnemonicTok.Text)
	def, ok := p.set.Lookup(mnemonic)
	if !ok {
		return &pseudoasm.ParseError{Pos: mnemonicTok.Pos, Msg: "unknown mnemonic", Label: mnemonicTok.Text}
	}

	groups := splitOperandGroups(st.rest[1:])
	operands := make([]operand.Operand, 0, len(groups))
	for _, g := range groups {
		op, err := parseOperand(g, p.registerCount)
		if err != nil {
			return err
		}
		operands = append(operands, op)
	}
	if !def.Accepts(len(operands)) {
		return &pseudoasm.ParseError{Pos: mnemonicTok.Pos, Msg: fmt.Sprintf("%s does not accept %d operand(s)", mnemonic, len(operands)), Label: mnemonicTok.Text}
	}

	var finalOperand operand.Operand
	switch len(operands) {
	case 0:
		finalOperand = operand.Operand{}
	case 1:
		finalOperand = operands[0]
	default:
		finalOperand = operand.Operand{Kind: operand.MultiOperand, Multi: operands}
	}

	addr := pseudoasm.Cell(len(p.instructions))
	if st.label != "" {
		p.symbols[st.label] = addr
	}
	p.instructions = append(p.instructions, program.Instruction{ExecutorID: def.ID, Mnemonic: def.Mnemonic, Operand: finalOperand})

	if p.debug != nil {
		p.debug.SourceLine[addr] = uint32(st.pos.Line)
		if st.label != "" {
			p.debug.Label[addr] = st.label
		}
	}
	return nil
}

func (p *parser) resolveLabels() error {
	for i, inst := range p.instructions {
		resolved, err := resolveOperand(inst.Operand, p.symbols)
		if err != nil {
			return err
		}
		p.instructions[i].Operand = resolved
	}
	return nil
}

func resolveOperand(op operand.Operand, symtab map[string]pseudoasm.Cell) (operand.Operand, error) {
	switch op.Kind {
	case operand.Label:
		addr, ok := symtab[op.Label]
		if !ok {
			return operand.Operand{}, &pseudoasm.ParseError{Msg: "unresolved label", Label: op.Label}
		}
		return operand.Operand{Kind: operand.Direct, Address: addr}, nil
	case operand.MultiOperand:
		resolved := make([]operand.Operand, len(op.Multi))
		for i, sub := range op.Multi {
			r, err := resolveOperand(sub, symtab)
			if err != nil {
				return operand.Operand{}, err
			}
			resolved[i] = r
		}
		return operand.Operand{Kind: operand.MultiOperand, Multi: resolved}, nil
	default:
		return op, nil
	}
}

func isGlobalDirective(rest []token.Token) bool {
	return len(rest) >= 1 && rest[0].Kind == token.Identifier && strings.EqualFold(rest[0].Text, "GLOBAL")
}

func globalLabelName(rest []token.Token) (string, error) {
	if len(rest) != 2 || rest[1].Kind != token.Identifier {
		return "", &pseudoasm.ParseError{Pos: rest[0].Pos, Msg: "GLOBAL directive requires exactly one label name"}
	}
	return rest[1].Text, nil
}
