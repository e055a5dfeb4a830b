package assembler_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pseudoasm"
	"pseudoasm/assembler"
	"pseudoasm/isa"
	"pseudoasm/machine"
	"pseudoasm/vm"
)

func coreOpts() assembler.Options {
	return assembler.Options{Set: isa.NewCore(), RegisterCount: machine.DefaultRegisterCount}
}

func extOpts() assembler.Options {
	return assembler.Options{Set: isa.NewExtended(isa.NewCore()), RegisterCount: machine.DefaultRegisterCount}
}

// run assembles src and executes it to completion against fresh I/O
// buffers, returning stdout and the final Context for assertions.
func run(t *testing.T, src string, opts assembler.Options) (string, *machine.Context) {
	t.Helper()
	prog, err := assembler.Assemble(src, opts)
	require.NoError(t, err)

	var out bytes.Buffer
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, &out)
	eng := vm.New(prog, ctx, opts.Set)
	require.NoError(t, eng.Run(context.Background()))
	return out.String(), ctx
}

// TestAssembleHelloViaLabels exercises the *hello-via-labels* concrete
// scenario from spec §8: a loop over a data table, indexed by IX,
// terminated by comparing a counter.
func TestAssembleHelloViaLabels(t *testing.T) {
	src := `LOOP: LDX 201
OUT
INC IX
LDD CNT
INC ACC
STO CNT
CMP #5
JPN LOOP
LDM #10
OUT
END
CNT: 0
201 72
202 69
203 76
204 76
205 79
`
	out, _ := run(t, src, coreOpts())
	require.Equal(t, "HELLO\n", out)
}

// TestAssembleHexLiteral exercises the *hex-literal* scenario: LDM #xA /
// OUT / END emits one newline byte.
func TestAssembleHexLiteral(t *testing.T) {
	out, _ := run(t, "LDM #xA\nOUT\nEND\n", coreOpts())
	require.Equal(t, "\n", out)
}

// TestAssembleOverflow exercises the *overflow* scenario: adding 1 to the
// maximum Cell wraps to zero and logs exactly one overflow warning.
func TestAssembleOverflow(t *testing.T) {
	prog, err := assembler.Assemble("LDM #xFFFFFFFFFFFFFFFF\nADD #1\nEND\n", coreOpts())
	require.NoError(t, err)

	logger := &pseudoasm.CollectingLogger{}
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	ctx.Logger = logger
	eng := vm.New(prog, ctx, isa.NewCore())
	require.NoError(t, eng.Run(context.Background()))

	require.EqualValues(t, 0, ctx.ACC)
	require.Len(t, logger.Warnings, 1)
}

// TestAssembleIndirectStore exercises the *indirect-store* scenario:
// writing through "(IX)" and reading the value back by its direct
// address.
func TestAssembleIndirectStore(t *testing.T) {
	out, ctx := run(t, "LDR #300\nLDM #65\nSTO (IX)\nLDD 300\nOUT\nEND\n", coreOpts())
	require.Equal(t, "A", out)
	require.EqualValues(t, 65, ctx.ACC)
	require.EqualValues(t, 65, ctx.Memory.Load(300))
}

// TestAssembleCallMul exercises the *call-mul* scenario: a CALL/RET
// subroutine that multiplies two operands by repeated addition, ending
// with ACC == 65 and one 'A' on stdout.
func TestAssembleCallMul(t *testing.T) {
	src := `LDM #13
STO A
LDM #5
STO B
LDM #0
STO RESULT
CALL MUL
LDD RESULT
OUT
END
MUL: LDD B
STO CNT
LOOP: LDD CNT
CMP #0
JPE DONE
LDD RESULT
ADD A
STO RESULT
LDD CNT
SUB #1
STO CNT
JMP LOOP
DONE: RET
A: 0
B: 0
RESULT: 0
CNT: 0
`
	out, ctx := run(t, src, coreOpts())
	require.Equal(t, "A", out)
	require.EqualValues(t, 65, ctx.ACC)
}

func TestAssembleDuplicateLabel(t *testing.T) {
	_, err := assembler.Assemble("X: LDM #1\nX: LDM #2\nEND\n", coreOpts())
	require.Error(t, err)
	var perr *pseudoasm.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "X", perr.Label)
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, err := assembler.Assemble("FROB #1\nEND\n", coreOpts())
	require.Error(t, err)
	require.Contains(t, err.Error(), "FROB")
}

func TestAssembleUnresolvedLabel(t *testing.T) {
	_, err := assembler.Assemble("JMP NOWHERE\nEND\n", coreOpts())
	require.Error(t, err)
	require.Contains(t, err.Error(), "NOWHERE")
}

func TestAssembleForwardAndBackwardLabelReferences(t *testing.T) {
	// AHEAD is referenced before its definition; LOOP is referenced after.
	src := `JMP AHEAD
LOOP: LDM #1
AHEAD: JMP LOOP
`
	prog, err := assembler.Assemble(src, coreOpts())
	require.NoError(t, err)
	require.EqualValues(t, 2, prog.Entries[0].Instruction.Operand.Address)
	require.EqualValues(t, 1, prog.Entries[2].Instruction.Operand.Address)
}

func TestAssembleArrayLiteralDataDeclaration(t *testing.T) {
	src := `LDD BUF
OUT
END
BUF: [88;3]
`
	out, _ := run(t, src, coreOpts())
	require.Equal(t, "X", out)
	_, ctx := run(t, src, coreOpts())
	require.EqualValues(t, 88, ctx.Memory.Load(3))
	require.EqualValues(t, 88, ctx.Memory.Load(4))
	require.EqualValues(t, 88, ctx.Memory.Load(5))
}

func TestAssembleExplicitAddressDataDeclaration(t *testing.T) {
	src := `LDD 50
OUT
END
50 65
`
	out, _ := run(t, src, coreOpts())
	require.Equal(t, "A", out)
}

func TestAssembleGlobalDirectiveRecordsDebugInfo(t *testing.T) {
	src := `GLOBAL ENTRY
ENTRY: LDM #1
END
`
	opts := coreOpts()
	opts.WithDebugInfo = true
	prog, err := assembler.Assemble(src, opts)
	require.NoError(t, err)
	require.NotNil(t, prog.Debug)
	require.True(t, prog.Debug.Globals["ENTRY"])
	require.Equal(t, "ENTRY", prog.Debug.Label[0])
}

// TestAssembleIndirectOperandViaRegister confirms "(rN)" indirect
// addressing resolves through the named general register, independent of
// the IX special register used by "(IX)" / STO (IX).
func TestAssembleIndirectOperandViaRegister(t *testing.T) {
	prog, err := assembler.Assemble("LDM #77\nSTO (r5)\nEND\n", coreOpts())
	require.NoError(t, err)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	require.NoError(t, ctx.Registers.Set(5, 400))
	eng := vm.New(prog, ctx, isa.NewCore())
	require.NoError(t, eng.Run(context.Background()))
	require.EqualValues(t, 77, ctx.Memory.Load(400))
}

func TestAssembleMacroExpansion(t *testing.T) {
	src := `MACRO DOUBLE n
LDM n
ADD n
MEND
DOUBLE #4
OUT
END
`
	out, ctx := run(t, src, coreOpts())
	require.EqualValues(t, 8, ctx.ACC)
	require.Equal(t, string(rune(8)), out)
}

func TestAssembleNestedMacroExpansion(t *testing.T) {
	src := `MACRO INC1
ADD #1
MEND
MACRO INC2
INC1
INC1
MEND
LDM #0
INC2
OUT
END
`
	_, ctx := run(t, src, coreOpts())
	require.EqualValues(t, 2, ctx.ACC)
}

func TestAssembleExtendedSetTernaryAdd(t *testing.T) {
	src := `LDM #2
STO A
LDM #3
STO B
ADD RESULT, A, B
LDD RESULT
OUT
END
A: 0
B: 0
RESULT: 0
`
	_, ctx := run(t, src, extOpts())
	require.EqualValues(t, 5, ctx.ACC)
}

func TestAssembleOperandArityMismatch(t *testing.T) {
	_, err := assembler.Assemble("LDM #1, #2\nEND\n", coreOpts())
	require.Error(t, err)
	require.Contains(t, err.Error(), "LDM")
}

func TestAssembleInOutDefaultToACC(t *testing.T) {
	in := bytes.NewReader([]byte{65})
	prog, err := assembler.Assemble("IN\nOUT\nEND\n", coreOpts())
	require.NoError(t, err)
	var out bytes.Buffer
	ctx := machine.NewContext(machine.DefaultRegisterCount, in, &out)
	eng := vm.New(prog, ctx, isa.NewCore())
	require.NoError(t, eng.Run(context.Background()))
	require.Equal(t, "A", out.String())
}
