package persist_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pseudoasm/assembler"
	"pseudoasm/isa"
	"pseudoasm/machine"
	"pseudoasm/persist"
	"pseudoasm/vm"
)

const helloViaLabels = `LOOP: LDX 201
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

func runProgram(t *testing.T, progRunner interface {
	Run(context.Context) error
}) {
	t.Helper()
	require.NoError(t, progRunner.Run(context.Background()))
}

// TestPersistRoundTrip exercises the *round-trip* concrete scenario from
// spec §8 across every supported format: parse, serialize, deserialize,
// execute, and compare stdout against a direct parse-and-execute run.
func TestPersistRoundTrip(t *testing.T) {
	set := isa.NewCore()
	opts := assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount}

	prog, err := assembler.Assemble(helloViaLabels, opts)
	require.NoError(t, err)

	var direct bytes.Buffer
	directCtx := machine.NewContext(machine.DefaultRegisterCount, nil, &direct)
	directEngine := vm.New(prog, directCtx, set)
	runProgram(t, directEngine)
	require.Equal(t, "HELLO\n", direct.String())

	for _, format := range []persist.Format{persist.FormatJSON, persist.FormatYAML, persist.FormatRON, persist.FormatBinary} {
		t.Run(string(format), func(t *testing.T) {
			encoded, err := persist.Encode(prog, format)
			require.NoError(t, err)

			decoded, err := persist.Decode(encoded, format, set)
			require.NoError(t, err)

			var out bytes.Buffer
			ctx := machine.NewContext(machine.DefaultRegisterCount, nil, &out)
			eng := vm.New(decoded, ctx, set)
			runProgram(t, eng)
			require.Equal(t, "HELLO\n", out.String())
		})
	}
}

func TestPersistDebugInfoRoundTrip(t *testing.T) {
	set := isa.NewCore()
	opts := assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount, WithDebugInfo: true}
	src := "GLOBAL START\nSTART: LDM #1\nEND\n"
	prog, err := assembler.Assemble(src, opts)
	require.NoError(t, err)
	require.NotNil(t, prog.Debug)

	for _, format := range []persist.Format{persist.FormatJSON, persist.FormatYAML, persist.FormatRON, persist.FormatBinary} {
		t.Run(string(format), func(t *testing.T) {
			encoded, err := persist.Encode(prog, format, persist.WithDebugInfo())
			require.NoError(t, err)

			decoded, err := persist.Decode(encoded, format, set)
			require.NoError(t, err)
			require.NotNil(t, decoded.Debug)
			require.True(t, decoded.Debug.Globals["START"])
			require.Equal(t, "START", decoded.Debug.Label[0])
		})
	}
}

func TestPersistOmitsDebugInfoByDefault(t *testing.T) {
	set := isa.NewCore()
	opts := assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount, WithDebugInfo: true}
	prog, err := assembler.Assemble("START: LDM #1\nEND\n", opts)
	require.NoError(t, err)

	encoded, err := persist.Encode(prog, persist.FormatJSON)
	require.NoError(t, err)

	decoded, err := persist.Decode(encoded, persist.FormatJSON, set)
	require.NoError(t, err)
	require.Nil(t, decoded.Debug)
}

func TestPersistMinifyShrinksOutput(t *testing.T) {
	set := isa.NewCore()
	prog, err := assembler.Assemble(helloViaLabels, assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount})
	require.NoError(t, err)

	full, err := persist.Encode(prog, persist.FormatJSON)
	require.NoError(t, err)
	min, err := persist.Encode(prog, persist.FormatJSON, persist.WithMinify())
	require.NoError(t, err)
	require.Less(t, len(min), len(full))

	fullRON, err := persist.Encode(prog, persist.FormatRON)
	require.NoError(t, err)
	minRON, err := persist.Encode(prog, persist.FormatRON, persist.WithMinify())
	require.NoError(t, err)
	require.LessOrEqual(t, len(minRON), len(fullRON))
}

func TestPersistMultiOperandRoundTrip(t *testing.T) {
	set := isa.NewExtended(isa.NewCore())
	src := `LDM #2
STO A
LDM #3
STO B
ADD RESULT, A, B
END
A: 0
B: 0
RESULT: 0
`
	prog, err := assembler.Assemble(src, assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount})
	require.NoError(t, err)

	encoded, err := persist.Encode(prog, persist.FormatJSON)
	require.NoError(t, err)
	decoded, err := persist.Decode(encoded, persist.FormatJSON, set)
	require.NoError(t, err)

	var out bytes.Buffer
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, &out)
	eng := vm.New(decoded, ctx, set)
	runProgram(t, eng)
	require.EqualValues(t, 5, ctx.Memory.Load(8)) // RESULT's address: 6 instructions precede the data section
}

func TestDecodeUnknownMnemonicFails(t *testing.T) {
	set := isa.NewCore()
	doc := `{"records":[{"address":0,"mnemonic":"FROB","operand":{"kind":"none"}}]}`
	_, err := persist.Decode([]byte(doc), persist.FormatJSON, set)
	require.Error(t, err)
}
