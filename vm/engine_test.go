package vm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pseudoasm"
	"pseudoasm/isa"
	"pseudoasm/machine"
	"pseudoasm/operand"
	"pseudoasm/program"
	"pseudoasm/vm"
)

func mustDef(t *testing.T, set isa.Set, mnemonic string) isa.Def {
	t.Helper()
	d, ok := set.Lookup(mnemonic)
	require.True(t, ok, mnemonic)
	return d
}

// TestEngineEndHalts exercises invariant 4 from spec §8: after END
// dispatches, the engine halts on the next step.
func TestEngineEndHalts(t *testing.T) {
	set := isa.NewCore()
	endDef := mustDef(t, set, "END")
	prog := program.New([]program.Instruction{
		{ExecutorID: endDef.ID, Mnemonic: "END"},
	}, nil)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	eng := vm.New(prog, ctx, set)

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, ctx.Halted)
	require.EqualValues(t, 1, eng.Steps())
}

// TestEngineNonControlAdvancesPC exercises the other half of invariant 4.
func TestEngineNonControlAdvancesPC(t *testing.T) {
	set := isa.NewCore()
	ldm := mustDef(t, set, "LDM")
	end := mustDef(t, set, "END")
	prog := program.New([]program.Instruction{
		{ExecutorID: ldm.ID, Mnemonic: "LDM", Operand: operand.Operand{Kind: operand.Immediate, Immediate: 9}},
		{ExecutorID: end.ID, Mnemonic: "END"},
	}, nil)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	eng := vm.New(prog, ctx, set)

	require.NoError(t, eng.Step())
	require.EqualValues(t, 1, ctx.PC)
	require.EqualValues(t, 9, ctx.ACC)
}

// TestEngineCallRetRoundtrip exercises invariant 5.
func TestEngineCallRetRoundtrip(t *testing.T) {
	set := isa.NewCore()
	call := mustDef(t, set, "CALL")
	ret := mustDef(t, set, "RET")
	end := mustDef(t, set, "END")
	ldm := mustDef(t, set, "LDM")

	prog := program.New([]program.Instruction{
		{ExecutorID: call.ID, Mnemonic: "CALL", Operand: operand.Operand{Kind: operand.Direct, Address: 2}}, // 0
		{ExecutorID: end.ID, Mnemonic: "END"},                                                                // 1
		{ExecutorID: ldm.ID, Mnemonic: "LDM", Operand: operand.Operand{Kind: operand.Immediate, Immediate: 42}}, // 2
		{ExecutorID: ret.ID, Mnemonic: "RET"},                                                                // 3
	}, nil)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	eng := vm.New(prog, ctx, set)

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, ctx.Halted)
	require.EqualValues(t, 42, ctx.ACC)
	require.Empty(t, ctx.CallStack)
}

func TestEngineOutOfBoundsWithoutEnd(t *testing.T) {
	set := isa.NewCore()
	ldm := mustDef(t, set, "LDM")
	prog := program.New([]program.Instruction{
		{ExecutorID: ldm.ID, Mnemonic: "LDM", Operand: operand.Operand{Kind: operand.Immediate, Immediate: 1}},
	}, nil)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	eng := vm.New(prog, ctx, set)

	err := eng.Run(context.Background())
	require.Error(t, err)
	var execErr *pseudoasm.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, pseudoasm.ErrOutOfBounds, execErr.Kind)
}

func TestEngineRetUnderflowAborts(t *testing.T) {
	set := isa.NewCore()
	ret := mustDef(t, set, "RET")
	prog := program.New([]program.Instruction{
		{ExecutorID: ret.ID, Mnemonic: "RET"},
	}, nil)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	eng := vm.New(prog, ctx, set)

	err := eng.Run(context.Background())
	require.Error(t, err)
	var execErr *pseudoasm.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, pseudoasm.ErrStackUnderflow, execErr.Kind)
}

func TestEngineOverflowWrapsAndWarnsOnce(t *testing.T) {
	set := isa.NewCore()
	ldm := mustDef(t, set, "LDM")
	add := mustDef(t, set, "ADD")
	end := mustDef(t, set, "END")
	prog := program.New([]program.Instruction{
		{ExecutorID: ldm.ID, Mnemonic: "LDM", Operand: operand.Operand{Kind: operand.Immediate, Immediate: ^pseudoasm.Cell(0)}},
		{ExecutorID: add.ID, Mnemonic: "ADD", Operand: operand.Operand{Kind: operand.Immediate, Immediate: 1}},
		{ExecutorID: end.ID, Mnemonic: "END"},
	}, nil)
	logger := &pseudoasm.CollectingLogger{}
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	ctx.Logger = logger
	eng := vm.New(prog, ctx, set)

	require.NoError(t, eng.Run(context.Background()))
	require.EqualValues(t, 0, ctx.ACC)
	require.Len(t, logger.Warnings, 1)
}

func TestEngineCancelledContextHalts(t *testing.T) {
	set := isa.NewCore()
	jmp := mustDef(t, set, "JMP")
	prog := program.New([]program.Instruction{
		{ExecutorID: jmp.ID, Mnemonic: "JMP", Operand: operand.Operand{Kind: operand.Direct, Address: 0}},
	}, nil)
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	eng := vm.New(prog, ctx, set)

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := eng.Run(cctx)
	require.Error(t, err)
	var execErr *pseudoasm.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, pseudoasm.ErrCancelled, execErr.Kind)
}
