package machine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pseudoasm/machine"
)

func TestMemoryUnwrittenReadsZero(t *testing.T) {
	mem := machine.NewMemory()
	require.EqualValues(t, 0, mem.Load(42))
}

func TestMemoryStoreLoadRoundtrip(t *testing.T) {
	mem := machine.NewMemory()
	mem.Store(300, 65)
	require.EqualValues(t, 65, mem.Load(300))
}

func TestRegistersBounds(t *testing.T) {
	regs := machine.NewRegisters(30)
	require.NoError(t, regs.Set(29, 7))
	v, err := regs.Get(29)
	require.NoError(t, err)
	require.EqualValues(t, 7, v)

	_, err = regs.Get(30)
	require.Error(t, err)

	err = regs.Set(-1, 0)
	require.Error(t, err)
}

func TestCallStackUnderflow(t *testing.T) {
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	_, err := ctx.PopCall()
	require.Error(t, err)
}

func TestCallStackPushPop(t *testing.T) {
	ctx := machine.NewContext(machine.DefaultRegisterCount, nil, nil)
	ctx.PushCall(10)
	ctx.PushCall(20)
	top, err := ctx.PopCall()
	require.NoError(t, err)
	require.EqualValues(t, 20, top)
	top, err = ctx.PopCall()
	require.NoError(t, err)
	require.EqualValues(t, 10, top)
}
