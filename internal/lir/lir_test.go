package lir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/lir"
)

func TestVRegPackingRoundTrips(t *testing.T) {
	v := lir.NewVReg(7, lir.RegTypeInt)
	require.EqualValues(t, 7, v.ID())
	require.Equal(t, lir.RegTypeInt, v.RegType())
	require.False(t, v.IsRealReg())

	v = v.SetRealReg(lir.RAX)
	require.True(t, v.IsRealReg())
	require.Equal(t, lir.RAX, v.RealReg())
	require.EqualValues(t, 7, v.ID()) // assigning a real reg preserves the id
}

func TestVRegInvalidIsNotValid(t *testing.T) {
	require.False(t, lir.VRegInvalid.Valid())
}

func TestPhysicalRegisterString(t *testing.T) {
	require.Equal(t, "rdi", lir.RDI.String())
	require.Equal(t, "xmm0", lir.XMM0.String())
	require.True(t, lir.XMM0.IsFloat())
	require.False(t, lir.RDI.IsFloat())
}

func TestStackRelativeAddress(t *testing.T) {
	addr := lir.StackRelative(-16)
	require.Equal(t, lir.AddrStackRelative, addr.Kind)
	require.EqualValues(t, -16, addr.Offset)
}

func TestInstructionConstructors(t *testing.T) {
	mov := lir.Mov(lir.Reg(lir.NewVReg(1, lir.RegTypeInt)), lir.Imm(5))
	require.Equal(t, lir.InstrMov, mov.Kind)

	ret := lir.Ret(nil)
	require.Equal(t, lir.InstrRet, ret.Kind)
	require.False(t, ret.HasRetValue)

	val := lir.Reg(lir.NewVReg(2, lir.RegTypeInt))
	retVal := lir.Ret(&val)
	require.True(t, retVal.HasRetValue)
}
