package abi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/backend/abi"
	"github.com/faxlang/faxc/internal/lir"
)

func TestArgIntRegisters(t *testing.T) {
	r, ok := abi.ArgIntReg(0)
	require.True(t, ok)
	require.Equal(t, lir.RDI, r)

	r, ok = abi.ArgIntReg(5)
	require.True(t, ok)
	require.Equal(t, lir.R9, r)

	_, ok = abi.ArgIntReg(6)
	require.False(t, ok)
}

func TestArgFloatRegisters(t *testing.T) {
	r, ok := abi.ArgFloatReg(0)
	require.True(t, ok)
	require.Equal(t, lir.XMM0, r)

	r, ok = abi.ArgFloatReg(7)
	require.True(t, ok)
	require.Equal(t, lir.XMM7, r)

	_, ok = abi.ArgFloatReg(8)
	require.False(t, ok)
}

func TestStackArgDetection(t *testing.T) {
	require.False(t, abi.IsStackArg(0, false))
	require.False(t, abi.IsStackArg(5, false))
	require.True(t, abi.IsStackArg(6, false))
	require.True(t, abi.IsStackArg(8, true))
}

func TestCalleeSavedRegsExcludeCallerSaved(t *testing.T) {
	require.Contains(t, abi.CalleeSavedRegs[:], lir.RBX)
	require.Contains(t, abi.CalleeSavedRegs[:], lir.RBP)
	require.NotContains(t, abi.CalleeSavedRegs[:], lir.RAX)
}

func TestClassifyParamFallsBackToStack(t *testing.T) {
	loc := abi.ClassifyParam(0, false)
	require.Equal(t, abi.ParamInRegister, loc.Kind)
	require.Equal(t, lir.RDI, loc.Reg)

	loc = abi.ClassifyParam(6, false)
	require.Equal(t, abi.ParamOnStack, loc.Kind)
	require.EqualValues(t, 16, loc.Offset)
}

func TestFrameCreationStartsEmpty(t *testing.T) {
	f := abi.NewFrame(0, 0, false)
	require.EqualValues(t, 8, f.ReturnAddrOffset)
}

func TestFrameCalculationReservesLocalsAndCalleeSaved(t *testing.T) {
	f := abi.NewFrame(4, 2, true)
	require.Greater(t, f.FrameSize, uint32(0))
	require.Len(t, f.LocalOffsets, 4)
	require.NotEmpty(t, f.SavedCalleeRegs)
	require.Zero(t, f.FrameSize%16) // 16-byte stack alignment invariant
}

func TestSpillSlotAllocationIsSequential(t *testing.T) {
	f := abi.NewFrame(2, 0, false)
	slot1 := f.AllocateSpillSlot()
	slot2 := f.AllocateSpillSlot()
	require.Equal(t, int32(8), slot2-slot1)
}

func TestPrologueEpilogueRoundTrip(t *testing.T) {
	f := abi.NewFrame(1, 0, true)
	savedRegs := make([]lir.PhysicalRegister, len(f.SavedCalleeRegs))
	for i, sr := range f.SavedCalleeRegs {
		savedRegs[i] = sr.Reg
	}

	prologue := abi.Prologue(f.FrameSize, savedRegs)
	require.Equal(t, lir.InstrPush, prologue[0].Kind)
	require.Equal(t, lir.InstrSaveCalleeSaved, prologue[len(prologue)-1].Kind)

	epilogue := abi.Epilogue(f.FrameSize, savedRegs)
	require.Equal(t, lir.InstrRestoreCalleeSaved, epilogue[0].Kind)
	require.Equal(t, lir.InstrPop, epilogue[len(epilogue)-1].Kind)
}
