// Package abi implements the SystemV-AMD64 calling convention and stack
// frame layout of §4.C5: argument/return register classification, the
// callee-saved set, prologue/epilogue synthesis, and spill-slot allocation.
package abi

import "github.com/faxlang/faxc/internal/lir"

// ArgIntRegs lists the integer/pointer argument registers in SystemV order.
var ArgIntRegs = [6]lir.PhysicalRegister{lir.RDI, lir.RSI, lir.RDX, lir.RCX, lir.R8, lir.R9}

// ArgFloatRegs lists the floating-point argument registers in SystemV order.
var ArgFloatRegs = [8]lir.PhysicalRegister{
	lir.XMM0, lir.XMM1, lir.XMM2, lir.XMM3, lir.XMM4, lir.XMM5, lir.XMM6, lir.XMM7,
}

// RetIntReg is the integer/pointer return register.
const RetIntReg = lir.RAX

// RetFloatReg is the floating-point return register.
const RetFloatReg = lir.XMM0

// CalleeSavedRegs lists the registers a callee must preserve across a call.
var CalleeSavedRegs = [6]lir.PhysicalRegister{lir.RBX, lir.RBP, lir.R12, lir.R13, lir.R14, lir.R15}

// ArgIntReg returns the index-th integer argument register, or false beyond
// the register-passed range (the caller falls back to a stack slot).
func ArgIntReg(index int) (lir.PhysicalRegister, bool) {
	if index < len(ArgIntRegs) {
		return ArgIntRegs[index], true
	}
	return lir.RegInvalid, false
}

// ArgFloatReg returns the index-th floating-point argument register.
func ArgFloatReg(index int) (lir.PhysicalRegister, bool) {
	if index < len(ArgFloatRegs) {
		return ArgFloatRegs[index], true
	}
	return lir.RegInvalid, false
}

// IsStackArg reports whether the index-th argument of the given class is
// passed on the stack rather than in a register.
func IsStackArg(index int, isFloat bool) bool {
	if isFloat {
		return index >= len(ArgFloatRegs)
	}
	return index >= len(ArgIntRegs)
}

// StackArgOffset returns the frame-pointer-relative offset of a
// stack-passed argument, counting only arguments of its own class beyond
// the register-passed ones. The first stack argument sits at [rbp+16],
// above the saved return address and saved rbp.
func StackArgOffset(index int, isFloat bool) int32 {
	firstStackIdx := len(ArgIntRegs)
	if isFloat {
		firstStackIdx = len(ArgFloatRegs)
	}
	return 16 + int32(index-firstStackIdx)*8
}

// ParamLocationKind discriminates ParamLocation.
type ParamLocationKind byte

const (
	ParamInRegister ParamLocationKind = iota
	ParamOnStack
)

// ParamLocation is where one function parameter is classified to live at
// entry: a register, or a caller-provided stack slot.
type ParamLocation struct {
	Kind   ParamLocationKind
	Reg    lir.PhysicalRegister // ParamInRegister
	Offset int32                // ParamOnStack
}

// ClassifyParam classifies the index-th parameter of class isFloat.
func ClassifyParam(index int, isFloat bool) ParamLocation {
	if isFloat {
		if reg, ok := ArgFloatReg(index); ok {
			return ParamLocation{Kind: ParamInRegister, Reg: reg}
		}
		return ParamLocation{Kind: ParamOnStack, Offset: StackArgOffset(index, true)}
	}
	if reg, ok := ArgIntReg(index); ok {
		return ParamLocation{Kind: ParamInRegister, Reg: reg}
	}
	return ParamLocation{Kind: ParamOnStack, Offset: StackArgOffset(index, false)}
}

// Prologue synthesizes the function-entry instruction sequence: push rbp,
// mov rbp,rsp, sub rsp,frameSize, and (if the function clobbers any)
// save the callee-saved registers used.
func Prologue(frameSize uint32, savedRegs []lir.PhysicalRegister) []lir.Instruction {
	var out []lir.Instruction
	out = append(out, lir.Instruction{Kind: lir.InstrPush, Src: lir.PhysReg(lir.RBP)})
	out = append(out, lir.Mov(lir.PhysReg(lir.RBP), lir.PhysReg(lir.RSP)))
	if frameSize > 0 {
		out = append(out, lir.Instruction{
			Kind: lir.InstrSub,
			Dest: lir.PhysReg(lir.RSP),
			Src:  lir.Imm(int64(frameSize)),
		})
	}
	if len(savedRegs) > 0 {
		out = append(out, lir.Instruction{Kind: lir.InstrSaveCalleeSaved, SavedRegs: savedRegs})
	}
	return out
}

// Epilogue synthesizes the function-exit instruction sequence: restore
// callee-saved registers, deallocate the frame, pop rbp.
func Epilogue(frameSize uint32, savedRegs []lir.PhysicalRegister) []lir.Instruction {
	var out []lir.Instruction
	if len(savedRegs) > 0 {
		out = append(out, lir.Instruction{Kind: lir.InstrRestoreCalleeSaved, SavedRegs: savedRegs})
	}
	if frameSize > 0 {
		out = append(out, lir.Instruction{
			Kind: lir.InstrAdd,
			Dest: lir.PhysReg(lir.RSP),
			Src:  lir.Imm(int64(frameSize)),
		})
	}
	out = append(out, lir.Instruction{Kind: lir.InstrPop, Dest: lir.PhysReg(lir.RBP)})
	return out
}

// align16 rounds size up to the next 16-byte boundary.
func align16(size int32) int32 { return (size + 15) &^ 15 }

// Frame computes the stack-frame layout for a function with localCount
// locals (each an 8-byte slot) and spillSlotCount pre-reserved spill
// slots, optionally preserving the callee-saved set (§4.C5).
type Frame struct {
	FrameSize       uint32
	SavedRBPOffset  int32
	ReturnAddrOffset int32
	LocalsBaseOffset int32
	SpillBaseOffset  int32
	SavedCalleeRegs  []SavedReg
	LocalOffsets     []int32
	nextSpillSlot    int32
}

// SavedReg records where a callee-saved register is stashed in the frame.
type SavedReg struct {
	Reg    lir.PhysicalRegister
	Offset int32
}

// NewFrame computes layout offsets for localCount locals and
// spillSlotCount spill slots, saving CalleeSavedRegs if saveCalleeRegs.
func NewFrame(localCount, spillSlotCount int, saveCalleeRegs bool) *Frame {
	f := &Frame{ReturnAddrOffset: 8, LocalsBaseOffset: 16, SpillBaseOffset: 16}

	size := int32(8) // saved rbp
	if saveCalleeRegs {
		for _, reg := range CalleeSavedRegs {
			f.SavedCalleeRegs = append(f.SavedCalleeRegs, SavedReg{Reg: reg, Offset: size})
			size += 8
		}
	}

	size = align16(size)
	f.LocalsBaseOffset = size
	for i := 0; i < localCount; i++ {
		f.LocalOffsets = append(f.LocalOffsets, size)
		size += 8
	}

	f.SpillBaseOffset = size
	for i := 0; i < spillSlotCount; i++ {
		size += 8
		f.nextSpillSlot += 8
	}

	f.FrameSize = uint32(align16(size))
	return f
}

// LocalOffset returns the frame-relative offset of localIndex, if in range.
func (f *Frame) LocalOffset(localIndex int) (int32, bool) {
	if localIndex < len(f.LocalOffsets) {
		return f.LocalOffsets[localIndex], true
	}
	return 0, false
}

// AllocateSpillSlot reserves the next spill slot and returns its offset,
// growing FrameSize if needed.
func (f *Frame) AllocateSpillSlot() int32 {
	offset := f.SpillBaseOffset + f.nextSpillSlot
	f.nextSpillSlot += 8
	f.FrameSize = uint32(align16(f.SpillBaseOffset + f.nextSpillSlot))
	return offset
}

// SavedRegOffset returns where reg was stashed, if it was saved.
func (f *Frame) SavedRegOffset(reg lir.PhysicalRegister) (int32, bool) {
	for _, sr := range f.SavedCalleeRegs {
		if sr.Reg == reg {
			return sr.Offset, true
		}
	}
	return 0, false
}

// LocalAddress builds the stack-relative LIR address of a local, offsets
// growing downward from rbp per SystemV frame convention.
func (f *Frame) LocalAddress(localIndex int) (lir.Address, bool) {
	offset, ok := f.LocalOffset(localIndex)
	if !ok {
		return lir.Address{}, false
	}
	return lir.StackRelative(-offset), true
}

// SpillAddress builds the stack-relative LIR address of spill slot index.
func (f *Frame) SpillAddress(slotIndex int32) lir.Address {
	return lir.StackRelative(-(f.SpillBaseOffset + slotIndex*8))
}
