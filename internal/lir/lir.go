// Package lir implements the low-level IR of §3/§4.C3: pseudo-assembly over
// virtual registers, explicit addressing modes, and near-machine
// instructions, one step above emitted text (§4.C6).
package lir

import (
	"fmt"

	"github.com/faxlang/faxc/internal/symbol"
)

// VReg packs a virtual-register id, its RegType and (once allocated) a
// RealReg into one uint64, the same layout wazero's
// internal/engine/wazevo/backend/regalloc.VReg uses: bits 0-31 the id, bits
// 40-47 the RegType, bits 32-39+ the RealReg once assigned.
type VReg uint64

// VRegID is the pure identifier portion of a VReg.
type VRegID uint32

// RegType discriminates integer vs. floating-point virtual registers.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	RegTypeInt
	RegTypeFloat
)

// RealReg names a physical register once one is assigned to a VReg. It is
// the same enumeration as PhysicalRegister — a VReg's RealReg field *is* a
// PhysicalRegister once allocation has run.
type RealReg = PhysicalRegister

const RealRegInvalid RealReg = RegInvalid

const vRegIDInvalid VRegID = 1<<32 - 1

// VRegInvalid is the zero-value-distinct invalid virtual register.
var VRegInvalid = VReg(vRegIDInvalid)

// NewVReg builds an unassigned virtual register with the given id and type.
func NewVReg(id VRegID, t RegType) VReg {
	return VReg(id).SetRegType(t)
}

// ID returns the VRegID of v.
func (v VReg) ID() VRegID { return VRegID(v & 0xffffffff) }

// RegType returns the RegType of v.
func (v VReg) RegType() RegType { return RegType(v >> 40) }

// SetRegType returns v with its RegType field set to t.
func (v VReg) SetRegType(t RegType) VReg {
	return VReg(t)<<40 | (v & 0x00_ff_ffffffff)
}

// RealReg returns the RealReg assigned to v, or RealRegInvalid if none.
func (v VReg) RealReg() RealReg { return RealReg(v >> 32) }

// SetRealReg returns v with RealReg r assigned.
func (v VReg) SetRealReg(r RealReg) VReg {
	return VReg(r)<<32 | (v & 0xff_00_ffffffff)
}

// IsRealReg reports whether v has already been assigned a physical register.
func (v VReg) IsRealReg() bool { return v.RealReg() != RealRegInvalid }

// PhysVReg wraps a fixed physical register (e.g. RSP, RBP) as a VReg so it
// can be used anywhere a VReg is expected, such as an Address base.
func PhysVReg(r PhysicalRegister) VReg {
	regType := RegTypeInt
	if r.IsFloat() {
		regType = RegTypeFloat
	}
	return VReg(0).SetRegType(regType).SetRealReg(r)
}

// Valid reports whether v is a well-formed virtual register.
func (v VReg) Valid() bool { return v.ID() != vRegIDInvalid && v.RegType() != RegTypeInvalid }

// String implements fmt.Stringer.
func (v VReg) String() string {
	if v.IsRealReg() {
		return fmt.Sprintf("%%%s", v.RealReg())
	}
	return fmt.Sprintf("v%d", v.ID())
}

// PhysicalRegister enumerates the SystemV-AMD64 register file (§4.C5).
type PhysicalRegister byte

const (
	RegInvalid PhysicalRegister = iota
	RAX
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	RSP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
)

var physRegNames = [...]string{
	RegInvalid: "invalid",
	RAX:        "rax", RBX: "rbx", RCX: "rcx", RDX: "rdx",
	RSI: "rsi", RDI: "rdi", RBP: "rbp", RSP: "rsp",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
	R12: "r12", R13: "r13", R14: "r14", R15: "r15",
	XMM0: "xmm0", XMM1: "xmm1", XMM2: "xmm2", XMM3: "xmm3",
	XMM4: "xmm4", XMM5: "xmm5", XMM6: "xmm6", XMM7: "xmm7",
	XMM8: "xmm8", XMM9: "xmm9", XMM10: "xmm10", XMM11: "xmm11",
	XMM12: "xmm12", XMM13: "xmm13", XMM14: "xmm14", XMM15: "xmm15",
}

// String implements fmt.Stringer.
func (r PhysicalRegister) String() string {
	if int(r) < len(physRegNames) {
		return physRegNames[r]
	}
	return "invalid"
}

// IsFloat reports whether r is an XMM register.
func (r PhysicalRegister) IsFloat() bool { return r >= XMM0 }

// RegisterWidth is the operand width of a register reference.
type RegisterWidth byte

const (
	W8 RegisterWidth = iota
	W16
	W32
	W64
)

// Bytes returns the width in bytes.
func (w RegisterWidth) Bytes() int {
	switch w {
	case W8:
		return 1
	case W16:
		return 2
	case W32:
		return 4
	default:
		return 8
	}
}

// AddrKind discriminates Address (§3's LIR Address sum).
type AddrKind byte

const (
	AddrBase AddrKind = iota
	AddrBaseOffset
	AddrIndexed
	AddrStackRelative
	AddrGlobal
)

// Address is a memory operand: `Base(reg) | BaseOffset(reg,i32) |
// Indexed(base,index,scale,offset) | StackRelative(offset) | Global(Symbol)`.
type Address struct {
	Kind AddrKind

	Base   VReg // AddrBase, AddrBaseOffset, AddrIndexed
	Index  VReg // AddrIndexed
	Scale  uint8 // AddrIndexed: one of 1, 2, 4, 8
	Offset int32 // AddrBaseOffset, AddrIndexed, AddrStackRelative

	Global symbol.Symbol // AddrGlobal
}

// StackRelative builds an Address relative to the frame base.
func StackRelative(offset int32) Address {
	return Address{Kind: AddrStackRelative, Offset: offset}
}

// OperandKind discriminates Operand (§3's LIR Operand sum).
type OperandKind byte

const (
	OperandReg OperandKind = iota
	OperandPhysReg
	OperandImm
	OperandMem
	OperandLabel
)

// Operand is `Reg(Virtual) | PhysReg(Physical) | Imm(i64) | Mem(Address) |
// Label(String)`.
type Operand struct {
	Kind OperandKind

	Reg     VReg
	Phys    PhysicalRegister
	Imm     int64
	Mem     Address
	LabelID string
}

// Reg wraps a virtual-register operand.
func Reg(v VReg) Operand { return Operand{Kind: OperandReg, Reg: v} }

// PhysReg wraps a physical-register operand.
func PhysReg(r PhysicalRegister) Operand { return Operand{Kind: OperandPhysReg, Phys: r} }

// Imm wraps an immediate operand.
func Imm(v int64) Operand { return Operand{Kind: OperandImm, Imm: v} }

// Mem wraps a memory operand.
func Mem(addr Address) Operand { return Operand{Kind: OperandMem, Mem: addr} }

// Label wraps a label-reference operand (used by Lea of a global, etc).
func Label(name string) Operand { return Operand{Kind: OperandLabel, LabelID: name} }

// BinOp mirrors mir.BinOp's arithmetic/bitwise subset at the LIR level,
// after comparisons have been split out into Cmp+Jcc (Open Question #1).
type BinOp byte

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
)

// UnOp is a unary LIR operator.
type UnOp byte

const (
	UnNeg UnOp = iota
	UnNot
)

// Condition names a Jcc's flag test, set by a preceding Cmp.
type Condition byte

const (
	CondEq Condition = iota
	CondNe
	CondLt
	CondLe
	CondGt
	CondGe
)

// String implements fmt.Stringer.
func (c Condition) String() string {
	switch c {
	case CondEq:
		return "e"
	case CondNe:
		return "ne"
	case CondLt:
		return "l"
	case CondLe:
		return "le"
	case CondGt:
		return "g"
	case CondGe:
		return "ge"
	default:
		return "?"
	}
}

// InstrKind discriminates Instruction (§3's abridged LIR instruction set).
type InstrKind byte

const (
	InstrLabel InstrKind = iota
	InstrMov
	InstrLoad
	InstrStore
	InstrLea
	InstrBinOp
	InstrUnOp
	InstrCmp
	InstrJmp
	InstrJcc
	InstrCall
	InstrRet
	InstrPush
	InstrPop
	InstrAdd
	InstrSub
	InstrSaveCalleeSaved
	InstrRestoreCalleeSaved
	InstrSafepointPoll
	InstrNop
)

// Instruction is one LIR instruction. Exactly one subset of fields is
// meaningful per Kind, following the closed-sum-type discipline of §9.
type Instruction struct {
	Kind InstrKind

	LabelName string // InstrLabel, InstrJmp/InstrJcc target, InstrCall target

	Dest Operand // InstrMov, InstrLoad, InstrLea, InstrBinOp, InstrUnOp, InstrAdd, InstrSub, InstrPop
	Src  Operand // InstrMov, InstrStore, InstrUnOp, InstrPush, InstrAdd, InstrSub
	Addr Address // InstrLoad, InstrStore, InstrLea

	Op   BinOp // InstrBinOp
	Src1 Operand // InstrBinOp, InstrCmp
	Src2 Operand // InstrBinOp, InstrCmp

	UOp UnOp // InstrUnOp

	Cond Condition // InstrJcc

	HasRetValue bool    // InstrRet
	RetValue    Operand // InstrRet

	SavedRegs []PhysicalRegister // InstrSaveCalleeSaved, InstrRestoreCalleeSaved
}

// LabelInstr builds a Label instruction marking a block's entry point.
func LabelInstr(name string) Instruction { return Instruction{Kind: InstrLabel, LabelName: name} }

// Mov builds a Mov{dest,src} instruction.
func Mov(dest, src Operand) Instruction { return Instruction{Kind: InstrMov, Dest: dest, Src: src} }

// BinOpInstr builds a BinOp{op,dest,src1,src2} instruction.
func BinOpInstr(op BinOp, dest, src1, src2 Operand) Instruction {
	return Instruction{Kind: InstrBinOp, Op: op, Dest: dest, Src1: src1, Src2: src2}
}

// Cmp builds a Cmp{src1,src2} instruction.
func Cmp(src1, src2 Operand) Instruction {
	return Instruction{Kind: InstrCmp, Src1: src1, Src2: src2}
}

// Jmp builds an unconditional Jmp{target} instruction.
func Jmp(target string) Instruction { return Instruction{Kind: InstrJmp, LabelName: target} }

// Jcc builds a conditional Jcc{cond,target} instruction.
func Jcc(cond Condition, target string) Instruction {
	return Instruction{Kind: InstrJcc, Cond: cond, LabelName: target}
}

// Ret builds a Ret{value?} instruction.
func Ret(value *Operand) Instruction {
	if value == nil {
		return Instruction{Kind: InstrRet}
	}
	return Instruction{Kind: InstrRet, HasRetValue: true, RetValue: *value}
}

// SafepointPoll builds the poll-point instruction the lowerer (§4.C4, §D)
// emits at loop back-edges and call sites.
func SafepointPoll() Instruction { return Instruction{Kind: InstrSafepointPoll} }

// FuncLabel is a named instruction-stream position (block entry, `.Lbb<id>`-style).
type FuncLabel struct {
	Name  string
	Index int // index into Function.Instructions where the label occurs
}

// Function is one lowered LIR function: a flat instruction stream plus the
// virtual registers it references and its (eventually ABI-computed) frame
// size (§3/§4.C3, directly mirroring the Rust `lir::Function` shape).
type Function struct {
	Name         symbol.Symbol
	Registers    []VReg
	Instructions []Instruction
	Labels       []FuncLabel
	FrameSize    uint32
}
