// Package mir implements the Control-Flow-Graph mid-level IR (§3.1, C1): a
// dense arena of basic blocks over typed places and operands. Following §9's
// "Cyclic graphs" note, blocks, locals and definitions are referenced purely
// by index into dense slices — never by pointer — so the whole structure is
// trivially copyable and free of ownership cycles, the same arena-by-index
// discipline wazero's ssa.Builder uses for its basic-block graph.
package mir

import (
	"github.com/faxlang/faxc/internal/diag"
	"github.com/faxlang/faxc/internal/symbol"
	"github.com/faxlang/faxc/internal/types"
)

// LocalId indexes Function.Locals. Local 0 always designates the return
// place (§3.1).
type LocalId uint32

// BlockId indexes Function.Blocks.
type BlockId uint32

// ReturnLocal is the reserved index of the function's return place.
const ReturnLocal LocalId = 0

// Local describes one stack slot: its type, declaration site, and an
// optional source name for diagnostics.
type Local struct {
	Ty   types.Type
	Span diag.Span
	Name symbol.Symbol // symbol.Invalid if unnamed (e.g. compiler temporaries)
}

// Function owns all of a MIR function's locals and blocks as dense,
// index-addressed slices (§3.1).
type Function struct {
	Name       symbol.Symbol
	Locals     []Local
	Blocks     []BasicBlock
	EntryBlock BlockId
	ReturnTy   types.Type
	ArgCount   int
	ArgLocals  []LocalId
}

// Local returns the Local at id.
func (f *Function) Local(id LocalId) *Local { return &f.Locals[id] }

// Block returns the BasicBlock at id.
func (f *Function) Block(id BlockId) *BasicBlock { return &f.Blocks[id] }

// NumLocals returns len(f.Locals).
func (f *Function) NumLocals() int { return len(f.Locals) }

// NumBlocks returns len(f.Blocks).
func (f *Function) NumBlocks() int { return len(f.Blocks) }

// BasicBlock holds an ordered statement list and exactly one terminator.
// After lowering, every reachable block's terminator is non-Unreachable
// (§3.1 invariant).
type BasicBlock struct {
	ID          BlockId
	Statements  []Statement
	Terminator  Terminator
}

// StmtKind discriminates Statement (§3.1).
type StmtKind byte

const (
	StmtAssign StmtKind = iota
	StmtStorageLive
	StmtStorageDead
	StmtNop
)

// Statement is Assign(Place, Rvalue) | StorageLive(LocalId) |
// StorageDead(LocalId) | Nop.
type Statement struct {
	Kind  StmtKind
	Place Place  // StmtAssign
	Rval  Rvalue // StmtAssign
	Local LocalId // StmtStorageLive, StmtStorageDead
}

// NopStatement returns a Nop, used by the optimizer to erase dead
// statements in place without shrinking the slice (§4.C2).
func NopStatement() Statement { return Statement{Kind: StmtNop} }

// ProjKind discriminates a Place projection (§3.1).
type ProjKind byte

const (
	ProjField ProjKind = iota
	ProjIndex
	ProjConstantIndex
	ProjDeref
	ProjSubslice
)

// Projection is one link in a Place's projection chain.
type Projection struct {
	Kind ProjKind

	Field uint32  // ProjField
	Index LocalId // ProjIndex

	// ProjConstantIndex
	Offset    uint64
	MinLength uint64
	FromEnd   bool

	// ProjSubslice
	From uint64
	To   uint64
}

// Place is Local(LocalId) optionally followed by a projection chain
// (§3.1). Projections are stored outermost-last, i.e. applied in order.
type Place struct {
	Local LocalId
	Projs []Projection
}

// LocalPlace returns the bare place for local id with no projections.
func LocalPlace(id LocalId) Place { return Place{Local: id} }

// Field returns p with an additional Field projection appended.
func (p Place) Field(idx uint32) Place {
	return p.withProj(Projection{Kind: ProjField, Field: idx})
}

// Deref returns p with an additional Deref projection appended.
func (p Place) Deref() Place {
	return p.withProj(Projection{Kind: ProjDeref})
}

// Index returns p with an additional Index projection appended.
func (p Place) Index(idx LocalId) Place {
	return p.withProj(Projection{Kind: ProjIndex, Index: idx})
}

func (p Place) withProj(proj Projection) Place {
	projs := make([]Projection, len(p.Projs)+1)
	copy(projs, p.Projs)
	projs[len(p.Projs)] = proj
	return Place{Local: p.Local, Projs: projs}
}

// IsBarePlaceLocal reports whether p is exactly Local(id) with no
// projections — the common case the optimizer special-cases.
func (p Place) IsBarePlaceLocal() (LocalId, bool) {
	if len(p.Projs) == 0 {
		return p.Local, true
	}
	return 0, false
}

// UnOp is a unary operator (§3.1).
type UnOp byte

const (
	UnNeg UnOp = iota
	UnNot
)

// BinOp is a binary operator (§3.1).
type BinOp byte

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinOffset
)

// IsComparison reports whether op produces a bool (§4.C4's comparison
// lowering path, and Open Question #1).
func (op BinOp) IsComparison() bool {
	switch op {
	case BinEq, BinNe, BinLt, BinLe, BinGt, BinGe:
		return true
	default:
		return false
	}
}

// IsArithmeticFoldable reports whether op is one of the integer operators
// constant folding is defined over (§4.C2: "Add, Sub, Mul, Div, Rem, BitAnd,
// BitOr, BitXor").
func (op BinOp) IsArithmeticFoldable() bool {
	switch op {
	case BinAdd, BinSub, BinMul, BinDiv, BinRem, BinBitAnd, BinBitOr, BinBitXor:
		return true
	default:
		return false
	}
}

// NullOp is a nullary, type-driven operator (§3.1).
type NullOp byte

const (
	NullSizeOf NullOp = iota
	NullAlignOf
)

// CastKind discriminates a Cast rvalue (§3.1).
type CastKind byte

const (
	CastIntToInt CastKind = iota
	CastIntToFloat
	CastFloatToInt
	CastFloatToFloat
	CastPtrToPtr
	CastPtrToInt
	CastIntToPtr
)

// AggregateKind discriminates an Aggregate rvalue (§3.1).
type AggregateKind byte

const (
	AggregateTuple AggregateKind = iota
	AggregateArray
	AggregateStruct
	AggregateClosure
)

// RvalueKind discriminates Rvalue (§3.1).
type RvalueKind byte

const (
	RvalUse RvalueKind = iota
	RvalRef
	RvalAddressOf
	RvalUnaryOp
	RvalBinaryOp
	RvalCheckedBinaryOp
	RvalNullaryOp
	RvalCast
	RvalDiscriminant
	RvalAggregate
)

// Rvalue is the right-hand side of an Assign statement (§3.1).
type Rvalue struct {
	Kind RvalueKind

	Operand Operand // RvalUse, RvalUnaryOp (operand), RvalCast (operand)
	Place   Place   // RvalRef, RvalAddressOf, RvalDiscriminant
	Mut     bool    // RvalRef, RvalAddressOf

	UnOp UnOp // RvalUnaryOp

	BinOp BinOp   // RvalBinaryOp, RvalCheckedBinaryOp
	LHS   Operand // RvalBinaryOp, RvalCheckedBinaryOp
	RHS   Operand // RvalBinaryOp, RvalCheckedBinaryOp

	NullOp NullOp // RvalNullaryOp
	Ty     types.Type // RvalNullaryOp, RvalCast, aggregate array element type

	CastKind CastKind // RvalCast

	Aggregate     AggregateKind // RvalAggregate
	AggregateDef  symbol.DefId  // RvalAggregate (Struct, Closure)
	AggregateElts []Operand     // RvalAggregate
}

// Use wraps a plain operand.
func Use(op Operand) Rvalue { return Rvalue{Kind: RvalUse, Operand: op} }

// BinaryOp builds an arithmetic/comparison rvalue.
func BinaryOp(op BinOp, lhs, rhs Operand) Rvalue {
	return Rvalue{Kind: RvalBinaryOp, BinOp: op, LHS: lhs, RHS: rhs}
}

// OperandKind discriminates Operand (§3.1).
type OperandKind byte

const (
	OperandCopy OperandKind = iota
	OperandMove
	OperandConstant
)

// ConstKind discriminates a Constant operand's payload.
type ConstKind byte

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstBool
	ConstUnit
)

// Constant is a literal value carried by an Operand (§3.1).
type Constant struct {
	Ty   types.Type
	Kind ConstKind

	Int    int64
	Float  float64
	String symbol.Symbol
	Bool   bool
}

// Operand is Copy(Place) | Move(Place) | Constant{...} (§3.1).
type Operand struct {
	Kind  OperandKind
	Place Place
	Const Constant
}

// CopyOperand builds a Copy(place) operand.
func CopyOperand(p Place) Operand { return Operand{Kind: OperandCopy, Place: p} }

// MoveOperand builds a Move(place) operand.
func MoveOperand(p Place) Operand { return Operand{Kind: OperandMove, Place: p} }

// ConstInt64 builds an integer constant operand of type ty.
func ConstInt64(ty types.Type, v int64) Operand {
	return Operand{Kind: OperandConstant, Const: Constant{Ty: ty, Kind: ConstInt, Int: v}}
}

// ConstBoolOperand builds a bool constant operand.
func ConstBoolOperand(v bool) Operand {
	return Operand{Kind: OperandConstant, Const: Constant{Ty: types.Bool, Kind: ConstBool, Bool: v}}
}

// AsPlace returns the Place an Operand reads from and whether it is
// Copy/Move rather than a Constant.
func (o Operand) AsPlace() (Place, bool) {
	if o.Kind == OperandCopy || o.Kind == OperandMove {
		return o.Place, true
	}
	return Place{}, false
}

// AsConstInt returns the integer value of an Operand if it is an integer
// Constant (used by constant folding, §4.C2).
func (o Operand) AsConstInt() (int64, bool) {
	if o.Kind == OperandConstant && o.Const.Kind == ConstInt {
		return o.Const.Int, true
	}
	return 0, false
}

// TermKind discriminates Terminator (§3.1).
type TermKind byte

const (
	TermGoto TermKind = iota
	TermIf
	TermSwitchInt
	TermReturn
	TermUnreachable
	TermCall
	TermResume
	TermAbort
)

// SwitchTarget pairs a matched discriminant value with its target block.
type SwitchTarget struct {
	Value  uint64
	Target BlockId
}

// Terminator ends a BasicBlock (§3.1). Exactly one kind of payload is
// meaningful per Kind, following the closed-sum-type discipline of §9.
type Terminator struct {
	Kind TermKind

	Target BlockId // TermGoto

	Cond      Operand // TermIf
	ThenBlock BlockId // TermIf
	ElseBlock BlockId // TermIf

	Discr     Operand        // TermSwitchInt
	SwitchTy  types.Type     // TermSwitchInt
	Targets   []SwitchTarget // TermSwitchInt
	Otherwise BlockId        // TermSwitchInt

	Func        Operand   // TermCall
	Args        []Operand // TermCall
	Destination Place     // TermCall
	CallTarget  *BlockId  // TermCall, nil if the call diverges
	Cleanup     *BlockId  // TermCall
}

// Successors returns every BlockId this terminator may transfer control to,
// in a stable order, used by CFG-consuming passes and §8's invariant that
// every referenced block id exists.
func (t Terminator) Successors() []BlockId {
	switch t.Kind {
	case TermGoto:
		return []BlockId{t.Target}
	case TermIf:
		return []BlockId{t.ThenBlock, t.ElseBlock}
	case TermSwitchInt:
		out := make([]BlockId, 0, len(t.Targets)+1)
		for _, tg := range t.Targets {
			out = append(out, tg.Target)
		}
		return append(out, t.Otherwise)
	case TermCall:
		var out []BlockId
		if t.CallTarget != nil {
			out = append(out, *t.CallTarget)
		}
		if t.Cleanup != nil {
			out = append(out, *t.Cleanup)
		}
		return out
	default: // Return, Unreachable, Resume, Abort
		return nil
	}
}
