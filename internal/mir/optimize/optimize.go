// Package optimize implements the three MIR optimization passes of §4.C2:
// constant folding, dead-code elimination, and copy propagation, applied in
// that order as a single sweep each. Each pass is a free function over
// *mir.Function, per §9's "factor shared behavior as free functions" note
// rather than a visitor base class — mirroring wazero's
// internal/engine/wazevo/ssa/pass.go style of standalone pass functions
// driven by the Builder, and grounded directly on
// faxc-mir/src/optimize.rs's function-at-a-time structure.
package optimize

import (
	"github.com/samber/lo"

	"github.com/faxlang/faxc/internal/mir"
	"github.com/faxlang/faxc/internal/types"
)

// Run applies constant folding, DCE and copy propagation in order (§4.C2).
func Run(f *mir.Function) {
	ConstantFold(f)
	DeadCodeEliminate(f)
	CopyPropagate(f)
}

// ConstantFold evaluates BinaryOp(op, Const, Const) for integer operands and
// op in {Add,Sub,Mul,Div,Rem,BitAnd,BitOr,BitXor}, replacing the statement
// with Use(Const(result)). Division/remainder by zero is left unfolded.
// Arithmetic wraps on the result type's width (§4.C2 rule 1).
func ConstantFold(f *mir.Function) {
	for bi := range f.Blocks {
		blk := &f.Blocks[bi]
		for si := range blk.Statements {
			stmt := &blk.Statements[si]
			if stmt.Kind != mir.StmtAssign || stmt.Rval.Kind != mir.RvalBinaryOp {
				continue
			}
			lv, lok := stmt.Rval.LHS.AsConstInt()
			rv, rok := stmt.Rval.RHS.AsConstInt()
			if !lok || !rok {
				continue
			}
			op := stmt.Rval.BinOp
			if !op.IsArithmeticFoldable() {
				continue
			}
			if (op == mir.BinDiv || op == mir.BinRem) && rv == 0 {
				continue // skipped, not folded (§4.C2 rule 1)
			}
			ty := stmt.Rval.LHS.Const.Ty
			result := foldInt(op, lv, rv, ty)
			*stmt = mir.Statement{
				Kind:  mir.StmtAssign,
				Place: stmt.Place,
				Rval:  mir.Use(mir.ConstInt64(ty, result)),
			}
		}
	}
}

// foldInt evaluates op(lv, rv) with wrapping semantics on ty's bit width.
func foldInt(op mir.BinOp, lv, rv int64, ty types.Type) int64 {
	var result int64
	switch op {
	case mir.BinAdd:
		result = lv + rv
	case mir.BinSub:
		result = lv - rv
	case mir.BinMul:
		result = lv * rv
	case mir.BinDiv:
		result = lv / rv
	case mir.BinRem:
		result = lv % rv
	case mir.BinBitAnd:
		result = lv & rv
	case mir.BinBitOr:
		result = lv | rv
	case mir.BinBitXor:
		result = lv ^ rv
	}
	return wrapToWidth(result, ty)
}

// wrapToWidth truncates and sign-extends v to ty's integer width, giving
// wrapping semantics for widths narrower than 64 bits.
func wrapToWidth(v int64, ty types.Type) int64 {
	bits := ty.Bits()
	if bits >= 64 {
		return v
	}
	mask := int64(1)<<uint(bits) - 1
	v &= mask
	signBit := int64(1) << uint(bits-1)
	if ty.Signed() && v&signBit != 0 {
		v -= mask + 1
	}
	return v
}

// DeadCodeEliminate computes the used-locals set starting from {local 0}
// (the return place), following every Copy/Move use across statements and
// terminators (including call arguments), and rewrites every
// Assign(Local(i), _) with i not in the set to Nop (§4.C2 rule 2). A single
// pass suffices when run before copy propagation, per spec.
func DeadCodeEliminate(f *mir.Function) {
	used := lo.Times(len(f.Locals), func(_ int) bool { return false })
	used[mir.ReturnLocal] = true

	markOperand := func(op mir.Operand) {
		if place, ok := op.AsPlace(); ok {
			used[place.Local] = true
		}
	}
	markRvalue := func(r mir.Rvalue) {
		switch r.Kind {
		case mir.RvalUse, mir.RvalUnaryOp, mir.RvalCast:
			markOperand(r.Operand)
		case mir.RvalBinaryOp, mir.RvalCheckedBinaryOp:
			markOperand(r.LHS)
			markOperand(r.RHS)
		case mir.RvalAggregate:
			for _, elt := range r.AggregateElts {
				markOperand(elt)
			}
		case mir.RvalRef, mir.RvalAddressOf, mir.RvalDiscriminant:
			used[r.Place.Local] = true
		}
	}
	markTerminator := func(t mir.Terminator) {
		switch t.Kind {
		case mir.TermIf:
			markOperand(t.Cond)
		case mir.TermSwitchInt:
			markOperand(t.Discr)
		case mir.TermCall:
			for _, arg := range t.Args {
				markOperand(arg)
			}
		}
	}

	for _, blk := range f.Blocks {
		for _, stmt := range blk.Statements {
			if stmt.Kind == mir.StmtAssign {
				markRvalue(stmt.Rval)
			}
		}
		markTerminator(blk.Terminator)
	}

	for bi := range f.Blocks {
		blk := &f.Blocks[bi]
		for si := range blk.Statements {
			stmt := &blk.Statements[si]
			if stmt.Kind != mir.StmtAssign {
				continue
			}
			localID, isBare := stmt.Place.IsBarePlaceLocal()
			if isBare && !used[localID] {
				*stmt = mir.NopStatement()
			}
		}
	}
}

// CopyPropagate walks each block maintaining a per-block copies map from
// LocalId to the Operand it was last assigned from a bare Use(Copy/Move),
// substituting recorded copies into later uses within the same block.
// A write to a destination local invalidates any mapping for it; the map
// is reset at block boundaries — this is an intra-block analysis only
// (§4.C2 rule 3).
func CopyPropagate(f *mir.Function) {
	for bi := range f.Blocks {
		blk := &f.Blocks[bi]
		copies := make(map[mir.LocalId]mir.Operand)

		for si := range blk.Statements {
			stmt := &blk.Statements[si]
			if stmt.Kind != mir.StmtAssign {
				continue
			}
			destID, destIsBare := stmt.Place.IsBarePlaceLocal()

			if destIsBare && stmt.Rval.Kind == mir.RvalUse {
				if srcPlace, ok := stmt.Rval.Operand.AsPlace(); ok {
					if srcID, srcIsBare := srcPlace.IsBarePlaceLocal(); srcIsBare {
						_ = srcID
						copies[destID] = stmt.Rval.Operand
						continue
					}
				}
			}

			propagateInRvalue(&stmt.Rval, copies)

			if destIsBare {
				delete(copies, destID)
			}
		}
	}
}

func propagateInRvalue(r *mir.Rvalue, copies map[mir.LocalId]mir.Operand) {
	switch r.Kind {
	case mir.RvalUse, mir.RvalUnaryOp, mir.RvalCast:
		propagateInOperand(&r.Operand, copies)
	case mir.RvalBinaryOp, mir.RvalCheckedBinaryOp:
		propagateInOperand(&r.LHS, copies)
		propagateInOperand(&r.RHS, copies)
	case mir.RvalAggregate:
		for i := range r.AggregateElts {
			propagateInOperand(&r.AggregateElts[i], copies)
		}
	}
}

func propagateInOperand(op *mir.Operand, copies map[mir.LocalId]mir.Operand) {
	place, ok := op.AsPlace()
	if !ok {
		return
	}
	localID, isBare := place.IsBarePlaceLocal()
	if !isBare {
		return
	}
	if replacement, ok := copies[localID]; ok {
		*op = replacement
	}
}
