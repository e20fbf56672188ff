// Package lower implements the MIR→LIR lowering of §4.C4: one MIR function
// becomes one LIR function, block ids become labels, locals become virtual
// registers allocated from a monotonic counter, and comparisons fuse into
// Cmp+Jcc at their sole If consumer rather than always materializing a
// boolean value (Open Question #1 — see SPEC_FULL.md §E.1; the Rust
// original maps every comparison BinOp to BinOp::Add as an unfinished
// placeholder, which this lowerer replaces outright).
package lower

import (
	"fmt"

	"github.com/faxlang/faxc/internal/backend/abi"
	"github.com/faxlang/faxc/internal/lir"
	"github.com/faxlang/faxc/internal/mir"
)

// pendingCompare records a comparison BinaryOp assigned to a local whose
// LIR has not yet been emitted — it is materialized lazily, either fused
// into the block's terminator (if the local's only use is as an If
// condition) or spilled out to a value the moment any other read occurs.
type pendingCompare struct {
	op  mir.BinOp
	lhs mir.Operand
	rhs mir.Operand
}

// lowerer holds the per-function state of one MIR→LIR lowering pass.
type lowerer struct {
	fn            *lir.Function
	registerCount uint32
	localToReg    map[mir.LocalId]lir.VReg
	labelCount    int
}

// Lower lowers a single MIR function into a LIR function (§4.C4).
func Lower(f *mir.Function) *lir.Function {
	l := &lowerer{
		fn:         &lir.Function{Name: f.Name},
		localToReg: make(map[mir.LocalId]lir.VReg),
	}
	for i := range f.Blocks {
		l.lowerBlock(f, &f.Blocks[i])
	}
	return l.fn
}

func (l *lowerer) newReg() lir.VReg {
	v := lir.NewVReg(lir.VRegID(l.registerCount), lir.RegTypeInt)
	l.registerCount++
	l.fn.Registers = append(l.fn.Registers, v)
	return v
}

func (l *lowerer) newLabel(prefix string) string {
	l.labelCount++
	return fmt.Sprintf(".L%s%d", prefix, l.labelCount)
}

// blockLabel names a MIR block's LIR label (§4.C4: "each MIR BlockId b
// becomes a LIR label .Lbb{b}").
func blockLabel(id mir.BlockId) string { return fmt.Sprintf(".Lbb%d", id) }

func (l *lowerer) emit(instr lir.Instruction) { l.fn.Instructions = append(l.fn.Instructions, instr) }

func (l *lowerer) emitLabel(name string) {
	l.fn.Labels = append(l.fn.Labels, lir.FuncLabel{Name: name, Index: len(l.fn.Instructions)})
	l.emit(lir.LabelInstr(name))
}

// regFor returns the virtual register mapped to a bare local, allocating
// one on first use (§4.C4's mir_to_lir_reg map).
func (l *lowerer) regFor(id mir.LocalId) lir.VReg {
	if reg, ok := l.localToReg[id]; ok {
		return reg
	}
	reg := l.newReg()
	l.localToReg[id] = reg
	return reg
}

// getPlaceReg resolves a Place to its destination register. Only bare
// Local places are given the stable mir_to_lir_reg mapping; any projection
// falls back to a fresh register, mirroring the Rust lowerer's `_ =>
// self.new_reg()` fallback (no projection lowering is specified by §4.C4).
func (l *lowerer) getPlaceReg(p mir.Place) lir.VReg {
	if id, ok := p.IsBarePlaceLocal(); ok {
		return l.regFor(id)
	}
	return l.newReg()
}

func (l *lowerer) lowerBlock(fn *mir.Function, blk *mir.BasicBlock) {
	l.emitLabel(blockLabel(blk.ID))

	pending := make(map[mir.LocalId]pendingCompare)

	for _, stmt := range blk.Statements {
		if stmt.Kind != mir.StmtAssign {
			continue
		}
		destID, isBare := stmt.Place.IsBarePlaceLocal()

		if isBare && stmt.Rval.Kind == mir.RvalBinaryOp && stmt.Rval.BinOp.IsComparison() {
			pending[destID] = pendingCompare{op: stmt.Rval.BinOp, lhs: stmt.Rval.LHS, rhs: stmt.Rval.RHS}
			continue
		}

		l.materializePendingInRvalue(stmt.Rval, pending)

		dest := l.getPlaceReg(stmt.Place)
		l.lowerRvalue(dest, stmt.Rval)
		if isBare {
			delete(pending, destID)
		}
	}

	l.lowerTerminator(fn, blk.ID, blk.Terminator, pending)
}

// isBackEdge reports whether a jump from src to target is a loop back-edge
// under the block-id ordering fallback this backend uses when no explicit
// loop analysis is available (target block id at or before the source's).
func isBackEdge(src mir.BlockId, target mir.BlockId) bool { return target <= src }

// materializePendingInRvalue forces materialization of any pending
// comparison read by rv's operands, dispatching only on the fields
// meaningful for rv.Kind (mirroring mir/optimize's markRvalue).
func (l *lowerer) materializePendingInRvalue(rv mir.Rvalue, pending map[mir.LocalId]pendingCompare) {
	switch rv.Kind {
	case mir.RvalUse, mir.RvalUnaryOp, mir.RvalCast:
		l.materializeOperandIfPending(rv.Operand, pending)
	case mir.RvalBinaryOp, mir.RvalCheckedBinaryOp:
		l.materializeOperandIfPending(rv.LHS, pending)
		l.materializeOperandIfPending(rv.RHS, pending)
	case mir.RvalAggregate:
		for _, elt := range rv.AggregateElts {
			l.materializeOperandIfPending(elt, pending)
		}
	}
}

// materializeOperandIfPending emits the deferred value-materialization
// sequence for a comparison-valued local the moment it is read by anything
// other than its eventual If terminator.
func (l *lowerer) materializeOperandIfPending(op mir.Operand, pending map[mir.LocalId]pendingCompare) {
	place, ok := op.AsPlace()
	if !ok {
		return
	}
	id, isBare := place.IsBarePlaceLocal()
	if !isBare {
		return
	}
	cmp, ok := pending[id]
	if !ok {
		return
	}
	delete(pending, id)
	l.materializeComparison(l.regFor(id), cmp)
}

// materializeComparison emits Cmp followed by a branch-free 0/1
// materialization into dest, using only instructions from §3's abridged
// LIR instruction set (no Setcc is listed there).
func (l *lowerer) materializeComparison(dest lir.VReg, cmp pendingCompare) {
	lhs := l.lowerOperandToReg(cmp.lhs)
	rhs := l.lowerOperand(cmp.rhs)
	l.emit(lir.Cmp(lir.Reg(lhs), rhs))

	trueLabel := l.newLabel("cmpt")
	doneLabel := l.newLabel("cmpd")
	l.emit(lir.Mov(lir.Reg(dest), lir.Imm(0)))
	l.emit(lir.Jcc(convertCondition(cmp.op), trueLabel))
	l.emit(lir.Jmp(doneLabel))
	l.emitLabel(trueLabel)
	l.emit(lir.Mov(lir.Reg(dest), lir.Imm(1)))
	l.emitLabel(doneLabel)
}

func (l *lowerer) lowerRvalue(dest lir.VReg, rv mir.Rvalue) {
	switch rv.Kind {
	case mir.RvalUse:
		src := l.lowerOperand(rv.Operand)
		l.emit(lir.Mov(lir.Reg(dest), src))
	case mir.RvalBinaryOp, mir.RvalCheckedBinaryOp:
		if rv.BinOp.IsComparison() {
			l.materializeComparison(dest, pendingCompare{op: rv.BinOp, lhs: rv.LHS, rhs: rv.RHS})
			return
		}
		src1 := l.lowerOperandToReg(rv.LHS)
		src2 := l.lowerOperand(rv.RHS)
		l.emit(lir.BinOpInstr(convertBinOp(rv.BinOp), lir.Reg(dest), lir.Reg(src1), src2))
	case mir.RvalUnaryOp:
		src := l.lowerOperandToReg(rv.Operand)
		l.emit(lir.Instruction{Kind: lir.InstrUnOp, UOp: convertUnOp(rv.UnOp), Dest: lir.Reg(dest), Src: lir.Reg(src)})
	case mir.RvalCast:
		// No width-narrowing conversion is specified by §4.C4; a cast
		// carries its value through unchanged at the LIR level and is
		// made precise by the type-mapping table at emission (§4.C6).
		src := l.lowerOperand(rv.Operand)
		l.emit(lir.Mov(lir.Reg(dest), src))
	default:
		// Ref/AddressOf/NullaryOp/Discriminant/Aggregate have no lowering
		// rule in §4.C4's table; front-end HIR does not currently produce
		// them for the subset of Fax this backend targets.
	}
}

func (l *lowerer) lowerOperand(op mir.Operand) lir.Operand {
	if place, ok := op.AsPlace(); ok {
		return lir.Reg(l.getPlaceReg(place))
	}
	if v, ok := op.AsConstInt(); ok {
		return lir.Imm(v)
	}
	return lir.Imm(0)
}

func (l *lowerer) lowerOperandToReg(op mir.Operand) lir.VReg {
	v := l.lowerOperand(op)
	if v.Kind == lir.OperandReg {
		return v.Reg
	}
	reg := l.newReg()
	l.emit(lir.Mov(lir.Reg(reg), v))
	return reg
}

func convertBinOp(op mir.BinOp) lir.BinOp {
	switch op {
	case mir.BinAdd:
		return lir.BinAdd
	case mir.BinSub:
		return lir.BinSub
	case mir.BinMul:
		return lir.BinMul
	case mir.BinDiv:
		return lir.BinDiv
	case mir.BinRem:
		return lir.BinRem
	case mir.BinBitAnd:
		return lir.BinAnd
	case mir.BinBitOr:
		return lir.BinOr
	case mir.BinBitXor:
		return lir.BinXor
	case mir.BinShl:
		return lir.BinShl
	case mir.BinShr:
		return lir.BinShr
	default:
		return lir.BinAdd
	}
}

func convertUnOp(op mir.UnOp) lir.UnOp {
	if op == mir.UnNot {
		return lir.UnNot
	}
	return lir.UnNeg
}

func convertCondition(op mir.BinOp) lir.Condition {
	switch op {
	case mir.BinEq:
		return lir.CondEq
	case mir.BinNe:
		return lir.CondNe
	case mir.BinLt:
		return lir.CondLt
	case mir.BinLe:
		return lir.CondLe
	case mir.BinGt:
		return lir.CondGt
	case mir.BinGe:
		return lir.CondGe
	default:
		return lir.CondEq
	}
}

// lowerTerminator lowers blk's terminator, emitting a SafepointPoll ahead of
// any back-edge jump or call (SPEC_FULL.md §D: "poll points are emitted at
// least at every back-edge and every call").
func (l *lowerer) lowerTerminator(fn *mir.Function, srcBlock mir.BlockId, term mir.Terminator, pending map[mir.LocalId]pendingCompare) {
	switch term.Kind {
	case mir.TermReturn:
		if cmp, ok := pending[mir.ReturnLocal]; ok {
			delete(pending, mir.ReturnLocal)
			l.materializeComparison(l.regFor(mir.ReturnLocal), cmp)
		}
		l.emit(lir.Mov(lir.PhysReg(abi.RetIntReg), lir.Reg(l.regFor(mir.ReturnLocal))))
		l.emit(lir.Ret(nil))

	case mir.TermGoto:
		if isBackEdge(srcBlock, term.Target) {
			l.emit(lir.SafepointPoll())
		}
		l.emit(lir.Jmp(blockLabel(term.Target)))

	case mir.TermIf:
		if l.fuseIfCondition(term, pending) {
			return
		}
		l.materializeOperandIfPending(term.Cond, pending)
		condReg := l.lowerOperandToReg(term.Cond)
		l.emit(lir.Cmp(lir.Reg(condReg), lir.Imm(1)))
		l.emit(lir.Jcc(lir.CondEq, blockLabel(term.ThenBlock)))
		l.emit(lir.Jmp(blockLabel(term.ElseBlock)))

	case mir.TermCall:
		for _, arg := range term.Args {
			l.materializeOperandIfPending(arg, pending)
		}
		l.emit(lir.SafepointPoll())
		l.lowerCall(fn, term)

	case mir.TermSwitchInt:
		l.materializeOperandIfPending(term.Discr, pending)
		discReg := l.lowerOperandToReg(term.Discr)
		for _, target := range term.Targets {
			l.emit(lir.Cmp(lir.Reg(discReg), lir.Imm(int64(target.Value))))
			l.emit(lir.Jcc(lir.CondEq, blockLabel(target.Target)))
		}
		if isBackEdge(srcBlock, term.Otherwise) {
			l.emit(lir.SafepointPoll())
		}
		l.emit(lir.Jmp(blockLabel(term.Otherwise)))

	case mir.TermUnreachable:
		// no LIR emitted, per §4.C4's explicit allowance.

	case mir.TermResume, mir.TermAbort:
		// no lowering rule specified by §4.C4 for these MIR-only
		// unwind terminators; they do not reach codegen in this backend.
	}
}

// fuseIfCondition fuses Cmp+Jcc directly from a pending comparison when the
// If's condition is exactly that comparison's destination local and it has
// no other use, eliding the 0/1 materialization entirely (Open Question
// #1, SPEC_FULL.md §E.1).
func (l *lowerer) fuseIfCondition(term mir.Terminator, pending map[mir.LocalId]pendingCompare) bool {
	place, ok := term.Cond.AsPlace()
	if !ok {
		return false
	}
	id, isBare := place.IsBarePlaceLocal()
	if !isBare {
		return false
	}
	cmp, ok := pending[id]
	if !ok {
		return false
	}
	delete(pending, id)

	lhs := l.lowerOperandToReg(cmp.lhs)
	rhs := l.lowerOperand(cmp.rhs)
	l.emit(lir.Cmp(lir.Reg(lhs), rhs))
	l.emit(lir.Jcc(convertCondition(cmp.op), blockLabel(term.ThenBlock)))
	l.emit(lir.Jmp(blockLabel(term.ElseBlock)))
	return true
}

// lowerCall marshals arguments per the SystemV classification (§4.C5),
// emits the Call, and moves the result out of RAX into the call's
// destination place. The move is emitted whether or not the destination is
// read later.
func (l *lowerer) lowerCall(fn *mir.Function, term mir.Terminator) {
	intIdx, floatIdx := 0, 0
	for _, arg := range term.Args {
		isFloat := operandIsFloat(fn, arg)
		var idx int
		if isFloat {
			idx = floatIdx
			floatIdx++
		} else {
			idx = intIdx
			intIdx++
		}
		loc := abi.ClassifyParam(idx, isFloat)
		src := l.lowerOperand(arg)
		switch loc.Kind {
		case abi.ParamInRegister:
			l.emit(lir.Mov(lir.PhysReg(loc.Reg), src))
		case abi.ParamOnStack:
			addr := lir.Address{Kind: lir.AddrBaseOffset, Base: lir.PhysVReg(lir.RSP), Offset: loc.Offset}
			l.emit(lir.Instruction{Kind: lir.InstrStore, Addr: addr, Src: src})
		}
	}

	funcOperand := l.lowerOperand(term.Func)
	l.emit(lir.Instruction{Kind: lir.InstrCall, Src: funcOperand})

	dest := l.getPlaceReg(term.Destination)
	l.emit(lir.Mov(lir.Reg(dest), lir.PhysReg(abi.RetIntReg)))

	if term.CallTarget != nil {
		l.emit(lir.Jmp(blockLabel(*term.CallTarget)))
	}
}

// operandIsFloat reports whether op's static type is floating-point, used
// to classify call arguments between the integer and SSE register files.
func operandIsFloat(fn *mir.Function, op mir.Operand) bool {
	if place, ok := op.AsPlace(); ok {
		if id, ok := place.IsBarePlaceLocal(); ok && int(id) < len(fn.Locals) {
			return fn.Locals[id].Ty.IsFloat()
		}
		return false
	}
	return op.Const.Kind == mir.ConstFloat
}
