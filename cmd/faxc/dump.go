package main

import (
	"fmt"
	"strings"

	"github.com/faxlang/faxc/internal/lir"
	"github.com/faxlang/faxc/internal/mir"
)

// dumpMir renders fn as indented pseudo-text for --emit mir, a debug
// format local to this CLI rather than anything the backend packages
// themselves need to produce.
func dumpMir(fn *mir.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fn %s -> %s {\n", fn.Name.String(), fn.ReturnTy.String())
	for i, l := range fn.Locals {
		fmt.Fprintf(&b, "  let _%d: %s\n", i, l.Ty.String())
	}
	for _, blk := range fn.Blocks {
		fmt.Fprintf(&b, "  bb%d:\n", blk.ID)
		for _, stmt := range blk.Statements {
			fmt.Fprintf(&b, "    %s\n", dumpStatement(stmt))
		}
		fmt.Fprintf(&b, "    %s\n", dumpTerminator(blk.Terminator))
	}
	b.WriteString("}")
	return b.String()
}

func dumpStatement(s mir.Statement) string {
	switch s.Kind {
	case mir.StmtAssign:
		return fmt.Sprintf("_%d = %s", s.Place.Local, dumpRvalue(s.Rval))
	case mir.StmtStorageLive:
		return fmt.Sprintf("StorageLive(_%d)", s.Local)
	case mir.StmtStorageDead:
		return fmt.Sprintf("StorageDead(_%d)", s.Local)
	default:
		return "nop"
	}
}

func dumpRvalue(r mir.Rvalue) string {
	switch r.Kind {
	case mir.RvalUse:
		return dumpOperand(r.Operand)
	case mir.RvalBinaryOp, mir.RvalCheckedBinaryOp:
		return fmt.Sprintf("%s(%s, %s)", dumpBinOp(r.BinOp), dumpOperand(r.LHS), dumpOperand(r.RHS))
	case mir.RvalUnaryOp:
		return fmt.Sprintf("unop(%s)", dumpOperand(r.Operand))
	default:
		return "<rvalue>"
	}
}

func dumpBinOp(op mir.BinOp) string {
	switch op {
	case mir.BinAdd:
		return "Add"
	case mir.BinSub:
		return "Sub"
	case mir.BinMul:
		return "Mul"
	default:
		return "BinOp"
	}
}

func dumpOperand(op mir.Operand) string {
	switch op.Kind {
	case mir.OperandCopy:
		return fmt.Sprintf("_%d", op.Place.Local)
	case mir.OperandMove:
		return fmt.Sprintf("move _%d", op.Place.Local)
	default:
		if v, ok := op.AsConstInt(); ok {
			return fmt.Sprintf("%d", v)
		}
		return "<const>"
	}
}

func dumpTerminator(t mir.Terminator) string {
	switch t.Kind {
	case mir.TermGoto:
		return fmt.Sprintf("goto -> bb%d", t.Target)
	case mir.TermIf:
		return fmt.Sprintf("if %s -> bb%d else bb%d", dumpOperand(t.Cond), t.ThenBlock, t.ElseBlock)
	case mir.TermReturn:
		return "return"
	default:
		return "unreachable"
	}
}

// dumpLir renders fn as indented pseudo-text for --emit lir, the same kind
// of local debug format dumpMir provides for MIR.
func dumpLir(fn *lir.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "lir fn %s {\n", fn.Name.String())
	for _, instr := range fn.Instructions {
		fmt.Fprintf(&b, "  %s\n", dumpInstruction(instr))
	}
	b.WriteString("}")
	return b.String()
}

func dumpInstruction(instr lir.Instruction) string {
	switch instr.Kind {
	case lir.InstrLabel:
		return instr.LabelName + ":"
	case lir.InstrMov:
		return fmt.Sprintf("mov %s, %s", dumpLirOperand(instr.Dest), dumpLirOperand(instr.Src))
	case lir.InstrBinOp:
		return fmt.Sprintf("%s %s, %s, %s", dumpLirBinOp(instr.Op), dumpLirOperand(instr.Dest), dumpLirOperand(instr.Src1), dumpLirOperand(instr.Src2))
	case lir.InstrCmp:
		return fmt.Sprintf("cmp %s, %s", dumpLirOperand(instr.Src1), dumpLirOperand(instr.Src2))
	case lir.InstrJmp:
		return fmt.Sprintf("jmp %s", instr.LabelName)
	case lir.InstrJcc:
		return fmt.Sprintf("j%s %s", instr.Cond.String(), instr.LabelName)
	case lir.InstrRet:
		if instr.HasRetValue {
			return fmt.Sprintf("ret %s", dumpLirOperand(instr.RetValue))
		}
		return "ret"
	case lir.InstrSafepointPoll:
		return "safepoint_poll"
	default:
		return "<instr>"
	}
}

func dumpLirBinOp(op lir.BinOp) string {
	switch op {
	case lir.BinAdd:
		return "add"
	case lir.BinSub:
		return "sub"
	case lir.BinMul:
		return "imul"
	case lir.BinDiv:
		return "idiv"
	case lir.BinRem:
		return "rem"
	case lir.BinAnd:
		return "and"
	case lir.BinOr:
		return "or"
	case lir.BinXor:
		return "xor"
	case lir.BinShl:
		return "shl"
	case lir.BinShr:
		return "shr"
	default:
		return "binop"
	}
}

func dumpLirOperand(op lir.Operand) string {
	switch op.Kind {
	case lir.OperandImm:
		return fmt.Sprintf("%d", op.Imm)
	case lir.OperandReg:
		return op.Reg.String()
	case lir.OperandPhysReg:
		return op.Phys.String()
	case lir.OperandLabel:
		return op.LabelID
	default:
		return "<mem>"
	}
}
