// Package emit implements the Code Emitter of §4.C6: translating one LIR
// function into LLVM-style textual IR, the last step before handing the
// module to an external IR compiler to produce an object file.
//
// Unlike the Rust original's inkwell-backed LLVM builder (faxc-gen/src/llvm.rs),
// this package has no LLVM C-API binding available in its dependency graph,
// so it renders the same instruction set directly as `.ll`-shaped text —
// the textual form inkwell's builder would itself produce — which an
// external `llc`/`opt` invocation (or an equivalent assembler) consumes
// unchanged. The two-pass "scan labels, then translate" strategy and the
// lazy alloca-per-register scheme are carried over unchanged from the
// original; only the emission backend differs.
package emit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/asmfmt"

	"github.com/faxlang/faxc/internal/lir"
	"github.com/faxlang/faxc/internal/types"
)

// ErrBlockNotFound is wrapped with the offending label when a Jmp/Jcc
// target has no corresponding Label instruction anywhere in the function
// (§4.C6: "Missing target block").
var ErrBlockNotFound = errors.New("emit: target block not found")

// ErrMissingComparison is wrapped when a Jcc is reached with no preceding
// Cmp to consume (§4.C6: "Jcc without preceding Cmp").
var ErrMissingComparison = errors.New("emit: no comparison before conditional jump")

// CodeGenError is surfaced for every emitter failure; never a panic, per
// §4.C6's explicit "Any failure is surfaced as a CodeGenError, never a
// panic." Function and Block carry context for diagnostics, mirroring
// internal/diag's Diagnostic shape.
type CodeGenError struct {
	Func  string
	Block string
	Err   error
}

func (e *CodeGenError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("emit: function %q, block %q: %s", e.Func, e.Block, e.Err)
	}
	return fmt.Sprintf("emit: function %q: %s", e.Func, e.Err)
}

func (e *CodeGenError) Unwrap() error { return e.Err }

// MapType renders a Fax type as the IR type named by §4.C6's type-mapping
// table.
func MapType(t types.Type) string {
	switch t.Kind {
	case types.KindUnit:
		return "i64" // §4.C6: "materialization convention"
	case types.KindBool:
		return "i8"
	case types.KindChar:
		return "i8"
	case types.KindInt, types.KindUInt:
		return intTypeForWidth(t.Width)
	case types.KindFloat:
		if t.Width == types.Width32 {
			return "float"
		}
		return "double"
	case types.KindString, types.KindPointer, types.KindRef:
		return "ptr"
	case types.KindArray:
		return fmt.Sprintf("[%d x %s]", t.Len, MapType(*t.Elem))
	case types.KindTuple:
		return opaqueStructType(t.Elems)
	case types.KindAdt:
		return "%struct.opaque"
	case types.KindFn:
		args := make([]string, len(t.Elems))
		for i, a := range t.Elems {
			args[i] = MapType(a)
		}
		return fmt.Sprintf("%s (%s)", MapType(*t.Ret), strings.Join(args, ", "))
	default:
		return "i64"
	}
}

// predicateType is the IR type of a comparison result, distinct from
// MapType(types.Bool)'s storage width: §4.C6 reserves `i1` for contexts
// that require it (icmp results, branch conditions) while plain Bool
// storage uses `i8`.
const predicateType = "i1"

func intTypeForWidth(w types.IntWidth) string {
	switch w {
	case types.Width8:
		return "i8"
	case types.Width16:
		return "i16"
	case types.Width32:
		return "i32"
	default:
		return "i64"
	}
}

func opaqueStructType(elems []types.Type) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = MapType(e)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// funcEmitter holds the per-function state of one LIR→text translation
// pass: the block map built in pass 1, the register→slot table built
// lazily during pass 2, and the single outstanding comparison a Cmp leaves
// for its Jcc to consume — mirroring the Rust original's `last_cmp_val`,
// except the actual predicate is resolved at the Jcc (which alone carries
// the Condition) rather than hardcoded to equality.
type funcEmitter struct {
	fn    *lir.Function
	name  string
	retTy types.Type

	blockOrder []string
	blockLines map[string][]string
	current    string

	slots    map[lir.VReg]string
	tmpCount int

	pendingLHS, pendingRHS string
	pendingIsFloat         bool

	// retValue is the most recently materialized value moved into the
	// integer or floating-point return register. §4.C4 lowers Return by
	// emitting `Mov RAX, vreg(local 0)` ahead of a value-less Ret — the
	// return value's home is the physical register, not the Ret
	// instruction's own (optional) field — so the emitter must remember it
	// across the Mov to give the final `ret` its operand.
	retValue string
}

// EmitFunction translates fn into one `define` block of LLVM-style textual
// IR. retTy is the Fax function's declared return type (§4.C6's type
// table governs the `define` signature; LIR itself carries no type info).
func EmitFunction(fn *lir.Function, retTy types.Type) (string, error) {
	name := fn.Name.String()
	e := &funcEmitter{
		fn:         fn,
		name:       name,
		retTy:      retTy,
		blockLines: make(map[string][]string),
		slots:      make(map[lir.VReg]string),
	}

	// Pass 1: scan for labels, creating one block per Label instruction.
	for _, instr := range fn.Instructions {
		if instr.Kind == lir.InstrLabel {
			e.addBlock(instr.LabelName)
		}
	}
	entry := ".Lbb0"
	if _, ok := e.blockLines[entry]; !ok {
		entry = "entry"
		e.blockOrder = append([]string{entry}, e.blockOrder...)
		e.blockLines[entry] = nil
	}
	e.current = entry

	// Pass 2: translate each instruction into its current block.
	for _, instr := range fn.Instructions {
		if err := e.translate(instr); err != nil {
			return "", &CodeGenError{Func: name, Block: e.current, Err: err}
		}
	}

	return e.render(retTy), nil
}

func (e *funcEmitter) addBlock(name string) {
	if _, ok := e.blockLines[name]; ok {
		return
	}
	e.blockOrder = append(e.blockOrder, name)
	e.blockLines[name] = nil
}

func (e *funcEmitter) line(format string, args ...any) {
	e.blockLines[e.current] = append(e.blockLines[e.current], fmt.Sprintf(format, args...))
}

func (e *funcEmitter) newTemp() string {
	e.tmpCount++
	return fmt.Sprintf("%%t%d", e.tmpCount)
}

// slotFor returns the alloca'd stack slot backing v, emitting the alloca
// the first time v is referenced (§4.C6: "map to alloca'd slots the first
// time they are assigned").
func (e *funcEmitter) slotFor(v lir.VReg) string {
	if s, ok := e.slots[v]; ok {
		return s
	}
	name := fmt.Sprintf("%%r%d", v.ID())
	e.line("%s = alloca %s", name, regType(v))
	e.slots[v] = name
	return name
}

func regType(v lir.VReg) string {
	if v.RegType() == lir.RegTypeFloat {
		return "double"
	}
	return "i64"
}

// valueOf renders op as an SSA value usable in an instruction's operand
// position, loading from its backing slot if op names a register.
func (e *funcEmitter) valueOf(op lir.Operand) string {
	switch op.Kind {
	case lir.OperandImm:
		return strconv.FormatInt(op.Imm, 10)
	case lir.OperandReg:
		slot := e.slotFor(op.Reg)
		tmp := e.newTemp()
		e.line("%s = load %s, ptr %s", tmp, regType(op.Reg), slot)
		return tmp
	case lir.OperandPhysReg:
		return "%phys_" + op.Phys.String()
	case lir.OperandLabel:
		return "@" + op.LabelID
	default:
		return "0"
	}
}

func (e *funcEmitter) translate(instr lir.Instruction) error {
	switch instr.Kind {
	case lir.InstrLabel:
		e.current = instr.LabelName
		return nil

	case lir.InstrMov:
		return e.translateMov(instr)

	case lir.InstrBinOp:
		return e.translateBinOp(instr)

	case lir.InstrUnOp:
		return e.translateUnOp(instr)

	case lir.InstrCmp:
		lhs := e.valueOf(instr.Src1)
		rhs := e.valueOf(instr.Src2)
		e.pendingLHS, e.pendingRHS = lhs, rhs
		e.pendingIsFloat = instr.Src1.Kind == lir.OperandReg && instr.Src1.Reg.RegType() == lir.RegTypeFloat
		return nil

	case lir.InstrJmp:
		if _, ok := e.blockLines[instr.LabelName]; !ok {
			return fmt.Errorf("%w: %q", ErrBlockNotFound, instr.LabelName)
		}
		e.line("br label %%%s", sanitizeLabel(instr.LabelName))
		return nil

	case lir.InstrJcc:
		return e.translateJcc(instr)

	case lir.InstrCall:
		callee := e.valueOf(instr.Src)
		e.line("%%rax = call i64 %s()", callee)
		return nil

	case lir.InstrRet:
		// Unit materializes as i64 (§4.C6), so there is no `ret void` form:
		// every Ret carries a value, either its own (rare — the lowerer
		// never sets one) or whatever was last moved into the return
		// register by the preceding Mov.
		val := e.retValue
		if instr.HasRetValue {
			val = e.valueOf(instr.RetValue)
		}
		if val == "" {
			val = "0"
		}
		e.line("ret %s %s", MapType(e.retTy), val)
		return nil

	case lir.InstrLoad:
		dest := e.slotFor(instr.Dest.Reg)
		addr := e.addressOf(instr.Addr)
		e.line("%s = load i64, ptr %s", dest, addr)
		return nil

	case lir.InstrStore:
		src := e.valueOf(instr.Src)
		addr := e.addressOf(instr.Addr)
		e.line("store i64 %s, ptr %s", src, addr)
		return nil

	case lir.InstrLea:
		dest := e.slotFor(instr.Dest.Reg)
		addr := e.addressOf(instr.Addr)
		e.line("%s = getelementptr i8, ptr %s, i64 0", dest, addr)
		return nil

	case lir.InstrPush, lir.InstrPop, lir.InstrAdd, lir.InstrSub,
		lir.InstrSaveCalleeSaved, lir.InstrRestoreCalleeSaved,
		lir.InstrSafepointPoll, lir.InstrNop:
		// Frame/safepoint bookkeeping has no IR-level effect: these are
		// consumed by the ABI prologue/epilogue and the runtime's
		// safepoint-check symbol, not by the emitted function body itself.
		return nil

	default:
		return nil
	}
}

func (e *funcEmitter) translateMov(instr lir.Instruction) error {
	val := e.valueOf(instr.Src)
	if instr.Dest.Kind == lir.OperandPhysReg {
		if instr.Dest.Phys == lir.RAX || instr.Dest.Phys == lir.XMM0 {
			e.retValue = val
		}
		e.line("; mov %%phys_%s, %s", instr.Dest.Phys.String(), val)
		return nil
	}
	slot := e.slotFor(instr.Dest.Reg)
	e.line("store %s %s, ptr %s", regType(instr.Dest.Reg), val, slot)
	return nil
}

func (e *funcEmitter) translateBinOp(instr lir.Instruction) error {
	dest := e.slotFor(instr.Dest.Reg)
	lhs := e.valueOf(instr.Src1)
	rhs := e.valueOf(instr.Src2)
	tmp := e.newTemp()
	e.line("%s = %s i64 %s, %s", tmp, llvmBinOp(instr.Op), lhs, rhs)
	e.line("store i64 %s, ptr %s", tmp, dest)
	return nil
}

func (e *funcEmitter) translateUnOp(instr lir.Instruction) error {
	dest := e.slotFor(instr.Dest.Reg)
	src := e.valueOf(instr.Src)
	tmp := e.newTemp()
	switch instr.UOp {
	case lir.UnNeg:
		e.line("%s = sub i64 0, %s", tmp, src)
	case lir.UnNot:
		e.line("%s = xor i64 %s, -1", tmp, src)
	}
	e.line("store i64 %s, ptr %s", tmp, dest)
	return nil
}

// translateJcc consumes the pending Cmp left by the immediately preceding
// InstrCmp, synthesizing the icmp+br pair and a fresh continuation block
// for the fall-through edge (§4.C6's lowering strategy paragraph). Unlike
// the Rust original, which always applies `IntPredicate::EQ` regardless of
// the Jcc's actual Condition, the predicate is read off instr.Cond here —
// the original's hardcoded EQ is a bug the Open Question #1 redesign
// (SPEC_FULL.md §E.1) does not carry forward.
func (e *funcEmitter) translateJcc(instr lir.Instruction) error {
	if e.pendingLHS == "" {
		return fmt.Errorf("%w", ErrMissingComparison)
	}
	if _, ok := e.blockLines[instr.LabelName]; !ok {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, instr.LabelName)
	}

	ty := "i64"
	if e.pendingIsFloat {
		ty = "double"
	}
	pred := llvmPredicate(instr.Cond, e.pendingIsFloat)
	cmpOp := "icmp"
	if e.pendingIsFloat {
		cmpOp = "fcmp"
	}

	cmpVal := e.newTemp()
	e.line("%s = %s %s %s %s, %s", cmpVal, cmpOp, pred, ty, e.pendingLHS, e.pendingRHS)

	cont := e.newContinuationLabel()
	e.addBlock(cont)
	e.line("br %s %s, label %%%s, label %%%s", predicateType, cmpVal, sanitizeLabel(instr.LabelName), sanitizeLabel(cont))

	e.pendingLHS, e.pendingRHS = "", ""
	e.current = cont
	return nil
}

func (e *funcEmitter) newContinuationLabel() string {
	e.tmpCount++
	return fmt.Sprintf(".cont%d", e.tmpCount)
}

func (e *funcEmitter) addressOf(addr lir.Address) string {
	switch addr.Kind {
	case lir.AddrGlobal:
		return "@" + addr.Global.String()
	case lir.AddrStackRelative:
		return fmt.Sprintf("%%stack_%d", addr.Offset)
	default:
		return e.slotFor(addr.Base)
	}
}

func llvmBinOp(op lir.BinOp) string {
	switch op {
	case lir.BinAdd:
		return "add"
	case lir.BinSub:
		return "sub"
	case lir.BinMul:
		return "mul"
	case lir.BinDiv:
		return "sdiv"
	case lir.BinRem:
		return "srem"
	case lir.BinAnd:
		return "and"
	case lir.BinOr:
		return "or"
	case lir.BinXor:
		return "xor"
	case lir.BinShl:
		return "shl"
	case lir.BinShr:
		return "ashr"
	default:
		return "add"
	}
}

func llvmPredicate(cond lir.Condition, isFloat bool) string {
	if isFloat {
		switch cond {
		case lir.CondEq:
			return "oeq"
		case lir.CondNe:
			return "one"
		case lir.CondLt:
			return "olt"
		case lir.CondLe:
			return "ole"
		case lir.CondGt:
			return "ogt"
		case lir.CondGe:
			return "oge"
		}
	}
	switch cond {
	case lir.CondEq:
		return "eq"
	case lir.CondNe:
		return "ne"
	case lir.CondLt:
		return "slt"
	case lir.CondLe:
		return "sle"
	case lir.CondGt:
		return "sgt"
	case lir.CondGe:
		return "sge"
	default:
		return "eq"
	}
}

// sanitizeLabel strips the leading '.' MIR/LIR labels carry, since LLVM
// block labels may not start with one.
func sanitizeLabel(name string) string { return strings.TrimPrefix(name, ".") }

func (e *funcEmitter) render(retTy types.Type) string {
	var b strings.Builder
	fmt.Fprintf(&b, "define %s @%s() {\n", MapType(retTy), e.name)
	for _, name := range e.blockOrder {
		fmt.Fprintf(&b, "%s:\n", sanitizeLabel(name))
		for _, l := range e.blockLines[name] {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Module collects the emitted text of every function in one compilation
// unit, in emission order.
type Module struct {
	Name  string
	funcs []string
}

// NewModule returns an empty module named name.
func NewModule(name string) *Module { return &Module{Name: name} }

// AddFunction lowers fn (of declared return type retTy) and appends its
// emitted text to m.
func (m *Module) AddFunction(fn *lir.Function, retTy types.Type) error {
	text, err := EmitFunction(fn, retTy)
	if err != nil {
		return err
	}
	m.funcs = append(m.funcs, text)
	return nil
}

// String renders the whole module as LLVM-style textual IR.
func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = '%s'\n\n", m.Name)
	for _, f := range m.funcs {
		b.WriteString(f)
		b.WriteString("\n")
	}
	return b.String()
}

// EmitAssembly renders fn as Go-assembler-flavored text (uppercase
// mnemonics, bare register names, no comments) for the CLI's `--emit
// asm` mode — a debugging view of the LIR one step closer to the machine
// than the LLVM-style IR EmitFunction produces, bypassing the external IR
// compiler entirely. This is the same surface syntax FormatAssembly's
// asmfmt call expects, grounded on the Go-asm text the amd64 parser example
// builds before formatting it.
func EmitAssembly(fn *lir.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TEXT ·%s(SB), $0\n", fn.Name)
	for _, instr := range fn.Instructions {
		writeAsmLine(&b, instr)
	}
	return b.String()
}

func writeAsmLine(b *strings.Builder, instr lir.Instruction) {
	switch instr.Kind {
	case lir.InstrLabel:
		fmt.Fprintf(b, "%s:\n", sanitizeLabel(instr.LabelName))
	case lir.InstrMov:
		fmt.Fprintf(b, "\tMOVQ %s, %s\n", asmOperand(instr.Src), asmOperand(instr.Dest))
	case lir.InstrBinOp:
		fmt.Fprintf(b, "\t%s %s, %s\n", asmMnemonic(instr.Op), asmOperand(instr.Src2), asmOperand(instr.Dest))
	case lir.InstrCmp:
		fmt.Fprintf(b, "\tCMPQ %s, %s\n", asmOperand(instr.Src1), asmOperand(instr.Src2))
	case lir.InstrJmp:
		fmt.Fprintf(b, "\tJMP %s\n", sanitizeLabel(instr.LabelName))
	case lir.InstrJcc:
		fmt.Fprintf(b, "\tJ%s %s\n", strings.ToUpper(instr.Cond.String()), sanitizeLabel(instr.LabelName))
	case lir.InstrCall:
		fmt.Fprintf(b, "\tCALL %s\n", asmOperand(instr.Src))
	case lir.InstrRet:
		b.WriteString("\tRET\n")
	case lir.InstrPush:
		fmt.Fprintf(b, "\tPUSHQ %s\n", asmOperand(instr.Src))
	case lir.InstrPop:
		fmt.Fprintf(b, "\tPOPQ %s\n", asmOperand(instr.Dest))
	case lir.InstrSafepointPoll:
		b.WriteString("\tCALL ·faxGcSafepoint(SB)\n")
	}
}

func asmOperand(op lir.Operand) string {
	switch op.Kind {
	case lir.OperandImm:
		return fmt.Sprintf("$%d", op.Imm)
	case lir.OperandPhysReg:
		return strings.ToUpper(op.Phys.String())
	case lir.OperandReg:
		return op.Reg.String()
	case lir.OperandLabel:
		return "·" + op.LabelID + "(SB)"
	default:
		return "$0"
	}
}

func asmMnemonic(op lir.BinOp) string {
	switch op {
	case lir.BinAdd:
		return "ADDQ"
	case lir.BinSub:
		return "SUBQ"
	case lir.BinMul:
		return "IMULQ"
	case lir.BinAnd:
		return "ANDQ"
	case lir.BinOr:
		return "ORQ"
	case lir.BinXor:
		return "XORQ"
	case lir.BinShl:
		return "SHLQ"
	case lir.BinShr:
		return "SARQ"
	default:
		return "ADDQ"
	}
}

// FormatAssembly runs Go's assembly formatter over an emitted `--emit asm`
// dump before it is written out, the same `asmfmt.Format` call the amd64
// assembly generator in the example pack makes on its own builder output.
func FormatAssembly(src string) ([]byte, error) {
	return asmfmt.Format(strings.NewReader(src))
}
