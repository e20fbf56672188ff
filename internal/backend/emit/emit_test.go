package emit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/backend/emit"
	"github.com/faxlang/faxc/internal/backend/lower"
	"github.com/faxlang/faxc/internal/diag"
	"github.com/faxlang/faxc/internal/lir"
	"github.com/faxlang/faxc/internal/mir"
	"github.com/faxlang/faxc/internal/symbol"
	"github.com/faxlang/faxc/internal/types"
)

func buildAddReturn(t *testing.T) *mir.Function {
	t.Helper()
	b := mir.NewBuilder(symbol.Intern("add_fn"), types.Int64)
	entry := b.NewBlock()
	b.SetCurrentBlock(entry)
	tmp := b.AddLocal(types.Int64, symbol.Invalid, diag.Span{})
	b.Assign(mir.LocalPlace(tmp), mir.BinaryOp(mir.BinAdd,
		mir.ConstInt64(types.Int64, 10), mir.ConstInt64(types.Int64, 20)))
	b.Assign(mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.CopyOperand(mir.LocalPlace(tmp))))
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	return b.Build()
}

func TestMapTypeScalars(t *testing.T) {
	require.Equal(t, "i64", emit.MapType(types.Int64))
	require.Equal(t, "i32", emit.MapType(types.Int32))
	require.Equal(t, "i16", emit.MapType(types.UInt16))
	require.Equal(t, "i8", emit.MapType(types.Int8))
	require.Equal(t, "i8", emit.MapType(types.Bool))
	require.Equal(t, "i8", emit.MapType(types.Char))
	require.Equal(t, "float", emit.MapType(types.Float32))
	require.Equal(t, "double", emit.MapType(types.Float64))
	require.Equal(t, "ptr", emit.MapType(types.String))
	require.Equal(t, "i64", emit.MapType(types.Unit))
}

func TestMapTypeComposite(t *testing.T) {
	require.Equal(t, "[4 x i32]", emit.MapType(types.Array(types.Int32, 4)))
	require.Equal(t, "{ i64, i8 }", emit.MapType(types.Tuple(types.Int64, types.Bool)))
	require.Equal(t, "ptr", emit.MapType(types.Ref(types.Int64, false)))
	require.Equal(t, "ptr", emit.MapType(types.Pointer(types.Int64)))
}

func TestEmitFunctionProducesDefineAndRet(t *testing.T) {
	f := buildAddReturn(t)
	lf := lower.Lower(f)

	text, err := emit.EmitFunction(lf, types.Int64)
	require.NoError(t, err)
	require.Contains(t, text, "define i64 @add_fn()")
	require.Contains(t, text, "ret i64")
}

func TestEmitFunctionRewritesBlockLabels(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("loopback"), types.Unit)
	entry := b.NewBlock()
	b.SetCurrentBlock(entry)
	b.Terminator(mir.Terminator{Kind: mir.TermGoto, Target: entry})
	f := b.Build()
	lf := lower.Lower(f)

	text, err := emit.EmitFunction(lf, types.Unit)
	require.NoError(t, err)
	require.Contains(t, text, "Lbb0:")
	require.Contains(t, text, "br label %Lbb0")
}

func TestEmitFunctionFusedComparisonEmitsIcmpAndBr(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("branch"), types.Unit)
	entry := b.NewBlock()
	thenBlk := b.NewBlock()
	elseBlk := b.NewBlock()
	b.SetCurrentBlock(entry)

	cond := b.AddLocal(types.Bool, symbol.Invalid, diag.Span{})
	x := b.AddLocal(types.Int64, symbol.Invalid, diag.Span{})
	b.Assign(mir.LocalPlace(cond), mir.BinaryOp(mir.BinLt,
		mir.CopyOperand(mir.LocalPlace(x)), mir.ConstInt64(types.Int64, 10)))
	b.Terminator(mir.Terminator{
		Kind: mir.TermIf, Cond: mir.CopyOperand(mir.LocalPlace(cond)),
		ThenBlock: thenBlk, ElseBlock: elseBlk,
	})
	b.SetCurrentBlock(thenBlk)
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	b.SetCurrentBlock(elseBlk)
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	f := b.Build()
	lf := lower.Lower(f)

	text, err := emit.EmitFunction(lf, types.Unit)
	require.NoError(t, err)
	require.Contains(t, text, "icmp slt")
	require.Contains(t, text, "br i1")
}

func TestEmitFunctionMissingComparisonError(t *testing.T) {
	lf := &lir.Function{
		Name: symbol.Intern("broken"),
		Instructions: []lir.Instruction{
			lir.LabelInstr(".Lbb0"),
			lir.Jcc(lir.CondEq, ".Lbb0"),
		},
	}

	_, err := emit.EmitFunction(lf, types.Unit)
	require.ErrorIs(t, err, emit.ErrMissingComparison)
}

func TestEmitFunctionBlockNotFoundError(t *testing.T) {
	lf := &lir.Function{
		Name: symbol.Intern("broken"),
		Instructions: []lir.Instruction{
			lir.LabelInstr(".Lbb0"),
			lir.Jmp(".Lbb99"),
		},
	}

	_, err := emit.EmitFunction(lf, types.Unit)
	require.ErrorIs(t, err, emit.ErrBlockNotFound)
}

func TestModuleAddFunctionAccumulatesText(t *testing.T) {
	f := buildAddReturn(t)
	lf := lower.Lower(f)

	m := emit.NewModule("test_module")
	require.NoError(t, m.AddFunction(lf, types.Int64))

	out := m.String()
	require.True(t, strings.Contains(out, "ModuleID = 'test_module'"))
	require.True(t, strings.Contains(out, "define i64 @add_fn()"))
}

func TestEmitAssemblyRendersGoAsmMnemonics(t *testing.T) {
	f := buildAddReturn(t)
	lf := lower.Lower(f)

	text := emit.EmitAssembly(lf)
	require.Contains(t, text, "TEXT ·add_fn(SB)")
	require.Contains(t, text, "RET")
}

func TestFormatAssemblyRunsAsmfmt(t *testing.T) {
	f := buildAddReturn(t)
	lf := lower.Lower(f)
	src := emit.EmitAssembly(lf)

	out, err := emit.FormatAssembly(src)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
