package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/backend/lower"
	"github.com/faxlang/faxc/internal/diag"
	"github.com/faxlang/faxc/internal/lir"
	"github.com/faxlang/faxc/internal/mir"
	"github.com/faxlang/faxc/internal/symbol"
	"github.com/faxlang/faxc/internal/types"
)

func countKind(instrs []lir.Instruction, kind lir.InstrKind) int {
	n := 0
	for _, i := range instrs {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

func TestLowerConstAddReturn(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("main"), types.Int64)
	entry := b.NewBlock()
	b.SetCurrentBlock(entry)
	tmp := b.AddLocal(types.Int64, symbol.Invalid, diag.Span{})
	b.Assign(mir.LocalPlace(tmp), mir.BinaryOp(mir.BinAdd,
		mir.ConstInt64(types.Int64, 10), mir.ConstInt64(types.Int64, 20)))
	b.Assign(mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.CopyOperand(mir.LocalPlace(tmp))))
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	f := b.Build()

	lf := lower.Lower(f)

	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrLabel))
	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrBinOp))
	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrRet))
	last := lf.Instructions[len(lf.Instructions)-1]
	require.Equal(t, lir.InstrRet, last.Kind)
}

func TestLowerGotoEmitsJmp(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("loopback"), types.Unit)
	entry := b.NewBlock()
	b.SetCurrentBlock(entry)
	b.Terminator(mir.Terminator{Kind: mir.TermGoto, Target: entry})
	f := b.Build()

	lf := lower.Lower(f)
	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrJmp))
}

// TestLowerIfFusesComparison checks that an If whose condition is exactly
// a comparison computed in the immediately preceding statement lowers
// straight to Cmp+Jcc+Jmp with no intervening 0/1 materialization (Open
// Question #1 resolution).
func TestLowerIfFusesComparison(t *testing.T) {
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

	// entry block's own instructions: Label, Cmp, Jcc, Jmp — no Mov-0/Mov-1
	// materialization sequence and no extra Label/Jmp pair for that.
	entryInstrs := lf.Instructions[:5]
	require.Equal(t, lir.InstrLabel, entryInstrs[0].Kind)
	require.Equal(t, lir.InstrCmp, entryInstrs[1].Kind)
	require.Equal(t, lir.InstrJcc, entryInstrs[2].Kind)
	require.Equal(t, lir.InstrJmp, entryInstrs[3].Kind)
}

func TestLowerIfMaterializesWhenComparisonEscapesBlock(t *testing.T) {
	// cond is read by both an If and (indirectly) stays live — forcing
	// materialization since it is not *solely* consumed by the terminator:
	// here we simulate "other use" by assigning it to the return local
	// first, then branching on it.
	b := mir.NewBuilder(symbol.Intern("escape"), types.Bool)
	entry := b.NewBlock()
	thenBlk := b.NewBlock()
	elseBlk := b.NewBlock()
	b.SetCurrentBlock(entry)

	cond := b.AddLocal(types.Bool, symbol.Invalid, diag.Span{})
	b.Assign(mir.LocalPlace(cond), mir.BinaryOp(mir.BinEq,
		mir.ConstInt64(types.Int64, 1), mir.ConstInt64(types.Int64, 1)))
	b.Assign(mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.CopyOperand(mir.LocalPlace(cond))))
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

	// The comparison is materialized once (read by the return-local copy),
	// and the If then re-tests the materialized 0/1 value via Cmp+Imm(1).
	require.GreaterOrEqual(t, countKind(lf.Instructions, lir.InstrCmp), 2)
}

func TestLowerGotoBackEdgeEmitsSafepointPoll(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("spin"), types.Unit)
	entry := b.NewBlock()
	b.SetCurrentBlock(entry)
	b.Terminator(mir.Terminator{Kind: mir.TermGoto, Target: entry})
	f := b.Build()

	lf := lower.Lower(f)
	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrSafepointPoll))
}

func TestLowerForwardGotoDoesNotEmitSafepointPoll(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("straightline"), types.Unit)
	entry := b.NewBlock()
	next := b.NewBlock()
	b.SetCurrentBlock(entry)
	b.Terminator(mir.Terminator{Kind: mir.TermGoto, Target: next})
	b.SetCurrentBlock(next)
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	f := b.Build()

	lf := lower.Lower(f)
	require.Equal(t, 0, countKind(lf.Instructions, lir.InstrSafepointPoll))
}

func TestLowerCallEmitsSafepointPoll(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("caller2"), types.Int64)
	entry := b.NewBlock()
	after := b.NewBlock()
	b.SetCurrentBlock(entry)
	target := after
	b.Terminator(mir.Terminator{
		Kind: mir.TermCall, Func: mir.ConstInt64(types.Int64, 0),
		Destination: mir.LocalPlace(mir.ReturnLocal), CallTarget: &target,
	})
	b.SetCurrentBlock(after)
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	f := b.Build()

	lf := lower.Lower(f)
	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrSafepointPoll))
}

func TestLowerCallMarshalsArgsAndCapturesResult(t *testing.T) {
	b := mir.NewBuilder(symbol.Intern("caller"), types.Int64)
	entry := b.NewBlock()
	after := b.NewBlock()
	b.SetCurrentBlock(entry)

	arg := b.AddLocal(types.Int64, symbol.Invalid, diag.Span{})
	b.Assign(mir.LocalPlace(arg), mir.Use(mir.ConstInt64(types.Int64, 7)))
	target := after
	b.Terminator(mir.Terminator{
		Kind:        mir.TermCall,
		Func:        mir.ConstInt64(types.Int64, 0),
		Args:        []mir.Operand{mir.CopyOperand(mir.LocalPlace(arg))},
		Destination: mir.LocalPlace(mir.ReturnLocal),
		CallTarget:  &target,
	})
	b.SetCurrentBlock(after)
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})
	f := b.Build()

	lf := lower.Lower(f)

	require.Equal(t, 1, countKind(lf.Instructions, lir.InstrCall))
	require.GreaterOrEqual(t, countKind(lf.Instructions, lir.InstrJmp), 1)
}
