package mir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/diag"
	"github.com/faxlang/faxc/internal/mir"
	"github.com/faxlang/faxc/internal/symbol"
	"github.com/faxlang/faxc/internal/types"
)

// buildConst10Plus20 builds `fn main() -> Int { 10 + 20 }`, the arithmetic
// scenario of §8 end-to-end scenario 2.
func buildConst10Plus20(t *testing.T) *mir.Function {
	t.Helper()
	b := mir.NewBuilder(symbol.Intern("main"), types.Int64)
	entry := b.NewBlock()
	b.SetCurrentBlock(entry)

	tmp := b.AddLocal(types.Int64, symbol.Invalid, diag.Span{})
	b.Assign(mir.LocalPlace(tmp), mir.BinaryOp(mir.BinAdd,
		mir.ConstInt64(types.Int64, 10), mir.ConstInt64(types.Int64, 20)))
	b.Assign(mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.CopyOperand(mir.LocalPlace(tmp))))
	b.Terminator(mir.Terminator{Kind: mir.TermReturn})

	return b.Build()
}

func TestBuilderReservesReturnLocal(t *testing.T) {
	f := buildConst10Plus20(t)
	require.Equal(t, types.Int64, f.Locals[mir.ReturnLocal].Ty)
	require.Equal(t, "return", f.Locals[mir.ReturnLocal].Name.String())
}

func TestBuilderEnsuresEntryBlock(t *testing.T) {
	f := mir.NewBuilder(symbol.Intern("empty"), types.Unit).Build()
	require.Len(t, f.Blocks, 1)
	require.Equal(t, mir.BlockId(0), f.EntryBlock)
}

func TestVerifyCatchesOutOfRangeBlock(t *testing.T) {
	f := buildConst10Plus20(t)
	f.Blocks[0].Terminator = mir.Terminator{Kind: mir.TermGoto, Target: 99}
	require.Error(t, mir.Verify(f))
}

func TestVerifyCatchesOutOfRangeLocal(t *testing.T) {
	f := buildConst10Plus20(t)
	f.Blocks[0].Statements[0].Place.Local = 999
	require.Error(t, mir.Verify(f))
}

func TestVerifyAcceptsWellFormedFunction(t *testing.T) {
	f := buildConst10Plus20(t)
	require.NoError(t, mir.Verify(f))
}
