package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/symbol"
	"github.com/faxlang/faxc/internal/types"
)

func TestEqualityIsStructural(t *testing.T) {
	a := types.Tuple(types.Int32, types.Ref(types.Bool, false))
	b := types.Tuple(types.Int32, types.Ref(types.Bool, false))
	require.True(t, a.Equal(b))

	c := types.Tuple(types.Int32, types.Ref(types.Bool, true))
	require.False(t, a.Equal(c))
}

func TestAdtEqualityByDefId(t *testing.T) {
	d1 := symbol.DefId(1)
	d2 := symbol.DefId(2)
	require.True(t, types.Adt(d1).Equal(types.Adt(d1)))
	require.False(t, types.Adt(d1).Equal(types.Adt(d2)))
}

func TestSizeAndAlign(t *testing.T) {
	require.Equal(t, 8, types.Int64.Size())
	require.Equal(t, 4, types.Int32.Size())
	require.Equal(t, 1, types.Bool.Size())
	require.Equal(t, 24, types.Array(types.Int64, 3).Size())

	tup := types.Tuple(types.Int8, types.Int64)
	require.Equal(t, 9, tup.Size())
	require.Equal(t, 8, tup.Align())
}

func TestFnTypeString(t *testing.T) {
	fn := types.Fn([]types.Type{types.Int64, types.Bool}, types.Unit)
	require.Equal(t, "fn(i64, bool) -> ()", fn.String())
}
