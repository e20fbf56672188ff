package relocate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/relocate"
)

func TestForwardingTableAddAndLookup(t *testing.T) {
	tbl := relocate.NewForwardingTable()
	tbl.AddEntry(0x1000, 0x2000)

	addr, ok := tbl.Lookup(0x1000)
	require.True(t, ok)
	require.Equal(t, uintptr(0x2000), addr)
	require.Equal(t, 1, tbl.Len())
}

func TestForwardingTableLookupMissReturnsFalse(t *testing.T) {
	tbl := relocate.NewForwardingTable()
	_, ok := tbl.Lookup(0x9999)
	require.False(t, ok)
}
