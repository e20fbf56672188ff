package colorptr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/colorptr"
)

func TestNewRoundTripsAddress(t *testing.T) {
	p := colorptr.New(0x1234, colorptr.ColorMarked0)
	require.Equal(t, uintptr(0x1234), p.Address())
}

func TestNewTruncatesAddressAbove44Bits(t *testing.T) {
	huge := uintptr(1) << 50
	p := colorptr.New(huge|0x5678, colorptr.ColorMarked1)
	require.Equal(t, uintptr(0x5678), p.Address())
}

func TestHasColorAndWithColor(t *testing.T) {
	p := colorptr.New(0x42, colorptr.ColorMarked0)
	require.True(t, p.HasColor(colorptr.ColorMarked0))
	require.False(t, p.HasColor(colorptr.ColorMarked1))

	healed := p.WithColor(colorptr.ColorMarked1)
	require.True(t, healed.HasColor(colorptr.ColorMarked1))
	require.False(t, healed.HasColor(colorptr.ColorMarked0))
	require.Equal(t, p.Address(), healed.Address())
}

func TestWithColorReplacesRatherThanAccumulates(t *testing.T) {
	p := colorptr.New(0x1, colorptr.ColorMarked0|colorptr.ColorFinalizable)
	replaced := p.WithColor(colorptr.ColorMarked1)
	require.False(t, replaced.HasColor(colorptr.ColorFinalizable))
	require.True(t, replaced.HasColor(colorptr.ColorMarked1))
}

func TestGoodColorAlternatesByCycleParity(t *testing.T) {
	require.Equal(t, colorptr.ColorMarked0, colorptr.GoodColor(true))
	require.Equal(t, colorptr.ColorMarked1, colorptr.GoodColor(false))
}

func TestIsHealedMatchesCurrentGoodColor(t *testing.T) {
	good := colorptr.GoodColor(true)
	p := colorptr.New(0x100, good)
	require.True(t, p.IsHealed(good))
	require.False(t, p.IsHealed(colorptr.GoodColor(false)))
}

func TestColorsReturnsOnlyColorBits(t *testing.T) {
	p := colorptr.New(0xabc, colorptr.ColorMarked1|colorptr.ColorFinalizable)
	colors := p.Colors()
	require.True(t, p.HasColor(colorptr.ColorMarked1))
	require.True(t, p.HasColor(colorptr.ColorFinalizable))
	require.Equal(t, colorptr.ColorMarked1|colorptr.ColorFinalizable, colors)
}
