package relocate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/relocate"
)

func TestObjectCopierRecordsStats(t *testing.T) {
	c := relocate.NewObjectCopier()
	require.NoError(t, c.CopyObject(0x1000, 0x2000, 64))
	require.NoError(t, c.CopyObject(0x3000, 0x4000, 32))

	stats := c.Stats()
	require.Equal(t, uint64(2), stats.ObjectsCopied)
	require.Equal(t, uint64(96), stats.BytesCopied)
}

func TestObjectCopierCopyObjectBytesActuallyCopies(t *testing.T) {
	c := relocate.NewObjectCopier()
	src := []byte("hello world")
	dst := make([]byte, len(src))

	require.NoError(t, c.CopyObjectBytes(dst, src))
	require.Equal(t, src, dst)
	require.Equal(t, uint64(1), c.Stats().ObjectsCopied)
}
