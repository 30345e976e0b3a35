package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func byteCompare(a, b []byte) int {
	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}

func TestEqual(t *testing.T) {
	require.True(t, Equal(byteCompare, []byte("a"), []byte("a")))
	require.False(t, Equal(byteCompare, []byte("a"), []byte("b")))
}

func TestLess(t *testing.T) {
	require.True(t, Less(byteCompare, []byte("a"), []byte("b")))
	require.False(t, Less(byteCompare, []byte("b"), []byte("a")))
	require.False(t, Less(byteCompare, []byte("a"), []byte("a")))
}
