package literal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCell_IntegerFirst(t *testing.T) {
	v, ok := Cell("42")
	require.True(t, ok)
	require.Equal(t, int32(42), v)

	v, ok = Cell("-7")
	require.True(t, ok)
	require.Equal(t, int32(-7), v)
}

func TestCell_FloatStoresBitPattern(t *testing.T) {
	v, ok := Cell("3.5")
	require.True(t, ok)
	require.Equal(t, int32(math.Float32bits(3.5)), v)
}

func TestCell_BoolLast(t *testing.T) {
	v, ok := Cell("true")
	require.True(t, ok)
	require.Equal(t, int32(1), v)

	v, ok = Cell("false")
	require.True(t, ok)
	require.Equal(t, int32(0), v)
}

func TestCell_RejectsText(t *testing.T) {
	_, ok := Cell("banana")
	require.False(t, ok)
}

func TestUnquote(t *testing.T) {
	require.Equal(t, "hello", Unquote(`"hello"`))
	require.Equal(t, "plain", Unquote("plain"))
}
