package casm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/mirc/internal/mirtype"
)

// TestEncodeDecodeRoundTrip checks spec.md §8 property 6: "ABI-encode then
// ABI-decode is the identity on in-range inputs", across every scalar kind
// and a nested tuple/struct shape.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	structT := mirtype.Struct("P",
		mirtype.StructField{Name: "x", Type: mirtype.Felt()},
		mirtype.StructField{Name: "y", Type: mirtype.U32()},
	)
	tupleT := mirtype.Tuple(mirtype.Felt(), mirtype.Bool(), structT)

	v := TupleAbiValue(
		IntAbiValue(42),
		BoolAbiValue(true),
		AbiValue{Elements: []AbiValue{IntAbiValue(7), IntAbiValue(70000)}},
	)

	words, err := EncodeValue(tupleT, v)
	require.NoError(t, err)

	decoded, n, err := DecodeValue(tupleT, words)
	require.NoError(t, err)
	require.Equal(t, len(words), n)
	require.Equal(t, v, decoded)
}

// TestEncodeFeltOutOfRange checks an out-of-range felt is rejected rather
// than silently wrapped at encode time.
func TestEncodeFeltOutOfRange(t *testing.T) {
	_, err := EncodeValue(mirtype.Felt(), IntAbiValue(mirtype.FieldPrime))
	require.Error(t, err)
}

// TestDecodeBoolOutOfRange checks a bool word outside {0,1} produces an
// AbiError rather than being truthy-coerced (spec.md §6: "bool ∈ {0,1}").
func TestDecodeBoolOutOfRange(t *testing.T) {
	_, _, err := DecodeValue(mirtype.Bool(), []uint64{2})
	require.Error(t, err)
}

// TestDecodeU32LimbOutOfRange checks a limb wider than 16 bits is rejected.
func TestDecodeU32LimbOutOfRange(t *testing.T) {
	_, _, err := DecodeValue(mirtype.U32(), []uint64{0x10000, 0})
	require.Error(t, err)
}

// TestDecodeArgsTrailingWords checks a malformed argument stream with
// extra trailing words is reported, not silently ignored.
func TestDecodeArgsTrailingWords(t *testing.T) {
	_, err := DecodeArgs([]*mirtype.MirType{mirtype.Felt()}, []uint64{1, 2})
	require.Error(t, err)
}

// TestEncodeU32RoundTrip checks the lo/hi limb split matches spec.md §6
// exactly: lo = v & 0xFFFF, hi = (v >> 16) & 0xFFFF.
func TestEncodeU32RoundTrip(t *testing.T) {
	words, err := EncodeValue(mirtype.U32(), IntAbiValue(0xABCD1234))
	require.NoError(t, err)
	require.Equal(t, []uint64{0x1234, 0xABCD}, words)

	decoded, n, err := DecodeValue(mirtype.U32(), words)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, uint64(0xABCD1234), decoded.Int)
}
