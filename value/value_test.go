package value

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-spectest/errors"
)

func TestEncode_IntegerRoundTrip(t *testing.T) {
	tests := []struct {
		lit  Literal
		bits uint64
		kind Kind
	}{
		{I32("0"), 0, KindI32},
		{I32("5"), 5, KindI32},
		{I32("2147483647"), 0x7fffffff, KindI32},
		{I32("2147483648"), 0x80000000, KindI32},
		{I32("4294967295"), 0xffffffff, KindI32},
		{I32("-1"), 0xffffffff, KindI32},
		{I64("0"), 0, KindI64},
		{I64("9223372036854775808"), 0x8000000000000000, KindI64},
		{I64("18446744073709551615"), math.MaxUint64, KindI64},
		{I64("-2"), 0xfffffffffffffffe, KindI64},
	}
	for _, tt := range tests {
		t.Run(tt.lit.Type+"_"+tt.lit.Value, func(t *testing.T) {
			rv, err := Encode(tt.lit)
			require.NoError(t, err)
			c := Decode(rv)
			require.Equal(t, tt.kind, c.Kind)
			require.Equal(t, tt.bits, c.Bits)
		})
	}
}

func TestEncode_DecimalTextRoundTrips(t *testing.T) {
	for _, v := range []uint64{0, 1, 7, 255, 65536, 123456789, math.MaxUint32} {
		text := strconv.FormatUint(v, 10)

		rv, err := Encode(I32(text))
		require.NoError(t, err)
		require.Equal(t, text, strconv.FormatUint(uint64(uint32(Decode(rv).Int32())), 10))

		rv, err = Encode(I64(text))
		require.NoError(t, err)
		require.Equal(t, text, strconv.FormatUint(uint64(Decode(rv).Int64()), 10))
	}
}

func TestEncode_NaNClasses(t *testing.T) {
	rv, err := Encode(F32(NaNCanonical))
	require.NoError(t, err)
	require.Equal(t, TagF32, rv.Tag)
	require.Equal(t, uint64(0x7fc00000), rv.Payload)

	rv, err = Encode(F64(NaNCanonical))
	require.NoError(t, err)
	require.Equal(t, TagF64, rv.Tag)
	require.Equal(t, uint64(0x7ff8000000000000), rv.Payload)

	rv, err = Encode(F32(NaNArithmetic))
	require.NoError(t, err)
	require.Equal(t, uint64(0x7fc00001), rv.Payload)

	rv, err = Encode(F64(NaNArithmetic))
	require.NoError(t, err)
	require.Equal(t, uint64(0x7ff8000000000001), rv.Payload)
	require.True(t, Decode(rv).IsNaN())
}

func TestEncode_FloatBitPattern(t *testing.T) {
	// 1065353216 is the bit pattern of 1.0f, not the real number.
	rv, err := Encode(F32("1065353216"))
	require.NoError(t, err)
	require.Equal(t, float32(1.0), rv.F32())

	rv, err = Encode(F64("4611686018427387904"))
	require.NoError(t, err)
	require.Equal(t, 2.0, rv.F64())

	// negative zero
	rv, err = Encode(F32("2147483648"))
	require.NoError(t, err)
	require.True(t, math.Signbit(float64(rv.F32())))
}

func TestEncode_Errors(t *testing.T) {
	tests := []Literal{
		I32("abc"),
		I32("4294967296"),
		I64("18446744073709551616"),
		F32("1.5"),
		F32("4294967296"),
		F64("-1"),
		F32("nan"),
		{Type: "v128", Value: "0"},
		{Type: "externref", Value: "null"},
	}
	parseErr := &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindParse}
	for _, lit := range tests {
		t.Run(lit.Type+"_"+lit.Value, func(t *testing.T) {
			_, err := Encode(lit)
			require.ErrorIs(t, err, parseErr)
		})
	}
}

func TestDecode_InvalidTag(t *testing.T) {
	c := Decode(RuntimeValue{Tag: Tag(0x42), Payload: 7})
	require.Equal(t, KindInvalid, c.Kind)
	require.Equal(t, uint64(7), c.Bits)
	require.Contains(t, c.String(), "invalid")
	require.False(t, c.IsNaN())

	require.Equal(t, KindInvalid, Decode(RuntimeValue{}).Kind)
}

func TestDecode_MasksNarrowPayload(t *testing.T) {
	c := Decode(RuntimeValue{Tag: TagI32, Payload: 0xdeadbeef00000005})
	require.Equal(t, uint64(5), c.Bits)
	require.Equal(t, int32(5), c.Int32())
}

func TestRuntimeValue_Views(t *testing.T) {
	v := FromI32(-1)
	require.Equal(t, uint32(math.MaxUint32), v.U32())
	require.Equal(t, int32(-1), v.I32())

	v = FromI64(-5)
	require.Equal(t, int64(-5), v.I64())
	require.Equal(t, uint64(math.MaxUint64-4), v.U64())

	require.Equal(t, float32(1.5), FromF32(1.5).F32())
	require.Equal(t, 2.25, FromF64(2.25).F64())
	require.Equal(t, TagI32, FromU32(3).Tag)
	require.Equal(t, TagI64, FromU64(3).Tag)
}

func TestCanonical_String(t *testing.T) {
	require.Equal(t, "i32:-1 (0xffffffff)", Decode(FromI32(-1)).String())
	require.Equal(t, "f32:nan (0x7fc00001)", Decode(FromBits(TagF32, 0x7fc00001)).String())
	require.Equal(t, "f64:2.5 (0x4004000000000000)", Decode(FromF64(2.5)).String())
}

func TestLiteral_String(t *testing.T) {
	require.Equal(t, "i32:42", I32("42").String())
	require.Equal(t, "f32:1065353216(1)", F32("1065353216").String())
	require.Equal(t, "f64:nan:canonical", F64(NaNCanonical).String())
	require.Equal(t, `f32:"junk"`, F32("junk").String())
}

func TestTag(t *testing.T) {
	for _, tag := range []Tag{TagI32, TagI64, TagF32, TagF64} {
		require.True(t, tag.Valid(), tag.String())
	}
	require.False(t, TagInvalid.Valid())
	require.Equal(t, "tag(0x42)", Tag(0x42).String())
}
