package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-spectest/errors"
)

// NaN class tokens used by the conformance suite.
const (
	NaNCanonical  = "nan:canonical"
	NaNArithmetic = "nan:arithmetic"
)

// Bit patterns produced for the NaN class tokens.
const (
	CanonicalNaN32  uint32 = 0x7fc00000
	ArithmeticNaN32 uint32 = 0x7fc00001
	CanonicalNaN64  uint64 = 0x7ff8000000000000
	ArithmeticNaN64 uint64 = 0x7ff8000000000001
)

// Literal is a test-script value as emitted by wast2json.
type Literal struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func I32(text string) Literal { return Literal{Type: "i32", Value: text} }
func I64(text string) Literal { return Literal{Type: "i64", Value: text} }
func F32(text string) Literal { return Literal{Type: "f32", Value: text} }
func F64(text string) Literal { return Literal{Type: "f64", Value: text} }

// String renders the literal for diagnostics. Float bit patterns are shown
// with their decoded value.
func (l Literal) String() string {
	rv, err := Encode(l)
	if err != nil {
		return fmt.Sprintf("%s:%q", l.Type, l.Value)
	}
	switch rv.Tag {
	case TagF32, TagF64:
		if l.Value == NaNCanonical || l.Value == NaNArithmetic {
			return l.Type + ":" + l.Value
		}
		return fmt.Sprintf("%s:%s(%s)", l.Type, l.Value, Decode(rv).Text())
	default:
		return l.Type + ":" + l.Value
	}
}

// Encode converts a literal into the engine's runtime representation.
func Encode(l Literal) (RuntimeValue, error) {
	switch l.Type {
	case "i32":
		bits, err := parseInt(l.Value, 32)
		if err != nil {
			return RuntimeValue{}, errors.ParseError("i32 literal "+strconv.Quote(l.Value), err)
		}
		return FromBits(TagI32, bits), nil
	case "i64":
		bits, err := parseInt(l.Value, 64)
		if err != nil {
			return RuntimeValue{}, errors.ParseError("i64 literal "+strconv.Quote(l.Value), err)
		}
		return FromBits(TagI64, bits), nil
	case "f32":
		switch l.Value {
		case NaNCanonical:
			return FromBits(TagF32, uint64(CanonicalNaN32)), nil
		case NaNArithmetic:
			return FromBits(TagF32, uint64(ArithmeticNaN32)), nil
		}
		bits, err := strconv.ParseUint(l.Value, 10, 32)
		if err != nil {
			return RuntimeValue{}, errors.ParseError("f32 literal "+strconv.Quote(l.Value), err)
		}
		return FromBits(TagF32, bits), nil
	case "f64":
		switch l.Value {
		case NaNCanonical:
			return FromBits(TagF64, CanonicalNaN64), nil
		case NaNArithmetic:
			return FromBits(TagF64, ArithmeticNaN64), nil
		}
		bits, err := strconv.ParseUint(l.Value, 10, 64)
		if err != nil {
			return RuntimeValue{}, errors.ParseError("f64 literal "+strconv.Quote(l.Value), err)
		}
		return FromBits(TagF64, bits), nil
	default:
		return RuntimeValue{}, errors.ParseErrorf("unsupported literal type %q", l.Type)
	}
}

// parseInt reads unsigned decimal text at the given width. Negative text is
// accepted and stored as its two's-complement bit pattern.
func parseInt(text string, bitSize int) (uint64, error) {
	if strings.HasPrefix(text, "-") {
		v, err := strconv.ParseInt(text, 10, bitSize)
		if err != nil {
			return 0, err
		}
		if bitSize == 32 {
			return uint64(uint32(int32(v))), nil
		}
		return uint64(v), nil
	}
	return strconv.ParseUint(text, 10, bitSize)
}
