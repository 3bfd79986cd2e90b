package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the decoded type of a Canonical value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindI32
	KindI64
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "invalid"
	}
}

// IsInt reports whether k is an integer kind.
func (k Kind) IsInt() bool { return k == KindI32 || k == KindI64 }

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool { return k == KindF32 || k == KindF64 }

// Canonical is a decoded runtime value. Bits holds the raw pattern; for
// KindInvalid it keeps the original payload for diagnostics.
type Canonical struct {
	Bits uint64
	Kind Kind
	Tag  Tag
}

// Decode maps a runtime value to its canonical form. Unknown tags decode to
// KindInvalid so comparisons report a mismatch instead of aborting.
func Decode(v RuntimeValue) Canonical {
	c := Canonical{Bits: v.Payload, Tag: v.Tag}
	switch v.Tag {
	case TagI32:
		c.Kind = KindI32
		c.Bits &= math.MaxUint32
	case TagI64:
		c.Kind = KindI64
	case TagF32:
		c.Kind = KindF32
		c.Bits &= math.MaxUint32
	case TagF64:
		c.Kind = KindF64
	default:
		c.Kind = KindInvalid
	}
	return c
}

func (c Canonical) Int32() int32     { return int32(uint32(c.Bits)) }
func (c Canonical) Int64() int64     { return int64(c.Bits) }
func (c Canonical) Float32() float32 { return math.Float32frombits(uint32(c.Bits)) }
func (c Canonical) Float64() float64 { return math.Float64frombits(c.Bits) }

// Float returns the value widened to float64. Integers convert numerically.
func (c Canonical) Float() float64 {
	switch c.Kind {
	case KindF32:
		return float64(c.Float32())
	case KindF64:
		return c.Float64()
	case KindI32:
		return float64(c.Int32())
	case KindI64:
		return float64(c.Int64())
	}
	return math.NaN()
}

// IsNaN reports whether c is a float NaN of any payload.
func (c Canonical) IsNaN() bool {
	return c.Kind.IsFloat() && math.IsNaN(c.Float())
}

// Text renders the numeric value without type or bit pattern.
func (c Canonical) Text() string {
	switch c.Kind {
	case KindI32:
		return strconv.FormatInt(int64(c.Int32()), 10)
	case KindI64:
		return strconv.FormatInt(c.Int64(), 10)
	case KindF32:
		if c.IsNaN() {
			return "nan"
		}
		return strconv.FormatFloat(float64(c.Float32()), 'g', -1, 32)
	case KindF64:
		if c.IsNaN() {
			return "nan"
		}
		return strconv.FormatFloat(c.Float64(), 'g', -1, 64)
	}
	return "?"
}

// String renders the kind, value and raw bit pattern.
func (c Canonical) String() string {
	switch c.Kind {
	case KindI32, KindF32:
		return fmt.Sprintf("%s:%s (0x%08x)", c.Kind, c.Text(), uint32(c.Bits))
	case KindI64, KindF64:
		return fmt.Sprintf("%s:%s (0x%016x)", c.Kind, c.Text(), c.Bits)
	}
	return fmt.Sprintf("invalid %s (0x%016x)", c.Tag, c.Bits)
}
