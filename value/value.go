package value

import (
	"fmt"
	"math"
)

// Tag identifies the type held by a RuntimeValue. Values match the wasm
// binary encoding of the corresponding value type.
type Tag uint8

const (
	TagInvalid Tag = 0x00
	TagI32     Tag = 0x7f
	TagI64     Tag = 0x7e
	TagF32     Tag = 0x7d
	TagF64     Tag = 0x7c
)

func (t Tag) String() string {
	switch t {
	case TagI32:
		return "i32"
	case TagI64:
		return "i64"
	case TagF32:
		return "f32"
	case TagF64:
		return "f64"
	default:
		return fmt.Sprintf("tag(0x%02x)", uint8(t))
	}
}

// Valid reports whether t names one of the four numeric value types.
func (t Tag) Valid() bool {
	switch t {
	case TagI32, TagI64, TagF32, TagF64:
		return true
	}
	return false
}

// RuntimeValue is a single engine stack slot: a type tag and an 8-byte
// payload. 32-bit types occupy the low half of the payload.
type RuntimeValue struct {
	Payload uint64
	Tag     Tag
}

func FromI32(v int32) RuntimeValue  { return RuntimeValue{Tag: TagI32, Payload: uint64(uint32(v))} }
func FromU32(v uint32) RuntimeValue { return RuntimeValue{Tag: TagI32, Payload: uint64(v)} }
func FromI64(v int64) RuntimeValue  { return RuntimeValue{Tag: TagI64, Payload: uint64(v)} }
func FromU64(v uint64) RuntimeValue { return RuntimeValue{Tag: TagI64, Payload: v} }
func FromF32(v float32) RuntimeValue {
	return RuntimeValue{Tag: TagF32, Payload: uint64(math.Float32bits(v))}
}
func FromF64(v float64) RuntimeValue { return RuntimeValue{Tag: TagF64, Payload: math.Float64bits(v)} }

// FromBits builds a value from a raw payload, masking 32-bit types.
func FromBits(tag Tag, bits uint64) RuntimeValue {
	if tag == TagI32 || tag == TagF32 {
		bits &= math.MaxUint32
	}
	return RuntimeValue{Tag: tag, Payload: bits}
}

func (v RuntimeValue) U32() uint32  { return uint32(v.Payload) }
func (v RuntimeValue) I32() int32   { return int32(uint32(v.Payload)) }
func (v RuntimeValue) U64() uint64  { return v.Payload }
func (v RuntimeValue) I64() int64   { return int64(v.Payload) }
func (v RuntimeValue) F32() float32 { return math.Float32frombits(uint32(v.Payload)) }
func (v RuntimeValue) F64() float64 { return math.Float64frombits(v.Payload) }

func (v RuntimeValue) String() string {
	return Decode(v).String()
}
