// Package value converts spec test literals to and from the engine's tagged
// runtime value representation.
//
// Three representations are involved:
//
//	Literal       textual value from a wast2json script ({"type":"i32","value":"42"})
//	RuntimeValue  one-byte tag plus a 64-bit payload, the engine's stack slot
//	Canonical     decoded, comparable value used by assertions and diagnostics
//
// Integer literals are unsigned decimal text reinterpreted into the signed
// fixed-width form. Float literals are the IEEE-754 bit pattern written as an
// unsigned decimal integer, or one of the NaN class tokens:
//
//	nan:canonical   0x7fc00000 / 0x7ff8000000000000
//	nan:arithmetic  0x7fc00001 / 0x7ff8000000000001
//
// Basic usage:
//
//	rv, err := value.Encode(value.Literal{Type: "f32", Value: "nan:canonical"})
//	c := value.Decode(rv)
//	fmt.Println(c) // f32:nan (0x7fc00000)
package value
