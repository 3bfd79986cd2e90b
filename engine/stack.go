package engine

import (
	"github.com/wippyai/wasm-spectest/errors"
	"github.com/wippyai/wasm-spectest/value"
)

// StackCapacity is the number of slots in a module's value stack.
const StackCapacity = 4096

// Stack is a module instance's value stack. The stack pointer is the number
// of occupied slots; the top value sits at slot Len()-1.
type Stack struct {
	slots [StackCapacity]value.RuntimeValue
	sp    int
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Len returns the stack pointer.
func (s *Stack) Len() int {
	return s.sp
}

// SetLen moves the stack pointer. Slots above the new pointer keep their
// contents until overwritten.
func (s *Stack) SetLen(n int) error {
	if n < 0 || n > StackCapacity {
		return errors.Stack("stack pointer %d outside [0, %d]", n, StackCapacity)
	}
	s.sp = n
	return nil
}

// Reset empties the stack.
func (s *Stack) Reset() {
	s.sp = 0
}

// Push writes v at the stack pointer and advances it.
func (s *Stack) Push(v value.RuntimeValue) error {
	if s.sp == StackCapacity {
		return errors.Stack("stack overflow (%d slots)", StackCapacity)
	}
	s.slots[s.sp] = v
	s.sp++
	return nil
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (value.RuntimeValue, error) {
	if s.sp == 0 {
		return value.RuntimeValue{}, errors.Stack("stack underflow")
	}
	s.sp--
	return s.slots[s.sp], nil
}

// PopN removes the top n values and returns them in push order.
func (s *Stack) PopN(n int) ([]value.RuntimeValue, error) {
	if n > s.sp {
		return nil, errors.Stack("stack underflow: need %d values, have %d", n, s.sp)
	}
	out := make([]value.RuntimeValue, n)
	copy(out, s.slots[s.sp-n:s.sp])
	s.sp -= n
	return out, nil
}

// Top returns the top value without removing it.
func (s *Stack) Top() (value.RuntimeValue, bool) {
	if s.sp == 0 {
		return value.RuntimeValue{}, false
	}
	return s.slots[s.sp-1], true
}

// Slot returns the value at position i, counted from the bottom.
func (s *Stack) Slot(i int) value.RuntimeValue {
	if i < 0 || i >= StackCapacity {
		return value.RuntimeValue{}
	}
	return s.slots[i]
}

// clone copies the occupied part of the stack.
func (s *Stack) clone() *Stack {
	c := &Stack{sp: s.sp}
	copy(c.slots[:s.sp], s.slots[:s.sp])
	return c
}
