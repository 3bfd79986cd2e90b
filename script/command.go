package script

import (
	"fmt"
	"strings"

	"github.com/wippyai/wasm-spectest/value"
)

// Command types as they appear in the "type" field of a script.
const (
	TypeModule               = "module"
	TypeRegister             = "register"
	TypeAction               = "action"
	TypeAssertReturn         = "assert_return"
	TypeAssertTrap           = "assert_trap"
	TypeAssertInvalid        = "assert_invalid"
	TypeAssertMalformed      = "assert_malformed"
	TypeAssertExhaustion     = "assert_exhaustion"
	TypeAssertUninstantiable = "assert_uninstantiable"
	TypeAssertUnlinkable     = "assert_unlinkable"
)

// Action types.
const (
	ActionInvoke = "invoke"
	ActionGet    = "get"
)

// Command is one step of a script.
type Command interface {
	// Type returns the script type discriminator.
	Type() string
	// SourceLine returns the line of the command in the original .wast file.
	SourceLine() int
}

// Action is what an action-bearing command runs against a module.
type Action interface {
	ActionType() string
	// Target returns the named module the action addresses, or "" for the
	// default module.
	Target() string
	FieldName() string
}

// Line carries the source line shared by every command.
type Line int

// SourceLine implements Command.
func (l Line) SourceLine() int { return int(l) }

// Module loads a module binary. An empty Name makes it the default module.
type Module struct {
	Name     string
	Filename string
	Line
}

func (*Module) Type() string { return TypeModule }

// Register exposes a module under another import namespace.
type Register struct {
	Name string
	As   string
	Line
}

func (*Register) Type() string { return TypeRegister }

// ActionCommand runs an action and discards what it produces.
type ActionCommand struct {
	Action   Action
	Expected []value.Literal
	Line
}

func (*ActionCommand) Type() string { return TypeAction }

// AssertReturn runs an action and compares its results with Expected.
type AssertReturn struct {
	Action   Action
	Expected []value.Literal
	Line
}

func (*AssertReturn) Type() string { return TypeAssertReturn }

// AssertTrap expects the action to trap with Text.
type AssertTrap struct {
	Action Action
	Text   string
	Line
}

func (*AssertTrap) Type() string { return TypeAssertTrap }

// AssertInvalid expects the module in Filename to fail validation.
type AssertInvalid struct {
	Filename string
	Text     string
	Line
}

func (*AssertInvalid) Type() string { return TypeAssertInvalid }

// AssertMalformed expects the module in Filename to fail decoding.
type AssertMalformed struct {
	Filename   string
	ModuleType string
	Text       string
	Line
}

func (*AssertMalformed) Type() string { return TypeAssertMalformed }

// AssertExhaustion expects the action to exhaust a resource.
type AssertExhaustion struct {
	Action Action
	Text   string
	Line
}

func (*AssertExhaustion) Type() string { return TypeAssertExhaustion }

// AssertUninstantiable expects instantiation of Filename to fail.
type AssertUninstantiable struct {
	Filename string
	Text     string
	Line
}

func (*AssertUninstantiable) Type() string { return TypeAssertUninstantiable }

// AssertUnlinkable expects linking of Filename to fail.
type AssertUnlinkable struct {
	Filename string
	Text     string
	Line
}

func (*AssertUnlinkable) Type() string { return TypeAssertUnlinkable }

// Invoke calls an exported function with Args.
type Invoke struct {
	Field  string
	Module string
	Args   []value.Literal
}

func (*Invoke) ActionType() string  { return ActionInvoke }
func (i *Invoke) Target() string    { return i.Module }
func (i *Invoke) FieldName() string { return i.Field }

func (i *Invoke) String() string {
	args := make([]string, len(i.Args))
	for n, a := range i.Args {
		args[n] = a.String()
	}
	target := ""
	if i.Module != "" {
		target = i.Module + "."
	}
	return fmt.Sprintf("%s%s(%s)", target, i.Field, strings.Join(args, ", "))
}

// Get reads an exported global.
type Get struct {
	Field  string
	Module string
}

func (*Get) ActionType() string  { return ActionGet }
func (g *Get) Target() string    { return g.Module }
func (g *Get) FieldName() string { return g.Field }

// ActionOf returns the action carried by c, or nil.
func ActionOf(c Command) Action {
	switch c := c.(type) {
	case *ActionCommand:
		return c.Action
	case *AssertReturn:
		return c.Action
	case *AssertTrap:
		return c.Action
	case *AssertExhaustion:
		return c.Action
	}
	return nil
}
