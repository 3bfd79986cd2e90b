package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-spectest/compare"
	"github.com/wippyai/wasm-spectest/config"
	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/errors"
	"github.com/wippyai/wasm-spectest/internal/wasmbin"
	"github.com/wippyai/wasm-spectest/script"
	"github.com/wippyai/wasm-spectest/value"
)

var (
	lookupErr        = &errors.Error{Phase: errors.PhaseLookup, Kind: errors.KindLookup}
	unknownModuleErr = &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindUnknownModule}
	engineFaultErr   = &errors.Error{Phase: errors.PhaseInvoke, Kind: errors.KindEngineFault}
	mismatchErr      = &errors.Error{Phase: errors.PhaseAssert, Kind: errors.KindMismatch}
)

// loadScript writes a script named <testSet>.json next to its modules and
// loads it.
func loadScript(t *testing.T, testSet string, commands []string, modules map[string][]byte) *script.Script {
	t.Helper()
	doc := fmt.Sprintf(`{"source_filename": %q, "commands": [%s]}`,
		testSet+".wast", strings.Join(commands, ",\n"))
	fsys := fstest.MapFS{"suite/" + testSet + ".json": {Data: []byte(doc)}}
	for name, data := range modules {
		fsys["suite/"+name] = &fstest.MapFile{Data: data}
	}
	s, err := script.Load(fsys, "suite/"+testSet+".json")
	require.NoError(t, err)
	return s
}

func moduleCmd(line int, name, file string) string {
	return fmt.Sprintf(`{"type": "module", "line": %d, "name": %q, "filename": %q}`, line, name, file)
}

func invokeJSON(module, field string, args ...value.Literal) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf(`{"type": %q, "value": %q}`, a.Type, a.Value)
	}
	return fmt.Sprintf(`{"type": "invoke", "module": %q, "field": %q, "args": [%s]}`,
		module, field, strings.Join(parts, ", "))
}

func assertReturnCmd(line int, action string, expected ...value.Literal) string {
	parts := make([]string, len(expected))
	for i, e := range expected {
		parts[i] = fmt.Sprintf(`{"type": %q, "value": %q}`, e.Type, e.Value)
	}
	return fmt.Sprintf(`{"type": "assert_return", "line": %d, "action": %s, "expected": [%s]}`,
		line, action, strings.Join(parts, ", "))
}

func actionCmd(line int, action string) string {
	return fmt.Sprintf(`{"type": "action", "line": %d, "action": %s, "expected": []}`, line, action)
}

// arithModule exports add, div_s, inc over a mutable global, and pair
// returning two values.
func arithModule() []byte {
	i32 := api.ValueTypeI32
	b := wasmbin.NewBuilder()
	b.AddFunc(wasmbin.Func{
		Name: "add", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Body: []byte{0x20, 0x00, 0x20, 0x01, 0x6a},
	})
	b.AddFunc(wasmbin.Func{
		Name: "div_s", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Body: []byte{0x20, 0x00, 0x20, 0x01, 0x6d},
	})
	b.AddFunc(wasmbin.Func{
		Name: "inc", Results: []api.ValueType{i32},
		Body: []byte{0x23, 0x00, 0x41, 0x01, 0x6a, 0x24, 0x00, 0x23, 0x00},
	})
	b.AddFunc(wasmbin.Func{
		Name: "nan", Results: []api.ValueType{api.ValueTypeF32},
		Body: []byte{0x43, 0x00, 0x00, 0xc0, 0xff}, // f32.const -nan
	})
	b.AddGlobal(wasmbin.Global{Name: "counter", Type: i32, Mutable: true})
	return b.Build()
}

func newWazero(t *testing.T) *engine.WazeroEngine {
	t.Helper()
	ctx := context.Background()
	e, err := engine.NewWazeroEngine(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close(ctx) })
	return e
}

func TestRun_AddEndToEnd(t *testing.T) {
	s := loadScript(t, "i32", []string{
		moduleCmd(1, "", "i32.0.wasm"),
		assertReturnCmd(2, invokeJSON("", "add", value.I32("2"), value.I32("3")), value.I32("5")),
		assertReturnCmd(3, invokeJSON("", "add", value.I32("1"), value.I32("4294967295")), value.I32("0")),
		assertReturnCmd(4, invokeJSON("", "nan"), value.F32(value.NaNCanonical)),
	}, map[string][]byte{"i32.0.wasm": arithModule()})

	gw := newWazero(t)
	report, err := New(gw).Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, "i32", report.TestSet)
	require.Equal(t, 4, report.Passed())
	require.Zero(t, report.Skipped())

	// Results are popped: the module's stack is back at its pre-call depth.
	require.Zero(t, gw.Stack(1).Len())
}

func TestRun_NamedModuleResolution(t *testing.T) {
	s := loadScript(t, "names", []string{
		moduleCmd(1, "", "a.wasm"),
		moduleCmd(2, "B", "b.wasm"),
		actionCmd(3, invokeJSON("B", "id")),
		assertReturnCmd(4, invokeJSON("B", "id"), value.I32("2")),
		assertReturnCmd(5, invokeJSON("", "id"), value.I32("1")),
	}, map[string][]byte{"a.wasm": []byte("A"), "b.wasm": []byte("B")})

	gw := newFakeGateway()
	report, err := New(gw).Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 5, report.Passed())
	require.Equal(t, []engine.Handle{2, 2, 1}, gw.invoked)
}

func TestRun_MissingExportIsFatal(t *testing.T) {
	s := loadScript(t, "exports", []string{
		moduleCmd(1, "", "a.wasm"),
		assertReturnCmd(7, invokeJSON("", "nope"), value.I32("0")),
		assertReturnCmd(8, invokeJSON("", "id"), value.I32("1")),
	}, map[string][]byte{"a.wasm": []byte("A")})

	gw := newFakeGateway()
	report, err := New(gw).Run(context.Background(), s)
	require.ErrorIs(t, err, lookupErr)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, "exports", e.TestSet)
	require.Equal(t, 7, e.Line)
	require.Equal(t, "nope", e.Field)

	require.Equal(t, err, report.Fatal)
	require.Len(t, report.Outcomes, 2)
	require.Equal(t, StatusFail, report.Outcomes[1].Status)
	require.Empty(t, gw.invoked)
	require.Zero(t, gw.Stack(1).Len())
}

func TestRun_UnknownModule(t *testing.T) {
	s := loadScript(t, "unknown", []string{
		assertReturnCmd(1, invokeJSON("", "id"), value.I32("1")),
	}, nil)
	_, err := New(newFakeGateway()).Run(context.Background(), s)
	require.ErrorIs(t, err, unknownModuleErr)

	s = loadScript(t, "unknown", []string{
		moduleCmd(1, "", "a.wasm"),
		actionCmd(2, invokeJSON("$other", "id")),
	}, map[string][]byte{"a.wasm": []byte("A")})
	_, err = New(newFakeGateway()).Run(context.Background(), s)
	require.ErrorIs(t, err, unknownModuleErr)
	require.Contains(t, err.Error(), "$other")
}

func TestRun_MultiReturn(t *testing.T) {
	cmds := []string{
		moduleCmd(1, "", "a.wasm"),
		assertReturnCmd(2, invokeJSON("", "id"), value.I32("1"), value.I32("1")),
	}
	modules := map[string][]byte{"a.wasm": []byte("A")}

	gw := newFakeGateway()
	report, err := New(gw).Run(context.Background(), loadScript(t, "multi", cmds, modules))
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped())
	require.Equal(t, ReasonMultiReturn, report.Outcomes[1].Reason)
	require.Empty(t, gw.invoked)

	_, err = New(newFakeGateway(), WithMultiReturn(MultiReturnFail)).
		Run(context.Background(), loadScript(t, "multi", cmds, modules))
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAssert, Kind: errors.KindUnsupported})
}

func TestRun_Mismatch(t *testing.T) {
	s := loadScript(t, "i32", []string{
		moduleCmd(1, "", "i32.0.wasm"),
		assertReturnCmd(12, invokeJSON("", "add", value.I32("2"), value.I32("3")), value.I32("6")),
	}, map[string][]byte{"i32.0.wasm": arithModule()})

	_, err := New(newWazero(t)).Run(context.Background(), s)
	require.ErrorIs(t, err, mismatchErr)

	var m *MismatchError
	require.ErrorAs(t, err, &m)
	require.Equal(t, "i32", m.TestSet)
	require.Equal(t, "add", m.Field)
	require.Equal(t, 12, m.Line)
	require.Equal(t, int32(5), m.Observed.Int32())
	require.Equal(t, int32(6), m.Expected.Int32())
	require.Contains(t, err.Error(), "add(i32:2, i32:3)")
	require.Contains(t, err.Error(), "0x00000005")
}

func TestRun_TypeMismatchNeverEqual(t *testing.T) {
	s := loadScript(t, "types", []string{
		moduleCmd(1, "", "a.wasm"),
		assertReturnCmd(2, invokeJSON("", "id"), value.F32("1")),
	}, map[string][]byte{"a.wasm": []byte("A")})

	_, err := New(newFakeGateway()).Run(context.Background(), s)
	require.ErrorIs(t, err, mismatchErr)
}

func TestRun_EngineFault(t *testing.T) {
	cmds := []string{
		moduleCmd(1, "", "i32.0.wasm"),
		assertReturnCmd(40, invokeJSON("", "div_s", value.I32("1"), value.I32("0")), value.I32("0")),
		assertReturnCmd(41, invokeJSON("", "add", value.I32("1"), value.I32("1")), value.I32("2")),
	}
	modules := map[string][]byte{"i32.0.wasm": arithModule()}

	_, err := New(newWazero(t)).Run(context.Background(), loadScript(t, "i32", cmds, modules))
	require.ErrorIs(t, err, engineFaultErr)
	require.Contains(t, err.Error(), "invoke div_s: ")
	require.Contains(t, err.Error(), "divide by zero")

	var res engine.Result
	require.ErrorAs(t, err, &res)
	require.Equal(t, engine.StatusErrNest, res.Status)

	exceptions, err := config.ParseExceptions([]byte(`
version = 1
exception "i32" {
  field  = "div_s"
  line   = 40
  reason = "trap expected"
}
`), "exceptions.hcl")
	require.NoError(t, err)

	report, err := New(newWazero(t), WithExceptions(exceptions)).
		Run(context.Background(), loadScript(t, "i32", cmds, modules))
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped())
	require.Equal(t, "trap expected", report.Outcomes[1].Reason)
	require.Equal(t, 2, report.Passed())
}

func TestRun_ActionFault(t *testing.T) {
	s := loadScript(t, "faults", []string{
		moduleCmd(1, "", "a.wasm"),
		actionCmd(3, invokeJSON("", "fail")),
	}, map[string][]byte{"a.wasm": []byte("A")})

	_, err := New(newFakeGateway()).Run(context.Background(), s)
	require.ErrorIs(t, err, engineFaultErr)
	require.Contains(t, err.Error(), "invoke fail: unreachable executed")
}

func TestRun_InertCommands(t *testing.T) {
	s := loadScript(t, "inert", []string{
		moduleCmd(1, "", "a.wasm"),
		`{"type": "register", "line": 2, "name": "", "as": "M"}`,
		`{"type": "assert_trap", "line": 3, "action": {"type": "invoke", "field": "fail", "args": []}, "text": "unreachable"}`,
		`{"type": "assert_invalid", "line": 4, "filename": "x.wasm", "text": "type mismatch"}`,
		`{"type": "assert_malformed", "line": 5, "filename": "x.wat", "text": "unknown operator", "module_type": "text"}`,
		`{"type": "assert_exhaustion", "line": 6, "action": {"type": "invoke", "field": "fail", "args": []}, "text": "exhausted"}`,
		`{"type": "assert_uninstantiable", "line": 7, "filename": "x.wasm", "text": "unreachable"}`,
		`{"type": "assert_unlinkable", "line": 8, "filename": "x.wasm", "text": "unknown import"}`,
		`{"type": "assert_return", "line": 9, "action": {"type": "get", "field": "g"}, "expected": [{"type": "i32", "value": "1"}]}`,
		`{"type": "action", "line": 10, "action": {"type": "get", "field": "g"}}`,
	}, map[string][]byte{"a.wasm": []byte("A")})

	gw := newFakeGateway()
	report, err := New(gw).Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 1, report.Passed())
	require.Equal(t, 9, report.Skipped())
	require.Empty(t, gw.invoked)

	for _, o := range report.Outcomes[1:8] {
		require.Equal(t, ReasonNotVerified, o.Reason, "line %d", o.Line)
	}
	require.Equal(t, ReasonGet, report.Outcomes[8].Reason)
	require.Equal(t, "g", report.Outcomes[8].Field)
}

func TestRun_EmptyExpectationDiscardsResults(t *testing.T) {
	s := loadScript(t, "empty", []string{
		moduleCmd(1, "", "a.wasm"),
		assertReturnCmd(2, invokeJSON("", "id")),
	}, map[string][]byte{"a.wasm": []byte("A")})

	gw := newFakeGateway()
	report, err := New(gw).Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 2, report.Passed())
	require.Zero(t, gw.Stack(1).Len())
}

func TestRun_Isolation(t *testing.T) {
	cmds := []string{
		moduleCmd(1, "", "i32.0.wasm"),
		assertReturnCmd(2, invokeJSON("", "inc"), value.I32("1")),
		assertReturnCmd(3, invokeJSON("", "inc"), value.I32("1")),
	}
	modules := map[string][]byte{"i32.0.wasm": arithModule()}

	report, err := New(newWazero(t), WithIsolation(true)).
		Run(context.Background(), loadScript(t, "isolated", cmds, modules))
	require.NoError(t, err)
	require.Equal(t, 3, report.Passed())

	// Without isolation the second inc observes the first.
	_, err = New(newWazero(t)).Run(context.Background(), loadScript(t, "shared", cmds, modules))
	require.ErrorIs(t, err, mismatchErr)

	gw := newFakeGateway()
	_, err = New(gw, WithIsolation(true)).Run(context.Background(), loadScript(t, "fake", []string{
		moduleCmd(1, "", "a.wasm"),
		actionCmd(2, invokeJSON("", "id")),
	}, map[string][]byte{"a.wasm": []byte("A")}))
	require.NoError(t, err)
	require.Equal(t, 1, gw.snapshots)
	require.Equal(t, 1, gw.destroyed)
}

func TestRun_InvalidHandle(t *testing.T) {
	gw := newFakeGateway()
	gw.invalid = true
	s := loadScript(t, "load", []string{moduleCmd(1, "", "a.wasm")}, map[string][]byte{"a.wasm": []byte("A")})

	_, err := New(gw).Run(context.Background(), s)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidHandle})
}

func TestRun_MissingModuleFile(t *testing.T) {
	s := loadScript(t, "load", []string{moduleCmd(1, "", "absent.wasm")}, nil)
	_, err := New(newFakeGateway()).Run(context.Background(), s)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindIO})
}

func TestRun_LoadOptionsPerTestSet(t *testing.T) {
	cfg, err := config.Parse([]byte(`
suite "names" {
  trim_leading_underscore = true
}
compare {
  strict = true
}
`), "harness.hcl")
	require.NoError(t, err)

	modules := map[string][]byte{"a.wasm": []byte("A")}
	gw := newFakeGateway()
	x := New(gw, WithConfig(cfg))
	require.Equal(t, compare.StrictPolicy, x.policy)

	_, err = x.Run(context.Background(), loadScript(t, "names", []string{moduleCmd(1, "", "a.wasm")}, modules))
	require.NoError(t, err)
	_, err = x.Run(context.Background(), loadScript(t, "i32", []string{moduleCmd(1, "", "a.wasm")}, modules))
	require.NoError(t, err)

	require.Equal(t, []engine.Options{{TrimLeadingUnderscoreOnLookup: true}, {}}, gw.loads)
}

func TestRun_FreshRegistryPerRun(t *testing.T) {
	gw := newFakeGateway()
	x := New(gw)

	_, err := x.Run(context.Background(), loadScript(t, "first", []string{moduleCmd(1, "", "a.wasm")},
		map[string][]byte{"a.wasm": []byte("A")}))
	require.NoError(t, err)

	_, err = x.Run(context.Background(), loadScript(t, "second", []string{
		actionCmd(1, invokeJSON("", "id")),
	}, nil))
	require.ErrorIs(t, err, unknownModuleErr)
}

func TestParseMultiReturnPolicy(t *testing.T) {
	p, err := ParseMultiReturnPolicy("fail")
	require.NoError(t, err)
	require.Equal(t, MultiReturnFail, p)
	require.Equal(t, "fail", p.String())

	p, err = ParseMultiReturnPolicy("")
	require.NoError(t, err)
	require.Equal(t, MultiReturnSkip, p)

	_, err = ParseMultiReturnPolicy("maybe")
	require.Error(t, err)
}

func TestRun_InvalidConfigMultiReturn(t *testing.T) {
	cfg := config.Default()
	cfg.MultiReturn = "fial"

	gw := newFakeGateway()
	report, err := New(gw, WithConfig(cfg)).Run(context.Background(), loadScript(t, "i32", []string{
		moduleCmd(1, "", "a.wasm"),
	}, map[string][]byte{"a.wasm": []byte("A")}))
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindParse})
	require.Contains(t, err.Error(), "fial")
	require.Equal(t, err, report.Fatal)
	require.Empty(t, gw.loads)
}

func TestRun_IsolationRefusesSharedImports(t *testing.T) {
	i32 := api.ValueTypeI32
	b := wasmbin.NewBuilder()
	b.ImportMemory(engine.SpectestModuleName, "memory", 1, 2)
	b.AddFunc(wasmbin.Func{
		Name: "store", Params: []api.ValueType{i32},
		Body: []byte{0x41, 0x00, 0x20, 0x00, 0x36, 0x02, 0x00},
	})
	b.AddFunc(wasmbin.Func{
		Name: "load", Results: []api.ValueType{i32},
		Body: []byte{0x41, 0x00, 0x28, 0x02, 0x00},
	})
	modules := map[string][]byte{"shared.0.wasm": b.Build()}

	report, err := New(newWazero(t), WithIsolation(true)).Run(context.Background(), loadScript(t, "shared", []string{
		moduleCmd(1, "", "shared.0.wasm"),
		actionCmd(2, invokeJSON("", "store", value.I32("11"))),
	}, modules))
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseInvoke, Kind: errors.KindUnsupported})
	require.Equal(t, 1, report.Passed())

	// Without isolation the same module runs and keeps its state.
	report, err = New(newWazero(t)).Run(context.Background(), loadScript(t, "shared", []string{
		moduleCmd(1, "", "shared.0.wasm"),
		actionCmd(2, invokeJSON("", "store", value.I32("11"))),
		assertReturnCmd(3, invokeJSON("", "load"), value.I32("11")),
	}, modules))
	require.NoError(t, err)
	require.Equal(t, 3, report.Passed())
}
