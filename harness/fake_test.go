package harness

import (
	"context"

	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/value"
)

// fakeGateway serves modules whose binary is just a name. Every module
// exports "id", returning the module's load order as an i32, and "fail",
// which always reports a nested engine error.
type fakeGateway struct {
	modules   map[engine.Handle]*fakeModule
	loads     []engine.Options
	invoked   []engine.Handle
	next      engine.Handle
	invalid   bool
	snapshots int
	destroyed int
}

type fakeModule struct {
	stack *engine.Stack
	name  string
	id    int32
}

var fakeExports = []string{"id", "fail"}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{modules: make(map[engine.Handle]*fakeModule), next: 1}
}

func (g *fakeGateway) LoadModule(_ context.Context, wasm []byte, opts engine.Options) (engine.Handle, error) {
	g.loads = append(g.loads, opts)
	if g.invalid {
		return engine.InvalidHandle, nil
	}
	h := g.next
	g.next++
	g.modules[h] = &fakeModule{name: string(wasm), id: int32(len(g.loads)), stack: engine.NewStack()}
	return h, nil
}

func (g *fakeGateway) ExportIndex(_ context.Context, h engine.Handle, name string) int {
	if _, ok := g.modules[h]; !ok {
		return engine.NotFound
	}
	for i, e := range fakeExports {
		if e == name {
			return i
		}
	}
	return engine.NotFound
}

func (g *fakeGateway) Invoke(_ context.Context, h engine.Handle, index int) engine.Result {
	g.invoked = append(g.invoked, h)
	m := g.modules[h]
	if fakeExports[index] == "fail" {
		return engine.NewNest(engine.NewErr("unreachable executed"), "invoke fail")
	}
	if err := m.stack.Push(value.FromI32(m.id)); err != nil {
		return engine.NewErr(err.Error())
	}
	return engine.NewOK()
}

func (g *fakeGateway) Snapshot(_ context.Context, h engine.Handle) (engine.Handle, error) {
	g.snapshots++
	src := g.modules[h]
	snap := g.next
	g.next++
	g.modules[snap] = &fakeModule{name: src.name, id: src.id, stack: engine.NewStack()}
	return snap, nil
}

func (g *fakeGateway) DestroySnapshot(_ context.Context, h engine.Handle) {
	g.destroyed++
	delete(g.modules, h)
}

func (g *fakeGateway) Stack(h engine.Handle) *engine.Stack {
	m, ok := g.modules[h]
	if !ok {
		return nil
	}
	return m.stack
}
