package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-spectest/errors"
	"github.com/wippyai/wasm-spectest/internal/wasmbin"
	"github.com/wippyai/wasm-spectest/value"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB). Modules loaded with
	// Options.DisableMemoryBounds are not subject to the limit.
	MemoryLimitPages uint32
}

// WazeroEngine implements Gateway using the wazero runtime. Each handle is an
// anonymous module instance with its own value stack.
type WazeroEngine struct {
	runtimes  map[bool]wazero.Runtime
	instances map[Handle]*instance
	cfg       Config
	next      Handle
}

type instance struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	module   api.Module
	stack    *Stack
	funcs    []exportedFunc
	globals  []string
	shared   []string
	opts     Options
	snapshot bool
}

type exportedFunc struct {
	fn   api.Function
	name string
}

var _ Gateway = (*WazeroEngine)(nil)

// NewWazeroEngine creates a new wazero-backed gateway. A nil config uses
// defaults.
func NewWazeroEngine(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	e := &WazeroEngine{
		runtimes:  make(map[bool]wazero.Runtime),
		instances: make(map[Handle]*instance),
		next:      1,
	}
	if cfg != nil {
		e.cfg = *cfg
	}
	// Create the default runtime eagerly so configuration errors surface here.
	if _, err := e.runtimeFor(ctx, Options{}); err != nil {
		return nil, err
	}
	return e, nil
}

// runtimeFor returns the runtime matching the memory bound requested by
// opts, creating it and its spectest host module on first use.
func (e *WazeroEngine) runtimeFor(ctx context.Context, opts Options) (wazero.Runtime, error) {
	bounded := e.cfg.MemoryLimitPages > 0 && !opts.DisableMemoryBounds
	if rt, ok := e.runtimes[bounded]; ok {
		return rt, nil
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCoreFeatures(api.CoreFeaturesV2)
	if bounded {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if err := instantiateSpectestModule(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, errors.Load(SpectestModuleName, err)
	}

	Logger().Debug("runtime created",
		zap.Bool("bounded", bounded),
		zap.Uint32("memory_limit_pages", e.cfg.MemoryLimitPages))
	e.runtimes[bounded] = rt
	return rt, nil
}

func moduleConfig() wazero.ModuleConfig {
	// Anonymous so any number of instances can coexist; no implicit _start.
	return wazero.NewModuleConfig().WithName("").WithStartFunctions()
}

// LoadModule compiles and instantiates wasm under the runtime selected by opts.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasm []byte, opts Options) (Handle, error) {
	if opts.MangleTableIndex {
		return InvalidHandle, errors.Unsupported(errors.PhaseLoad, "table index mangling is not available on wazero")
	}

	rt, err := e.runtimeFor(ctx, opts)
	if err != nil {
		return InvalidHandle, err
	}

	exports, err := wasmbin.ReadExports(wasm)
	if err != nil {
		return InvalidHandle, errors.Load("module", err)
	}
	imports, err := wasmbin.ReadImports(wasm)
	if err != nil {
		return InvalidHandle, errors.Load("module", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return InvalidHandle, errors.Load("module", fmt.Errorf("compile failed: %w", err))
	}

	mod, err := rt.InstantiateModule(ctx, compiled, moduleConfig())
	if err != nil {
		compiled.Close(ctx)
		return InvalidHandle, errors.Load("module", fmt.Errorf("instantiate failed: %w", err))
	}

	inst := &instance{
		runtime:  rt,
		compiled: compiled,
		module:   mod,
		stack:    NewStack(),
		opts:     opts,
	}
	for _, imp := range imports {
		if imp.Shared() {
			inst.shared = append(inst.shared, imp.Module+"."+imp.Name)
		}
	}
	for _, exp := range exports {
		switch exp.Kind {
		case wasmbin.ExternFunc:
			inst.funcs = append(inst.funcs, exportedFunc{name: exp.Name, fn: mod.ExportedFunction(exp.Name)})
		case wasmbin.ExternGlobal:
			inst.globals = append(inst.globals, exp.Name)
		}
	}

	h := e.register(inst)
	Logger().Debug("module loaded",
		zap.Uint32("handle", uint32(h)),
		zap.Int("functions", len(inst.funcs)),
		zap.Int("globals", len(inst.globals)))
	return h, nil
}

func (e *WazeroEngine) register(inst *instance) Handle {
	h := e.next
	e.next++
	e.instances[h] = inst
	return h
}

// ExportIndex returns the position of name among the module's exported
// functions in declaration order.
func (e *WazeroEngine) ExportIndex(_ context.Context, h Handle, name string) int {
	inst, ok := e.instances[h]
	if !ok {
		return NotFound
	}
	for i, f := range inst.funcs {
		if f.name == name {
			return i
		}
	}
	if inst.opts.TrimLeadingUnderscoreOnLookup {
		want := strings.TrimPrefix(name, "_")
		for i, f := range inst.funcs {
			if strings.TrimPrefix(f.name, "_") == want {
				return i
			}
		}
	}
	return NotFound
}

// Invoke pops the export's parameters off the handle's stack, calls it and
// pushes its results.
func (e *WazeroEngine) Invoke(ctx context.Context, h Handle, index int) Result {
	inst, ok := e.instances[h]
	if !ok {
		return NewErr(fmt.Sprintf("invalid handle %d", h))
	}
	if index < 0 || index >= len(inst.funcs) {
		return NewErr(fmt.Sprintf("export index %d out of range", index))
	}
	export := inst.funcs[index]
	def := export.fn.Definition()
	paramTypes := def.ParamTypes()

	args, err := inst.stack.PopN(len(paramTypes))
	if err != nil {
		return NewNest(NewErr(err.Error()), "invoke "+export.name)
	}
	params := make([]uint64, len(args))
	for i, arg := range args {
		if arg.Tag != value.Tag(paramTypes[i]) {
			return NewNest(
				NewErr(fmt.Sprintf("argument %d: expected %s, got %s", i, api.ValueTypeName(paramTypes[i]), arg.Tag)),
				"invoke "+export.name)
		}
		params[i] = arg.Payload
	}

	results, err := export.fn.Call(ctx, params...)
	if err != nil {
		Logger().Debug("invocation failed", zap.String("export", export.name), zap.Error(err))
		return NewNest(NewErr(trapMessage(err)), "invoke "+export.name)
	}

	for i, t := range def.ResultTypes() {
		if err := inst.stack.Push(value.FromBits(value.Tag(t), results[i])); err != nil {
			return NewNest(NewErr(err.Error()), "invoke "+export.name)
		}
	}
	return NewOK()
}

// trapMessage drops the stack trace wazero appends to runtime errors.
func trapMessage(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimPrefix(msg, "wasm error: ")
}

// Stack returns the value stack of h.
func (e *WazeroEngine) Stack(h Handle) *Stack {
	inst, ok := e.instances[h]
	if !ok {
		return nil
	}
	return inst.stack
}

// Close releases every runtime and the instances they own.
func (e *WazeroEngine) Close(ctx context.Context) error {
	var firstErr error
	for key, rt := range e.runtimes {
		if err := rt.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.runtimes, key)
	}
	clear(e.instances)
	return firstErr
}
