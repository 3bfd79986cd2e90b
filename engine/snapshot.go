package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-spectest/errors"
)

// Snapshot instantiates a fresh copy of h's compiled module and copies its
// linear memory, exported mutable globals and value stack. Table contents
// and unexported globals are those of a fresh instantiation.
//
// Modules importing a memory, table or mutable global cannot be
// snapshotted: the fresh instance would share, and re-initialize, the
// imported state.
func (e *WazeroEngine) Snapshot(ctx context.Context, h Handle) (Handle, error) {
	src, ok := e.instances[h]
	if !ok {
		return InvalidHandle, errors.New(errors.PhaseInvoke, errors.KindInvalidHandle).
			Detail("snapshot of unknown handle %d", h).
			Build()
	}
	if len(src.shared) > 0 {
		return InvalidHandle, errors.Unsupported(errors.PhaseInvoke,
			fmt.Sprintf("snapshot of a module importing shared state (%s)", strings.Join(src.shared, ", ")))
	}

	mod, err := src.runtime.InstantiateModule(ctx, src.compiled, moduleConfig())
	if err != nil {
		return InvalidHandle, errors.Load("snapshot", err)
	}

	if err := copyMemory(src.module.Memory(), mod.Memory()); err != nil {
		mod.Close(ctx)
		return InvalidHandle, errors.Load("snapshot", err)
	}
	for _, name := range src.globals {
		g, ok := mod.ExportedGlobal(name).(api.MutableGlobal)
		if !ok {
			continue
		}
		g.Set(src.module.ExportedGlobal(name).Get())
	}

	clone := &instance{
		runtime:  src.runtime,
		compiled: src.compiled,
		module:   mod,
		stack:    src.stack.clone(),
		opts:     src.opts,
		globals:  src.globals,
		snapshot: true,
	}
	for _, f := range src.funcs {
		clone.funcs = append(clone.funcs, exportedFunc{name: f.name, fn: mod.ExportedFunction(f.name)})
	}

	snap := e.register(clone)
	Logger().Debug("snapshot created", zap.Uint32("source", uint32(h)), zap.Uint32("snapshot", uint32(snap)))
	return snap, nil
}

func copyMemory(src, dst api.Memory) error {
	if src == nil || dst == nil {
		return nil
	}
	size := src.Size()
	if dst.Size() < size {
		const pageSize = 65536
		if _, ok := dst.Grow((size - dst.Size()) / pageSize); !ok {
			return fmt.Errorf("grow snapshot memory to %d bytes", size)
		}
	}
	data, ok := src.Read(0, size)
	if !ok {
		return fmt.Errorf("read %d bytes of memory", size)
	}
	if !dst.Write(0, data) {
		return fmt.Errorf("write %d bytes of memory", size)
	}
	return nil
}

// DestroySnapshot closes a snapshot instance. Handles that did not come
// from Snapshot are left untouched.
func (e *WazeroEngine) DestroySnapshot(ctx context.Context, h Handle) {
	inst, ok := e.instances[h]
	if !ok {
		return
	}
	if !inst.snapshot {
		Logger().Warn("refusing to destroy a non-snapshot handle", zap.Uint32("handle", uint32(h)))
		return
	}
	if err := inst.module.Close(ctx); err != nil {
		Logger().Warn("close snapshot", zap.Uint32("handle", uint32(h)), zap.Error(err))
	}
	delete(e.instances, h)
}
