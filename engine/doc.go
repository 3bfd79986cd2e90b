// Package engine defines the gateway between the harness and the
// WebAssembly engine under test, plus a reference binding backed by wazero.
//
// The gateway contract mirrors a stack-based foreign-call ABI:
//
//	LoadModule(bytes, options) -> Handle      InvalidHandle on failure
//	ExportIndex(handle, name)  -> index       NotFound (-1) when absent
//	Invoke(handle, index)      -> Result      Ok | Err | ErrNest chain
//	Snapshot(handle)           -> Handle      isolated copy of module state
//	DestroySnapshot(handle)
//
// Arguments and results do not travel through Invoke's signature. Each
// module instance owns a fixed-capacity value Stack; the caller pushes
// arguments in order, Invoke pops the callee's parameters and pushes its
// results, and the caller reads results off the top.
//
//	gw, _ := engine.NewWazeroEngine(ctx, nil)
//	h, _ := gw.LoadModule(ctx, wasmBytes, engine.Options{})
//	st := gw.Stack(h)
//	st.Push(value.FromI32(2))
//	st.Push(value.FromI32(3))
//	if res := gw.Invoke(ctx, h, gw.ExportIndex(ctx, h, "add")); !res.IsOK() {
//	    log.Fatal(res)
//	}
//	sum, _ := st.Pop()
//
// Handles are opaque and owned by the engine. Gateways are driven by a
// single goroutine and are not safe for concurrent use.
package engine
