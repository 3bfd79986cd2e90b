package engine

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-spectest/internal/wasmbin"
)

// SpectestModuleName is the import namespace conformance scripts expect.
const SpectestModuleName = "spectest"

// spectestModule builds the standard host module: print functions that drop
// their inputs, globals initialized to 666, a 10..20 funcref table and a
// 1..2 page memory. The memory maximum means a runtime limited below two
// pages cannot host it.
//
// See https://github.com/WebAssembly/spec/blob/wg-1.0/interpreter/script/js.ml
func spectestModule() []byte {
	i32, i64, f32, f64 := api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64

	b := wasmbin.NewBuilder()
	prints := []struct {
		name   string
		params []api.ValueType
	}{
		{"print", nil},
		{"print_i32", []api.ValueType{i32}},
		{"print_i64", []api.ValueType{i64}},
		{"print_f32", []api.ValueType{f32}},
		{"print_f64", []api.ValueType{f64}},
		{"print_i32_f32", []api.ValueType{i32, f32}},
		{"print_f64_f64", []api.ValueType{f64, f64}},
	}
	for _, p := range prints {
		b.AddFunc(wasmbin.Func{Name: p.name, Params: p.params})
	}

	b.AddGlobal(wasmbin.Global{Name: "global_i32", Type: i32, Init: 666})
	b.AddGlobal(wasmbin.Global{Name: "global_i64", Type: i64, Init: 666})
	b.AddGlobal(wasmbin.Global{Name: "global_f32", Type: f32, Init: uint64(math.Float32bits(666))})
	b.AddGlobal(wasmbin.Global{Name: "global_f64", Type: f64, Init: math.Float64bits(666)})

	b.SetTable("table", 10, 20)
	b.SetMemory("memory", 1, 2)
	return b.Build()
}

func instantiateSpectestModule(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.InstantiateWithConfig(ctx, spectestModule(),
		wazero.NewModuleConfig().WithName(SpectestModuleName).WithStartFunctions())
	return err
}
