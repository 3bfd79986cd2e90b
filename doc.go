// Package spectest drives a WebAssembly engine through the official
// conformance test scripts.
//
// Scripts are the JSON files produced by wast2json. Each one lists module
// loads, function invocations and expected results in execution order. The
// harness loads every module into the engine under test, invokes exports
// over a shared value stack and compares what comes back.
//
// # Architecture Overview
//
//	spectest/
//	├── value/            Literal, RuntimeValue and Canonical value codec
//	├── engine/           Engine gateway contract and the wazero binding
//	├── registry/         Default and named module handles of a run
//	├── compare/          Equality policy with NaN classes and tolerance
//	├── script/           wast2json loader
//	├── config/           HCL harness configuration and exception table
//	├── harness/          Command executor and reports
//	├── errors/           Structured error types for diagnostics
//	├── internal/wasmbin/ Synthetic module builder and export reader
//	└── cmd/spectest/     Command line runner
//
// # Quick Start
//
//	gw, err := engine.NewWazeroEngine(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Close(ctx)
//
//	s, err := script.LoadFile("testsuite/i32.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := harness.New(gw).Run(ctx, s)
//	if err != nil {
//	    log.Fatalf("%s failed after %d commands: %v", report.TestSet, len(report.Outcomes), err)
//	}
//
// # Failure Model
//
// A run stops at its first fatal condition: a module that does not load, an
// action naming an unknown module or export, an engine fault, or a result
// that does not match. Engine faults listed in the exception table are
// recorded as skipped instead. assert_trap, assert_invalid and the other
// negative assertions are recognized but not verified.
package spectest
