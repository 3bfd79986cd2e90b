// Package wasmbin synthesizes and inspects small core wasm binaries.
//
// The harness uses it to build the standard "spectest" host module and to
// read export sections so export indices follow declaration order.
package wasmbin

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"
)

// Func is a function defined by the module. Body holds the instruction
// bytes without the locals header and trailing end opcode.
type Func struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Locals  []api.ValueType
	Body    []byte
}

// Import is a function imported from another module.
type Import struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Global is a locally defined global. Init is the raw bit pattern of the
// initial value.
type Global struct {
	Name    string
	Type    api.ValueType
	Mutable bool
	Init    uint64
}

type limits struct {
	name string
	min  uint32
	max  uint32
	set  bool
}

// Builder builds a core wasm module from functions, imports, globals and
// an optional memory and table.
type Builder struct {
	imports   []Import
	memImport *ImportEntry
	funcs     []Func
	globals   []Global
	memory    limits
	table     limits
}

// NewBuilder creates an empty module builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ImportFunc adds a function import. Imported functions take the lowest
// function indices, in the order added.
func (b *Builder) ImportFunc(imp Import) *Builder {
	b.imports = append(b.imports, imp)
	return b
}

// ImportMemory imports memory 0 from module.name instead of declaring it.
func (b *Builder) ImportMemory(module, name string, min, max uint32) *Builder {
	b.memImport = &ImportEntry{Module: module, Name: name, Kind: ExternMemory}
	b.memory = limits{min: min, max: max}
	return b
}

// AddFunc adds a function. An empty Name leaves it unexported.
func (b *Builder) AddFunc(f Func) *Builder {
	b.funcs = append(b.funcs, f)
	return b
}

// AddGlobal adds a global. An empty Name leaves it unexported.
func (b *Builder) AddGlobal(g Global) *Builder {
	b.globals = append(b.globals, g)
	return b
}

// SetMemory declares memory 0 with the given page limits. A zero max leaves
// the memory unbounded.
func (b *Builder) SetMemory(exportName string, min, max uint32) *Builder {
	b.memory = limits{name: exportName, min: min, max: max, set: true}
	return b
}

// SetTable declares funcref table 0 with the given limits.
func (b *Builder) SetTable(exportName string, min, max uint32) *Builder {
	b.table = limits{name: exportName, min: min, max: max, set: true}
	return b
}

// FuncIndex returns the function index of the i-th defined function.
func (b *Builder) FuncIndex(i int) uint32 {
	return uint32(len(b.imports) + i)
}

// Build generates the WASM module bytes.
func (b *Builder) Build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	if len(b.imports)+len(b.funcs) > 0 {
		wasm = appendSection(wasm, SectionType, b.buildTypeSection())
	}
	if len(b.imports) > 0 || b.memImport != nil {
		wasm = appendSection(wasm, SectionImport, b.buildImportSection())
	}
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, SectionFunction, b.buildFuncSection())
	}
	if b.table.set {
		section := append([]byte{0x01, 0x70}, encodeLimits(b.table)...)
		wasm = appendSection(wasm, SectionTable, section)
	}
	if b.memory.set {
		section := append([]byte{0x01}, encodeLimits(b.memory)...)
		wasm = appendSection(wasm, SectionMemory, section)
	}
	if len(b.globals) > 0 {
		wasm = appendSection(wasm, SectionGlobal, b.buildGlobalSection())
	}
	if exports := b.buildExportSection(); exports != nil {
		wasm = appendSection(wasm, SectionExport, exports)
	}
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, SectionCode, b.buildCodeSection())
	}

	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(section)))...)
	return append(wasm, section...)
}

func encodeLimits(l limits) []byte {
	if l.max == 0 {
		return append([]byte{0x00}, EncodeULEB128(l.min)...)
	}
	out := append([]byte{0x01}, EncodeULEB128(l.min)...)
	return append(out, EncodeULEB128(l.max)...)
}

func encodeFuncType(params, results []api.ValueType) []byte {
	out := []byte{0x60}
	out = append(out, EncodeULEB128(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, EncodeULEB128(uint32(len(results)))...)
	return append(out, results...)
}

func encodeName(name string) []byte {
	return append(EncodeULEB128(uint32(len(name))), name...)
}

func (b *Builder) buildTypeSection() []byte {
	section := EncodeULEB128(uint32(len(b.imports) + len(b.funcs)))
	for _, imp := range b.imports {
		section = append(section, encodeFuncType(imp.Params, imp.Results)...)
	}
	for _, f := range b.funcs {
		section = append(section, encodeFuncType(f.Params, f.Results)...)
	}
	return section
}

func (b *Builder) buildImportSection() []byte {
	n := len(b.imports)
	if b.memImport != nil {
		n++
	}
	section := EncodeULEB128(uint32(n))
	for i, imp := range b.imports {
		section = append(section, encodeName(imp.Module)...)
		section = append(section, encodeName(imp.Name)...)
		section = append(section, ExternFunc)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	if m := b.memImport; m != nil {
		section = append(section, encodeName(m.Module)...)
		section = append(section, encodeName(m.Name)...)
		section = append(section, ExternMemory)
		section = append(section, encodeLimits(b.memory)...)
	}
	return section
}

func (b *Builder) buildFuncSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for i := range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(b.imports)+i))...)
	}
	return section
}

func (b *Builder) buildGlobalSection() []byte {
	section := EncodeULEB128(uint32(len(b.globals)))
	for _, g := range b.globals {
		section = append(section, g.Type)
		if g.Mutable {
			section = append(section, 0x01)
		} else {
			section = append(section, 0x00)
		}
		switch g.Type {
		case api.ValueTypeI32:
			section = append(section, 0x41)
			section = append(section, EncodeSLEB128(int32(uint32(g.Init)))...)
		case api.ValueTypeI64:
			section = append(section, 0x42)
			section = append(section, EncodeSLEB128(int64(g.Init))...)
		case api.ValueTypeF32:
			section = append(section, 0x43)
			section = binary.LittleEndian.AppendUint32(section, uint32(g.Init))
		case api.ValueTypeF64:
			section = append(section, 0x44)
			section = binary.LittleEndian.AppendUint64(section, g.Init)
		default:
			section = append(section, 0x41, 0x00)
		}
		section = append(section, 0x0b)
	}
	return section
}

func (b *Builder) buildExportSection() []byte {
	var entries []byte
	count := 0

	for i, f := range b.funcs {
		if f.Name == "" {
			continue
		}
		entries = append(entries, encodeName(f.Name)...)
		entries = append(entries, ExternFunc)
		entries = append(entries, EncodeULEB128(b.FuncIndex(i))...)
		count++
	}
	if b.table.set && b.table.name != "" {
		entries = append(entries, encodeName(b.table.name)...)
		entries = append(entries, ExternTable, 0x00)
		count++
	}
	if b.memory.set && b.memory.name != "" {
		entries = append(entries, encodeName(b.memory.name)...)
		entries = append(entries, ExternMemory, 0x00)
		count++
	}
	for i, g := range b.globals {
		if g.Name == "" {
			continue
		}
		entries = append(entries, encodeName(g.Name)...)
		entries = append(entries, ExternGlobal)
		entries = append(entries, EncodeULEB128(uint32(i))...)
		count++
	}

	if count == 0 {
		return nil
	}
	return append(EncodeULEB128(uint32(count)), entries...)
}

func (b *Builder) buildCodeSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		body := EncodeULEB128(uint32(len(f.Locals)))
		for _, l := range f.Locals {
			body = append(body, 0x01, l)
		}
		body = append(body, f.Body...)
		body = append(body, 0x0b)
		section = append(section, EncodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}
