package engine

import "context"

// Handle is an opaque reference to an engine-owned module instance.
type Handle uint32

// InvalidHandle is never returned together with a nil error.
const InvalidHandle Handle = 0

// NotFound is the export index reported for an absent export.
const NotFound = -1

// Options toggles engine-side compatibility behaviors for one module load.
type Options struct {
	// DisableMemoryBounds lifts the engine's linear memory limit for the module.
	DisableMemoryBounds bool

	// MangleTableIndex requests engine-specific table index mangling.
	MangleTableIndex bool

	// TrimLeadingUnderscoreOnLookup makes export lookups ignore one leading
	// underscore on both the requested and the exported name.
	TrimLeadingUnderscoreOnLookup bool
}

// Gateway is the foreign-call boundary to the engine under test.
type Gateway interface {
	// LoadModule compiles and instantiates a core module.
	LoadModule(ctx context.Context, wasm []byte, opts Options) (Handle, error)

	// ExportIndex resolves an exported function name, or returns NotFound.
	ExportIndex(ctx context.Context, h Handle, name string) int

	// Invoke runs the export at index using the handle's value stack.
	Invoke(ctx context.Context, h Handle, index int) Result

	// Snapshot clones the module state into a new handle.
	Snapshot(ctx context.Context, h Handle) (Handle, error)

	// DestroySnapshot releases a handle obtained from Snapshot.
	DestroySnapshot(ctx context.Context, h Handle)

	// Stack returns the value stack of a module instance, or nil for an
	// unknown handle.
	Stack(h Handle) *Stack
}
