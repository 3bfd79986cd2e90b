package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wippyai/wasm-spectest/errors"
)

// ExceptionsVersion is the exception file format this build understands.
const ExceptionsVersion = 1

//go:embed exceptions.hcl
var defaultExceptions []byte

// Exception marks one engine failure as a known divergence.
type Exception struct {
	TestSet string `hcl:"test_set,label"`
	Field   string `hcl:"field"`
	Line    int    `hcl:"line"`
	Reason  string `hcl:"reason,optional"`
}

type exceptionFile struct {
	Version    int          `hcl:"version"`
	Exceptions []*Exception `hcl:"exception,block"`
}

type exceptionKey struct {
	testSet string
	field   string
	line    int
}

// Exceptions is a versioned lookup table of known divergences. A nil
// table matches nothing.
type Exceptions struct {
	entries map[exceptionKey]string
	Version int
}

// DefaultExceptions returns the table shipped with the harness.
func DefaultExceptions() (*Exceptions, error) {
	return ParseExceptions(defaultExceptions, "exceptions.hcl")
}

// LoadExceptions reads the exception table at path.
func LoadExceptions(path string) (*Exceptions, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("read "+path, err)
	}
	return ParseExceptions(src, path)
}

// ParseExceptions decodes an exception table. Files declaring a version
// other than ExceptionsVersion are rejected.
func ParseExceptions(src []byte, filename string) (*Exceptions, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Config("parse "+filename, diags)
	}

	var raw exceptionFile
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &raw); diags.HasErrors() {
		return nil, errors.Config("decode "+filename, diags)
	}
	if raw.Version != ExceptionsVersion {
		return nil, errors.Config(fmt.Sprintf("%s: unsupported exception table version %d (want %d)",
			filename, raw.Version, ExceptionsVersion), nil)
	}

	x := &Exceptions{
		Version: raw.Version,
		entries: make(map[exceptionKey]string, len(raw.Exceptions)),
	}
	for _, e := range raw.Exceptions {
		key := exceptionKey{testSet: e.TestSet, field: e.Field, line: e.Line}
		if _, dup := x.entries[key]; dup {
			return nil, errors.Config(fmt.Sprintf("%s: duplicate exception %s:%d %q",
				filename, e.TestSet, e.Line, e.Field), nil)
		}
		reason := e.Reason
		if reason == "" {
			reason = "known divergence"
		}
		x.entries[key] = reason
	}
	return x, nil
}

// Lookup returns the reason recorded for a failure of field at line in
// testSet.
func (x *Exceptions) Lookup(testSet, field string, line int) (string, bool) {
	if x == nil {
		return "", false
	}
	reason, ok := x.entries[exceptionKey{testSet: testSet, field: field, line: line}]
	return reason, ok
}

// Len returns the number of entries.
func (x *Exceptions) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}
