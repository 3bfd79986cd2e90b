// Package config loads harness settings and the exception table from HCL.
//
// Both files may reference process environment variables as env.NAME
// inside expressions.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/wippyai/wasm-spectest/compare"
	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/errors"
)

// Multi-return policies accepted by the multi_return attribute.
const (
	MultiReturnSkip = "skip"
	MultiReturnFail = "fail"
)

// Config is the decoded harness configuration.
type Config struct {
	Engine      *EngineConfig  `hcl:"engine,block"`
	Compare     *CompareConfig `hcl:"compare,block"`
	MultiReturn string         `hcl:"multi_return,optional"`
	Isolate     bool           `hcl:"isolate,optional"`
	Suites      []*Suite       `hcl:"suite,block"`
}

// EngineConfig holds engine creation settings and default load options.
type EngineConfig struct {
	MemoryLimitPages      uint32 `hcl:"memory_limit_pages,optional"`
	DisableMemoryBounds   bool   `hcl:"disable_memory_bounds,optional"`
	MangleTableIndex      bool   `hcl:"mangle_table_index,optional"`
	TrimLeadingUnderscore bool   `hcl:"trim_leading_underscore,optional"`
}

// CompareConfig selects the comparison policy.
type CompareConfig struct {
	Strict    bool     `hcl:"strict,optional"`
	Tolerance *float64 `hcl:"tolerance,optional"`
}

// Suite overrides load options for one test set. Unset attributes inherit
// from the engine block.
type Suite struct {
	Name                  string `hcl:"name,label"`
	DisableMemoryBounds   *bool  `hcl:"disable_memory_bounds,optional"`
	MangleTableIndex      *bool  `hcl:"mangle_table_index,optional"`
	TrimLeadingUnderscore *bool  `hcl:"trim_leading_underscore,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine:      &EngineConfig{},
		Compare:     &CompareConfig{},
		MultiReturn: MultiReturnSkip,
	}
}

// LoadFile reads and decodes the configuration at path.
func LoadFile(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("read "+path, err)
	}
	return Parse(src, path)
}

// Parse decodes HCL configuration source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Config("parse "+filename, diags)
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &cfg); diags.HasErrors() {
		return nil, errors.Config("decode "+filename, diags)
	}

	if cfg.Engine == nil {
		cfg.Engine = &EngineConfig{}
	}
	if cfg.Compare == nil {
		cfg.Compare = &CompareConfig{}
	}
	switch cfg.MultiReturn {
	case "":
		cfg.MultiReturn = MultiReturnSkip
	case MultiReturnSkip, MultiReturnFail:
	default:
		return nil, errors.Config(fmt.Sprintf("multi_return must be %q or %q, got %q",
			MultiReturnSkip, MultiReturnFail, cfg.MultiReturn), nil)
	}
	if t := cfg.Compare.Tolerance; t != nil && *t < 0 {
		return nil, errors.Config(fmt.Sprintf("compare.tolerance must not be negative, got %g", *t), nil)
	}

	seen := make(map[string]bool, len(cfg.Suites))
	for _, s := range cfg.Suites {
		if seen[s.Name] {
			return nil, errors.Config(fmt.Sprintf("suite %q declared twice", s.Name), nil)
		}
		seen[s.Name] = true
	}
	return &cfg, nil
}

// EngineConfig returns the settings for creating the reference engine.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{MemoryLimitPages: c.Engine.MemoryLimitPages}
}

// LoadOptions returns the module load options for testSet, applying any
// suite override on top of the engine block.
func (c *Config) LoadOptions(testSet string) engine.Options {
	opts := engine.Options{
		DisableMemoryBounds:           c.Engine.DisableMemoryBounds,
		MangleTableIndex:              c.Engine.MangleTableIndex,
		TrimLeadingUnderscoreOnLookup: c.Engine.TrimLeadingUnderscore,
	}
	for _, s := range c.Suites {
		if s.Name != testSet {
			continue
		}
		if s.DisableMemoryBounds != nil {
			opts.DisableMemoryBounds = *s.DisableMemoryBounds
		}
		if s.MangleTableIndex != nil {
			opts.MangleTableIndex = *s.MangleTableIndex
		}
		if s.TrimLeadingUnderscore != nil {
			opts.TrimLeadingUnderscoreOnLookup = *s.TrimLeadingUnderscore
		}
	}
	return opts
}

// Policy returns the comparison policy.
func (c *Config) Policy() compare.Policy {
	if c.Compare.Strict {
		return compare.StrictPolicy
	}
	p := compare.DefaultPolicy
	if c.Compare.Tolerance != nil {
		p.Tolerance = *c.Compare.Tolerance
	}
	return p
}

// evalContext exposes the process environment as the env object.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(val)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}
