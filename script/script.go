// Package script loads conformance scripts in the wast2json format.
//
// A script is a JSON document listing commands in execution order. Module
// binaries referenced by the commands are resolved relative to the
// directory holding the script.
package script

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wippyai/wasm-spectest/errors"
	"github.com/wippyai/wasm-spectest/value"
)

// Script is a parsed conformance script.
type Script struct {
	fsys fs.FS
	dir  string

	// SourceFilename is the .wast file the script was generated from.
	SourceFilename string

	// TestSet identifies the script in reports and exception tables, e.g.
	// "i32" for i32.wast.
	TestSet string

	Commands []Command
}

type (
	rawScript struct {
		SourceFilename string       `json:"source_filename"`
		Commands       []rawCommand `json:"commands"`
	}

	rawCommand struct {
		Type       string          `json:"type"`
		Line       int             `json:"line"`
		Name       string          `json:"name,omitempty"`
		Filename   string          `json:"filename,omitempty"`
		As         string          `json:"as,omitempty"`
		Action     *rawAction      `json:"action,omitempty"`
		Expected   []value.Literal `json:"expected,omitempty"`
		ModuleType string          `json:"module_type,omitempty"`
		Text       string          `json:"text,omitempty"`
	}

	rawAction struct {
		Type   string          `json:"type"`
		Field  string          `json:"field"`
		Module string          `json:"module,omitempty"`
		Args   []value.Literal `json:"args,omitempty"`
	}
)

// LoadFile reads the script at path from the local filesystem.
func LoadFile(name string) (*Script, error) {
	return Load(os.DirFS(filepath.Dir(name)), filepath.Base(name))
}

// Load reads and parses the script at name within fsys. Module files are
// later read from the same directory.
func Load(fsys fs.FS, name string) (*Script, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Load(name, err)
	}
	s, err := Parse(data)
	if err != nil {
		if s == nil {
			return nil, errors.WithLocation(err, testSetName("", name), 0)
		}
		return nil, err
	}
	s.fsys = fsys
	s.dir = path.Dir(name)
	if s.TestSet == "" {
		s.TestSet = testSetName("", name)
	}
	return s, nil
}

// Parse decodes a script document. Every literal is validated so a bad
// value is reported before any command runs. The returned script cannot
// read module files.
func Parse(data []byte) (*Script, error) {
	var raw rawScript
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.ParseError("script", err)
	}

	s := &Script{
		SourceFilename: raw.SourceFilename,
		TestSet:        testSetName(raw.SourceFilename, ""),
		Commands:       make([]Command, 0, len(raw.Commands)),
	}
	for _, rc := range raw.Commands {
		cmd, err := rc.decode()
		if err != nil {
			return s, errors.WithLocation(err, s.TestSet, rc.Line)
		}
		s.Commands = append(s.Commands, cmd)
	}
	return s, nil
}

// ReadModule returns the bytes of a module file referenced by a command.
func (s *Script) ReadModule(filename string) ([]byte, error) {
	if s.fsys == nil {
		return nil, errors.Load(filename, fmt.Errorf("script has no backing filesystem"))
	}
	data, err := fs.ReadFile(s.fsys, path.Join(s.dir, filename))
	if err != nil {
		return nil, errors.Load(filename, err)
	}
	return data, nil
}

func testSetName(sourceFilename, scriptPath string) string {
	name := sourceFilename
	if name == "" {
		name = scriptPath
	}
	name = path.Base(filepath.ToSlash(name))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

func (rc rawCommand) decode() (Command, error) {
	line := Line(rc.Line)

	switch rc.Type {
	case TypeModule:
		return &Module{Name: rc.Name, Filename: rc.Filename, Line: line}, nil
	case TypeRegister:
		return &Register{Name: rc.Name, As: rc.As, Line: line}, nil
	case TypeAssertInvalid:
		return &AssertInvalid{Filename: rc.Filename, Text: rc.Text, Line: line}, nil
	case TypeAssertMalformed:
		return &AssertMalformed{Filename: rc.Filename, ModuleType: rc.ModuleType, Text: rc.Text, Line: line}, nil
	case TypeAssertUninstantiable:
		return &AssertUninstantiable{Filename: rc.Filename, Text: rc.Text, Line: line}, nil
	case TypeAssertUnlinkable:
		return &AssertUnlinkable{Filename: rc.Filename, Text: rc.Text, Line: line}, nil
	}

	action, err := rc.decodeAction()
	if err != nil {
		return nil, err
	}

	switch rc.Type {
	case TypeAction:
		if err := validate(rc.Expected); err != nil {
			return nil, err
		}
		return &ActionCommand{Action: action, Expected: rc.Expected, Line: line}, nil
	case TypeAssertReturn:
		if err := validate(rc.Expected); err != nil {
			return nil, err
		}
		return &AssertReturn{Action: action, Expected: rc.Expected, Line: line}, nil
	case TypeAssertTrap:
		return &AssertTrap{Action: action, Text: rc.Text, Line: line}, nil
	case TypeAssertExhaustion:
		return &AssertExhaustion{Action: action, Text: rc.Text, Line: line}, nil
	}
	return nil, errors.ParseErrorf("unknown command type %q", rc.Type)
}

func (rc rawCommand) decodeAction() (Action, error) {
	if rc.Action == nil {
		return nil, errors.ParseErrorf("%s command has no action", rc.Type)
	}
	a := rc.Action
	switch a.Type {
	case ActionInvoke:
		if err := validate(a.Args); err != nil {
			return nil, err
		}
		return &Invoke{Field: a.Field, Module: a.Module, Args: a.Args}, nil
	case ActionGet:
		return &Get{Field: a.Field, Module: a.Module}, nil
	}
	return nil, errors.ParseErrorf("unknown action type %q", a.Type)
}

// validate encodes each literal once so malformed values fail at load time.
// Trap and exhaustion commands are inert and keep whatever they carry.
func validate(lits []value.Literal) error {
	for _, lit := range lits {
		if _, err := value.Encode(lit); err != nil {
			return err
		}
	}
	return nil
}
