package wasmbin

import (
	"bytes"
	"fmt"
	"io"
)

// ImportEntry is one entry of the import section. Mutable is only
// meaningful for global imports.
type ImportEntry struct {
	Module  string
	Name    string
	Kind    byte
	Mutable bool
}

// Shared reports whether the import exposes state another instance can
// write: a memory, a table or a mutable global.
func (i ImportEntry) Shared() bool {
	switch i.Kind {
	case ExternMemory, ExternTable:
		return true
	case ExternGlobal:
		return i.Mutable
	}
	return false
}

// ReadImports returns the import section entries of a core module in
// declaration order.
func ReadImports(data []byte) ([]ImportEntry, error) {
	payload, err := findSection(data, SectionImport)
	if err != nil || payload == nil {
		return nil, err
	}
	imports, err := parseImportSection(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("import section: %w", err)
	}
	return imports, nil
}

func parseImportSection(r *bytes.Reader) ([]ImportEntry, error) {
	count, err := ReadULEB128(r)
	if err != nil {
		return nil, err
	}
	if int64(count) > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	imports := make([]ImportEntry, count)
	for i := uint32(0); i < count; i++ {
		module, err := readName(r)
		if err != nil {
			return nil, err
		}
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		imp := ImportEntry{Module: module, Name: name, Kind: kind}
		switch kind {
		case ExternFunc:
			_, err = ReadULEB128(r)
		case ExternTable:
			if _, err = r.ReadByte(); err == nil {
				err = skipLimits(r)
			}
		case ExternMemory:
			err = skipLimits(r)
		case ExternGlobal:
			if _, err = r.ReadByte(); err == nil {
				var mut byte
				mut, err = r.ReadByte()
				imp.Mutable = mut&0x01 != 0
			}
		case ExternTag:
			if _, err = r.ReadByte(); err == nil {
				_, err = ReadULEB128(r)
			}
		default:
			return nil, fmt.Errorf("invalid import kind: 0x%02x", kind)
		}
		if err != nil {
			return nil, err
		}
		imports[i] = imp
	}
	return imports, nil
}

func readName(r *bytes.Reader) (string, error) {
	n, err := ReadULEB128(r)
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	name := make([]byte, n)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", err
	}
	return string(name), nil
}

// skipLimits consumes a limits record. Bounds are skipped as 64-bit LEB128
// so memory64 limits parse too.
func skipLimits(r *bytes.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	n := 1
	if flags&0x01 != 0 {
		n = 2
	}
	for ; n > 0; n-- {
		if err := skipLEB(r); err != nil {
			return err
		}
	}
	return nil
}

func skipLEB(r *bytes.Reader) error {
	for i := 0; i < 10; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b&0x80 == 0 {
			return nil
		}
	}
	return ErrOverflow
}
