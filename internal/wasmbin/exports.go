package wasmbin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Section IDs
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionCode     byte = 10
)

// External kinds
const (
	ExternFunc   byte = 0x00
	ExternTable  byte = 0x01
	ExternMemory byte = 0x02
	ExternGlobal byte = 0x03
	ExternTag    byte = 0x04
)

var (
	ErrInvalidMagic   = errors.New("invalid wasm magic")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// ReadExports returns the export section entries of a core module in
// declaration order. Other sections are skipped without validation.
func ReadExports(data []byte) ([]Export, error) {
	payload, err := findSection(data, SectionExport)
	if err != nil || payload == nil {
		return nil, err
	}
	exports, err := parseExportSection(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("export section: %w", err)
	}
	return exports, nil
}

// findSection returns the payload of the first section with the given id,
// or nil when the module has none.
func findSection(data []byte, want byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("header: %w", io.ErrUnexpectedEOF)
	}
	if !bytes.Equal(data[:4], []byte{0x00, 0x61, 0x73, 0x6d}) {
		return nil, ErrInvalidMagic
	}
	if !bytes.Equal(data[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		return nil, ErrInvalidVersion
	}

	r := bytes.NewReader(data[8:])
	for {
		id, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("section header: %w", err)
		}
		size, err := ReadULEB128(r)
		if err != nil {
			return nil, fmt.Errorf("section size: %w", err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, fmt.Errorf("section %d: %w", id, io.ErrUnexpectedEOF)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		if id == want {
			return payload, nil
		}
	}
}

func parseExportSection(r *bytes.Reader) ([]Export, error) {
	count, err := ReadULEB128(r)
	if err != nil {
		return nil, err
	}
	if int64(count) > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	exports := make([]Export, count)
	for i := uint32(0); i < count; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if kind > ExternTag {
			return nil, fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := ReadULEB128(r)
		if err != nil {
			return nil, err
		}
		exports[i] = Export{Name: name, Kind: kind, Index: idx}
	}
	return exports, nil
}
