package pdbfile

import (
	"encoding/binary"
	"testing"

	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/symbol"
	"github.com/binspect/symasm/test"
)

func TestParsePub32(t *testing.T) {
	// Flags(4) Offset(4) Segment(2) Name(nul-terminated)
	body := make([]byte, 11)
	binary.LittleEndian.PutUint32(body[4:8], 0x20)
	binary.LittleEndian.PutUint16(body[8:10], 1)
	body = append(body[:10], []byte("my_symbol\x00")...)

	sections := []object.Section{{Address: 0x1000}}
	sym, ok := parsePub32(body, sections)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, sym.RawName, "my_symbol")
	test.ExpectEquality(t, sym.Address, uint64(0x1020))
	test.ExpectEquality(t, sym.Source, symbol.SourcePDB)
}

func TestParseProc32(t *testing.T) {
	body := make([]byte, 35)
	binary.LittleEndian.PutUint32(body[12:16], 0x66)      // CodeSize
	binary.LittleEndian.PutUint32(body[28:32], 0x120)     // Offset
	binary.LittleEndian.PutUint16(body[32:34], 1)         // Segment
	body = append(body[:35], []byte("len_utf8\x00")...)

	sections := []object.Section{{Address: 0xc4000}}
	sym, ok := parseProc32(body, sections)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, sym.RawName, "len_utf8")
	test.ExpectEquality(t, sym.Address, uint64(0xc4120))
	test.ExpectEquality(t, sym.Size, uint64(0x66))
}

func TestSegmentToBaseOutOfRange(t *testing.T) {
	_, ok := segmentToBase(nil, 5)
	test.ExpectFailure(t, ok)
}
