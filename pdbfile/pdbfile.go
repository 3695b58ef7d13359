package pdbfile

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/symbol"
)

const (
	streamPDBInfo = 1
	streamDBI     = 3
)

// PDB is an open companion debug file. GUIDMismatch records whether the
// binary's RSDS record disagreed with this file's own identity; callers
// should emit a warning and keep going rather than fail the whole
// pipeline, per spec.
type PDB struct {
	msf          *msfFile
	Age          uint32
	GUID         string
	GUIDMismatch bool
}

// Open reads the PDB at path and compares its identity against the GUID
// and age recorded in the binary's CodeView debug directory entry. A
// mismatch does not fail the open; it is recorded on GUIDMismatch for the
// caller to warn about and skip PDB symbols accordingly.
func Open(path string, expectGUID string, expectAge uint32) (*PDB, error) {
	msf, err := readMSF(path)
	if err != nil {
		return nil, err
	}

	info, ok := msf.stream(streamPDBInfo)
	// Version(4) Signature(4) Age(4) GUID(16)
	if !ok || len(info) < 28 {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "missing PDB info stream")
	}

	age := binary.LittleEndian.Uint32(info[8:12])
	guid := formatGUID(info[12:28])

	p := &PDB{msf: msf, Age: age, GUID: guid}
	if expectGUID != "" {
		p.GUIDMismatch = !strings.EqualFold(guid, expectGUID) || age != expectAge
	}

	return p, nil
}

// dbiHeader mirrors the fixed 64-byte DBI stream header (DbiStreamHeader
// in Microsoft's own PDB documentation and in llvm's DbiStream.h).
type dbiHeader struct {
	SymRecordStream uint16
}

func readDBIHeader(msf *msfFile) (dbiHeader, error) {
	var h dbiHeader
	dbi, ok := msf.stream(streamDBI)
	if !ok || len(dbi) < 64 {
		return h, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "missing or truncated DBI stream")
	}
	h.SymRecordStream = binary.LittleEndian.Uint16(dbi[20:22])
	return h, nil
}

// CodeView symbol record kinds this reader recognises.
const (
	symPUB32   = 0x110E
	symGPROC32 = 0x1110
	symLPROC32 = 0x1111
)

// Symbols enumerates public and procedure-start records from the global
// symbol stream, translating each record's (segment, offset) into a
// virtual address via sections — the segment field is a 1-based index
// into the image's section table, the same convention the COFF symbol
// table uses.
func (p *PDB) Symbols(sections []object.Section) ([]symbol.Raw, error) {
	h, err := readDBIHeader(p.msf)
	if err != nil {
		return nil, err
	}

	records, ok := p.msf.stream(int(h.SymRecordStream))
	if !ok {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "missing symbol record stream")
	}

	var out []symbol.Raw
	pos := 0
	for pos+4 <= len(records) {
		length := int(binary.LittleEndian.Uint16(records[pos : pos+2]))
		if length < 2 || pos+2+length > len(records) {
			break
		}
		kind := binary.LittleEndian.Uint16(records[pos+2 : pos+4])
		body := records[pos+4 : pos+2+length]

		switch kind {
		case symPUB32:
			if sym, ok := parsePub32(body, sections); ok {
				out = append(out, sym)
			}
		case symGPROC32, symLPROC32:
			if sym, ok := parseProc32(body, sections); ok {
				out = append(out, sym)
			}
		}

		pos += 2 + length
	}

	return out, nil
}

func segmentToBase(sections []object.Section, segment uint16) (uint64, bool) {
	idx := int(segment) - 1
	if idx < 0 || idx >= len(sections) {
		return 0, false
	}
	return sections[idx].Address, true
}

func parsePub32(body []byte, sections []object.Section) (symbol.Raw, bool) {
	if len(body) < 11 {
		return symbol.Raw{}, false
	}
	offset := binary.LittleEndian.Uint32(body[4:8])
	segment := binary.LittleEndian.Uint16(body[8:10])
	name := nullTerminated(body[10:])

	base, ok := segmentToBase(sections, segment)
	if !ok || name == "" {
		return symbol.Raw{}, false
	}

	return symbol.Raw{
		RawName: name,
		Address: base + uint64(offset),
		Source:  symbol.SourcePDB,
	}, true
}

func parseProc32(body []byte, sections []object.Section) (symbol.Raw, bool) {
	// Parent(4) End(4) Next(4) CodeSize(4) DbgStart(4) DbgEnd(4)
	// TypeIndex(4) Offset(4) Segment(2) Flags(1) Name(var)
	const fixed = 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 2 + 1
	if len(body) < fixed+1 {
		return symbol.Raw{}, false
	}
	codeSize := binary.LittleEndian.Uint32(body[12:16])
	offset := binary.LittleEndian.Uint32(body[28:32])
	segment := binary.LittleEndian.Uint16(body[32:34])
	name := nullTerminated(body[fixed:])

	base, ok := segmentToBase(sections, segment)
	if !ok || name == "" {
		return symbol.Raw{}, false
	}

	return symbol.Raw{
		RawName: name,
		Address: base + uint64(offset),
		Size:    uint64(codeSize),
		HasSize: codeSize > 0,
		Source:  symbol.SourcePDB,
	}, true
}

func nullTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func formatGUID(b []byte) string {
	if len(b) < 16 {
		return hex.EncodeToString(b)
	}
	data1 := binary.LittleEndian.Uint32(b[0:4])
	data2 := binary.LittleEndian.Uint16(b[4:6])
	data3 := binary.LittleEndian.Uint16(b[6:8])
	return strings.ToUpper(hex.EncodeToString([]byte{
		byte(data1 >> 24), byte(data1 >> 16), byte(data1 >> 8), byte(data1),
		byte(data2 >> 8), byte(data2),
		byte(data3 >> 8), byte(data3),
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15],
	}))
}
