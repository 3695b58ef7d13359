package object

import (
	"debug/dwarf"
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/logger"
	"github.com/binspect/symasm/symbol"
)

// peObject is an Object backed by debug/pe. debug/pe does not expose the
// image debug directory, so the CodeView (RSDS) record pointing at a
// companion PDB is decoded by hand against the layout documented by
// saferwall/pe's debug.go (ImageDebugTypeCodeView, CVSignatureRSDS,
// CVInfoPDB70), which debug/pe has no equivalent for.
type peObject struct {
	file *pe.File
	m    mmap.MMap
	f    *closer

	sections []Section
	arch     Arch
	bits     Bits
	hint     DebugHint
}

const (
	imageDebugTypeCodeView = 2
	cvSignatureRSDS        = 0x53445352
)

func openPE(path string, m mmap.MMap, c *closer) (Object, error) {
	pf, err := pe.NewFile(newReaderAt(m))
	if err != nil {
		return nil, errors.Errorf(errors.BadObject, errors.Truncated, err)
	}

	o := &peObject{file: pf, m: m, f: c}

	switch pf.Machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		o.arch = ArchX86
		o.bits = Bits32
	case pe.IMAGE_FILE_MACHINE_AMD64:
		o.arch = ArchX86_64
		o.bits = Bits64
	case pe.IMAGE_FILE_MACHINE_ARM, pe.IMAGE_FILE_MACHINE_ARMNT:
		o.arch = ArchARM
		o.bits = Bits32
	case pe.IMAGE_FILE_MACHINE_ARM64:
		o.arch = ArchARM64
		o.bits = Bits64
	default:
		o.arch = ArchUnknown
	}

	if err := requireSupportedArch(o.arch); err != nil {
		return nil, err
	}

	for _, s := range pf.Sections {
		const (
			imageScnMemExecute = 0x20000000
			imageScnMemRead    = 0x40000000
			imageScnMemWrite   = 0x80000000
			imageScnCntUninit  = 0x00000080
		)
		o.sections = append(o.sections, Section{
			Name:       s.Name,
			Address:    uint64(s.VirtualAddress) + imageBase(pf),
			Size:       uint64(s.VirtualSize),
			Offset:     uint64(s.Offset),
			FileSize:   uint64(s.Size),
			Executable: s.Characteristics&imageScnMemExecute != 0,
			Readable:   s.Characteristics&imageScnMemRead != 0,
			Writable:   s.Characteristics&imageScnMemWrite != 0,
			ZeroFill:   s.Characteristics&imageScnCntUninit != 0,
		})
	}

	if err := validateSections(o.sections, uint64(len(m))); err != nil {
		return nil, err
	}

	o.hint = readCodeView(m, pf)
	if o.hint.PDBPath != "" {
		recorded := o.hint.PDBPath
		o.hint.PDBPath = resolvePDBPath(path, recorded)
		if o.hint.PDBPath == "" {
			logger.Logf(logger.Allow, "object", errors.PDBNotFound, recorded)
		}
	}

	return o, nil
}

func imageBase(pf *pe.File) uint64 {
	switch h := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		return uint64(h.ImageBase)
	case *pe.OptionalHeader64:
		return h.ImageBase
	}
	return 0
}

// readCodeView scans the PE debug directory for an RSDS CodeView record.
// The directory location/size live in the optional header's 7th data
// directory entry (IMAGE_DIRECTORY_ENTRY_DEBUG), which debug/pe parses into
// OptionalHeader.DataDirectory but does not further decode.
func readCodeView(m mmap.MMap, pf *pe.File) DebugHint {
	const debugDirectoryIndex = 6

	var rva, size uint32
	switch h := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if len(h.DataDirectory) <= debugDirectoryIndex {
			return DebugHint{}
		}
		rva = h.DataDirectory[debugDirectoryIndex].VirtualAddress
		size = h.DataDirectory[debugDirectoryIndex].Size
	case *pe.OptionalHeader64:
		if len(h.DataDirectory) <= debugDirectoryIndex {
			return DebugHint{}
		}
		rva = h.DataDirectory[debugDirectoryIndex].VirtualAddress
		size = h.DataDirectory[debugDirectoryIndex].Size
	default:
		return DebugHint{}
	}
	if rva == 0 || size == 0 {
		return DebugHint{}
	}

	off, ok := rvaToFileOffset(pf, rva)
	if !ok || off+size > uint32(len(m)) {
		return DebugHint{}
	}

	// IMAGE_DEBUG_DIRECTORY is 28 bytes; PointerToRawData is the last
	// uint32 field, at offset 24.
	const entrySize = 28
	for entryOff := off; entryOff+entrySize <= off+size; entryOff += entrySize {
		entry := m[entryOff : entryOff+entrySize]
		debugType := binary.LittleEndian.Uint32(entry[12:16])
		dataSize := binary.LittleEndian.Uint32(entry[16:20])
		pointerToRawData := binary.LittleEndian.Uint32(entry[24:28])

		if debugType != imageDebugTypeCodeView {
			continue
		}
		if uint64(pointerToRawData)+uint64(dataSize) > uint64(len(m)) || dataSize < 24 {
			continue
		}

		record := m[pointerToRawData : pointerToRawData+dataSize]
		sig := binary.LittleEndian.Uint32(record[0:4])
		if sig != cvSignatureRSDS {
			continue
		}

		guid := record[4:20]
		age := binary.LittleEndian.Uint32(record[20:24])
		name := nullTerminated(record[24:])

		return DebugHint{
			PDBPath: name,
			PDBGUID: formatGUID(guid),
			PDBAge:  age,
		}
	}

	return DebugHint{}
}

// formatGUID renders the 16-byte CodeView GUID as 32 upper-case hex digits
// with no separators (first three fields little-endian, remainder
// big-endian), matching saferwall/pe's GUID type field order.
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

func nullTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func rvaToFileOffset(pf *pe.File, rva uint32) (uint32, bool) {
	for _, s := range pf.Sections {
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+s.VirtualSize {
			return s.Offset + (rva - s.VirtualAddress), true
		}
	}
	return 0, false
}

// resolvePDBPath searches for the PDB first at the recorded location, then
// case-insensitively in the binary's own directory, per spec.
func resolvePDBPath(binPath, recorded string) string {
	if fileExists(recorded) {
		return recorded
	}
	dir := filepath.Dir(binPath)
	want := strings.ToLower(filepath.Base(recorded))
	candidate := filepath.Join(dir, filepath.Base(recorded))
	if fileExists(candidate) {
		return candidate
	}
	return findCaseInsensitive(dir, want)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func findCaseInsensitive(dir, wantLower string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if strings.ToLower(e.Name()) == wantLower {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

func (o *peObject) Format() Format { return FormatPE }
func (o *peObject) Bits() Bits     { return o.bits }
func (o *peObject) Endian() Endian { return LittleEndian }
func (o *peObject) Arch() Arch     { return o.arch }

func (o *peObject) Sections() []Section { return o.sections }

func (o *peObject) ExecutableSections() []Section {
	var out []Section
	for _, s := range o.sections {
		if s.Executable {
			out = append(out, s)
		}
	}
	return out
}

func (o *peObject) NativeSymbols() []symbol.Raw {
	var out []symbol.Raw
	for _, s := range o.file.COFFSymbols {
		name, err := s.FullName(o.file.StringTable)
		if err != nil || name == "" {
			continue
		}
		if int(s.SectionNumber) < 1 || int(s.SectionNumber) > len(o.sections) {
			continue
		}
		sec := o.sections[s.SectionNumber-1]
		out = append(out, symbol.Raw{
			RawName:      name,
			Address:      sec.Address + uint64(s.Value),
			Source:       symbol.SourceObject,
			SectionIndex: int(s.SectionNumber) - 1,
		})
	}
	return out
}

func (o *peObject) BytesAt(vaddr, length uint64) ([]byte, bool) {
	sec, ok := sectionFor(o.sections, vaddr, length)
	if !ok || sec.ZeroFill {
		return nil, false
	}
	off := sec.Offset + (vaddr - sec.Address)
	if off+length > uint64(len(o.m)) {
		return nil, false
	}
	return o.m[off : off+length], true
}

func (o *peObject) DWARF() (*dwarf.Data, bool) {
	d, err := o.file.DWARF()
	if err != nil {
		return nil, false
	}
	return d, true
}

func (o *peObject) DebugHint() DebugHint { return o.hint }

func (o *peObject) Close() error {
	return o.f.Close()
}
