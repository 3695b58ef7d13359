// Package object opens ELF, Mach-O, and PE-COFF binaries behind one
// uniform view: container format, architecture, sections, and native
// symbols, plus virtual-address-to-bytes translation. Every reader in
// this package memory-maps its file read-only and keeps the mapping
// alive for the lifetime of the Object.
package object

import (
	"debug/dwarf"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/symbol"
)

// Format is the container format of an object file.
type Format int

const (
	FormatUnknown Format = iota
	FormatELF
	FormatMachO
	FormatPE
)

func (f Format) String() string {
	switch f {
	case FormatELF:
		return "ELF"
	case FormatMachO:
		return "Mach-O"
	case FormatPE:
		return "PE-COFF"
	default:
		return "unknown"
	}
}

// Bits is the address width of an object file.
type Bits int

const (
	Bits32 Bits = 32
	Bits64 Bits = 64
)

// Endian is the byte order of an object file.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// Arch is the target instruction set of an object file.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86
	ArchX86_64
	ArchARM
	ArchARM64
	ArchPowerPC
	ArchSPARC
)

func (a Arch) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86_64"
	case ArchARM:
		return "arm"
	case ArchARM64:
		return "aarch64"
	case ArchPowerPC:
		return "powerpc"
	case ArchSPARC:
		return "sparc"
	default:
		return "auto"
	}
}

// ParseArch maps a --arch flag value onto an Arch. "auto" and "" map to
// ArchUnknown, meaning "whatever the object file says".
func ParseArch(s string) Arch {
	switch s {
	case "x86":
		return ArchX86
	case "x86_64":
		return ArchX86_64
	case "arm":
		return ArchARM
	case "aarch64":
		return ArchARM64
	case "powerpc":
		return ArchPowerPC
	case "sparc":
		return ArchSPARC
	default:
		return ArchUnknown
	}
}

// Section describes one named range of bytes in an object file.
type Section struct {
	Name       string
	Address    uint64
	Size       uint64
	Offset     uint64
	FileSize   uint64
	Executable bool
	Readable   bool
	Writable   bool
	ZeroFill   bool
}

// contains reports whether vaddr falls inside the section's loaded range.
func (s Section) contains(vaddr, length uint64) bool {
	if s.Size == 0 {
		return false
	}
	end := s.Address + s.Size
	return vaddr >= s.Address && vaddr+length <= end
}

// DebugHint carries the companion-debug-info location conventions the
// object reader discovered while opening the file: a dSYM bundle path for
// Mach-O, or an RSDS CodeView record for PE.
type DebugHint struct {
	// DSYMPath is the resolved path to a companion dSYM bundle's DWARF
	// file, empty if none was found.
	DSYMPath string

	// PDBPath is the path recorded in the RSDS debug directory entry,
	// empty if the object carries no CodeView record.
	PDBPath string
	// PDBGUID is the hex-encoded GUID from the RSDS record.
	PDBGUID string
	// PDBAge is the age field from the RSDS record.
	PDBAge uint32
}

// Object is the uniform view every format-specific reader implements.
type Object interface {
	Format() Format
	Bits() Bits
	Endian() Endian
	Arch() Arch

	Sections() []Section
	ExecutableSections() []Section

	// NativeSymbols yields the object's own symbol table, independent of
	// any debug info.
	NativeSymbols() []symbol.Raw

	// BytesAt translates a virtual address to a file offset via the
	// containing loadable section and returns the requested slice. ok is
	// false if no section covers the whole range.
	BytesAt(vaddr, length uint64) (data []byte, ok bool)

	// DWARF returns the object's debug info, either embedded or loaded
	// from a companion bundle, and whether any was found.
	DWARF() (*dwarf.Data, bool)

	// DebugHint reports companion-debug-info locations discovered while
	// opening the object.
	DebugHint() DebugHint

	// Close releases the memory map and any companion file it opened.
	Close() error
}

// supportedArches is the set this build's disassembler facade can decode.
// Detecting an architecture outside this set is UNSUPPORTED_ARCH, not
// BAD_OBJECT: the container parsed fine, disassembly simply can't proceed.
var supportedArches = map[Arch]bool{
	ArchX86:     true,
	ArchX86_64:  true,
	ArchARM:     true,
	ArchARM64:   true,
	ArchPowerPC: true,
}

func requireSupportedArch(a Arch) error {
	if !supportedArches[a] {
		return errors.Errorf(errors.UnsupportedArch, errors.ArchNotBuiltIn, a)
	}
	return nil
}

// sectionFor returns the first section (in order) whose loaded range
// covers [vaddr, vaddr+length).
func sectionFor(sections []Section, vaddr, length uint64) (Section, bool) {
	for _, s := range sections {
		if s.contains(vaddr, length) {
			return s, true
		}
	}
	return Section{}, false
}

// validateSections checks that every section claiming file content (not
// zero-fill) actually fits within the mapped file, catching a truncated or
// corrupt section table before BytesAt ever has to fail silently on it.
func validateSections(sections []Section, fileLen uint64) error {
	for _, s := range sections {
		if s.ZeroFill {
			continue
		}
		if s.Offset+s.FileSize > fileLen {
			return errors.Errorf(errors.BadObject, errors.SectionOOB, s.Name)
		}
	}
	return nil
}
