package object

import (
	"debug/dwarf"
	"debug/macho"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/logger"
	"github.com/binspect/symasm/symbol"
)

// machoObject is an Object backed by debug/macho. Fat binaries are split by
// debug/macho.NewFatFile and the slice matching archOverride (or, absent an
// override, the first slice whose architecture this build supports) is
// selected; the grounding for dSYM
// bundle discovery follows the path convention documented by
// github.com/blacktop/go-macho and exercised the way zhyee/atos locates a
// companion dSYM for symbolication.
type machoObject struct {
	file *macho.File
	m    mmap.MMap
	f    *closer

	sections  []Section
	arch      Arch
	bits      Bits
	endian    Endian
	dwarfData *dwarf.Data
	dsymPath  string

	// sliceOffset is this object's byte offset within m: zero for a thin
	// Mach-O, or the selected slice's FatArchHeader.Offset for a fat
	// binary. debug/macho reports section offsets relative to the start
	// of the slice, not the fat file, so BytesAt must add this back in.
	sliceOffset uint64
}

func openMachO(path string, m mmap.MMap, c *closer, archOverride Arch) (Object, error) {
	mf, sliceOffset, err := openMachOSlice(path, m, archOverride)
	if err != nil {
		return nil, err
	}

	o := &machoObject{file: mf, m: m, f: c, sliceOffset: sliceOffset}

	if mf.Magic == macho.Magic64 {
		o.bits = Bits64
	} else {
		o.bits = Bits32
	}

	if mf.ByteOrder.String() == "BigEndian" {
		o.endian = BigEndian
	} else {
		o.endian = LittleEndian
	}

	switch mf.Cpu {
	case macho.Cpu386:
		o.arch = ArchX86
	case macho.CpuAmd64:
		o.arch = ArchX86_64
	case macho.CpuArm:
		o.arch = ArchARM
	case macho.CpuArm64:
		o.arch = ArchARM64
	case macho.CpuPpc, macho.CpuPpc64:
		o.arch = ArchPowerPC
	default:
		o.arch = ArchUnknown
	}

	if err := requireSupportedArch(o.arch); err != nil {
		return nil, err
	}

	for _, s := range mf.Sections {
		flags := s.Flags
		const sectionTypeZeroFill = 0x1
		o.sections = append(o.sections, Section{
			Name:       s.Name,
			Address:    s.Addr,
			Size:       s.Size,
			Offset:     uint64(s.Offset),
			FileSize:   s.Size,
			Executable: flags&0x80000400 != 0, // S_ATTR_SOME_INSTRUCTIONS | S_ATTR_PURE_INSTRUCTIONS
			Readable:   true,
			Writable:   flags&sectionTypeZeroFill == 0,
			ZeroFill:   flags&sectionTypeZeroFill != 0,
		})
	}

	if err := validateSections(o.sections, uint64(len(m))-o.sliceOffset); err != nil {
		return nil, err
	}

	if d, err := mf.DWARF(); err == nil {
		o.dwarfData = d
	} else {
		o.dsymPath = findDSYM(path)
		if o.dsymPath != "" {
			if dm, err := macho.Open(o.dsymPath); err == nil {
				defer dm.Close()
				if d, err := dm.DWARF(); err == nil {
					o.dwarfData = d
				}
			}
		}
		if o.dwarfData == nil {
			logger.Logf(logger.Allow, "object", errors.DSYMNotFound, path)
		}
	}

	return o, nil
}

// openMachOSlice opens path as either a thin Mach-O or, if it's a fat
// binary, the slice selected by archOverride. An override with no matching
// slice is FatArchNotFound; without an override the first slice whose
// architecture this build supports is taken, or the first slice if none
// is. The returned offset is the slice's byte offset within m, zero for a
// thin Mach-O.
func openMachOSlice(path string, m mmap.MMap, archOverride Arch) (*macho.File, uint64, error) {
	if mf, err := macho.NewFile(newReaderAt(m)); err == nil {
		return mf, 0, nil
	}

	fat, err := macho.NewFatFile(newReaderAt(m))
	if err != nil {
		return nil, 0, errors.Errorf(errors.BadObject, errors.Truncated, err)
	}
	if len(fat.Arches) == 0 {
		return nil, 0, errors.Errorf(errors.BadObject, errors.Truncated, "fat binary has no slices")
	}

	if archOverride != ArchUnknown {
		for _, a := range fat.Arches {
			if machoCpuToArch(a.Cpu) == archOverride {
				return a.File, uint64(a.Offset), nil
			}
		}
		return nil, 0, errors.Errorf(errors.BadObject, errors.FatArchNotFound, archOverride)
	}

	for _, a := range fat.Arches {
		if supportedArches[machoCpuToArch(a.Cpu)] {
			return a.File, uint64(a.Offset), nil
		}
	}
	return fat.Arches[0].File, uint64(fat.Arches[0].Offset), nil
}

func machoCpuToArch(cpu macho.Cpu) Arch {
	switch cpu {
	case macho.Cpu386:
		return ArchX86
	case macho.CpuAmd64:
		return ArchX86_64
	case macho.CpuArm:
		return ArchARM
	case macho.CpuArm64:
		return ArchARM64
	case macho.CpuPpc, macho.CpuPpc64:
		return ArchPowerPC
	default:
		return ArchUnknown
	}
}

// findDSYM looks for a companion dSYM bundle next to bin, by the standard
// convention "<bin>.dSYM/Contents/Resources/DWARF/<stem>".
func findDSYM(bin string) string {
	candidate := filepath.Join(bin+".dSYM", "Contents", "Resources", "DWARF", filepath.Base(bin))
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	dir := filepath.Dir(bin)
	base := filepath.Base(bin)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".dSYM") {
			continue
		}
		candidate = filepath.Join(dir, e.Name(), "Contents", "Resources", "DWARF", base)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (o *machoObject) Format() Format { return FormatMachO }
func (o *machoObject) Bits() Bits     { return o.bits }
func (o *machoObject) Endian() Endian { return o.endian }
func (o *machoObject) Arch() Arch     { return o.arch }

func (o *machoObject) Sections() []Section { return o.sections }

func (o *machoObject) ExecutableSections() []Section {
	var out []Section
	for _, s := range o.sections {
		if s.Executable {
			out = append(out, s)
		}
	}
	return out
}

func (o *machoObject) NativeSymbols() []symbol.Raw {
	var out []symbol.Raw
	if o.file.Symtab == nil {
		return out
	}
	for _, s := range o.file.Symtab.Syms {
		const stabMask = 0xe0
		if s.Type&stabMask != 0 {
			continue
		}
		if s.Value == 0 {
			continue
		}
		out = append(out, symbol.Raw{
			RawName:      s.Name,
			Address:      s.Value,
			Source:       symbol.SourceObject,
			SectionIndex: int(s.Sect),
		})
	}
	return out
}

func (o *machoObject) BytesAt(vaddr, length uint64) ([]byte, bool) {
	sec, ok := sectionFor(o.sections, vaddr, length)
	if !ok || sec.ZeroFill {
		return nil, false
	}
	off := o.sliceOffset + sec.Offset + (vaddr - sec.Address)
	if off+length > uint64(len(o.m)) {
		return nil, false
	}
	return o.m[off : off+length], true
}

func (o *machoObject) DWARF() (*dwarf.Data, bool) {
	if o.dwarfData == nil {
		return nil, false
	}
	return o.dwarfData, true
}

func (o *machoObject) DebugHint() DebugHint {
	return DebugHint{DSYMPath: o.dsymPath}
}

func (o *machoObject) Close() error {
	return o.f.Close()
}
