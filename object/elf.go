package object

import (
	"debug/dwarf"
	"debug/elf"

	"github.com/edsrzf/mmap-go"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/symbol"
)

// elfObject is an Object backed by debug/elf over a memory-mapped file.
// Modelled on the teacher's elfShim (coprocessor/developer/dwarf/elf_shim.go),
// which wraps the same two stdlib packages for the same purpose: expose a
// uniform reader surface over an *elf.File without re-implementing ELF
// parsing by hand.
type elfObject struct {
	file *elf.File
	m    mmap.MMap
	f    *closer

	sections []Section
	arch     Arch
	bits     Bits
	endian   Endian
}

func openELF(path string, m mmap.MMap, f *closer) (Object, error) {
	ef, err := elf.NewFile(newReaderAt(m))
	if err != nil {
		return nil, errors.Errorf(errors.BadObject, errors.Truncated, err)
	}

	o := &elfObject{file: ef, m: m, f: f}

	switch ef.Class {
	case elf.ELFCLASS64:
		o.bits = Bits64
	default:
		o.bits = Bits32
	}

	if ef.Data == elf.ELFDATA2MSB {
		o.endian = BigEndian
	} else {
		o.endian = LittleEndian
	}

	switch ef.Machine {
	case elf.EM_386:
		o.arch = ArchX86
	case elf.EM_X86_64:
		o.arch = ArchX86_64
	case elf.EM_ARM:
		o.arch = ArchARM
	case elf.EM_AARCH64:
		o.arch = ArchARM64
	case elf.EM_PPC, elf.EM_PPC64:
		o.arch = ArchPowerPC
	case elf.EM_SPARC, elf.EM_SPARC32PLUS, elf.EM_SPARCV9:
		o.arch = ArchSPARC
	default:
		o.arch = ArchUnknown
	}

	if err := requireSupportedArch(o.arch); err != nil {
		return nil, err
	}

	for _, s := range ef.Sections {
		o.sections = append(o.sections, Section{
			Name:       s.Name,
			Address:    s.Addr,
			Size:       s.Size,
			Offset:     s.Offset,
			FileSize:   s.FileSize,
			Executable: s.Flags&elf.SHF_EXECINSTR != 0,
			Writable:   s.Flags&elf.SHF_WRITE != 0,
			Readable:   s.Type != elf.SHT_NOBITS || s.Flags&elf.SHF_ALLOC != 0,
			ZeroFill:   s.Type == elf.SHT_NOBITS,
		})
	}

	if err := validateSections(o.sections, uint64(len(m))); err != nil {
		return nil, err
	}

	return o, nil
}

func (o *elfObject) Format() Format { return FormatELF }
func (o *elfObject) Bits() Bits     { return o.bits }
func (o *elfObject) Endian() Endian { return o.endian }
func (o *elfObject) Arch() Arch     { return o.arch }

func (o *elfObject) Sections() []Section { return o.sections }

func (o *elfObject) ExecutableSections() []Section {
	var out []Section
	for _, s := range o.sections {
		if s.Executable {
			out = append(out, s)
		}
	}
	return out
}

func (o *elfObject) NativeSymbols() []symbol.Raw {
	var out []symbol.Raw

	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
				continue
			}
			out = append(out, symbol.Raw{
				RawName:      s.Name,
				Address:      s.Value,
				Size:         s.Size,
				HasSize:      s.Size > 0,
				Source:       symbol.SourceObject,
				SectionIndex: int(s.Section),
			})
		}
	}

	if syms, err := o.file.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := o.file.DynamicSymbols(); err == nil {
		add(syms)
	}

	return out
}

func (o *elfObject) BytesAt(vaddr, length uint64) ([]byte, bool) {
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

func (o *elfObject) DWARF() (*dwarf.Data, bool) {
	d, err := o.file.DWARF()
	if err != nil {
		return nil, false
	}
	return d, true
}

func (o *elfObject) DebugHint() DebugHint { return DebugHint{} }

func (o *elfObject) Close() error {
	return o.f.Close()
}
