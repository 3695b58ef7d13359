package object

import (
	"bytes"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/binspect/symasm/errors"
)

// closer owns the file handle backing a memory map and guarantees both the
// map and the descriptor are released together, on every exit path.
type closer struct {
	file *os.File
	m    mmap.MMap
}

func (c *closer) Close() error {
	var first error
	if c.m != nil {
		if err := c.m.Unmap(); err != nil && first == nil {
			first = err
		}
	}
	if err := c.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

func newReaderAt(m mmap.MMap) io.ReaderAt {
	return bytes.NewReader(m)
}

// Open memory-maps path read-only and dispatches to the format-specific
// reader selected by the file's leading bytes. archOverride forces slice
// selection for fat Mach-O binaries; it is ignored by single-arch formats.
func Open(path string, archOverride Arch) (Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf(errors.IO, errors.MmapFailed, err)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Errorf(errors.IO, errors.MmapFailed, err)
	}

	c := &closer{file: f, m: m}

	if len(m) < 4 {
		c.Close()
		return nil, errors.Errorf(errors.BadObject, errors.Truncated, io.ErrUnexpectedEOF)
	}

	switch magic(m) {
	case formatELF:
		obj, err := openELF(path, m, c)
		if err != nil {
			c.Close()
		}
		return obj, err
	case formatMachO:
		obj, err := openMachO(path, m, c, archOverride)
		if err != nil {
			c.Close()
		}
		return obj, err
	case formatPE:
		obj, err := openPE(path, m, c)
		if err != nil {
			c.Close()
		}
		return obj, err
	default:
		c.Close()
		return nil, errors.Errorf(errors.BadObject, errors.BadMagic, path)
	}
}

type sniffedFormat int

const (
	formatNone sniffedFormat = iota
	formatELF
	formatMachO
	formatPE
)

// magic classifies the leading bytes of an object file. Mach-O's several
// magic numbers (32/64-bit, both endians, fat) are all recognised; PE is
// recognised by the MZ stub, which every PE-COFF image carries even though
// the NT header lives further in.
func magic(b []byte) sniffedFormat {
	if len(b) >= 4 && b[0] == 0x7f && b[1] == 'E' && b[2] == 'L' && b[3] == 'F' {
		return formatELF
	}

	machoMagics := [][4]byte{
		{0xfe, 0xed, 0xfa, 0xce}, // 32-bit big endian
		{0xce, 0xfa, 0xed, 0xfe}, // 32-bit little endian
		{0xfe, 0xed, 0xfa, 0xcf}, // 64-bit big endian
		{0xcf, 0xfa, 0xed, 0xfe}, // 64-bit little endian
		{0xca, 0xfe, 0xba, 0xbe}, // fat, big endian
		{0xbe, 0xba, 0xfe, 0xca}, // fat, little endian
	}
	if len(b) >= 4 {
		for _, mg := range machoMagics {
			if b[0] == mg[0] && b[1] == mg[1] && b[2] == mg[2] && b[3] == mg[3] {
				return formatMachO
			}
		}
	}

	if len(b) >= 2 && b[0] == 'M' && b[1] == 'Z' {
		return formatPE
	}

	return formatNone
}
