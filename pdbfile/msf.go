// Package pdbfile is a hand-written reader for the Microsoft PDB v7
// container: the MSF block file, its stream directory, the DBI stream
// header, and the public/procedure symbol records in the global symbol
// stream. No PDB-parsing library exists in the reference corpus this
// package was grounded on, so it is decoded by hand in the same explicit,
// encoding/binary style the teacher uses for its own low-level binary
// formats (coprocessor/developer/dwarf/elf_shim.go, dwarf_frame_instructions.go).
package pdbfile

import (
	"encoding/binary"
	"os"

	"github.com/binspect/symasm/errors"
)

// msfSignature is the 32-byte magic every MSF 7.0 file begins with.
var msfSignature = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

// msfFile is the block-addressed container format underlying a PDB: a
// fixed block size, a stream directory mapping stream index to a list of
// blocks, and the blocks themselves.
type msfFile struct {
	blockSize uint32
	streams   [][]byte
}

// superblock mirrors the MSF 7.0 header, immediately following the
// 32-byte signature.
type superblock struct {
	BlockSize         uint32
	FreeBlockMapBlock uint32
	NumBlocks         uint32
	NumDirectoryBytes uint32
	Unknown           uint32
	BlockMapAddr      uint32
}

func readMSF(path string) (*msfFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf(errors.IO, errors.PDBReadFailed, err)
	}

	if len(data) < 32+24 || string(data[:len(msfSignature)]) != string(msfSignature) {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "not an MSF 7.0 file")
	}

	var sb superblock
	hdr := data[32:56]
	sb.BlockSize = binary.LittleEndian.Uint32(hdr[0:4])
	sb.FreeBlockMapBlock = binary.LittleEndian.Uint32(hdr[4:8])
	sb.NumBlocks = binary.LittleEndian.Uint32(hdr[8:12])
	sb.NumDirectoryBytes = binary.LittleEndian.Uint32(hdr[12:16])
	sb.Unknown = binary.LittleEndian.Uint32(hdr[16:20])
	sb.BlockMapAddr = binary.LittleEndian.Uint32(hdr[20:24])

	if sb.BlockSize == 0 {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "zero block size")
	}

	block := func(i uint32) ([]byte, bool) {
		start := uint64(i) * uint64(sb.BlockSize)
		end := start + uint64(sb.BlockSize)
		if end > uint64(len(data)) {
			return nil, false
		}
		return data[start:end], true
	}

	numDirBlocks := ceilDiv(sb.NumDirectoryBytes, sb.BlockSize)

	// The directory's own block numbers are themselves stored in one or
	// more "block map" blocks starting at BlockMapAddr. For the modest
	// stream counts a single-binary PDB carries, this fits in one block;
	// very large PDBs with a multi-block map are not handled.
	mapBlock, ok := block(sb.BlockMapAddr)
	if !ok {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "block map out of range")
	}

	dirBlockNumbers := make([]uint32, numDirBlocks)
	for i := range dirBlockNumbers {
		off := i * 4
		if off+4 > len(mapBlock) {
			return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "block map truncated")
		}
		dirBlockNumbers[i] = binary.LittleEndian.Uint32(mapBlock[off : off+4])
	}

	dir := make([]byte, 0, sb.NumDirectoryBytes)
	for _, bn := range dirBlockNumbers {
		b, ok := block(bn)
		if !ok {
			return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "directory block out of range")
		}
		dir = append(dir, b...)
	}
	dir = dir[:sb.NumDirectoryBytes]

	if len(dir) < 4 {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "empty stream directory")
	}
	numStreams := binary.LittleEndian.Uint32(dir[0:4])
	pos := 4

	sizes := make([]uint32, numStreams)
	for i := range sizes {
		if pos+4 > len(dir) {
			return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "stream size table truncated")
		}
		sizes[i] = binary.LittleEndian.Uint32(dir[pos : pos+4])
		pos += 4
	}

	streams := make([][]byte, numStreams)
	for i, size := range sizes {
		if size == 0xFFFFFFFF {
			// nil stream
			streams[i] = nil
			continue
		}
		nb := ceilDiv(size, sb.BlockSize)
		buf := make([]byte, 0, size)
		for j := uint32(0); j < nb; j++ {
			if pos+4 > len(dir) {
				return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "stream block list truncated")
			}
			bn := binary.LittleEndian.Uint32(dir[pos : pos+4])
			pos += 4
			b, ok := block(bn)
			if !ok {
				return nil, errors.Errorf(errors.BadDebugInfo, errors.PDBCorrupt, "stream block out of range")
			}
			buf = append(buf, b...)
		}
		if uint32(len(buf)) > size {
			buf = buf[:size]
		}
		streams[i] = buf
	}

	return &msfFile{blockSize: sb.BlockSize, streams: streams}, nil
}

func (f *msfFile) stream(i int) ([]byte, bool) {
	if i < 0 || i >= len(f.streams) {
		return nil, false
	}
	return f.streams[i], true
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}
