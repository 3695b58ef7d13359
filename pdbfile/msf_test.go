package pdbfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/binspect/symasm/test"
)

// buildTestMSF hand-assembles a minimal MSF 7.0 file with two streams, to
// exercise readMSF without needing a real compiler-produced PDB: header
// block, one directory block, one block-map block, then one data block per
// stream.
func buildTestMSF(t *testing.T) string {
	t.Helper()

	const blockSize = 64
	buf := make([]byte, blockSize*5)

	// block 0: signature + superblock
	copy(buf[0:], msfSignature)
	putSuperblock := buf[32:56]
	binary.LittleEndian.PutUint32(putSuperblock[0:4], blockSize)  // BlockSize
	binary.LittleEndian.PutUint32(putSuperblock[4:8], 1)          // FreeBlockMapBlock
	binary.LittleEndian.PutUint32(putSuperblock[8:12], 5)         // NumBlocks
	binary.LittleEndian.PutUint32(putSuperblock[12:16], 20)       // NumDirectoryBytes
	binary.LittleEndian.PutUint32(putSuperblock[16:20], 0)        // Unknown
	binary.LittleEndian.PutUint32(putSuperblock[20:24], 2)        // BlockMapAddr

	// block 1: directory content (20 bytes): numStreams, sizes[2], block lists
	dir := buf[blockSize : blockSize+20]
	binary.LittleEndian.PutUint32(dir[0:4], 2)  // numStreams
	binary.LittleEndian.PutUint32(dir[4:8], 5)  // stream0 size ("hello")
	binary.LittleEndian.PutUint32(dir[8:12], 6) // stream1 size ("world!")
	binary.LittleEndian.PutUint32(dir[12:16], 3) // stream0 block list: [3]
	binary.LittleEndian.PutUint32(dir[16:20], 4) // stream1 block list: [4]

	// block 2: block map, listing the directory's own block numbers ([1])
	blockMap := buf[blockSize*2 : blockSize*2+4]
	binary.LittleEndian.PutUint32(blockMap, 1)

	// block 3: stream 0 data
	copy(buf[blockSize*3:], []byte("hello"))

	// block 4: stream 1 data
	copy(buf[blockSize*4:], []byte("world!"))

	dir2 := t.TempDir()
	path := filepath.Join(dir2, "test.pdb")
	test.ExpectSuccess(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestReadMSFRecoversStreams(t *testing.T) {
	path := buildTestMSF(t)

	msf, err := readMSF(path)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(msf.streams), 2)

	s0, ok := msf.stream(0)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, string(s0), "hello")

	s1, ok := msf.stream(1)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, string(s1), "world!")
}

func TestReadMSFRejectsBadSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pdb")
	test.ExpectSuccess(t, os.WriteFile(path, []byte("not a pdb file at all, but long enough"), 0o644))

	_, err := readMSF(path)
	test.ExpectFailure(t, err)
}
