package object_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/test"
)

func TestUnrecognisedMagicIsBadObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-object")
	test.ExpectSuccess(t, os.WriteFile(path, []byte("just some text, not a binary"), 0o644))

	_, err := object.Open(path, object.ArchUnknown)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.BadObject)
}

func TestTruncatedELFMagicIsBadObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.elf")
	// correct four-byte ELF magic, followed by nothing resembling a real
	// header: the format-specific reader should fail, not panic.
	test.ExpectSuccess(t, os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F'}, 0o644))

	_, err := object.Open(path, object.ArchUnknown)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.BadObject)
}

func TestMissingFileIsIOError(t *testing.T) {
	_, err := object.Open(filepath.Join(t.TempDir(), "does-not-exist"), object.ArchUnknown)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.IO)
}

func TestArchStringRoundTrip(t *testing.T) {
	for _, s := range []string{"x86", "x86_64", "arm", "aarch64", "powerpc", "sparc"} {
		a := object.ParseArch(s)
		test.ExpectEquality(t, a.String(), s)
	}
}
