package main

import (
	"os"
	"testing"

	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/test"
)

func TestParseArchDefaultsToAuto(t *testing.T) {
	a, err := parseArch("auto")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, a, object.ArchUnknown)

	a, err = parseArch("")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, a, object.ArchUnknown)
}

func TestParseArchRejectsUnknownValue(t *testing.T) {
	_, err := parseArch("nonsense")
	test.ExpectFailure(t, err)
}

func TestParseArchAcceptsKnownValue(t *testing.T) {
	a, err := parseArch("aarch64")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, a, object.ArchARM64)
}

func TestResolveColorAlwaysAndNeverIgnoreWriter(t *testing.T) {
	test.ExpectEquality(t, resolveColor("always", os.Stdout), true)
	test.ExpectEquality(t, resolveColor("never", os.Stdout), false)
}

func TestResolveColorAutoFalseForNonFile(t *testing.T) {
	var buf nopWriter
	test.ExpectEquality(t, resolveColor("auto", buf), false)
}

func TestArtifactExistsChecksDisk(t *testing.T) {
	test.ExpectEquality(t, artifactExists("/nonexistent/path/to/binary"), false)

	f, err := os.CreateTemp(t.TempDir(), "artifact")
	test.ExpectSuccess(t, err)
	f.Close()
	test.ExpectEquality(t, artifactExists(f.Name()), true)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
