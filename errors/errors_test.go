package errors_test

import (
	"fmt"
	"testing"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/test"
)

func TestDuplicateErrors(t *testing.T) {
	e := errors.Errorf(errors.NoMatch, errors.NoCandidate, "foo")
	test.ExpectEquality(t, e.Error(), `no symbol matches "foo"`)

	// wrapping an error with the same leading "pattern: %v" collapses the
	// duplicate adjacent part
	g := errors.Errorf(errors.BadDebugInfo, errors.DWARFCorrupt, "foo")
	f := errors.Errorf(errors.BadDebugInfo, errors.DWARFCorrupt, g)
	test.ExpectEquality(t, f.Error(), `corrupt DWARF data: foo`)
}

func TestIsAndHas(t *testing.T) {
	e := errors.Errorf(errors.NoMatch, errors.NoCandidate, "foo")
	test.ExpectSuccess(t, errors.Is(e, errors.NoCandidate))
	test.ExpectFailure(t, errors.Has(e, errors.AmbiguousQuery))

	f := errors.Errorf(errors.AmbiguousMatch, errors.AmbiguousQuery, e)
	test.ExpectFailure(t, errors.Is(f, errors.NoCandidate))
	test.ExpectSuccess(t, errors.Is(f, errors.AmbiguousQuery))
	test.ExpectSuccess(t, errors.Has(f, errors.NoCandidate))
	test.ExpectSuccess(t, errors.Has(f, errors.AmbiguousQuery))

	test.ExpectSuccess(t, errors.IsAny(e))
	test.ExpectSuccess(t, errors.IsAny(f))
}

func TestKindOf(t *testing.T) {
	e := errors.Errorf(errors.BadObject, errors.BadMagic, "elf")
	test.ExpectEquality(t, errors.KindOf(e), errors.BadObject)

	plain := fmt.Errorf("plain error")
	test.ExpectEquality(t, errors.KindOf(plain), errors.Unknown)
}

func TestExitCodes(t *testing.T) {
	test.ExpectEquality(t, errors.NoMatch.ExitCode(), 1)
	test.ExpectEquality(t, errors.AmbiguousMatch.ExitCode(), 2)
	test.ExpectEquality(t, errors.ArtifactNotFound.ExitCode(), 3)
	test.ExpectEquality(t, errors.BadObject.ExitCode(), 4)
	test.ExpectEquality(t, errors.UnsupportedArch.ExitCode(), 4)
	test.ExpectEquality(t, errors.BadDebugInfo.ExitCode(), 4)
	test.ExpectEquality(t, errors.IO.ExitCode(), 5)
	test.ExpectEquality(t, errors.DecodeFailure.ExitCode(), 5)
	test.ExpectEquality(t, errors.Internal.ExitCode(), 5)
}

func TestPlainErrors(t *testing.T) {
	e := fmt.Errorf("plain test error")
	test.ExpectFailure(t, errors.IsAny(e))
	test.ExpectFailure(t, errors.Has(e, errors.NoCandidate))
}
