// Package test provides small assertion helpers used throughout this
// repository's _test.go files, in place of a third-party assertion library.
package test

import (
	"fmt"
	"math"
	"reflect"
	"testing"
)

// ExpectSuccess fails the test unless v represents success: true, a nil
// error, or literal nil.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	if !isSuccess(v) {
		t.Errorf("expected success, got %v", v)
	}
}

// ExpectFailure fails the test unless v represents failure: false or a
// non-nil error.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	if isSuccess(v) {
		t.Errorf("expected failure, got %v", v)
	}
}

func isSuccess(v interface{}) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case bool:
		return x
	case error:
		return x == nil
	}
	return false
}

// ExpectEquality fails the test unless got and want are deeply equal.
func ExpectEquality(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}

// Equate is an alias for ExpectEquality, kept for callers that predate the
// Expect* naming convention.
func Equate(t *testing.T, got, want interface{}) {
	t.Helper()
	ExpectEquality(t, got, want)
}

// ExpectInequality fails the test if got and want are deeply equal.
func ExpectInequality(t *testing.T, got, want interface{}) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		t.Errorf("expected inequality, both values are %#v", got)
	}
}

// ExpectApproximate fails the test unless got and want are within
// tolerance of one another, expressed as a fraction of want.
func ExpectApproximate(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	if want == 0 {
		if math.Abs(got) > tolerance {
			t.Errorf("expected %v to be within %v of %v", got, tolerance, want)
		}
		return
	}
	if math.Abs(got-want)/math.Abs(want) > tolerance {
		t.Errorf("expected %v to be within %v%% of %v", got, tolerance*100, want)
	}
}

// ExpectedSuccess and ExpectedFailure are older spellings kept for
// compatibility with callers written against the earlier API.
func ExpectedSuccess(t *testing.T, v interface{}) { t.Helper(); ExpectSuccess(t, v) }
func ExpectedFailure(t *testing.T, v interface{}) { t.Helper(); ExpectFailure(t, v) }

// Fatalf is a thin wrapper kept for symmetry with the expectation helpers
// above, for assertions that don't fit the got/want shape.
func Fatalf(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	t.Fatal(fmt.Sprintf(format, args...))
}
