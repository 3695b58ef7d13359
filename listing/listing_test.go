package listing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/binspect/symasm/disasm"
	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/test"
)

func TestRenderAnnotatesInFunctionBranch(t *testing.T) {
	fn := Function{Name: "example::run", Address: 0x1000, Size: 0x20}
	insns := []disasm.Instruction{
		{Address: 0x1000, Mnemonic: "push", OpString: "rbp"},
		{Address: 0x1001, Mnemonic: "jmp", OpString: "0x1010", BranchTarget: 0x1010, HasBranchTarget: true},
		{Address: 0x1010, Mnemonic: "pop", OpString: "rbp"},
	}

	var buf bytes.Buffer
	Render(&buf, fn, insns, nil, Options{})

	out := buf.String()
	test.ExpectSuccess(t, containsAll(out, "example::run+0x10"))
}

func TestRenderSkipsAnnotationForOutOfFunctionTarget(t *testing.T) {
	fn := Function{Name: "example::run", Address: 0x1000, Size: 0x10}
	insns := []disasm.Instruction{
		{Address: 0x1000, Mnemonic: "call", OpString: "0x9000", BranchTarget: 0x9000, HasBranchTarget: true},
	}

	var buf bytes.Buffer
	Render(&buf, fn, insns, nil, Options{})

	if strings.Contains(buf.String(), "example::run+") {
		t.Fatalf("expected no in-function annotation, got %q", buf.String())
	}
}

func TestRenderEmitsDecodeFailureLine(t *testing.T) {
	fn := Function{Name: "example::run", Address: 0x1000, Size: 0x10}
	insns := []disasm.Instruction{
		{Address: 0x1000, Mnemonic: "push", OpString: "rbp"},
	}
	decodeErr := errors.Errorf(errors.DecodeFailure, errors.DecodeFailedAt, uint64(0x1001))

	var buf bytes.Buffer
	Render(&buf, fn, insns, decodeErr, Options{})

	test.ExpectSuccess(t, containsAll(buf.String(), "0x1001"))
}

func TestRenderColorWrapsColumnsWithoutChangingContent(t *testing.T) {
	fn := Function{Name: "example::run", Address: 0x1000, Size: 0x10}
	insns := []disasm.Instruction{
		{Address: 0x1000, Mnemonic: "push", OpString: "rbp"},
	}

	var plain, colored bytes.Buffer
	Render(&plain, fn, insns, nil, Options{Color: false})
	Render(&colored, fn, insns, nil, Options{Color: true})

	if plain.String() == colored.String() {
		t.Fatalf("expected colored output to differ from plain output")
	}
	test.ExpectSuccess(t, containsAll(colored.String(), "push"))
}

func TestPadLeavesLongStringUntouched(t *testing.T) {
	test.ExpectEquality(t, pad("abcdef", 3), "abcdef")
	test.ExpectEquality(t, pad("ab", 5), "ab   ")
}

func containsAll(haystack string, needle string) error {
	if strings.Contains(haystack, needle) {
		return nil
	}
	return errors.Errorf(errors.NoMatch, errors.NoCandidate, needle)
}
