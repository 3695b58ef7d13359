// Package listing renders a decoded function as a column-aligned, optionally
// coloured instruction listing. The two-pass structure (scan for branch
// targets, then render with widths computed from the widest column member)
// is modelled directly on the teacher's disassembly/display package
// (columns.go's Widths/Fmt/Update) and disassembly/format_result.go's
// one-Entry-per-instruction shape.
package listing

import (
	"fmt"
	"io"
	"strings"

	"github.com/binspect/symasm/disasm"
	"github.com/binspect/symasm/listing/ansi"
)

// Function describes the symbol a listing is being rendered for, so
// branch targets landing inside it can be annotated by name.
type Function struct {
	Name    string
	Address uint64
	Size    uint64
}

// entry is one rendered line's fields, built once per instruction in the
// render pass.
type entry struct {
	address  string
	mnemonic string
	operand  string
	comment  string
}

// widths tracks the widest member of each column, updated as entries are
// built, mirroring display.Columns.Update.
type widths struct {
	address  int
	mnemonic int
	operand  int
}

func (w *widths) update(e entry) {
	if len(e.address) > w.address {
		w.address = len(e.address)
	}
	if len(e.mnemonic) > w.mnemonic {
		w.mnemonic = len(e.mnemonic)
	}
	if len(e.operand) > w.operand {
		w.operand = len(e.operand)
	}
}

// Options controls rendering.
type Options struct {
	// Color enables ANSI styling. Callers are responsible for resolving
	// --color auto|always|never against whether stdout is a TTY before
	// setting this.
	Color bool
}

// Render writes one line per instruction to w: address in hex, mnemonic,
// operand text, and — for a branch operand targeting inside fn — an
// inline "# 0x<target>" comment, naming the target as "fn+0x<offset>"
// when it lands on a decoded instruction boundary.
func Render(w io.Writer, fn Function, insns []disasm.Instruction, decodeErr error, opts Options) {
	boundaries := make(map[uint64]bool, len(insns))
	for _, in := range insns {
		boundaries[in.Address] = true
	}

	entries := make([]entry, len(insns))
	var ws widths
	for i, in := range insns {
		e := entry{
			address:  fmt.Sprintf("%x", in.Address),
			mnemonic: in.Mnemonic,
			operand:  in.OpString,
		}
		if target, ok := branchAnnotation(in, fn, boundaries); ok {
			e.comment = target
		}
		entries[i] = e
		ws.update(e)
	}

	for _, e := range entries {
		writeLine(w, e, ws, opts)
	}

	if decodeErr != nil {
		writeDecodeFailure(w, decodeErr, opts)
	}
}

func branchAnnotation(in disasm.Instruction, fn Function, boundaries map[uint64]bool) (string, bool) {
	if !in.HasBranchTarget {
		return "", false
	}
	if in.BranchTarget < fn.Address || in.BranchTarget >= fn.Address+fn.Size {
		return "", false
	}
	if boundaries[in.BranchTarget] {
		offset := in.BranchTarget - fn.Address
		return fmt.Sprintf("# %s+%#x", fn.Name, offset), true
	}
	return fmt.Sprintf("# %#x", in.BranchTarget), true
}

func writeLine(w io.Writer, e entry, ws widths, opts Options) {
	address := pad(e.address, ws.address)
	mnemonic := pad(e.mnemonic, ws.mnemonic)
	operand := pad(e.operand, ws.operand)

	if opts.Color {
		address = ansi.Address.Wrap(address)
		mnemonic = ansi.Mnemonic.Wrap(mnemonic)
	}

	line := fmt.Sprintf("%s  %s  %s", address, mnemonic, operand)
	if e.comment != "" {
		comment := e.comment
		if opts.Color {
			comment = ansi.Comment.Wrap(comment)
		}
		line = fmt.Sprintf("%s  %s", strings.TrimRight(line, " "), comment)
	}

	fmt.Fprintln(w, strings.TrimRight(line, " "))
}

func writeDecodeFailure(w io.Writer, err error, opts Options) {
	msg := err.Error()
	if opts.Color {
		msg = ansi.Warning.Wrap(msg)
	}
	fmt.Fprintln(w, msg)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
