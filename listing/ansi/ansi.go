// Package ansi builds the small set of ANSI SGR sequences the listing
// formatter uses to colour a disassembly. Adapted from the teacher's own
// terminal colour package (debugger/terminal/colorterm/easyterm/ansi),
// trimmed to the handful of pens a listing actually needs and built once
// at init rather than looked up by name per line.
package ansi

import (
	"fmt"
	"strings"
)

const (
	colBlack = iota
	colRed
	colGreen
	colYellow
	colBlue
	colMagenta
	colCyan
	colWhite
	_
	colDefault
)

const (
	targetPen       = 3
	targetBrightPen = 9
)

const attrBold = 1

// Pen is a single pre-built ANSI sequence pair: the sequence that starts
// it and the one that resets to the terminal default.
type Pen struct {
	start string
	reset string
}

// Wrap surrounds s with the pen's start/reset sequences.
func (p Pen) Wrap(s string) string {
	if p.start == "" {
		return s
	}
	return p.start + s + p.reset
}

// Listing pens, built once. Address is cyan, Mnemonic bold white, Comment
// green, Warning bold red.
var (
	Address  = buildPen("cyan", false)
	Mnemonic = buildPen("white", true)
	Comment  = buildPen("green", false)
	Warning  = buildPen("red", true)
)

const reset = "\033[0m"

func buildPen(colour string, bold bool) Pen {
	seq, err := colorCode(colour, bold)
	if err != nil {
		return Pen{}
	}
	return Pen{start: seq, reset: reset}
}

// colorCode builds the CSI sequence for a named foreground colour,
// optionally bold, following the same pen/attribute layout as the
// teacher's ColorBuild.
func colorCode(colour string, bold bool) (string, error) {
	s := strings.Builder{}
	s.WriteString("\033[")

	code, ok := colourCodes[strings.ToUpper(colour)]
	if !ok {
		return "", fmt.Errorf("unknown ANSI colour %q", colour)
	}
	s.WriteString(fmt.Sprintf("%d%d", targetPen, code))

	if bold {
		s.WriteString(fmt.Sprintf(";%d", attrBold))
	}

	s.WriteString("m")
	return s.String(), nil
}

var colourCodes = map[string]int{
	"BLACK":   colBlack,
	"RED":     colRed,
	"GREEN":   colGreen,
	"YELLOW":  colYellow,
	"BLUE":    colBlue,
	"MAGENTA": colMagenta,
	"CYAN":    colCyan,
	"WHITE":   colWhite,
	"NORMAL":  colDefault,
}
