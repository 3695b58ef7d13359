// Package demangle turns a raw linkage symbol into a human-readable
// hierarchical path. It never fails: a name it cannot interpret is
// returned unchanged with an unknown language tag.
package demangle

import (
	"regexp"
	"strings"

	ianlancetaylor "github.com/ianlancetaylor/demangle"

	"github.com/binspect/symasm/symbol"
)

// trailingHash matches the compiler-injected uniqueness suffix Rust
// appends to a path, as it reads after demangling, eg. "::h3a9f1c2b5e6d7f80"
// (mangled as "...17h3a9f1c2b5e6d7f80E").
var trailingHash = regexp.MustCompile(`::h[0-9a-f]{16}$`)

// Result is the outcome of demangling a single raw name.
type Result struct {
	// Name is the demangled hierarchical path, or the raw name unchanged
	// if demangling failed or was not applicable.
	Name string
	// Language is the mangling scheme detected, or LanguageUnknown.
	Language symbol.Language
}

// Demangle decodes raw under either supported mangling scheme, detected
// by prefix and structural cues. On any failure it returns the raw name
// unchanged and symbol.LanguageUnknown.
func Demangle(raw string) Result {
	return DemangleHint(raw, symbol.LanguageUnknown)
}

// DemangleHint is Demangle, but falls back to hint when raw's prefix
// doesn't unambiguously identify a scheme. hint comes from the symbol's
// source — a DWARF compilation unit's DW_AT_language, for instance — and
// is ignored whenever prefix sniffing alone already settles the question.
func DemangleHint(raw string, hint symbol.Language) Result {
	lang := scheme(raw)
	if lang == symbol.LanguageUnknown {
		lang = hint
	}
	switch lang {
	case symbol.LanguageOne:
		return demangleOne(raw)
	case symbol.LanguageTwo:
		return demangleTwo(raw)
	default:
		return Result{Name: raw, Language: symbol.LanguageUnknown}
	}
}

// scheme guesses the mangling scheme from the raw name's prefix, without
// attempting to demangle it.
func scheme(raw string) symbol.Language {
	switch {
	case strings.HasPrefix(raw, "_R"):
		return symbol.LanguageOne
	case strings.HasPrefix(raw, "_ZN") && strings.Contains(raw, "17h"):
		// legacy Rust mangling rides on the Itanium grammar but always
		// carries a 16-hex-digit hash component named with length 17
		// ("17h<16 hex digits>").
		return symbol.LanguageOne
	case strings.HasPrefix(raw, "_Z"):
		return symbol.LanguageTwo
	default:
		return symbol.LanguageUnknown
	}
}

func demangleOne(raw string) Result {
	out := ianlancetaylor.Filter(raw, ianlancetaylor.NoClones)
	if out == raw {
		return Result{Name: raw, Language: symbol.LanguageUnknown}
	}
	out = toPathSeparator(out)
	out = trailingHash.ReplaceAllString(out, "")
	return Result{Name: out, Language: symbol.LanguageOne}
}

func demangleTwo(raw string) Result {
	out := ianlancetaylor.Filter(raw, ianlancetaylor.NoClones)
	if out == raw {
		return Result{Name: raw, Language: symbol.LanguageUnknown}
	}
	return Result{Name: out, Language: symbol.LanguageTwo}
}

// toPathSeparator normalises the demangle library's rendering of nested
// Rust paths onto the "::" separator the index and matcher assume. The
// library already emits "::" for module paths, so this is a no-op in
// practice; it exists to absorb future library formatting changes in one
// place.
func toPathSeparator(s string) string {
	return s
}
