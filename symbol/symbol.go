// Package symbol defines the data shared by every symbol source: the
// native object symbol table, the DWARF extractor, and the PDB extractor.
// They all depend on this one; the only import among them is the PDB
// extractor's use of the object package's Section type.
package symbol

import "fmt"

// Source identifies which collaborator produced a symbol.
type Source int

const (
	// SourceUnknown is the zero value and never appears in a finalised index.
	SourceUnknown Source = iota
	// SourceObject is the native symbol table embedded in the object file
	// (.symtab/.dynsym, LC_SYMTAB, or the COFF symbol table).
	SourceObject
	// SourcePDB is a public or procedure record from a companion PDB.
	SourcePDB
	// SourceDWARF is a subprogram entry recovered from DWARF debug info.
	SourceDWARF
)

// Priority orders sources for merge and sort purposes: DWARF first, then
// PDB, then the native table, reflecting which source carries the best
// name and size information.
func (s Source) Priority() int {
	switch s {
	case SourceDWARF:
		return 0
	case SourcePDB:
		return 1
	case SourceObject:
		return 2
	default:
		return 3
	}
}

func (s Source) String() string {
	switch s {
	case SourceObject:
		return "object"
	case SourcePDB:
		return "pdb"
	case SourceDWARF:
		return "dwarf"
	default:
		return "unknown"
	}
}

// Language is the mangling scheme a raw name was decoded under.
type Language int

const (
	// LanguageUnknown marks a name the demangler could not interpret, or
	// one that was never mangled in the first place.
	LanguageUnknown Language = iota
	// LanguageOne is the hierarchical-path scheme with a trailing compiler
	// hash (Rust legacy and v0 mangling).
	LanguageOne
	// LanguageTwo is the classic Itanium C++ ABI scheme.
	LanguageTwo
)

func (l Language) String() string {
	switch l {
	case LanguageOne:
		return "one"
	case LanguageTwo:
		return "two"
	default:
		return "unknown"
	}
}

// Raw is a symbol as yielded by a single source, before the index has
// merged, sorted, or resolved an absent size.
type Raw struct {
	RawName string
	Address uint64
	Size    uint64
	HasSize bool
	Source  Source
	// LanguageHint is the mangling scheme implied by the symbol's
	// compilation unit, when the source can tell (DWARF's DW_AT_language,
	// for instance). It disambiguates a raw name whose prefix alone
	// doesn't identify a scheme; LanguageUnknown means the source offers
	// no such hint and the demangler must rely on prefix sniffing alone.
	LanguageHint Language
	SectionIndex int
}

func (r Raw) String() string {
	return fmt.Sprintf("%#x %s [%s]", r.Address, r.RawName, r.Source)
}
