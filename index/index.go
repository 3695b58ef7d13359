// Package index merges symbols gathered from the native object table,
// DWARF, and PDB into one sorted, de-duplicated table with gap-filled
// sizes, and answers fuzzy hierarchical-path queries against it. The
// merge/sort/search shape is modelled on the teacher's own symbol table
// (disassembly/symbols/table.go, search.go): build incrementally, sort
// once, search case-appropriately.
package index

import (
	"sort"

	"github.com/binspect/symasm/demangle"
	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/symbol"
)

// Symbol is a finalised entry in the index: demangled, sized, and
// assigned to its containing executable section.
type Symbol struct {
	RawName      string
	Name         string
	Address      uint64
	Size         uint64
	Source       symbol.Source
	Language     symbol.Language
	SectionIndex int
}

// Builder accumulates raw symbol batches from each source. Call Finalise
// once every source has contributed to produce a frozen, queryable Index.
type Builder struct {
	raw        []symbol.Raw
	sections   []object.Section
	noDemangle bool
}

// NewBuilder creates a Builder against sections, the object's executable
// sections.
// Only executable sections participate in the gap-fill and membership
// check; a symbol outside all of them is dropped.
func NewBuilder(sections []object.Section) *Builder {
	return &Builder{sections: sections}
}

// DisableDemangle makes Finalise index symbols under their raw linkage
// name instead of a demangled path, for --no-demangle.
func (b *Builder) DisableDemangle() {
	b.noDemangle = true
}

// Add appends a batch of raw symbols from one source.
func (b *Builder) Add(raws []symbol.Raw) {
	b.raw = append(b.raw, raws...)
}

// Finalise demangles, filters, sorts, gap-fills, and de-duplicates the
// accumulated symbols, producing an Index. Mirrors spec.md §4.E's five
// steps in order.
func (b *Builder) Finalise() (*Index, error) {
	// (1) demangle, (2) drop zero-address or out-of-section symbols
	var symbols []Symbol
	for _, r := range b.raw {
		if r.Address == 0 {
			continue
		}
		sec, ok := sectionForAddress(b.sections, r.Address)
		if !ok {
			continue
		}

		name := r.RawName
		language := symbol.LanguageUnknown
		if !b.noDemangle {
			d := demangle.DemangleHint(r.RawName, r.LanguageHint)
			name = d.Name
			language = d.Language
		}

		symbols = append(symbols, Symbol{
			RawName:      r.RawName,
			Name:         name,
			Address:      r.Address,
			Size:         r.Size,
			Source:       r.Source,
			Language:     language,
			SectionIndex: sectionIndexOf(b.sections, sec),
		})

		if !r.HasSize {
			symbols[len(symbols)-1].Size = 0
		}
	}

	// (3) sort ascending by (address, source priority)
	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].Address != symbols[j].Address {
			return symbols[i].Address < symbols[j].Address
		}
		return symbols[i].Source.Priority() < symbols[j].Source.Priority()
	})

	// (4) fill absent sizes by scanning forward within the same section
	for i := range symbols {
		if symbols[i].Size > 0 {
			continue
		}
		sec := b.sections[symbols[i].SectionIndex]
		end := sec.Address + sec.Size
		for j := i + 1; j < len(symbols); j++ {
			if symbols[j].SectionIndex != symbols[i].SectionIndex {
				continue
			}
			if symbols[j].Address > symbols[i].Address {
				end = symbols[j].Address
				break
			}
		}
		symbols[i].Size = end - symbols[i].Address
	}

	// drop any symbol whose size is still zero
	filtered := symbols[:0]
	for _, s := range symbols {
		if s.Size > 0 {
			filtered = append(filtered, s)
		}
	}
	symbols = filtered

	// (5) coalesce duplicates: same address and demangled name, keep the
	// higher-priority (lower Priority()) source
	var merged []Symbol
	for _, s := range symbols {
		dup := false
		for k := len(merged) - 1; k >= 0 && merged[k].Address == s.Address; k-- {
			if merged[k].Name == s.Name {
				if s.Source.Priority() < merged[k].Source.Priority() {
					merged[k] = s
				}
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, s)
		}
	}

	for _, s := range merged {
		if s.Name == "" {
			return nil, errors.Errorf(errors.Internal, errors.EmptySymbolName, s.Address)
		}
	}

	return &Index{symbols: merged}, nil
}

// Index is a frozen, sorted, de-duplicated symbol table. It is safe for
// concurrent read-only use once returned by Finalise.
type Index struct {
	symbols []Symbol
}

// All returns every symbol in address order. The returned slice must not
// be mutated by callers.
func (ix *Index) All() []Symbol {
	return ix.symbols
}

// Len reports the number of symbols in the index.
func (ix *Index) Len() int {
	return len(ix.symbols)
}

func sectionForAddress(sections []object.Section, addr uint64) (object.Section, bool) {
	for _, s := range sections {
		if s.Size == 0 {
			continue
		}
		if addr >= s.Address && addr < s.Address+s.Size {
			return s, true
		}
	}
	return object.Section{}, false
}

func sectionIndexOf(sections []object.Section, target object.Section) int {
	for i, s := range sections {
		if s.Name == target.Name && s.Address == target.Address {
			return i
		}
	}
	return -1
}
