// Package dwarfx extracts function symbols from DWARF debug info. Compilation
// units are independent work units and are processed by a bounded pool of
// worker goroutines, modelled on the teacher's plain channel-and-WaitGroup
// style for fan-out (the same shape used for subprocess orchestration
// elsewhere in the teacher's codebase); the final merge re-sorts by address,
// then raw name, then size, so the result is deterministic regardless of
// which worker finished first.
package dwarfx

import (
	"debug/dwarf"
	"sort"
	"sync"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/logger"
	"github.com/binspect/symasm/symbol"
)

// DWARF DW_AT_language codes this package recognises, per DWARF 5 §7.12.
const (
	dwLangRust      = 0x001c
	dwLangCPlusPlus = 0x0004
)

// languageHint maps a compilation unit's DW_AT_language value onto the
// mangling scheme its symbols were encoded under, so the demangler can
// pick a scheme even when a raw name's prefix alone is ambiguous.
func languageHint(code int64) symbol.Language {
	switch code {
	case dwLangRust:
		return symbol.LanguageOne
	case dwLangCPlusPlus:
		return symbol.LanguageTwo
	default:
		return symbol.LanguageUnknown
	}
}

// Workers bounds how many compilation units are processed concurrently.
const Workers = 8

// cuUnit is one compilation unit's root entry offset, used to drive a
// fresh dwarf.Reader seeked to that unit.
type cuUnit struct {
	offset   dwarf.Offset
	language int64
}

// Extract walks every compilation unit in d and returns the function
// symbols found, sorted by address. Extraction failures on individual
// compilation units are logged and skipped rather than aborting the whole
// walk; a totally unreadable dwarf.Data is reported as BadDebugInfo.
func Extract(d *dwarf.Data) ([]symbol.Raw, error) {
	units, err := compilationUnits(d)
	if err != nil {
		return nil, errors.Errorf(errors.BadDebugInfo, errors.DWARFCorrupt, err)
	}

	jobs := make(chan cuUnit)
	results := make(chan []symbol.Raw)

	var wg sync.WaitGroup
	workers := Workers
	if workers > len(units) {
		workers = len(units)
	}
	if workers == 0 {
		return nil, nil
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				syms, err := extractUnit(d, u)
				if err != nil {
					logger.Logf(logger.Allow, "dwarfx", "skipping compilation unit at %#x: %v", u.offset, err)
					continue
				}
				results <- syms
			}
		}()
	}

	go func() {
		for _, u := range units {
			jobs <- u
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []symbol.Raw
	for syms := range results {
		all = append(all, syms...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Address != all[j].Address {
			return all[i].Address < all[j].Address
		}
		if all[i].RawName != all[j].RawName {
			return all[i].RawName < all[j].RawName
		}
		return all[i].Size < all[j].Size
	})

	return all, nil
}

// compilationUnits returns every compilation unit's root DIE offset and
// language attribute, without descending into its children.
func compilationUnits(d *dwarf.Data) ([]cuUnit, error) {
	var units []cuUnit
	r := d.Reader()
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}
		lang, _ := entry.Val(dwarf.AttrLanguage).(int64)
		units = append(units, cuUnit{offset: entry.Offset, language: lang})
		r.SkipChildren()
	}
	return units, nil
}

// extractUnit walks one compilation unit's subtree and emits a symbol for
// every subprogram DIE with an address range and a name. Nested lexical
// blocks and inlined subroutines are descended into (to find further
// subprograms) but inline instances without their own out-of-line range
// are skipped: they are copies, not independently callable bodies.
func extractUnit(d *dwarf.Data, u cuUnit) ([]symbol.Raw, error) {
	r := d.Reader()
	r.Seek(u.offset)

	var out []symbol.Raw

	// consume the compile unit entry itself
	cu, err := r.Next()
	if err != nil {
		return nil, err
	}
	if cu == nil {
		return nil, nil
	}

	for {
		entry, err := r.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		// a sibling compile unit marks the end of this one's subtree
		if entry.Tag == dwarf.TagCompileUnit {
			break
		}
		if entry.Tag != dwarf.TagSubprogram {
			continue
		}

		if entry.Val(dwarf.AttrInline) != nil && !hasRange(entry) {
			// inline-only entry, no out-of-line body
			continue
		}

		lowPC, size, ok := addressRange(d, entry)
		if !ok {
			continue
		}

		name := linkageName(entry)
		if name == "" {
			continue
		}

		out = append(out, symbol.Raw{
			RawName:      name,
			Address:      lowPC,
			Size:         size,
			HasSize:      size > 0,
			Source:       symbol.SourceDWARF,
			LanguageHint: languageHint(u.language),
		})
	}

	return out, nil
}

func hasRange(entry *dwarf.Entry) bool {
	return entry.Val(dwarf.AttrLowpc) != nil || entry.Val(dwarf.AttrRanges) != nil
}

// addressRange resolves a subprogram's primary extent. high_pc may be
// encoded either as an absolute address or, in newer DWARF, as an offset
// from low_pc; both forms are honoured. Non-contiguous ranges (produced by
// inlined copies within the function) are not consulted here: only the
// primary low_pc extent is recorded, per spec.
func addressRange(d *dwarf.Data, entry *dwarf.Entry) (low uint64, size uint64, ok bool) {
	lowVal := entry.Val(dwarf.AttrLowpc)
	if lowVal == nil {
		return 0, 0, false
	}
	low, ok = lowVal.(uint64)
	if !ok {
		return 0, 0, false
	}

	highField := entry.AttrField(dwarf.AttrHighpc)
	if highField == nil {
		return low, 0, true
	}

	switch v := highField.Val.(type) {
	case uint64:
		if highField.Class == dwarf.ClassAddress {
			if v > low {
				return low, v - low, true
			}
			return low, 0, true
		}
		// constant form: an offset from low_pc
		return low, v, true
	case int64:
		return low, uint64(v), true
	}

	return low, 0, true
}

// linkageName prefers the mangled linkage name (closest to what the
// compiler emitted for the symbol table) and falls back to the plain
// source name.
func linkageName(entry *dwarf.Entry) string {
	if n, ok := entry.Val(dwarf.AttrLinkageName).(string); ok && n != "" {
		return n
	}
	if n, ok := entry.Val(dwarf.AttrName).(string); ok {
		return n
	}
	return ""
}
