// Package orchestrate drives the full pipeline from an artifact path and a
// query to a rendered listing. Stage sequencing — resolve → open → choose
// sources → build index → match → slice → decode → format — and a small
// top-level type returning a curated error at the first failing stage are
// both modelled on the teacher's Disassembly.disassemble pipeline in
// disassembly/disassembly.go.
package orchestrate

import (
	"io"

	"github.com/binspect/symasm/disasm"
	"github.com/binspect/symasm/dwarfx"
	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/index"
	"github.com/binspect/symasm/listing"
	"github.com/binspect/symasm/logger"
	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/pdbfile"
	"github.com/binspect/symasm/symbol"
)

// SymSrc selects which collaborator(s) contribute symbols to the index.
type SymSrc int

const (
	SymSrcAuto SymSrc = iota
	SymSrcObject
	SymSrcDWARF
	SymSrcPDB
	SymSrcAll
)

// ParseSymSrc maps a --symsrc flag value onto a SymSrc.
func ParseSymSrc(s string) (SymSrc, error) {
	switch s {
	case "", "auto":
		return SymSrcAuto, nil
	case "object":
		return SymSrcObject, nil
	case "dwarf":
		return SymSrcDWARF, nil
	case "pdb":
		return SymSrcPDB, nil
	case "all":
		return SymSrcAll, nil
	default:
		return 0, errors.Errorf(errors.BadObject, errors.InvalidSymSrc, s)
	}
}

// Request carries everything one invocation needs.
type Request struct {
	ArtifactPath string
	ArchOverride object.Arch
	SymSrc       SymSrc
	Query        string
	NoDemangle   bool
	Color        bool
}

// Run executes the full pipeline, writing a rendered listing to w. The
// returned error, when non-nil, is always a curated error whose Kind maps
// to the process exit code the caller should use. On an AMBIGUOUS_MATCH
// error the caller should call Candidates with the same request to list
// the tied matches.
func Run(w io.Writer, req Request) error {
	obj, ix, err := buildIndex(req)
	if err != nil {
		return err
	}
	defer obj.Close()

	candidates, err := ix.Match(req.Query, false)
	if err != nil {
		return err
	}

	sym := candidates[0].Symbol

	data, ok := obj.BytesAt(sym.Address, sym.Size)
	if !ok {
		return errors.Errorf(errors.BadObject, errors.UnresolvableSize, sym.Name)
	}

	facade, err := disasm.Open(obj.Arch(), obj.Bits())
	if err != nil {
		return err
	}
	defer facade.Close()

	insns, decodeErr := facade.Decode(data, sym.Address)

	fn := listing.Function{Name: sym.Name, Address: sym.Address, Size: sym.Size}
	listing.Render(w, fn, insns, decodeErr, listing.Options{Color: req.Color})

	if decodeErr != nil {
		return decodeErr
	}
	return nil
}

// Candidates re-opens the artifact and reports every symbol within the
// top score band for req.Query, for printing an AMBIGUOUS_MATCH
// candidate list.
func Candidates(req Request) ([]index.Candidate, error) {
	obj, ix, err := buildIndex(req)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return ix.Match(req.Query, true)
}

func buildIndex(req Request) (object.Object, *index.Index, error) {
	obj, err := object.Open(req.ArtifactPath, req.ArchOverride)
	if err != nil {
		return nil, nil, err
	}

	sections := obj.ExecutableSections()
	if len(sections) == 0 {
		obj.Close()
		return nil, nil, errors.Errorf(errors.BadObject, errors.NoExecSections)
	}

	raws, err := collect(obj, req.SymSrc)
	if err != nil {
		obj.Close()
		return nil, nil, err
	}

	builder := index.NewBuilder(sections)
	if req.NoDemangle {
		builder.DisableDemangle()
	}
	builder.Add(raws)

	ix, err := builder.Finalise()
	if err != nil {
		obj.Close()
		return nil, nil, err
	}

	return obj, ix, nil
}

// collect gathers raw symbols from the sources named by src, honouring
// spec's auto rule: DWARF or PDB if present, else the native object
// table — with no silent fallback to "all" when the chosen source
// yields no match. That non-fallback is enforced by the caller (Match
// itself reports NoMatch); collect only decides which sources run.
func collect(obj object.Object, src SymSrc) ([]symbol.Raw, error) {
	var out []symbol.Raw

	useObject := src == SymSrcObject || src == SymSrcAll
	useDWARF := src == SymSrcDWARF || src == SymSrcAll
	usePDB := src == SymSrcPDB || src == SymSrcAll

	if src == SymSrcAuto {
		d, hasDWARF := obj.DWARF()
		hint := obj.DebugHint()
		switch {
		case hasDWARF:
			raws, err := dwarfx.Extract(d)
			if err != nil {
				logger.Logf(logger.Allow, "orchestrate", "dwarf extraction failed: %v", err)
			} else {
				out = append(out, raws...)
			}
		case hint.PDBPath != "":
			raws, mismatch, err := pdbSymbols(hint, obj.Sections())
			switch {
			case err != nil:
				logger.Logf(logger.Allow, "orchestrate", "pdb extraction failed: %v", err)
				out = append(out, obj.NativeSymbols()...)
			case mismatch:
				logger.Logf(logger.Allow, "orchestrate", errors.PDBGUIDMismatch, hint.PDBPath)
				out = append(out, obj.NativeSymbols()...)
			default:
				out = append(out, raws...)
			}
		default:
			out = append(out, obj.NativeSymbols()...)
		}
		return out, nil
	}

	if useDWARF {
		if d, ok := obj.DWARF(); ok {
			raws, err := dwarfx.Extract(d)
			if err != nil {
				return nil, err
			}
			out = append(out, raws...)
		}
	}

	if usePDB {
		hint := obj.DebugHint()
		if hint.PDBPath != "" {
			raws, mismatch, err := pdbSymbols(hint, obj.Sections())
			switch {
			case err != nil:
				return nil, err
			case mismatch:
				logger.Logf(logger.Allow, "orchestrate", errors.PDBGUIDMismatch, hint.PDBPath)
			default:
				out = append(out, raws...)
			}
		}
	}

	if useObject {
		out = append(out, obj.NativeSymbols()...)
	}

	return out, nil
}

// pdbSymbols opens the companion PDB and reports its public/procedure
// symbols. A GUID/age mismatch between the PDB and the binary's own
// CodeView record is reported via the mismatch return, not err: the
// caller warns and continues without PDB symbols, per spec.
func pdbSymbols(hint object.DebugHint, sections []object.Section) (raws []symbol.Raw, mismatch bool, err error) {
	pdb, err := pdbfile.Open(hint.PDBPath, hint.PDBGUID, hint.PDBAge)
	if err != nil {
		return nil, false, err
	}
	if pdb.GUIDMismatch {
		return nil, true, nil
	}
	raws, err = pdb.Symbols(sections)
	return raws, false, err
}
