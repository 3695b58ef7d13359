package errors

// Message patterns used across the pipeline. Grouped by the component that
// raises them, mirroring the stage order in SPEC_FULL.md §4.
const (
	// object reader
	BadMagic        = "not a recognised object format: %s"
	Truncated       = "truncated object file: %v"
	MmapFailed      = "memory-mapping object file: %v"
	ArchNotBuiltIn  = "architecture %s is not enabled in this build"
	SectionOOB      = "section %q extends beyond end of file"
	NoExecSections  = "object file has no executable sections"
	FatArchNotFound = "no slice for architecture %s in fat binary"

	// dwarf / pdb
	DWARFCorrupt    = "corrupt DWARF data: %v"
	PDBCorrupt      = "corrupt PDB data: %v"
	PDBReadFailed   = "reading PDB file: %v"
	PDBGUIDMismatch = "PDB %s does not match binary (GUID/age mismatch)"
	PDBNotFound     = "no companion PDB found for %s"
	DSYMNotFound    = "no companion dSYM bundle found for %s"

	// symbol index / matching
	NoCandidate      = "no symbol matches %q"
	AmbiguousQuery   = "%q matches more than one symbol"
	EmptySymbolName  = "symbol with empty name at address %#x"
	UnresolvableSize = "could not resolve size for symbol %q"

	// disassembler facade
	EngineOpenFailed = "opening disassembler engine: %v"
	EngineOptFailed  = "setting disassembler option: %v"
	DecodeFailedAt   = "decode failed at %#x"

	// build metadata
	BuildMetaExec   = "running build-metadata command: %v"
	BuildMetaParse  = "parsing build-metadata output: %v"
	NoBinaryTarget  = "workspace has no binary target"
	AmbiguousTarget = "workspace has more than one binary target: %v"
	TargetNotFound  = "no binary target named %q"
	ArtifactMissing = "artifact %s does not exist; has it been built?"

	// orchestrator
	InvalidSymSrc = "invalid --symsrc value %q"
	InvalidArch   = "invalid --arch value %q"
)
