// Package disasm wraps the Capstone engine (via github.com/knightsc/gapstone)
// behind a scoped facade: acquire a decoder for an (arch, bits) pair,
// decode a byte slice at a base address, and guarantee the native handle
// is released on every exit path. Byte order is not a parameter: every
// engine is opened in Capstone's default little-endian mode. The acquire/decode/iterate shape
// is grounded directly on the ipsw project's disass command
// (other_examples' 0cyn-ipsw cmd/ipsw/cmd/disass.go), which already drives
// gapstone this way; this package adds the explicit Close() that ipsw's
// command itself omits.
package disasm

import (
	"github.com/knightsc/gapstone"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/object"
)

// Instruction is one decoded instruction, detached from the engine that
// produced it so it can outlive the Facade's lifetime.
type Instruction struct {
	Address     uint64
	Bytes       []byte
	Mnemonic    string
	OpString    string
	Length      int
	BranchTarget uint64
	HasBranchTarget bool
}

// Facade is a scoped handle to a native Capstone engine instance.
type Facade struct {
	engine gapstone.Engine
	arch   object.Arch
	bits   object.Bits
}

// Open acquires a decoder instance parameterised by arch and bits. The
// caller must call Close when done, on every exit path including errors.
func Open(arch object.Arch, bits object.Bits) (*Facade, error) {
	csArch, csMode, err := capstoneParams(arch, bits)
	if err != nil {
		return nil, err
	}

	engine, err := gapstone.New(csArch, csMode)
	if err != nil {
		return nil, errors.Errorf(errors.Internal, errors.EngineOpenFailed, err)
	}

	if err := engine.SetOption(gapstone.CS_OPT_DETAIL, gapstone.CS_OPT_ON); err != nil {
		engine.Close()
		return nil, errors.Errorf(errors.Internal, errors.EngineOptFailed, err)
	}

	if csArch == gapstone.CS_ARCH_X86 {
		if err := engine.SetOption(gapstone.CS_OPT_SYNTAX, gapstone.CS_OPT_SYNTAX_INTEL); err != nil {
			engine.Close()
			return nil, errors.Errorf(errors.Internal, errors.EngineOptFailed, err)
		}
	}

	return &Facade{engine: engine, arch: arch, bits: bits}, nil
}

// Close releases the native engine handle. Safe to call more than once.
func (f *Facade) Close() error {
	return f.engine.Close()
}

// Decode disassembles data (the bytes of exactly one function, sliced by
// the caller from the Object) starting at baseAddr. It stops at the first
// instruction Capstone can't decode or when the data is exhausted;
// instructions already decoded are still returned alongside the error so
// the caller can emit a partial listing, per spec.
func (f *Facade) Decode(data []byte, baseAddr uint64) ([]Instruction, error) {
	insns, err := f.engine.Disasm(data, baseAddr, 0)
	if err != nil {
		return nil, errors.Errorf(errors.DecodeFailure, errors.DecodeFailedAt, baseAddr)
	}

	out := make([]Instruction, 0, len(insns))
	consumed := uint64(0)
	for _, insn := range insns {
		out = append(out, Instruction{
			Address:         uint64(insn.Address),
			Bytes:           insn.Bytes,
			Mnemonic:        insn.Mnemonic,
			OpString:        insn.OpStr,
			Length:          len(insn.Bytes),
			BranchTarget:    branchTarget(f.arch, insn),
			HasBranchTarget: hasBranchTarget(f.arch, insn),
		})
		consumed += uint64(len(insn.Bytes))
	}

	if consumed < uint64(len(data)) {
		failAddr := baseAddr + consumed
		return out, errors.Errorf(errors.DecodeFailure, errors.DecodeFailedAt, failAddr)
	}

	return out, nil
}

func capstoneParams(arch object.Arch, bits object.Bits) (int, int, error) {
	switch arch {
	case object.ArchX86:
		return gapstone.CS_ARCH_X86, gapstone.CS_MODE_32, nil
	case object.ArchX86_64:
		return gapstone.CS_ARCH_X86, gapstone.CS_MODE_64, nil
	case object.ArchARM:
		return gapstone.CS_ARCH_ARM, gapstone.CS_MODE_ARM, nil
	case object.ArchARM64:
		return gapstone.CS_ARCH_ARM64, gapstone.CS_MODE_ARM, nil
	case object.ArchPowerPC:
		mode := gapstone.CS_MODE_32
		if bits == object.Bits64 {
			mode = gapstone.CS_MODE_64
		}
		return gapstone.CS_ARCH_PPC, mode, nil
	default:
		return 0, 0, errors.Errorf(errors.UnsupportedArch, errors.ArchNotBuiltIn, arch)
	}
}

// branchTarget extracts the resolved absolute address of a branch
// instruction's operand, when its detailed operand structure names one.
func branchTarget(arch object.Arch, insn gapstone.Instruction) uint64 {
	switch arch {
	case object.ArchX86, object.ArchX86_64:
		if insn.X86 != nil {
			for _, op := range insn.X86.Operands {
				if op.Type == gapstone.X86_OP_IMM {
					return uint64(op.Imm)
				}
			}
		}
	case object.ArchARM64:
		if insn.Arm64 != nil {
			for _, op := range insn.Arm64.Operands {
				if op.Type == gapstone.ARM64_OP_IMM {
					return uint64(op.Imm)
				}
			}
		}
	case object.ArchARM:
		if insn.Arm != nil {
			for _, op := range insn.Arm.Operands {
				if op.Type == gapstone.ARM_OP_IMM {
					return uint64(op.Imm)
				}
			}
		}
	}
	return 0
}

func hasBranchTarget(arch object.Arch, insn gapstone.Instruction) bool {
	if !isBranchGroup(insn) {
		return false
	}
	return branchTarget(arch, insn) != 0
}

func isBranchGroup(insn gapstone.Instruction) bool {
	for _, g := range insn.Groups {
		switch int(g) {
		case gapstone.X86_GRP_JUMP, gapstone.X86_GRP_CALL,
			gapstone.ARM64_GRP_JUMP, gapstone.ARM64_GRP_CALL,
			gapstone.ARM_GRP_JUMP, gapstone.ARM_GRP_CALL:
			return true
		}
	}
	return false
}
