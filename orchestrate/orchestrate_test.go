package orchestrate

import (
	"debug/dwarf"
	"testing"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/symbol"
	"github.com/binspect/symasm/test"
)

type fakeObject struct {
	sections []object.Section
	native   []symbol.Raw
	dwarf    *dwarf.Data
	hasDWARF bool
	hint     object.DebugHint
}

func (f *fakeObject) Format() object.Format { return object.FormatELF }
func (f *fakeObject) Bits() object.Bits     { return object.Bits64 }
func (f *fakeObject) Endian() object.Endian { return object.LittleEndian }
func (f *fakeObject) Arch() object.Arch     { return object.ArchX86_64 }

func (f *fakeObject) Sections() []object.Section           { return f.sections }
func (f *fakeObject) ExecutableSections() []object.Section { return f.sections }
func (f *fakeObject) NativeSymbols() []symbol.Raw          { return f.native }

func (f *fakeObject) BytesAt(vaddr, length uint64) ([]byte, bool) { return nil, false }
func (f *fakeObject) DWARF() (*dwarf.Data, bool)                  { return f.dwarf, f.hasDWARF }
func (f *fakeObject) DebugHint() object.DebugHint                 { return f.hint }
func (f *fakeObject) Close() error                                { return nil }

func TestParseSymSrcRejectsUnknownValue(t *testing.T) {
	_, err := ParseSymSrc("bogus")
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.BadObject)
}

func TestParseSymSrcDefaultsToAuto(t *testing.T) {
	s, err := ParseSymSrc("")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, s, SymSrcAuto)
}

func TestCollectAutoPrefersObjectTableWhenNoDebugInfo(t *testing.T) {
	obj := &fakeObject{
		native: []symbol.Raw{{RawName: "run", Address: 0x1000, Size: 0x10, HasSize: true, Source: symbol.SourceObject}},
	}

	raws, err := collect(obj, SymSrcAuto)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(raws), 1)
	test.ExpectEquality(t, raws[0].Source, symbol.SourceObject)
}

func TestCollectObjectOnlyIgnoresDebugInfo(t *testing.T) {
	obj := &fakeObject{
		native:   []symbol.Raw{{RawName: "run", Address: 0x1000, Size: 0x10, HasSize: true, Source: symbol.SourceObject}},
		hasDWARF: true,
	}

	raws, err := collect(obj, SymSrcObject)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(raws), 1)
}

func TestCollectPDBSkippedWhenNoHint(t *testing.T) {
	obj := &fakeObject{}
	raws, err := collect(obj, SymSrcPDB)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(raws), 0)
}
