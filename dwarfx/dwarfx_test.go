package dwarfx

import (
	"debug/dwarf"
	"testing"

	"github.com/binspect/symasm/test"
)

func entryWith(fields ...dwarf.Field) *dwarf.Entry {
	return &dwarf.Entry{
		Tag:      dwarf.TagSubprogram,
		Field:    fields,
	}
}

func TestAddressRangeWithAbsoluteHighPC(t *testing.T) {
	e := entryWith(
		dwarf.Field{Attr: dwarf.AttrLowpc, Val: uint64(0x1000)},
		dwarf.Field{Attr: dwarf.AttrHighpc, Val: uint64(0x1040), Class: dwarf.ClassAddress},
	)
	low, size, ok := addressRange(nil, e)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, low, uint64(0x1000))
	test.ExpectEquality(t, size, uint64(0x40))
}

func TestAddressRangeWithOffsetHighPC(t *testing.T) {
	e := entryWith(
		dwarf.Field{Attr: dwarf.AttrLowpc, Val: uint64(0x2000)},
		dwarf.Field{Attr: dwarf.AttrHighpc, Val: uint64(0x66), Class: dwarf.ClassConstant},
	)
	low, size, ok := addressRange(nil, e)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, low, uint64(0x2000))
	test.ExpectEquality(t, size, uint64(0x66))
}

func TestAddressRangeMissingLowPC(t *testing.T) {
	e := entryWith()
	_, _, ok := addressRange(nil, e)
	test.ExpectFailure(t, ok)
}

func TestLinkageNamePrefersMangledName(t *testing.T) {
	e := entryWith(
		dwarf.Field{Attr: dwarf.AttrName, Val: "len_utf8"},
		dwarf.Field{Attr: dwarf.AttrLinkageName, Val: "_ZN4core4char7methods8len_utf817h3a9f1c2b5e6d7f80E"},
	)
	test.ExpectEquality(t, linkageName(e), "_ZN4core4char7methods8len_utf817h3a9f1c2b5e6d7f80E")
}

func TestLinkageNameFallsBackToPlainName(t *testing.T) {
	e := entryWith(dwarf.Field{Attr: dwarf.AttrName, Val: "main"})
	test.ExpectEquality(t, linkageName(e), "main")
}
