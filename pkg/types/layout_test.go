package types

import "testing"

func TestElementLayoutPrimitives(t *testing.T) {
	cases := []struct {
		ty   Type
		want LayoutTag
	}{
		{INT, INT_LAYOUT},
		{FLOAT, FLOAT_LAYOUT},
		{BOOL, BOOL_LAYOUT},
		{CHAR, CHAR_LAYOUT},
		{STRING, POINTER_LAYOUT},
		{List(INT), POINTER_LAYOUT},
	}
	for _, c := range cases {
		if got := ElementLayout(c.ty); got != c.want {
			t.Errorf("ElementLayout(%s) = %s, want %s", c.ty, got, c.want)
		}
	}
}

func TestLayoutSizesMatchByteSize(t *testing.T) {
	cases := []struct {
		ty  Type
		tag LayoutTag
	}{
		{INT, INT_LAYOUT}, {FLOAT, FLOAT_LAYOUT}, {BOOL, BOOL_LAYOUT}, {CHAR, CHAR_LAYOUT},
	}
	for _, c := range cases {
		if Layouts[c.tag].Size != c.ty.ByteSize() {
			t.Errorf("Layouts[%s].Size = %d, want %s.ByteSize() = %d", c.tag, Layouts[c.tag].Size, c.ty, c.ty.ByteSize())
		}
	}
}

func TestListLayoutShape(t *testing.T) {
	l := Layouts[LIST_LAYOUT]
	if l.Size != 24 {
		t.Errorf("LIST_LAYOUT.Size = %d, want 24", l.Size)
	}
	if len(l.PointerOffsets) != 1 || l.PointerOffsets[0] != 16 {
		t.Errorf("LIST_LAYOUT.PointerOffsets = %v, want [16]", l.PointerOffsets)
	}
}

func TestStringLayoutShape(t *testing.T) {
	l := Layouts[STRING_LAYOUT]
	if l.Size != 16 {
		t.Errorf("STRING_LAYOUT.Size = %d, want 16", l.Size)
	}
	if len(l.PointerOffsets) != 1 || l.PointerOffsets[0] != 8 {
		t.Errorf("STRING_LAYOUT.PointerOffsets = %v, want [8]", l.PointerOffsets)
	}
}

func TestLayoutTagStringUnknown(t *testing.T) {
	var tag LayoutTag = -1
	if got := tag.String(); got != "LayoutTag(?)" {
		t.Errorf("tag.String() = %q, want LayoutTag(?)", got)
	}
}

func TestPrimitiveLayout(t *testing.T) {
	cases := []struct {
		ty   Type
		want LayoutTag
	}{
		{INT, INT_LAYOUT}, {FLOAT, FLOAT_LAYOUT}, {BOOL, BOOL_LAYOUT},
		{CHAR, CHAR_LAYOUT}, {VOID, VOID_LAYOUT}, {STRING, STRING_LAYOUT},
	}
	for _, c := range cases {
		if got := PrimitiveLayout(c.ty); got != c.want {
			t.Errorf("PrimitiveLayout(%s) = %s, want %s", c.ty, got, c.want)
		}
	}
}
