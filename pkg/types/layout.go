package types

// LayoutTag names a fixed byte-size object shape used by the VM's
// HALLOC instruction. Tags are shared, literal constants between the
// code generator (which emits them) and the VM (which interprets
// them) — see spec §3 "Layout identifiers".
type LayoutTag int

const (
	LIST_LAYOUT LayoutTag = iota
	POINTER_LAYOUT
	WORD_LAYOUT
	BYTE_LAYOUT
	INT_LAYOUT
	CHAR_LAYOUT
	VOID_LAYOUT
	STRING_LAYOUT
	FLOAT_LAYOUT
	BOOL_LAYOUT
)

func (t LayoutTag) String() string {
	switch t {
	case LIST_LAYOUT:
		return "LIST_LAYOUT"
	case POINTER_LAYOUT:
		return "POINTER_LAYOUT"
	case WORD_LAYOUT:
		return "WORD_LAYOUT"
	case BYTE_LAYOUT:
		return "BYTE_LAYOUT"
	case INT_LAYOUT:
		return "INT_LAYOUT"
	case CHAR_LAYOUT:
		return "CHAR_LAYOUT"
	case VOID_LAYOUT:
		return "VOID_LAYOUT"
	case STRING_LAYOUT:
		return "STRING_LAYOUT"
	case FLOAT_LAYOUT:
		return "FLOAT_LAYOUT"
	case BOOL_LAYOUT:
		return "BOOL_LAYOUT"
	default:
		return "LayoutTag(?)"
	}
}

// Layout is the heap allocator's view of a tag: the total byte size of
// one unit, and the offsets within that unit that hold object
// pointers. Offsets are unused by the current VM (§1 Non-goals: no
// garbage collector) but kept so a future tracing collector can walk
// allocations without changing any other interface (spec §9).
type Layout struct {
	Size           int
	PointerOffsets []int
}

// Layouts is the fixed registry of every layout tag's shape.
var Layouts = map[LayoutTag]Layout{
	LIST_LAYOUT:    {Size: 24, PointerOffsets: []int{16}}, // length, capacity, data*
	POINTER_LAYOUT: {Size: 8, PointerOffsets: []int{0}},   // one object-ref cell
	WORD_LAYOUT:    {Size: 8},
	BYTE_LAYOUT:    {Size: 1},
	INT_LAYOUT:     {Size: 8},
	CHAR_LAYOUT:    {Size: 1},
	VOID_LAYOUT:    {Size: 0},
	STRING_LAYOUT:  {Size: 16, PointerOffsets: []int{8}}, // length, data*
	FLOAT_LAYOUT:   {Size: 8},
	BOOL_LAYOUT:    {Size: 1},
}

// ElementLayout picks the layout tag used for one slot of a LIST(t)'s
// backing data array: object element types (STRING, LIST(_)) are
// stored as POINTER_LAYOUT cells; primitives use their own named
// layout. t must not be VOID — the checker rejects VOID list elements
// before code generation ever sees them.
func ElementLayout(t Type) LayoutTag {
	if t.IsObject() {
		return POINTER_LAYOUT
	}
	switch t.Kind() {
	case KindGeneric:
		// Only reachable for a LIST(GENERIC) that nothing ever gave a
		// concrete element type (an empty list literal with no fitting
		// context); such a list always has zero elements, so the tag
		// picked here is never actually dereferenced.
		return POINTER_LAYOUT
	case KindInt:
		return INT_LAYOUT
	case KindFloat:
		return FLOAT_LAYOUT
	case KindBool:
		return BOOL_LAYOUT
	case KindChar:
		return CHAR_LAYOUT
	default:
		panic("ElementLayout: unsupported element type " + t.String())
	}
}

// PrimitiveLayout returns the layout tag naming a single heap instance
// of t for the primitive kinds the VM ever allocates (STRING; the
// others are listed for completeness per spec §3 and are not
// currently allocated standalone by any instruction).
func PrimitiveLayout(t Type) LayoutTag {
	switch t.Kind() {
	case KindInt:
		return INT_LAYOUT
	case KindFloat:
		return FLOAT_LAYOUT
	case KindBool:
		return BOOL_LAYOUT
	case KindChar:
		return CHAR_LAYOUT
	case KindVoid:
		return VOID_LAYOUT
	case KindString:
		return STRING_LAYOUT
	default:
		panic("PrimitiveLayout: not a primitive type " + t.String())
	}
}
