// Package natives is the fixed table of native functions callable from
// Ni source (spec §4.6). Both the type checker (to register their
// signatures as callable symbols) and the virtual machine (to dispatch
// NATIVE id) consult this single table so the two can never drift.
package natives

import "github.com/sasalla23/ni/pkg/types"

// Entry describes one native function's call signature.
type Entry struct {
	ID     int
	Name   string
	Params []types.Type
	Return types.Type
}

// Fixed ids 0-7, exactly as spec §4.6's native function table.
const (
	Print            = 0
	PrintLine        = 1
	IntToString      = 2
	CharToString     = 3
	StringToCharList = 4
	CharListToString = 5
	FloatToString    = 6
	BoolToString     = 7
)

// Table is built by a function at package initialization so it can
// reference types.List(types.CHAR) through the types package's interning.
var Table = buildTable()

func buildTable() []Entry {
	charList := types.List(types.CHAR)
	return []Entry{
		{ID: Print, Name: "print", Params: []types.Type{types.STRING}, Return: types.VOID},
		{ID: PrintLine, Name: "print_line", Params: []types.Type{types.STRING}, Return: types.VOID},
		{ID: IntToString, Name: "int_to_string", Params: []types.Type{types.INT}, Return: types.STRING},
		{ID: CharToString, Name: "char_to_string", Params: []types.Type{types.CHAR}, Return: types.STRING},
		{ID: StringToCharList, Name: "string_to_char_list", Params: []types.Type{types.STRING}, Return: charList},
		{ID: CharListToString, Name: "char_list_to_string", Params: []types.Type{charList}, Return: types.STRING},
		{ID: FloatToString, Name: "float_to_string", Params: []types.Type{types.FLOAT}, Return: types.STRING},
		{ID: BoolToString, Name: "bool_to_string", Params: []types.Type{types.BOOL}, Return: types.STRING},
	}
}

// FirstUserFuncID is the first function id the type checker's global
// counter assigns to a user-defined function; ids below it are reserved
// for this fixed native table.
const FirstUserFuncID = 8
