package types

import "github.com/sasalla23/ni/pkg/token"

// BinaryEntry is one row of the binary operator table (spec §4.3).
type BinaryEntry struct {
	Op     token.Type
	Left   Type
	Right  Type
	Result Type
}

// UnaryEntry is one row of the unary operator table.
type UnaryEntry struct {
	Op      token.Type
	Operand Type
	Result  Type
}

// tableFits is the matching rule the operator tables use: it differs
// from Type.Fits (which governs assignment and argument passing) in
// that the wildcard direction is the TABLE entry being GENERIC, not
// the actual operand.
func tableFits(actual, tableType Type) bool {
	if tableType.Kind() == KindGeneric {
		return true
	}
	return actual == tableType
}

// BinaryOps is the fixed binary operator table. Lookup takes the first
// row whose operator matches and whose operand types both tableFit the
// actual operands.
var BinaryOps = []BinaryEntry{
	{token.PLUS, INT, INT, INT},
	{token.MINUS, INT, INT, INT},
	{token.STAR, INT, INT, INT},
	{token.SLASH, INT, INT, INT},
	{token.PLUS, FLOAT, FLOAT, FLOAT},
	{token.MINUS, FLOAT, FLOAT, FLOAT},
	{token.STAR, FLOAT, FLOAT, FLOAT},
	{token.SLASH, FLOAT, FLOAT, FLOAT},

	{token.PERCENT, INT, INT, INT},
	{token.SHL, INT, INT, INT},
	{token.SHR, INT, INT, INT},
	{token.AMP, INT, INT, INT},
	{token.PIPE, INT, INT, INT},
	{token.CARET, INT, INT, INT},

	{token.LESS, INT, INT, BOOL},
	{token.LESS_EQ, INT, INT, BOOL},
	{token.GREATER, INT, INT, BOOL},
	{token.GREATER_EQ, INT, INT, BOOL},
	{token.LESS, FLOAT, FLOAT, BOOL},
	{token.LESS_EQ, FLOAT, FLOAT, BOOL},
	{token.GREATER, FLOAT, FLOAT, BOOL},
	{token.GREATER_EQ, FLOAT, FLOAT, BOOL},

	{token.EQ, GENERIC, GENERIC, BOOL},
	{token.NOT_EQ, GENERIC, GENERIC, BOOL},

	{token.AND_AND, BOOL, BOOL, BOOL},
	{token.OR_OR, BOOL, BOOL, BOOL},
}

// UnaryOps is the fixed unary operator table.
var UnaryOps = []UnaryEntry{
	{token.TILDE, INT, INT},
	{token.PLUS, INT, INT},
	{token.MINUS, INT, INT},
	{token.PLUS, FLOAT, FLOAT},
	{token.MINUS, FLOAT, FLOAT},
	{token.BANG, BOOL, BOOL},
}

// LookupBinary returns the first matching table row's result type.
func LookupBinary(op token.Type, left, right Type) (Type, bool) {
	for _, e := range BinaryOps {
		if e.Op != op {
			continue
		}
		if tableFits(left, e.Left) && tableFits(right, e.Right) {
			return e.Result, true
		}
	}
	return nil, false
}

// LookupUnary returns the first matching table row's result type.
func LookupUnary(op token.Type, operand Type) (Type, bool) {
	for _, e := range UnaryOps {
		if e.Op != op {
			continue
		}
		if tableFits(operand, e.Operand) {
			return e.Result, true
		}
	}
	return nil, false
}

// castPair is a (source, destination) pair in the allowed-cast table.
type castPair struct{ src, dst Type }

var allowedCasts = buildCastTable()

func buildCastTable() map[castPair]bool {
	table := map[castPair]bool{}
	add := func(src, dst Type) { table[castPair{src, dst}] = true }
	pairs := [][2]Type{
		{INT, CHAR}, {CHAR, INT},
		{INT, STRING}, {STRING, INT},
		{INT, FLOAT}, {FLOAT, INT},
		{CHAR, STRING}, {STRING, CHAR},
		{FLOAT, STRING}, {STRING, FLOAT},
		{BOOL, STRING},
		{BOOL, INT},
	}
	for _, p := range pairs {
		add(p[0], p[1])
	}
	// STRING <-> LIST(CHAR) is a structural cast, independent of the
	// interned-pointer pairs above since List(CHAR) is itself interned.
	add(STRING, List(CHAR))
	add(List(CHAR), STRING)
	return table
}

// CastAllowed reports whether an explicit cast from src to dst is in
// the allowed-cast table (spec §4.3). Callers should first check
// src.Fits(dst) — a cast where the source already fits the target is
// always permitted and is handled by the checker before consulting
// this table.
func CastAllowed(src, dst Type) bool {
	return allowedCasts[castPair{src, dst}]
}
