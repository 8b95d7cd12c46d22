package types

import (
	"testing"

	"github.com/sasalla23/ni/pkg/token"
)

// TestBinaryOpsTable is testable property 6's table-lookup half: every
// entry in BinaryOps resolves via LookupBinary. Combinations with no
// entry are checked by TestBinaryOpsOmittedCombination.
func TestBinaryOpsTable(t *testing.T) {
	for _, e := range BinaryOps {
		got, ok := LookupBinary(e.Op, e.Left, e.Right)
		if !ok {
			t.Errorf("LookupBinary(%s, %s, %s): no match, want %s", e.Op, e.Left, e.Right, e.Result)
			continue
		}
		if got != e.Result {
			t.Errorf("LookupBinary(%s, %s, %s) = %s, want %s", e.Op, e.Left, e.Right, got, e.Result)
		}
	}
}

func TestBinaryOpsOmittedCombination(t *testing.T) {
	cases := []struct {
		op          token.Type
		left, right Type
	}{
		{token.PLUS, INT, BOOL},
		{token.PLUS, STRING, STRING},
		{token.PERCENT, FLOAT, FLOAT},
		{token.AND_AND, INT, INT},
		{token.LESS, STRING, STRING},
	}
	for _, c := range cases {
		if _, ok := LookupBinary(c.op, c.left, c.right); ok {
			t.Errorf("LookupBinary(%s, %s, %s): matched, want no match", c.op, c.left, c.right)
		}
	}
}

func TestEqualityIsGenericPinned(t *testing.T) {
	for _, pair := range [][2]Type{{INT, INT}, {STRING, STRING}, {List(INT), List(INT)}, {BOOL, BOOL}} {
		if _, ok := LookupBinary(token.EQ, pair[0], pair[1]); !ok {
			t.Errorf("LookupBinary(EQ, %s, %s): no match, want match via GENERIC wildcard", pair[0], pair[1])
		}
	}
}

func TestUnaryOpsTable(t *testing.T) {
	for _, e := range UnaryOps {
		got, ok := LookupUnary(e.Op, e.Operand)
		if !ok || got != e.Result {
			t.Errorf("LookupUnary(%s, %s) = %s, %v, want %s, true", e.Op, e.Operand, got, ok, e.Result)
		}
	}
}

func TestUnaryOpsOmittedCombination(t *testing.T) {
	cases := []struct {
		op      token.Type
		operand Type
	}{
		{token.TILDE, FLOAT},
		{token.BANG, INT},
		{token.MINUS, STRING},
	}
	for _, c := range cases {
		if _, ok := LookupUnary(c.op, c.operand); ok {
			t.Errorf("LookupUnary(%s, %s): matched, want no match", c.op, c.operand)
		}
	}
}

func TestCastAllowed(t *testing.T) {
	allowed := [][2]Type{
		{INT, CHAR}, {CHAR, INT}, {INT, STRING}, {STRING, INT},
		{INT, FLOAT}, {FLOAT, INT}, {CHAR, STRING}, {STRING, CHAR},
		{FLOAT, STRING}, {STRING, FLOAT}, {BOOL, STRING}, {BOOL, INT},
		{STRING, List(CHAR)}, {List(CHAR), STRING},
	}
	for _, p := range allowed {
		if !CastAllowed(p[0], p[1]) {
			t.Errorf("CastAllowed(%s, %s) = false, want true", p[0], p[1])
		}
	}
}

func TestCastNotAllowed(t *testing.T) {
	disallowed := [][2]Type{
		{INT, BOOL}, {BOOL, FLOAT}, {FLOAT, BOOL},
		{List(INT), List(FLOAT)}, {STRING, List(INT)},
	}
	for _, p := range disallowed {
		if CastAllowed(p[0], p[1]) {
			t.Errorf("CastAllowed(%s, %s) = true, want false", p[0], p[1])
		}
	}
}
