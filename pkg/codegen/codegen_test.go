package codegen

import (
	"testing"

	"github.com/sasalla23/ni/pkg/ast"
	"github.com/sasalla23/ni/pkg/checker"
	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/parser"
)

func genSrc(t *testing.T, src string) ([]Instruction, []byte) {
	t.Helper()
	file, err := parser.Parse(src, "test.ni")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := checker.Check(file); err != nil {
		t.Fatalf("Check: %v", err)
	}
	program, static, err := Generate(file)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return program, static
}

// TestLabelsResolved is testable property 4: after finalize, no
// jump-family instruction still carries an unresolved label id — every
// operand is a valid index into the program.
func TestLabelsResolved(t *testing.T) {
	src := `
		fn fib(n: int): int {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		fn main(): void {
			var i = 0;
			while (i < 10) {
				if (i == 5) { i = i + 1; continue; }
				i = i + 1;
			}
			print_line(int_to_string(fib(i)));
		}
	`
	program, _ := genSrc(t, src)
	for i, ins := range program {
		if !ins.Op.isJumpFamily() {
			continue
		}
		if ins.Operand < 0 || int(ins.Operand) >= len(program) {
			t.Errorf("instruction %d (%s): operand %d is not a valid program index (len=%d)", i, ins.Op, ins.Operand, len(program))
		}
	}
}

func TestNoFunctionNamedMain(t *testing.T) {
	file, err := parser.Parse(`fn notMain(): void { }`, "test.ni")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := checker.Check(file); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if _, _, err := Generate(file); err == nil {
		t.Fatal("Generate: expected an error for a file with no main")
	}
}

func TestProgramStartsWithJumpToMain(t *testing.T) {
	program, _ := genSrc(t, `fn helper(): void { } fn main(): void { helper(); }`)
	if len(program) == 0 || program[0].Op != JUMP {
		t.Fatalf("program[0] = %+v, want a JUMP to main", program[0])
	}
}

// TestListLiteralLayout covers the code generator's side of testable
// property 7: the lowering of [1,2,3] emits six word writes (length,
// capacity, data pointer, three elements) and pushes capacity 6.
func TestListLiteralLayout(t *testing.T) {
	file, err := parser.Parse(`fn main(): void { var xs: [int] = [1, 2, 3]; }`, "test.ni")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := checker.Check(file); err != nil {
		t.Fatalf("Check: %v", err)
	}
	lit := file.Functions[0].Body.Stmts[0].(*ast.VarDef).Init.(*ast.ListLiteral)

	g := &CodeGen{funcLabels: map[int]int{}, mainFuncID: -1, breakLabel: -1, continueLabel: -1}
	if err := g.genListLiteral(lit); err != nil {
		t.Fatalf("genListLiteral: %v", err)
	}

	var writewCount int
	var pushedOffsets []int64
	for _, ins := range g.instructions {
		if ins.Op == WRITEW {
			writewCount++
		}
		if ins.Op == PUSH {
			pushedOffsets = append(pushedOffsets, ins.Operand)
		}
	}
	// length(3), capacity(6), data pointer, 3 elements => 6 WRITEW total
	if writewCount != 6 {
		t.Errorf("WRITEW count = %d, want 6 (length, capacity, data ptr, 3 elements)", writewCount)
	}
	// capacity must be 2x the element count (6), not the count itself (3).
	foundCap := false
	for _, v := range pushedOffsets {
		if v == 6 {
			foundCap = true
		}
	}
	if !foundCap {
		t.Errorf("no PUSH 6 found among %v; capacity should be 2x length(3)=6", pushedOffsets)
	}
}

func TestFinalizeUnresolvedLabelErrors(t *testing.T) {
	g := &CodeGen{}
	g.emit1(JUMP, 999)
	if err := g.finalize(); err == nil {
		t.Fatal("finalize: expected an error for an unresolved label")
	}
}

func TestFinalizeDeterministic(t *testing.T) {
	// Running genSrc twice on the same source produces byte-identical
	// programs: finalize's label resolution is a pure function of the
	// unresolved instruction stream.
	src := `fn main(): void { var i = 0; while (i < 3) { i = i + 1; } }`
	p1, _ := genSrc(t, src)
	p2, _ := genSrc(t, src)
	if len(p1) != len(p2) {
		t.Fatalf("len(p1)=%d, len(p2)=%d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Errorf("instruction %d differs: %+v vs %+v", i, p1[i], p2[i])
		}
	}
}

func TestShortCircuitAnd(t *testing.T) {
	// Structural check that genCondition recurses into both operands of
	// "&&" rather than materializing an intermediate bool: each operand
	// branches on its own with one JEQZ; actual short-circuit runtime
	// behavior is covered by the VM's end-to-end test.
	program, _ := genSrc(t, `fn side(): bool { return true; } fn main(): void { var a = false; var b = side(); if (a && b) { } }`)
	found := false
	jeqzCount := 0
	for _, ins := range program {
		if ins.Op == CALL {
			found = true
		}
		if ins.Op == JEQZ {
			jeqzCount++
		}
	}
	if !found {
		t.Error("expected at least one CALL instruction for side()")
	}
	if jeqzCount != 2 {
		t.Errorf("JEQZ count = %d, want 2 (one branch per && operand)", jeqzCount)
	}
}

func TestCastIsNoOp(t *testing.T) {
	program, _ := genSrc(t, `fn main(): void { var x = int(42); }`)
	pushCount := 0
	for _, ins := range program {
		if ins.Op == PUSH && ins.Operand == 42 {
			pushCount++
		}
	}
	if pushCount != 1 {
		t.Errorf("PUSH 42 count = %d, want 1 (cast should not add any instructions)", pushCount)
	}
}

func TestStringLiteralStaticData(t *testing.T) {
	_, static := genSrc(t, `fn main(): void { print("hi"); }`)
	if string(static) != "hi" {
		t.Errorf("static data = %q, want %q", static, "hi")
	}
}

func TestDecodeEscapes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`hello\n`, "hello\n"},
		{`tab\there`, "tab\there"},
		{`\\`, `\`},
		{`\"`, `"`},
	}
	for _, tc := range tests {
		got, err := decodeEscapes(tc.raw, diag.Location{})
		if err != nil {
			t.Fatalf("decodeEscapes(%q): %v", tc.raw, err)
		}
		if string(got) != tc.want {
			t.Errorf("decodeEscapes(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDecodeEscapesInvalid(t *testing.T) {
	if _, err := decodeEscapes(`\q`, diag.Location{}); err == nil {
		t.Fatal("decodeEscapes(\\q): expected an error")
	}
	if _, err := decodeEscapes(`\`, diag.Location{}); err == nil {
		t.Fatal("decodeEscapes(trailing backslash): expected an error")
	}
}
