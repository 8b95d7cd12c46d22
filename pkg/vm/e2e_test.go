package vm

import (
	"bytes"
	"testing"

	"github.com/sasalla23/ni/pkg/checker"
	"github.com/sasalla23/ni/pkg/codegen"
	"github.com/sasalla23/ni/pkg/parser"
)

// run compiles and executes src, returning everything written to
// stdout.
func run(t *testing.T, src string) string {
	t.Helper()
	file, err := parser.Parse(src, "test.ni")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := checker.Check(file); err != nil {
		t.Fatalf("Check: %v", err)
	}
	program, static, err := codegen.Generate(file)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	machine := New(program, static)
	var buf bytes.Buffer
	machine.Stdout = &buf
	if err := machine.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return buf.String()
}

func TestHelloWorld(t *testing.T) {
	got := run(t, `fn main(): void { print_line("hello, world"); }`)
	if got != "hello, world\n" {
		t.Errorf("got %q, want %q", got, "hello, world\n")
	}
}

func TestArithmetic(t *testing.T) {
	got := run(t, `fn main(): void { print_line(int_to_string(3 + 4 * 1)); }`)
	if got != "7\n" {
		t.Errorf("got %q, want %q", got, "7\n")
	}
}

func TestWhileLoop(t *testing.T) {
	got := run(t, `
		fn main(): void {
			var i = 0;
			while (i < 3) {
				print_line(int_to_string(i));
				i = i + 1;
			}
		}
	`)
	if got != "0\n1\n2\n" {
		t.Errorf("got %q, want %q", got, "0\n1\n2\n")
	}
}

func TestListIndexing(t *testing.T) {
	got := run(t, `
		fn main(): void {
			var xs: [int] = [10, 20, 30];
			print_line(int_to_string(xs[1]));
		}
	`)
	if got != "20\n" {
		t.Errorf("got %q, want %q", got, "20\n")
	}
}

func TestRecursiveFactorial(t *testing.T) {
	got := run(t, `
		fn fact(n: int): int {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		fn main(): void {
			print_line(int_to_string(fact(5)));
		}
	`)
	if got != "120\n" {
		t.Errorf("got %q, want %q", got, "120\n")
	}
}

func TestShortCircuitAndSkipsSideEffect(t *testing.T) {
	got := run(t, `
		fn sideEffect(): bool {
			print("side");
			return true;
		}
		fn main(): void {
			if (false && sideEffect()) { }
			print("b");
		}
	`)
	if got != "b" {
		t.Errorf("got %q, want %q (right operand must not evaluate when left is false)", got, "b")
	}
}

func TestShortCircuitOrSkipsSideEffect(t *testing.T) {
	got := run(t, `
		fn sideEffect(): bool {
			print("extra");
			return true;
		}
		fn main(): void {
			if (true || sideEffect()) { print("only"); }
		}
	`)
	if got != "only" {
		t.Errorf("got %q, want %q", got, "only")
	}
}

func TestIntegerDivisionByZero(t *testing.T) {
	file, err := parser.Parse(`fn main(): void { var z = 0; print_line(int_to_string(1 / z)); }`, "test.ni")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := checker.Check(file); err != nil {
		t.Fatalf("Check: %v", err)
	}
	program, static, err := codegen.Generate(file)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := New(program, static).Run(); err == nil {
		t.Fatal("Run: expected a runtime error for division by zero")
	}
}

func TestIntegerModuloByZero(t *testing.T) {
	file, _ := parser.Parse(`fn main(): void { var z = 0; var r = 1 % z; }`, "test.ni")
	checker.Check(file)
	program, static, _ := codegen.Generate(file)
	if err := New(program, static).Run(); err == nil {
		t.Fatal("Run: expected a runtime error for modulo by zero")
	}
}

func TestFloatDivisionByZero(t *testing.T) {
	file, _ := parser.Parse(`fn main(): void { var z = 0.0; var r = 1.0 / z; }`, "test.ni")
	checker.Check(file)
	program, static, _ := codegen.Generate(file)
	if err := New(program, static).Run(); err == nil {
		t.Fatal("Run: expected a runtime error for float division by zero")
	}
}

func TestIntegerArithmeticWraps(t *testing.T) {
	v := &VM{}
	v.push(StackCell{Kind: Primitive, Word: 9223372036854775807})
	v.push(StackCell{Kind: Primitive, Word: 1})
	if err := v.intArith(codegen.IADD); err != nil {
		t.Fatalf("intArith: %v", err)
	}
	if got := v.pop().Word; got != -9223372036854775808 {
		t.Errorf("overflowing IADD = %d, want two's-complement wraparound", got)
	}
}

func TestFloatToStringFormatting(t *testing.T) {
	if got := formatFloat(3.5); got != "3.5" {
		t.Errorf("formatFloat(3.5) = %q, want %q", got, "3.5")
	}
	if got := formatFloat(2.0); got != "2" {
		t.Errorf("formatFloat(2.0) = %q, want %q (no trailing .0)", got, "2")
	}
}

func TestBoolToString(t *testing.T) {
	got := run(t, `fn main(): void { print(bool_to_string(true)); print(bool_to_string(false)); }`)
	if got != "truefalse" {
		t.Errorf("got %q, want %q", got, "truefalse")
	}
}

func TestStringCharListRoundTrip(t *testing.T) {
	got := run(t, `
		fn main(): void {
			var xs: [char] = string_to_char_list("hi");
			var s = char_list_to_string(xs);
			print(s);
		}
	`)
	if got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func TestDisassembleDoesNotPanic(t *testing.T) {
	file, _ := parser.Parse(`fn main(): void { print_line("x"); }`, "test.ni")
	checker.Check(file)
	program, static, _ := codegen.Generate(file)
	machine := New(program, static)
	out := machine.Disassemble()
	if out == "" {
		t.Error("Disassemble() returned empty string for a non-empty program")
	}
}
