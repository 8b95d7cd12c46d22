package lexer

import (
	"strings"
	"testing"

	"github.com/sasalla23/ni/pkg/token"
)

// TestRoundTrip is testable property 1: concatenating every fixed
// lexeme separated by spaces yields the matching token sequence.
func TestRoundTrip(t *testing.T) {
	order := []token.Type{
		token.TRUE, token.FALSE, token.VAR, token.IF, token.ELSE, token.WHILE,
		token.BREAK, token.CONTINUE, token.RETURN, token.FN, token.INT,
		token.FLOAT, token.BOOL, token.STRING, token.CHAR, token.VOID,
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACKET, token.RBRACKET, token.DOT, token.COMMA, token.COLON,
		token.SEMICOLON, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.PERCENT, token.AMP, token.PIPE, token.CARET, token.TILDE,
		token.BANG, token.SHL, token.SHR, token.AND_AND, token.OR_OR,
		token.ASSIGN, token.EQ, token.NOT_EQ, token.LESS, token.LESS_EQ,
		token.GREATER, token.GREATER_EQ,
	}
	var lexemes []string
	for _, tt := range order {
		lex, ok := token.Lexeme(tt)
		if !ok {
			t.Fatalf("token type %s has no fixed lexeme", tt)
		}
		lexemes = append(lexemes, lex)
	}
	src := strings.Join(lexemes, " ")

	toks, err := Lex(src, "test.ni")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(toks) != len(order)+1 {
		t.Fatalf("got %d tokens, want %d", len(toks), len(order)+1)
	}
	for i, tt := range order {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
	if toks[len(order)].Type != token.END_OF_FILE {
		t.Errorf("last token: got %s, want END_OF_FILE", toks[len(order)].Type)
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		typ    token.Type
		lexeme string
	}{
		{"int", "42", token.INT_LITERAL, "42"},
		{"float", "3.14", token.FLOAT_LITERAL, "3.14"},
		{"string", `"hello\n"`, token.STRING_LITERAL, `"hello\n"`},
		{"char", `'a'`, token.CHAR_LITERAL, `'a'`},
		{"escaped char", `'\n'`, token.CHAR_LITERAL, `'\n'`},
		{"identifier", "xs1", token.IDENTIFIER, "xs1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := Lex(tc.src, "test.ni")
			if err != nil {
				t.Fatalf("Lex(%q): %v", tc.src, err)
			}
			if len(toks) != 2 {
				t.Fatalf("Lex(%q): got %d tokens, want 2", tc.src, len(toks))
			}
			if toks[0].Type != tc.typ {
				t.Errorf("Lex(%q): type = %s, want %s", tc.src, toks[0].Type, tc.typ)
			}
			if toks[0].Lexeme != tc.lexeme {
				t.Errorf("Lex(%q): lexeme = %q, want %q", tc.src, toks[0].Lexeme, tc.lexeme)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", `"hello`},
		{"unterminated char", `'a`},
		{"bad float", "3."},
		{"unexpected char", "@"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Lex(tc.src, "test.ni"); err == nil {
				t.Fatalf("Lex(%q): expected an error", tc.src)
			}
		})
	}
}

func TestListTypeTokens(t *testing.T) {
	toks, err := Lex("[int]", "test.ni")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []token.Type{token.LBRACKET, token.INT, token.RBRACKET, token.END_OF_FILE}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}
