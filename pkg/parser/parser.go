// Package parser builds an ast.File from a token stream using recursive
// descent with precedence climbing for binary operators.
package parser

import (
	"strconv"
	"strings"

	"github.com/sasalla23/ni/pkg/ast"
	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/lexer"
	"github.com/sasalla23/ni/pkg/token"
	"github.com/sasalla23/ni/pkg/types"
)

// Parser consumes the flat token slice produced by the lexer and builds
// an AST.
//
// Grammar:
//
//	file       = functionDef* EOF
//	functionDef = "fn" IDENT "(" params ")" ":" type block
//	params     = (IDENT ":" type ("," IDENT ":" type)*)?
//	type       = "int" | "float" | "bool" | "string" | "char" | "void" | "[" type "]"
//	block      = "{" stmt* "}"
//	stmt       = block | varDecl | ifStmt | whileStmt | "break" ";" | "continue" ";"
//	           | "return" expr? ";" | expr ";"
//	varDecl    = "var" IDENT (":" type)? "=" expr ";"
//	ifStmt     = "if" "(" expr ")" stmt ("else" stmt)?
//	whileStmt  = "while" "(" expr ")" stmt
//	expr       = binary(13)
//	binary(p)  = unary (op binary(p') )*      -- precedence climbing, see parseBinary
//	unary      = ("~" | "!" | "+" | "-") unary | postfix
//	postfix    = primary ( "(" args ")" | "[" expr "]" | "." IDENT )*
//	primary    = INT_LITERAL | FLOAT_LITERAL | STRING_LITERAL | CHAR_LITERAL
//	           | "true" | "false" | IDENT | "(" expr ")" | "[" (expr ("," expr)*)? "]"
//	           | type "(" expr ")"                                         -- cast
type Parser struct {
	tokens      []token.Token
	pos         int
	sourceLines []string
}

func New(tokens []token.Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// Parse is the package's top-level entry point: lex, then parse a
// complete file.
func Parse(src, fileName string) (*ast.File, error) {
	toks, err := lexer.Lex(src, fileName)
	if err != nil {
		return nil, err
	}
	return New(toks, src).ParseFile()
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.END_OF_FILE}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return token.Token{Type: token.END_OF_FILE}
	}
	return p.tokens[i]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// fmtError wraps a message with the offending token's location as a
// PARSE stage diagnostic.
func (p *Parser) fmtError(tok token.Token, format string, args ...any) error {
	return diag.New(diag.Parse, tok.Location, format, args...)
}

func (p *Parser) expect(tt token.Type) (token.Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

//  top level

func (p *Parser) ParseFile() (*ast.File, error) {
	var fns []*ast.FunctionDef
	for p.peek().Type != token.END_OF_FILE {
		fn, err := p.parseFunctionDef()
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return &ast.File{Functions: fns}, nil
}

func (p *Parser) parseFunctionDef() (*ast.FunctionDef, error) {
	fnTok, err := p.expect(token.FN)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	if p.peek().Type != token.RPAREN {
		for {
			pNameTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.COLON); err != nil {
				return nil, err
			}
			pType, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: pNameTok.Lexeme, Type: pType})
			if p.peek().Type != token.COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{
		Loc: fnTok.Location, Name: nameTok.Lexeme, Args: params,
		ReturnType: retType, Body: body, FuncID: -1,
	}, nil
}

func (p *Parser) parseType() (types.Type, error) {
	tok := p.peek()
	switch tok.Type {
	case token.INT:
		p.advance()
		return types.INT, nil
	case token.FLOAT:
		p.advance()
		return types.FLOAT, nil
	case token.BOOL:
		p.advance()
		return types.BOOL, nil
	case token.STRING:
		p.advance()
		return types.STRING, nil
	case token.CHAR:
		p.advance()
		return types.CHAR, nil
	case token.VOID:
		p.advance()
		return types.VOID, nil
	case token.LBRACKET:
		p.advance()
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		return types.List(inner), nil
	default:
		return nil, p.fmtError(tok, "expected a type, got %s (%q)", tok.Type, tok.Lexeme)
	}
}

// startsType reports whether tok can begin a type annotation; used to
// disambiguate a cast "int(e)" from a call or parenthesized expression
// in primary position.
func startsType(tt token.Type) bool {
	switch tt {
	case token.INT, token.FLOAT, token.BOOL, token.STRING, token.CHAR, token.VOID, token.LBRACKET:
		return true
	default:
		return false
	}
}

//  statements

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.peek().Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.VAR:
		return p.parseVarDef()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.BREAK:
		tok := p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return newBreak(tok.Location), nil
	case token.CONTINUE:
		tok := p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return newContinue(tok.Location), nil
	case token.RETURN:
		return p.parseReturn()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	openTok, err := p.expect(token.LBRACE)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.peek().Type != token.RBRACE && p.peek().Type != token.END_OF_FILE {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return newBlock(openTok.Location, stmts), nil
}

func (p *Parser) parseVarDef() (ast.Stmt, error) {
	varTok, err := p.expect(token.VAR)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var annotation types.Type
	if p.peek().Type == token.COLON {
		p.advance()
		annotation, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return newVarDef(varTok.Location, nameTok.Lexeme, annotation, init), nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	ifTok, err := p.expect(token.IF)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if p.peek().Type == token.ELSE {
		p.advance()
		elseStmt, err = p.parseStmt()
		if err != nil {
			return nil, err
		}
	}
	return newIf(ifTok.Location, cond, then, elseStmt), nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	whileTok, err := p.expect(token.WHILE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return newWhile(whileTok.Location, cond, body), nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	retTok, err := p.expect(token.RETURN)
	if err != nil {
		return nil, err
	}
	if p.peek().Type == token.SEMICOLON {
		p.advance()
		return newReturn(retTok.Location, nil), nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return newReturn(retTok.Location, e), nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return newExprStmt(e.Location(), e), nil
}

//  expressions

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(loosestPrec)
}

// precedence of a binary operator; smaller binds tighter. ok is false
// for any token that is not a binary operator.
func precedenceOf(tt token.Type) (prec int, ok bool) {
	switch tt {
	case token.STAR, token.SLASH, token.PERCENT:
		return 3, true
	case token.PLUS, token.MINUS:
		return 4, true
	case token.SHL, token.SHR:
		return 5, true
	case token.LESS, token.GREATER, token.LESS_EQ, token.GREATER_EQ:
		return 6, true
	case token.EQ, token.NOT_EQ:
		return 7, true
	case token.AMP:
		return 8, true
	case token.CARET:
		return 9, true
	case token.PIPE:
		return 10, true
	case token.AND_AND:
		return 11, true
	case token.OR_OR:
		return 12, true
	case token.ASSIGN:
		return 13, true
	default:
		return 0, false
	}
}

// loosestPrec is the sentinel passed by the top-level call: looser than
// every real operator, so the first iteration always accepts whatever
// operator comes next.
const loosestPrec = 1 << 30

// parseBinary implements the "parent precedence" trick: maxPrec is the
// loosest precedence this call is allowed to consume. After consuming
// an operator with precedence p, the recursive call for its right
// operand is given maxPrec = p-1 for a left-associative operator (so
// same-or-looser operators are left for this call's own loop to
// iterate over, producing left associativity) or maxPrec = p for the
// single right-associative operator, assignment (so a chained "=" is
// still acceptable to the recursive call, producing right
// associativity) without a separate descent routine per precedence
// level.
func (p *Parser) parseBinary(maxPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.peek()
		prec, ok := precedenceOf(opTok.Type)
		if !ok || prec > maxPrec {
			break
		}
		p.advance()
		nextMax := prec - 1
		if opTok.Type == token.ASSIGN {
			nextMax = prec
		}
		right, err := p.parseBinary(nextMax)
		if err != nil {
			return nil, err
		}
		// The lvalue rule (spec §4.4) is enforced by the type checker,
		// not here: syntactically, any expression may appear left of
		// "=".
		left = newBinary(left.Location(), opTok.Type, left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case token.TILDE, token.BANG, token.PLUS, token.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return newUnary(tok.Location, tok.Type, operand), nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case token.LPAREN:
			p.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = newCall(expr.Location(), expr, args)
		case token.LBRACKET:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			expr = newIndex(expr.Location(), expr, idx)
		case token.DOT:
			p.advance()
			nameTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			expr = newMember(expr.Location(), expr, nameTok.Lexeme)
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.peek().Type != token.RPAREN {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().Type != token.COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()

	// A leading type keyword (or "[") followed eventually by "(" is a
	// cast: T(e). This never collides with list literals, since a type
	// keyword (int, float, ...) cannot otherwise begin a primary
	// expression.
	if startsType(tok.Type) {
		save := p.pos
		if t, ok := p.tryParseCastType(); ok {
			if p.peek().Type == token.LPAREN {
				p.advance()
				operand, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(token.RPAREN); err != nil {
					return nil, err
				}
				return newCast(tok.Location, t, operand), nil
			}
		}
		p.pos = save
	}

	switch tok.Type {
	case token.INT_LITERAL:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, diag.New(diag.Generation, tok.Location, "malformed integer literal %q", tok.Lexeme)
		}
		return newIntLiteral(tok.Location, v), nil
	case token.FLOAT_LITERAL:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, diag.New(diag.Generation, tok.Location, "malformed float literal %q", tok.Lexeme)
		}
		return newFloatLiteral(tok.Location, v), nil
	case token.STRING_LITERAL:
		p.advance()
		return newStringLiteral(tok.Location, stripQuotes(tok.Lexeme)), nil
	case token.CHAR_LITERAL:
		p.advance()
		return newCharLiteral(tok.Location, stripQuotes(tok.Lexeme)), nil
	case token.TRUE:
		p.advance()
		return newBoolLiteral(tok.Location, true), nil
	case token.FALSE:
		p.advance()
		return newBoolLiteral(tok.Location, false), nil
	case token.IDENTIFIER:
		p.advance()
		return newVariable(tok.Location, tok.Lexeme), nil
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBRACKET:
		p.advance()
		var elems []ast.Expr
		if p.peek().Type != token.RBRACKET {
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
				if p.peek().Type != token.COMMA {
					break
				}
				p.advance()
			}
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		return newListLiteral(tok.Location, elems), nil
	default:
		return nil, p.fmtError(tok, "unexpected token %s (%q), expected an expression", tok.Type, tok.Lexeme)
	}
}

// tryParseCastType speculatively parses a type starting at the current
// position. It does not restore the position on failure; the caller
// saves and restores it before falling back to ordinary primary parsing.
func (p *Parser) tryParseCastType() (types.Type, bool) {
	t, err := p.parseType()
	if err != nil {
		return nil, false
	}
	return t, true
}
