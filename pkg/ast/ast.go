// Package ast defines the untyped syntax tree produced by the parser
// and annotated in place by the type checker.
package ast

import (
	"fmt"

	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/token"
	"github.com/sasalla23/ni/pkg/types"
)

//  Expression nodes

// Expr is implemented by every node that produces a value. After type
// checking, Type() never returns types.NO (invariant I1 in the spec).
type Expr interface {
	exprNode()
	Location() diag.Location
	Type() types.Type
	SetType(types.Type)
}

type exprBase struct {
	Loc      diag.Location
	Resolved types.Type
}

func (e *exprBase) Location() diag.Location { return e.Loc }
func (e *exprBase) Type() types.Type {
	if e.Resolved == nil {
		return types.NO
	}
	return e.Resolved
}
func (e *exprBase) SetType(t types.Type) { e.Resolved = t }

// IntLiteral is an integer constant, e.g. 42.
type IntLiteral struct {
	exprBase
	Value int64
}

func (*IntLiteral) exprNode() {}

// FloatLiteral is a floating point constant, e.g. 3.14.
type FloatLiteral struct {
	exprBase
	Value float64
}

func (*FloatLiteral) exprNode() {}

// StringLiteral is a string constant "...". Value is the raw content
// between the quotes, escapes not yet resolved (spec §4.1: escape
// decoding is the code generator's job, not the lexer's or parser's).
type StringLiteral struct {
	exprBase
	Value string
}

func (*StringLiteral) exprNode() {}

// CharLiteral is a character constant '...'. Value is the raw content
// between the quotes (one character, or a two-character backslash
// escape), undecoded for the same reason as StringLiteral.
type CharLiteral struct {
	exprBase
	Value string
}

func (*CharLiteral) exprNode() {}

// BoolLiteral is true or false.
type BoolLiteral struct {
	exprBase
	Value bool
}

func (*BoolLiteral) exprNode() {}

// Variable is a read (or, as the left side of an Binary with Op=ASSIGN,
// a write) of a named variable.
type Variable struct {
	exprBase
	Name       string
	SymbolID   int  // variable id, cached after checking
	IsResolved bool // true once SymbolID is valid
}

func (*Variable) exprNode() {}

// Unary represents Op Operand, e.g. -x, !done, ~mask.
type Unary struct {
	exprBase
	Op      token.Type
	Operand Expr
}

func (*Unary) exprNode() {}

// Binary represents Left Op Right, including assignment (Op == token.ASSIGN).
type Binary struct {
	exprBase
	Op    token.Type
	Left  Expr
	Right Expr
}

func (*Binary) exprNode() {}

// Call represents callee(args). Callee is either a *Variable (plain
// call) or a *Member (method-call convention: the receiver is
// prepended to Args during checking).
type Call struct {
	exprBase
	Callee     Expr
	Args       []Expr
	FuncID     int  // function id, cached after checking
	IsNative   bool // true if the callee resolves to a native function
	IsResolved bool
}

func (*Call) exprNode() {}

// Member represents Receiver.Name.
type Member struct {
	exprBase
	Receiver   Expr
	Name       string
	Offset     int // byte offset of the field, cached after checking
	Writable   bool
	ByteSized  bool // true if the field occupies 1 byte (vs 8)
	IsObject   bool // true if the field holds a heap pointer
}

func (*Member) exprNode() {}

// Index represents Receiver[Index].
type Index struct {
	exprBase
	Receiver   Expr
	IndexExpr  Expr
	ElemOffset int // offset of the @index-backing data pointer field
	Writable   bool
	ByteSized  bool
	IsObject   bool
}

func (*Index) exprNode() {}

// ListLiteral represents [ e1, e2, ... ].
type ListLiteral struct {
	exprBase
	Elements []Expr
}

func (*ListLiteral) exprNode() {}

// Cast represents TargetType(Operand).
type Cast struct {
	exprBase
	TargetType types.Type
	Operand    Expr
}

func (*Cast) exprNode() {}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
	Location() diag.Location
}

type stmtBase struct {
	Loc diag.Location
}

func (s *stmtBase) Location() diag.Location { return s.Loc }

// ExprStmt is an expression evaluated for its side effects, followed by ';'.
type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (*ExprStmt) stmtNode() {}

// VarDef represents  var name [: T] = expr;
type VarDef struct {
	stmtBase
	Name        string
	Annotation  types.Type // nil if not annotated
	Init        Expr
	SymbolID    int // assigned during checking
}

func (*VarDef) stmtNode() {}

// Block represents { stmt... }.
type Block struct {
	stmtBase
	Stmts []Stmt
}

func (*Block) stmtNode() {}

// If represents if (Cond) Then [else Else].
type If struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else branch
}

func (*If) stmtNode() {}

// While represents while (Cond) Body.
type While struct {
	stmtBase
	Cond Expr
	Body Stmt
}

func (*While) stmtNode() {}

// Break represents break;.
type Break struct{ stmtBase }

func (*Break) stmtNode() {}

// Continue represents continue;.
type Continue struct{ stmtBase }

func (*Continue) stmtNode() {}

// Return represents return [expr];. Expr is nil for a bare return.
type Return struct {
	stmtBase
	Expr Expr
}

func (*Return) stmtNode() {}

//  Top level

// Param is one name: T entry in a function's argument list.
type Param struct {
	Name string
	Type types.Type
}

// FunctionDef represents fn name(args) : ReturnType { Body }.
type FunctionDef struct {
	Loc        diag.Location
	Name       string
	Args       []Param
	ReturnType types.Type
	Body       *Block
	FuncID     int // assigned during checking
	LocalCount int // total variable ids used by this function, assigned during checking
}

// File is the root node: a sequence of function definitions.
type File struct {
	Functions []*FunctionDef
}

func (f *FunctionDef) String() string {
	return fmt.Sprintf("fn %s(...): %s", f.Name, f.ReturnType)
}
