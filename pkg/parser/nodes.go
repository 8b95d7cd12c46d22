package parser

import (
	"github.com/sasalla23/ni/pkg/ast"
	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/token"
	"github.com/sasalla23/ni/pkg/types"
)

// stripQuotes removes the surrounding delimiter characters a lexed
// string or char literal carries, leaving escape sequences untouched
// for the code generator to decode.
func stripQuotes(lexeme string) string {
	if len(lexeme) < 2 {
		return ""
	}
	return lexeme[1 : len(lexeme)-1]
}

// The constructors below exist because ast's node structs embed an
// unexported exprBase/stmtBase to share Location()/Type() plumbing;
// outside package ast a composite literal can only set it through a
// zero-value-then-assign sequence, which these wrap once per node kind.

func newIntLiteral(loc diag.Location, v int64) *ast.IntLiteral {
	n := &ast.IntLiteral{Value: v}
	n.Loc = loc
	return n
}

func newFloatLiteral(loc diag.Location, v float64) *ast.FloatLiteral {
	n := &ast.FloatLiteral{Value: v}
	n.Loc = loc
	return n
}

func newStringLiteral(loc diag.Location, v string) *ast.StringLiteral {
	n := &ast.StringLiteral{Value: v}
	n.Loc = loc
	return n
}

func newCharLiteral(loc diag.Location, v string) *ast.CharLiteral {
	n := &ast.CharLiteral{Value: v}
	n.Loc = loc
	return n
}

func newBoolLiteral(loc diag.Location, v bool) *ast.BoolLiteral {
	n := &ast.BoolLiteral{Value: v}
	n.Loc = loc
	return n
}

func newVariable(loc diag.Location, name string) *ast.Variable {
	n := &ast.Variable{Name: name}
	n.Loc = loc
	return n
}

func newUnary(loc diag.Location, op token.Type, operand ast.Expr) *ast.Unary {
	n := &ast.Unary{Op: op, Operand: operand}
	n.Loc = loc
	return n
}

func newBinary(loc diag.Location, op token.Type, left, right ast.Expr) *ast.Binary {
	n := &ast.Binary{Op: op, Left: left, Right: right}
	n.Loc = loc
	return n
}

func newCall(loc diag.Location, callee ast.Expr, args []ast.Expr) *ast.Call {
	n := &ast.Call{Callee: callee, Args: args}
	n.Loc = loc
	return n
}

func newMember(loc diag.Location, recv ast.Expr, name string) *ast.Member {
	n := &ast.Member{Receiver: recv, Name: name}
	n.Loc = loc
	return n
}

func newIndex(loc diag.Location, recv, idx ast.Expr) *ast.Index {
	n := &ast.Index{Receiver: recv, IndexExpr: idx}
	n.Loc = loc
	return n
}

func newListLiteral(loc diag.Location, elems []ast.Expr) *ast.ListLiteral {
	n := &ast.ListLiteral{Elements: elems}
	n.Loc = loc
	return n
}

func newCast(loc diag.Location, target types.Type, operand ast.Expr) *ast.Cast {
	n := &ast.Cast{TargetType: target, Operand: operand}
	n.Loc = loc
	return n
}

func newBlock(loc diag.Location, stmts []ast.Stmt) *ast.Block {
	n := &ast.Block{Stmts: stmts}
	n.Loc = loc
	return n
}

func newExprStmt(loc diag.Location, e ast.Expr) *ast.ExprStmt {
	n := &ast.ExprStmt{Expr: e}
	n.Loc = loc
	return n
}

func newVarDef(loc diag.Location, name string, annotation types.Type, init ast.Expr) *ast.VarDef {
	n := &ast.VarDef{Name: name, Annotation: annotation, Init: init}
	n.Loc = loc
	return n
}

func newIf(loc diag.Location, cond ast.Expr, then, els ast.Stmt) *ast.If {
	n := &ast.If{Cond: cond, Then: then, Else: els}
	n.Loc = loc
	return n
}

func newWhile(loc diag.Location, cond ast.Expr, body ast.Stmt) *ast.While {
	n := &ast.While{Cond: cond, Body: body}
	n.Loc = loc
	return n
}

func newBreak(loc diag.Location) *ast.Break {
	n := &ast.Break{}
	n.Loc = loc
	return n
}

func newContinue(loc diag.Location) *ast.Continue {
	n := &ast.Continue{}
	n.Loc = loc
	return n
}

func newReturn(loc diag.Location, e ast.Expr) *ast.Return {
	n := &ast.Return{Expr: e}
	n.Loc = loc
	return n
}
