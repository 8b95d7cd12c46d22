// Package checker implements Ni's type checker: a pre-pass that
// registers every function's signature, followed by a per-function pass
// that resolves and validates every expression and statement (spec
// §4.4).
package checker

import (
	"github.com/sasalla23/ni/pkg/ast"
	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/natives"
	"github.com/sasalla23/ni/pkg/token"
	"github.com/sasalla23/ni/pkg/types"
)

// VarSymbol is a checked variable: its frame-relative id and type.
type VarSymbol struct {
	ID   int
	Type types.Type
}

// FuncSymbol is a checked function signature.
type FuncSymbol struct {
	ID         int
	Params     []types.Type
	ReturnType types.Type
	IsNative   bool
}

// Checker holds all state for one file's check. It is single-use.
type Checker struct {
	scopes        []map[string]*VarSymbol
	funcs         map[string]*FuncSymbol
	nextVarID     int
	nextFuncID    int
	currentReturn types.Type
	whileDepth    int
}

func New() *Checker {
	c := &Checker{
		funcs:      map[string]*FuncSymbol{},
		nextFuncID: natives.FirstUserFuncID,
	}
	for _, n := range natives.Table {
		c.funcs[n.Name] = &FuncSymbol{ID: n.ID, Params: n.Params, ReturnType: n.Return, IsNative: true}
	}
	return c
}

// Check type-checks an entire file in place, annotating every AST node
// with its resolved type and every Variable/Call node with its
// resolved id. It returns the first diagnostic encountered, or nil.
func Check(file *ast.File) error {
	c := New()
	return c.CheckFile(file)
}

func (c *Checker) CheckFile(file *ast.File) error {
	if err := c.prePass(file); err != nil {
		return err
	}
	for _, fn := range file.Functions {
		if err := c.checkFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// prePass registers every top-level function's signature so forward
// and mutually recursive calls resolve regardless of definition order.
func (c *Checker) prePass(file *ast.File) error {
	for _, fn := range file.Functions {
		if _, exists := c.funcs[fn.Name]; exists {
			return diag.New(diag.Type, fn.Loc, "duplicate top-level name %q", fn.Name)
		}
		params := make([]types.Type, len(fn.Args))
		for i, a := range fn.Args {
			params[i] = a.Type
		}
		fn.FuncID = c.nextFuncID
		c.nextFuncID++
		c.funcs[fn.Name] = &FuncSymbol{ID: fn.FuncID, Params: params, ReturnType: fn.ReturnType, IsNative: false}
	}
	return nil
}

//  scopes

func (c *Checker) pushScope() { c.scopes = append(c.scopes, map[string]*VarSymbol{}) }
func (c *Checker) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Checker) declare(name string, t types.Type) *VarSymbol {
	sym := &VarSymbol{ID: c.nextVarID, Type: t}
	c.nextVarID++
	c.scopes[len(c.scopes)-1][name] = sym
	return sym
}

// lookup searches scopes innermost-first (spec: "outermost last").
func (c *Checker) lookup(name string) (*VarSymbol, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if sym, ok := c.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

//  functions

func (c *Checker) checkFunction(fn *ast.FunctionDef) error {
	c.nextVarID = 0
	c.currentReturn = fn.ReturnType
	c.whileDepth = 0
	c.pushScope()
	defer c.popScope()

	for _, a := range fn.Args {
		c.declare(a.Name, a.Type)
	}

	if err := c.checkBlock(fn.Body); err != nil {
		return err
	}

	if fn.ReturnType != types.VOID && !definiteReturn(fn.Body) {
		return diag.New(diag.Type, fn.Loc, "function %q must return %s on every path", fn.Name, fn.ReturnType)
	}
	fn.LocalCount = c.nextVarID
	return nil
}

// definiteReturn is the purely structural property from spec §4.4.
func definiteReturn(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.Return:
		return true
	case *ast.Block:
		for _, stmt := range n.Stmts {
			if definiteReturn(stmt) {
				return true
			}
		}
		return false
	case *ast.If:
		return n.Else != nil && definiteReturn(n.Then) && definiteReturn(n.Else)
	default:
		return false
	}
}

//  statements

func (c *Checker) checkStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Block:
		c.pushScope()
		defer c.popScope()
		return c.checkBlock(n)
	case *ast.VarDef:
		return c.checkVarDef(n)
	case *ast.If:
		return c.checkIf(n)
	case *ast.While:
		return c.checkWhile(n)
	case *ast.Break:
		if c.whileDepth == 0 {
			return diag.New(diag.Type, n.Loc, "break outside a loop")
		}
		return nil
	case *ast.Continue:
		if c.whileDepth == 0 {
			return diag.New(diag.Type, n.Loc, "continue outside a loop")
		}
		return nil
	case *ast.Return:
		return c.checkReturn(n)
	case *ast.ExprStmt:
		_, err := c.checkExpr(n.Expr)
		return err
	default:
		return diag.New(diag.Type, s.Location(), "unhandled statement kind %T", s)
	}
}

func (c *Checker) checkBlock(b *ast.Block) error {
	for _, s := range b.Stmts {
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkVarDef(n *ast.VarDef) error {
	initType, err := c.checkExpr(n.Init)
	if err != nil {
		return err
	}
	if n.Annotation != nil {
		if !initType.Fits(n.Annotation) {
			return diag.New(diag.Type, n.Loc, "initializer of type %s does not fit declared type %s", initType, n.Annotation)
		}
		if initType.Kind() == types.KindGeneric || initType == types.List(types.GENERIC) {
			n.Init.SetType(n.Annotation)
		}
	} else {
		if initType.Kind() == types.KindGeneric || initType == types.List(types.GENERIC) {
			return diag.New(diag.Type, n.Loc, "cannot infer type of %q from an empty list literal without an annotation", n.Name)
		}
		n.Annotation = initType
	}
	sym := c.declare(n.Name, n.Annotation)
	n.SymbolID = sym.ID
	return nil
}

func (c *Checker) checkIf(n *ast.If) error {
	condType, err := c.checkExpr(n.Cond)
	if err != nil {
		return err
	}
	if condType != types.BOOL {
		return diag.New(diag.Type, n.Cond.Location(), "if condition must be bool, got %s", condType)
	}
	if err := c.checkStmt(n.Then); err != nil {
		return err
	}
	if n.Else != nil {
		return c.checkStmt(n.Else)
	}
	return nil
}

func (c *Checker) checkWhile(n *ast.While) error {
	condType, err := c.checkExpr(n.Cond)
	if err != nil {
		return err
	}
	if condType != types.BOOL {
		return diag.New(diag.Type, n.Cond.Location(), "while condition must be bool, got %s", condType)
	}
	c.whileDepth++
	defer func() { c.whileDepth-- }()
	return c.checkStmt(n.Body)
}

func (c *Checker) checkReturn(n *ast.Return) error {
	if n.Expr == nil {
		if c.currentReturn != types.VOID {
			return diag.New(diag.Type, n.Loc, "bare return in a function declared to return %s", c.currentReturn)
		}
		return nil
	}
	t, err := c.checkExpr(n.Expr)
	if err != nil {
		return err
	}
	if !t.Fits(c.currentReturn) {
		return diag.New(diag.Type, n.Loc, "return value of type %s does not fit declared return type %s", t, c.currentReturn)
	}
	if t.Kind() == types.KindGeneric || t == types.List(types.GENERIC) {
		n.Expr.SetType(c.currentReturn)
	}
	return nil
}

//  expressions

func (c *Checker) checkExpr(e ast.Expr) (types.Type, error) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		n.SetType(types.INT)
	case *ast.FloatLiteral:
		n.SetType(types.FLOAT)
	case *ast.StringLiteral:
		n.SetType(types.STRING)
	case *ast.CharLiteral:
		n.SetType(types.CHAR)
	case *ast.BoolLiteral:
		n.SetType(types.BOOL)
	case *ast.Variable:
		return c.checkVariable(n)
	case *ast.Unary:
		return c.checkUnary(n)
	case *ast.Binary:
		return c.checkBinary(n)
	case *ast.Member:
		return c.checkMember(n)
	case *ast.Index:
		return c.checkIndex(n)
	case *ast.Call:
		return c.checkCall(n)
	case *ast.ListLiteral:
		return c.checkListLiteral(n)
	case *ast.Cast:
		return c.checkCast(n)
	default:
		return nil, diag.New(diag.Type, e.Location(), "unhandled expression kind %T", e)
	}
	return e.Type(), nil
}

func (c *Checker) checkVariable(n *ast.Variable) (types.Type, error) {
	sym, ok := c.lookup(n.Name)
	if !ok {
		return nil, diag.New(diag.Type, n.Loc, "undefined variable %q", n.Name)
	}
	n.SymbolID = sym.ID
	n.IsResolved = true
	n.SetType(sym.Type)
	return sym.Type, nil
}

func (c *Checker) checkUnary(n *ast.Unary) (types.Type, error) {
	operandType, err := c.checkExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	result, ok := types.LookupUnary(n.Op, operandType)
	if !ok {
		return nil, diag.New(diag.Type, n.Loc, "operator %s is not defined for %s", n.Op, operandType)
	}
	n.SetType(result)
	return result, nil
}

func (c *Checker) checkBinary(n *ast.Binary) (types.Type, error) {
	if n.Op == token.ASSIGN {
		return c.checkAssign(n)
	}
	leftType, err := c.checkExpr(n.Left)
	if err != nil {
		return nil, err
	}
	rightType, err := c.checkExpr(n.Right)
	if err != nil {
		return nil, err
	}
	result, ok := types.LookupBinary(n.Op, leftType, rightType)
	if !ok {
		return nil, diag.New(diag.Type, n.Loc, "operator %s is not defined for %s and %s", n.Op, leftType, rightType)
	}
	n.SetType(result)
	return result, nil
}

func (c *Checker) checkAssign(n *ast.Binary) (types.Type, error) {
	leftType, err := c.checkExpr(n.Left)
	if err != nil {
		return nil, err
	}
	if !isLvalue(n.Left) {
		return nil, diag.New(diag.Type, n.Loc, "left side of assignment is not an lvalue")
	}
	rightType, err := c.checkExpr(n.Right)
	if err != nil {
		return nil, err
	}
	if !rightType.Fits(leftType) {
		return nil, diag.New(diag.Type, n.Loc, "value of type %s does not fit %s", rightType, leftType)
	}
	if rightType.Kind() == types.KindGeneric || rightType == types.List(types.GENERIC) {
		n.Right.SetType(leftType)
	}
	n.SetType(leftType)
	return leftType, nil
}

// isLvalue implements spec §4.4's lvalue rule: variables are always
// lvalues; member/index accesses are lvalues exactly when checkMember/
// checkIndex found them writable, which they recorded on the node.
func isLvalue(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Variable:
		return true
	case *ast.Member:
		return n.Writable
	case *ast.Index:
		return n.Writable
	default:
		return false
	}
}

func (c *Checker) checkMember(n *ast.Member) (types.Type, error) {
	recvType, err := c.checkExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	field, ok := recvType.Field(n.Name)
	if !ok || field.Access == types.Internal {
		return nil, diag.New(diag.Type, n.Loc, "%s has no accessible field %q", recvType, n.Name)
	}
	n.Offset = field.Offset
	n.Writable = field.Access == types.ReadWrite
	n.ByteSized = field.Type.ByteSize() == 1
	n.IsObject = field.Type.IsObject()
	n.SetType(field.Type)
	return field.Type, nil
}

func (c *Checker) checkIndex(n *ast.Index) (types.Type, error) {
	recvType, err := c.checkExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	field, ok := recvType.Field("@index")
	if !ok {
		return nil, diag.New(diag.Type, n.Loc, "%s does not support indexing", recvType)
	}
	idxType, err := c.checkExpr(n.IndexExpr)
	if err != nil {
		return nil, err
	}
	if !idxType.Fits(types.INT) {
		return nil, diag.New(diag.Type, n.IndexExpr.Location(), "index must be int, got %s", idxType)
	}
	dataField, _ := recvType.Field("data")
	n.ElemOffset = dataField.Offset
	n.Writable = field.Access == types.ReadWrite
	n.ByteSized = field.Type.ByteSize() == 1
	n.IsObject = field.Type.IsObject()
	n.SetType(field.Type)
	return field.Type, nil
}

func (c *Checker) checkCall(n *ast.Call) (types.Type, error) {
	var funcName string
	var prepend ast.Expr

	switch callee := n.Callee.(type) {
	case *ast.Variable:
		funcName = callee.Name
	case *ast.Member:
		funcName = callee.Name
		prepend = callee.Receiver
	default:
		return nil, diag.New(diag.Type, n.Loc, "expression is not callable")
	}

	sym, ok := c.funcs[funcName]
	if !ok {
		return nil, diag.New(diag.Type, n.Loc, "call to undefined function %q", funcName)
	}

	args := n.Args
	if prepend != nil {
		args = append([]ast.Expr{prepend}, args...)
	}
	if len(args) != len(sym.Params) {
		return nil, diag.New(diag.Type, n.Loc, "function %q expects %d argument(s), got %d", funcName, len(sym.Params), len(args))
	}
	for i, a := range args {
		at, err := c.checkExpr(a)
		if err != nil {
			return nil, err
		}
		if !at.Fits(sym.Params[i]) {
			return nil, diag.New(diag.Type, a.Location(), "argument %d of type %s does not fit parameter type %s", i+1, at, sym.Params[i])
		}
		if at.Kind() == types.KindGeneric || at == types.List(types.GENERIC) {
			a.SetType(sym.Params[i])
		}
	}
	n.Args = args
	n.FuncID = sym.ID
	n.IsNative = sym.IsNative
	n.IsResolved = true
	n.SetType(sym.ReturnType)
	return sym.ReturnType, nil
}

func (c *Checker) checkListLiteral(n *ast.ListLiteral) (types.Type, error) {
	if len(n.Elements) == 0 {
		n.SetType(types.List(types.GENERIC))
		return n.Type(), nil
	}
	elemType, err := c.checkExpr(n.Elements[0])
	if err != nil {
		return nil, err
	}
	if elemType == types.VOID {
		return nil, diag.New(diag.Type, n.Elements[0].Location(), "list element may not be void")
	}
	for _, el := range n.Elements[1:] {
		t, err := c.checkExpr(el)
		if err != nil {
			return nil, err
		}
		if !t.Fits(elemType) {
			return nil, diag.New(diag.Type, el.Location(), "list element of type %s does not fit %s", t, elemType)
		}
	}
	listType := types.List(elemType)
	n.SetType(listType)
	return listType, nil
}

func (c *Checker) checkCast(n *ast.Cast) (types.Type, error) {
	operandType, err := c.checkExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	if operandType.Fits(n.TargetType) {
		if operandType.Kind() == types.KindGeneric || operandType == types.List(types.GENERIC) {
			n.Operand.SetType(n.TargetType)
		}
		n.SetType(n.TargetType)
		return n.TargetType, nil
	}
	if !types.CastAllowed(operandType, n.TargetType) {
		return nil, diag.New(diag.Type, n.Loc, "cannot cast %s to %s", operandType, n.TargetType)
	}
	n.SetType(n.TargetType)
	return n.TargetType, nil
}
