package codegen

import (
	"math"

	"github.com/sasalla23/ni/pkg/ast"
	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/token"
	"github.com/sasalla23/ni/pkg/types"
)

// CodeGen accumulates the flat instruction vector and static-data
// section for one file. It is single-use: construct with Generate.
type CodeGen struct {
	instructions []Instruction
	staticData   []byte

	nextLabel  int
	funcLabels map[int]int // ast.FunctionDef.FuncID -> entry label id
	mainFuncID int

	nextTemp      int // per-function temp-local allocator, reset in genFunction
	currentIsMain bool

	breakLabel, continueLabel int // -1 when not inside a while
}

// Generate lowers a checked file into a flat instruction vector and
// static-data section (spec §4.5).
func Generate(file *ast.File) ([]Instruction, []byte, error) {
	g := &CodeGen{
		funcLabels:    map[int]int{},
		mainFuncID:    -1,
		breakLabel:    -1,
		continueLabel: -1,
	}
	for _, fn := range file.Functions {
		g.funcLabels[fn.FuncID] = g.newLabel()
		if fn.Name == "main" {
			g.mainFuncID = fn.FuncID
		}
	}
	for _, fn := range file.Functions {
		if err := g.genFunction(fn); err != nil {
			return nil, nil, err
		}
	}
	if g.mainFuncID == -1 {
		return nil, nil, diag.New(diag.Generation, diag.Location{}, "no function named \"main\"")
	}
	mainLabel := g.funcLabels[g.mainFuncID]
	g.instructions = append([]Instruction{{Op: JUMP, Operand: int64(mainLabel)}}, g.instructions...)

	if err := g.finalize(); err != nil {
		return nil, nil, err
	}
	return g.instructions, g.staticData, nil
}

//  low-level emitters

func (g *CodeGen) emit0(op Op) {
	g.instructions = append(g.instructions, Instruction{Op: op})
}

func (g *CodeGen) emit1(op Op, operand int64) {
	g.instructions = append(g.instructions, Instruction{Op: op, Operand: operand})
}

func (g *CodeGen) emitFlag(op Op, flag bool) {
	g.instructions = append(g.instructions, Instruction{Op: op, Flag: flag})
}

func (g *CodeGen) newLabel() int {
	id := g.nextLabel
	g.nextLabel++
	return id
}

func (g *CodeGen) emitLabel(id int) {
	g.emit1(LABEL, int64(id))
}

func (g *CodeGen) allocTemp() int {
	id := g.nextTemp
	g.nextTemp++
	return id
}

//  functions

func (g *CodeGen) genFunction(fn *ast.FunctionDef) error {
	g.nextTemp = fn.LocalCount
	g.currentIsMain = fn.Name == "main"

	g.emitLabel(g.funcLabels[fn.FuncID])
	for i := len(fn.Args) - 1; i >= 0; i-- {
		g.emit1(VWRITE, int64(i))
	}
	if err := g.genBlock(fn.Body); err != nil {
		return err
	}
	if g.currentIsMain {
		g.emit0(HALT)
	} else {
		g.emit0(RET)
	}
	return nil
}

//  statements

func (g *CodeGen) genBlock(b *ast.Block) error {
	for _, s := range b.Stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *CodeGen) genStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Block:
		return g.genBlock(n)
	case *ast.VarDef:
		if err := g.genExpr(n.Init); err != nil {
			return err
		}
		g.emit1(VWRITE, int64(n.SymbolID))
		return nil
	case *ast.ExprStmt:
		if err := g.genExpr(n.Expr); err != nil {
			return err
		}
		if n.Expr.Type() != types.VOID {
			g.emit0(POP)
		}
		return nil
	case *ast.If:
		return g.genIf(n)
	case *ast.While:
		return g.genWhile(n)
	case *ast.Break:
		if g.breakLabel == -1 {
			return diag.New(diag.Generation, n.Loc, "break outside a loop")
		}
		g.emit1(JUMP, int64(g.breakLabel))
		return nil
	case *ast.Continue:
		if g.continueLabel == -1 {
			return diag.New(diag.Generation, n.Loc, "continue outside a loop")
		}
		g.emit1(JUMP, int64(g.continueLabel))
		return nil
	case *ast.Return:
		if n.Expr != nil {
			if err := g.genExpr(n.Expr); err != nil {
				return err
			}
		}
		if g.currentIsMain {
			g.emit0(HALT)
		} else {
			g.emit0(RET)
		}
		return nil
	default:
		return diag.New(diag.Generation, s.Location(), "unhandled statement kind %T", s)
	}
}

func (g *CodeGen) genIf(n *ast.If) error {
	thenLbl, endLbl := g.newLabel(), g.newLabel()
	if n.Else == nil {
		if err := g.genCondition(n.Cond, endLbl, thenLbl); err != nil {
			return err
		}
		g.emitLabel(thenLbl)
		if err := g.genStmt(n.Then); err != nil {
			return err
		}
		g.emitLabel(endLbl)
		return nil
	}
	elseLbl := g.newLabel()
	if err := g.genCondition(n.Cond, elseLbl, thenLbl); err != nil {
		return err
	}
	g.emitLabel(thenLbl)
	if err := g.genStmt(n.Then); err != nil {
		return err
	}
	g.emit1(JUMP, int64(endLbl))
	g.emitLabel(elseLbl)
	if err := g.genStmt(n.Else); err != nil {
		return err
	}
	g.emitLabel(endLbl)
	return nil
}

func (g *CodeGen) genWhile(n *ast.While) error {
	savedBreak, savedContinue := g.breakLabel, g.continueLabel
	continueLbl, afterCondLbl, breakLbl := g.newLabel(), g.newLabel(), g.newLabel()
	g.breakLabel, g.continueLabel = breakLbl, continueLbl

	g.emitLabel(continueLbl)
	if err := g.genCondition(n.Cond, breakLbl, afterCondLbl); err != nil {
		return err
	}
	g.emitLabel(afterCondLbl)
	if err := g.genStmt(n.Body); err != nil {
		return err
	}
	g.emit1(JUMP, int64(continueLbl))
	g.emitLabel(breakLbl)

	g.breakLabel, g.continueLabel = savedBreak, savedContinue
	return nil
}

//  expressions: plain value-producing emit

func (g *CodeGen) genExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IntLiteral:
		g.emit1(PUSH, n.Value)
		return nil
	case *ast.FloatLiteral:
		g.emit1(PUSH, int64(math.Float64bits(n.Value)))
		return nil
	case *ast.BoolLiteral:
		if n.Value {
			g.emit1(PUSH, 1)
		} else {
			g.emit1(PUSH, 0)
		}
		return nil
	case *ast.CharLiteral:
		return g.genCharLiteral(n)
	case *ast.StringLiteral:
		return g.genStringLiteral(n)
	case *ast.Variable:
		g.emit1(VLOAD, int64(n.SymbolID))
		return nil
	case *ast.Unary:
		return g.genUnaryValue(n)
	case *ast.Binary:
		return g.genBinaryValue(n)
	case *ast.Member:
		return g.genMember(n)
	case *ast.Index:
		return g.genIndex(n)
	case *ast.Call:
		return g.genCall(n)
	case *ast.ListLiteral:
		return g.genListLiteral(n)
	case *ast.Cast:
		// Cast is a no-op in code generation: the checker's GENERIC
		// replacement already gave empty-list literals a concrete
		// type, and every other allowed cast pair is left as a
		// transparent reinterpretation of the same operand value.
		return g.genExpr(n.Operand)
	default:
		return diag.New(diag.Generation, e.Location(), "unhandled expression kind %T", e)
	}
}

func isConditionOp(op token.Type) bool {
	switch op {
	case token.EQ, token.NOT_EQ, token.LESS, token.LESS_EQ, token.GREATER, token.GREATER_EQ,
		token.AND_AND, token.OR_OR:
		return true
	default:
		return false
	}
}

// genBoolValue materializes a condition-typed expression into a 0/1
// value: the "emit in terms of emit_condition" half of the duality
// (spec §4.5).
func (g *CodeGen) genBoolValue(e ast.Expr) error {
	falseLbl, trueLbl, endLbl := g.newLabel(), g.newLabel(), g.newLabel()
	if err := g.genCondition(e, falseLbl, trueLbl); err != nil {
		return err
	}
	g.emitLabel(trueLbl)
	g.emit1(PUSH, 1)
	g.emit1(JUMP, int64(endLbl))
	g.emitLabel(falseLbl)
	g.emit1(PUSH, 0)
	g.emitLabel(endLbl)
	return nil
}

func (g *CodeGen) genUnaryValue(n *ast.Unary) error {
	if n.Op == token.BANG {
		return g.genBoolValue(n)
	}
	isFloat := n.Operand.Type() == types.FLOAT
	switch n.Op {
	case token.PLUS:
		return g.genExpr(n.Operand)
	case token.MINUS:
		if isFloat {
			g.emit1(PUSH, int64(math.Float64bits(0)))
		} else {
			g.emit1(PUSH, 0)
		}
		if err := g.genExpr(n.Operand); err != nil {
			return err
		}
		if isFloat {
			g.emit0(FSUB)
		} else {
			g.emit0(ISUB)
		}
		return nil
	case token.TILDE:
		if err := g.genExpr(n.Operand); err != nil {
			return err
		}
		g.emit1(PUSH, -1)
		g.emit0(IXOR)
		return nil
	default:
		return diag.New(diag.Generation, n.Loc, "unhandled unary operator %s", n.Op)
	}
}

func (g *CodeGen) genBinaryValue(n *ast.Binary) error {
	if n.Op == token.ASSIGN {
		return g.genAssign(n)
	}
	if isConditionOp(n.Op) {
		return g.genBoolValue(n)
	}
	if err := g.genExpr(n.Left); err != nil {
		return err
	}
	if err := g.genExpr(n.Right); err != nil {
		return err
	}
	isFloat := n.Left.Type() == types.FLOAT
	var op Op
	switch n.Op {
	case token.PLUS:
		op = pick(isFloat, FADD, IADD)
	case token.MINUS:
		op = pick(isFloat, FSUB, ISUB)
	case token.STAR:
		op = pick(isFloat, FMUL, IMUL)
	case token.SLASH:
		op = pick(isFloat, FDIV, IDIV)
	case token.PERCENT:
		op = IMOD
	case token.SHL:
		op = ISHL
	case token.SHR:
		op = ISHR
	case token.AMP:
		op = IAND
	case token.PIPE:
		op = IOR
	case token.CARET:
		op = IXOR
	default:
		return diag.New(diag.Generation, n.Loc, "unhandled binary operator %s", n.Op)
	}
	g.emit0(op)
	return nil
}

func pick(cond bool, a, b Op) Op {
	if cond {
		return a
	}
	return b
}

func (g *CodeGen) genAssign(n *ast.Binary) error {
	target, ok := n.Left.(*ast.Variable)
	if !ok {
		return diag.New(diag.Generation, n.Loc, "assignment to member or index expressions is not yet supported by the code generator")
	}
	if err := g.genExpr(n.Right); err != nil {
		return err
	}
	g.emit0(DUP)
	g.emit1(VWRITE, int64(target.SymbolID))
	return nil
}

func (g *CodeGen) genMember(n *ast.Member) error {
	if err := g.genExpr(n.Receiver); err != nil {
		return err
	}
	g.emit1(PUSH, int64(n.Offset))
	g.emit0(PADD)
	if n.ByteSized {
		g.emit0(READB)
	} else {
		g.emitFlag(READW, n.IsObject)
	}
	return nil
}

func (g *CodeGen) genIndex(n *ast.Index) error {
	if err := g.genExpr(n.Receiver); err != nil {
		return err
	}
	g.emit1(PUSH, int64(n.ElemOffset))
	g.emit0(PADD)
	g.emitFlag(READW, true) // the @index-backing "data" field always holds an object pointer
	if err := g.genExpr(n.IndexExpr); err != nil {
		return err
	}
	elemSize := 8
	if n.ByteSized {
		elemSize = 1
	}
	g.emit1(PUSH, int64(elemSize))
	g.emit0(IMUL)
	g.emit0(PADD)
	if n.ByteSized {
		g.emit0(READB)
	} else {
		g.emitFlag(READW, n.IsObject)
	}
	return nil
}

func (g *CodeGen) genCall(n *ast.Call) error {
	for _, a := range n.Args {
		if err := g.genExpr(a); err != nil {
			return err
		}
	}
	if n.IsNative {
		g.emit1(NATIVE, int64(n.FuncID))
	} else {
		g.emit1(CALL, int64(g.funcLabels[n.FuncID]))
	}
	return nil
}

func (g *CodeGen) genListLiteral(n *ast.ListLiteral) error {
	innerType, ok := types.Inner(n.Type())
	if !ok {
		return diag.New(diag.Generation, n.Loc, "internal error: list literal resolved to non-list type %s", n.Type())
	}
	elemLayout := types.ElementLayout(innerType)
	elemSize := types.Layouts[elemLayout].Size
	elemByteSized := innerType.ByteSize() == 1

	count := len(n.Elements)
	capacity := count * 2

	tList := g.allocTemp()
	tData := g.allocTemp()

	g.emit1(PUSH, 1)
	g.emit1(HALLOC, int64(types.LIST_LAYOUT))
	g.emit1(VWRITE, int64(tList))

	g.emit1(VLOAD, int64(tList))
	g.emit1(PUSH, int64(count))
	g.emit0(WRITEW) // length @ +0

	g.emit1(VLOAD, int64(tList))
	g.emit1(PUSH, 8)
	g.emit0(PADD)
	g.emit1(PUSH, int64(capacity))
	g.emit0(WRITEW) // capacity @ +8

	g.emit1(PUSH, int64(capacity))
	g.emit1(HALLOC, int64(elemLayout))
	g.emit1(VWRITE, int64(tData))

	g.emit1(VLOAD, int64(tList))
	g.emit1(PUSH, 16)
	g.emit0(PADD)
	g.emit1(VLOAD, int64(tData))
	g.emit0(WRITEW) // data pointer @ +16

	for i, el := range n.Elements {
		g.emit1(VLOAD, int64(tData))
		g.emit1(PUSH, int64(i*elemSize))
		g.emit0(PADD)
		if err := g.genExpr(el); err != nil {
			return err
		}
		if elemByteSized {
			g.emit0(WRITEB)
		} else {
			g.emit0(WRITEW)
		}
	}

	g.emit1(VLOAD, int64(tList))
	return nil
}

//  boolean condition-context emit

func (g *CodeGen) genCondition(e ast.Expr, falseLbl, trueLbl int) error {
	switch n := e.(type) {
	case *ast.Unary:
		if n.Op == token.BANG {
			return g.genCondition(n.Operand, trueLbl, falseLbl)
		}
	case *ast.Binary:
		switch n.Op {
		case token.AND_AND:
			mid := g.newLabel()
			if err := g.genCondition(n.Left, falseLbl, mid); err != nil {
				return err
			}
			g.emitLabel(mid)
			return g.genCondition(n.Right, falseLbl, trueLbl)
		case token.OR_OR:
			mid := g.newLabel()
			if err := g.genCondition(n.Left, mid, trueLbl); err != nil {
				return err
			}
			g.emitLabel(mid)
			return g.genCondition(n.Right, falseLbl, trueLbl)
		case token.EQ, token.NOT_EQ, token.LESS, token.LESS_EQ, token.GREATER, token.GREATER_EQ:
			return g.genComparisonCondition(n, falseLbl, trueLbl)
		}
	}
	// Generic fallback for anything without a natural branch form
	// (literals, variables, member/index/call/cast): materialize the
	// value and branch on it.
	if err := g.genExpr(e); err != nil {
		return err
	}
	g.emit1(JEQZ, int64(falseLbl))
	g.emit1(JUMP, int64(trueLbl))
	return nil
}

// genComparisonCondition lowers a comparison by emitting its inverted
// jump directly (spec §4.5): to jump-if-false on "a < b", emit a, b,
// then JIGE false; JUMP true.
func (g *CodeGen) genComparisonCondition(n *ast.Binary, falseLbl, trueLbl int) error {
	if err := g.genExpr(n.Left); err != nil {
		return err
	}
	if err := g.genExpr(n.Right); err != nil {
		return err
	}
	isFloat := n.Left.Type() == types.FLOAT
	var inverted Op
	switch n.Op {
	case token.EQ:
		inverted = JNEQ
	case token.NOT_EQ:
		inverted = JEQ
	case token.LESS:
		inverted = pick(isFloat, JFGE, JIGE)
	case token.LESS_EQ:
		inverted = pick(isFloat, JFGT, JIGT)
	case token.GREATER:
		inverted = pick(isFloat, JFLE, JILE)
	case token.GREATER_EQ:
		inverted = pick(isFloat, JFLT, JILT)
	default:
		return diag.New(diag.Generation, n.Loc, "unhandled comparison operator %s", n.Op)
	}
	g.emit1(inverted, int64(falseLbl))
	g.emit1(JUMP, int64(trueLbl))
	return nil
}

//  literal helpers

func (g *CodeGen) genCharLiteral(n *ast.CharLiteral) error {
	bytes, err := decodeEscapes(n.Value, n.Loc)
	if err != nil {
		return err
	}
	if len(bytes) != 1 {
		return diag.New(diag.Generation, n.Loc, "character literal must decode to exactly one byte, got %d", len(bytes))
	}
	g.emit1(PUSH, int64(bytes[0]))
	return nil
}

func (g *CodeGen) genStringLiteral(n *ast.StringLiteral) error {
	bytes, err := decodeEscapes(n.Value, n.Loc)
	if err != nil {
		return err
	}
	offset := len(g.staticData)
	g.staticData = append(g.staticData, bytes...)

	tPtr := g.allocTemp()
	g.emit1(PUSH, 1)
	g.emit1(HALLOC, int64(types.STRING_LAYOUT))
	g.emit1(VWRITE, int64(tPtr))

	g.emit1(VLOAD, int64(tPtr))
	g.emit1(PUSH, int64(len(bytes)))
	g.emit0(WRITEW) // length @ +0

	g.emit1(VLOAD, int64(tPtr))
	g.emit1(PUSH, 8)
	g.emit0(PADD)
	g.emit1(SPTR, int64(offset))
	g.emit0(WRITEW) // data @ +8

	g.emit1(VLOAD, int64(tPtr))
	return nil
}

// decodeEscapes resolves the backslash escapes spec §4.1 defers to the
// code generator. Any other backslash escape is a generation error.
func decodeEscapes(raw string, loc diag.Location) ([]byte, error) {
	runes := []rune(raw)
	var out []byte
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			out = append(out, byte(r))
			continue
		}
		i++
		if i >= len(runes) {
			return nil, diag.New(diag.Generation, loc, "incomplete escape sequence")
		}
		switch runes[i] {
		case '\'':
			out = append(out, '\'')
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'v':
			out = append(out, '\v')
		default:
			return nil, diag.New(diag.Generation, loc, "invalid escape sequence '\\%c'", runes[i])
		}
	}
	return out, nil
}

// finalize resolves every label id referenced by the jump family
// (including CALL) into the absolute instruction index of its LABEL,
// by scanning once for LABEL instructions.
func (g *CodeGen) finalize() error {
	labelIndex := map[int64]int{}
	for i, ins := range g.instructions {
		if ins.Op == LABEL {
			labelIndex[ins.Operand] = i
		}
	}
	for i, ins := range g.instructions {
		if !ins.Op.isJumpFamily() {
			continue
		}
		target, ok := labelIndex[ins.Operand]
		if !ok {
			return diag.New(diag.Generation, diag.Location{}, "unresolved label %d referenced by %s", ins.Operand, ins.Op)
		}
		g.instructions[i].Operand = int64(target)
	}
	return nil
}
