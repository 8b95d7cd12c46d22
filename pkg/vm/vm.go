// Package vm executes the flat instruction vector pkg/codegen produces
// (spec §4.6): a stack machine with tagged stack cells, a monotonic
// locals array sliced into per-call frames, and a bump-allocated heap.
package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/sasalla23/ni/pkg/codegen"
	"github.com/sasalla23/ni/pkg/diag"
	"github.com/sasalla23/ni/pkg/natives"
	"github.com/sasalla23/ni/pkg/types"
)

// CellKind distinguishes a heap pointer from a plain value; the VM
// preserves it across VLOAD/VWRITE and DUP moves untouched.
type CellKind int

const (
	Primitive CellKind = iota
	Object
)

// StackCell is the VM's tagged word: a 64-bit union interpretable as a
// signed int, an IEEE-754 double's bit pattern, or a heap address.
type StackCell struct {
	Kind CellKind
	Word int64
}

type frame struct {
	returnIP   int
	localsBase int
}

// heapBase separates heap addresses from static-data offsets in the
// same address space: SPTR pushes small offsets into static_data,
// HALLOC pushes heapBase-relative offsets into the bump-allocated
// heap, and every memory op tells them apart by magnitude alone.
const heapBase = int64(1) << 40

// VM holds one program's execution state. Construct with New and run
// to completion with Run; a VM is single-use.
type VM struct {
	program []codegen.Instruction
	static  []byte
	heap    []byte

	ip           int
	operandStack []StackCell
	locals       []StackCell
	callStack    []frame

	// Stdout is where native print/print_line write. Defaults to
	// os.Stdout when nil.
	Stdout io.Writer
}

// New constructs a VM ready to execute program against static_data.
func New(program []codegen.Instruction, staticData []byte) *VM {
	return &VM{program: program, static: staticData}
}

func (v *VM) stdout() io.Writer {
	if v.Stdout != nil {
		return v.Stdout
	}
	return os.Stdout
}

//  stack and locals

func (v *VM) push(c StackCell) {
	v.operandStack = append(v.operandStack, c)
}

func (v *VM) pop() StackCell {
	n := len(v.operandStack) - 1
	c := v.operandStack[n]
	v.operandStack = v.operandStack[:n]
	return c
}

func (v *VM) top() StackCell {
	return v.operandStack[len(v.operandStack)-1]
}

func (v *VM) localsBase() int {
	if len(v.callStack) == 0 {
		return 0
	}
	return v.callStack[len(v.callStack)-1].localsBase
}

//  memory

func (v *VM) memAt(addr int64) ([]byte, int64) {
	if addr >= heapBase {
		return v.heap, addr - heapBase
	}
	return v.static, addr
}

func (v *VM) readByte(addr int64) byte {
	buf, idx := v.memAt(addr)
	return buf[idx]
}

func (v *VM) readWord(addr int64) int64 {
	buf, idx := v.memAt(addr)
	return int64(binary.LittleEndian.Uint64(buf[idx : idx+8]))
}

func (v *VM) writeByte(addr int64, b byte) {
	buf, idx := v.memAt(addr)
	buf[idx] = b
}

func (v *VM) writeWord(addr int64, w int64) {
	buf, idx := v.memAt(addr)
	binary.LittleEndian.PutUint64(buf[idx:idx+8], uint64(w))
}

// alloc bump-allocates count units of tag's layout and returns the
// heap address of the first one (spec §4.6's HALLOC).
func (v *VM) alloc(tag types.LayoutTag, count int) int64 {
	size := types.Layouts[tag].Size * count
	ptr := heapBase + int64(len(v.heap))
	v.heap = append(v.heap, make([]byte, size)...)
	return ptr
}

// allocString heap-allocates a STRING object with the given bytes and
// returns its pointer, going through the same HALLOC-shaped path the
// emitter uses so field offsets stay consistent (spec §4.6).
func (v *VM) allocString(data []byte) int64 {
	strPtr := v.alloc(types.STRING_LAYOUT, 1)
	v.writeWord(strPtr, int64(len(data)))
	dataPtr := v.alloc(types.CHAR_LAYOUT, len(data))
	for i, b := range data {
		v.writeByte(dataPtr+int64(i), b)
	}
	v.writeWord(strPtr+8, dataPtr)
	return strPtr
}

// allocCharList heap-allocates a LIST(CHAR) holding the given bytes.
func (v *VM) allocCharList(data []byte) int64 {
	listPtr := v.alloc(types.LIST_LAYOUT, 1)
	v.writeWord(listPtr, int64(len(data)))
	v.writeWord(listPtr+8, int64(len(data)))
	dataPtr := v.alloc(types.CHAR_LAYOUT, len(data))
	for i, b := range data {
		v.writeByte(dataPtr+int64(i), b)
	}
	v.writeWord(listPtr+16, dataPtr)
	return listPtr
}

func (v *VM) readStringBytes(ptr int64) []byte {
	length := v.readWord(ptr)
	dataPtr := v.readWord(ptr + 8)
	out := make([]byte, length)
	for i := range out {
		out[i] = v.readByte(dataPtr + int64(i))
	}
	return out
}

func (v *VM) readCharListBytes(ptr int64) []byte {
	length := v.readWord(ptr)
	dataPtr := v.readWord(ptr + 16)
	out := make([]byte, length)
	for i := range out {
		out[i] = v.readByte(dataPtr + int64(i))
	}
	return out
}

// loc synthesizes a diagnostic location from the current instruction
// pointer: bytecode carries no source positions, but a RUNTIME_ERROR
// still needs somewhere to point (spec §9's open question on div/mod
// by zero, resolved in favor of a uniform diagnostic across stages).
func (v *VM) loc() diag.Location {
	return diag.Location{FileName: "<bytecode>", Row: v.ip}
}

// Disassemble renders the program as one mnemonic per line, purely as
// a debugging aid with no effect on execution.
func (v *VM) Disassemble() string {
	var b strings.Builder
	for i, instr := range v.program {
		fmt.Fprintf(&b, "%4d  %s\n", i, instr)
	}
	return b.String()
}

//  execution

// Run executes the program to completion (a HALT instruction) and
// returns a RUNTIME_ERROR diagnostic on the first fault.
func (v *VM) Run() error {
	for {
		if v.ip < 0 || v.ip >= len(v.program) {
			return diag.New(diag.Runtime, v.loc(), "instruction pointer %d out of range", v.ip)
		}
		instr := v.program[v.ip]
		switch instr.Op {
		case codegen.LABEL:
			v.ip++
		case codegen.JUMP:
			v.ip = int(instr.Operand)
		case codegen.HALT:
			return nil
		case codegen.CALL:
			v.callStack = append(v.callStack, frame{returnIP: v.ip + 1, localsBase: len(v.locals)})
			v.ip = int(instr.Operand)
		case codegen.RET:
			if len(v.callStack) == 0 {
				return diag.New(diag.Runtime, v.loc(), "return with no active call frame")
			}
			fr := v.callStack[len(v.callStack)-1]
			v.callStack = v.callStack[:len(v.callStack)-1]
			v.ip = fr.returnIP
		case codegen.NATIVE:
			if err := v.dispatchNative(int(instr.Operand)); err != nil {
				return err
			}
			v.ip++

		case codegen.PUSH:
			v.push(StackCell{Kind: Primitive, Word: instr.Operand})
			v.ip++
		case codegen.DUP:
			v.push(v.top())
			v.ip++
		case codegen.POP:
			v.pop()
			v.ip++

		case codegen.VLOAD:
			v.push(v.locals[v.localsBase()+int(instr.Operand)])
			v.ip++
		case codegen.VWRITE:
			idx := v.localsBase() + int(instr.Operand)
			for len(v.locals) <= idx {
				v.locals = append(v.locals, StackCell{Kind: Primitive})
			}
			v.locals[idx] = v.pop()
			v.ip++

		case codegen.HALLOC:
			count := v.pop().Word
			ptr := v.alloc(types.LayoutTag(instr.Operand), int(count))
			v.push(StackCell{Kind: Object, Word: ptr})
			v.ip++
		case codegen.READB:
			ptr := v.pop().Word
			v.push(StackCell{Kind: Primitive, Word: int64(v.readByte(ptr))})
			v.ip++
		case codegen.READW:
			ptr := v.pop().Word
			kind := Primitive
			if instr.Flag {
				kind = Object
			}
			v.push(StackCell{Kind: kind, Word: v.readWord(ptr)})
			v.ip++
		case codegen.WRITEB:
			value := v.pop().Word
			ptr := v.pop().Word
			v.writeByte(ptr, byte(value))
			v.ip++
		case codegen.WRITEW:
			value := v.pop().Word
			ptr := v.pop().Word
			v.writeWord(ptr, value)
			v.ip++
		case codegen.PADD:
			offset := v.pop().Word
			ptr := v.pop().Word
			v.push(StackCell{Kind: Object, Word: ptr + offset})
			v.ip++
		case codegen.SPTR:
			v.push(StackCell{Kind: Object, Word: instr.Operand})
			v.ip++

		case codegen.JEQZ:
			if v.pop().Word == 0 {
				v.ip = int(instr.Operand)
			} else {
				v.ip++
			}
		case codegen.JEQ:
			b, a := v.pop().Word, v.pop().Word
			v.branch(a == b, int(instr.Operand))
		case codegen.JNEQ:
			b, a := v.pop().Word, v.pop().Word
			v.branch(a != b, int(instr.Operand))
		case codegen.JILT:
			b, a := v.pop().Word, v.pop().Word
			v.branch(a < b, int(instr.Operand))
		case codegen.JILE:
			b, a := v.pop().Word, v.pop().Word
			v.branch(a <= b, int(instr.Operand))
		case codegen.JIGT:
			b, a := v.pop().Word, v.pop().Word
			v.branch(a > b, int(instr.Operand))
		case codegen.JIGE:
			b, a := v.pop().Word, v.pop().Word
			v.branch(a >= b, int(instr.Operand))
		case codegen.JFLT:
			b, a := v.popFloat(), v.popFloat()
			v.branch(a < b, int(instr.Operand))
		case codegen.JFLE:
			b, a := v.popFloat(), v.popFloat()
			v.branch(a <= b, int(instr.Operand))
		case codegen.JFGT:
			b, a := v.popFloat(), v.popFloat()
			v.branch(a > b, int(instr.Operand))
		case codegen.JFGE:
			b, a := v.popFloat(), v.popFloat()
			v.branch(a >= b, int(instr.Operand))

		case codegen.IADD, codegen.ISUB, codegen.IMUL, codegen.IDIV, codegen.IMOD,
			codegen.ISHL, codegen.ISHR, codegen.IAND, codegen.IOR, codegen.IXOR:
			if err := v.intArith(instr.Op); err != nil {
				return err
			}
			v.ip++
		case codegen.FADD, codegen.FSUB, codegen.FMUL, codegen.FDIV:
			if err := v.floatArith(instr.Op); err != nil {
				return err
			}
			v.ip++

		default:
			return diag.New(diag.Runtime, v.loc(), "unhandled instruction %s", instr.Op)
		}
	}
}

func (v *VM) branch(cond bool, target int) {
	if cond {
		v.ip = target
	} else {
		v.ip++
	}
}

func (v *VM) popFloat() float64 {
	return math.Float64frombits(uint64(v.pop().Word))
}

func (v *VM) pushFloat(f float64) {
	v.push(StackCell{Kind: Primitive, Word: int64(math.Float64bits(f))})
}

func (v *VM) intArith(op codegen.Op) error {
	b, a := v.pop().Word, v.pop().Word
	var result int64
	switch op {
	case codegen.IADD:
		result = a + b
	case codegen.ISUB:
		result = a - b
	case codegen.IMUL:
		result = a * b
	case codegen.IDIV:
		if b == 0 {
			return diag.New(diag.Runtime, v.loc(), "integer division by zero")
		}
		result = a / b
	case codegen.IMOD:
		if b == 0 {
			return diag.New(diag.Runtime, v.loc(), "integer modulo by zero")
		}
		result = a % b
	case codegen.ISHL:
		result = a << uint(b&63)
	case codegen.ISHR:
		result = a >> uint(b&63)
	case codegen.IAND:
		result = a & b
	case codegen.IOR:
		result = a | b
	case codegen.IXOR:
		result = a ^ b
	}
	v.push(StackCell{Kind: Primitive, Word: result})
	return nil
}

func (v *VM) floatArith(op codegen.Op) error {
	b, a := v.popFloat(), v.popFloat()
	var result float64
	switch op {
	case codegen.FADD:
		result = a + b
	case codegen.FSUB:
		result = a - b
	case codegen.FMUL:
		result = a * b
	case codegen.FDIV:
		if b == 0 {
			return diag.New(diag.Runtime, v.loc(), "floating point division by zero")
		}
		result = a / b
	}
	v.pushFloat(result)
	return nil
}

//  natives

func (v *VM) dispatchNative(id int) error {
	switch id {
	case natives.Print:
		io.WriteString(v.stdout(), string(v.readStringBytes(v.pop().Word)))
	case natives.PrintLine:
		io.WriteString(v.stdout(), string(v.readStringBytes(v.pop().Word))+"\n")
	case natives.IntToString:
		n := v.pop().Word
		v.push(StackCell{Kind: Object, Word: v.allocString([]byte(formatInt(n)))})
	case natives.CharToString:
		c := byte(v.pop().Word)
		v.push(StackCell{Kind: Object, Word: v.allocString([]byte{c})})
	case natives.StringToCharList:
		bytes := v.readStringBytes(v.pop().Word)
		v.push(StackCell{Kind: Object, Word: v.allocCharList(bytes)})
	case natives.CharListToString:
		bytes := v.readCharListBytes(v.pop().Word)
		v.push(StackCell{Kind: Object, Word: v.allocString(bytes)})
	case natives.FloatToString:
		f := v.popFloat()
		v.push(StackCell{Kind: Object, Word: v.allocString([]byte(formatFloat(f)))})
	case natives.BoolToString:
		b := v.pop().Word
		s := "false"
		if b != 0 {
			s = "true"
		}
		v.push(StackCell{Kind: Object, Word: v.allocString([]byte(s))})
	default:
		return diag.New(diag.Runtime, v.loc(), "unknown native function id %d", id)
	}
	return nil
}
