// Package nasm is the concrete Backend (see pkg/codegen.Backend) emitting
// Intel-syntax NASM x86-64 text per spec.md §6/§4.8. It follows the System
// V AMD64 ABI.
//
// Grounded on the teacher's hack.CodeGenerator translation-table idiom
// (pkg/hack/codegen.go's CompTable/DestTable/JumpTable) for the per-width
// register name and comparison-mnemonic tables below, generalized from a
// flat instruction-list translator to one driven by pkg/codegen.Generator's
// AST walk.
package nasm

import (
	"fmt"
	"io"

	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/codegen"
	"subcc.dev/subcc/pkg/types"
)

// registerCount is the size of the x86-64 backend's scratch register file.
const registerCount = 4

// regNames holds, per scratch slot, the 64/32/16/8-bit names of the
// physical register backing it. x86-64 only exposes a byte name for the
// first four legacy-encodable registers in some assemblers, but r8-r11
// always have an -b form, so this table is exhaustive for all four slots.
var regNames = [registerCount][4]string{
	{"r8", "r8d", "r8w", "r8b"},
	{"r9", "r9d", "r9w", "r9b"},
	{"r10", "r10d", "r10w", "r10b"},
	{"r11", "r11d", "r11w", "r11b"},
}

// widthIndex maps a primitive's byte size to regNames' column.
func widthIndex(size int) int {
	switch size {
	case 1:
		return 3
	case 2:
		return 2
	case 4:
		return 1
	default:
		return 0
	}
}

func regName(reg int, typ types.Primitive) string {
	return regNames[reg][widthIndex(types.SizeOf(typ))]
}

func reg64(reg int) string { return regNames[reg][0] }

// setInstr maps a comparison operator to the x86 byte-set mnemonic used
// when the comparison's result is consumed as a value (CompareSet).
var setInstr = map[ast.Op]string{
	ast.EQ: "sete", ast.NE: "setne",
	ast.LT: "setl", ast.GT: "setg", ast.LE: "setle", ast.GE: "setge",
}

// invertedJump maps a comparison operator to the jump mnemonic taken when
// the condition is FALSE, per spec.md §4.8's "comparison-to-jump emits the
// inverted condition" contract.
var invertedJump = map[ast.Op]string{
	ast.EQ: "jne", ast.NE: "je",
	ast.LT: "jge", ast.GT: "jle", ast.LE: "jg", ast.GE: "jl",
}

// Backend implements pkg/codegen.Backend for NASM x86-64.
type Backend struct {
	pool *codegen.RegPool
}

// New returns a ready-to-use NASM x86-64 backend.
func New() *Backend {
	return &Backend{pool: codegen.NewRegPool(registerCount)}
}

func (b *Backend) RegisterCount() int { return registerCount }

func (b *Backend) Preamble(w io.Writer) {
	fmt.Fprint(w, "section .text\n")
	fmt.Fprint(w, "extern printint, printchar, printstring\n\n")
}

func (b *Backend) Postamble(w io.Writer) {}

func (b *Backend) FuncPreamble(w io.Writer, name string, localsBytes int, isGlobal bool) {
	if isGlobal {
		fmt.Fprintf(w, "global %s\n", name)
	}
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprint(w, "\tpush rbp\n")
	fmt.Fprint(w, "\tmov rbp, rsp\n")
	if aligned := align16(localsBytes); aligned > 0 {
		fmt.Fprintf(w, "\tsub rsp, %d\n", aligned)
	}
}

func (b *Backend) FuncPostamble(w io.Writer, name string, endLabel int, retType types.Primitive) {
	fmt.Fprintf(w, "L%d:\n", endLabel)
	fmt.Fprint(w, "\tmov rsp, rbp\n")
	fmt.Fprint(w, "\tpop rbp\n")
	fmt.Fprint(w, "\tret\n\n")
}

func align16(n int) int { return (n + 15) &^ 15 }

func (b *Backend) alignOf(size int) int {
	if size >= 8 {
		return 8
	}
	for _, a := range []int{4, 2, 1} {
		if size >= a {
			return a
		}
	}
	return 1
}

func (b *Backend) GlobalSymbol(w io.Writer, name string, typ types.Primitive, count int) {
	size := types.SizeOf(typ) * count
	fmt.Fprintf(w, "section .bss\n")
	fmt.Fprintf(w, "\talign %d\n", b.alignOf(types.SizeOf(typ)))
	fmt.Fprintf(w, "%s: resb %d\n", name, size)
}

func (b *Backend) GlobalString(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "section .rodata\n")
	fmt.Fprintf(w, "%s: db %s, 0\n", label, nasmByteList(value))
}

func nasmByteList(s string) string {
	out := ""
	for i := 0; i < len(s); i++ {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d", s[i])
	}
	if out == "" {
		return "0"
	}
	return out
}

func (b *Backend) LoadImmediate(w io.Writer, value int64) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tmov %s, %d\n", reg64(r), value)
	return r, nil
}

func (b *Backend) LoadGlobal(w io.Writer, name string, typ types.Primitive) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tmov %s, [rel %s]\n", regName(r, typ), name)
	return r, nil
}

func (b *Backend) StoreGlobal(w io.Writer, r int, name string, typ types.Primitive) error {
	fmt.Fprintf(w, "\tmov [rel %s], %s\n", name, regName(r, typ))
	return nil
}

func (b *Backend) LoadLocal(w io.Writer, offset int, typ types.Primitive) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tmov %s, [rbp-%d]\n", regName(r, typ), offset)
	return r, nil
}

func (b *Backend) StoreLocal(w io.Writer, r int, offset int, typ types.Primitive) {
	fmt.Fprintf(w, "\tmov [rbp-%d], %s\n", offset, regName(r, typ))
}

func (b *Backend) AddressOfGlobal(w io.Writer, name string) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tlea %s, [rel %s]\n", reg64(r), name)
	return r, nil
}

func (b *Backend) AddressOfLocal(w io.Writer, offset int) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tlea %s, [rbp-%d]\n", reg64(r), offset)
	return r, nil
}

func (b *Backend) LoadDeref(w io.Writer, addrReg int, typ types.Primitive) int {
	fmt.Fprintf(w, "\tmov %s, [%s]\n", regName(addrReg, typ), reg64(addrReg))
	return addrReg
}

func (b *Backend) StoreDeref(w io.Writer, addrReg, valReg int, typ types.Primitive) {
	fmt.Fprintf(w, "\tmov [%s], %s\n", reg64(addrReg), regName(valReg, typ))
	b.pool.MustFree(addrReg)
	b.pool.MustFree(valReg)
}

func (b *Backend) binOp(w io.Writer, mnemonic string, r1, r2 int) int {
	fmt.Fprintf(w, "\t%s %s, %s\n", mnemonic, reg64(r1), reg64(r2))
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) Add(w io.Writer, r1, r2 int) int      { return b.binOp(w, "add", r1, r2) }
func (b *Backend) Subtract(w io.Writer, r1, r2 int) int { return b.binOp(w, "sub", r1, r2) }
func (b *Backend) BitwiseAnd(w io.Writer, r1, r2 int) int { return b.binOp(w, "and", r1, r2) }
func (b *Backend) BitwiseOr(w io.Writer, r1, r2 int) int  { return b.binOp(w, "or", r1, r2) }
func (b *Backend) BitwiseXor(w io.Writer, r1, r2 int) int { return b.binOp(w, "xor", r1, r2) }

func (b *Backend) Multiply(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\timul %s, %s\n", reg64(r1), reg64(r2))
	b.pool.MustFree(r2)
	return r1
}

// Divide emits a signed division. The dividend must travel through
// rax/rdx, per the System V ABI's div/idiv contract; spec.md §4.8 requires
// sign extension before the divide.
func (b *Backend) Divide(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\tmov rax, %s\n", reg64(r1))
	fmt.Fprint(w, "\tcqo\n")
	fmt.Fprintf(w, "\tidiv %s\n", reg64(r2))
	fmt.Fprintf(w, "\tmov %s, rax\n", reg64(r1))
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) ShiftLeft(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\tmov rcx, %s\n", reg64(r2))
	fmt.Fprintf(w, "\tshl %s, cl\n", reg64(r1))
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) ShiftRight(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\tmov rcx, %s\n", reg64(r2))
	fmt.Fprintf(w, "\tsar %s, cl\n", reg64(r1))
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) Negate(w io.Writer, r int) int {
	fmt.Fprintf(w, "\tneg %s\n", reg64(r))
	return r
}

func (b *Backend) Invert(w io.Writer, r int) int {
	fmt.Fprintf(w, "\tnot %s\n", reg64(r))
	return r
}

func (b *Backend) LogicalNot(w io.Writer, r int) int {
	fmt.Fprintf(w, "\tcmp %s, 0\n", reg64(r))
	fmt.Fprintf(w, "\tsete %s\n", regNames[r][3])
	fmt.Fprintf(w, "\tmovzx %s, %s\n", reg64(r), regNames[r][3])
	return r
}

func (b *Backend) LogicalAnd(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\tcmp %s, 0\n", reg64(r1))
	fmt.Fprintf(w, "\tsetne %s\n", regNames[r1][3])
	fmt.Fprintf(w, "\tcmp %s, 0\n", reg64(r2))
	fmt.Fprintf(w, "\tsetne %s\n", regNames[r2][3])
	fmt.Fprintf(w, "\tand %s, %s\n", regNames[r1][3], regNames[r2][3])
	fmt.Fprintf(w, "\tmovzx %s, %s\n", reg64(r1), regNames[r1][3])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) LogicalOr(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\tor %s, %s\n", reg64(r1), reg64(r2))
	fmt.Fprintf(w, "\tcmp %s, 0\n", reg64(r1))
	fmt.Fprintf(w, "\tsetne %s\n", regNames[r1][3])
	fmt.Fprintf(w, "\tmovzx %s, %s\n", reg64(r1), regNames[r1][3])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) CompareSet(w io.Writer, op ast.Op, r1, r2 int) int {
	fmt.Fprintf(w, "\tcmp %s, %s\n", reg64(r1), reg64(r2))
	fmt.Fprintf(w, "\t%s %s\n", setInstr[op], regNames[r1][3])
	fmt.Fprintf(w, "\tmovzx %s, %s\n", reg64(r1), regNames[r1][3])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) CompareJump(w io.Writer, op ast.Op, r1, r2 int, label int) {
	fmt.Fprintf(w, "\tcmp %s, %s\n", reg64(r1), reg64(r2))
	fmt.Fprintf(w, "\t%s L%d\n", invertedJump[op], label)
	b.pool.MustFree(r1)
	b.pool.MustFree(r2)
}

func (b *Backend) EmitLabel(w io.Writer, label int) { fmt.Fprintf(w, "L%d:\n", label) }
func (b *Backend) Jump(w io.Writer, label int)      { fmt.Fprintf(w, "\tjmp L%d\n", label) }

func (b *Backend) Widen(w io.Writer, r int, from, to types.Primitive) int {
	fmt.Fprintf(w, "\tmovsx %s, %s\n", regName(r, to), regName(r, from))
	return r
}

func (b *Backend) Call(w io.Writer, funcName string, argReg int) (int, error) {
	if argReg != codegen.NoReg {
		fmt.Fprintf(w, "\tmov rdi, %s\n", reg64(argReg))
		b.pool.MustFree(argReg)
	}
	fmt.Fprintf(w, "\tcall %s\n", funcName)
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tmov %s, rax\n", reg64(r))
	return r, nil
}

func (b *Backend) Return(w io.Writer, r int, retType types.Primitive, endLabel int) {
	if r != codegen.NoReg {
		switch types.SizeOf(retType) {
		case 1:
			fmt.Fprintf(w, "\tmovzx eax, %s\n", regNames[r][3])
		case 4:
			fmt.Fprintf(w, "\tmov eax, %s\n", regNames[r][1])
		default:
			fmt.Fprintf(w, "\tmov rax, %s\n", reg64(r))
		}
	}
	fmt.Fprintf(w, "\tjmp L%d\n", endLabel)
}

func (b *Backend) ResetRegisters()       { b.pool.Reset() }
func (b *Backend) Allocate() (int, error) { return b.pool.Allocate() }
func (b *Backend) Free(r int)            { b.pool.MustFree(r) }
