// Package aarch64 is the concrete Backend (see pkg/codegen.Backend)
// emitting GNU-as AArch64 text per spec.md §6/§4.8. It follows AAPCS64.
//
// Grounded the same way as pkg/codegen/nasm: the teacher's translation-
// table idiom (pkg/hack/codegen.go) generalized to drive
// pkg/codegen.Generator's AST walk instead of a flat Hack instruction list.
package aarch64

import (
	"fmt"
	"io"

	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/codegen"
	"subcc.dev/subcc/pkg/types"
)

const registerCount = 8

// regNames holds the scratch register names for each pool slot, x9..x16
// (callee-saved x19+ are left untouched; x0-x8 are reserved for argument
// and result passing per AAPCS64).
var regNames = [registerCount]string{"x9", "x10", "x11", "x12", "x13", "x14", "x15", "x16"}

// wName returns the 32-bit view of a scratch register (AArch64 exposes it
// directly via the 'w' prefix, unlike x86's separate byte/word/dword names).
func wName(reg int) string { return "w" + regNames[reg][1:] }

func nameFor(reg int, typ types.Primitive) string {
	if types.SizeOf(typ) <= 4 && typ != types.None {
		return wName(reg)
	}
	return regNames[reg]
}

var condSuffix = map[ast.Op]string{
	ast.EQ: "eq", ast.NE: "ne", ast.LT: "lt", ast.GT: "gt", ast.LE: "le", ast.GE: "ge",
}

// invertedCond maps a comparison operator to the branch condition taken
// when it is FALSE, per spec.md §4.8's inverted-branch contract.
var invertedCond = map[ast.Op]string{
	ast.EQ: "ne", ast.NE: "eq", ast.LT: "ge", ast.GT: "le", ast.LE: "gt", ast.GE: "lt",
}

// Backend implements pkg/codegen.Backend for AArch64.
type Backend struct {
	pool *codegen.RegPool
}

func New() *Backend { return &Backend{pool: codegen.NewRegPool(registerCount)} }

func (b *Backend) RegisterCount() int { return registerCount }

func (b *Backend) Preamble(w io.Writer) {
	fmt.Fprint(w, ".text\n")
	fmt.Fprint(w, ".extern printint\n.extern printchar\n.extern printstring\n\n")
}

func (b *Backend) Postamble(w io.Writer) {}

func (b *Backend) FuncPreamble(w io.Writer, name string, localsBytes int, isGlobal bool) {
	if isGlobal {
		fmt.Fprintf(w, ".globl %s\n", name)
	}
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprint(w, "\tstp x29, x30, [sp, #-16]!\n")
	fmt.Fprint(w, "\tmov x29, sp\n")
	if aligned := align16(localsBytes); aligned > 0 {
		fmt.Fprintf(w, "\tsub sp, sp, #%d\n", aligned)
	}
}

func (b *Backend) FuncPostamble(w io.Writer, name string, endLabel int, retType types.Primitive) {
	fmt.Fprintf(w, "L%d:\n", endLabel)
	fmt.Fprint(w, "\tmov sp, x29\n")
	fmt.Fprint(w, "\tldp x29, x30, [sp], #16\n")
	fmt.Fprint(w, "\tret\n\n")
}

func align16(n int) int { return (n + 15) &^ 15 }

func (b *Backend) alignShift(size int) int {
	switch {
	case size >= 8:
		return 3
	case size >= 4:
		return 2
	case size >= 2:
		return 1
	default:
		return 0
	}
}

func (b *Backend) GlobalSymbol(w io.Writer, name string, typ types.Primitive, count int) {
	size := types.SizeOf(typ) * count
	fmt.Fprint(w, ".section .bss\n")
	fmt.Fprintf(w, ".p2align %d\n", b.alignShift(types.SizeOf(typ)))
	fmt.Fprintf(w, "%s:\n\t.zero %d\n", name, size)
}

func (b *Backend) GlobalString(w io.Writer, label string, value string) {
	fmt.Fprint(w, ".section .rodata\n")
	fmt.Fprintf(w, "%s:\n", label)
	emitAscii(w, value)
	fmt.Fprint(w, "\t.byte 0\n")
}

// emitAscii renders printable runs as .ascii strings and non-printable
// bytes as individual .byte directives, per spec.md §6's AArch64 flavor.
func emitAscii(w io.Writer, s string) {
	i := 0
	for i < len(s) {
		if printable(s[i]) {
			j := i
			for j < len(s) && printable(s[j]) {
				j++
			}
			fmt.Fprintf(w, "\t.ascii %q\n", s[i:j])
			i = j
			continue
		}
		fmt.Fprintf(w, "\t.byte %d\n", s[i])
		i++
	}
}

func printable(c byte) bool { return c >= 0x20 && c < 0x7f && c != '"' && c != '\\' }

func (b *Backend) LoadImmediate(w io.Writer, value int64) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tmov %s, #%d\n", regNames[r], value)
	return r, nil
}

func (b *Backend) LoadGlobal(w io.Writer, name string, typ types.Primitive) (int, error) {
	addr, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tadrp %s, %s\n", regNames[addr], name)
	fmt.Fprintf(w, "\tadd %s, %s, :lo12:%s\n", regNames[addr], regNames[addr], name)
	fmt.Fprintf(w, "\tldr %s, [%s]\n", nameFor(addr, typ), regNames[addr])
	return addr, nil
}

func (b *Backend) StoreGlobal(w io.Writer, r int, name string, typ types.Primitive) error {
	addr, err := b.pool.Allocate()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\tadrp %s, %s\n", regNames[addr], name)
	fmt.Fprintf(w, "\tadd %s, %s, :lo12:%s\n", regNames[addr], regNames[addr], name)
	fmt.Fprintf(w, "\tstr %s, [%s]\n", nameFor(r, typ), regNames[addr])
	b.pool.MustFree(addr)
	return nil
}

func (b *Backend) LoadLocal(w io.Writer, offset int, typ types.Primitive) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tldr %s, [x29, #-%d]\n", nameFor(r, typ), offset)
	return r, nil
}

func (b *Backend) StoreLocal(w io.Writer, r int, offset int, typ types.Primitive) {
	fmt.Fprintf(w, "\tstr %s, [x29, #-%d]\n", nameFor(r, typ), offset)
}

func (b *Backend) AddressOfGlobal(w io.Writer, name string) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tadrp %s, %s\n", regNames[r], name)
	fmt.Fprintf(w, "\tadd %s, %s, :lo12:%s\n", regNames[r], regNames[r], name)
	return r, nil
}

func (b *Backend) AddressOfLocal(w io.Writer, offset int) (int, error) {
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tsub %s, x29, #%d\n", regNames[r], offset)
	return r, nil
}

func (b *Backend) LoadDeref(w io.Writer, addrReg int, typ types.Primitive) int {
	fmt.Fprintf(w, "\tldr %s, [%s]\n", nameFor(addrReg, typ), regNames[addrReg])
	return addrReg
}

func (b *Backend) StoreDeref(w io.Writer, addrReg, valReg int, typ types.Primitive) {
	fmt.Fprintf(w, "\tstr %s, [%s]\n", nameFor(valReg, typ), regNames[addrReg])
	b.pool.MustFree(addrReg)
	b.pool.MustFree(valReg)
}

func (b *Backend) binOp(w io.Writer, mnemonic string, r1, r2 int) int {
	fmt.Fprintf(w, "\t%s %s, %s, %s\n", mnemonic, regNames[r1], regNames[r1], regNames[r2])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) Add(w io.Writer, r1, r2 int) int        { return b.binOp(w, "add", r1, r2) }
func (b *Backend) Subtract(w io.Writer, r1, r2 int) int   { return b.binOp(w, "sub", r1, r2) }
func (b *Backend) Multiply(w io.Writer, r1, r2 int) int   { return b.binOp(w, "mul", r1, r2) }
func (b *Backend) BitwiseAnd(w io.Writer, r1, r2 int) int { return b.binOp(w, "and", r1, r2) }
func (b *Backend) BitwiseOr(w io.Writer, r1, r2 int) int  { return b.binOp(w, "orr", r1, r2) }
func (b *Backend) BitwiseXor(w io.Writer, r1, r2 int) int { return b.binOp(w, "eor", r1, r2) }
func (b *Backend) ShiftLeft(w io.Writer, r1, r2 int) int  { return b.binOp(w, "lsl", r1, r2) }
func (b *Backend) ShiftRight(w io.Writer, r1, r2 int) int { return b.binOp(w, "asr", r1, r2) }

// Divide emits a signed division. AArch64's sdiv needs no explicit sign
// extension step (unlike x86-64's cqo/idiv), but spec.md §4.8's "signed
// division sign-extends before divide" contract is honored by sdiv's own
// semantics on the 64-bit register views used throughout.
func (b *Backend) Divide(w io.Writer, r1, r2 int) int { return b.binOp(w, "sdiv", r1, r2) }

func (b *Backend) Negate(w io.Writer, r int) int {
	fmt.Fprintf(w, "\tneg %s, %s\n", regNames[r], regNames[r])
	return r
}

func (b *Backend) Invert(w io.Writer, r int) int {
	fmt.Fprintf(w, "\tmvn %s, %s\n", regNames[r], regNames[r])
	return r
}

func (b *Backend) LogicalNot(w io.Writer, r int) int {
	fmt.Fprintf(w, "\tcmp %s, #0\n", regNames[r])
	fmt.Fprintf(w, "\tcset %s, eq\n", regNames[r])
	return r
}

func (b *Backend) LogicalAnd(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\tcmp %s, #0\n", regNames[r1])
	fmt.Fprintf(w, "\tcset %s, ne\n", regNames[r1])
	fmt.Fprintf(w, "\tcmp %s, #0\n", regNames[r2])
	fmt.Fprintf(w, "\tcset %s, ne\n", regNames[r2])
	fmt.Fprintf(w, "\tand %s, %s, %s\n", regNames[r1], regNames[r1], regNames[r2])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) LogicalOr(w io.Writer, r1, r2 int) int {
	fmt.Fprintf(w, "\torr %s, %s, %s\n", regNames[r1], regNames[r1], regNames[r2])
	fmt.Fprintf(w, "\tcmp %s, #0\n", regNames[r1])
	fmt.Fprintf(w, "\tcset %s, ne\n", regNames[r1])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) CompareSet(w io.Writer, op ast.Op, r1, r2 int) int {
	fmt.Fprintf(w, "\tcmp %s, %s\n", regNames[r1], regNames[r2])
	fmt.Fprintf(w, "\tcset %s, %s\n", regNames[r1], condSuffix[op])
	b.pool.MustFree(r2)
	return r1
}

func (b *Backend) CompareJump(w io.Writer, op ast.Op, r1, r2 int, label int) {
	fmt.Fprintf(w, "\tcmp %s, %s\n", regNames[r1], regNames[r2])
	fmt.Fprintf(w, "\tb.%s L%d\n", invertedCond[op], label)
	b.pool.MustFree(r1)
	b.pool.MustFree(r2)
}

func (b *Backend) EmitLabel(w io.Writer, label int) { fmt.Fprintf(w, "L%d:\n", label) }
func (b *Backend) Jump(w io.Writer, label int)      { fmt.Fprintf(w, "\tb L%d\n", label) }

func (b *Backend) Widen(w io.Writer, r int, from, to types.Primitive) int {
	fmt.Fprintf(w, "\tsxtw %s, %s\n", regNames[r], nameFor(r, from))
	return r
}

func (b *Backend) Call(w io.Writer, funcName string, argReg int) (int, error) {
	if argReg != codegen.NoReg {
		fmt.Fprintf(w, "\tmov x0, %s\n", regNames[argReg])
		b.pool.MustFree(argReg)
	}
	fmt.Fprintf(w, "\tbl %s\n", funcName)
	r, err := b.pool.Allocate()
	if err != nil {
		return codegen.NoReg, err
	}
	fmt.Fprintf(w, "\tmov %s, x0\n", regNames[r])
	return r, nil
}

func (b *Backend) Return(w io.Writer, r int, retType types.Primitive, endLabel int) {
	if r != codegen.NoReg {
		switch types.SizeOf(retType) {
		case 1:
			fmt.Fprintf(w, "\tuxtb w0, %s\n", wName(r))
		case 4:
			fmt.Fprintf(w, "\tmov w0, %s\n", wName(r))
		default:
			fmt.Fprintf(w, "\tmov x0, %s\n", regNames[r])
		}
	}
	fmt.Fprintf(w, "\tb L%d\n", endLabel)
}

func (b *Backend) ResetRegisters()        { b.pool.Reset() }
func (b *Backend) Allocate() (int, error) { return b.pool.Allocate() }
func (b *Backend) Free(r int)             { b.pool.MustFree(r) }
