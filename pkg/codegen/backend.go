// Package codegen implements spec.md §4.7: the target-agnostic, AST-walking
// code generator, its register pool and label allocator, and the Backend
// interface a concrete target must satisfy.
//
// Generalized from the teacher's asm.CodeGenerator/hack.CodeGenerator
// pattern (a struct wrapping the program, a type-switch-driven Generate
// method) per Design note 9 "Dynamically dispatched backend": the teacher
// has one CodeGenerator type per closed instruction set because it only
// ever targets one machine per language. Here the generator must drive two
// unrelated instruction sets from the same AST walk, so the type-switch
// becomes dispatch through this interface instead, parameterized once at
// startup by the driver (cmd/subcc).
package codegen

import (
	"io"

	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/types"
)

// Backend is the full contract spec.md §4.7.3/§4.8 describes: everything a
// target module must supply so Generator has no target-specific knowledge.
// All operations write directly to w and return the scratch register index
// holding their result, where they produce one.
type Backend interface {
	// RegisterCount reports how many scratch registers this backend's own
	// RegPool holds (4 for the NASM x86-64 backend, 8 for AArch64).
	RegisterCount() int

	// Preamble/Postamble bracket the whole emitted file: section/extern
	// declarations before any function, nothing after the last one beyond
	// what Postamble itself writes.
	Preamble(w io.Writer)
	Postamble(w io.Writer)

	// FuncPreamble/FuncPostamble bracket a single function body.
	// localsBytes is the (already 16-byte-aligned) stack space to reserve.
	FuncPreamble(w io.Writer, name string, localsBytes int, isGlobal bool)
	FuncPostamble(w io.Writer, name string, endLabel int, retType types.Primitive)

	// GlobalSymbol emits a BSS reservation for a scalar or array global of
	// primitive type typ and count elements (1 for a scalar).
	GlobalSymbol(w io.Writer, name string, typ types.Primitive, count int)
	// GlobalString emits a rodata string constant under the generated
	// label and returns nothing; the label is what AddressOfGlobal(label)
	// later loads.
	GlobalString(w io.Writer, label string, value string)

	// LoadImmediate loads a constant value into a fresh register. It fails
	// only when the register pool is exhausted (spec.md §7 Capacity).
	LoadImmediate(w io.Writer, value int64) (reg int, err error)

	// LoadGlobal/StoreGlobal move a scalar global to/from a register.
	// Either may need a fresh scratch register to address the global (e.g.
	// AArch64's adrp/add sequence), so both can fail on pool exhaustion.
	LoadGlobal(w io.Writer, name string, typ types.Primitive) (reg int, err error)
	StoreGlobal(w io.Writer, reg int, name string, typ types.Primitive) error
	// LoadLocal/StoreLocal move a scalar local (by frame offset) to/from a
	// register. StoreLocal addresses the local directly off the frame
	// pointer and never needs a fresh register.
	LoadLocal(w io.Writer, offset int, typ types.Primitive) (reg int, err error)
	StoreLocal(w io.Writer, reg int, offset int, typ types.Primitive)

	// AddressOfGlobal loads the effective address of a global (including a
	// generated string label) into a fresh register.
	AddressOfGlobal(w io.Writer, name string) (reg int, err error)
	// AddressOfLocal loads the effective address of a local into a fresh
	// register.
	AddressOfLocal(w io.Writer, offset int) (reg int, err error)

	// LoadDeref/StoreDeref dereference a pointer already held in addrReg.
	LoadDeref(w io.Writer, addrReg int, typ types.Primitive) (reg int)
	StoreDeref(w io.Writer, addrReg, valReg int, typ types.Primitive)

	// Arithmetic/bitwise/shift binary operators. Both input registers are
	// consumed (freed); the result occupies the returned register.
	Add(w io.Writer, r1, r2 int) (reg int)
	Subtract(w io.Writer, r1, r2 int) (reg int)
	Multiply(w io.Writer, r1, r2 int) (reg int)
	Divide(w io.Writer, r1, r2 int) (reg int)
	ShiftLeft(w io.Writer, r1, r2 int) (reg int)
	ShiftRight(w io.Writer, r1, r2 int) (reg int)
	BitwiseAnd(w io.Writer, r1, r2 int) (reg int)
	BitwiseOr(w io.Writer, r1, r2 int) (reg int)
	BitwiseXor(w io.Writer, r1, r2 int) (reg int)

	// Unary operators.
	Negate(w io.Writer, r int) (reg int)
	Invert(w io.Writer, r int) (reg int)
	LogicalNot(w io.Writer, r int) (reg int)
	LogicalAnd(w io.Writer, r1, r2 int) (reg int)
	LogicalOr(w io.Writer, r1, r2 int) (reg int)

	// CompareSet evaluates a comparison into a 0/1 register (used when the
	// comparison's result is consumed as a value, not a branch).
	CompareSet(w io.Writer, op ast.Op, r1, r2 int) (reg int)
	// CompareJump emits the inverted condition so the branch at label is
	// taken exactly when the source-level condition is false, per
	// spec.md §4.8.
	CompareJump(w io.Writer, op ast.Op, r1, r2 int, label int)

	// Label/Jump emit control flow.
	EmitLabel(w io.Writer, label int)
	Jump(w io.Writer, label int)

	// Widen sign/zero-extends a register from one integer width to a wider
	// one; pointer-to-pointer widen is never requested (spec.md's widen
	// node only ever adjusts integer width).
	Widen(w io.Writer, r int, from, to types.Primitive) (reg int)

	// Call emits a function call, passing argReg (or -1 for no argument)
	// and returning the register holding the callee's result.
	Call(w io.Writer, funcName string, argReg int) (reg int, err error)
	// Return moves r into the platform return register, narrowed to
	// retType, and jumps to endLabel.
	Return(w io.Writer, r int, retType types.Primitive, endLabel int)

	// ResetRegisters marks every scratch register free. Called at
	// statement boundaries and at every branch/loop edge, per spec.md §3.
	ResetRegisters()
	// Allocate/Free expose the underlying pool for Generator's own
	// bookkeeping around operations (e.g. pre/post increment) that need a
	// register without an operation producing one.
	Allocate() (reg int, err error)
	Free(reg int)
}
