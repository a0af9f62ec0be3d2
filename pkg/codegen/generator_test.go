package codegen_test

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/codegen"
	"subcc.dev/subcc/pkg/symtab"
	"subcc.dev/subcc/pkg/types"
)

// fakeBackend is a recording Backend: every emitting call appends a
// description of itself to trace and hands out the lowest free register of
// its own RegPool, matching
// just enough of the real backends' contract (freeing its underlying pool)
// to drive Generator's register-allocation bookkeeping.
type fakeBackend struct {
	pool   *codegen.RegPool
	nextR  int
	trace  []string
	jumped []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{pool: codegen.NewRegPool(8)}
}

func (b *fakeBackend) alloc() (int, error) {
	return b.pool.Allocate()
}

func (b *fakeBackend) RegisterCount() int { return 8 }
func (b *fakeBackend) Preamble(io.Writer)  {}
func (b *fakeBackend) Postamble(io.Writer) {}
func (b *fakeBackend) FuncPreamble(w io.Writer, name string, localsBytes int, isGlobal bool) {
	b.trace = append(b.trace, fmt.Sprintf("func-preamble:%s", name))
}
func (b *fakeBackend) FuncPostamble(w io.Writer, name string, endLabel int, retType types.Primitive) {
	b.trace = append(b.trace, fmt.Sprintf("func-postamble:%s", name))
}
func (b *fakeBackend) GlobalSymbol(io.Writer, string, types.Primitive, int) {}
func (b *fakeBackend) GlobalString(io.Writer, string, string)               {}

func (b *fakeBackend) LoadImmediate(w io.Writer, v int64) (int, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.trace = append(b.trace, fmt.Sprintf("loadimm:%d->r%d", v, r))
	return r, nil
}
func (b *fakeBackend) LoadGlobal(w io.Writer, name string, typ types.Primitive) (int, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.trace = append(b.trace, fmt.Sprintf("loadglobal:%s->r%d", name, r))
	return r, nil
}
func (b *fakeBackend) StoreGlobal(w io.Writer, r int, name string, typ types.Primitive) error {
	b.trace = append(b.trace, fmt.Sprintf("storeglobal:r%d->%s", r, name))
	return nil
}
func (b *fakeBackend) LoadLocal(w io.Writer, offset int, typ types.Primitive) (int, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.trace = append(b.trace, fmt.Sprintf("loadlocal:%d->r%d", offset, r))
	return r, nil
}
func (b *fakeBackend) StoreLocal(w io.Writer, r int, offset int, typ types.Primitive) {
	b.trace = append(b.trace, fmt.Sprintf("storelocal:r%d->%d", r, offset))
}
func (b *fakeBackend) AddressOfGlobal(w io.Writer, name string) (int, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.trace = append(b.trace, fmt.Sprintf("addrglobal:%s->r%d", name, r))
	return r, nil
}
func (b *fakeBackend) AddressOfLocal(w io.Writer, offset int) (int, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.trace = append(b.trace, fmt.Sprintf("addrlocal:%d->r%d", offset, r))
	return r, nil
}
func (b *fakeBackend) LoadDeref(w io.Writer, addrReg int, typ types.Primitive) int {
	b.pool.MustFree(addrReg)
	r := b.mustAlloc()
	b.trace = append(b.trace, fmt.Sprintf("loadderef:r%d", r))
	return r
}
func (b *fakeBackend) StoreDeref(w io.Writer, addrReg, valReg int, typ types.Primitive) {
	b.pool.MustFree(addrReg)
	b.pool.MustFree(valReg)
	b.trace = append(b.trace, "storederef")
}

// mustAlloc backs the fakeBackend methods whose real Backend signature
// never returns an error (they always reuse an input register rather than
// allocating), so pool exhaustion there would itself be an internal test
// bug, not a condition under test.
func (b *fakeBackend) mustAlloc() int {
	r, err := b.pool.Allocate()
	if err != nil {
		panic(err)
	}
	return r
}

func (b *fakeBackend) binary(name string, r1, r2 int) int {
	b.pool.MustFree(r1)
	b.pool.MustFree(r2)
	r := b.mustAlloc()
	b.trace = append(b.trace, fmt.Sprintf("%s:r%d", name, r))
	return r
}

func (b *fakeBackend) Add(w io.Writer, r1, r2 int) int        { return b.binary("add", r1, r2) }
func (b *fakeBackend) Subtract(w io.Writer, r1, r2 int) int    { return b.binary("sub", r1, r2) }
func (b *fakeBackend) Multiply(w io.Writer, r1, r2 int) int    { return b.binary("mul", r1, r2) }
func (b *fakeBackend) Divide(w io.Writer, r1, r2 int) int      { return b.binary("div", r1, r2) }
func (b *fakeBackend) ShiftLeft(w io.Writer, r1, r2 int) int   { return b.binary("shl", r1, r2) }
func (b *fakeBackend) ShiftRight(w io.Writer, r1, r2 int) int  { return b.binary("shr", r1, r2) }
func (b *fakeBackend) BitwiseAnd(w io.Writer, r1, r2 int) int  { return b.binary("and", r1, r2) }
func (b *fakeBackend) BitwiseOr(w io.Writer, r1, r2 int) int   { return b.binary("or", r1, r2) }
func (b *fakeBackend) BitwiseXor(w io.Writer, r1, r2 int) int  { return b.binary("xor", r1, r2) }
func (b *fakeBackend) LogicalAnd(w io.Writer, r1, r2 int) int  { return b.binary("land", r1, r2) }
func (b *fakeBackend) LogicalOr(w io.Writer, r1, r2 int) int   { return b.binary("lor", r1, r2) }

func (b *fakeBackend) Negate(w io.Writer, r int) int {
	b.pool.MustFree(r)
	out := b.mustAlloc()
	b.trace = append(b.trace, fmt.Sprintf("neg:r%d", out))
	return out
}
func (b *fakeBackend) Invert(w io.Writer, r int) int {
	b.pool.MustFree(r)
	out := b.mustAlloc()
	b.trace = append(b.trace, fmt.Sprintf("invert:r%d", out))
	return out
}
func (b *fakeBackend) LogicalNot(w io.Writer, r int) int {
	b.pool.MustFree(r)
	out := b.mustAlloc()
	b.trace = append(b.trace, fmt.Sprintf("not:r%d", out))
	return out
}

func (b *fakeBackend) CompareSet(w io.Writer, op ast.Op, r1, r2 int) int {
	return b.binary("cmpset:"+op.String(), r1, r2)
}
func (b *fakeBackend) CompareJump(w io.Writer, op ast.Op, r1, r2 int, label int) {
	b.pool.MustFree(r1)
	b.pool.MustFree(r2)
	b.trace = append(b.trace, fmt.Sprintf("cmpjump:%s->L%d", op, label))
	b.jumped = append(b.jumped, label)
}

func (b *fakeBackend) EmitLabel(w io.Writer, label int) {
	b.trace = append(b.trace, fmt.Sprintf("label:L%d", label))
}
func (b *fakeBackend) Jump(w io.Writer, label int) {
	b.trace = append(b.trace, fmt.Sprintf("jump:L%d", label))
}

func (b *fakeBackend) Widen(w io.Writer, r int, from, to types.Primitive) int {
	b.pool.MustFree(r)
	out := b.mustAlloc()
	b.trace = append(b.trace, fmt.Sprintf("widen:%s->%s:r%d", from, to, out))
	return out
}

func (b *fakeBackend) Call(w io.Writer, funcName string, argReg int) (int, error) {
	if argReg != codegen.NoReg {
		b.pool.MustFree(argReg)
	}
	out, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.trace = append(b.trace, fmt.Sprintf("call:%s->r%d", funcName, out))
	return out, nil
}
func (b *fakeBackend) Return(w io.Writer, r int, retType types.Primitive, endLabel int) {
	if r != codegen.NoReg {
		b.pool.MustFree(r)
	}
	b.trace = append(b.trace, fmt.Sprintf("return->L%d", endLabel))
}

func (b *fakeBackend) ResetRegisters()      { b.pool.Reset() }
func (b *fakeBackend) Allocate() (int, error) { return b.pool.Allocate() }
func (b *fakeBackend) Free(reg int)           { b.pool.MustFree(reg) }

func intLit(v int64) *ast.Node {
	return ast.MakeLeaf(ast.INTEGERLITERAL, types.Int, ast.LiteralPayload{Value: v})
}

func TestGenerateAddEmitsOperandsThenOp(t *testing.T) {
	n := ast.MakeNode(ast.ADD, types.Int, intLit(2), nil, intLit(3), ast.NonePayload{})
	b := newFakeBackend()
	g := codegen.New(b, symtab.New())

	reg, err := g.Generate(io.Discard, n, codegen.NoLabel, ast.NOTHING)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg == codegen.NoReg {
		t.Fatalf("expected ADD to produce a register")
	}
	want := []string{"loadimm:2->r0", "loadimm:3->r1", "add:r0"}
	if len(b.trace) != len(want) {
		t.Fatalf("got trace %v, want %v", b.trace, want)
	}
	for i, w := range want {
		if b.trace[i] != w {
			t.Errorf("trace[%d] = %q, want %q", i, b.trace[i], w)
		}
	}
}

func TestGenerateComparisonUnderIfBranchesInsteadOfSetting(t *testing.T) {
	cond := ast.MakeNode(ast.LT, types.Int, intLit(1), nil, intLit(2), ast.NonePayload{})
	then := intLit(9)
	n := ast.MakeNode(ast.IF, types.None, cond, then, nil, ast.NonePayload{})
	b := newFakeBackend()
	g := codegen.New(b, symtab.New())

	if _, err := g.Generate(io.Discard, n, codegen.NoLabel, ast.NOTHING); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	foundJump, foundLabel := false, false
	for _, s := range b.trace {
		if s == "cmpjump:LT->L1" {
			foundJump = true
		}
		if s == "label:L1" {
			foundLabel = true
		}
	}
	if !foundJump {
		t.Errorf("expected a CompareJump to the false label, trace: %v", b.trace)
	}
	if !foundLabel {
		t.Errorf("expected the false label to be emitted, trace: %v", b.trace)
	}
}

func TestGenerateWhileEmitsLoopBackAndExitLabels(t *testing.T) {
	cond := ast.MakeNode(ast.LT, types.Int, intLit(1), nil, intLit(2), ast.NonePayload{})
	body := intLit(9)
	n := ast.MakeNode(ast.WHILE, types.None, cond, nil, body, ast.NonePayload{})
	b := newFakeBackend()
	g := codegen.New(b, symtab.New())

	if _, err := g.Generate(io.Discard, n, codegen.NoLabel, ast.NOTHING); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.trace[0] != "label:L1" {
		t.Errorf("expected the loop start label first, got %q", b.trace[0])
	}
	last := b.trace[len(b.trace)-1]
	if last != "label:L2" {
		t.Errorf("expected the loop exit label last, got %q", last)
	}
}

// TestGenerateAssignToDereferenceDestinationEvaluatesAddressOnce guards
// against re-walking a DEREFERENCE assignment destination's address
// expression a second time inside emitAssign: Generate's own post-order
// walk already evaluates it once on the way to emit(), so a destination
// address with a side effect (here a[i++]-style post-increment) must only
// run that side effect once, and must not leak the register the first walk
// produced.
func TestGenerateAssignToDereferenceDestinationEvaluatesAddressOnce(t *testing.T) {
	symbols := symtab.New()
	idx, ok := symbols.AddLocal(symtab.Entry{
		Name: "p", PrimitiveType: types.Int,
		StorageClass: symtab.Local, StackOffset: 8,
	})
	if !ok {
		t.Fatal("failed to register local symbol")
	}

	addrExpr := ast.MakeLeaf(ast.POSTINCREMENT, types.Int, ast.SymbolPayload{Index: idx})
	dest := ast.MakeUnary(ast.DEREFERENCE, types.Int, addrExpr, ast.NonePayload{})
	n := ast.MakeNode(ast.ASSIGN, types.Int, intLit(5), nil, dest, ast.NonePayload{})

	b := newFakeBackend()
	g := codegen.New(b, symbols)

	if _, err := g.Generate(io.Discard, n, codegen.NoLabel, ast.NOTHING); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loads, stores, storederefs := 0, 0, 0
	for _, s := range b.trace {
		switch {
		case strings.HasPrefix(s, "loadlocal:8->"):
			loads++
		case strings.HasPrefix(s, "storelocal:"):
			stores++
		case s == "storederef":
			storederefs++
		}
	}
	if loads != 2 {
		t.Errorf("post-increment address expression ran %d loads, want 2 (side effect duplicated): trace %v", loads, b.trace)
	}
	if stores != 1 {
		t.Errorf("post-increment address expression ran %d stores, want 1 (side effect duplicated): trace %v", stores, b.trace)
	}
	if storederefs != 1 {
		t.Errorf("expected exactly one StoreDeref, got %d: trace %v", storederefs, b.trace)
	}

	// Exactly one register is still held once the assignment completes:
	// the post-increment's own adjusted-value register, which statement
	// boundaries (GLUE, IF/WHILE edges) reclaim via ResetRegisters rather
	// than the expression itself freeing it. A destination re-walked a
	// second time would leak its entire first-walk register chain on top
	// of that single expected holdover, leaving fewer than capacity-1 free.
	free := 0
	for {
		if _, err := b.pool.Allocate(); err != nil {
			break
		}
		free++
	}
	if want := b.RegisterCount() - 1; free != want {
		t.Errorf("expected %d free registers after the assignment, got %d", want, free)
	}
}

func TestGenerateFunctionBracketsBodyWithPreambleAndPostamble(t *testing.T) {
	symbols := symtab.New()
	idx, _ := symbols.AddGlobal(symtab.Entry{
		Name: "main", PrimitiveType: types.Int,
		StructuralType: symtab.Function, EndLabel: 1,
	})
	body := ast.MakeUnary(ast.RETURN, types.Int, intLit(0), ast.NonePayload{})

	b := newFakeBackend()
	g := codegen.New(b, symbols)

	if err := g.GenerateFunction(io.Discard, idx, body, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.trace[0] != "func-preamble:main" {
		t.Errorf("expected func-preamble first, got %q", b.trace[0])
	}
	if b.trace[len(b.trace)-1] != "func-postamble:main" {
		t.Errorf("expected func-postamble last, got %q", b.trace[len(b.trace)-1])
	}
}
