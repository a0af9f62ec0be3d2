package codegen

import (
	"fmt"
	"io"

	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/symtab"
	"subcc.dev/subcc/pkg/types"
)

// NoReg is returned by an IDENTIFIER node being visited purely for its
// address (an lvalue passthrough), per spec.md §4.7's IDENTIFIER row.
const NoReg = -1

// Generator is the target-agnostic, AST-walking code generator of
// spec.md §4.7. It recurses in post-order (left, then right, then self)
// and drives a Backend for every emission, never branching on target
// itself — generalized from the teacher's asm.CodeGenerator/
// hack.CodeGenerator shape (program + Generate()) onto a recursive AST walk
// instead of a flat instruction list, since this generator's input is a
// tree, not an already-linearized program.
type Generator struct {
	Backend Backend
	Symbols *symtab.Table
	Labels  *Labels

	// CurrentFunc is the symbol-table index of the function whose body is
	// being emitted, used by RETURN to find the end label and return type.
	CurrentFunc int
}

// New builds a Generator over a backend and the compilation's shared
// symbol table.
func New(b Backend, symbols *symtab.Table) *Generator {
	return &Generator{Backend: b, Symbols: symbols, Labels: NewLabels()}
}

// GenerateFunction emits one function's preamble, body and postamble.
func (g *Generator) GenerateFunction(w io.Writer, funcIndex int, body *ast.Node, localsBytes int) error {
	entry := g.Symbols.Get(funcIndex)
	g.CurrentFunc = funcIndex

	g.Backend.FuncPreamble(w, entry.Name, localsBytes, true)
	g.Backend.ResetRegisters()
	if _, err := g.Generate(w, body, NoLabel, ast.NOTHING); err != nil {
		return err
	}
	g.Backend.ResetRegisters()
	g.Backend.FuncPostamble(w, entry.Name, entry.EndLabel, entry.PrimitiveType)
	return nil
}

// Generate walks n in post-order and emits its translation. label is the
// jump target a comparison directly under an IF/WHILE should branch to
// (NoLabel otherwise); parentOp lets IDENTIFIER and comparison nodes see
// what kind of node is consuming them, per spec.md §4.7's dispatch table.
func (g *Generator) Generate(w io.Writer, n *ast.Node, label int, parentOp ast.Op) (int, error) {
	if n == nil {
		return NoReg, nil
	}

	switch n.Op {
	case ast.IF:
		return NoReg, g.generateIf(w, n)
	case ast.WHILE:
		return NoReg, g.generateWhile(w, n)
	case ast.GLUE:
		if _, err := g.Generate(w, n.Left, NoLabel, ast.NOTHING); err != nil {
			return NoReg, err
		}
		g.Backend.ResetRegisters()
		if _, err := g.Generate(w, n.Right, NoLabel, ast.NOTHING); err != nil {
			return NoReg, err
		}
		g.Backend.ResetRegisters()
		return NoReg, nil
	}

	leftReg, err := g.Generate(w, n.Left, label, n.Op)
	if err != nil {
		return NoReg, err
	}
	rightReg, err := g.Generate(w, n.Right, label, n.Op)
	if err != nil {
		return NoReg, err
	}

	return g.emit(w, n, leftReg, rightReg, label, parentOp)
}

func (g *Generator) emit(w io.Writer, n *ast.Node, leftReg, rightReg, label int, parentOp ast.Op) (int, error) {
	b := g.Backend

	switch n.Op {
	case ast.INTEGERLITERAL:
		lit, ok := n.Payload.(ast.LiteralPayload)
		if !ok {
			return NoReg, fmt.Errorf("internal error: INTEGERLITERAL node without a literal payload")
		}
		return b.LoadImmediate(w, lit.Value)

	case ast.STRINGLITERAL:
		sym, ok := n.Payload.(ast.SymbolPayload)
		if !ok {
			return NoReg, fmt.Errorf("internal error: STRINGLITERAL node without a symbol payload")
		}
		return b.AddressOfGlobal(w, g.Symbols.Get(sym.Index).Name)

	case ast.IDENTIFIER:
		return g.emitIdentifier(w, n, parentOp)

	case ast.ADD:
		return b.Add(w, leftReg, rightReg), nil
	case ast.SUBTRACT:
		return b.Subtract(w, leftReg, rightReg), nil
	case ast.MULTIPLY:
		return b.Multiply(w, leftReg, rightReg), nil
	case ast.DIVIDE:
		return b.Divide(w, leftReg, rightReg), nil
	case ast.LSHIFT:
		return b.ShiftLeft(w, leftReg, rightReg), nil
	case ast.RSHIFT:
		return b.ShiftRight(w, leftReg, rightReg), nil
	case ast.BITWISEAND:
		return b.BitwiseAnd(w, leftReg, rightReg), nil
	case ast.BITWISEOR:
		return b.BitwiseOr(w, leftReg, rightReg), nil
	case ast.BITWISEXOR:
		return b.BitwiseXor(w, leftReg, rightReg), nil
	case ast.LOGICALAND:
		return b.LogicalAnd(w, leftReg, rightReg), nil
	case ast.LOGICALOR:
		return b.LogicalOr(w, leftReg, rightReg), nil

	case ast.EQ, ast.NE, ast.LT, ast.GT, ast.LE, ast.GE:
		if parentOp == ast.IF || parentOp == ast.WHILE {
			b.CompareJump(w, n.Op, leftReg, rightReg, label)
			return NoReg, nil
		}
		return b.CompareSet(w, n.Op, leftReg, rightReg), nil

	case ast.TOBOOL:
		// A non-comparison IF/WHILE condition: compare against zero and
		// jump to label when false, matching CompareJump's inverted-branch
		// contract.
		zero, err := b.LoadImmediate(w, 0)
		if err != nil {
			return NoReg, err
		}
		b.CompareJump(w, ast.NE, leftReg, zero, label)
		return NoReg, nil

	case ast.ASSIGN:
		return g.emitAssign(w, n, leftReg, rightReg)

	case ast.WIDENTYPE:
		var from types.Primitive
		if n.Left != nil {
			from = n.Left.Type
		}
		return b.Widen(w, leftReg, from, n.Type), nil

	case ast.SCALETYPE:
		scale, ok := n.Payload.(ast.ScalePayload)
		if !ok {
			return NoReg, fmt.Errorf("internal error: SCALETYPE node without a scale payload")
		}
		return g.emitScale(w, leftReg, scale.Size)

	case ast.ADDRESSOF:
		sym, ok := n.Payload.(ast.SymbolPayload)
		if !ok {
			return NoReg, fmt.Errorf("internal error: ADDRESSOF node without a symbol payload")
		}
		entry := g.Symbols.Get(sym.Index)
		if entry.StorageClass == symtab.Local {
			return b.AddressOfLocal(w, entry.StackOffset)
		}
		return b.AddressOfGlobal(w, entry.Name)

	case ast.DEREFERENCE:
		if n.IsRvalue {
			return b.LoadDeref(w, leftReg, n.Type), nil
		}
		return leftReg, nil

	case ast.NOT:
		return b.LogicalNot(w, leftReg), nil
	case ast.INVERT:
		return b.Invert(w, leftReg), nil
	case ast.NEGATE:
		return b.Negate(w, leftReg), nil

	case ast.PREINCREMENT, ast.PREDECREMENT, ast.POSTINCREMENT, ast.POSTDECREMENT:
		return g.emitIncDec(w, n)

	case ast.FUNCTIONCALL:
		sym, ok := n.Payload.(ast.SymbolPayload)
		if !ok {
			return NoReg, fmt.Errorf("internal error: FUNCTIONCALL node without a symbol payload")
		}
		arg := NoReg
		if n.Left != nil {
			arg = leftReg
		}
		return b.Call(w, g.Symbols.Get(sym.Index).Name, arg)

	case ast.RETURN:
		entry := g.Symbols.Get(g.CurrentFunc)
		b.Return(w, leftReg, entry.PrimitiveType, entry.EndLabel)
		return NoReg, nil

	default:
		return NoReg, fmt.Errorf("internal error: unhandled AST operator %s in code generator", n.Op)
	}
}

func (g *Generator) emitIdentifier(w io.Writer, n *ast.Node, parentOp ast.Op) (int, error) {
	sym, ok := n.Payload.(ast.SymbolPayload)
	if !ok {
		return NoReg, fmt.Errorf("internal error: IDENTIFIER node without a symbol payload")
	}
	entry := g.Symbols.Get(sym.Index)

	if entry.StructuralType == symtab.Array {
		if entry.StorageClass == symtab.Local {
			return g.Backend.AddressOfLocal(w, entry.StackOffset)
		}
		return g.Backend.AddressOfGlobal(w, entry.Name)
	}

	if n.IsRvalue || parentOp == ast.DEREFERENCE {
		if entry.StorageClass == symtab.Local {
			return g.Backend.LoadLocal(w, entry.StackOffset, entry.PrimitiveType)
		}
		return g.Backend.LoadGlobal(w, entry.Name, entry.PrimitiveType)
	}

	return NoReg, nil
}

// emitAssign stores valueReg into the destination subtree. Generate's own
// post-order walk (the call producing addrReg, at the ast.ASSIGN case's
// caller) has already visited dest once — for a DEREFERENCE destination
// that walk already evaluated the address expression and left its result
// in addrReg, so emitAssign must reuse it rather than re-walking dest.Left:
// re-invoking Generate on it would both re-execute any side effect in the
// address expression (e.g. i++ inside a[i++] = x) and leak the register
// the first walk allocated.
func (g *Generator) emitAssign(w io.Writer, n *ast.Node, valueReg, addrReg int) (int, error) {
	dest := n.Right
	if dest == nil {
		return NoReg, fmt.Errorf("internal error: ASSIGN node without a destination")
	}

	switch dest.Op {
	case ast.IDENTIFIER:
		sym, ok := dest.Payload.(ast.SymbolPayload)
		if !ok {
			return NoReg, fmt.Errorf("internal error: assignment destination without a symbol payload")
		}
		entry := g.Symbols.Get(sym.Index)
		if entry.StorageClass == symtab.Local {
			g.Backend.StoreLocal(w, valueReg, entry.StackOffset, entry.PrimitiveType)
		} else if err := g.Backend.StoreGlobal(w, valueReg, entry.Name, entry.PrimitiveType); err != nil {
			return NoReg, err
		}
		return valueReg, nil

	case ast.DEREFERENCE:
		g.Backend.StoreDeref(w, addrReg, valueReg, dest.Type)
		return valueReg, nil

	default:
		return NoReg, fmt.Errorf("internal error: unsupported assignment destination %s", dest.Op)
	}
}

// emitScale multiplies reg by size, strength-reducing powers of two (2, 4,
// 8) to a left shift per spec.md §4.7's SCALETYPE row.
func (g *Generator) emitScale(w io.Writer, reg, size int) (int, error) {
	shift := 0
	switch size {
	case 2:
		shift = 1
	case 4:
		shift = 2
	case 8:
		shift = 3
	}
	if shift != 0 {
		amount, err := g.Backend.LoadImmediate(w, int64(shift))
		if err != nil {
			return NoReg, err
		}
		return g.Backend.ShiftLeft(w, reg, amount), nil
	}
	factor, err := g.Backend.LoadImmediate(w, int64(size))
	if err != nil {
		return NoReg, err
	}
	return g.Backend.Multiply(w, reg, factor), nil
}

// emitIncDec implements pre/post increment and decrement, all four of
// which bind to an identifier leaf (spec.md §4.5): load the current value,
// adjust by one scaled by the operand's element size (so pointer
// arithmetic still adjusts by pointee size, not by one byte), and store
// back. Pre-forms yield the adjusted value; post-forms yield the value
// read before adjustment.
func (g *Generator) emitIncDec(w io.Writer, n *ast.Node) (int, error) {
	sym, ok := n.Payload.(ast.SymbolPayload)
	if !ok {
		return NoReg, fmt.Errorf("internal error: increment/decrement node without a symbol payload")
	}
	entry := g.Symbols.Get(sym.Index)

	load := func() (int, error) {
		if entry.StorageClass == symtab.Local {
			return g.Backend.LoadLocal(w, entry.StackOffset, entry.PrimitiveType)
		}
		return g.Backend.LoadGlobal(w, entry.Name, entry.PrimitiveType)
	}
	store := func(reg int) error {
		if entry.StorageClass == symtab.Local {
			g.Backend.StoreLocal(w, reg, entry.StackOffset, entry.PrimitiveType)
			return nil
		}
		return g.Backend.StoreGlobal(w, reg, entry.Name, entry.PrimitiveType)
	}

	step := int64(1)
	if types.IsPointerType(entry.PrimitiveType) {
		if pointee, ok := types.PointerToPrimitive(entry.PrimitiveType); ok {
			step = int64(types.SizeOf(pointee))
		}
	}

	isIncrement := n.Op == ast.PREINCREMENT || n.Op == ast.POSTINCREMENT
	isPost := n.Op == ast.POSTINCREMENT || n.Op == ast.POSTDECREMENT

	// Pre-forms: adjust then store then yield the adjusted value.
	if !isPost {
		value, err := load()
		if err != nil {
			return NoReg, err
		}
		delta, err := g.Backend.LoadImmediate(w, step)
		if err != nil {
			return NoReg, err
		}
		var adjusted int
		if isIncrement {
			adjusted = g.Backend.Add(w, value, delta)
		} else {
			adjusted = g.Backend.Subtract(w, value, delta)
		}
		if err := store(adjusted); err != nil {
			return NoReg, err
		}
		return adjusted, nil
	}

	// Post-forms: load twice so the original value survives the arithmetic
	// op's input-consuming contract, adjust and store the second load, and
	// yield the first (pre-adjustment) value.
	original, err := load()
	if err != nil {
		return NoReg, err
	}
	working, err := load()
	if err != nil {
		return NoReg, err
	}
	delta, err := g.Backend.LoadImmediate(w, step)
	if err != nil {
		return NoReg, err
	}
	var adjusted int
	if isIncrement {
		adjusted = g.Backend.Add(w, working, delta)
	} else {
		adjusted = g.Backend.Subtract(w, working, delta)
	}
	if err := store(adjusted); err != nil {
		return NoReg, err
	}
	return original, nil
}

func (g *Generator) generateIf(w io.Writer, n *ast.Node) error {
	lfalse := g.Labels.New()
	lend := NoLabel
	if n.Right != nil {
		lend = g.Labels.New()
	}

	if _, err := g.Generate(w, n.Left, lfalse, ast.IF); err != nil {
		return err
	}
	g.Backend.ResetRegisters()

	if _, err := g.Generate(w, n.Middle, NoLabel, ast.NOTHING); err != nil {
		return err
	}
	g.Backend.ResetRegisters()

	if n.Right != nil {
		g.Backend.Jump(w, lend)
	}
	g.Backend.EmitLabel(w, lfalse)

	if n.Right != nil {
		if _, err := g.Generate(w, n.Right, NoLabel, ast.NOTHING); err != nil {
			return err
		}
		g.Backend.ResetRegisters()
		g.Backend.EmitLabel(w, lend)
	}
	return nil
}

func (g *Generator) generateWhile(w io.Writer, n *ast.Node) error {
	lstart := g.Labels.New()
	lend := g.Labels.New()

	g.Backend.EmitLabel(w, lstart)
	if _, err := g.Generate(w, n.Left, lend, ast.WHILE); err != nil {
		return err
	}
	g.Backend.ResetRegisters()

	if _, err := g.Generate(w, n.Right, NoLabel, ast.NOTHING); err != nil {
		return err
	}
	g.Backend.ResetRegisters()

	g.Backend.Jump(w, lstart)
	g.Backend.EmitLabel(w, lend)
	return nil
}
