package parser

import (
	"fmt"

	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/diag"
	"subcc.dev/subcc/pkg/symtab"
	"subcc.dev/subcc/pkg/token"
	"subcc.dev/subcc/pkg/types"
)

// precedence is spec.md §4.5's operator-precedence table. Tokens absent
// from this map have precedence 0, matching terminators (`;`, `)`, `]`,
// EOF) falling out of binexpr's loop naturally.
var precedence = map[token.Kind]int{
	token.ASSIGN: 10,
	token.LOGOR:  20,
	token.LOGAND: 30,
	token.OR:     40,
	token.XOR:    50,
	token.AMPER:  60,
	token.EQ:     70, token.NE: 70,
	token.LT: 80, token.GT: 80, token.LE: 80, token.GE: 80,
	token.LSHIFT: 90, token.RSHIFT: 90,
	token.PLUS: 100, token.MINUS: 100,
	token.STAR: 110, token.SLASH: 110,
}

// tokenToOp maps every binary operator token (ASSIGN excluded; it is
// special-cased in combine) to its AST operator tag.
var tokenToOp = map[token.Kind]ast.Op{
	token.LOGOR: ast.LOGICALOR, token.LOGAND: ast.LOGICALAND,
	token.OR: ast.BITWISEOR, token.XOR: ast.BITWISEXOR, token.AMPER: ast.BITWISEAND,
	token.EQ: ast.EQ, token.NE: ast.NE, token.LT: ast.LT, token.GT: ast.GT, token.LE: ast.LE, token.GE: ast.GE,
	token.LSHIFT: ast.LSHIFT, token.RSHIFT: ast.RSHIFT,
	token.PLUS: ast.ADD, token.MINUS: ast.SUBTRACT,
	token.STAR: ast.MULTIPLY, token.SLASH: ast.DIVIDE,
}

// binexpr implements spec.md §4.5's precedence-climbing algorithm.
// Recursing into the right-hand side with minPrec = prec(op) (rather than
// prec(op)+1) is deliberate, not a left/right-associativity bug: the loop
// condition below ("> minPrec, or right-assoc and == minPrec") already
// makes same-precedence left-associative operators stop the recursive call
// one level up, so a single recursion rule serves both associativities.
func (p *Parser) binexpr(minPrec int) (*ast.Node, *diag.Error) {
	left, err := p.prefixExpr()
	if err != nil {
		return nil, err
	}

	for {
		prec, isOp := precedence[p.tok.Kind]
		if !isOp {
			break
		}
		rightAssoc := p.tok.Kind == token.ASSIGN
		if !(prec > minPrec || (rightAssoc && prec == minPrec)) {
			break
		}

		opTok := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}

		right, err := p.binexpr(prec)
		if err != nil {
			return nil, err
		}

		left, err = p.combine(opTok, left, right)
		if err != nil {
			return nil, err
		}
	}

	left.IsRvalue = true
	return left, nil
}

// combine implements spec.md §4.5 step 4: the per-operator combination
// rule. ASSIGN swaps its operands (the value-producing right subtree
// becomes the new left child) so post-order emission computes the value
// before storing it; every other operator reconciles both sides' types
// symmetrically.
func (p *Parser) combine(opTok token.Kind, left, right *ast.Node) (*ast.Node, *diag.Error) {
	if opTok == token.ASSIGN {
		right.IsRvalue = true
		action, scaleSize, err := types.AssignCoerce(right.Type, left.Type)
		if err != nil {
			return nil, p.semanticErrorf("%s", err)
		}
		right = applyAction(right, action, left.Type, scaleSize)
		left.IsRvalue = false
		return ast.MakeNode(ast.ASSIGN, left.Type, right, nil, left, ast.NonePayload{}), nil
	}

	left.IsRvalue = true
	right.IsRvalue = true

	op, ok := tokenToOp[opTok]
	if !ok {
		return nil, p.internalErrorf("unhandled binary operator token %s", opTok)
	}

	opCtx := types.OpNothing
	switch op {
	case ast.ADD:
		opCtx = types.OpAdd
	case ast.SUBTRACT:
		opCtx = types.OpSubtract
	}

	resultType, leftAction, rightAction, scaleSize, rerr := types.ReconcileBinary(left.Type, right.Type, opCtx)
	if rerr != nil {
		return nil, p.semanticErrorf("%s", rerr)
	}
	left = applyAction(left, leftAction, resultType, scaleSize)
	right = applyAction(right, rightAction, resultType, scaleSize)

	nodeType := resultType
	if ast.IsComparison(op) {
		nodeType = types.Int
	}
	return ast.MakeNode(op, nodeType, left, nil, right, ast.NonePayload{}), nil
}

// prefixExpr implements spec.md §4.5's prefix operators, falling through to
// primaryExpr when none apply.
func (p *Parser) prefixExpr() (*ast.Node, *diag.Error) {
	switch p.tok.Kind {
	case token.AMPER:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseAddressOf()

	case token.STAR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseDereference()

	case token.MINUS:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.prefixExpr()
		if err != nil {
			return nil, err
		}
		operand.IsRvalue = true
		typ := operand.Type
		if typ == types.Char {
			operand = ast.MakeUnary(ast.WIDENTYPE, types.Int, operand, ast.NonePayload{})
			typ = types.Int
		}
		return ast.MakeUnary(ast.NEGATE, typ, operand, ast.NonePayload{}), nil

	case token.INVERT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.prefixExpr()
		if err != nil {
			return nil, err
		}
		operand.IsRvalue = true
		return ast.MakeUnary(ast.INVERT, operand.Type, operand, ast.NonePayload{}), nil

	case token.NOT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.prefixExpr()
		if err != nil {
			return nil, err
		}
		operand.IsRvalue = true
		return ast.MakeUnary(ast.NOT, types.Int, operand, ast.NonePayload{}), nil

	case token.INC, token.DEC:
		isIncrement := p.tok.Kind == token.INC
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != token.IDENT {
			return nil, p.syntaxErrorf("prefix ++/-- must precede an identifier, found %s", p.tok.Kind)
		}
		name := p.lex.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, entry, ok := p.symbols.Lookup(name)
		if !ok {
			return nil, p.semanticErrorf("undeclared identifier %q", name)
		}
		op := ast.PREDECREMENT
		if isIncrement {
			op = ast.PREINCREMENT
		}
		return ast.MakeLeaf(op, entry.PrimitiveType, ast.SymbolPayload{Index: idx}), nil

	default:
		return p.primaryExpr()
	}
}

// parseAddressOf implements the `&` prefix: the operand must be a plain
// identifier (spec.md §4.5); the result's type is the identifier's pointer
// form.
func (p *Parser) parseAddressOf() (*ast.Node, *diag.Error) {
	if p.tok.Kind != token.IDENT {
		return nil, p.syntaxErrorf("operand of & must be an identifier, found %s", p.tok.Kind)
	}
	name := p.lex.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	idx, entry, ok := p.symbols.Lookup(name)
	if !ok {
		return nil, p.semanticErrorf("undeclared identifier %q", name)
	}
	ptrType, ok := types.PrimitiveToPointer(entry.PrimitiveType)
	if !ok {
		return nil, p.semanticErrorf("cannot take the address of %q", name)
	}
	return ast.MakeLeaf(ast.ADDRESSOF, ptrType, ast.SymbolPayload{Index: idx}), nil
}

// parseDereference implements the `*` prefix: the operand must be an
// identifier or another dereference (spec.md §4.5 and §9's open question on
// this restriction).
func (p *Parser) parseDereference() (*ast.Node, *diag.Error) {
	var operand *ast.Node

	switch p.tok.Kind {
	case token.STAR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseDereference()
		if err != nil {
			return nil, err
		}
		operand = inner

	case token.IDENT:
		name := p.lex.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, entry, ok := p.symbols.Lookup(name)
		if !ok {
			return nil, p.semanticErrorf("undeclared identifier %q", name)
		}
		operand = ast.MakeLeaf(ast.IDENTIFIER, entry.PrimitiveType, ast.SymbolPayload{Index: idx})

	default:
		return nil, p.syntaxErrorf("operand of * must be an identifier or another dereference, found %s", p.tok.Kind)
	}

	if !types.IsPointerType(operand.Type) {
		return nil, p.semanticErrorf("cannot dereference non-pointer type %s", operand.Type)
	}
	operand.IsRvalue = true // the pointer value itself must be loaded to use as an address

	pointee, ok := types.PointerToPrimitive(operand.Type)
	if !ok {
		return nil, p.internalErrorf("%s is not a valid pointer type", operand.Type)
	}
	return ast.MakeUnary(ast.DEREFERENCE, pointee, operand, ast.NonePayload{}), nil
}

// primaryExpr implements spec.md §4.5's primary-expression dispatch.
func (p *Parser) primaryExpr() (*ast.Node, *diag.Error) {
	switch p.tok.Kind {
	case token.INTLIT:
		v := p.tok.IntValue
		if err := p.advance(); err != nil {
			return nil, err
		}
		typ := types.Int
		if v >= 0 && v <= 255 {
			typ = types.Char
		}
		return ast.MakeLeaf(ast.INTEGERLITERAL, typ, ast.LiteralPayload{Value: v}), nil

	case token.STRLIT:
		value := p.lex.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx := p.registerString(value)
		return ast.MakeLeaf(ast.STRINGLITERAL, types.CharPtr, ast.SymbolPayload{Index: idx}), nil

	case token.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.binexpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.match(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil

	case token.IDENT:
		name := p.lex.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.postfixExpr(name)

	default:
		if token.IsTypeKeyword(p.tok.Kind) {
			return nil, p.syntaxErrorf("unexpected type keyword %s inside expression", p.tok.Kind)
		}
		return nil, p.syntaxErrorf("unexpected token %s in expression", p.tok.Kind)
	}
}

// registerString records a string literal as a global symbol (so
// STRINGLITERAL's SymbolPayload resolves through the symbol table exactly
// like any other global) and remembers its value for the driver's
// Backend.GlobalString emission pass.
func (p *Parser) registerString(value string) int {
	label := stringLabel(p.stringCount)
	p.stringCount++
	idx, _ := p.symbols.AddGlobal(symtab.Entry{Name: label, PrimitiveType: types.CharPtr, StructuralType: symtab.Variable})
	p.strings = append(p.strings, StringGlobal{Label: label, Value: value})
	return idx
}

func stringLabel(n int) string { return fmt.Sprintf("Lstr%d", n) }

// postfixExpr implements spec.md §4.5's postfix dispatch following an
// already-scanned identifier: call, subscript, post-increment/decrement, or
// a plain identifier leaf.
func (p *Parser) postfixExpr(name string) (*ast.Node, *diag.Error) {
	idx, entry, ok := p.symbols.Lookup(name)
	if !ok {
		return nil, p.semanticErrorf("undeclared identifier %q", name)
	}

	switch p.tok.Kind {
	case token.LPAREN:
		return p.parseCall(idx, entry)
	case token.LBRACKET:
		return p.parseIndex(idx, entry)
	case token.INC, token.DEC:
		op := ast.POSTDECREMENT
		if p.tok.Kind == token.INC {
			op = ast.POSTINCREMENT
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		node := ast.MakeLeaf(op, entry.PrimitiveType, ast.SymbolPayload{Index: idx})
		node.IsRvalue = true
		return node, nil
	default:
		return ast.MakeLeaf(ast.IDENTIFIER, entry.PrimitiveType, ast.SymbolPayload{Index: idx}), nil
	}
}

// parseCall implements spec.md §4.5's single-argument function call.
func (p *Parser) parseCall(idx int, entry symtab.Entry) (*ast.Node, *diag.Error) {
	if entry.StructuralType != symtab.Function {
		return nil, p.semanticErrorf("%q is not a function", entry.Name)
	}
	if err := p.match(token.LPAREN); err != nil {
		return nil, err
	}
	var arg *ast.Node
	if p.tok.Kind != token.RPAREN {
		a, err := p.binexpr(0)
		if err != nil {
			return nil, err
		}
		a.IsRvalue = true
		arg = a
	}
	if err := p.match(token.RPAREN); err != nil {
		return nil, err
	}
	node := ast.MakeUnary(ast.FUNCTIONCALL, entry.PrimitiveType, arg, ast.SymbolPayload{Index: idx})
	node.IsRvalue = true
	return node, nil
}

// parseIndex implements spec.md §4.5's array subscript: the index is
// coerced for pointer-arithmetic scaling against the array's element type,
// added to the array's base address, then dereferenced.
func (p *Parser) parseIndex(idx int, entry symtab.Entry) (*ast.Node, *diag.Error) {
	if entry.StructuralType != symtab.Array {
		return nil, p.semanticErrorf("%q is not an array", entry.Name)
	}
	if err := p.match(token.LBRACKET); err != nil {
		return nil, err
	}
	indexExpr, err := p.binexpr(0)
	if err != nil {
		return nil, err
	}
	if !types.IsIntegerType(indexExpr.Type) {
		return nil, p.semanticErrorf("array index must have integer type, found %s", indexExpr.Type)
	}
	if err := p.match(token.RBRACKET); err != nil {
		return nil, err
	}
	indexExpr.IsRvalue = true

	ptrType, ok := types.PrimitiveToPointer(entry.PrimitiveType)
	if !ok {
		return nil, p.internalErrorf("array element type %s has no pointer form", entry.PrimitiveType)
	}

	action, scaleSize, cerr := types.CoerceForOp(indexExpr.Type, ptrType, types.OpAdd)
	if cerr != nil {
		return nil, p.semanticErrorf("%s", cerr)
	}
	indexExpr = applyAction(indexExpr, action, ptrType, scaleSize)

	base := ast.MakeLeaf(ast.IDENTIFIER, ptrType, ast.SymbolPayload{Index: idx})
	base.IsRvalue = true

	addr := ast.MakeNode(ast.ADD, ptrType, base, nil, indexExpr, ast.NonePayload{})
	addr.IsRvalue = true

	return ast.MakeUnary(ast.DEREFERENCE, entry.PrimitiveType, addr, ast.NonePayload{}), nil
}
