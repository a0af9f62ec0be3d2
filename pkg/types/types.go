// Package types implements spec.md §4.3: the primitive type lattice, its
// predicates and sizes, the primitive<->pointer bijections, and the
// operator-context coercion rule that decides whether (and how) one
// operand must be adjusted to match another.
//
// This package deliberately returns a description of the adjustment
// (Action/ScaleSize) rather than building the widen/scale AST node itself:
// pkg/ast's Node carries a types.Primitive field, so types must not import
// ast in turn or the two packages would cycle. pkg/parser, which already
// depends on both, is the one that turns an Action into the actual
// ast.WIDENTYPE/ast.SCALETYPE wrapper node. This mirrors the teacher's own
// layering discipline of keeping codegen payload types (asm.AInstruction,
// hack.CInstruction) free of any dependency on the packages that build them.
package types

import "fmt"

// Primitive is the closed set of base types spec.md §3 names.
type Primitive int

const (
	None Primitive = iota
	Void
	Char
	Int
	Long
	VoidPtr
	CharPtr
	IntPtr
	LongPtr
)

func (p Primitive) String() string {
	switch p {
	case None:
		return "none"
	case Void:
		return "void"
	case Char:
		return "char"
	case Int:
		return "int"
	case Long:
		return "long"
	case VoidPtr:
		return "void*"
	case CharPtr:
		return "char*"
	case IntPtr:
		return "int*"
	case LongPtr:
		return "long*"
	default:
		return "<invalid primitive>"
	}
}

// IsIntegerType reports whether p is one of char/int/long.
func IsIntegerType(p Primitive) bool {
	return p == Char || p == Int || p == Long
}

// IsPointerType reports whether p is a pointer-to-base-type form.
func IsPointerType(p Primitive) bool {
	switch p {
	case VoidPtr, CharPtr, IntPtr, LongPtr:
		return true
	default:
		return false
	}
}

// SizeOf returns the byte width of p. Pointers are always 8 bytes; Void has
// no storage size (0). Querying None is an internal error by construction
// (callers never hold a None-typed node past parsing).
func SizeOf(p Primitive) int {
	switch p {
	case Char:
		return 1
	case Int:
		return 4
	case Long, VoidPtr, CharPtr, IntPtr, LongPtr:
		return 8
	default:
		return 0
	}
}

// PrimitiveToPointer returns the pointer-to form of a base type. ok is
// false for anything other than void/char/int/long, which is an internal
// error at the call site (spec.md §3's bijection covers exactly those four).
func PrimitiveToPointer(p Primitive) (Primitive, bool) {
	switch p {
	case Void:
		return VoidPtr, true
	case Char:
		return CharPtr, true
	case Int:
		return IntPtr, true
	case Long:
		return LongPtr, true
	default:
		return None, false
	}
}

// PointerToPrimitive returns the pointee type of a pointer form. ok is
// false for anything that is not one of the four pointer types.
func PointerToPrimitive(p Primitive) (Primitive, bool) {
	switch p {
	case VoidPtr:
		return Void, true
	case CharPtr:
		return Char, true
	case IntPtr:
		return Int, true
	case LongPtr:
		return Long, true
	default:
		return None, false
	}
}

// OpContext narrows the full operator enumeration down to what
// CoerceForOp needs to know: whether pointer arithmetic is in play, or
// (OpNothing) this is an assignment/return compatibility check.
type OpContext int

const (
	OpNothing OpContext = iota
	OpAdd
	OpSubtract
)

// Action describes the adjustment CoerceForOp decided is necessary.
type Action int

const (
	NoAction Action = iota
	Widen
	Scale
)

// CoerceForOp implements spec.md §4.3's coercion function. nodeType is the
// type of the subtree being coerced, contextType the type it must match,
// op the operator the coercion happens under. ScaleSize is meaningful only
// when the returned Action is Scale (the pointee's byte size).
func CoerceForOp(nodeType, contextType Primitive, op OpContext) (action Action, scaleSize int, err error) {
	if IsIntegerType(nodeType) && IsIntegerType(contextType) {
		if nodeType == contextType {
			return NoAction, 0, nil
		}
		if SizeOf(nodeType) > SizeOf(contextType) {
			return NoAction, 0, fmt.Errorf("cannot narrow %s to %s", nodeType, contextType)
		}
		return Widen, 0, nil
	}

	if IsPointerType(nodeType) && nodeType == contextType && op == OpNothing {
		return NoAction, 0, nil
	}

	if (op == OpAdd || op == OpSubtract) && IsIntegerType(nodeType) && IsPointerType(contextType) {
		pointee, ok := PointerToPrimitive(contextType)
		if !ok {
			return NoAction, 0, fmt.Errorf("internal error: %s is not a valid pointer type", contextType)
		}
		size := SizeOf(pointee)
		if size > 1 {
			return Scale, size, nil
		}
		return NoAction, 0, nil
	}

	return NoAction, 0, fmt.Errorf("incompatible types %s and %s", nodeType, contextType)
}

// ReconcileBinary implements the "binary-expression type reconciliation"
// rule of spec.md §4.3: try coercing each side to the other's type under
// op, and accept if at least one direction succeeds. It returns the action
// to apply to the left and right subtrees (at most one will be non-NoAction
// in the pointer-arithmetic case; for symmetric integer widening exactly
// one side widens to the other's, wider, type) along with the result type.
func ReconcileBinary(leftType, rightType Primitive, op OpContext) (resultType Primitive, leftAction, rightAction Action, scaleSize int, err error) {
	if rAction, rSize, rErr := CoerceForOp(rightType, leftType, op); rErr == nil {
		return leftType, NoAction, rAction, rSize, nil
	}
	if lAction, lSize, lErr := CoerceForOp(leftType, rightType, op); lErr == nil {
		return rightType, lAction, NoAction, lSize, nil
	}
	return None, NoAction, NoAction, 0, fmt.Errorf("incompatible types in binary expression: %s and %s", leftType, rightType)
}

// AssignCoerce implements the asymmetric assignment rule of spec.md §4.3:
// the right-hand side must be coerced to match the left-hand side's type.
func AssignCoerce(rhsType, lhsType Primitive) (action Action, scaleSize int, err error) {
	action, scaleSize, err = CoerceForOp(rhsType, lhsType, OpNothing)
	if err != nil {
		return NoAction, 0, fmt.Errorf("cannot assign %s to %s: %w", rhsType, lhsType, err)
	}
	return action, scaleSize, nil
}
