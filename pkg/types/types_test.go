package types_test

import (
	"testing"

	"subcc.dev/subcc/pkg/types"
)

func TestSizeOf(t *testing.T) {
	cases := []struct {
		p    types.Primitive
		want int
	}{
		{types.Char, 1}, {types.Int, 4}, {types.Long, 8},
		{types.VoidPtr, 8}, {types.CharPtr, 8}, {types.IntPtr, 8}, {types.LongPtr, 8},
		{types.Void, 0},
	}
	for _, c := range cases {
		if got := types.SizeOf(c.p); got != c.want {
			t.Errorf("SizeOf(%s) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestPrimitivePointerBijection(t *testing.T) {
	for _, base := range []types.Primitive{types.Void, types.Char, types.Int, types.Long} {
		ptr, ok := types.PrimitiveToPointer(base)
		if !ok {
			t.Fatalf("PrimitiveToPointer(%s) reported no pointer form", base)
		}
		back, ok := types.PointerToPrimitive(ptr)
		if !ok || back != base {
			t.Errorf("PointerToPrimitive(%s) = %s, %v; want %s, true", ptr, back, ok, base)
		}
	}
	if _, ok := types.PrimitiveToPointer(types.CharPtr); ok {
		t.Errorf("PrimitiveToPointer(char*) should report no pointer form")
	}
}

func TestCoerceForOpWidensToWiderInteger(t *testing.T) {
	action, _, err := types.CoerceForOp(types.Char, types.Int, types.OpNothing)
	if err != nil || action != types.Widen {
		t.Fatalf("char->int coercion: got %v, %v; want Widen, nil", action, err)
	}
}

func TestCoerceForOpRejectsNarrowing(t *testing.T) {
	if _, _, err := types.CoerceForOp(types.Long, types.Int, types.OpNothing); err == nil {
		t.Fatalf("expected an error narrowing long to int")
	}
}

func TestCoerceForOpSameIntegerIsNoAction(t *testing.T) {
	action, _, err := types.CoerceForOp(types.Int, types.Int, types.OpNothing)
	if err != nil || action != types.NoAction {
		t.Fatalf("int->int coercion: got %v, %v; want NoAction, nil", action, err)
	}
}

func TestCoerceForOpScalesIntegerAgainstPointer(t *testing.T) {
	action, scale, err := types.CoerceForOp(types.Int, types.LongPtr, types.OpAdd)
	if err != nil || action != types.Scale || scale != 8 {
		t.Fatalf("int+long* coercion: got %v, %v, %v; want Scale, 8, nil", action, scale, err)
	}
}

func TestCoerceForOpNoScaleForByteSizedPointee(t *testing.T) {
	action, _, err := types.CoerceForOp(types.Int, types.CharPtr, types.OpAdd)
	if err != nil || action != types.NoAction {
		t.Fatalf("int+char* coercion: got %v, %v; want NoAction, nil", action, err)
	}
}

func TestCoerceForOpRejectsIncompatibleTypes(t *testing.T) {
	if _, _, err := types.CoerceForOp(types.IntPtr, types.LongPtr, types.OpNothing); err == nil {
		t.Fatalf("expected an error reconciling unrelated pointer types")
	}
}

func TestReconcileBinaryPicksWiderSide(t *testing.T) {
	result, leftAction, rightAction, _, err := types.ReconcileBinary(types.Char, types.Long, types.OpNothing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != types.Long || leftAction != types.Widen || rightAction != types.NoAction {
		t.Errorf("got result=%s left=%v right=%v, want Long/Widen/NoAction", result, leftAction, rightAction)
	}
}

func TestReconcileBinaryPointerPlusInteger(t *testing.T) {
	result, leftAction, rightAction, scale, err := types.ReconcileBinary(types.IntPtr, types.Int, types.OpAdd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != types.IntPtr || leftAction != types.NoAction || rightAction != types.Scale || scale != 4 {
		t.Errorf("got result=%s left=%v right=%v scale=%d, want IntPtr/NoAction/Scale/4", result, leftAction, rightAction, scale)
	}
}

func TestAssignCoerceRejectsPointerToInteger(t *testing.T) {
	if _, _, err := types.AssignCoerce(types.IntPtr, types.Int); err == nil {
		t.Fatalf("expected an error assigning a pointer to an integer")
	}
}

func TestAssignCoerceWidensReturnValue(t *testing.T) {
	action, _, err := types.AssignCoerce(types.Char, types.Long)
	if err != nil || action != types.Widen {
		t.Fatalf("got %v, %v; want Widen, nil", action, err)
	}
}
