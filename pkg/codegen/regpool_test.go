package codegen_test

import (
	"testing"

	"subcc.dev/subcc/pkg/codegen"
)

func TestRegPoolAllocatesLowestFreeIndex(t *testing.T) {
	pool := codegen.NewRegPool(4)
	for want := 0; want < 4; want++ {
		got, err := pool.Allocate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("allocation %d: got register %d", want, got)
		}
	}
}

func TestRegPoolExhaustionIsCapacityError(t *testing.T) {
	pool := codegen.NewRegPool(2)
	pool.Allocate()
	pool.Allocate()
	if _, err := pool.Allocate(); err == nil {
		t.Fatalf("expected an error once the pool is exhausted")
	}
}

func TestRegPoolFreeThenReallocate(t *testing.T) {
	pool := codegen.NewRegPool(2)
	r0, _ := pool.Allocate()
	pool.Allocate()
	if err := pool.Free(r0); err != nil {
		t.Fatalf("unexpected error freeing: %v", err)
	}
	got, err := pool.Allocate()
	if err != nil || got != r0 {
		t.Errorf("expected freed register %d to be reallocated, got %d, %v", r0, got, err)
	}
}

func TestRegPoolDoubleFreeIsError(t *testing.T) {
	pool := codegen.NewRegPool(2)
	r, _ := pool.Allocate()
	pool.Free(r)
	if err := pool.Free(r); err == nil {
		t.Fatalf("expected an error double-freeing register %d", r)
	}
}

func TestRegPoolResetMarksAllFree(t *testing.T) {
	pool := codegen.NewRegPool(2)
	pool.Allocate()
	pool.Allocate()
	pool.Reset()
	if _, err := pool.Allocate(); err != nil {
		t.Fatalf("expected allocation to succeed after Reset: %v", err)
	}
}
