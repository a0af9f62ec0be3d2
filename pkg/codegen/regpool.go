package codegen

import "fmt"

// RegPool is the fixed, bit-flagged scratch register pool of spec.md §3.
// Concrete backends embed one sized to their register file (4 for NASM
// x86-64, 8 for AArch64) and use it to implement Backend's
// ResetRegisters/Allocate/Free.
type RegPool struct {
	free []bool
}

// NewRegPool builds a pool of n registers, all initially free.
func NewRegPool(n int) *RegPool {
	p := &RegPool{free: make([]bool, n)}
	p.Reset()
	return p
}

// Reset marks every register free, per spec.md §3's statement-boundary and
// branch/loop-edge discipline.
func (p *RegPool) Reset() {
	for i := range p.free {
		p.free[i] = true
	}
}

// Allocate returns the lowest-indexed free register, or an error if the
// pool is exhausted — spec.md §7's "register pool exhausted" capacity
// error.
func (p *RegPool) Allocate() (int, error) {
	for i, isFree := range p.free {
		if isFree {
			p.free[i] = false
			return i, nil
		}
	}
	return 0, fmt.Errorf("register pool exhausted: no free scratch register")
}

// Free marks reg available again. Freeing an already-free register is a
// programmer error (spec.md §7 "double-free of registers").
func (p *RegPool) Free(reg int) error {
	if p.free[reg] {
		return fmt.Errorf("internal error: double free of register %d", reg)
	}
	p.free[reg] = true
	return nil
}

// MustFree panics-free best-effort free for call sites that already know a
// double free cannot occur (every Backend arithmetic op consumes its own
// inputs exactly once); it discards an impossible error rather than
// threading it through every call site.
func (p *RegPool) MustFree(reg int) { _ = p.Free(reg) }
