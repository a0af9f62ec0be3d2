// Package symtab implements spec.md §3 "Symbol table entry" / §2 "Symbol
// table": a fixed-capacity table where global entries grow up from index 0
// and local entries grow down from the top, local lookup preferred over
// global. The lookup/register API shape (Lookup returning (index, entry,
// ok), Register appending) is grounded on the teacher's
// pkg/jack/scopes.go ScopeTable, reimplemented over a fixed array rather
// than a growable utils.Stack because spec.md §3/§5/§8 make the fixed
// capacity and index-stability of a lookup an explicit, testable
// invariant: "looking it up after insertion returns the insertion slot".
package symtab

import "subcc.dev/subcc/pkg/types"

// StructuralType is a symbol's kind, per spec.md §3.
type StructuralType int

const (
	Variable StructuralType = iota
	Function
	Array
)

// StorageClass distinguishes global from local symbols.
type StorageClass int

const (
	Global StorageClass = iota
	Local
)

// Entry is one symbol-table slot, per spec.md §3.
type Entry struct {
	Name           string
	PrimitiveType  types.Primitive
	StructuralType StructuralType
	StorageClass   StorageClass

	EndLabel    int // function's single exit label, FUNCTION only
	Size        int // element count, ARRAY only
	StackOffset int // LOCAL only
}

// NSymbols is the fixed table capacity spec.md §3 names.
const NSymbols = 1024

// Table is the fixed-capacity symbol table. Globals are appended starting
// at index 0 (globalTop grows up); locals are appended starting at the last
// index (localBase grows down). Overflow — the two cursors meeting — is
// fatal, per spec.md §3/§7 "symbol-table full".
type Table struct {
	entries [NSymbols]Entry

	globalTop int // index of the next free global slot
	localBase int // index of the next free local slot (inclusive, counting down)
}

// New returns an empty table ready for use.
func New() *Table {
	return &Table{globalTop: 0, localBase: NSymbols - 1}
}

// full reports whether the next insertion (of either class) would collide.
func (t *Table) full() bool { return t.globalTop > t.localBase }

// AddGlobal inserts e as a global symbol. If a global of the same name
// already exists, its existing slot is returned unchanged (spec.md §3).
// ok is false only when the table is full.
func (t *Table) AddGlobal(e Entry) (index int, ok bool) {
	for i := 0; i < t.globalTop; i++ {
		if t.entries[i].StorageClass == Global && t.entries[i].Name == e.Name {
			return i, true
		}
	}
	if t.full() {
		return 0, false
	}
	e.StorageClass = Global
	idx := t.globalTop
	t.entries[idx] = e
	t.globalTop++
	return idx, true
}

// AddLocal inserts e as a local symbol, always as a fresh slot (locals can
// shadow globals and other locals; spec.md does not dedupe them). ok is
// false only when the table is full.
func (t *Table) AddLocal(e Entry) (index int, ok bool) {
	if t.full() {
		return 0, false
	}
	e.StorageClass = Local
	idx := t.localBase
	t.entries[idx] = e
	t.localBase--
	return idx, true
}

// Lookup searches local entries first, then global, matching spec.md §3's
// documented preference. ok is false if name is not present in either.
func (t *Table) Lookup(name string) (index int, entry Entry, ok bool) {
	for i := NSymbols - 1; i > t.localBase; i-- {
		if t.entries[i].Name == name {
			return i, t.entries[i], true
		}
	}
	for i := 0; i < t.globalTop; i++ {
		if t.entries[i].Name == name {
			return i, t.entries[i], true
		}
	}
	return 0, Entry{}, false
}

// Get returns the entry at a known index (e.g. one previously returned by
// Lookup/AddGlobal/AddLocal). Index stability across the compilation is
// the invariant spec.md §8 tests: once assigned, an index is never reused
// or invalidated until ResetLocals runs.
func (t *Table) Get(index int) Entry { return t.entries[index] }

// Set overwrites the entry at a known index, used to fill in fields (e.g.
// EndLabel) discovered after the initial insertion.
func (t *Table) Set(index int, e Entry) { t.entries[index] = e }

// ResetLocals discards every local entry, restoring the local cursor to
// the top of the table. Called once per function, between function bodies,
// since spec.md's locals are scoped to the enclosing function only.
func (t *Table) ResetLocals() { t.localBase = NSymbols - 1 }
