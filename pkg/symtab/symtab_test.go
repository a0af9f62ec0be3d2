package symtab_test

import (
	"testing"

	"subcc.dev/subcc/pkg/symtab"
	"subcc.dev/subcc/pkg/types"
)

func TestIndexStableAcrossLookup(t *testing.T) {
	tab := symtab.New()
	idx, ok := tab.AddGlobal(symtab.Entry{Name: "a", PrimitiveType: types.Int})
	if !ok {
		t.Fatalf("expected insertion to succeed")
	}
	foundIdx, entry, ok := tab.Lookup("a")
	if !ok || foundIdx != idx {
		t.Fatalf("expected lookup to return insertion slot %d, got %d (ok=%v)", idx, foundIdx, ok)
	}
	if entry.Name != "a" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestDuplicateGlobalReturnsExistingSlot(t *testing.T) {
	tab := symtab.New()
	first, _ := tab.AddGlobal(symtab.Entry{Name: "x", PrimitiveType: types.Int})
	second, _ := tab.AddGlobal(symtab.Entry{Name: "x", PrimitiveType: types.Int})
	if first != second {
		t.Errorf("expected duplicate insert to return the same slot: %d != %d", first, second)
	}
}

func TestLocalPreferredOverGlobal(t *testing.T) {
	tab := symtab.New()
	tab.AddGlobal(symtab.Entry{Name: "v", PrimitiveType: types.Int})
	localIdx, _ := tab.AddLocal(symtab.Entry{Name: "v", PrimitiveType: types.Char})

	idx, entry, ok := tab.Lookup("v")
	if !ok || idx != localIdx || entry.PrimitiveType != types.Char {
		t.Errorf("expected local shadow to win lookup, got idx=%d entry=%+v", idx, entry)
	}
}

func TestResetLocalsFreesLocalSlots(t *testing.T) {
	tab := symtab.New()
	tab.AddLocal(symtab.Entry{Name: "tmp", PrimitiveType: types.Int})
	tab.ResetLocals()
	if _, _, ok := tab.Lookup("tmp"); ok {
		t.Errorf("expected local to be gone after ResetLocals")
	}
}

func TestOverflowIsFatal(t *testing.T) {
	tab := symtab.New()
	ok := true
	for i := 0; i <= symtab.NSymbols && ok; i++ {
		_, ok = tab.AddGlobal(symtab.Entry{Name: string(rune('a' + i%26)) + string(rune(i)), PrimitiveType: types.Int})
	}
	if ok {
		t.Fatalf("expected the table to eventually report full")
	}
}
