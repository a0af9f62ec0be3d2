package codegen_test

import (
	"testing"

	"subcc.dev/subcc/pkg/codegen"
)

func TestLabelsStartAboveNoLabel(t *testing.T) {
	labels := codegen.NewLabels()
	if first := labels.New(); first == codegen.NoLabel {
		t.Fatalf("first allocated label must not equal NoLabel (%d)", codegen.NoLabel)
	}
}

func TestLabelsAreMonotonicAndDistinct(t *testing.T) {
	labels := codegen.NewLabels()
	seen := map[int]bool{}
	prev := codegen.NoLabel
	for i := 0; i < 10; i++ {
		l := labels.New()
		if l <= prev {
			t.Errorf("label %d did not increase over previous %d", l, prev)
		}
		if seen[l] {
			t.Errorf("label %d allocated twice", l)
		}
		seen[l] = true
		prev = l
	}
}
