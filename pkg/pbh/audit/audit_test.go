package audit

import (
	"testing"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

func TestSummaryRootIsDeterministic(t *testing.T) {
	batch := []field.F{field.FromUint64(1), field.FromUint64(2), field.FromUint64(3)}

	r1, err := summaryRoot(batch)
	if err != nil {
		t.Fatalf("summary root: %v", err)
	}
	r2, err := summaryRoot(batch)
	if err != nil {
		t.Fatalf("summary root: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("expected deterministic root, got %q and %q", r1, r2)
	}
}

func TestSummaryRootIsOrderSensitive(t *testing.T) {
	a := []field.F{field.FromUint64(1), field.FromUint64(2)}
	b := []field.F{field.FromUint64(2), field.FromUint64(1)}

	ra, err := summaryRoot(a)
	if err != nil {
		t.Fatalf("summary root a: %v", err)
	}
	rb, err := summaryRoot(b)
	if err != nil {
		t.Fatalf("summary root b: %v", err)
	}
	if ra == rb {
		t.Fatalf("expected different roots for different orderings")
	}
}

func TestSummaryRootChangesWithBatchContents(t *testing.T) {
	a := []field.F{field.FromUint64(1), field.FromUint64(2)}
	b := []field.F{field.FromUint64(1), field.FromUint64(3)}

	ra, err := summaryRoot(a)
	if err != nil {
		t.Fatalf("summary root a: %v", err)
	}
	rb, err := summaryRoot(b)
	if err != nil {
		t.Fatalf("summary root b: %v", err)
	}
	if ra == rb {
		t.Fatalf("expected different roots for different batch contents")
	}
}
