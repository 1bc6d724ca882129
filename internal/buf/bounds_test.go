package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
	if sum, ok := AddOverflowSafe(math.MaxInt, math.MinInt); !ok || sum != -1 {
		t.Fatalf("AddOverflowSafe(MaxInt,MinInt)=%d,%v want -1,true", sum, ok)
	}
	if sum, ok := AddOverflowSafe(math.MaxInt-1, 1); !ok || sum != math.MaxInt {
		t.Fatalf("AddOverflowSafe(MaxInt-1,1)=%d,%v want MaxInt,true", sum, ok)
	}
}

func TestSliceRejectsOverflowingEnd(t *testing.T) {
	data := []byte{0, 1, 2, 3}
	if _, ok := Slice(data, 2, math.MaxInt); ok {
		t.Fatalf("Slice should fail when off+n overflows int")
	}
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if Has(data, 2, 4) {
		t.Fatalf("Has should be false for out-of-bounds range")
	}
	if !Has(data, 2, 1) {
		t.Fatalf("Has should be true for valid range")
	}

	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}

func TestSliceClipsCapacity(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	got, ok := Slice(data, 2, 2)
	if !ok {
		t.Fatalf("Slice(2,2) should succeed")
	}
	if cap(got) != 2 {
		t.Fatalf("cap = %d, want 2", cap(got))
	}
	got = append(got, 0xFF)
	if data[4] != 4 {
		t.Fatalf("append through a view must not overwrite neighbouring bytes")
	}
}
