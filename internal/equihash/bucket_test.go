package equihash

import "testing"

func testParamsSmall() *Params {
	// The standard small Equihash test instantiation: same K (and hence
	// the same round structure) as BitcoinZ, shrunk N so a solve touches
	// a few hundred leaves instead of tens of millions.
	return NewParams(48, 5)
}

func TestPushAssignsSequentialSlotsAndDiscardsOverflow(t *testing.T) {
	p := testParamsSmall()
	b := NewBuckets(p)

	bucket := 3
	for i := 0; i < p.NumBucketSlots; i++ {
		slot, ok := b.Push(bucket)
		if !ok {
			t.Fatalf("push %d: unexpected overflow", i)
		}
		if slot != i {
			t.Fatalf("push %d: slot = %d, want %d", i, slot, i)
		}
	}
	if _, ok := b.Push(bucket); ok {
		t.Fatal("push beyond capacity should report ok=false")
	}
}

func TestTakenCountClearsAndClamps(t *testing.T) {
	p := testParamsSmall()
	b := NewBuckets(p)

	for i := 0; i < 5; i++ {
		if _, ok := b.Push(7); !ok {
			t.Fatalf("push %d failed", i)
		}
	}
	if n := b.TakenCount(7); n != 5 {
		t.Fatalf("TakenCount = %d, want 5", n)
	}
	if n := b.TakenCount(7); n != 0 {
		t.Fatalf("TakenCount after consume = %d, want 0", n)
	}
}

func TestResetClearsAllCounters(t *testing.T) {
	p := testParamsSmall()
	b := NewBuckets(p)
	b.Push(0)
	b.Push(1)
	b.Reset()
	if n := b.TakenCount(0); n != 0 {
		t.Fatalf("bucket 0 count after reset = %d, want 0", n)
	}
	if n := b.TakenCount(1); n != 0 {
		t.Fatalf("bucket 1 count after reset = %d, want 0", n)
	}
}

func TestSlotIsWritableAndIsolatedPerIndex(t *testing.T) {
	p := testParamsSmall()
	b := NewBuckets(p)
	slotA, _ := b.Push(2)
	slotB, _ := b.Push(2)

	recA := b.Slot(2, slotA)
	recB := b.Slot(2, slotB)
	recA[0] = 111
	recB[0] = 222
	if recA[0] != 111 || recB[0] != 222 {
		t.Fatal("writes to distinct slots must not alias")
	}
}
