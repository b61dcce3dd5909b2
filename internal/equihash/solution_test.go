package equihash

import "testing"

func TestPackRefRoundTrip(t *testing.T) {
	p := Default()
	cases := []struct{ bucket, a, b int }{
		{0, 0, 0},
		{p.NumBuckets - 1, p.NumBucketSlots - 1, p.NumBucketSlots - 1},
		{1234, 5, 6},
	}
	for _, c := range cases {
		hi, lo := packRef(p.SlotBits, c.bucket, c.a, c.b)
		bucket, a, b := unpackRef(p.SlotBits, hi, lo)
		if bucket != c.bucket || a != c.a || b != c.b {
			t.Fatalf("round trip (%d,%d,%d) -> (%d,%d,%d)", c.bucket, c.a, c.b, bucket, a, b)
		}
	}
}

func TestDistinctIndices(t *testing.T) {
	if !distinctIndices([]uint32{1, 2, 3, 4}) {
		t.Fatal("expected distinct")
	}
	if distinctIndices([]uint32{1, 2, 2, 4}) {
		t.Fatal("expected duplicate to be detected")
	}
}

func TestPackUnpackIndicesRoundTrip(t *testing.T) {
	p := testParamsSmall()
	idx := make([]uint32, p.Indices)
	for i := range idx {
		idx[i] = uint32(i * 3 % p.Range)
	}
	sol := packIndices(p, idx)
	if len(sol) != p.SolutionBytes {
		t.Fatalf("len(sol) = %d, want %d", len(sol), p.SolutionBytes)
	}
	back := unpackIndices(p, sol)
	for i := range idx {
		if back[i] != idx[i] {
			t.Fatalf("index %d: got %d, want %d", i, back[i], idx[i])
		}
	}
}
