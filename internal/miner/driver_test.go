package miner

import (
	"context"
	"testing"
	"time"

	"github.com/fusion32/eqminer/internal/equihash"
	"github.com/fusion32/eqminer/internal/stratum"
)

func TestInitialNonceCopiesNonce1Prefix(t *testing.T) {
	mp := &stratum.MiningParams{Time: 1632007626, Nonce1Bytes: 4}
	mp.Nonce1.Bytes[0], mp.Nonce1.Bytes[1], mp.Nonce1.Bytes[2], mp.Nonce1.Bytes[3] = 0x81, 0xb6, 0x01, 0xc2

	nonce := initialNonce(mp)
	want := [4]byte{0x81, 0xb6, 0x01, 0xc2}
	for i, b := range want {
		if nonce[i] != b {
			t.Fatalf("nonce[%d] = %#x, want %#x", i, nonce[i], b)
		}
	}
}

func TestInitialNonceIsDeterministicForAFixedTime(t *testing.T) {
	mp := &stratum.MiningParams{Time: 1632007626, Nonce1Bytes: 4}
	a := initialNonce(mp)
	b := initialNonce(mp)
	if a != b {
		t.Fatal("initialNonce should be deterministic for the same job time")
	}
}

func TestInitialNonceVariesWithTime(t *testing.T) {
	mp1 := &stratum.MiningParams{Time: 1, Nonce1Bytes: 4}
	mp2 := &stratum.MiningParams{Time: 2, Nonce1Bytes: 4}
	a := initialNonce(mp1)
	b := initialNonce(mp2)
	if a == b {
		t.Fatal("initialNonce should vary with job time (it seeds the tail randomness)")
	}
}

func TestIncrementNonceTailCarries(t *testing.T) {
	nonce := [32]byte{}
	nonce[4] = 0xff
	nonce[5] = 0x00
	incrementNonceTail(&nonce, 4)
	if nonce[4] != 0x00 || nonce[5] != 0x01 {
		t.Fatalf("carry did not propagate: nonce[4]=%#x nonce[5]=%#x", nonce[4], nonce[5])
	}
}

func TestIncrementNonceTailNeverTouchesThePrefix(t *testing.T) {
	nonce := [32]byte{}
	for i := 0; i < 4; i++ {
		nonce[i] = 0xff
	}
	incrementNonceTail(&nonce, 4)
	for i := 0; i < 4; i++ {
		if nonce[i] != 0xff {
			t.Fatalf("nonce[%d] changed from 0xff to %#x, prefix must be left alone", i, nonce[i])
		}
	}
}

// fakeJobSource implements JobSource with no job, used to exercise Run's
// outer polling loop without a real solve.
type fakeJobSource struct {
	updated chan struct{}
}

func (f *fakeJobSource) Params() *stratum.MiningParams { return nil }
func (f *fakeJobSource) Updated() <-chan struct{}       { return f.updated }

type fakeSubmitter struct{}

func (fakeSubmitter) Submit(string, uint32, []byte, equihash.Solution, []byte) error { return nil }

func TestRunReturnsWhenContextCancelledWithNoJob(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	d := NewDriver(equihash.Default(), nil, &fakeJobSource{updated: make(chan struct{})}, fakeSubmitter{}, nil, nil)
	err := d.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("Run returned %v, want context.DeadlineExceeded", err)
	}
}
