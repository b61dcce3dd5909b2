package miner

import (
	"context"
	"math/rand"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/fusion32/eqminer/internal/block"
	"github.com/fusion32/eqminer/internal/blake2bx"
	"github.com/fusion32/eqminer/internal/equihash"
	"github.com/fusion32/eqminer/internal/storage"
	"github.com/fusion32/eqminer/internal/stratum"
	"github.com/fusion32/eqminer/internal/telemetry"
	"github.com/fusion32/eqminer/internal/util"
)

// JobSource supplies the driver with mining parameters and a signal for
// when they change — satisfied by *stratum.Client.
type JobSource interface {
	Params() *stratum.MiningParams
	Updated() <-chan struct{}
}

// ShareSubmitter submits a share whose full serialized header cleared
// MiningParams.Target, passing that header along — satisfied by
// recordingSubmitter in cmd/eqminer.
type ShareSubmitter interface {
	Submit(jobID string, timeVal uint32, nonceTail []byte, solution equihash.Solution, headerBytes []byte) error
}

// Driver is the outer mining loop of spec.md §4.D: fetch params, build a
// base BLAKE2b state, and try nonces until the collaborator reports new
// parameters.
type Driver struct {
	params    *equihash.Params
	pool      *Pool
	source    JobSource
	submitter ShareSubmitter
	redis     *storage.RedisClient
	telemetry *telemetry.Agent
}

// NewDriver builds a driver around an already-constructed worker pool.
// redis and telemetry may be nil, in which case solver samples and
// solve-attempt transactions are skipped.
func NewDriver(p *equihash.Params, pool *Pool, source JobSource, submitter ShareSubmitter, redis *storage.RedisClient, telemetry *telemetry.Agent) *Driver {
	return &Driver{params: p, pool: pool, source: source, submitter: submitter, redis: redis, telemetry: telemetry}
}

// Run drives the miner until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	for {
		mp := d.source.Params()
		if mp == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.source.Updated():
				continue
			}
		}

		if err := d.runJob(ctx, mp); err != nil {
			return err
		}
	}
}

// runJob builds base_state for one job and tries nonces until either ctx
// is cancelled or the collaborator reports updated parameters.
func (d *Driver) runJob(ctx context.Context, mp *stratum.MiningParams) error {
	header := &block.Header{
		Version:          mp.Version,
		PrevHash:         mp.PrevHash.Bytes,
		MerkleRoot:       mp.MerkleRoot.Bytes,
		FinalSaplingRoot: mp.FinalSaplingRoot.Bytes,
		Time:             mp.Time,
		Bits:             mp.Bits,
	}

	base, err := blake2bx.InitEquihash(equihash.EquihashPersonalization, d.params.N, d.params.K)
	if err != nil {
		return err
	}
	if _, err := base.Write(header.Prefix()); err != nil {
		return err
	}

	nonce := initialNonce(mp)
	nonce1Bytes := int(mp.Nonce1Bytes)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.source.Updated():
			return nil
		default:
		}

		attempt := base.Clone()
		if _, err := attempt.Write(nonce[:]); err != nil {
			return err
		}

		var txn *newrelic.Transaction
		if d.telemetry != nil {
			txn = d.telemetry.StartSolveTransaction(mp.JobID)
		}
		started := time.Now()
		sols, err := d.pool.Solve(ctx, attempt)
		if d.telemetry != nil {
			d.telemetry.NoticeError(txn, err)
		}
		if txn != nil {
			txn.End()
		}
		if err != nil {
			return err
		}
		d.recordSolveAttempt(mp.JobID, started, len(sols) > 0)

		for _, sol := range sols {
			d.tryShare(header, nonce, sol, attempt, mp, nonce1Bytes)
		}

		incrementNonceTail(&nonce, nonce1Bytes)
	}
}

// recordSolveAttempt reports one completed pool.Solve call to telemetry
// and persists the solver's running discard counters so /status can show
// them. It runs after every solve, so each nonce attempt writes one redis
// sample.
func (d *Driver) recordSolveAttempt(jobID string, started time.Time, found bool) {
	stats := d.pool.Stats()

	if d.telemetry != nil {
		d.telemetry.RecordSolveAttempt(jobID, time.Since(started), stats.DiscardedSeeds, stats.DiscardedCollisions, stats.DiscardedSolutions, found)
		d.telemetry.UpdateHashrate(d.pool.Hashrate())
	}

	if d.redis != nil {
		sample := storage.SolverSample{
			DiscardedSeeds:      stats.DiscardedSeeds,
			DiscardedCollisions: stats.DiscardedCollisions,
			DiscardedSolutions:  stats.DiscardedSolutions,
			Timestamp:           time.Now().Unix(),
		}
		if err := d.redis.RecordSolverSample(sample); err != nil {
			util.Warnf("miner: failed to record solver sample: %v", err)
		}
	}
}

func (d *Driver) tryShare(header *block.Header, nonce [32]byte, sol equihash.Solution, attempt *blake2bx.Digest, mp *stratum.MiningParams, nonce1Bytes int) {
	if !equihash.Verify(d.params, attempt, sol) {
		util.Warnf("miner: solver produced a solution the verifier rejected, skipping")
		return
	}

	header.Nonce = nonce
	header.Solution = sol
	raw, err := header.Serialize()
	if err != nil {
		util.Errorf("miner: failed to serialize candidate header: %v", err)
		return
	}
	if !block.CheckProofOfWork(raw, mp.Target) {
		return
	}

	nonceTail := nonce[nonce1Bytes:]
	if err := d.submitter.Submit(mp.JobID, mp.Time, nonceTail, sol, raw); err != nil {
		util.Warnf("miner: share submission failed: %v", err)
	}
}

// initialNonce sets the pool-assigned prefix and fills the rest with
// randomness seeded from the job's time field, per spec.md §4.D: "the
// remaining bytes are random (seeded deterministically from time for
// reproducibility in this reference driver)".
func initialNonce(mp *stratum.MiningParams) [32]byte {
	var nonce [32]byte
	n := int(mp.Nonce1Bytes)
	copy(nonce[:n], mp.Nonce1.Bytes[:n])

	rng := rand.New(rand.NewSource(int64(mp.Time)))
	for i := n; i < 32; i++ {
		nonce[i] = byte(rng.Intn(256))
	}
	return nonce
}

// incrementNonceTail increments nonce as a little-endian counter
// confined to [nonce1Bytes, 32), carrying within that range only.
func incrementNonceTail(nonce *[32]byte, nonce1Bytes int) {
	for i := nonce1Bytes; i < 32; i++ {
		nonce[i]++
		if nonce[i] != 0 {
			return
		}
	}
}
