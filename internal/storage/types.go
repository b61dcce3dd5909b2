// Package storage persists the rolling share/discard/block history a
// single miner process needs to answer its own status API.
package storage

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ShareEvent is one share submitted to the collaborator after it passed
// the driver's proof-of-work check; Accepted is the collaborator's
// verdict. Key content-addresses the attempt (job,
// nonce tail, and solution bytes) so a restarted driver that replays
// the last few nonces of a job doesn't double-count them.
type ShareEvent struct {
	JobID     string `json:"job_id"`
	Key       string `json:"key"`
	Accepted  bool   `json:"accepted"`
	Timestamp int64  `json:"timestamp"`
}

// SolutionKey derives a ShareEvent's dedupe key from the job it was
// found against, the nonce tail the driver tried, and the packed
// solution bytes the solver returned.
func SolutionKey(jobID string, nonceTail, solution []byte) string {
	h := blake3.New()
	h.Write([]byte(jobID))
	h.Write(nonceTail)
	h.Write(solution)
	return hex.EncodeToString(h.Sum(nil))
}

// SolverSample is a snapshot of the solver's running discard counters
// (totals since the solver was created), recorded after each solve
// attempt; the store keeps only the most recent 1000 samples.
type SolverSample struct {
	DiscardedSeeds      int64 `json:"discarded_seeds"`
	DiscardedCollisions int64 `json:"discarded_collisions"`
	DiscardedSolutions  int64 `json:"discarded_solutions"`
	Timestamp           int64 `json:"timestamp"`
}

// BlockFound records a nonce that satisfied the full block difficulty
// target, not just the share target.
type BlockFound struct {
	JobID     string `json:"job_id"`
	HeaderHex string `json:"header_hex"`
	Timestamp int64  `json:"timestamp"`
}

// Counts summarizes a window of ShareEvents for the status API.
type Counts struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}
