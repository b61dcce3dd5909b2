// Package stratum implements the STRATUM collaborator protocol (line-
// delimited JSON-RPC over TCP) from the miner's side: the client dials
// the pool, authorizes, receives job notifications, and submits shares.
package stratum

import (
	"fmt"

	"github.com/fusion32/eqminer/internal/codec"
)

// MaxLineSize bounds a single protocol line: the client's read buffer is
// MaxLineSize+64 bytes, and a line that does not fit in it is a
// protocol-fatal flood/malformed-peer condition.
const MaxLineSize = 4096

// Request is a JSON-RPC call sent by the client.
type Request struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Response answers a prior Request by ID.
type Response struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  interface{} `json:"error,omitempty"`
}

// Notify is an unsolicited server message (ID is null, Method names the
// notification).
type Notify struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// line is decoded once per protocol line and carries both Response and
// Notify fields; Method is non-empty exactly for notifications, which
// lets the reader loop tell the two apart with a single Unmarshal.
type line struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	Result interface{}   `json:"result,omitempty"`
	Error  interface{}   `json:"error,omitempty"`
}

// MiningParams is the job description derived from a subscribe response
// plus the most recent mining.notify/mining.set_target notifications.
type MiningParams struct {
	JobID            string
	Version          uint32
	PrevHash         codec.U256
	MerkleRoot       codec.U256
	FinalSaplingRoot codec.U256
	Time             uint32
	Bits             uint32
	Nonce1           codec.U256
	Nonce1Bytes      uint32
	Target           codec.U256
}

// parseLEHexU32 decodes a little-endian hex field into a uint32.
func parseLEHexU32(hexStr string) (uint32, error) {
	b, err := codec.HexToBytes(hexStr)
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("stratum: expected 4-byte hex field, got %d bytes", len(b))
	}
	return codec.DecodeU32LE(b), nil
}

// parseLEHexU256 decodes a little-endian hex field directly into a U256
// (no byte reversal — per §6, every STRATUM hex field except
// mining.set_target's target is already given in LE order).
func parseLEHexU256(hexStr string) (codec.U256, error) {
	b, err := codec.HexToBytes(hexStr)
	if err != nil {
		return codec.U256{}, err
	}
	return codec.U256FromLE(b), nil
}

// parseTargetHex decodes mining.set_target's target field, which is the
// one field given in big-endian display order and must be reversed.
func parseTargetHex(hexStr string) (codec.U256, error) {
	b, err := codec.HexToBytes(hexStr)
	if err != nil {
		return codec.U256{}, err
	}
	return codec.U256FromBE(b), nil
}

func paramString(params []interface{}, i int) (string, error) {
	if i >= len(params) {
		return "", fmt.Errorf("stratum: missing param %d", i)
	}
	s, ok := params[i].(string)
	if !ok {
		return "", fmt.Errorf("stratum: param %d is not a string", i)
	}
	return s, nil
}

func paramBool(params []interface{}, i int) (bool, error) {
	if i >= len(params) {
		return false, fmt.Errorf("stratum: missing param %d", i)
	}
	b, ok := params[i].(bool)
	if !ok {
		return false, fmt.Errorf("stratum: param %d is not a bool", i)
	}
	return b, nil
}

// applyNotify merges a mining.notify notification's fields into p.
func (p *MiningParams) applyNotify(params []interface{}) error {
	jobID, err := paramString(params, 0)
	if err != nil {
		return err
	}
	versionHex, err := paramString(params, 1)
	if err != nil {
		return err
	}
	prevHex, err := paramString(params, 2)
	if err != nil {
		return err
	}
	merkleHex, err := paramString(params, 3)
	if err != nil {
		return err
	}
	reservedHex, err := paramString(params, 4)
	if err != nil {
		return err
	}
	timeHex, err := paramString(params, 5)
	if err != nil {
		return err
	}
	bitsHex, err := paramString(params, 6)
	if err != nil {
		return err
	}
	if _, err := paramBool(params, 7); err != nil {
		return err
	}

	version, err := parseLEHexU32(versionHex)
	if err != nil {
		return fmt.Errorf("stratum: version: %w", err)
	}
	prevHash, err := parseLEHexU256(prevHex)
	if err != nil {
		return fmt.Errorf("stratum: prev_hash: %w", err)
	}
	merkleRoot, err := parseLEHexU256(merkleHex)
	if err != nil {
		return fmt.Errorf("stratum: merkle_root: %w", err)
	}
	finalSaplingRoot, err := parseLEHexU256(reservedHex)
	if err != nil {
		return fmt.Errorf("stratum: final_sapling_root: %w", err)
	}
	timeVal, err := parseLEHexU32(timeHex)
	if err != nil {
		return fmt.Errorf("stratum: time: %w", err)
	}
	bits, err := parseLEHexU32(bitsHex)
	if err != nil {
		return fmt.Errorf("stratum: bits: %w", err)
	}

	p.JobID = jobID
	p.Version = version
	p.PrevHash = prevHash
	p.MerkleRoot = merkleRoot
	p.FinalSaplingRoot = finalSaplingRoot
	p.Time = timeVal
	p.Bits = bits
	return nil
}

// applySetTarget merges a mining.set_target notification's field into p.
func (p *MiningParams) applySetTarget(params []interface{}) error {
	targetHex, err := paramString(params, 0)
	if err != nil {
		return err
	}
	target, err := parseTargetHex(targetHex)
	if err != nil {
		return fmt.Errorf("stratum: target: %w", err)
	}
	p.Target = target
	return nil
}

// parseSubscribeResult decodes a mining.subscribe response's result array
// [session_id|null, nonce1_hex_le] into (nonce1, nonce1Bytes).
func parseSubscribeResult(result interface{}) (codec.U256, uint32, error) {
	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return codec.U256{}, 0, fmt.Errorf("stratum: malformed subscribe result")
	}
	nonce1Hex, ok := arr[1].(string)
	if !ok {
		return codec.U256{}, 0, fmt.Errorf("stratum: subscribe nonce1 is not a string")
	}
	b, err := codec.HexToBytes(nonce1Hex)
	if err != nil {
		return codec.U256{}, 0, fmt.Errorf("stratum: subscribe nonce1: %w", err)
	}
	// §9's open question: validate nonce1_bytes against the actual hex
	// length rather than trusting the reference's "bytes & 2" check,
	// whose intent is unclear; reject only lengths that cannot fit in a
	// 32-byte nonce.
	if len(b) > 32 {
		return codec.U256{}, 0, fmt.Errorf("stratum: nonce1 longer than 32 bytes")
	}
	return codec.U256FromLE(b), uint32(len(b)), nil
}

// submitParams builds the mining.submit params array: [user, job_id,
// time_hex_le, nonce_tail_hex_le, "64" + solution_hex].
func submitParams(user, jobID string, timeVal uint32, nonceTail []byte, solution []byte) []interface{} {
	timeHex := codec.BytesToHex(codec.EncodeU32LE(timeVal))
	nonceTailHex := codec.BytesToHex(nonceTail)
	solutionField := fmt.Sprintf("%02x%s", 0x64, codec.BytesToHex(solution))
	return []interface{}{user, jobID, timeHex, nonceTailHex, solutionField}
}
