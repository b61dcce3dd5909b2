package stratum

import (
	"encoding/json"
	"testing"
)

// The literal end-to-end scenario from the reference test corpus:
// a subscribe response followed by a set_target notification.
const (
	scenarioSubscribeLine = `{"id":1,"result":[null,"81b601c2",null],"error":null}`
	scenarioSetTargetLine = `{"id":null,"method":"mining.set_target","params":["0000ffff00000000000000000000000000000000000000000000000000000000"]}`
)

func TestParseSubscribeResultDecodesNonce1(t *testing.T) {
	var l line
	if err := json.Unmarshal([]byte(scenarioSubscribeLine), &l); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	nonce1, nonce1Bytes, err := parseSubscribeResult(l.Result)
	if err != nil {
		t.Fatalf("parseSubscribeResult: %v", err)
	}
	if nonce1Bytes != 4 {
		t.Fatalf("nonce1Bytes = %d, want 4", nonce1Bytes)
	}
	want := [4]byte{0x81, 0xb6, 0x01, 0xc2}
	for i, b := range want {
		if nonce1.Bytes[i] != b {
			t.Fatalf("nonce1.Bytes[%d] = %#x, want %#x", i, nonce1.Bytes[i], b)
		}
	}
}

func TestApplySetTargetReversesDisplayOrder(t *testing.T) {
	var l line
	if err := json.Unmarshal([]byte(scenarioSetTargetLine), &l); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	var mp MiningParams
	if err := mp.applySetTarget(l.Params); err != nil {
		t.Fatalf("applySetTarget: %v", err)
	}
	if mp.Target.Bytes[28] != 0xff || mp.Target.Bytes[29] != 0xff {
		t.Fatalf("target bytes[28:30] = %#x %#x, want 0xff 0xff", mp.Target.Bytes[28], mp.Target.Bytes[29])
	}
	for i, b := range mp.Target.Bytes {
		if i == 28 || i == 29 {
			continue
		}
		if b != 0 {
			t.Fatalf("target.Bytes[%d] = %#x, want 0", i, b)
		}
	}
}

func TestApplyNotifyPopulatesAllFields(t *testing.T) {
	params := []interface{}{
		"job-1",
		"04000000",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"0a074861",
		"b89c001e",
		true,
	}
	// keep the three hash placeholders at 64 hex chars (32 bytes)
	for i := 2; i <= 4; i++ {
		params[i] = params[i].(string)[:64]
	}

	var mp MiningParams
	if err := mp.applyNotify(params); err != nil {
		t.Fatalf("applyNotify: %v", err)
	}
	if mp.JobID != "job-1" {
		t.Fatalf("JobID = %q", mp.JobID)
	}
	if mp.Version != 4 {
		t.Fatalf("Version = %d, want 4", mp.Version)
	}
	if mp.Time != 1632007626 {
		t.Fatalf("Time = %d, want 1632007626", mp.Time)
	}
	if mp.Bits != 0x1e009cb8 {
		t.Fatalf("Bits = %#x, want %#x", mp.Bits, 0x1e009cb8)
	}
}

func TestApplyNotifyRejectsMissingParams(t *testing.T) {
	var mp MiningParams
	if err := mp.applyNotify([]interface{}{"job-1"}); err == nil {
		t.Fatal("expected an error for a truncated params array")
	}
}

func TestSubmitParamsShape(t *testing.T) {
	params := submitParams("worker.1", "job-1", 0x6148070a, []byte{0xde, 0xad}, []byte{0x01, 0x02})
	if len(params) != 5 {
		t.Fatalf("len(params) = %d, want 5", len(params))
	}
	solField, ok := params[4].(string)
	if !ok || solField != "640102" {
		t.Fatalf("solution field = %v, want \"640102\"", params[4])
	}
}
