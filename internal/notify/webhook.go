// Package notify posts a webhook notification when this miner finds a
// full block.
package notify

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zeebo/blake3"

	"github.com/fusion32/eqminer/internal/storage"
	"github.com/fusion32/eqminer/internal/util"
)

// Retry configuration for the webhook POST.
const (
	MaxRetries     = 3
	RetryBaseDelay = 2 * time.Second
)

// Notifier posts block-found events to a single webhook URL.
type Notifier struct {
	enabled    bool
	webhookURL string
	client     *http.Client
}

// NewNotifier builds a Notifier; it is a no-op when enabled is false.
func NewNotifier(enabled bool, webhookURL string) *Notifier {
	return &Notifier{
		enabled:    enabled,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// blockFoundPayload is the webhook body.
type blockFoundPayload struct {
	Event     string `json:"event"`
	JobID     string `json:"job_id"`
	HeaderHex string `json:"header_hex"`
	Timestamp int64  `json:"timestamp"`
}

// NotifyBlockFound posts b to the configured webhook, retrying with
// exponential backoff. It is a no-op if the notifier is disabled.
func (n *Notifier) NotifyBlockFound(b storage.BlockFound) {
	if !n.enabled {
		return
	}
	go n.post(blockFoundPayload{
		Event:     "block_found",
		JobID:     b.JobID,
		HeaderHex: b.HeaderHex,
		Timestamp: b.Timestamp,
	})
}

func (n *Notifier) post(payload blockFoundPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		util.Warnf("notify: failed to marshal webhook payload: %v", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			delay := RetryBaseDelay * time.Duration(1<<uint(attempt-1))
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Payload-Digest", digestPayload(body))

		resp, err := n.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 400 {
			return
		}
		if resp.StatusCode == 429 {
			time.Sleep(5 * time.Second)
			continue
		}
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
	}

	if lastErr != nil {
		util.Warnf("notify: failed to post block-found webhook after %d attempts: %v", MaxRetries, lastErr)
	}
}

// digestPayload lets the receiving webhook verify the body wasn't
// altered or truncated in transit, without requiring a shared secret.
func digestPayload(body []byte) string {
	hasher := blake3.New()
	hasher.Write(body)
	return hex.EncodeToString(hasher.Sum(nil))
}
