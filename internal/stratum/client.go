package stratum

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fusion32/eqminer/internal/equihash"
	"github.com/fusion32/eqminer/internal/util"
)

// Client is the miner side of the STRATUM protocol: it dials a
// collaborator, subscribes, authorizes, and turns mining.notify /
// mining.set_target notifications into a *MiningParams a driver can
// poll, while forwarding accepted shares back via Submit.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	user string

	mu       sync.Mutex
	pending  map[uint64]chan line
	idSeq    uint64
	params   atomic.Pointer[MiningParams]
	updated  chan struct{}
	updateMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to a collaborator at addr and starts its read loop.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("stratum: dial %s: %w", addr, err)
	}
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, MaxLineSize+64),
		pending: make(map[uint64]chan line),
		updated: make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

// Subscribe sends mining.subscribe (plus the courtesy
// mining.extranonce.subscribe call) and stores the returned nonce1 /
// nonce1_bytes for later job construction.
func (c *Client) Subscribe(userAgent string) error {
	result, err := c.call("mining.subscribe", []interface{}{userAgent})
	if err != nil {
		return fmt.Errorf("stratum: subscribe: %w", err)
	}
	nonce1, nonce1Bytes, err := parseSubscribeResult(result)
	if err != nil {
		return err
	}

	mp := &MiningParams{Nonce1: nonce1, Nonce1Bytes: nonce1Bytes}
	c.params.Store(mp)

	if _, err := c.call("mining.extranonce.subscribe", nil); err != nil {
		util.Debugf("stratum: collaborator does not support extranonce.subscribe: %v", err)
	}
	return nil
}

// Authorize sends mining.authorize and records the username used for
// subsequent mining.submit calls.
func (c *Client) Authorize(worker, pass string) error {
	result, err := c.call("mining.authorize", []interface{}{worker, pass})
	if err != nil {
		return fmt.Errorf("stratum: authorize: %w", err)
	}
	ok, _ := result.(bool)
	if !ok {
		return fmt.Errorf("stratum: collaborator refused authorization for %q", worker)
	}
	c.user = worker
	return nil
}

// Params returns the most recently assembled mining parameters, or nil
// before Subscribe has succeeded. After Subscribe it carries nonce1 and
// nonce1_bytes; the job fields stay zero until the first mining.notify
// arrives. Implements miner.JobSource.
func (c *Client) Params() *MiningParams {
	return c.params.Load()
}

// Updated signals every time Params changes. Implements miner.JobSource.
func (c *Client) Updated() <-chan struct{} {
	return c.updated
}

// Submit sends mining.submit for one share and returns an error if the
// collaborator rejects it. recordingSubmitter in cmd/eqminer wraps it to
// implement miner.ShareSubmitter.
func (c *Client) Submit(jobID string, timeVal uint32, nonceTail []byte, solution equihash.Solution) error {
	params := submitParams(c.user, jobID, timeVal, nonceTail, solution)
	result, err := c.call("mining.submit", params)
	if err != nil {
		return fmt.Errorf("stratum: submit: %w", err)
	}
	accepted, _ := result.(bool)
	if !accepted {
		return fmt.Errorf("stratum: collaborator rejected share for job %s", jobID)
	}
	return nil
}

// call issues a request, blocks for its matching response, and returns
// the result field (or an error built from the response's error field).
func (c *Client) call(method string, params []interface{}) (interface{}, error) {
	id := atomic.AddUint64(&c.idSeq, 1)
	ch := make(chan line, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := Request{ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("stratum: %s: %v", method, resp.Error)
		}
		return resp.Result, nil
	case <-c.closed:
		return nil, fmt.Errorf("stratum: connection closed while waiting for %s", method)
	}
}

// readLoop dispatches every incoming line to either a pending call's
// channel (a response) or notify handling, until the connection closes.
func (c *Client) readLoop() {
	defer c.Close()
	for {
		raw, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			return
		}
		if isPrefix {
			util.Warnf("stratum: collaborator sent an oversized line, disconnecting")
			return
		}
		if len(raw) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			util.Warnf("stratum: malformed line from collaborator: %v", err)
			continue
		}

		if l.Method != "" {
			c.handleNotify(l)
			continue
		}

		id, ok := decodeID(l.ID)
		if !ok {
			continue
		}
		c.mu.Lock()
		ch := c.pending[id]
		c.mu.Unlock()
		if ch != nil {
			ch <- l
		}
	}
}

func (c *Client) handleNotify(l line) {
	switch l.Method {
	case "mining.notify":
		c.mutateParams(func(mp *MiningParams) error { return mp.applyNotify(l.Params) })
	case "mining.set_target":
		c.mutateParams(func(mp *MiningParams) error { return mp.applySetTarget(l.Params) })
	default:
		util.Debugf("stratum: ignoring unsupported notification %q", l.Method)
	}
}

// mutateParams clones the current params (or starts from a zero value),
// applies fn, stores the result, and signals Updated.
func (c *Client) mutateParams(fn func(*MiningParams) error) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	var next MiningParams
	if cur := c.params.Load(); cur != nil {
		next = *cur
	}
	if err := fn(&next); err != nil {
		util.Warnf("stratum: rejecting notification: %v", err)
		return
	}
	c.params.Store(&next)

	select {
	case c.updated <- struct{}{}:
	default:
	}
}

func decodeID(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}
