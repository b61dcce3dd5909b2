package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fusion32/eqminer/internal/util"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "eqminer:"

	keyShares        = keyPrefix + "shares"
	keySolverSamples = keyPrefix + "solver_samples"
	keyBlocksFound   = keyPrefix + "blocks_found"
	keySeenSolutions = keyPrefix + "seen_solutions"
)

// RedisClient wraps the rolling history this miner keeps about its own
// submitted shares, solver discard samples, and found blocks.
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient dials url and pings it before returning.
func NewRedisClient(url, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     url,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	util.Info("Connected to Redis at ", url)
	return &RedisClient{client: client, ctx: ctx}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// RecordShare appends a share outcome to the rolling window and trims
// entries older than window. If ev.Key has already been recorded
// (the driver retried the same job/nonce/solution after a restart) the
// event is silently skipped.
func (r *RedisClient) RecordShare(ev ShareEvent, window time.Duration) error {
	if ev.Key != "" {
		added, err := r.client.SAdd(r.ctx, keySeenSolutions, ev.Key).Result()
		if err != nil {
			return err
		}
		if added == 0 {
			return nil
		}
	}

	// A per-share sequence number keeps two otherwise identical events
	// from collapsing into one sorted-set member.
	seq, err := r.client.Incr(r.ctx, keyPrefix+"share_seq").Result()
	if err != nil {
		return err
	}
	data, err := json.Marshal(struct {
		ShareEvent
		Seq int64 `json:"seq"`
	}{ev, seq})
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.ZAdd(r.ctx, keyShares, &redis.Z{Score: float64(ev.Timestamp), Member: string(data)})
	pipe.ZRemRangeByScore(r.ctx, keyShares, "-inf", fmt.Sprintf("%d", time.Now().Add(-window).Unix()))
	_, err = pipe.Exec(r.ctx)
	return err
}

// RecentShareCounts tallies accepted/rejected shares within window.
func (r *RedisClient) RecentShareCounts(window time.Duration) (Counts, error) {
	since := time.Now().Add(-window).Unix()
	results, err := r.client.ZRangeByScore(r.ctx, keyShares, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since),
		Max: "+inf",
	}).Result()
	if err != nil {
		return Counts{}, err
	}

	var counts Counts
	for _, raw := range results {
		var ev ShareEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		if ev.Accepted {
			counts.Accepted++
		} else {
			counts.Rejected++
		}
	}
	return counts, nil
}

// RecordSolverSample appends a solver discard-counter snapshot, keeping
// only the most recent 1000 samples.
func (r *RedisClient) RecordSolverSample(s SolverSample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.ZAdd(r.ctx, keySolverSamples, &redis.Z{Score: float64(s.Timestamp), Member: string(data)})
	pipe.ZRemRangeByRank(r.ctx, keySolverSamples, 0, -1001)
	_, err = pipe.Exec(r.ctx)
	return err
}

// LatestSolverSample returns the most recently recorded solver sample,
// or nil if none exist yet.
func (r *RedisClient) LatestSolverSample() (*SolverSample, error) {
	results, err := r.client.ZRevRange(r.ctx, keySolverSamples, 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	var s SolverSample
	if err := json.Unmarshal([]byte(results[0]), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordBlockFound appends a found block to the permanent history.
func (r *RedisClient) RecordBlockFound(b BlockFound) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return r.client.ZAdd(r.ctx, keyBlocksFound, &redis.Z{Score: float64(b.Timestamp), Member: string(data)}).Err()
}

// RecentBlocksFound returns up to limit most recently found blocks.
func (r *RedisClient) RecentBlocksFound(limit int64) ([]BlockFound, error) {
	results, err := r.client.ZRevRange(r.ctx, keyBlocksFound, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	blocks := make([]BlockFound, 0, len(results))
	for _, raw := range results {
		var b BlockFound
		if err := json.Unmarshal([]byte(raw), &b); err == nil {
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}
