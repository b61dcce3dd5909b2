// eqminer is a reference Equihash(144,5) miner for BitcoinZ-like chains.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fusion32/eqminer/internal/api"
	"github.com/fusion32/eqminer/internal/block"
	"github.com/fusion32/eqminer/internal/codec"
	"github.com/fusion32/eqminer/internal/config"
	"github.com/fusion32/eqminer/internal/equihash"
	"github.com/fusion32/eqminer/internal/miner"
	"github.com/fusion32/eqminer/internal/notify"
	"github.com/fusion32/eqminer/internal/profiling"
	"github.com/fusion32/eqminer/internal/storage"
	"github.com/fusion32/eqminer/internal/stratum"
	"github.com/fusion32/eqminer/internal/telemetry"
	"github.com/fusion32/eqminer/internal/util"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("eqminer v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := util.InitLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	util.Infof("eqminer v%s starting", version)

	var redis *storage.RedisClient
	if cfg.API.Enabled {
		redis, err = storage.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			util.Warnf("failed to connect to redis, status history disabled: %v", err)
			redis = nil
		} else {
			defer redis.Close()
		}
	}

	var pprofServer *profiling.Server
	if cfg.Profiling.Enabled {
		pprofServer = profiling.NewServer(&cfg.Profiling)
		if err := pprofServer.Start(); err != nil {
			util.Errorf("failed to start pprof server: %v", err)
		}
	}

	telemetryAgent := telemetry.NewAgent(&cfg.Telemetry)
	if err := telemetryAgent.Start(); err != nil {
		util.Errorf("failed to start telemetry agent: %v", err)
	}

	notifier := notify.NewNotifier(cfg.Notify.Enabled, cfg.Notify.WebhookURL)

	client, err := stratum.Dial(cfg.Collaborator.Address)
	if err != nil {
		util.Fatalf("failed to dial collaborator: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe(cfg.Collaborator.UserAgent); err != nil {
		util.Fatalf("subscribe failed: %v", err)
	}
	if err := client.Authorize(cfg.Worker.Username, cfg.Worker.Password); err != nil {
		util.Fatalf("authorize failed: %v", err)
	}

	numWorkers := cfg.Mining.Threads
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0) - 1
		if numWorkers < 1 {
			numWorkers = 1
		}
	}

	params := equihash.Default()
	pool := miner.NewPool(params, numWorkers, cfg.Mining.MaxSolutions)
	submitter := recordingSubmitter{client: client, redis: redis, notifier: notifier, telemetry: telemetryAgent}
	driver := miner.NewDriver(params, pool, client, submitter, redis, telemetryAgent)

	var apiServer *api.Server
	if cfg.API.Enabled {
		jobInfoFunc := func() api.JobInfo {
			mp := client.Params()
			if mp == nil {
				return api.JobInfo{}
			}
			return api.JobInfo{JobID: mp.JobID, Bits: mp.Bits}
		}
		hashrateFunc := func() float64 {
			return pool.Hashrate()
		}
		apiServer = api.NewServer(cfg, redis, jobInfoFunc, hashrateFunc)
		if err := apiServer.Start(); err != nil {
			util.Errorf("failed to start status API: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- driver.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	util.Info("eqminer started, press Ctrl+C to stop")

	select {
	case <-sigChan:
		util.Info("shutting down...")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			util.Errorf("mining loop stopped: %v", err)
		}
	}

	if apiServer != nil {
		apiServer.Stop()
	}
	if pprofServer != nil {
		pprofServer.Stop()
	}
	telemetryAgent.Stop()

	util.Info("eqminer stopped")
}

// recordingSubmitter wraps the STRATUM client's Submit to also record
// the outcome in Redis, telemetry, and (on an accepted block) the
// configured webhook.
type recordingSubmitter struct {
	client    *stratum.Client
	redis     *storage.RedisClient
	notifier  *notify.Notifier
	telemetry *telemetry.Agent
}

func (s recordingSubmitter) Submit(jobID string, timeVal uint32, nonceTail []byte, solution equihash.Solution, headerBytes []byte) error {
	err := s.client.Submit(jobID, timeVal, nonceTail, solution)
	accepted := err == nil

	s.telemetry.RecordShareSubmission(jobID, accepted)
	if s.redis != nil {
		if recErr := s.redis.RecordShare(storage.ShareEvent{
			JobID:     jobID,
			Key:       storage.SolutionKey(jobID, nonceTail, solution),
			Accepted:  accepted,
			Timestamp: time.Now().Unix(),
		}, time.Hour); recErr != nil {
			util.Warnf("failed to record share event: %v", recErr)
		}
	}
	if accepted {
		util.Infof("share accepted for job %s", jobID)
		// Only a header that also clears the block target encoded in its
		// own bits field is recorded and announced as a found block.
		hdr, parseErr := block.ParseHeader(headerBytes)
		if parseErr != nil || !block.CheckProofOfWork(headerBytes, codec.CompactToU256(hdr.Bits)) {
			return nil
		}
		headerHex := hex.EncodeToString(headerBytes)
		found := storage.BlockFound{JobID: jobID, HeaderHex: headerHex, Timestamp: time.Now().Unix()}
		if s.redis != nil {
			if recErr := s.redis.RecordBlockFound(found); recErr != nil {
				util.Warnf("failed to record found block: %v", recErr)
			}
		}
		s.notifier.NotifyBlockFound(found)
		s.telemetry.RecordBlockFound(jobID, headerHex)
	}
	return err
}
