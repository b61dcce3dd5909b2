// Package api serves this miner's own status over HTTP: the current
// STRATUM job, an estimated hashrate, and accepted/rejected/discarded
// counters.
package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/fusion32/eqminer/internal/config"
	"github.com/fusion32/eqminer/internal/storage"
	"github.com/fusion32/eqminer/internal/util"
)

// JobInfoFunc reports the current job, or a zero JobInfo if none yet.
type JobInfoFunc func() JobInfo

// HashrateFunc reports an estimated current hashrate in hashes/sec.
type HashrateFunc func() float64

// JobInfo is the subset of a STRATUM job worth surfacing in /status.
type JobInfo struct {
	JobID  string
	Height uint64
	Bits   uint32
}

// Server is the miner's local status API.
type Server struct {
	cfg   *config.Config
	redis *storage.RedisClient

	router *gin.Engine
	server *http.Server

	jobInfoFunc  JobInfoFunc
	hashrateFunc HashrateFunc

	statsCacheMu   sync.RWMutex
	statsCache     *StatusResponse
	statsCacheTime time.Time
}

// StatusResponse is the /status response body.
type StatusResponse struct {
	Job           JobStatus  `json:"job"`
	Hashrate      float64    `json:"hashrate"`
	HashrateHuman string     `json:"hashrate_human"`
	Shares        ShareStats `json:"shares"`
	Discarded     Discarded  `json:"discarded"`
	Now           int64      `json:"now"`
}

// JobStatus is the current job's identifying fields.
type JobStatus struct {
	JobID  string `json:"job_id"`
	Height uint64 `json:"height"`
	Bits   uint32 `json:"bits"`
}

// ShareStats summarizes recent accepted/rejected counts.
type ShareStats struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// Discarded mirrors the solver's latest discard-counter sample.
type Discarded struct {
	Seeds       int64 `json:"seeds"`
	Collisions  int64 `json:"collisions"`
	Solutions   int64 `json:"solutions"`
}

// NewServer builds a status server. jobInfoFunc and hashrateFunc may be
// nil, in which case /status reports zero values for those fields.
func NewServer(cfg *config.Config, redis *storage.RedisClient, jobInfoFunc JobInfoFunc, hashrateFunc HashrateFunc) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:          cfg,
		redis:        redis,
		router:       router,
		jobInfoFunc:  jobInfoFunc,
		hashrateFunc: hashrateFunc,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.API.Bind,
		Handler: s.router,
	}

	util.Infof("status API listening on %s", s.cfg.API.Bind)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Errorf("status API error: %v", err)
		}
	}()

	return nil
}

// Stop shuts down the API server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleStatus(c *gin.Context) {
	s.statsCacheMu.RLock()
	if s.statsCache != nil && time.Since(s.statsCacheTime) < s.cfg.API.StatsCache {
		cache := s.statsCache
		s.statsCacheMu.RUnlock()
		c.JSON(200, cache)
		return
	}
	s.statsCacheMu.RUnlock()

	response := s.buildStatus()

	s.statsCacheMu.Lock()
	s.statsCache = response
	s.statsCacheTime = time.Now()
	s.statsCacheMu.Unlock()

	c.JSON(200, response)
}

func (s *Server) buildStatus() *StatusResponse {
	response := &StatusResponse{Now: time.Now().Unix()}

	if s.jobInfoFunc != nil {
		job := s.jobInfoFunc()
		response.Job = JobStatus{JobID: job.JobID, Height: job.Height, Bits: job.Bits}
	}
	if s.hashrateFunc != nil {
		response.Hashrate = s.hashrateFunc()
		response.HashrateHuman = fmt.Sprintf("%s/s", humanize.SIWithDigits(response.Hashrate, 2, "H"))
	}

	if s.redis != nil {
		if counts, err := s.redis.RecentShareCounts(10 * time.Minute); err == nil {
			response.Shares = ShareStats{Accepted: counts.Accepted, Rejected: counts.Rejected}
		}
		if sample, err := s.redis.LatestSolverSample(); err == nil && sample != nil {
			response.Discarded = Discarded{
				Seeds:      sample.DiscardedSeeds,
				Collisions: sample.DiscardedCollisions,
				Solutions:  sample.DiscardedSolutions,
			}
		}
	}

	return response
}
