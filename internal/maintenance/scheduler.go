// Package maintenance keeps the sqlite store bounded: expired cache rows and
// old audit rows are pruned on tickers.
package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/astrocast/astrocast/internal/metrics"
)

// Store is the subset of the sqlite store maintenance needs.
type Store interface {
	PruneCache(now time.Time, maxEntries int) (int64, error)
	PruneFetchRuns(cutoff time.Time) (int64, error)
	PruneAICalls(cutoff time.Time) (int64, error)
}

type Config struct {
	Logger zerolog.Logger
	// CacheInterval is how often expired cache rows are pruned. Default: 15m
	CacheInterval time.Duration
	// AuditInterval is how often fetch and AI audit rows are pruned. Default: 6h
	AuditInterval time.Duration
	// CacheMaxEntries bounds the response cache. Default: 5000
	CacheMaxEntries int
	// AuditRetention is how long audit rows are kept. Default: 30 days
	AuditRetention time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Scheduler struct {
	store           Store
	logger          zerolog.Logger
	cacheInterval   time.Duration
	auditInterval   time.Duration
	cacheMaxEntries int
	auditRetention  time.Duration
	now             func() time.Time
}

func NewScheduler(store Store, cfg Config) *Scheduler {
	s := &Scheduler{
		store:           store,
		logger:          cfg.Logger.With().Str("component", "maintenance").Logger(),
		cacheInterval:   cfg.CacheInterval,
		auditInterval:   cfg.AuditInterval,
		cacheMaxEntries: cfg.CacheMaxEntries,
		auditRetention:  cfg.AuditRetention,
		now:             cfg.Now,
	}
	if s.cacheInterval <= 0 {
		s.cacheInterval = 15 * time.Minute
	}
	if s.auditInterval <= 0 {
		s.auditInterval = 6 * time.Hour
	}
	if s.cacheMaxEntries <= 0 {
		s.cacheMaxEntries = 5000
	}
	if s.auditRetention <= 0 {
		s.auditRetention = 30 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run prunes once immediately and then on each ticker until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.pruneCache()
	s.pruneAudit()

	cacheTicker := time.NewTicker(s.cacheInterval)
	auditTicker := time.NewTicker(s.auditInterval)
	defer cacheTicker.Stop()
	defer auditTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("shutting down")
			return
		case <-cacheTicker.C:
			s.pruneCache()
		case <-auditTicker.C:
			s.pruneAudit()
		}
	}
}

// Result counts rows removed by RunOnce.
type Result struct {
	CacheRows int64
	FetchRuns int64
	AICalls   int64
}

// RunOnce performs every prune and returns the first error alongside the
// counts gathered so far.
func (s *Scheduler) RunOnce() (Result, error) {
	var res Result
	var err error
	if res.CacheRows, err = s.store.PruneCache(s.now(), s.cacheMaxEntries); err != nil {
		return res, err
	}
	metrics.CacheEntriesPruned.Add(float64(res.CacheRows))

	cutoff := s.now().Add(-s.auditRetention)
	if res.FetchRuns, err = s.store.PruneFetchRuns(cutoff); err != nil {
		return res, err
	}
	if res.AICalls, err = s.store.PruneAICalls(cutoff); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Scheduler) pruneCache() {
	n, err := s.store.PruneCache(s.now(), s.cacheMaxEntries)
	if err != nil {
		s.logger.Error().Err(err).Msg("prune response cache")
		return
	}
	metrics.CacheEntriesPruned.Add(float64(n))
	if n > 0 {
		s.logger.Info().Int64("rows", n).Msg("pruned response cache")
	}
}

func (s *Scheduler) pruneAudit() {
	cutoff := s.now().Add(-s.auditRetention)
	runs, err := s.store.PruneFetchRuns(cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("prune fetch runs")
	}
	calls, err := s.store.PruneAICalls(cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("prune ai calls")
	}
	if runs > 0 || calls > 0 {
		s.logger.Info().Int64("fetch_runs", runs).Int64("ai_calls", calls).Msg("pruned audit rows")
	}
}
