// Package aggregator wires the provider adapters, the token store, the live
// feed and the retention sink into one service with a read-only query API.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/ingestion"
	"solana-token-aggregator/internal/livefeed"
	"solana-token-aggregator/internal/retention"
	"solana-token-aggregator/internal/solana"
	"solana-token-aggregator/internal/storage"
)

// Default timings.
const (
	DefaultFetchTimeout    = 30 * time.Second
	DefaultRefreshInterval = time.Hour
)

// SearchLimit caps the number of records returned by Search.
const SearchLimit = 50

var (
	// ErrRefreshInProgress is returned when a fan-out is already running.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrNotInitialized is returned by Refresh before the first Initialize.
	ErrNotInitialized = errors.New("service not initialized")
	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("service stopped")
)

// LiveFeed is the subset of livefeed.Channel used by the service.
type LiveFeed interface {
	Start(ctx context.Context) error
	Stop()
	State() livefeed.State
}

// Options configures a Service.
type Options struct {
	Store    storage.TokenStore
	Adapters []ingestion.Adapter

	// Live is optional.
	Live LiveFeed
	// Persister is optional; when set it runs after every fan-out.
	Persister *retention.Persister
	// RPC is optional and only used for health reporting.
	RPC solana.RPCClient

	FetchTimeout    time.Duration
	RefreshInterval time.Duration // 0 disables the scheduler
	Logger          logrus.FieldLogger
}

// Service owns the token store and coordinates every writer to it.
type Service struct {
	store        storage.TokenStore
	adapters     []ingestion.Adapter
	manager      *ingestion.Manager
	live         LiveFeed
	persister    *retention.Persister
	rpc          solana.RPCClient
	fetchTimeout time.Duration
	interval     time.Duration
	logger       logrus.FieldLogger

	initialized atomic.Bool
	running     atomic.Bool // fan-out guard
	stopped     atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    *Report
}

// New validates opts and creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: nil token store", storage.ErrInvalidInput)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.RefreshInterval < 0 {
		opts.RefreshInterval = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Service{
		store:        opts.Store,
		adapters:     opts.Adapters,
		manager:      ingestion.NewManager(opts.Store, logger.WithField("component", "ingestion")),
		live:         opts.Live,
		persister:    opts.Persister,
		rpc:          opts.RPC,
		fetchTimeout: opts.FetchTimeout,
		interval:     opts.RefreshInterval,
		logger:       logger.WithField("component", "aggregator"),
	}, nil
}

// Initialize runs every adapter concurrently, waits for all of them to settle
// and then persists the retained subset. Adapter failures are reported in the
// Report and never returned as an error.
func (s *Service) Initialize(ctx context.Context) (*Report, error) {
	if s.stopped.Load() {
		return nil, ErrStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.running.Store(false)

	report := s.fanOut(ctx)
	s.initialized.Store(true)
	return report, nil
}

// Refresh repeats Initialize. It fails fast with ErrRefreshInProgress when a
// fan-out is running and with ErrNotInitialized before the first Initialize.
func (s *Service) Refresh(ctx context.Context) (*Report, error) {
	if s.stopped.Load() {
		return nil, ErrStopped
	}
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.running.Store(false)

	return s.fanOut(ctx), nil
}

// Start launches the live feed and the periodic refresh scheduler.
// It is idempotent; the background work ends on Stop or when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.live != nil {
		if err := s.live.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("start live feed: %w", err)
		}
	}

	if s.interval > 0 {
		s.wg.Add(1)
		go s.runScheduler(ctx)
	}
	return nil
}

// Stop ends the live feed and the scheduler and waits for them to exit.
// Start after Stop returns ErrStopped.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped.Swap(true) {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if s.live != nil {
		s.live.Stop()
	}
	s.wg.Wait()
	s.logger.Info("service stopped")
}

func (s *Service) runScheduler(ctx context.Context) {
	defer s.wg.Done()
	s.logger.Infof("refresh scheduler started (interval: %v)", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Warnf("scheduled refresh skipped: %v", err)
			}
		}
	}
}

// LastReport returns the report of the most recent fan-out, or nil.
func (s *Service) LastReport() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Initialized reports whether Initialize has completed at least once.
func (s *Service) Initialized() bool {
	return s.initialized.Load()
}
