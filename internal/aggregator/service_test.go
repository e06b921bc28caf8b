package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/ingestion"
	"solana-token-aggregator/internal/ingestion/stub"
	"solana-token-aggregator/internal/livefeed"
	"solana-token-aggregator/internal/retention"
	solstub "solana-token-aggregator/internal/solana/stub"
	"solana-token-aggregator/internal/storage"
	"solana-token-aggregator/internal/storage/memory"
)

type fakeLive struct {
	starts atomic.Int32
	stops  atomic.Int32
	err    error
}

func (f *fakeLive) Start(context.Context) error {
	f.starts.Add(1)
	return f.err
}

func (f *fakeLive) Stop() { f.stops.Add(1) }

func (f *fakeLive) State() livefeed.State { return livefeed.StateConnected }

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Store == nil {
		opts.Store = memory.NewTokenStore()
	}
	svc, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return svc
}

func token(mint, symbol string, updated int64) *domain.TokenRecord {
	return &domain.TokenRecord{Mint: mint, Symbol: symbol, Name: symbol, LastUpdated: updated}
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestInitialize_SettlesAllDespiteFailures(t *testing.T) {
	jupiter := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{token("A", "AAA", 1), token("B", "BBB", 1)}}
	pump := &stub.Adapter{Src: domain.SourcePumpPortal, Err: errors.New("502 bad gateway")}
	helius := &stub.Adapter{Src: domain.SourceHelius, Panic: "nil map write"}
	chain := &stub.Adapter{Src: domain.SourceSolanaRPC, Fill: true, Records: []*domain.TokenRecord{token("C", "CCC", 1)}}

	svc := newService(t, Options{Adapters: []ingestion.Adapter{jupiter, pump, helius, chain}})

	report, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, svc.Initialized())
	assert.Equal(t, 3, svc.Size())
	assert.Equal(t, 3, report.Size)
	assert.ElementsMatch(t, []domain.Source{domain.SourcePumpPortal, domain.SourceHelius}, report.Failed())
	assert.Contains(t, report.Sources[2].Err.Error(), "panic")
	assert.Equal(t, 2, report.Sources[0].Stored)
	assert.Same(t, report, svc.LastReport())
}

func TestInitialize_PartialRecordsBeforeErrorAreKept(t *testing.T) {
	a := &stub.Adapter{Src: domain.SourceHelius, Records: []*domain.TokenRecord{token("A", "AAA", 1)}, Err: errors.New("page 2 failed")}
	svc := newService(t, Options{Adapters: []ingestion.Adapter{a}})

	report, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	require.Error(t, report.Sources[0].Err)
	_, ok := svc.Lookup("A")
	assert.True(t, ok)
}

func TestInitialize_PerAdapterTimeout(t *testing.T) {
	slow := &stub.Adapter{Src: domain.SourceHelius, Delay: time.Second, Records: []*domain.TokenRecord{token("S", "SLOW", 1)}}
	fast := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{token("F", "FAST", 1)}}

	svc := newService(t, Options{Adapters: []ingestion.Adapter{slow, fast}, FetchTimeout: 50 * time.Millisecond})

	start := time.Now()
	report, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.ErrorIs(t, report.Sources[0].Err, context.DeadlineExceeded)
	assert.Equal(t, 1, svc.Size())
}

func TestInitialize_ConvergesRegardlessOfOrder(t *testing.T) {
	chain := &stub.Adapter{Src: domain.SourceSolanaRPC, Fill: true, Records: []*domain.TokenRecord{
		{Mint: "A", Symbol: "SOL", IsVerified: false, LastUpdated: 100},
	}}
	primary := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{
		{Mint: "A", Symbol: "SOL", IsVerified: true, USDPrice: domain.Ptr(150.2), LastUpdated: 200},
	}}

	svc := newService(t, Options{Adapters: []ingestion.Adapter{chain, primary}})
	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)

	rec, ok := svc.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, domain.SourceJupiter, rec.Source)
	assert.True(t, rec.IsVerified)
	assert.Equal(t, 150.2, *rec.USDPrice)
	assert.Equal(t, int64(200), rec.LastUpdated)
	assert.Equal(t, 1, svc.Size())
}

func TestInitialize_DistinctMints(t *testing.T) {
	var adapters []ingestion.Adapter
	for _, src := range domain.AllSources {
		adapters = append(adapters, &stub.Adapter{Src: src, Records: []*domain.TokenRecord{
			token("A", "AAA", 1), token("B", "BBB", 2), token("C", "CCC", 3),
		}})
	}
	svc := newService(t, Options{Adapters: adapters})
	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Size())
}

func TestInitialize_PersistsRetainedRecords(t *testing.T) {
	log := memory.NewSummaryLog()
	a := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{
		{Mint: "A", Symbol: "SOL", LastUpdated: 1},
		{Mint: "B", Symbol: "MEME", LastUpdated: 1},
		{Mint: "C", Symbol: "X", IsVerified: true, LastUpdated: 1},
	}}

	svc := newService(t, Options{
		Adapters:  []ingestion.Adapter{a},
		Persister: retention.NewPersister(log, retention.DefaultRules(), nil),
	})

	report, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, retention.Result{Selected: 2, Stored: 2}, report.Persisted)
	assert.Equal(t, 2, log.Len())

	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, log.Len(), "appends repeat on every refresh")
}

func TestRefresh_BeforeInitialize(t *testing.T) {
	svc := newService(t, Options{})
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRefresh_RejectsConcurrentRuns(t *testing.T) {
	a := &stub.Adapter{Src: domain.SourceJupiter, Delay: 300 * time.Millisecond, Records: []*domain.TokenRecord{token("A", "AAA", 1)}}
	svc := newService(t, Options{Adapters: []ingestion.Adapter{a}})

	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Refresh(context.Background())
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return a.Calls() == 2 }, 2*time.Second, 5*time.Millisecond)
	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)
	_, err = svc.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	wg.Wait()
	assert.Equal(t, 2, a.Calls())

	_, err = svc.Refresh(context.Background())
	assert.NoError(t, err, "guard is released after completion")
}

func TestStartStop(t *testing.T) {
	live := &fakeLive{}
	a := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{token("A", "AAA", 1)}}
	svc := newService(t, Options{Adapters: []ingestion.Adapter{a}, Live: live, RefreshInterval: 20 * time.Millisecond})

	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, int32(1), live.starts.Load())

	assert.Eventually(t, func() bool { return a.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond, "scheduler refreshes")

	svc.Stop()
	svc.Stop()
	assert.Equal(t, int32(1), live.stops.Load())

	calls := a.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, a.Calls(), "no refresh after stop")

	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	_, err = svc.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, svc.Start(context.Background()), ErrStopped)
}

func TestStartStop_ConcurrentNeverLeavesSchedulerRunning(t *testing.T) {
	for i := 0; i < 50; i++ {
		logger, hook := logtest.NewNullLogger()
		svc := newService(t, Options{RefreshInterval: time.Millisecond, Logger: logger})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			svc.Stop()
		}()
		wg.Wait()
		svc.Stop()

		before := len(hook.AllEntries())
		time.Sleep(10 * time.Millisecond)
		require.Len(t, hook.AllEntries(), before, "scheduler still ticking after Stop (iteration %d)", i)
	}
}

func TestQueries_DoNotWaitForRefresh(t *testing.T) {
	a := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{token("A", "SOL", 1)}}
	svc := newService(t, Options{Adapters: []ingestion.Adapter{a}})

	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)

	const delay = time.Second
	a.Delay = delay
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Refresh(context.Background())
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return a.Calls() == 2 }, time.Second, time.Millisecond)

	start := time.Now()
	rec, ok := svc.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "SOL", rec.Symbol)
	found, err := svc.Search("sol")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, 1, svc.Size())
	assert.Len(t, svc.VerifiedOnly(), 0)
	assert.Less(t, time.Since(start), delay/4)

	select {
	case <-done:
		t.Fatal("refresh finished before the reads were timed")
	default:
	}
	<-done
}

func TestStart_LiveFeedError(t *testing.T) {
	svc := newService(t, Options{Live: &fakeLive{err: livefeed.ErrStopped}})
	assert.ErrorIs(t, svc.Start(context.Background()), livefeed.ErrStopped)
}

func TestHealth(t *testing.T) {
	rpc := solstub.NewRPCClient()
	svc := newService(t, Options{Live: &fakeLive{}, RPC: rpc})

	h := svc.Health(context.Background())
	assert.False(t, h.Initialized)
	assert.Equal(t, "connected", h.Live)
	assert.Equal(t, "ok", h.RPC)
	assert.False(t, h.Healthy())

	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, svc.Health(context.Background()).Healthy())

	rpc.HealthErr = errors.New("node is behind")
	h = svc.Health(context.Background())
	assert.Equal(t, "node is behind", h.RPC)
	assert.False(t, h.Healthy())
}
