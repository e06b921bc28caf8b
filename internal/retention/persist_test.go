package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage/memory"
)

// flakySink fails every append whose mint is listed.
type flakySink struct {
	*memory.SummaryLog
	fail   map[string]bool
	calls  int
	cancel context.CancelFunc
	after  int
}

func (s *flakySink) Append(ctx context.Context, sum *domain.TokenSummary) error {
	s.calls++
	if s.cancel != nil && s.calls == s.after {
		s.cancel()
	}
	if s.fail[sum.Mint] {
		return errors.New("sink unavailable")
	}
	return s.SummaryLog.Append(ctx, sum)
}

func verifiedRecords(n int) []*domain.TokenRecord {
	out := make([]*domain.TokenRecord, n)
	for i := range out {
		out[i] = &domain.TokenRecord{
			Mint: fmt.Sprintf("mint-%02d", i), Symbol: fmt.Sprintf("T%d", i),
			IsVerified: true, Source: domain.SourceJupiter,
		}
	}
	return out
}

func TestPersist_StoresSelectedOnly(t *testing.T) {
	log := memory.NewSummaryLog()
	p := NewPersister(log, DefaultRules(), nil)
	p.now = func() time.Time { return time.UnixMilli(42) }

	records := []*domain.TokenRecord{
		{Mint: "a", Symbol: "SOL", Source: domain.SourceSolanaRPC},
		{Mint: "b", Symbol: "MEME", Source: domain.SourcePumpPortal},
	}

	res := p.Persist(context.Background(), records)
	assert.Equal(t, Result{Selected: 1, Stored: 1}, res)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Mint)
	assert.Equal(t, int64(42), entries[0].RecordedAt)
}

func TestPersist_SkipsFailuresAndContinues(t *testing.T) {
	records := verifiedRecords(20)
	fail := map[string]bool{}
	for i := 0; i < 20; i += 2 {
		fail[records[i].Mint] = true
	}
	sink := &flakySink{SummaryLog: memory.NewSummaryLog(), fail: fail}

	logger, hook := test.NewNullLogger()
	res := NewPersister(sink, DefaultRules(), logger).Persist(context.Background(), records)

	assert.Equal(t, Result{Selected: 20, Stored: 10, Failed: 10}, res)
	assert.Zero(t, res.Skipped())
	assert.Equal(t, 20, sink.calls, "no retries")
	assert.Equal(t, 10, sink.Len())

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, logFailures, warnings, "only the first failures are logged individually")
}

func TestPersist_CancelledContextStopsEarly(t *testing.T) {
	records := verifiedRecords(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &flakySink{SummaryLog: memory.NewSummaryLog(), cancel: cancel, after: 3}
	res := NewPersister(sink, DefaultRules(), nil).Persist(ctx, records)

	assert.Equal(t, 3, res.Stored)
	assert.Equal(t, 7, res.Skipped())
	assert.Equal(t, 3, sink.calls)
}

func TestPersist_Empty(t *testing.T) {
	res := NewPersister(memory.NewSummaryLog(), DefaultRules(), nil).Persist(context.Background(), nil)
	assert.Equal(t, Result{}, res)
}
