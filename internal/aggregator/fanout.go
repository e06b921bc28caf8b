package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/ingestion"
	"solana-token-aggregator/internal/observability"
	"solana-token-aggregator/internal/retention"
)

// SourceResult is the outcome of one adapter during a fan-out.
type SourceResult struct {
	ingestion.Result
	Err      error
	Duration time.Duration
}

// Report summarizes a fan-out.
type Report struct {
	Sources   []SourceResult // in adapter order
	Persisted retention.Result
	Size      int
	Duration  time.Duration
}

// Failed returns the sources whose adapter returned an error.
func (r *Report) Failed() []domain.Source {
	var out []domain.Source
	for _, sr := range r.Sources {
		if sr.Err != nil {
			out = append(out, sr.Source)
		}
	}
	return out
}

// fanOut runs all adapters in parallel, settles them all, then persists.
func (s *Service) fanOut(ctx context.Context) *Report {
	start := time.Now()
	s.logger.Infof("fetching from %d sources", len(s.adapters))

	results := make([]SourceResult, len(s.adapters))
	var wg sync.WaitGroup
	for i, a := range s.adapters {
		wg.Add(1)
		go func(i int, a ingestion.Adapter) {
			defer wg.Done()
			results[i] = s.runAdapter(ctx, a)
		}(i, a)
	}
	wg.Wait()

	report := &Report{Sources: results, Size: s.store.Len()}
	for _, r := range results {
		entry := s.logger.WithField("source", r.Source)
		if r.Err != nil {
			entry.Warnf("source failed after %d records: %v", r.Stored, r.Err)
			continue
		}
		entry.Infof("source done: %d fetched, %d stored, %d skipped", r.Fetched, r.Stored, r.Skipped)
	}
	s.logger.Infof("token store holds %d tokens", report.Size)
	observability.SetStoreSize(report.Size)

	if s.persister != nil {
		report.Persisted = s.persister.Persist(ctx, s.store.All())
		observability.RecordSummaries(report.Persisted.Stored, report.Persisted.Failed)
	}

	report.Duration = time.Since(start)
	status := "success"
	if len(report.Failed()) == len(results) && len(results) > 0 {
		status = "error"
	}
	observability.RecordRefresh(status, report.Duration.Seconds(), time.Now().Unix())

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report
}

// runAdapter drains one adapter under its own timeout. A panic is converted
// into that adapter's error.
func (s *Service) runAdapter(ctx context.Context, a ingestion.Adapter) (res SourceResult) {
	start := time.Now()
	res.Source = a.Source()

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s: adapter panic: %v", a.Source(), r)
		}
		res.Duration = time.Since(start)

		status := "success"
		if res.Err != nil {
			status = "error"
		}
		observability.RecordAdapterRun(string(res.Source), status, res.Stored, res.Duration.Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	r, err := s.manager.Ingest(ctx, a)
	res.Result = r
	res.Err = err
	return res
}
