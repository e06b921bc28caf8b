// Package stub provides scripted ingestion.Adapter implementations for tests.
package stub

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/ingestion"
)

// Adapter yields fixed records, then Err if set.
// Records are copied so callers can reuse the fixtures.
type Adapter struct {
	Src     domain.Source
	Records []*domain.TokenRecord
	Err     error
	// Panic, when set, panics inside the sequence before yielding anything.
	Panic string
	// Delay blocks before the first record, honoring ctx.
	Delay time.Duration
	// Fill marks the adapter fill-only.
	Fill bool

	calls atomic.Int32
}

var (
	_ ingestion.Adapter  = (*Adapter)(nil)
	_ ingestion.FillOnly = (*Adapter)(nil)
)

// Source returns Src.
func (a *Adapter) Source() domain.Source {
	return a.Src
}

// FillOnly returns Fill.
func (a *Adapter) FillOnly() bool {
	return a.Fill
}

// Calls returns how many times FetchBatch was iterated.
func (a *Adapter) Calls() int {
	return int(a.calls.Load())
}

// FetchBatch replays the script.
func (a *Adapter) FetchBatch(ctx context.Context) iter.Seq2[*domain.TokenRecord, error] {
	return func(yield func(*domain.TokenRecord, error) bool) {
		a.calls.Add(1)

		if a.Panic != "" {
			panic(a.Panic)
		}

		if a.Delay > 0 {
			t := time.NewTimer(a.Delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case <-t.C:
			}
		}

		for _, r := range a.Records {
			rec := r.Clone()
			if rec.Source == "" {
				rec.Source = a.Src
			}
			if !yield(rec, nil) {
				return
			}
		}
		if a.Err != nil {
			yield(nil, a.Err)
		}
	}
}
