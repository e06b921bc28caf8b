package ingestion

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage/memory"
)

type fakeAdapter struct {
	src     domain.Source
	records []*domain.TokenRecord
	err     error
	fill    bool
}

func (f *fakeAdapter) Source() domain.Source { return f.src }
func (f *fakeAdapter) FillOnly() bool        { return f.fill }

func (f *fakeAdapter) FetchBatch(context.Context) iter.Seq2[*domain.TokenRecord, error] {
	return func(yield func(*domain.TokenRecord, error) bool) {
		for _, rec := range f.records {
			if !yield(rec.Clone(), nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func TestManager_IngestMergesAndStampsSource(t *testing.T) {
	store := memory.NewTokenStore()
	m := NewManager(store, nil)

	res, err := m.Ingest(bg(), &fakeAdapter{
		src: domain.SourceHelius,
		records: []*domain.TokenRecord{
			{Mint: "A", Symbol: "AAA", Source: domain.SourceJupiter, LastUpdated: 1},
			{Mint: "B", Symbol: "BBB", LastUpdated: 1},
			{Mint: "", Symbol: "bad"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Source: domain.SourceHelius, Fetched: 3, Stored: 2, Skipped: 1}, res)

	a, ok := store.Get("A")
	require.True(t, ok)
	assert.Equal(t, domain.SourceHelius, a.Source, "adapter source overrides the record")
}

func TestManager_ErrorKeepsEarlierRecords(t *testing.T) {
	store := memory.NewTokenStore()
	m := NewManager(store, nil)

	res, err := m.Ingest(bg(), &fakeAdapter{
		src:     domain.SourceJupiter,
		records: []*domain.TokenRecord{{Mint: "A", Symbol: "AAA", LastUpdated: 1}},
		err:     errors.New("connection reset"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jupiter")
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, store.Len())
}

func TestManager_FillOnlyNeverOverwrites(t *testing.T) {
	store := memory.NewTokenStore()
	_, err := store.Upsert(&domain.TokenRecord{
		Mint: "A", Symbol: "JUP", Name: "Jupiter", Decimals: 6,
		Source: domain.SourceJupiter, IsVerified: true, LastUpdated: 10,
	})
	require.NoError(t, err)

	m := NewManager(store, nil)
	res, err := m.Ingest(bg(), &fakeAdapter{
		src:  domain.SourceSolanaRPC,
		fill: true,
		records: []*domain.TokenRecord{
			{Mint: "A", Symbol: "UNKNOWN", Name: "Unknown Token", Decimals: 9, Supply: domain.Ptr(5.0), LastUpdated: 20},
			{Mint: "B", Symbol: "UNKNOWN", Decimals: 9, LastUpdated: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.Skipped)

	a, _ := store.Get("A")
	assert.Equal(t, "JUP", a.Symbol)
	assert.Equal(t, 6, a.Decimals)
	assert.Nil(t, a.Supply)
	assert.Equal(t, int64(10), a.LastUpdated)

	b, ok := store.Get("B")
	require.True(t, ok)
	assert.Equal(t, domain.SourceSolanaRPC, b.Source)
}
