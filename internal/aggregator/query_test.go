package aggregator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/ingestion"
	"solana-token-aggregator/internal/ingestion/stub"
	"solana-token-aggregator/internal/storage"
)

func seededService(t *testing.T) *Service {
	t.Helper()
	jupiter := &stub.Adapter{Src: domain.SourceJupiter, Records: []*domain.TokenRecord{
		{Mint: "So111", Symbol: "SOL", Name: "Wrapped SOL", IsVerified: true, LastUpdated: 30},
		{Mint: "JUPyi", Symbol: "JUP", Name: "Jupiter", IsVerified: true, LastUpdated: 20},
	}}
	pump := &stub.Adapter{Src: domain.SourcePumpPortal, Records: []*domain.TokenRecord{
		{Mint: "Solpump", Symbol: "SOLDOG", Name: "Sol Dog", LastUpdated: 40},
	}}
	var many []*domain.TokenRecord
	for i := 0; i < 60; i++ {
		many = append(many, &domain.TokenRecord{Mint: fmt.Sprintf("bulk%02d", i), Symbol: "BULK", LastUpdated: int64(i)})
	}
	helius := &stub.Adapter{Src: domain.SourceHelius, Records: many}

	svc := newService(t, Options{Adapters: []ingestion.Adapter{jupiter, pump, helius}})
	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	return svc
}

func mints(records []*domain.TokenRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Mint
	}
	return out
}

func TestSearch(t *testing.T) {
	svc := seededService(t)

	got, err := svc.Search("sol")
	require.NoError(t, err)
	assert.Equal(t, []string{"Solpump", "So111"}, mints(got), "newest first")

	got, err = svc.Search("bulk")
	require.NoError(t, err)
	assert.Len(t, got, SearchLimit)
	assert.Equal(t, "bulk59", got[0].Mint)

	_, err = svc.Search("   ")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err = svc.Search("nothing-matches")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_ReturnsCopies(t *testing.T) {
	svc := seededService(t)
	got, err := svc.Search("JUP")
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Symbol = "MUTATED"

	rec, _ := svc.Lookup("JUPyi")
	assert.Equal(t, "JUP", rec.Symbol)
}

func TestSearchTerms(t *testing.T) {
	svc := seededService(t)

	got := svc.SearchTerms(0, "jup", "", "sol", "jupiter")
	assert.Equal(t, []string{"JUPyi", "Solpump", "So111"}, mints(got))

	got = svc.SearchTerms(2, "sol", "jup")
	assert.Equal(t, []string{"Solpump", "So111"}, mints(got))
}

func TestFilters(t *testing.T) {
	svc := seededService(t)

	assert.Equal(t, []string{"JUPyi", "So111"}, mints(svc.FilterBySource(domain.SourceJupiter)))
	assert.Equal(t, []string{"Solpump"}, mints(svc.FilterBySource(domain.SourcePumpPortal)))
	assert.Empty(t, svc.FilterBySource(domain.SourceSolanaRPC))
	assert.Equal(t, []string{"JUPyi", "So111"}, mints(svc.VerifiedOnly()))
	assert.Equal(t, 63, svc.Size())

	_, ok := svc.Lookup("missing")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	st := seededService(t).Stats()
	assert.Equal(t, 63, st.Total)
	assert.Equal(t, 2, st.Verified)
	assert.Equal(t, 2, st.BySource[domain.SourceJupiter])
	assert.Equal(t, 60, st.BySource[domain.SourceHelius])
	assert.Equal(t, 0, st.BySource[domain.SourceSolanaRPC])
}
