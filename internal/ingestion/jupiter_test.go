package ingestion

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-aggregator/internal/domain"
)

const jupiterFixture = `[
  {
    "id": "So11111111111111111111111111111111111111112",
    "symbol": "SOL", "name": "Wrapped SOL", "decimals": 9,
    "icon": "https://img/sol.png",
    "usdPrice": 150.2, "mcap": 75000000000, "fdv": 90000000000, "liquidity": 1200000,
    "isVerified": true, "holderCount": 3000000,
    "cexes": ["Binance", "OKX", "Binance"], "tags": ["verified", "lst"],
    "website": "https://solana.com", "twitter": "",
    "circSupply": 500000000,
    "stats24h": {"buyVolume": 100, "sellVolume": 50.5, "priceChange": -1.2, "numBuys": 10, "numSells": 7}
  },
  {"id": "BONK111", "symbol": "BONK", "name": "Bonk", "decimals": 5, "isVerified": true, "stats24h": {"priceChange": 3}},
  {"id": "", "symbol": "NOID"}
]`

func TestJupiterSource_FetchBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/v2/tag", r.URL.Path)
		assert.Equal(t, "verified", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jupiterFixture))
	}))
	defer server.Close()

	src := NewJupiterSource(server.URL, nil, nil)
	src.now = fixedClock

	records, err := collect(src.FetchBatch(bg()))
	require.NoError(t, err)
	require.Len(t, records, 2, "records without id are dropped")

	sol := records[0]
	assert.Equal(t, "SOL", sol.Symbol)
	assert.Equal(t, domain.SourceJupiter, sol.Source)
	assert.Equal(t, 9, sol.Decimals)
	assert.Equal(t, "https://img/sol.png", *sol.LogoURI)
	assert.Equal(t, 150.2, *sol.USDPrice)
	assert.Equal(t, 75000000000.0, *sol.MarketCap)
	assert.True(t, sol.IsVerified)
	assert.Equal(t, int64(3000000), *sol.HolderCount)
	assert.Equal(t, []string{"Binance", "OKX"}, sol.CEXes)
	assert.Equal(t, 150.5, *sol.Volume24h)
	assert.Equal(t, -1.2, *sol.PriceChange24h)
	assert.Equal(t, int64(10), *sol.Buys24h)
	assert.Equal(t, int64(7), *sol.Sells24h)
	assert.Equal(t, 500000000.0, *sol.Supply)
	assert.Nil(t, sol.Twitter, "empty strings map to absent")
	assert.Equal(t, fixedNow.UnixMilli(), sol.LastUpdated)

	bonk := records[1]
	assert.Nil(t, bonk.Volume24h, "no volume when both sides are absent")
	assert.Equal(t, 3.0, *bonk.PriceChange24h)
	assert.Nil(t, bonk.USDPrice)
}

func TestJupiterSource_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	records, err := collect(NewJupiterSource(server.URL, nil, nil).FetchBatch(bg()))
	require.Error(t, err)
	assert.Empty(t, records)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestJupiterSource_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer server.Close()

	_, err := collect(NewJupiterSource(server.URL, nil, nil).FetchBatch(bg()))
	assert.Error(t, err)
}

func TestJupiterSource_EachCallRefetches(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	src := NewJupiterSource(server.URL, nil, nil)
	seq := src.FetchBatch(bg())
	assert.Equal(t, 0, hits, "fetch is lazy")

	_, _ = collect(seq)
	_, _ = collect(src.FetchBatch(bg()))
	assert.Equal(t, 2, hits)
}
