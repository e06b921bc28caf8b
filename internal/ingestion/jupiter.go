package ingestion

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
)

// DefaultJupiterURL is the Jupiter lite token API.
const DefaultJupiterURL = "https://lite-api.jup.ag"

// JupiterSource fetches the verified token list from Jupiter.
type JupiterSource struct {
	baseURL string
	http    *JSONClient
	now     func() time.Time
	logger  logrus.FieldLogger
}

// NewJupiterSource creates a Jupiter adapter. An empty baseURL uses DefaultJupiterURL.
func NewJupiterSource(baseURL string, client *JSONClient, logger logrus.FieldLogger) *JupiterSource {
	if baseURL == "" {
		baseURL = DefaultJupiterURL
	}
	if client == nil {
		client = NewJSONClient()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &JupiterSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		now:     time.Now,
		logger:  logger.WithField("source", domain.SourceJupiter),
	}
}

// Source returns domain.SourceJupiter.
func (s *JupiterSource) Source() domain.Source {
	return domain.SourceJupiter
}

type jupiterToken struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	Name        string        `json:"name"`
	Decimals    int           `json:"decimals"`
	Icon        string        `json:"icon"`
	USDPrice    *float64      `json:"usdPrice"`
	MCap        *float64      `json:"mcap"`
	FDV         *float64      `json:"fdv"`
	Liquidity   *float64      `json:"liquidity"`
	IsVerified  bool          `json:"isVerified"`
	HolderCount *int64        `json:"holderCount"`
	CEXes       []string      `json:"cexes"`
	Tags        []string      `json:"tags"`
	Website     string        `json:"website"`
	Twitter     string        `json:"twitter"`
	CircSupply  *float64      `json:"circSupply"`
	Stats24h    *jupiterStats `json:"stats24h"`
}

type jupiterStats struct {
	BuyVolume   *float64 `json:"buyVolume"`
	SellVolume  *float64 `json:"sellVolume"`
	PriceChange *float64 `json:"priceChange"`
	NumBuys     *int64   `json:"numBuys"`
	NumSells    *int64   `json:"numSells"`
}

// FetchBatch requests /tokens/v2/tag?query=verified.
func (s *JupiterSource) FetchBatch(ctx context.Context) iter.Seq2[*domain.TokenRecord, error] {
	return func(yield func(*domain.TokenRecord, error) bool) {
		var tokens []jupiterToken
		if err := s.http.GetJSON(ctx, s.baseURL+"/tokens/v2/tag?query=verified", &tokens); err != nil {
			yield(nil, err)
			return
		}
		s.logger.Debugf("received %d tokens", len(tokens))

		now := s.now().UnixMilli()
		for i := range tokens {
			if tokens[i].ID == "" {
				continue
			}
			if !yield(tokens[i].record(now), nil) {
				return
			}
		}
	}
}

func (t *jupiterToken) record(now int64) *domain.TokenRecord {
	rec := &domain.TokenRecord{
		Mint:        t.ID,
		Symbol:      t.Symbol,
		Name:        t.Name,
		Decimals:    t.Decimals,
		LogoURI:     optString(t.Icon),
		USDPrice:    t.USDPrice,
		MarketCap:   t.MCap,
		FDV:         t.FDV,
		Liquidity:   t.Liquidity,
		IsVerified:  t.IsVerified,
		HolderCount: t.HolderCount,
		CEXes:       t.CEXes,
		Tags:        t.Tags,
		Website:     optString(t.Website),
		Twitter:     optString(t.Twitter),
		Supply:      t.CircSupply,
		Source:      domain.SourceJupiter,
		LastUpdated: now,
	}
	if st := t.Stats24h; st != nil {
		if st.BuyVolume != nil || st.SellVolume != nil {
			var v float64
			if st.BuyVolume != nil {
				v += *st.BuyVolume
			}
			if st.SellVolume != nil {
				v += *st.SellVolume
			}
			rec.Volume24h = &v
		}
		rec.PriceChange24h = st.PriceChange
		rec.Buys24h = st.NumBuys
		rec.Sells24h = st.NumSells
	}
	return rec.Normalize()
}
