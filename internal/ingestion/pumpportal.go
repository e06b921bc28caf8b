package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
)

// DefaultPumpFunURL is the pump.fun frontend API.
const DefaultPumpFunURL = "https://frontend-api.pump.fun"

const (
	pumpDecimals = 6
	tagPumpFun   = "pump.fun"
	tagNew       = "new"
)

// PumpPortalSource fetches trending pump.fun launches over REST.
// The live feed for the same provider is handled by LiveHandler.
type PumpPortalSource struct {
	baseURL string
	http    *JSONClient
	now     func() time.Time
	logger  logrus.FieldLogger
}

// NewPumpPortalSource creates a launch-feed adapter. An empty baseURL uses DefaultPumpFunURL.
func NewPumpPortalSource(baseURL string, client *JSONClient, logger logrus.FieldLogger) *PumpPortalSource {
	if baseURL == "" {
		baseURL = DefaultPumpFunURL
	}
	if client == nil {
		client = NewJSONClient()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PumpPortalSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		now:     time.Now,
		logger:  logger.WithField("source", domain.SourcePumpPortal),
	}
}

// Source returns domain.SourcePumpPortal.
func (s *PumpPortalSource) Source() domain.Source {
	return domain.SourcePumpPortal
}

// pumpCoin is shared by the REST endpoint and the live new_token event.
type pumpCoin struct {
	Mint             string   `json:"mint"`
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	ImageURI         string   `json:"image_uri"`
	MarketCap        *float64 `json:"market_cap"`
	Website          string   `json:"website"`
	Twitter          string   `json:"twitter"`
	Telegram         string   `json:"telegram"`
	Description      string   `json:"description"`
	TotalSupply      *float64 `json:"total_supply"`
	CreatedTimestamp *int64   `json:"created_timestamp"` // unix seconds
	Creator          string   `json:"creator"`
}

// FetchBatch requests /coins/king-of-the-hill. The endpoint returns either
// a single coin or an array of coins.
func (s *PumpPortalSource) FetchBatch(ctx context.Context) iter.Seq2[*domain.TokenRecord, error] {
	return func(yield func(*domain.TokenRecord, error) bool) {
		var raw json.RawMessage
		if err := s.http.GetJSON(ctx, s.baseURL+"/coins/king-of-the-hill", &raw); err != nil {
			yield(nil, err)
			return
		}

		coins, err := decodeCoins(raw)
		if err != nil {
			yield(nil, err)
			return
		}
		s.logger.Debugf("received %d coins", len(coins))

		now := s.now().UnixMilli()
		for i := range coins {
			if coins[i].Mint == "" {
				continue
			}
			if !yield(coins[i].record(now, tagPumpFun), nil) {
				return
			}
		}
	}
}

func decodeCoins(raw json.RawMessage) ([]pumpCoin, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var coins []pumpCoin
		if err := json.Unmarshal(trimmed, &coins); err != nil {
			return nil, fmt.Errorf("decode coins: %w", err)
		}
		return coins, nil
	}

	var coin pumpCoin
	if err := json.Unmarshal(trimmed, &coin); err != nil {
		return nil, fmt.Errorf("decode coin: %w", err)
	}
	return []pumpCoin{coin}, nil
}

func (c *pumpCoin) record(now int64, tags ...string) *domain.TokenRecord {
	rec := &domain.TokenRecord{
		Mint:        c.Mint,
		Symbol:      c.Symbol,
		Name:        c.Name,
		Decimals:    pumpDecimals,
		LogoURI:     optString(c.ImageURI),
		MarketCap:   c.MarketCap,
		IsVerified:  false,
		Tags:        tags,
		Website:     optString(c.Website),
		Twitter:     optString(c.Twitter),
		Telegram:    optString(c.Telegram),
		Description: optString(c.Description),
		Supply:      c.TotalSupply,
		Creator:     optString(c.Creator),
		Source:      domain.SourcePumpPortal,
		LastUpdated: now,
	}
	if c.CreatedTimestamp != nil && *c.CreatedTimestamp > 0 {
		created := time.Unix(*c.CreatedTimestamp, 0).UTC().Format(time.RFC3339)
		rec.CreatedAt = &created
	}
	return rec.Normalize()
}
