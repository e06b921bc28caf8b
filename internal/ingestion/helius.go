package ingestion

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
)

// DefaultHeliusURL is the Helius mainnet RPC endpoint.
const DefaultHeliusURL = "https://mainnet.helius-rpc.com"

// Helius pagination defaults.
const (
	DefaultHeliusPageLimit = 1000
	DefaultHeliusMaxPages  = 5
)

const (
	unknownSymbol   = "UNKNOWN"
	unknownName     = "Unknown Token"
	defaultDecimals = 9
)

// HeliusConfig configures HeliusSource.
type HeliusConfig struct {
	BaseURL   string
	APIKey    string
	PageLimit int
	MaxPages  int
}

// HeliusSource pages through DAS searchAssets for fungible tokens.
// It yields nothing when no API key is configured.
type HeliusSource struct {
	cfg    HeliusConfig
	http   *JSONClient
	now    func() time.Time
	logger logrus.FieldLogger
}

// NewHeliusSource creates an enriched-metadata adapter.
func NewHeliusSource(cfg HeliusConfig, client *JSONClient, logger logrus.FieldLogger) *HeliusSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHeliusURL
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultHeliusPageLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultHeliusMaxPages
	}
	if client == nil {
		client = NewJSONClient()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HeliusSource{
		cfg:    cfg,
		http:   client,
		now:    time.Now,
		logger: logger.WithField("source", domain.SourceHelius),
	}
}

// Source returns domain.SourceHelius.
func (s *HeliusSource) Source() domain.Source {
	return domain.SourceHelius
}

// Enabled reports whether an API key is configured.
func (s *HeliusSource) Enabled() bool {
	return s.cfg.APIKey != ""
}

type heliusRequest struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      string             `json:"id"`
	Method  string             `json:"method"`
	Params  heliusSearchParams `json:"params"`
}

type heliusSearchParams struct {
	TokenType      string               `json:"tokenType"`
	Page           int                  `json:"page"`
	Limit          int                  `json:"limit"`
	DisplayOptions heliusDisplayOptions `json:"displayOptions"`
}

type heliusDisplayOptions struct {
	ShowNativeBalance bool `json:"showNativeBalance"`
}

type heliusResponse struct {
	Result *struct {
		Total int           `json:"total"`
		Items []heliusAsset `json:"items"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type heliusAsset struct {
	ID      string `json:"id"`
	Content *struct {
		Metadata *struct {
			Name        string `json:"name"`
			Symbol      string `json:"symbol"`
			Description string `json:"description"`
		} `json:"metadata"`
		Files []struct {
			URI string `json:"uri"`
		} `json:"files"`
	} `json:"content"`
	TokenInfo *struct {
		Decimals *int     `json:"decimals"`
		Supply   *float64 `json:"supply"`
	} `json:"token_info"`
	Authorities []struct {
		Scopes []string `json:"scopes"`
	} `json:"authorities"`
	Grouping []struct {
		GroupValue string `json:"group_value"`
	} `json:"grouping"`
}

// heliusRPCError reports a JSON-RPC error object from Helius.
type heliusRPCError struct {
	Code    int
	Message string
}

func (e *heliusRPCError) Error() string {
	return fmt.Sprintf("helius rpc error %d: %s", e.Code, e.Message)
}

// FetchBatch requests pages 1..MaxPages, stopping after the first short page.
func (s *HeliusSource) FetchBatch(ctx context.Context) iter.Seq2[*domain.TokenRecord, error] {
	if !s.Enabled() {
		s.logger.Warn("helius api key not provided, skipping")
		return empty()
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/?api-key=" + url.QueryEscape(s.cfg.APIKey)

	return func(yield func(*domain.TokenRecord, error) bool) {
		for page := 1; page <= s.cfg.MaxPages; page++ {
			req := heliusRequest{
				JSONRPC: "2.0",
				ID:      "solana-token-aggregator",
				Method:  "searchAssets",
				Params: heliusSearchParams{
					TokenType:      "fungible",
					Page:           page,
					Limit:          s.cfg.PageLimit,
					DisplayOptions: heliusDisplayOptions{ShowNativeBalance: true},
				},
			}

			var resp heliusResponse
			if err := s.http.PostJSON(ctx, endpoint, req, &resp); err != nil {
				yield(nil, err)
				return
			}
			if resp.Error != nil {
				yield(nil, &heliusRPCError{Code: resp.Error.Code, Message: resp.Error.Message})
				return
			}
			if resp.Result == nil {
				return
			}

			now := s.now().UnixMilli()
			for i := range resp.Result.Items {
				if resp.Result.Items[i].ID == "" {
					continue
				}
				if !yield(resp.Result.Items[i].record(now), nil) {
					return
				}
			}

			if len(resp.Result.Items) < s.cfg.PageLimit {
				return
			}
		}
	}
}

func (a *heliusAsset) record(now int64) *domain.TokenRecord {
	rec := &domain.TokenRecord{
		Mint:        a.ID,
		Symbol:      unknownSymbol,
		Name:        unknownName,
		Decimals:    defaultDecimals,
		Source:      domain.SourceHelius,
		LastUpdated: now,
	}

	if c := a.Content; c != nil {
		if m := c.Metadata; m != nil {
			if m.Symbol != "" {
				rec.Symbol = m.Symbol
			}
			if m.Name != "" {
				rec.Name = m.Name
			}
			rec.Description = optString(m.Description)
		}
		if len(c.Files) > 0 {
			rec.LogoURI = optString(c.Files[0].URI)
		}
	}

	if ti := a.TokenInfo; ti != nil {
		if ti.Decimals != nil {
			rec.Decimals = *ti.Decimals
		}
		rec.Supply = ti.Supply
	}

	for _, auth := range a.Authorities {
		if slices.Contains(auth.Scopes, "verified") {
			rec.IsVerified = true
			break
		}
	}

	for _, g := range a.Grouping {
		rec.Tags = append(rec.Tags, g.GroupValue)
	}

	return rec.Normalize()
}
