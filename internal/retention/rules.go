// Package retention selects the high-value subset of the token store and
// writes one flattened summary per selected record to a SummarySink.
package retention

import (
	"slices"

	"solana-token-aggregator/internal/domain"
)

// DefaultSymbols is the high-importance allow-list.
var DefaultSymbols = []string{"SOL", "USDC", "USDT", "ANUBIS", "JUP", "RAY", "ORCA", "BONK", "WIF", "POPCAT"}

// Rules decides which records are retained. A record is kept if ANY rule matches.
type Rules struct {
	KeepVerified bool
	MinHolders   int64   // strict lower bound; 0 disables
	KeepListed   bool    // any centralized exchange listing
	MinMarketCap float64 // strict lower bound; 0 disables
	Symbols      []string
}

// DefaultRules returns the production retention rules.
func DefaultRules() Rules {
	return Rules{
		KeepVerified: true,
		MinHolders:   1000,
		KeepListed:   true,
		MinMarketCap: 1_000_000,
		Symbols:      DefaultSymbols,
	}
}

// Keep reports whether rec satisfies at least one rule.
func (r Rules) Keep(rec *domain.TokenRecord) bool {
	if rec == nil {
		return false
	}
	switch {
	case r.KeepVerified && rec.IsVerified:
		return true
	case r.MinHolders > 0 && rec.HolderCount != nil && *rec.HolderCount > r.MinHolders:
		return true
	case r.KeepListed && len(rec.CEXes) > 0:
		return true
	case r.MinMarketCap > 0 && rec.MarketCap != nil && *rec.MarketCap > r.MinMarketCap:
		return true
	}
	return slices.Contains(r.Symbols, rec.Symbol)
}

// Select returns the records that pass Keep, preserving order.
func (r Rules) Select(records []*domain.TokenRecord) []*domain.TokenRecord {
	var out []*domain.TokenRecord
	for _, rec := range records {
		if r.Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
