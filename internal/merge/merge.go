// Package merge reconciles token records reported by different providers.
//
// Identity fields follow source priority, market and social fields follow
// freshness, and trust fields only ever grow.
package merge

import "solana-token-aggregator/internal/domain"

// Merge combines an incoming record with the existing record for the same mint.
// Neither argument is modified; the result is a new record.
// If existing is nil, a copy of incoming is returned.
func Merge(existing, incoming *domain.TokenRecord) *domain.TokenRecord {
	if existing == nil {
		return incoming.Clone()
	}
	if incoming == nil {
		return existing.Clone()
	}

	base, other := existing, incoming
	if incoming.Source.Priority() > existing.Source.Priority() {
		base, other = incoming, existing
	}

	out := &domain.TokenRecord{
		Mint:     existing.Mint,
		Symbol:   base.Symbol,
		Name:     base.Name,
		Decimals: base.Decimals,
		LogoURI:  base.LogoURI,
		Source:   base.Source,

		USDPrice:       fresher(incoming.USDPrice, existing.USDPrice),
		MarketCap:      fresher(incoming.MarketCap, existing.MarketCap),
		FDV:            fresher(incoming.FDV, existing.FDV),
		Liquidity:      fresher(incoming.Liquidity, existing.Liquidity),
		Volume24h:      fresher(incoming.Volume24h, existing.Volume24h),
		PriceChange24h: fresher(incoming.PriceChange24h, existing.PriceChange24h),
		Buys24h:        fresher(incoming.Buys24h, existing.Buys24h),
		Sells24h:       fresher(incoming.Sells24h, existing.Sells24h),

		IsVerified:  existing.IsVerified || incoming.IsVerified,
		HolderCount: maxCount(existing.HolderCount, incoming.HolderCount),
		CEXes:       domain.UnionStrings(existing.CEXes, incoming.CEXes),
		Tags:        domain.UnionStrings(existing.Tags, incoming.Tags),

		Website:  fresher(incoming.Website, existing.Website),
		Twitter:  fresher(incoming.Twitter, existing.Twitter),
		Telegram: fresher(incoming.Telegram, existing.Telegram),

		Description: fresher(base.Description, other.Description),
		Supply:      fresher(base.Supply, other.Supply),
		CreatedAt:   fresher(base.CreatedAt, other.CreatedAt),
		Creator:     fresher(base.Creator, other.Creator),

		LastUpdated: max(existing.LastUpdated, incoming.LastUpdated),
	}

	return out
}

// fresher returns preferred when set, otherwise fallback.
func fresher[T any](preferred, fallback *T) *T {
	if preferred != nil {
		return preferred
	}
	return fallback
}

// maxCount treats nil as 0 but stays nil when both sides are absent.
func maxCount(a, b *int64) *int64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}
