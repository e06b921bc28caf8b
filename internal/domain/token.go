package domain

// TokenRecord is the canonical, merged view of a fungible token.
// Optional fields are nil when no source has supplied them.
type TokenRecord struct {
	Mint     string  `json:"mint"` // unique key, immutable
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Decimals int     `json:"decimals"`
	LogoURI  *string `json:"logoURI,omitempty"`

	// Market data. Freshest non-empty value wins on merge.
	USDPrice       *float64 `json:"usdPrice,omitempty"`
	MarketCap      *float64 `json:"marketCap,omitempty"`
	FDV            *float64 `json:"fdv,omitempty"`
	Liquidity      *float64 `json:"liquidity,omitempty"`
	Volume24h      *float64 `json:"volume24h,omitempty"`
	PriceChange24h *float64 `json:"priceChange24h,omitempty"`
	Buys24h        *int64   `json:"buys24h,omitempty"`
	Sells24h       *int64   `json:"sells24h,omitempty"`

	// Trust metadata. Never shrinks across merges.
	IsVerified  bool     `json:"isVerified"`
	HolderCount *int64   `json:"holderCount,omitempty"`
	CEXes       []string `json:"cexes,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Website     *string  `json:"website,omitempty"`
	Twitter     *string  `json:"twitter,omitempty"`
	Telegram    *string  `json:"telegram,omitempty"`
	Description *string  `json:"description,omitempty"`
	Supply      *float64 `json:"supply,omitempty"`
	CreatedAt   *string  `json:"createdAt,omitempty"`
	Creator     *string  `json:"creator,omitempty"`

	Source      Source `json:"source"`      // source whose identity fields won
	LastUpdated int64  `json:"lastUpdated"` // unix ms
}

// Clone returns a deep copy of the record. No pointer or slice is shared
// with r.
func (r *TokenRecord) Clone() *TokenRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.LogoURI = clonePtr(r.LogoURI)
	c.USDPrice = clonePtr(r.USDPrice)
	c.MarketCap = clonePtr(r.MarketCap)
	c.FDV = clonePtr(r.FDV)
	c.Liquidity = clonePtr(r.Liquidity)
	c.Volume24h = clonePtr(r.Volume24h)
	c.PriceChange24h = clonePtr(r.PriceChange24h)
	c.Buys24h = clonePtr(r.Buys24h)
	c.Sells24h = clonePtr(r.Sells24h)
	c.HolderCount = clonePtr(r.HolderCount)
	c.CEXes = cloneStrings(r.CEXes)
	c.Tags = cloneStrings(r.Tags)
	c.Website = clonePtr(r.Website)
	c.Twitter = clonePtr(r.Twitter)
	c.Telegram = clonePtr(r.Telegram)
	c.Description = clonePtr(r.Description)
	c.Supply = clonePtr(r.Supply)
	c.CreatedAt = clonePtr(r.CreatedAt)
	c.Creator = clonePtr(r.Creator)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Normalize deduplicates CEXes and Tags in place and drops empty entries.
func (r *TokenRecord) Normalize() *TokenRecord {
	r.CEXes = UnionStrings(r.CEXes, nil)
	r.Tags = UnionStrings(r.Tags, nil)
	return r
}

// HasTag reports whether the record carries the tag.
func (r *TokenRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UnionStrings returns the set union of a and b, keeping first-seen order.
// Empty strings are dropped. Returns nil when the union is empty.
func UnionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
