package domain

// TokenSummary is the flattened, append-only form of a retained TokenRecord
// written to a persistence sink.
type TokenSummary struct {
	ID          string   `json:"id"` // uuid
	Mint        string   `json:"mint"`
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Source      Source   `json:"source"`
	IsVerified  bool     `json:"isVerified"`
	MarketCap   *float64 `json:"marketCap,omitempty"`
	HolderCount *int64   `json:"holderCount,omitempty"`
	Text        string   `json:"text"`       // single-line human readable summary
	RecordedAt  int64    `json:"recordedAt"` // unix ms
}
