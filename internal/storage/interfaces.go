package storage

import (
	"context"

	"solana-token-aggregator/internal/domain"
)

// TokenStore holds exactly one merged record per mint.
// Every mutation passes through merge.Merge; readers receive deep copies.
type TokenStore interface {
	// Upsert merges rec into the record stored under rec.Mint and returns a copy of the result.
	// Returns ErrInvalidInput if rec is nil or has no mint.
	Upsert(rec *domain.TokenRecord) (*domain.TokenRecord, error)

	// InsertIfAbsent stores rec only when no record exists for its mint.
	// Reports whether rec was inserted.
	InsertIfAbsent(rec *domain.TokenRecord) (bool, error)

	// Get returns the record for mint, or false if absent.
	Get(mint string) (*domain.TokenRecord, bool)

	// Search returns up to limit records whose symbol, name or mint contains term,
	// case-insensitively, ordered by LastUpdated desc then mint.
	Search(term string, limit int) []*domain.TokenRecord

	// BySource returns all records whose winning source is src, ordered by mint.
	BySource(src domain.Source) []*domain.TokenRecord

	// Verified returns all verified records, ordered by mint.
	Verified() []*domain.TokenRecord

	// All returns every record, ordered by mint.
	All() []*domain.TokenRecord

	// Len returns the number of distinct mints.
	Len() int
}

// SummarySink is an append-only destination for retained token summaries.
// Duplicate appends across refresh cycles are acceptable.
type SummarySink interface {
	// Append writes one summary. Returns ErrInvalidInput if s is nil or has no mint.
	Append(ctx context.Context, s *domain.TokenSummary) error
}
