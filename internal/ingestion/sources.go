// Package ingestion contains the provider adapters and the manager that
// drains them into the token store.
package ingestion

import (
	"context"
	"iter"

	"solana-token-aggregator/internal/domain"
)

// Adapter fetches token records from one provider.
type Adapter interface {
	// Source identifies the provider. Every yielded record carries it.
	Source() domain.Source

	// FetchBatch returns a lazy, finite sequence. Each call performs a fresh fetch.
	// A yielded error ends the sequence; records yielded before it are valid.
	FetchBatch(ctx context.Context) iter.Seq2[*domain.TokenRecord, error]
}

// FillOnly is implemented by adapters whose records may only create missing
// mints and must never be merged into an existing record.
type FillOnly interface {
	FillOnly() bool
}

func isFillOnly(a Adapter) bool {
	f, ok := a.(FillOnly)
	return ok && f.FillOnly()
}

// empty yields nothing.
func empty() iter.Seq2[*domain.TokenRecord, error] {
	return func(func(*domain.TokenRecord, error) bool) {}
}

// optString returns nil for empty strings.
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
