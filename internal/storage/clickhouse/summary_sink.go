package clickhouse

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// SummarySink appends token summaries to the token_summaries MergeTree table.
type SummarySink struct {
	conn *Conn
}

// NewSummarySink creates a new SummarySink.
func NewSummarySink(conn *Conn) *SummarySink {
	return &SummarySink{conn: conn}
}

var _ storage.SummarySink = (*SummarySink)(nil)

// Append sends one summary as a single-row batch.
// MergeTree does not enforce uniqueness; duplicates are accepted.
func (s *SummarySink) Append(ctx context.Context, sum *domain.TokenSummary) error {
	if sum == nil || sum.Mint == "" {
		return storage.ErrInvalidInput
	}
	id, err := uuid.Parse(sum.ID)
	if err != nil {
		return fmt.Errorf("%w: summary id: %v", storage.ErrInvalidInput, err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_summaries (
			id, mint, symbol, name, source, is_verified,
			market_cap, holder_count, summary_text, recorded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		id, sum.Mint, sum.Symbol, sum.Name, string(sum.Source), sum.IsVerified,
		sum.MarketCap, sum.HolderCount, sum.Text, sum.RecordedAt,
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListByMint retrieves all summaries for a mint, newest first.
func (s *SummarySink) ListByMint(ctx context.Context, mint string) ([]*domain.TokenSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, mint, symbol, name, source, is_verified,
		       market_cap, holder_count, summary_text, recorded_at
		FROM token_summaries
		WHERE mint = ?
		ORDER BY recorded_at DESC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenSummary
	for rows.Next() {
		var (
			sum    domain.TokenSummary
			id     uuid.UUID
			source string
		)
		if err := rows.Scan(
			&id, &sum.Mint, &sum.Symbol, &sum.Name, &source, &sum.IsVerified,
			&sum.MarketCap, &sum.HolderCount, &sum.Text, &sum.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.ID = id.String()
		sum.Source = domain.Source(source)
		result = append(result, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// Count returns the number of rows stored.
func (s *SummarySink) Count(ctx context.Context) (uint64, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM token_summaries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return n, nil
}
