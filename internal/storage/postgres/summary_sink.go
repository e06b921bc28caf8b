package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// SummarySink appends token summaries to the token_summaries table.
type SummarySink struct {
	pool *Pool
}

// NewSummarySink creates a new SummarySink.
func NewSummarySink(pool *Pool) *SummarySink {
	return &SummarySink{pool: pool}
}

var _ storage.SummarySink = (*SummarySink)(nil)

// Append inserts one summary row. Returns ErrDuplicateKey if the ID was already written.
func (s *SummarySink) Append(ctx context.Context, sum *domain.TokenSummary) error {
	if sum == nil || sum.Mint == "" || sum.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_summaries (
			id, mint, symbol, name, source, is_verified,
			market_cap, holder_count, summary_text, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		sum.ID, sum.Mint, sum.Symbol, sum.Name, string(sum.Source), sum.IsVerified,
		sum.MarketCap, sum.HolderCount, sum.Text, sum.RecordedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token summary: %w", err)
	}

	return nil
}

// GetByID retrieves a summary by ID. Returns ErrNotFound if not exists.
func (s *SummarySink) GetByID(ctx context.Context, id string) (*domain.TokenSummary, error) {
	query := `
		SELECT id::text, mint, symbol, name, source, is_verified,
		       market_cap, holder_count, summary_text, recorded_at
		FROM token_summaries
		WHERE id = $1
	`

	sum, err := scanSummary(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token summary: %w", err)
	}
	return sum, nil
}

// ListByMint retrieves all summaries for a mint, newest first.
func (s *SummarySink) ListByMint(ctx context.Context, mint string) ([]*domain.TokenSummary, error) {
	query := `
		SELECT id::text, mint, symbol, name, source, is_verified,
		       market_cap, holder_count, summary_text, recorded_at
		FROM token_summaries
		WHERE mint = $1
		ORDER BY recorded_at DESC, id
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query token summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token summary: %w", err)
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token summaries: %w", err)
	}
	return result, nil
}

func scanSummary(row pgx.Row) (*domain.TokenSummary, error) {
	var (
		sum    domain.TokenSummary
		source string
	)
	err := row.Scan(
		&sum.ID, &sum.Mint, &sum.Symbol, &sum.Name, &source, &sum.IsVerified,
		&sum.MarketCap, &sum.HolderCount, &sum.Text, &sum.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	sum.Source = domain.Source(source)
	return &sum, nil
}
