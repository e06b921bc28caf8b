package ingestion

import (
	"context"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/solana"
)

// DefaultKnownMints is the fixed allow-list queried by ChainSource.
var DefaultKnownMints = []string{
	"So11111111111111111111111111111111111111112",  // SOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", // USDT
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", // RAY
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",  // mSOL
	"Fu4jQQpUnECSVQrVfeeVPpQpXQffM75LL328EJPtpump", // ANUBIS
}

// ChainSource reads mint accounts for a fixed allow-list directly from Solana RPC.
// It is fill-only: its records never overwrite an existing mint.
type ChainSource struct {
	rpc    solana.RPCClient
	mints  []string
	now    func() time.Time
	logger logrus.FieldLogger
}

var _ FillOnly = (*ChainSource)(nil)

// NewChainSource creates a chain-RPC adapter. A nil mints list uses DefaultKnownMints.
func NewChainSource(rpc solana.RPCClient, mints []string, logger logrus.FieldLogger) *ChainSource {
	if mints == nil {
		mints = DefaultKnownMints
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChainSource{
		rpc:    rpc,
		mints:  mints,
		now:    time.Now,
		logger: logger.WithField("source", domain.SourceSolanaRPC),
	}
}

// Source returns domain.SourceSolanaRPC.
func (s *ChainSource) Source() domain.Source {
	return domain.SourceSolanaRPC
}

// FillOnly reports true.
func (s *ChainSource) FillOnly() bool {
	return true
}

// FetchBatch queries each allow-listed mint. Per-mint failures are logged and skipped;
// only context cancellation ends the sequence with an error.
func (s *ChainSource) FetchBatch(ctx context.Context) iter.Seq2[*domain.TokenRecord, error] {
	return func(yield func(*domain.TokenRecord, error) bool) {
		for _, mint := range s.mints {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			if !isValidPubkey(mint) {
				s.logger.WithField("mint", mint).Warn("skip invalid mint address")
				continue
			}

			rec, err := s.fetchMint(ctx, mint)
			if err != nil {
				s.logger.WithField("mint", mint).Debugf("skip mint: %v", err)
				continue
			}
			if rec == nil {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *ChainSource) fetchMint(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	info, err := s.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}

	data, err := info.DecodeData()
	if err != nil {
		return nil, err
	}
	acct, err := parseMintAccount(data)
	if err != nil {
		return nil, err
	}

	rec := &domain.TokenRecord{
		Mint:        mint,
		Symbol:      unknownSymbol,
		Name:        unknownName,
		Decimals:    acct.Decimals,
		Supply:      &acct.Supply,
		Source:      domain.SourceSolanaRPC,
		LastUpdated: s.now().UnixMilli(),
	}

	if md := s.fetchMetadata(ctx, mint); md != nil {
		if md.Symbol != "" {
			rec.Symbol = md.Symbol
		}
		if md.Name != "" {
			rec.Name = md.Name
		}
	}
	return rec, nil
}

// fetchMetadata is best effort; any failure leaves the defaults in place.
func (s *ChainSource) fetchMetadata(ctx context.Context, mint string) *tokenMetadata {
	pda, err := metadataPDA(mint)
	if err != nil {
		return nil
	}
	info, err := s.rpc.GetAccountInfo(ctx, pda)
	if err != nil || info == nil {
		return nil
	}
	data, err := info.DecodeData()
	if err != nil {
		return nil
	}
	md, err := parseMetadataAccount(data)
	if err != nil {
		return nil
	}
	return md
}
