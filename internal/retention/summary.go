package retention

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"solana-token-aggregator/internal/domain"
)

const notAvailable = "N/A"

// Summarize flattens rec into a TokenSummary with a fresh ID.
func Summarize(rec *domain.TokenRecord, now time.Time) *domain.TokenSummary {
	return &domain.TokenSummary{
		ID:          uuid.NewString(),
		Mint:        rec.Mint,
		Symbol:      rec.Symbol,
		Name:        rec.Name,
		Source:      rec.Source,
		IsVerified:  rec.IsVerified,
		MarketCap:   rec.MarketCap,
		HolderCount: rec.HolderCount,
		Text:        SummaryText(rec),
		RecordedAt:  now.UnixMilli(),
	}
}

// SummaryText renders the single-line form:
//
//	Token: SYM (Name) - Address: MINT - Price: $P - Market Cap: $X.XXM - Holders: H -
//	Verified: Yes - Exchanges: a, b - Tags: t1, t2 - Source: JUPITER
//
// Zero or absent price, market cap and holders render as N/A.
func SummaryText(rec *domain.TokenRecord) string {
	price := notAvailable
	if rec.USDPrice != nil && *rec.USDPrice != 0 {
		price = strconv.FormatFloat(*rec.USDPrice, 'f', -1, 64)
	}

	mcap := notAvailable
	if rec.MarketCap != nil && *rec.MarketCap != 0 {
		mcap = fmt.Sprintf("%.2fM", *rec.MarketCap/1e6)
	}

	holders := notAvailable
	if rec.HolderCount != nil && *rec.HolderCount != 0 {
		holders = strconv.FormatInt(*rec.HolderCount, 10)
	}

	verified := "No"
	if rec.IsVerified {
		verified = "Yes"
	}

	exchanges := strings.Join(rec.CEXes, ", ")
	if exchanges == "" {
		exchanges = "None"
	}

	return fmt.Sprintf(
		"Token: %s (%s) - Address: %s - Price: $%s - Market Cap: $%s - Holders: %s - Verified: %s - Exchanges: %s - Tags: %s - Source: %s",
		rec.Symbol, rec.Name, rec.Mint, price, mcap, holders, verified, exchanges,
		strings.Join(rec.Tags, ", "), strings.ToUpper(rec.Source.String()),
	)
}
