package ingestion

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"time"

	"solana-token-aggregator/internal/domain"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func fixedClock() time.Time { return fixedNow }

// collect drains a sequence, returning the records and the terminating error.
func collect(seq iter.Seq2[*domain.TokenRecord, error]) ([]*domain.TokenRecord, error) {
	var out []*domain.TokenRecord
	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func bg() context.Context { return context.Background() }

func jsonDecode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
