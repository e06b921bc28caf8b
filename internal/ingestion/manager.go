package ingestion

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// Result summarizes one adapter run.
type Result struct {
	Source  domain.Source
	Fetched int // records yielded by the adapter
	Stored  int // records merged or inserted
	Skipped int // invalid records and fill-only records for known mints
}

// Manager drains adapters into the token store through its merge path.
type Manager struct {
	store  storage.TokenStore
	logger logrus.FieldLogger
}

// NewManager creates a manager. A nil logger uses the logrus standard logger.
func NewManager(store storage.TokenStore, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{store: store, logger: logger}
}

// Ingest consumes one FetchBatch sequence. Records are merged as they arrive,
// so a mid-sequence error keeps everything stored before it.
// Fill-only adapters insert only mints the store does not hold yet.
func (m *Manager) Ingest(ctx context.Context, a Adapter) (Result, error) {
	res := Result{Source: a.Source()}
	fillOnly := isFillOnly(a)

	for rec, err := range a.FetchBatch(ctx) {
		if err != nil {
			return res, fmt.Errorf("%s: %w", a.Source(), err)
		}
		res.Fetched++

		if rec == nil || rec.Mint == "" {
			res.Skipped++
			continue
		}
		rec.Source = a.Source()

		if fillOnly {
			inserted, err := m.store.InsertIfAbsent(rec)
			if err != nil || !inserted {
				res.Skipped++
				continue
			}
			res.Stored++
			continue
		}

		if _, err := m.store.Upsert(rec); err != nil {
			m.logger.WithField("mint", rec.Mint).Debugf("upsert rejected: %v", err)
			res.Skipped++
			continue
		}
		res.Stored++
	}

	return res, nil
}
