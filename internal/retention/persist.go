package retention

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

const (
	logFailures  = 5
	logSuccesses = 10
)

// Result summarizes one persistence batch.
type Result struct {
	Selected int // records passing the rules
	Stored   int // successful appends
	Failed   int // appends that returned an error
}

// Skipped returns the number of selected records never attempted.
func (r Result) Skipped() int {
	return r.Selected - r.Stored - r.Failed
}

// Persister writes retained records to a sink, one append per record.
type Persister struct {
	sink   storage.SummarySink
	rules  Rules
	now    func() time.Time
	logger logrus.FieldLogger
}

// NewPersister creates a persister. A nil logger uses the logrus standard logger.
func NewPersister(sink storage.SummarySink, rules Rules, logger logrus.FieldLogger) *Persister {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Persister{
		sink:   sink,
		rules:  rules,
		now:    time.Now,
		logger: logger.WithField("component", "retention"),
	}
}

// Persist selects records by the rules and appends one summary for each.
// A failed append is logged and skipped; nothing is retried. A cancelled ctx
// stops the batch and leaves the remaining records unattempted.
func (p *Persister) Persist(ctx context.Context, records []*domain.TokenRecord) Result {
	selected := p.rules.Select(records)
	res := Result{Selected: len(selected)}
	p.logger.Infof("persisting %d of %d tokens", len(selected), len(records))

	for _, rec := range selected {
		if err := ctx.Err(); err != nil {
			p.logger.Warnf("persistence interrupted: %v", err)
			break
		}

		if err := p.sink.Append(ctx, Summarize(rec, p.now())); err != nil {
			res.Failed++
			if res.Failed <= logFailures {
				p.logger.WithFields(logrus.Fields{
					"mint":   rec.Mint,
					"source": rec.Source,
				}).Warnf("failed to store %s: %v", rec.Symbol, err)
			}
			continue
		}

		res.Stored++
		if res.Stored <= logSuccesses {
			p.logger.WithField("source", rec.Source).Infof("stored %s (%d total)", rec.Symbol, res.Stored)
		}
	}

	p.logger.Infof("persistence complete: %d stored, %d failed", res.Stored, res.Failed)
	return res
}
