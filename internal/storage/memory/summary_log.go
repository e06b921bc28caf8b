package memory

import (
	"context"
	"sync"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// SummaryLog is an in-memory append-only implementation of storage.SummarySink.
type SummaryLog struct {
	mu      sync.RWMutex
	entries []*domain.TokenSummary
}

// NewSummaryLog creates an empty summary log.
func NewSummaryLog() *SummaryLog {
	return &SummaryLog{}
}

// Append adds a copy of s to the log.
func (l *SummaryLog) Append(_ context.Context, s *domain.TokenSummary) error {
	if s == nil || s.Mint == "" {
		return storage.ErrInvalidInput
	}

	summaryCopy := *s

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, &summaryCopy)
	return nil
}

// Entries returns copies of all summaries in append order.
func (l *SummaryLog) Entries() []*domain.TokenSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*domain.TokenSummary, len(l.entries))
	for i, e := range l.entries {
		c := *e
		result[i] = &c
	}
	return result
}

// Len returns the number of appended summaries.
func (l *SummaryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

var _ storage.SummarySink = (*SummaryLog)(nil)
