package aggregator

import (
	"context"
	"strings"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// Lookup returns the record for mint.
func (s *Service) Lookup(mint string) (*domain.TokenRecord, bool) {
	return s.store.Get(mint)
}

// Search returns up to SearchLimit records whose symbol, name or mint contains
// term, newest first. An empty term returns storage.ErrInvalidInput.
func (s *Service) Search(term string) ([]*domain.TokenRecord, error) {
	if strings.TrimSpace(term) == "" {
		return nil, storage.ErrInvalidInput
	}
	return s.store.Search(term, SearchLimit), nil
}

// SearchTerms runs Search for each term and merges the results in term order,
// dropping repeated mints, until limit records are collected.
// Empty terms are skipped; limit <= 0 means SearchLimit.
func (s *Service) SearchTerms(limit int, terms ...string) []*domain.TokenRecord {
	if limit <= 0 {
		limit = SearchLimit
	}

	seen := make(map[string]struct{})
	var out []*domain.TokenRecord
	for _, term := range terms {
		found, err := s.Search(term)
		if err != nil {
			continue
		}
		for _, rec := range found {
			if _, ok := seen[rec.Mint]; ok {
				continue
			}
			seen[rec.Mint] = struct{}{}
			out = append(out, rec)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// FilterBySource returns every record whose winning source is src.
func (s *Service) FilterBySource(src domain.Source) []*domain.TokenRecord {
	return s.store.BySource(src)
}

// VerifiedOnly returns every verified record.
func (s *Service) VerifiedOnly() []*domain.TokenRecord {
	return s.store.Verified()
}

// Size returns the number of distinct mints.
func (s *Service) Size() int {
	return s.store.Len()
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	Total    int                   `json:"total"`
	Verified int                   `json:"verified"`
	BySource map[domain.Source]int `json:"bySource"`
}

// Stats counts records per winning source.
func (s *Service) Stats() Stats {
	all := s.store.All()
	st := Stats{Total: len(all), BySource: make(map[domain.Source]int, len(domain.AllSources))}
	for _, src := range domain.AllSources {
		st.BySource[src] = 0
	}
	for _, rec := range all {
		st.BySource[rec.Source]++
		if rec.IsVerified {
			st.Verified++
		}
	}
	return st
}

// Health reports readiness of the service and its collaborators.
type Health struct {
	Initialized bool   `json:"initialized"`
	Tokens      int    `json:"tokens"`
	Live        string `json:"live,omitempty"`
	RPC         string `json:"rpc,omitempty"`
}

// Healthy reports whether the service has data and its RPC node is reachable.
func (h Health) Healthy() bool {
	return h.Initialized && (h.RPC == "" || h.RPC == "ok")
}

// Health probes the RPC node, if configured, and reads the live feed state.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Initialized: s.initialized.Load(),
		Tokens:      s.store.Len(),
	}
	if s.live != nil {
		h.Live = s.live.State().String()
	}
	if s.rpc != nil {
		h.RPC = "ok"
		if err := s.rpc.GetHealth(ctx); err != nil {
			h.RPC = err.Error()
		}
	}
	return h
}
