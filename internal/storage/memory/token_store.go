package memory

import (
	"sort"
	"strings"
	"sync"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/merge"
	"solana-token-aggregator/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
// A single RWMutex serializes read-merge-write; readers never block each other.
type TokenStore struct {
	mu     sync.RWMutex
	byMint map[string]*domain.TokenRecord
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byMint: make(map[string]*domain.TokenRecord),
	}
}

// Upsert merges rec into the stored record for its mint.
func (s *TokenStore) Upsert(rec *domain.TokenRecord) (*domain.TokenRecord, error) {
	if rec == nil || rec.Mint == "" {
		return nil, storage.ErrInvalidInput
	}
	incoming := rec.Clone().Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := merge.Merge(s.byMint[rec.Mint], incoming)
	s.byMint[rec.Mint] = merged
	return merged.Clone(), nil
}

// InsertIfAbsent stores rec only if its mint is unknown.
// The existence check and the insert happen under the same write lock.
func (s *TokenStore) InsertIfAbsent(rec *domain.TokenRecord) (bool, error) {
	if rec == nil || rec.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMint[rec.Mint]; exists {
		return false, nil
	}
	s.byMint[rec.Mint] = merge.Merge(nil, rec.Clone().Normalize())
	return true, nil
}

// Get returns a copy of the record for mint.
func (s *TokenStore) Get(mint string) (*domain.TokenRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byMint[mint]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Search matches term against symbol, name and mint, case-insensitively.
// A non-positive limit means no cap.
func (s *TokenStore) Search(term string, limit int) []*domain.TokenRecord {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}

	s.mu.RLock()
	var result []*domain.TokenRecord
	for _, r := range s.byMint {
		if strings.Contains(strings.ToLower(r.Symbol), needle) ||
			strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Mint), needle) {
			result = append(result, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastUpdated != result[j].LastUpdated {
			return result[i].LastUpdated > result[j].LastUpdated
		}
		return result[i].Mint < result[j].Mint
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// BySource returns records whose winning source is src.
func (s *TokenStore) BySource(src domain.Source) []*domain.TokenRecord {
	return s.filter(func(r *domain.TokenRecord) bool { return r.Source == src })
}

// Verified returns records flagged verified by any source.
func (s *TokenStore) Verified() []*domain.TokenRecord {
	return s.filter(func(r *domain.TokenRecord) bool { return r.IsVerified })
}

// All returns every stored record.
func (s *TokenStore) All() []*domain.TokenRecord {
	return s.filter(func(*domain.TokenRecord) bool { return true })
}

// Len returns the number of distinct mints.
func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byMint)
}

func (s *TokenStore) filter(keep func(*domain.TokenRecord) bool) []*domain.TokenRecord {
	s.mu.RLock()
	var result []*domain.TokenRecord
	for _, r := range s.byMint {
		if keep(r) {
			result = append(result, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Mint < result[j].Mint
	})
	return result
}

var _ storage.TokenStore = (*TokenStore)(nil)
