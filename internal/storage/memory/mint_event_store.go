package memory

import (
	"context"
	"sort"
	"sync"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/storage"
)

// MintEventStore is an in-memory implementation of storage.MintEventStore.
type MintEventStore struct {
	mu   sync.RWMutex
	data []*domain.MintEvent
}

// NewMintEventStore creates a new in-memory mint event store.
func NewMintEventStore() *MintEventStore {
	return &MintEventStore{}
}

// Insert adds a new mint event.
func (s *MintEventStore) Insert(_ context.Context, e *domain.MintEvent) error {
	if e == nil || e.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.data = append(s.data, &eventCopy)
	return nil
}

// GetByTokenID retrieves all events for a token, ordered by minted_at ASC.
func (s *MintEventStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.MintEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MintEvent
	for _, e := range s.data {
		if e.TokenID == tokenID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MintedAt < result[j].MintedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.MintEventStore = (*MintEventStore)(nil)
