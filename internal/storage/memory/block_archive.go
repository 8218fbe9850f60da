package memory

import (
	"context"
	"sync"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/storage"
)

// BlockArchive is an in-memory implementation of storage.BlockArchive.
type BlockArchive struct {
	mu   sync.RWMutex
	data map[int64]*domain.Block // keyed by block index
}

// NewBlockArchive creates a new in-memory block archive.
func NewBlockArchive() *BlockArchive {
	return &BlockArchive{
		data: make(map[int64]*domain.Block),
	}
}

// Append stores a new block. Returns ErrDuplicateKey if the index exists.
func (s *BlockArchive) Append(_ context.Context, b *domain.Block) error {
	if b == nil || b.Hash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.Index]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[b.Index] = b.Clone()
	return nil
}

// GetByIndex retrieves a block by index. Returns ErrNotFound if not exists.
func (s *BlockArchive) GetByIndex(_ context.Context, index int64) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[index]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return b.Clone(), nil
}

// GetAll retrieves every archived block ordered by index ASC.
func (s *BlockArchive) GetAll(_ context.Context) ([]*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Block, 0, len(s.data))
	// Indexes are dense from 0, so walk upward instead of sorting.
	for i := int64(0); ; i++ {
		b, exists := s.data[i]
		if !exists {
			break
		}
		result = append(result, b.Clone())
	}

	return result, nil
}

// Count returns the number of archived blocks.
func (s *BlockArchive) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// Verify interface compliance at compile time.
var _ storage.BlockArchive = (*BlockArchive)(nil)
