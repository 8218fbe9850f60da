package storage

import (
	"context"

	"quantum-nft-ledger/internal/domain"
)

// BlockArchive is the durable append-only mirror of the in-memory chain.
// The ledger is authoritative; the archive is written after each successful
// in-memory append and replayed at startup.
type BlockArchive interface {
	// Append stores a new block. Returns ErrDuplicateKey if the block index
	// already exists.
	Append(ctx context.Context, b *domain.Block) error

	// GetByIndex retrieves a block by its chain index. Returns ErrNotFound
	// if not exists.
	GetByIndex(ctx context.Context, index int64) (*domain.Block, error)

	// GetAll retrieves every archived block ordered by index ASC.
	GetAll(ctx context.Context) ([]*domain.Block, error)

	// Count returns the number of archived blocks.
	Count(ctx context.Context) (int64, error)
}

// MintEventStore records mint analytics events. Best-effort: failures are
// logged and counted, never surfaced to the minting caller.
type MintEventStore interface {
	// Insert adds a new mint event.
	Insert(ctx context.Context, e *domain.MintEvent) error

	// GetByTokenID retrieves all events for a token, ordered by minted_at ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.MintEvent, error)
}
