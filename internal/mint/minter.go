// Package mint orchestrates the minting path: identifier reservation,
// ledger append, and the post-append fan-out to the durable archive, the
// analytics store, and stream subscribers.
package mint

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/idhash"
	"quantum-nft-ledger/internal/ledger"
	"quantum-nft-ledger/internal/observability"
	"quantum-nft-ledger/internal/registry"
	"quantum-nft-ledger/internal/storage"
)

// ErrInvalidOwner is returned when the optional owner field is present but
// is not a valid base58 ed25519 public key.
var ErrInvalidOwner = errors.New("invalid owner address")

// Broadcaster receives every successfully appended block. Implemented by
// the server's stream adapter.
type Broadcaster interface {
	BroadcastBlock(b *domain.Block)
}

// Options configures a Minter. Chain and Registry are required; Archive,
// Events, and Broadcaster are optional collaborators.
type Options struct {
	Chain       *ledger.Chain
	Registry    *registry.Registry
	Archive     storage.BlockArchive
	Events      storage.MintEventStore
	Broadcaster Broadcaster
	Logger      *log.Logger
}

// Minter executes mints against the shared chain and registry.
//
// The reserve-append-commit sequence runs under one mutex so two concurrent
// mints of the same identifier can never both observe "available": exactly
// one succeeds, the other fails with ErrDuplicateIdentifier, and the chain
// never carries the same token twice.
type Minter struct {
	chain       *ledger.Chain
	registry    *registry.Registry
	archive     storage.BlockArchive
	events      storage.MintEventStore
	broadcaster Broadcaster
	logger      *log.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New creates a Minter.
func New(opts Options) *Minter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Minter{
		chain:       opts.Chain,
		registry:    opts.Registry,
		archive:     opts.Archive,
		events:      opts.Events,
		broadcaster: opts.Broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Mint validates the request, reserves the identifier, and appends one
// block carrying the token record. Validation failures leave the chain and
// registry untouched.
func (m *Minter) Mint(ctx context.Context, tokenID string, rawMetadata json.RawMessage, owner string) (*domain.Block, error) {
	start := m.now()

	if tokenID == "" {
		observability.RecordMintFailure("invalid_metadata")
		return nil, registry.ErrInvalidMetadata
	}
	metadata, err := registry.ValidateMetadata(rawMetadata)
	if err != nil {
		observability.RecordMintFailure("invalid_metadata")
		return nil, err
	}
	if owner != "" && !idhash.ValidOwnerAddress(owner) {
		observability.RecordMintFailure("invalid_owner")
		return nil, ErrInvalidOwner
	}

	record := &domain.TokenRecord{
		TokenID:      tokenID,
		Metadata:     metadata,
		Owner:        owner,
		AssetAddress: idhash.DeriveAssetAddress(tokenID),
		MintedAt:     start.UnixMilli(),
	}

	// Critical section: reserve and append must be observed as one unit.
	m.mu.Lock()
	if err := m.registry.Reserve(tokenID); err != nil {
		m.mu.Unlock()
		observability.RecordMintFailure("duplicate_identifier")
		return nil, err
	}
	block, err := m.chain.Append(record)
	if err != nil {
		m.registry.Release(tokenID)
		m.mu.Unlock()
		observability.RecordMintFailure("corruption_detected")
		return nil, err
	}
	m.registry.Commit(tokenID, block.Index)
	m.mu.Unlock()

	duration := m.now().Sub(start)
	m.fanOut(ctx, block, duration)

	observability.RecordMint(duration.Seconds(), m.chain.Length())
	observability.SetRegistrySize(m.registry.Size())
	return block, nil
}

// Verify re-checks the whole chain and records the result. A corrupt chain
// refuses further mints until the process restarts.
func (m *Minter) Verify() error {
	err := m.chain.Verify()
	if err != nil {
		observability.RecordVerify("corrupt")
		return err
	}
	observability.RecordVerify("success")
	return nil
}

// fanOut mirrors a freshly appended block to the optional collaborators.
// The in-memory chain is authoritative: archive and analytics failures are
// logged and counted, never surfaced to the minting caller.
func (m *Minter) fanOut(ctx context.Context, block *domain.Block, duration time.Duration) {
	if m.archive != nil {
		if err := m.archive.Append(ctx, block); err != nil {
			m.logger.Printf("archive write failed for block %d: %v", block.Index, err)
			observability.RecordArchiveWrite("error")
		} else {
			observability.RecordArchiveWrite("success")
		}
	}

	if m.events != nil && block.Record != nil {
		event := &domain.MintEvent{
			TokenID:      block.Record.TokenID,
			BlockIndex:   block.Index,
			AssetAddress: block.Record.AssetAddress,
			DurationMs:   duration.Milliseconds(),
			MintedAt:     block.Record.MintedAt,
		}
		if err := m.events.Insert(ctx, event); err != nil {
			m.logger.Printf("mint event write failed for %s: %v", block.Record.TokenID, err)
			observability.RecordAnalyticsWrite("error")
		} else {
			observability.RecordAnalyticsWrite("success")
		}
	}

	if m.broadcaster != nil {
		m.broadcaster.BroadcastBlock(block)
	}
}
