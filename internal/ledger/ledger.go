// Package ledger implements the append-only, hash-linked block chain that
// backs the minting service. The chain lives in memory and is owned by the
// service process; durable storage is a downstream collaborator.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/idhash"
)

// Chain is the ordered, hash-linked sequence of blocks. It is always
// non-empty: New appends the genesis block before the chain is observable.
//
// All methods are safe for concurrent use. Readers (Snapshot, Head, Length,
// Verify) take the read lock and never observe a partially appended block.
type Chain struct {
	mu      sync.RWMutex
	blocks  []*domain.Block
	corrupt *CorruptionError // set by a failed Verify, latches Append shut
	now     func() time.Time
}

// New creates a chain holding exactly the genesis block.
func New() *Chain {
	return newChain(time.Now)
}

// NewWithClock creates a chain with an injected clock. Tests use this to
// control block timestamps.
func NewWithClock(now func() time.Time) *Chain {
	return newChain(now)
}

func newChain(now func() time.Time) *Chain {
	c := &Chain{now: now}
	c.blocks = []*domain.Block{c.genesis()}
	return c
}

// genesis produces the fixed first block: index 0, no record, no previous
// hash. Called exactly once, from the constructor.
func (c *Chain) genesis() *domain.Block {
	return &domain.Block{
		Index:        0,
		Record:       nil,
		PreviousHash: "",
		Hash:         idhash.ComputeBlockHash(0, nil, ""),
		Timestamp:    c.now().UnixMilli(),
	}
}

// Append wraps record into a new block linked to the current head and
// appends it. The record's Sequence is assigned here and equals the new
// block's index. All-or-nothing: on any refusal the chain is unchanged.
//
// Returns ErrCorrupted if a previous Verify detected corruption; the chain
// never grows past a detected integrity violation.
func (c *Chain) Append(record *domain.TokenRecord) (*domain.Block, error) {
	if record == nil {
		return nil, fmt.Errorf("append: nil record")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.corrupt != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupted, c.corrupt.Error())
	}

	head := c.blocks[len(c.blocks)-1]
	index := int64(len(c.blocks))

	recordCopy := *record
	if record.Metadata != nil {
		recordCopy.Metadata = make(map[string]any, len(record.Metadata))
		for k, v := range record.Metadata {
			recordCopy.Metadata[k] = v
		}
	}
	recordCopy.Sequence = index

	block := &domain.Block{
		Index:        index,
		Record:       &recordCopy,
		PreviousHash: head.Hash,
		Timestamp:    c.now().UnixMilli(),
	}
	block.Hash = idhash.ComputeBlockHash(block.Index, block.Record, block.PreviousHash)

	c.blocks = append(c.blocks, block)
	return block.Clone(), nil
}

// Verify walks the chain from genesis, recomputing each block's content
// hash and checking the link to its predecessor. Returns a *CorruptionError
// naming the first bad index, or nil if the chain is intact.
//
// A failed Verify latches the chain: subsequent Appends return ErrCorrupted.
func (c *Chain) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := verifyBlocks(c.blocks); err != nil {
		var corruption *CorruptionError
		if errors.As(err, &corruption) {
			c.corrupt = corruption
		}
		return err
	}
	return nil
}

// Snapshot returns a deep copy of the full chain in order. Mutating the
// returned blocks does not affect the chain.
func (c *Chain) Snapshot() []*domain.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.Block, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.Clone()
	}
	return out
}

// Head returns a copy of the most recently appended block.
func (c *Chain) Head() *domain.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1].Clone()
}

// Length returns the number of blocks, genesis included.
func (c *Chain) Length() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.blocks))
}

// Restore replaces the chain contents with blocks loaded from a durable
// archive. The sequence must start at a genesis block, be densely indexed,
// and verify end to end; otherwise the chain is left unchanged.
// Startup-only: callers must not race Restore with other operations.
func (c *Chain) Restore(blocks []*domain.Block) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: empty sequence", ErrInvalidRestore)
	}
	if !blocks[0].Genesis() {
		return fmt.Errorf("%w: first block is not genesis", ErrInvalidRestore)
	}
	for i, b := range blocks {
		if b.Index != int64(i) {
			return fmt.Errorf("%w: block at position %d has index %d", ErrInvalidRestore, i, b.Index)
		}
	}
	if err := verifyBlocks(blocks); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRestore, err.Error())
	}

	restored := make([]*domain.Block, len(blocks))
	for i, b := range blocks {
		restored[i] = b.Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = restored
	c.corrupt = nil
	return nil
}

// verifyBlocks checks hashes and linkage over an ordered block sequence.
func verifyBlocks(blocks []*domain.Block) error {
	for i, b := range blocks {
		if b.Hash != idhash.ComputeBlockHash(b.Index, b.Record, b.PreviousHash) {
			return &CorruptionError{Index: int64(i)}
		}
		if i == 0 {
			if b.PreviousHash != "" {
				return &CorruptionError{Index: 0}
			}
			continue
		}
		prev := blocks[i-1]
		// The link must match the predecessor's recomputed hash, not just
		// its stored one.
		if b.PreviousHash != idhash.ComputeBlockHash(prev.Index, prev.Record, prev.PreviousHash) {
			return &CorruptionError{Index: int64(i)}
		}
	}
	return nil
}
