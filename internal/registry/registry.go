// Package registry maintains the uniqueness index over minted token
// identifiers and validates mint request metadata.
package registry

import (
	"encoding/json"
	"errors"
	"sync"

	"quantum-nft-ledger/internal/domain"
)

// Registry errors surfaced to the mint path.
var (
	// ErrDuplicateIdentifier is returned when a token identifier is already
	// minted or reserved by an in-flight mint.
	ErrDuplicateIdentifier = errors.New("duplicate identifier: token already minted")

	// ErrInvalidMetadata is returned for malformed JSON, non-object
	// metadata, or an empty token identifier.
	ErrInvalidMetadata = errors.New("invalid metadata")
)

// reservedIndex marks an identifier reserved by an in-flight mint that has
// not yet committed to a block.
const reservedIndex = int64(-1)

// Registry maps token identifiers to the index of the block that minted
// them. Derived data: Rebuild reconstructs it from a chain snapshot.
type Registry struct {
	mu    sync.RWMutex
	index map[string]int64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{index: make(map[string]int64)}
}

// Reserve atomically checks and reserves an identifier. Exactly one of two
// concurrent Reserve calls for the same identifier succeeds.
func (r *Registry) Reserve(tokenID string) error {
	if tokenID == "" {
		return ErrInvalidMetadata
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.index[tokenID]; taken {
		return ErrDuplicateIdentifier
	}
	r.index[tokenID] = reservedIndex
	return nil
}

// Release undoes a reservation that did not reach the chain. Committed
// identifiers are never released.
func (r *Registry) Release(tokenID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.index[tokenID]; ok && idx == reservedIndex {
		delete(r.index, tokenID)
	}
}

// Commit finalizes a reservation with the index of the minting block.
func (r *Registry) Commit(tokenID string, blockIndex int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index[tokenID] = blockIndex
}

// BlockIndex returns the index of the block that minted tokenID.
// The second return is false for unknown or merely reserved identifiers.
func (r *Registry) BlockIndex(tokenID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.index[tokenID]
	if !ok || idx == reservedIndex {
		return 0, false
	}
	return idx, true
}

// Size returns the number of committed identifiers.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, idx := range r.index {
		if idx != reservedIndex {
			n++
		}
	}
	return n
}

// Rebuild replaces the index with the identifiers found in a chain
// snapshot. Used at startup after restoring the ledger from the archive.
func (r *Registry) Rebuild(blocks []*domain.Block) {
	index := make(map[string]int64, len(blocks))
	for _, b := range blocks {
		if b.Record != nil {
			index[b.Record.TokenID] = b.Index
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = index
}

// ValidateMetadata parses raw request metadata and rejects anything that is
// not a well-formed JSON object. A missing metadata field is treated as the
// empty object.
func ValidateMetadata(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, ErrInvalidMetadata
	}
	if parsed == nil {
		// JSON null decodes into a nil map; null is not an object.
		return nil, ErrInvalidMetadata
	}
	return parsed, nil
}
