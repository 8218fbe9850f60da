package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"quantum-nft-ledger/internal/domain"
)

// ComputeBlockHash computes a block's deterministic content hash using SHA256.
// Formula: SHA256(index|token_id|owner|metadata_json|previous_hash)
// Returns hex-encoded hash (64 characters).
//
// Metadata serializes through encoding/json, which emits map keys in sorted
// order, so the same record hashes identically across processes and runs.
// The block timestamp is deliberately not part of the hash input.
func ComputeBlockHash(index int64, record *domain.TokenRecord, previousHash string) string {
	tokenID := ""
	owner := ""
	metadataJSON := ""
	if record != nil {
		tokenID = record.TokenID
		owner = record.Owner
		if record.Metadata != nil {
			// Values originate from json.Unmarshal, so re-encoding cannot fail.
			encoded, _ := json.Marshal(record.Metadata)
			metadataJSON = string(encoded)
		}
	}

	data := fmt.Sprintf("%d|%s|%s|%s|%s", index, tokenID, owner, metadataJSON, previousHash)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
