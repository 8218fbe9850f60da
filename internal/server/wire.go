package server

import (
	"encoding/json"

	"quantum-nft-ledger/internal/domain"
)

// mintRequest is the POST /nft body.
type mintRequest struct {
	TokenID  string          `json:"token_id"`
	Metadata json.RawMessage `json:"metadata"`
	Owner    string          `json:"owner,omitempty"`
}

// mintResponse is the POST /nft success body.
type mintResponse struct {
	Message       string `json:"message"`
	SequenceIndex int64  `json:"sequence_index"`
	Hash          string `json:"hash"`
	AssetAddress  string `json:"asset_address,omitempty"`
}

// blockJSON is the wire representation of one block. Genesis carries null
// token fields.
type blockJSON struct {
	SequenceIndex int64          `json:"sequence_index"`
	TokenID       *string        `json:"token_id"`
	Metadata      map[string]any `json:"metadata"`
	Owner         *string        `json:"owner,omitempty"`
	AssetAddress  *string        `json:"asset_address"`
	PreviousHash  *string        `json:"previous_hash"`
	Hash          string         `json:"hash"`
	Timestamp     int64          `json:"timestamp"`
}

// messageResponse is the GET /quantum-ai success body.
type messageResponse struct {
	Message string `json:"message"`
}

// verifyResponse is the GET /verify success body.
type verifyResponse struct {
	Valid  bool  `json:"valid"`
	Length int64 `json:"length"`
}

// errorResponse is every failure body: a human-readable message plus a
// machine-readable kind.
type errorResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Error kinds surfaced on the wire.
const (
	kindInvalidMetadata     = "invalid_metadata"
	kindDuplicateIdentifier = "duplicate_identifier"
	kindCorruptionDetected  = "corruption_detected"
	kindMalformedRequest    = "malformed_request"
)

// blockToWire converts a domain block to its wire representation.
func blockToWire(b *domain.Block) blockJSON {
	out := blockJSON{
		SequenceIndex: b.Index,
		Hash:          b.Hash,
		Timestamp:     b.Timestamp,
	}
	if b.PreviousHash != "" {
		out.PreviousHash = &b.PreviousHash
	}
	if b.Record != nil {
		out.TokenID = &b.Record.TokenID
		out.Metadata = b.Record.Metadata
		out.AssetAddress = &b.Record.AssetAddress
		if b.Record.Owner != "" {
			out.Owner = &b.Record.Owner
		}
	}
	return out
}
