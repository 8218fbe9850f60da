package domain

// TokenRecord is one minted token embedded in a block.
// Immutable once the carrying block is appended.
type TokenRecord struct {
	TokenID      string         // unique identifier, non-empty
	Metadata     map[string]any // arbitrary JSON object supplied at mint
	Owner        string         // optional base58 owner public key, "" if unowned
	AssetAddress string         // base58 address derived from TokenID
	Sequence     int64          // assigned by the ledger, equals the block index
	MintedAt     int64          // Unix timestamp in milliseconds
}

// Block is one unit of the ledger, linked to its predecessor by hash.
// Corresponds to the blocks table in PostgreSQL.
type Block struct {
	Index        int64        // 0-based position in the chain
	Record       *TokenRecord // nil for the genesis block
	PreviousHash string       // hex SHA-256 of the predecessor, "" for genesis
	Hash         string       // hex SHA-256 over {Index, Record, PreviousHash}
	Timestamp    int64        // Unix timestamp in milliseconds
}

// Genesis reports whether the block is the chain's fixed first block.
func (b *Block) Genesis() bool {
	return b.Index == 0 && b.Record == nil
}

// Clone returns a deep copy. Snapshots hand out clones so callers can
// never mutate chain state through a read.
func (b *Block) Clone() *Block {
	blockCopy := *b
	if b.Record != nil {
		recordCopy := *b.Record
		if b.Record.Metadata != nil {
			recordCopy.Metadata = make(map[string]any, len(b.Record.Metadata))
			for k, v := range b.Record.Metadata {
				recordCopy.Metadata[k] = v
			}
		}
		blockCopy.Record = &recordCopy
	}
	return &blockCopy
}
