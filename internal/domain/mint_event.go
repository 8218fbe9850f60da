package domain

// MintEvent is the analytics record emitted after each successful mint.
// Corresponds to the mint_events table in ClickHouse.
type MintEvent struct {
	TokenID      string // minted token identifier
	BlockIndex   int64  // index of the block that carries the token
	AssetAddress string // derived base58 asset address
	DurationMs   int64  // mint handling duration in milliseconds
	MintedAt     int64  // Unix timestamp in milliseconds
}
