package clickhouse

import (
	"context"
	"fmt"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/storage"
)

// MintEventStore implements storage.MintEventStore using ClickHouse.
type MintEventStore struct {
	conn *Conn
}

// NewMintEventStore creates a new MintEventStore.
func NewMintEventStore(conn *Conn) *MintEventStore {
	return &MintEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MintEventStore = (*MintEventStore)(nil)

// Insert adds a new mint event.
func (s *MintEventStore) Insert(ctx context.Context, e *domain.MintEvent) error {
	if e == nil || e.TokenID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO mint_events (
			token_id, block_index, asset_address, duration_ms, minted_at
		) VALUES (?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.TokenID, e.BlockIndex, e.AssetAddress, e.DurationMs, e.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mint event: %w", err)
	}
	return nil
}

// GetByTokenID retrieves all events for a token, ordered by minted_at ASC.
func (s *MintEventStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.MintEvent, error) {
	query := `
		SELECT token_id, block_index, asset_address, duration_ms, minted_at
		FROM mint_events
		WHERE token_id = ?
		ORDER BY minted_at ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get mint events by token id: %w", err)
	}
	defer rows.Close()

	var events []*domain.MintEvent
	for rows.Next() {
		var e domain.MintEvent
		if err := rows.Scan(&e.TokenID, &e.BlockIndex, &e.AssetAddress, &e.DurationMs, &e.MintedAt); err != nil {
			return nil, fmt.Errorf("scan mint event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint event rows: %w", err)
	}

	return events, nil
}
