package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/storage"
)

// BlockArchive implements storage.BlockArchive using PostgreSQL.
type BlockArchive struct {
	pool *Pool
}

// NewBlockArchive creates a new BlockArchive.
func NewBlockArchive(pool *Pool) *BlockArchive {
	return &BlockArchive{pool: pool}
}

// Compile-time interface check.
var _ storage.BlockArchive = (*BlockArchive)(nil)

// Append stores a new block. Returns ErrDuplicateKey if the block index
// (or the embedded token_id) already exists.
func (s *BlockArchive) Append(ctx context.Context, b *domain.Block) error {
	if b == nil || b.Hash == "" {
		return storage.ErrInvalidInput
	}

	var tokenID, owner, assetAddress *string
	var metadataJSON []byte
	var sequence, mintedAt *int64
	if b.Record != nil {
		tokenID = &b.Record.TokenID
		owner = &b.Record.Owner
		assetAddress = &b.Record.AssetAddress
		sequence = &b.Record.Sequence
		mintedAt = &b.Record.MintedAt

		encoded, err := json.Marshal(b.Record.Metadata)
		if err != nil {
			return fmt.Errorf("encode block metadata: %w", err)
		}
		metadataJSON = encoded
	}

	query := `
		INSERT INTO blocks (
			block_index, token_id, metadata, owner_address, asset_address, sequence, minted_at,
			previous_hash, hash, block_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		b.Index,
		tokenID,
		metadataJSON,
		owner,
		assetAddress,
		sequence,
		mintedAt,
		b.PreviousHash,
		b.Hash,
		b.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// GetByIndex retrieves a block by its chain index. Returns ErrNotFound if
// not exists.
func (s *BlockArchive) GetByIndex(ctx context.Context, index int64) (*domain.Block, error) {
	query := `
		SELECT block_index, token_id, metadata, owner_address, asset_address, sequence, minted_at,
		       previous_hash, hash, block_timestamp
		FROM blocks
		WHERE block_index = $1
	`

	row := s.pool.QueryRow(ctx, query, index)
	b, err := scanBlock(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get block by index: %w", err)
	}
	return b, nil
}

// GetAll retrieves every archived block ordered by index ASC.
func (s *BlockArchive) GetAll(ctx context.Context) ([]*domain.Block, error) {
	query := `
		SELECT block_index, token_id, metadata, owner_address, asset_address, sequence, minted_at,
		       previous_hash, hash, block_timestamp
		FROM blocks
		ORDER BY block_index ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block row: %w", err)
		}
		blocks = append(blocks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block rows: %w", err)
	}

	return blocks, nil
}

// Count returns the number of archived blocks.
func (s *BlockArchive) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return count, nil
}

// scanBlock scans a single row into a Block.
func scanBlock(row pgx.Row) (*domain.Block, error) {
	var b domain.Block
	var tokenID, owner, assetAddress *string
	var metadataJSON []byte
	var sequence, mintedAt *int64

	err := row.Scan(
		&b.Index,
		&tokenID,
		&metadataJSON,
		&owner,
		&assetAddress,
		&sequence,
		&mintedAt,
		&b.PreviousHash,
		&b.Hash,
		&b.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if tokenID != nil {
		record := &domain.TokenRecord{TokenID: *tokenID}
		if owner != nil {
			record.Owner = *owner
		}
		if assetAddress != nil {
			record.AssetAddress = *assetAddress
		}
		if sequence != nil {
			record.Sequence = *sequence
		}
		if mintedAt != nil {
			record.MintedAt = *mintedAt
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
				return nil, fmt.Errorf("decode block metadata: %w", err)
			}
		}
		b.Record = record
	}

	return &b, nil
}
