package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// BlockRepository handles database operations for blocks.
type BlockRepository struct {
	pool *pgxpool.Pool
}

var _ ports.BlockRepository = (*BlockRepository)(nil)

// NewBlockRepository creates a new block repository.
func NewBlockRepository(pool *pgxpool.Pool) ports.BlockRepository {
	return &BlockRepository{pool: pool}
}

const blockColumns = `
	id, board_id, parent_id, type, title, fields,
	created_by, modified_by, created_at, updated_at
`

func (r *BlockRepository) Create(ctx context.Context, block *domain.Block) (*domain.Block, error) {
	query := `
		INSERT INTO blocks (
			id, board_id, parent_id, type, title, fields,
			created_by, modified_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + blockColumns

	row := r.pool.QueryRow(ctx, query,
		block.ID, block.BoardID, block.ParentID, string(block.Type),
		block.Title, block.Fields, block.CreatedBy, block.ModifiedBy, block.CreatedAt,
	)
	return scanBlock(row)
}

func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks WHERE id = $1`
	return scanBlock(r.pool.QueryRow(ctx, query, id))
}

func (r *BlockRepository) Update(ctx context.Context, block *domain.Block) (*domain.Block, error) {
	query := `
		UPDATE blocks
		SET title = $2, fields = $3, modified_by = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + blockColumns

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, query,
		block.ID, block.Title, block.Fields, block.ModifiedBy, now,
	)
	return scanBlock(row)
}

func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM blocks WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBlockNotFound
	}
	return nil
}

func (r *BlockRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks WHERE board_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*domain.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blocks, nil
}

func scanBlock(row pgx.Row) (*domain.Block, error) {
	block := &domain.Block{}
	var blockType string
	err := row.Scan(
		&block.ID, &block.BoardID, &block.ParentID, &blockType,
		&block.Title, &block.Fields,
		&block.CreatedBy, &block.ModifiedBy,
		&block.CreatedAt, &block.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBlockNotFound
		}
		return nil, err
	}
	block.Type = domain.BlockType(blockType)
	return block, nil
}
