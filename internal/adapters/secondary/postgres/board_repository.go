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

// BoardRepository handles database operations for boards.
type BoardRepository struct {
	pool *pgxpool.Pool
}

var _ ports.BoardRepository = (*BoardRepository)(nil)

// NewBoardRepository creates a new board repository.
func NewBoardRepository(pool *pgxpool.Pool) ports.BoardRepository {
	return &BoardRepository{pool: pool}
}

const boardColumns = `
	id, team_id, title, description, type, created_by,
	sharing_enabled, share_token, created_at, updated_at, deleted_at
`

func (r *BoardRepository) Create(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	query := `
		INSERT INTO boards (
			id, team_id, title, description, type, created_by,
			sharing_enabled, share_token, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + boardColumns

	row := r.pool.QueryRow(ctx, query,
		board.ID, board.TeamID, board.Title, board.Description,
		string(board.Type), board.CreatedBy,
		board.SharingEnabled, board.ShareToken, board.CreatedAt,
	)
	return scanBoard(row)
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`
	return scanBoard(r.pool.QueryRow(ctx, query, id))
}

func (r *BoardRepository) Update(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	query := `
		UPDATE boards
		SET title = $2, description = $3, type = $4,
		    sharing_enabled = $5, share_token = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + boardColumns

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, query,
		board.ID, board.Title, board.Description, string(board.Type),
		board.SharingEnabled, board.ShareToken, now,
	)
	return scanBoard(row)
}

func (r *BoardRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE boards
		SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBoardNotFound
	}
	return nil
}

func (r *BoardRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	query := `
		SELECT b.id, b.team_id, b.title, b.description, b.type, b.created_by,
		       b.sharing_enabled, b.share_token, b.created_at, b.updated_at, b.deleted_at
		FROM boards b
		INNER JOIN board_memberships m ON m.board_id = b.id
		WHERE m.user_id = $1 AND b.deleted_at IS NULL
		ORDER BY b.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, board)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return boards, nil
}

func scanBoard(row pgx.Row) (*domain.Board, error) {
	board := &domain.Board{}
	var boardType string
	err := row.Scan(
		&board.ID, &board.TeamID, &board.Title, &board.Description,
		&boardType, &board.CreatedBy,
		&board.SharingEnabled, &board.ShareToken,
		&board.CreatedAt, &board.UpdatedAt, &board.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBoardNotFound
		}
		return nil, err
	}
	board.Type = domain.BoardType(boardType)
	return board, nil
}
