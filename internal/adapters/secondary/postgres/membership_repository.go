package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// MembershipRepository handles database operations for board memberships.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MembershipRepository = (*MembershipRepository)(nil)

// NewMembershipRepository creates a new membership repository.
func NewMembershipRepository(pool *pgxpool.Pool) ports.MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// Get returns the membership row for (boardID, userID), or nil without
// error when the user is not a member.
func (r *MembershipRepository) Get(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMembership, error) {
	query := `
		SELECT board_id, user_id, scheme_admin, scheme_editor,
		       scheme_commenter, scheme_viewer, created_at
		FROM board_memberships
		WHERE board_id = $1 AND user_id = $2
	`

	m := &domain.BoardMembership{}
	err := r.pool.QueryRow(ctx, query, boardID, userID).Scan(
		&m.BoardID, &m.UserID,
		&m.SchemeAdmin, &m.SchemeEditor, &m.SchemeCommenter, &m.SchemeViewer,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MembershipRepository) Upsert(ctx context.Context, membership *domain.BoardMembership) error {
	query := `
		INSERT INTO board_memberships (
			board_id, user_id, scheme_admin, scheme_editor,
			scheme_commenter, scheme_viewer, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (board_id, user_id) DO UPDATE SET
			scheme_admin = EXCLUDED.scheme_admin,
			scheme_editor = EXCLUDED.scheme_editor,
			scheme_commenter = EXCLUDED.scheme_commenter,
			scheme_viewer = EXCLUDED.scheme_viewer
	`

	_, err := r.pool.Exec(ctx, query,
		membership.BoardID, membership.UserID,
		membership.SchemeAdmin, membership.SchemeEditor,
		membership.SchemeCommenter, membership.SchemeViewer,
		membership.CreatedAt,
	)
	return err
}

func (r *MembershipRepository) Delete(ctx context.Context, boardID, userID uuid.UUID) error {
	query := `DELETE FROM board_memberships WHERE board_id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, boardID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMembershipNotFound
	}
	return nil
}

func (r *MembershipRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMembership, error) {
	query := `
		SELECT board_id, user_id, scheme_admin, scheme_editor,
		       scheme_commenter, scheme_viewer, created_at
		FROM board_memberships
		WHERE board_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*domain.BoardMembership
	for rows.Next() {
		m := &domain.BoardMembership{}
		if err := rows.Scan(
			&m.BoardID, &m.UserID,
			&m.SchemeAdmin, &m.SchemeEditor, &m.SchemeCommenter, &m.SchemeViewer,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memberships, nil
}
