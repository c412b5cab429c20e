package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
)

// UserRepository defines the port for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// BoardRepository defines the port for board persistence.
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) (*domain.Board, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	Update(ctx context.Context, board *domain.Board) (*domain.Board, error)
	// SoftDelete marks the board deleted without removing the row.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
}

// MembershipRepository defines the port for board membership rows. The
// authorization predicate reads through this interface on every check,
// so implementations must be cheap point lookups.
type MembershipRepository interface {
	// Get returns nil without error when no membership row exists.
	Get(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMembership, error)
	Upsert(ctx context.Context, membership *domain.BoardMembership) error
	Delete(ctx context.Context, boardID, userID uuid.UUID) error
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMembership, error)
}

// BlockRepository defines the port for block persistence.
type BlockRepository interface {
	Create(ctx context.Context, block *domain.Block) (*domain.Block, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Block, error)
	Update(ctx context.Context, block *domain.Block) (*domain.Block, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Block, error)
}
