package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// AuthorizationService implements board access checks. It holds no state
// of its own; every check is a fresh lookup against the board and
// membership stores, which is what makes broadcast-time re-checks see
// membership revocations immediately.
type AuthorizationService struct {
	boardRepo      ports.BoardRepository
	membershipRepo ports.MembershipRepository
}

var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService(
	boardRepo ports.BoardRepository,
	membershipRepo ports.MembershipRepository,
) ports.AuthorizationService {
	return &AuthorizationService{
		boardRepo:      boardRepo,
		membershipRepo: membershipRepo,
	}
}

// GetUserBoardRole derives the user's effective role on a board from
// the membership scheme flags, highest wins. An absent membership row
// yields RoleNone.
func (s *AuthorizationService) GetUserBoardRole(ctx context.Context, userID, boardID uuid.UUID) (domain.Role, error) {
	membership, err := s.membershipRepo.Get(ctx, boardID, userID)
	if err != nil {
		return domain.RoleNone, err
	}
	return membership.Role(), nil
}

// CanViewBoard reports whether a user or a share-token holder may view
// the board. A missing or deleted board is never viewable. The user and
// share-token branches are independent: a caller may supply either,
// both, or neither.
func (s *AuthorizationService) CanViewBoard(ctx context.Context, boardID uuid.UUID, userID *uuid.UUID, shareToken string) (bool, error) {
	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, apperrors.ErrBoardNotFound) {
			return false, nil
		}
		return false, err
	}
	if board.IsDeleted() {
		return false, nil
	}

	if userID != nil {
		role, err := s.GetUserBoardRole(ctx, *userID, boardID)
		if err != nil {
			return false, err
		}
		if role > domain.RoleNone {
			return true, nil
		}
		if board.Type == domain.BoardTypeOpen {
			return true, nil
		}
	}

	if shareToken != "" && board.SharingEnabled {
		if subtle.ConstantTimeCompare([]byte(board.ShareToken), []byte(shareToken)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

// RequireBoardRole asserts that the user's role is at least minRole.
func (s *AuthorizationService) RequireBoardRole(ctx context.Context, userID, boardID uuid.UUID, minRole domain.Role) error {
	role, err := s.GetUserBoardRole(ctx, userID, boardID)
	if err != nil {
		return err
	}
	if role < minRole {
		return apperrors.ErrForbidden
	}
	return nil
}

// RequireBoardEditor asserts editor-or-better access.
func (s *AuthorizationService) RequireBoardEditor(ctx context.Context, userID, boardID uuid.UUID) error {
	return s.RequireBoardRole(ctx, userID, boardID, domain.RoleEditor)
}

// RequireBoardAdmin asserts admin access.
func (s *AuthorizationService) RequireBoardAdmin(ctx context.Context, userID, boardID uuid.UUID) error {
	return s.RequireBoardRole(ctx, userID, boardID, domain.RoleAdmin)
}
