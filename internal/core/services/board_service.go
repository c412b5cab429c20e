package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// BoardService implements board and membership mutations. Every
// successful write publishes a typed event carrying before/after
// snapshots; events go out only after the repository call returns, so a
// failed write never produces a phantom event.
type BoardService struct {
	boardRepo      ports.BoardRepository
	membershipRepo ports.MembershipRepository
	authzSvc       ports.AuthorizationService
	eventSvc       ports.EventService
}

var _ ports.BoardService = (*BoardService)(nil)

// NewBoardService creates a new board service.
func NewBoardService(
	boardRepo ports.BoardRepository,
	membershipRepo ports.MembershipRepository,
	authzSvc ports.AuthorizationService,
	eventSvc ports.EventService,
) ports.BoardService {
	return &BoardService{
		boardRepo:      boardRepo,
		membershipRepo: membershipRepo,
		authzSvc:       authzSvc,
		eventSvc:       eventSvc,
	}
}

// CreateBoard creates a board and makes the creator its admin.
func (s *BoardService) CreateBoard(ctx context.Context, params ports.CreateBoardParams) (*domain.Board, error) {
	board, err := domain.NewBoard(domain.BoardParams{
		Title:       params.Title,
		Description: params.Description,
		Type:        params.Type,
		TeamID:      params.TeamID,
		CreatedBy:   params.ActorID,
	})
	if err != nil {
		return nil, err
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}
	board.ShareToken = token

	created, err := s.boardRepo.Create(ctx, board)
	if err != nil {
		return nil, err
	}

	membership := domain.MembershipForRole(created.ID, params.ActorID, domain.RoleAdmin)
	if err := s.membershipRepo.Upsert(ctx, membership); err != nil {
		return nil, err
	}

	event := s.boardEvent(domain.EventBoardCreated, created, params.ActorID)
	event.Changes.After = snapshot(created)
	return created, s.eventSvc.Publish(ctx, event)
}

// GetBoard retrieves a board the viewer is allowed to see.
func (s *BoardService) GetBoard(ctx context.Context, boardID, viewerID uuid.UUID) (*domain.Board, error) {
	allowed, err := s.authzSvc.CanViewBoard(ctx, boardID, &viewerID, "")
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrForbidden
	}
	return s.boardRepo.GetByID(ctx, boardID)
}

// ListBoards returns the boards the viewer is a member of.
func (s *BoardService) ListBoards(ctx context.Context, viewerID uuid.UUID) ([]*domain.Board, error) {
	return s.boardRepo.ListByMember(ctx, viewerID)
}

// UpdateBoard applies the given field changes with editor access.
func (s *BoardService) UpdateBoard(ctx context.Context, params ports.UpdateBoardParams) (*domain.Board, error) {
	if err := s.authzSvc.RequireBoardEditor(ctx, params.ActorID, params.BoardID); err != nil {
		return nil, err
	}

	board, err := s.boardRepo.GetByID(ctx, params.BoardID)
	if err != nil {
		return nil, err
	}
	before := snapshot(board)

	if params.Title != nil {
		if *params.Title == "" {
			return nil, apperrors.ErrTitleRequired
		}
		if len(*params.Title) > domain.MaxBoardTitleLength {
			return nil, apperrors.ErrTitleTooLong
		}
		board.Title = *params.Title
	}
	if params.Description != nil {
		if len(*params.Description) > domain.MaxBoardDescriptionLength {
			return nil, apperrors.ErrDescriptionTooLong
		}
		board.Description = *params.Description
	}
	if params.Type != nil {
		if !params.Type.IsValid() {
			return nil, apperrors.ErrInvalidBoardType
		}
		board.Type = *params.Type
	}
	now := time.Now().UTC()
	board.UpdatedAt = &now

	updated, err := s.boardRepo.Update(ctx, board)
	if err != nil {
		return nil, err
	}

	event := s.boardEvent(domain.EventBoardUpdated, updated, params.ActorID)
	event.Changes.Before = before
	event.Changes.After = snapshot(updated)
	return updated, s.eventSvc.Publish(ctx, event)
}

// DeleteBoard soft-deletes a board with admin access.
func (s *BoardService) DeleteBoard(ctx context.Context, boardID, actorID uuid.UUID) error {
	if err := s.authzSvc.RequireBoardAdmin(ctx, actorID, boardID); err != nil {
		return err
	}

	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		return err
	}

	if err := s.boardRepo.SoftDelete(ctx, boardID); err != nil {
		return err
	}

	event := s.boardEvent(domain.EventBoardDeleted, board, actorID)
	event.Changes.Before = snapshot(board)
	return s.eventSvc.Publish(ctx, event)
}

// SetMember adds a user to a board or changes their role. Requires
// admin access on the board.
func (s *BoardService) SetMember(ctx context.Context, params ports.SetMemberParams) (*domain.BoardMembership, error) {
	if err := s.authzSvc.RequireBoardAdmin(ctx, params.ActorID, params.BoardID); err != nil {
		return nil, err
	}

	existing, err := s.membershipRepo.Get(ctx, params.BoardID, params.UserID)
	if err != nil {
		return nil, err
	}

	membership := domain.MembershipForRole(params.BoardID, params.UserID, params.Role)
	if err := s.membershipRepo.Upsert(ctx, membership); err != nil {
		return nil, err
	}

	eventType := domain.EventMemberAdded
	if existing != nil {
		eventType = domain.EventMemberUpdated
	}

	event := domain.NewEvent(eventType, domain.ScopeBoard, domain.EventActor{UserID: params.ActorID})
	event.Meta.BoardID = &params.BoardID
	event.Entity = domain.EventEntity{Kind: "member", ID: params.UserID}
	if existing != nil {
		event.Changes.Before = snapshot(existing)
	}
	event.Changes.After = snapshot(membership)
	return membership, s.eventSvc.Publish(ctx, event)
}

// RemoveMember removes a user from a board. Admins can remove anyone;
// users can remove themselves.
func (s *BoardService) RemoveMember(ctx context.Context, boardID, userID, actorID uuid.UUID) error {
	if actorID != userID {
		if err := s.authzSvc.RequireBoardAdmin(ctx, actorID, boardID); err != nil {
			return err
		}
	}

	existing, err := s.membershipRepo.Get(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperrors.ErrMembershipNotFound
	}

	if err := s.membershipRepo.Delete(ctx, boardID, userID); err != nil {
		return err
	}

	event := domain.NewEvent(domain.EventMemberRemoved, domain.ScopeBoard, domain.EventActor{UserID: actorID})
	event.Meta.BoardID = &boardID
	event.Entity = domain.EventEntity{Kind: "member", ID: userID}
	event.Changes.Before = snapshot(existing)
	return s.eventSvc.Publish(ctx, event)
}

// ListMembers returns all membership rows on a board the viewer can see.
func (s *BoardService) ListMembers(ctx context.Context, boardID, viewerID uuid.UUID) ([]*domain.BoardMembership, error) {
	allowed, err := s.authzSvc.CanViewBoard(ctx, boardID, &viewerID, "")
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrForbidden
	}
	return s.membershipRepo.ListByBoard(ctx, boardID)
}

func (s *BoardService) boardEvent(eventType domain.EventType, board *domain.Board, actorID uuid.UUID) domain.Event {
	event := domain.NewEvent(eventType, domain.ScopeBoard, domain.EventActor{UserID: actorID})
	event.Meta.BoardID = &board.ID
	event.Meta.TeamID = board.TeamID
	event.Entity = domain.EventEntity{Kind: "board", ID: board.ID}
	return event
}

// snapshot serializes a value for event before/after captures.
func snapshot(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// newShareToken generates the secret granting tokenized view access.
func newShareToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
