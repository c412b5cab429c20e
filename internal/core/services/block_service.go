package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// BlockService implements block mutations on a board.
type BlockService struct {
	blockRepo ports.BlockRepository
	authzSvc  ports.AuthorizationService
	eventSvc  ports.EventService
}

var _ ports.BlockService = (*BlockService)(nil)

// NewBlockService creates a new block service.
func NewBlockService(
	blockRepo ports.BlockRepository,
	authzSvc ports.AuthorizationService,
	eventSvc ports.EventService,
) ports.BlockService {
	return &BlockService{
		blockRepo: blockRepo,
		authzSvc:  authzSvc,
		eventSvc:  eventSvc,
	}
}

// CreateBlock adds a block to a board with editor access.
func (s *BlockService) CreateBlock(ctx context.Context, params ports.CreateBlockParams) (*domain.Block, error) {
	if err := s.authzSvc.RequireBoardEditor(ctx, params.ActorID, params.BoardID); err != nil {
		return nil, err
	}

	block, err := domain.NewBlock(domain.BlockParams{
		BoardID:   params.BoardID,
		ParentID:  params.ParentID,
		Type:      params.Type,
		Title:     params.Title,
		Fields:    json.RawMessage(params.Fields),
		CreatedBy: params.ActorID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.blockRepo.Create(ctx, block)
	if err != nil {
		return nil, err
	}

	event := s.blockEvent(domain.EventBlockCreated, created, params.ActorID)
	event.Changes.After = created.Snapshot()
	return created, s.eventSvc.Publish(ctx, event)
}

// UpdateBlock applies field changes to a block with editor access.
func (s *BlockService) UpdateBlock(ctx context.Context, params ports.UpdateBlockParams) (*domain.Block, error) {
	block, err := s.blockRepo.GetByID(ctx, params.BlockID)
	if err != nil {
		return nil, err
	}

	if err := s.authzSvc.RequireBoardEditor(ctx, params.ActorID, block.BoardID); err != nil {
		return nil, err
	}

	before := block.Snapshot()

	if params.Title != nil {
		if len(*params.Title) > domain.MaxBlockTitleLength {
			return nil, apperrors.ErrTitleTooLong
		}
		block.Title = *params.Title
	}
	if params.Fields != nil {
		block.Fields = json.RawMessage(params.Fields)
	}
	block.ModifiedBy = params.ActorID
	now := time.Now().UTC()
	block.UpdatedAt = &now

	updated, err := s.blockRepo.Update(ctx, block)
	if err != nil {
		return nil, err
	}

	event := s.blockEvent(domain.EventBlockUpdated, updated, params.ActorID)
	event.Changes.Before = before
	event.Changes.After = updated.Snapshot()
	return updated, s.eventSvc.Publish(ctx, event)
}

// DeleteBlock removes a block with editor access.
func (s *BlockService) DeleteBlock(ctx context.Context, blockID, actorID uuid.UUID) error {
	block, err := s.blockRepo.GetByID(ctx, blockID)
	if err != nil {
		return err
	}

	if err := s.authzSvc.RequireBoardEditor(ctx, actorID, block.BoardID); err != nil {
		return err
	}

	if err := s.blockRepo.Delete(ctx, blockID); err != nil {
		return err
	}

	event := s.blockEvent(domain.EventBlockDeleted, block, actorID)
	event.Changes.Before = block.Snapshot()
	return s.eventSvc.Publish(ctx, event)
}

// ListBlocks returns all blocks on a board the viewer can see.
func (s *BlockService) ListBlocks(ctx context.Context, boardID, viewerID uuid.UUID) ([]*domain.Block, error) {
	allowed, err := s.authzSvc.CanViewBoard(ctx, boardID, &viewerID, "")
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrForbidden
	}
	return s.blockRepo.ListByBoard(ctx, boardID)
}

func (s *BlockService) blockEvent(eventType domain.EventType, block *domain.Block, actorID uuid.UUID) domain.Event {
	event := domain.NewEvent(eventType, domain.ScopeBoard, domain.EventActor{UserID: actorID})
	event.Meta.BoardID = &block.BoardID
	event.Meta.BlockID = &block.ID
	event.Meta.ParentID = block.ParentID
	event.Entity = domain.EventEntity{Kind: string(block.Type), ID: block.ID}
	return event
}
