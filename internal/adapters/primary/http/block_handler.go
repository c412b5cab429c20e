package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/adapters/primary/validation"
	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// BlockHandler handles HTTP requests for blocks within a board
type BlockHandler struct {
	blockService ports.BlockService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewBlockHandler creates a new block handler
func NewBlockHandler(blockService ports.BlockService, errorHandler *ErrorHandler, logger *slog.Logger) *BlockHandler {
	return &BlockHandler{
		blockService: blockService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "block"),
	}
}

// Router returns the block sub-router, mounted under a board route.
func (h *BlockHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleListBlocks)
	r.Post("/", h.HandleCreateBlock)
	r.Patch("/{blockID}", h.HandleUpdateBlock)
	r.Delete("/{blockID}", h.HandleDeleteBlock)
	return r
}

// CreateBlockRequest defines the expected JSON body for creating a block
type CreateBlockRequest struct {
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	ParentID string          `json:"parentId"`
	Fields   json.RawMessage `json:"fields"`
}

// Validate validates the create block request
func (r *CreateBlockRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("type", r.Type).
		OneOf("type", r.Type, []string{
			string(domain.BlockTypeCard),
			string(domain.BlockTypeText),
			string(domain.BlockTypeComment),
			string(domain.BlockTypeCheckbox),
			string(domain.BlockTypeView),
		})
	v.MaxLength("title", r.Title, domain.MaxBlockTitleLength)

	if r.ParentID != "" {
		v.UUID("parentId", r.ParentID)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateBlockRequest defines the expected JSON body for updating a block
type UpdateBlockRequest struct {
	Title  *string         `json:"title"`
	Fields json.RawMessage `json:"fields"`
}

// Validate validates the update block request
func (r *UpdateBlockRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title != nil {
		v.MaxLength("title", *r.Title, domain.MaxBlockTitleLength)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleCreateBlock creates a block on a board
func (h *BlockHandler) HandleCreateBlock(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	boardID, err := parseUUIDParam(r, "boardID")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	req, err := validation.DecodeAndValidate[CreateBlockRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateBlockParams{
		BoardID: boardID,
		Type:    domain.BlockType(req.Type),
		Title:   req.Title,
		Fields:  req.Fields,
		ActorID: claims.UserID,
	}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
			return
		}
		params.ParentID = &parentID
	}

	block, err := h.blockService.CreateBlock(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, block)
}

// HandleListBlocks lists the blocks of a board
func (h *BlockHandler) HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	boardID, err := parseUUIDParam(r, "boardID")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	blocks, err := h.blockService.ListBlocks(r.Context(), boardID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, ListResponse[*domain.Block]{Data: blocks, Count: len(blocks)})
}

// HandleUpdateBlock applies partial changes to a block
func (h *BlockHandler) HandleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	blockID, err := parseUUIDParam(r, "blockID")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateBlockRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	block, err := h.blockService.UpdateBlock(r.Context(), ports.UpdateBlockParams{
		BlockID: blockID,
		Title:   req.Title,
		Fields:  req.Fields,
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, block)
}

// HandleDeleteBlock deletes a block
func (h *BlockHandler) HandleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	blockID, err := parseUUIDParam(r, "blockID")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	if err := h.blockService.DeleteBlock(r.Context(), blockID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}
