package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/corklane/board-backend/internal/adapters/primary/http/middleware"
	"github.com/corklane/board-backend/internal/adapters/primary/validation"
	"github.com/corklane/board-backend/internal/auth"
	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// BoardHandler handles HTTP requests for boards and board members
type BoardHandler struct {
	boardService ports.BoardService
	blockHandler *BlockHandler
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(
	boardService ports.BoardService,
	blockHandler *BlockHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		blockHandler: blockHandler,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "board"),
	}
}

// RegisterRoutes sets up the routing for all board endpoints.
func (h *BoardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListBoards)
	r.Post("/", h.HandleCreateBoard)

	r.Route("/{boardID}", func(r chi.Router) {
		r.Get("/", h.HandleGetBoard)
		r.Patch("/", h.HandleUpdateBoard)
		r.Delete("/", h.HandleDeleteBoard)

		r.Get("/members", h.HandleListMembers)
		r.Put("/members/{userID}", h.HandleSetMember)
		r.Delete("/members/{userID}", h.HandleRemoveMember)

		if h.blockHandler != nil {
			r.Mount("/blocks", h.blockHandler.Router())
		}
	})
}

// --- Request/Response DTOs ---

// CreateBoardRequest defines the expected JSON body for creating a board
type CreateBoardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	TeamID      string `json:"teamId"`
}

// Validate validates the create board request
func (r *CreateBoardRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxBoardTitleLength)

	v.MaxLength("description", r.Description, domain.MaxBoardDescriptionLength)

	if r.Type != "" {
		v.OneOf("type", r.Type, []string{string(domain.BoardTypePrivate), string(domain.BoardTypeOpen)})
	}
	if r.TeamID != "" {
		v.UUID("teamId", r.TeamID)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateBoardRequest defines the expected JSON body for updating a board
type UpdateBoardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
}

// Validate validates the update board request
func (r *UpdateBoardRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title != nil {
		v.Required("title", *r.Title).
			MaxLength("title", *r.Title, domain.MaxBoardTitleLength)
	}
	if r.Description != nil {
		v.MaxLength("description", *r.Description, domain.MaxBoardDescriptionLength)
	}
	if r.Type != nil {
		v.OneOf("type", *r.Type, []string{string(domain.BoardTypePrivate), string(domain.BoardTypeOpen)})
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// SetMemberRequest defines the expected JSON body for setting a member's role
type SetMemberRequest struct {
	Role string `json:"role"`
}

// Validate validates the set member request
func (r *SetMemberRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("role", r.Role).
		OneOf("role", r.Role, []string{"viewer", "commenter", "editor", "admin"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleCreateBoard creates a new board owned by the caller
func (h *BoardHandler) HandleCreateBoard(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	req, err := validation.DecodeAndValidate[CreateBoardRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateBoardParams{
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.BoardType(req.Type),
		ActorID:     claims.UserID,
	}
	if req.TeamID != "" {
		teamID, err := uuid.Parse(req.TeamID)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
			return
		}
		params.TeamID = &teamID
	}

	board, err := h.boardService.CreateBoard(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, board)
}

// HandleListBoards lists the boards the caller is a member of
func (h *BoardHandler) HandleListBoards(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	boards, err := h.boardService.ListBoards(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, ListResponse[*domain.Board]{Data: boards, Count: len(boards)})
}

// HandleGetBoard retrieves a single board
func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
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

	board, err := h.boardService.GetBoard(r.Context(), boardID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, board)
}

// HandleUpdateBoard applies partial changes to a board
func (h *BoardHandler) HandleUpdateBoard(w http.ResponseWriter, r *http.Request) {
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

	req, err := validation.DecodeAndValidate[UpdateBoardRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateBoardParams{
		BoardID:     boardID,
		Title:       req.Title,
		Description: req.Description,
		ActorID:     claims.UserID,
	}
	if req.Type != nil {
		boardType := domain.BoardType(*req.Type)
		params.Type = &boardType
	}

	board, err := h.boardService.UpdateBoard(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, board)
}

// HandleDeleteBoard soft-deletes a board
func (h *BoardHandler) HandleDeleteBoard(w http.ResponseWriter, r *http.Request) {
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

	if err := h.boardService.DeleteBoard(r.Context(), boardID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleListMembers lists a board's membership rows
func (h *BoardHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
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

	members, err := h.boardService.ListMembers(r.Context(), boardID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, ListResponse[*domain.BoardMembership]{Data: members, Count: len(members)})
}

// HandleSetMember adds a member or changes their role
func (h *BoardHandler) HandleSetMember(w http.ResponseWriter, r *http.Request) {
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
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	req, err := validation.DecodeAndValidate[SetMemberRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	membership, err := h.boardService.SetMember(r.Context(), ports.SetMemberParams{
		BoardID: boardID,
		UserID:  userID,
		Role:    roleFromString(req.Role),
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, membership)
}

// HandleRemoveMember removes a member from a board
func (h *BoardHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
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
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	if err := h.boardService.RemoveMember(r.Context(), boardID, userID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// --- Helpers ---

func claimsFromContext(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(mw.UserClaimsKey).(*auth.Claims)
	return claims, ok
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func roleFromString(role string) domain.Role {
	switch role {
	case "admin":
		return domain.RoleAdmin
	case "editor":
		return domain.RoleEditor
	case "commenter":
		return domain.RoleCommenter
	case "viewer":
		return domain.RoleViewer
	default:
		return domain.RoleNone
	}
}
