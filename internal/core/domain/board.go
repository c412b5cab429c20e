package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

// Validation constants for boards and blocks
const (
	MaxBoardTitleLength       = 255
	MaxBoardDescriptionLength = 4096
)

// BoardType controls who may view a board without membership.
type BoardType string

const (
	// BoardTypePrivate restricts viewing to members (or share-token holders).
	BoardTypePrivate BoardType = "private"
	// BoardTypeOpen allows any authenticated user to view the board.
	BoardTypeOpen BoardType = "open"
)

// IsValid reports whether the board type is a known value.
func (t BoardType) IsValid() bool {
	return t == BoardTypePrivate || t == BoardTypeOpen
}

// Board is a collaborative workspace holding blocks.
type Board struct {
	ID          uuid.UUID  `json:"id"`
	TeamID      *uuid.UUID `json:"teamId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        BoardType  `json:"type"`
	CreatedBy   uuid.UUID  `json:"createdBy"`

	// Sharing grants view access to holders of ShareToken when enabled.
	SharingEnabled bool   `json:"sharingEnabled"`
	ShareToken     string `json:"-"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// IsDeleted reports whether the board has been soft-deleted.
func (b *Board) IsDeleted() bool {
	return b.DeletedAt != nil
}

// BoardParams holds the input for creating a new board.
type BoardParams struct {
	Title       string
	Description string
	Type        BoardType
	TeamID      *uuid.UUID
	CreatedBy   uuid.UUID
}

// NewBoard validates the params and constructs a board.
func NewBoard(params BoardParams) (*Board, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxBoardTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Description) > MaxBoardDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}
	if params.CreatedBy == uuid.Nil {
		return nil, apperrors.ErrActorRequired
	}

	boardType := params.Type
	if boardType == "" {
		boardType = BoardTypePrivate
	}
	if !boardType.IsValid() {
		return nil, apperrors.ErrInvalidBoardType
	}

	return &Board{
		ID:          uuid.New(),
		TeamID:      params.TeamID,
		Title:       params.Title,
		Description: params.Description,
		Type:        boardType,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Role is an ordered permission tier on a board.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleCommenter
	RoleEditor
	RoleAdmin
)

// String returns the canonical lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEditor:
		return "editor"
	case RoleCommenter:
		return "commenter"
	case RoleViewer:
		return "viewer"
	default:
		return "none"
	}
}

// BoardMembership is one user's membership row on a board. The four
// scheme flags are independent booleans; the effective role is the
// highest flag that is set.
type BoardMembership struct {
	BoardID         uuid.UUID `json:"boardId"`
	UserID          uuid.UUID `json:"userId"`
	SchemeAdmin     bool      `json:"schemeAdmin"`
	SchemeEditor    bool      `json:"schemeEditor"`
	SchemeCommenter bool      `json:"schemeCommenter"`
	SchemeViewer    bool      `json:"schemeViewer"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Role derives the effective role from the scheme flags, highest wins.
func (m *BoardMembership) Role() Role {
	switch {
	case m == nil:
		return RoleNone
	case m.SchemeAdmin:
		return RoleAdmin
	case m.SchemeEditor:
		return RoleEditor
	case m.SchemeCommenter:
		return RoleCommenter
	case m.SchemeViewer:
		return RoleViewer
	default:
		return RoleNone
	}
}

// MembershipForRole builds a membership row whose flags encode the
// given role.
func MembershipForRole(boardID, userID uuid.UUID, role Role) *BoardMembership {
	return &BoardMembership{
		BoardID:         boardID,
		UserID:          userID,
		SchemeAdmin:     role == RoleAdmin,
		SchemeEditor:    role == RoleEditor,
		SchemeCommenter: role == RoleCommenter,
		SchemeViewer:    role == RoleViewer,
		CreatedAt:       time.Now().UTC(),
	}
}
