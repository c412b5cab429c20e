package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

// BlockType classifies the content a block carries.
type BlockType string

// MaxBlockTitleLength caps a block title.
const MaxBlockTitleLength = 255

const (
	BlockTypeCard     BlockType = "card"
	BlockTypeText     BlockType = "text"
	BlockTypeComment  BlockType = "comment"
	BlockTypeCheckbox BlockType = "checkbox"
	BlockTypeView     BlockType = "view"
)

// IsValid reports whether the block type is a known value.
func (t BlockType) IsValid() bool {
	switch t {
	case BlockTypeCard, BlockTypeText, BlockTypeComment, BlockTypeCheckbox, BlockTypeView:
		return true
	}
	return false
}

// Block is a content unit on a board. Blocks nest: ParentID points to the
// containing block, or is nil for top-level blocks.
type Block struct {
	ID       uuid.UUID       `json:"id"`
	BoardID  uuid.UUID       `json:"boardId"`
	ParentID *uuid.UUID      `json:"parentId,omitempty"`
	Type     BlockType       `json:"type"`
	Title    string          `json:"title"`
	Fields   json.RawMessage `json:"fields,omitempty"`

	CreatedBy  uuid.UUID  `json:"createdBy"`
	ModifiedBy uuid.UUID  `json:"modifiedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// BlockParams holds the input for creating a new block.
type BlockParams struct {
	BoardID   uuid.UUID
	ParentID  *uuid.UUID
	Type      BlockType
	Title     string
	Fields    json.RawMessage
	CreatedBy uuid.UUID
}

// NewBlock validates the params and constructs a block.
func NewBlock(params BlockParams) (*Block, error) {
	if params.BoardID == uuid.Nil {
		return nil, apperrors.ErrBoardIDRequired
	}
	if !params.Type.IsValid() {
		return nil, apperrors.ErrInvalidBlockType
	}
	if len(params.Title) > MaxBlockTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if params.CreatedBy == uuid.Nil {
		return nil, apperrors.ErrActorRequired
	}

	return &Block{
		ID:         uuid.New(),
		BoardID:    params.BoardID,
		ParentID:   params.ParentID,
		Type:       params.Type,
		Title:      params.Title,
		Fields:     params.Fields,
		CreatedBy:  params.CreatedBy,
		ModifiedBy: params.CreatedBy,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Snapshot returns the block serialized for event before/after captures.
func (b *Block) Snapshot() json.RawMessage {
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	return data
}
