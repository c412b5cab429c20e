package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/corklane/board-backend/internal/core/domain"
	"github.com/corklane/board-backend/internal/core/ports"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockBoardRepository is a mock implementation of ports.BoardRepository
type MockBoardRepository struct {
	mock.Mock
}

var _ ports.BoardRepository = (*MockBoardRepository)(nil)

func NewMockBoardRepository() *MockBoardRepository {
	return &MockBoardRepository{}
}

func (m *MockBoardRepository) Create(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	args := m.Called(ctx, board)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Board), args.Error(1)
}

func (m *MockBoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Board), args.Error(1)
}

func (m *MockBoardRepository) Update(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	args := m.Called(ctx, board)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Board), args.Error(1)
}

func (m *MockBoardRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBoardRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Board), args.Error(1)
}

// MockMembershipRepository is a mock implementation of ports.MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

var _ ports.MembershipRepository = (*MockMembershipRepository)(nil)

func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{}
}

func (m *MockMembershipRepository) Get(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMembership, error) {
	args := m.Called(ctx, boardID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BoardMembership), args.Error(1)
}

func (m *MockMembershipRepository) Upsert(ctx context.Context, membership *domain.BoardMembership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, boardID, userID uuid.UUID) error {
	args := m.Called(ctx, boardID, userID)
	return args.Error(0)
}

func (m *MockMembershipRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMembership, error) {
	args := m.Called(ctx, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BoardMembership), args.Error(1)
}

// MockBlockRepository is a mock implementation of ports.BlockRepository
type MockBlockRepository struct {
	mock.Mock
}

var _ ports.BlockRepository = (*MockBlockRepository)(nil)

func NewMockBlockRepository() *MockBlockRepository {
	return &MockBlockRepository{}
}

func (m *MockBlockRepository) Create(ctx context.Context, block *domain.Block) (*domain.Block, error) {
	args := m.Called(ctx, block)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Block), args.Error(1)
}

func (m *MockBlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Block, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Block), args.Error(1)
}

func (m *MockBlockRepository) Update(ctx context.Context, block *domain.Block) (*domain.Block, error) {
	args := m.Called(ctx, block)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Block), args.Error(1)
}

func (m *MockBlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBlockRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Block, error) {
	args := m.Called(ctx, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Block), args.Error(1)
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

var _ ports.AuthorizationService = (*MockAuthorizationService)(nil)

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) GetUserBoardRole(ctx context.Context, userID, boardID uuid.UUID) (domain.Role, error) {
	args := m.Called(ctx, userID, boardID)
	return args.Get(0).(domain.Role), args.Error(1)
}

func (m *MockAuthorizationService) CanViewBoard(ctx context.Context, boardID uuid.UUID, userID *uuid.UUID, shareToken string) (bool, error) {
	args := m.Called(ctx, boardID, userID, shareToken)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationService) RequireBoardRole(ctx context.Context, userID, boardID uuid.UUID, minRole domain.Role) error {
	args := m.Called(ctx, userID, boardID, minRole)
	return args.Error(0)
}

func (m *MockAuthorizationService) RequireBoardEditor(ctx context.Context, userID, boardID uuid.UUID) error {
	args := m.Called(ctx, userID, boardID)
	return args.Error(0)
}

func (m *MockAuthorizationService) RequireBoardAdmin(ctx context.Context, userID, boardID uuid.UUID) error {
	args := m.Called(ctx, userID, boardID)
	return args.Error(0)
}

// MockBroadcaster is a mock implementation of ports.Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

var _ ports.Broadcaster = (*MockBroadcaster)(nil)

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEventService is a mock implementation of ports.EventService
type MockEventService struct {
	mock.Mock
}

var _ ports.EventService = (*MockEventService)(nil)

func NewMockEventService() *MockEventService {
	return &MockEventService{}
}

func (m *MockEventService) RegisterListener(listener domain.Listener) func() {
	args := m.Called(listener)
	if args.Get(0) == nil {
		return func() {}
	}
	return args.Get(0).(func())
}

func (m *MockEventService) UnregisterListener(id string) {
	m.Called(id)
}

func (m *MockEventService) SetBroadcaster(b ports.Broadcaster) {
	m.Called(b)
}

func (m *MockEventService) Publish(ctx context.Context, event domain.Event, opts ...ports.PublishOption) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
