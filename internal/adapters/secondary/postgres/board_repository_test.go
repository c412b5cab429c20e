package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// newTestRepos is a helper to create repos for a test.
func newTestRepos(t *testing.T) (ports.BoardRepository, ports.MembershipRepository, ports.UserRepository) {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")

	return NewBoardRepository(testPool), NewMembershipRepository(testPool), NewUserRepository(testPool)
}

// createTestUser inserts a user row so board foreign keys resolve.
func createTestUser(t *testing.T, userRepo ports.UserRepository) *domain.User {
	t.Helper()

	user, err := userRepo.Create(context.Background(), &domain.User{
		ID:             uuid.New(),
		Username:       fmt.Sprintf("user-%s", uuid.NewString()[:8]),
		Email:          fmt.Sprintf("%s@example.com", uuid.NewString()),
		HashedPassword: "hashedpassword",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err, "Failed to create test user")
	return user
}

// createTestBoard inserts a board owned by the given user.
func createTestBoard(t *testing.T, boardRepo ports.BoardRepository, owner uuid.UUID) *domain.Board {
	t.Helper()

	board, err := domain.NewBoard(domain.BoardParams{
		Title:     "Test Board",
		Type:      domain.BoardTypePrivate,
		CreatedBy: owner,
	})
	require.NoError(t, err)

	created, err := boardRepo.Create(context.Background(), board)
	require.NoError(t, err, "Failed to create test board")
	return created
}

func TestBoardRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	boardRepo, _, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)

	board, err := domain.NewBoard(domain.BoardParams{
		Title:       "Roadmap",
		Description: "Q3 planning",
		Type:        domain.BoardTypeOpen,
		CreatedBy:   owner.ID,
	})
	require.NoError(t, err)
	board.SharingEnabled = true
	board.ShareToken = "token-abc"

	created, err := boardRepo.Create(ctx, board)
	require.NoError(t, err, "Failed to create board")

	found, err := boardRepo.GetByID(ctx, created.ID)
	require.NoError(t, err, "Failed to get board by ID")

	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Roadmap", found.Title)
	assert.Equal(t, "Q3 planning", found.Description)
	assert.Equal(t, domain.BoardTypeOpen, found.Type)
	assert.True(t, found.SharingEnabled)
	assert.Equal(t, "token-abc", found.ShareToken)
	assert.Nil(t, found.DeletedAt)
}

func TestBoardRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	boardRepo, _, _ := newTestRepos(t)

	_, err := boardRepo.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBoardNotFound)
}

func TestBoardRepository_Update(t *testing.T) {
	ctx := context.Background()
	boardRepo, _, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	board := createTestBoard(t, boardRepo, owner.ID)

	board.Title = "Renamed"
	board.Type = domain.BoardTypeOpen

	updated, err := boardRepo.Update(ctx, board)
	require.NoError(t, err, "Failed to update board")

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, domain.BoardTypeOpen, updated.Type)
	require.NotNil(t, updated.UpdatedAt)
}

func TestBoardRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	boardRepo, _, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	board := createTestBoard(t, boardRepo, owner.ID)

	err := boardRepo.SoftDelete(ctx, board.ID)
	require.NoError(t, err, "Failed to soft delete board")

	// The row survives but carries a deletion timestamp.
	found, err := boardRepo.GetByID(ctx, board.ID)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted())

	// Deleting again reports not found.
	err = boardRepo.SoftDelete(ctx, board.ID)
	assert.ErrorIs(t, err, apperrors.ErrBoardNotFound)
}

func TestBoardRepository_ListByMember(t *testing.T) {
	ctx := context.Background()
	boardRepo, membershipRepo, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	member := createTestUser(t, userRepo)

	visible := createTestBoard(t, boardRepo, owner.ID)
	hidden := createTestBoard(t, boardRepo, owner.ID)

	err := membershipRepo.Upsert(ctx, domain.MembershipForRole(visible.ID, member.ID, domain.RoleViewer))
	require.NoError(t, err)

	boards, err := boardRepo.ListByMember(ctx, member.ID)
	require.NoError(t, err)

	require.Len(t, boards, 1)
	assert.Equal(t, visible.ID, boards[0].ID)
	assert.NotEqual(t, hidden.ID, boards[0].ID)
}

func TestMembershipRepository_UpsertGet(t *testing.T) {
	ctx := context.Background()
	boardRepo, membershipRepo, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	member := createTestUser(t, userRepo)
	board := createTestBoard(t, boardRepo, owner.ID)

	err := membershipRepo.Upsert(ctx, domain.MembershipForRole(board.ID, member.ID, domain.RoleEditor))
	require.NoError(t, err)

	m, err := membershipRepo.Get(ctx, board.ID, member.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, domain.RoleEditor, m.Role())

	// Upsert replaces the flags in place.
	err = membershipRepo.Upsert(ctx, domain.MembershipForRole(board.ID, member.ID, domain.RoleAdmin))
	require.NoError(t, err)

	m, err = membershipRepo.Get(ctx, board.ID, member.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, domain.RoleAdmin, m.Role())
}

func TestMembershipRepository_Get_Absent(t *testing.T) {
	ctx := context.Background()
	boardRepo, membershipRepo, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	board := createTestBoard(t, boardRepo, owner.ID)

	m, err := membershipRepo.Get(ctx, board.ID, uuid.New())
	require.NoError(t, err, "absent membership must not be an error")
	assert.Nil(t, m)
}

func TestMembershipRepository_Delete(t *testing.T) {
	ctx := context.Background()
	boardRepo, membershipRepo, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	member := createTestUser(t, userRepo)
	board := createTestBoard(t, boardRepo, owner.ID)

	err := membershipRepo.Upsert(ctx, domain.MembershipForRole(board.ID, member.ID, domain.RoleViewer))
	require.NoError(t, err)

	err = membershipRepo.Delete(ctx, board.ID, member.ID)
	require.NoError(t, err)

	m, err := membershipRepo.Get(ctx, board.ID, member.ID)
	require.NoError(t, err)
	assert.Nil(t, m)

	err = membershipRepo.Delete(ctx, board.ID, member.ID)
	assert.ErrorIs(t, err, apperrors.ErrMembershipNotFound)
}

func TestMembershipRepository_ListByBoard(t *testing.T) {
	ctx := context.Background()
	boardRepo, membershipRepo, userRepo := newTestRepos(t)

	owner := createTestUser(t, userRepo)
	a := createTestUser(t, userRepo)
	b := createTestUser(t, userRepo)
	board := createTestBoard(t, boardRepo, owner.ID)

	require.NoError(t, membershipRepo.Upsert(ctx, domain.MembershipForRole(board.ID, a.ID, domain.RoleViewer)))
	require.NoError(t, membershipRepo.Upsert(ctx, domain.MembershipForRole(board.ID, b.ID, domain.RoleEditor)))

	members, err := membershipRepo.ListByBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
