package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user, err := domain.NewUser(domain.UserRegistrationParams{
		Username: "alice",
		Email:    uuid.NewString() + "@example.com",
		Password: "Password1",
	})
	require.NoError(t, err)

	created, err := repo.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user.ID, created.ID)
	assert.Equal(t, user.Email, created.Email)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.True(t, byID.CheckPassword("Password1"))

	byEmail, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo := NewUserRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo := NewUserRepository(testPool)

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
