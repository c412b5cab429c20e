package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	mw "github.com/corklane/board-backend/internal/adapters/primary/http/middleware"
	"github.com/corklane/board-backend/internal/adapters/primary/websocket"
	pgadapter "github.com/corklane/board-backend/internal/adapters/secondary/postgres"
	"github.com/corklane/board-backend/internal/auth"
	"github.com/corklane/board-backend/internal/core/services"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgcontainer.WithDatabase("test-db"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("could not get connection string: %v", err)
	}

	migrationsPath, err := filepath.Abs("../../../../migrations")
	if err != nil {
		log.Fatalf("could not find migrations directory: %v", err)
	}

	migrationURL := "file://" + migrationsPath
	mig, err := migrate.New(migrationURL, connStr)
	if err != nil {
		log.Fatalf("could not create migrate instance: %v", err)
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("could not run migrations: %v", err)
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not create connection pool: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Fatalf("could not terminate postgres container: %v", err)
	}

	os.Exit(code)
}

// newAPIRouter wires the full stack against the shared test pool.
func newAPIRouter() (*chi.Mux, *auth.TokenManager) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	userRepo := pgadapter.NewUserRepository(testPool)
	boardRepo := pgadapter.NewBoardRepository(testPool)
	membershipRepo := pgadapter.NewMembershipRepository(testPool)
	blockRepo := pgadapter.NewBlockRepository(testPool)

	authService := services.NewAuthService(userRepo)
	authzService := services.NewAuthorizationService(boardRepo, membershipRepo)
	hub := websocket.NewHub(authzService, logger)
	eventService := services.NewEventService(hub, logger)
	boardService := services.NewBoardService(boardRepo, membershipRepo, authzService, eventService)
	blockService := services.NewBlockService(blockRepo, authzService, eventService)

	tokenManager := auth.NewTokenManager("test-secret", time.Hour)
	authHandler := NewAuthHandler(authService, tokenManager, errorHandler, logger)
	blockHandler := NewBlockHandler(blockService, errorHandler, logger)
	boardHandler := NewBoardHandler(boardService, blockHandler, errorHandler, logger)

	router := chi.NewRouter()
	router.Route("/auth", authHandler.RegisterRoutes)
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tokenManager))
		r.Route("/boards", boardHandler.RegisterRoutes)
	})

	return router, tokenManager
}

func postJSON(t *testing.T, router *chi.Mux, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, stdhttp.MethodPost, path, token, body)
}

func doJSON(t *testing.T, router *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// registerTestUser registers a fresh account and returns its token and
// decoded user.
func registerTestUser(t *testing.T, router *chi.Mux) (string, UserResponse) {
	t.Helper()

	recorder := postJSON(t, router, "/auth/register", "", RegisterRequest{
		Username: "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "Password1",
	})
	require.Equal(t, stdhttp.StatusCreated, recorder.Code, recorder.Body.String())

	var response AuthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.NotEmpty(t, response.Token)
	return response.Token, response.User
}

func TestRegister(t *testing.T) {
	router, _ := newAPIRouter()

	email := uuid.NewString() + "@example.com"
	recorder := postJSON(t, router, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    email,
		Password: "Password1",
	})

	require.Equal(t, stdhttp.StatusCreated, recorder.Code, recorder.Body.String())

	body := recorder.Body.String()
	assert.NotContains(t, body, "Password1")
	assert.NotContains(t, body, "hashedPassword")
	assert.NotContains(t, body, "HashedPassword")

	var response AuthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, email, response.User.Email)
	assert.NotEqual(t, uuid.Nil, response.User.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router, _ := newAPIRouter()

	email := uuid.NewString() + "@example.com"
	params := RegisterRequest{Username: "alice", Email: email, Password: "Password1"}

	first := postJSON(t, router, "/auth/register", "", params)
	require.Equal(t, stdhttp.StatusCreated, first.Code)

	second := postJSON(t, router, "/auth/register", "", params)
	assert.Equal(t, stdhttp.StatusConflict, second.Code)
}

func TestRegister_InvalidBody(t *testing.T) {
	router, _ := newAPIRouter()

	recorder := postJSON(t, router, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    "not-an-email",
		Password: "Password1",
	})

	assert.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
}

func TestLogin(t *testing.T) {
	router, _ := newAPIRouter()

	email := uuid.NewString() + "@example.com"
	registered := postJSON(t, router, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    email,
		Password: "Password1",
	})
	require.Equal(t, stdhttp.StatusCreated, registered.Code)

	recorder := postJSON(t, router, "/auth/login", "", LoginRequest{
		Email:    email,
		Password: "Password1",
	})

	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())

	var response AuthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, email, response.User.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	router, _ := newAPIRouter()

	email := uuid.NewString() + "@example.com"
	registered := postJSON(t, router, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    email,
		Password: "Password1",
	})
	require.Equal(t, stdhttp.StatusCreated, registered.Code)

	recorder := postJSON(t, router, "/auth/login", "", LoginRequest{
		Email:    email,
		Password: "Password2",
	})

	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	router, _ := newAPIRouter()

	recorder := postJSON(t, router, "/auth/login", "", LoginRequest{
		Email:    "nobody-" + uuid.NewString() + "@example.com",
		Password: "Password1",
	})

	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}
