package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	handler "github.com/vncsmyrnk/accounts/internal/adapters/handler/http"
	"github.com/vncsmyrnk/accounts/internal/adapters/password"
	repo "github.com/vncsmyrnk/accounts/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/accounts/internal/adapters/throttle"
	"github.com/vncsmyrnk/accounts/internal/adapters/token/jwt"
	"github.com/vncsmyrnk/accounts/internal/core/services"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	dbPassword := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

// clock is shared by the token codec and the services so tests can move time.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type TestApp struct {
	DB          *sqlx.DB
	Server      *httptest.Server
	Client      *http.Client
	Clock       *clock
	Sweeper     *services.RevocationSweeper
	Redis       *miniredis.Miniredis
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := repo.Open(ctx, dbURL, repo.DefaultPoolConfig())
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx, db.DB))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}
	logger := zap.NewNop()

	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := jwt.NewCodec([]byte("integration-secret-0123456789abcdef"), "accounts-test", jwt.WithClock(clk.Now))
	require.NoError(t, err)

	userRepo := repo.NewUserRepository(db)
	revocationRepo := repo.NewRevocationRepository(db)
	entityRepo := repo.NewEntityRepository(db)

	authSvc := services.NewAuthService(userRepo, revocationRepo, hasher, codec,
		throttle.NewRedisThrottler(redisClient, throttle.Config{MaxAttempts: 5, Cooldown: 15 * time.Minute}),
		logger,
		services.AuthServiceConfig{AccessTokenTTL: accessTTL, RefreshTokenTTL: refreshTTL},
	)
	userSvc := services.NewUserService(userRepo, hasher, logger)
	entitySvc := services.NewEntityService(entityRepo)
	sweeper := services.NewRevocationSweeper(revocationRepo, logger, services.SweeperConfig{
		Interval: time.Hour,
		Timeout:  10 * time.Second,
		Now:      clk.Now,
	})

	router := handler.NewHandler(
		handler.NewAuthHandler(authSvc, handler.CookieConfig{SameSite: http.SameSiteLaxMode}, logger),
		handler.NewUserHandler(userSvc, authSvc, logger),
		handler.NewEntityHandler(entitySvc, logger),
		codec,
		handler.RouterConfig{AllowedOrigins: []string{"*"}, Health: db, Logger: logger},
	)
	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Clock:       clk,
		Sweeper:     sweeper,
		Redis:       mr,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

type response struct {
	Status  int
	Body    []byte
	Cookies []*http.Cookie
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

func (r response) refreshCookie() *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func (app *TestApp) do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, app.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return response{Status: resp.StatusCode, Body: raw, Cookies: resp.Cookies()}
}

type tokens struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	refresh     *http.Cookie
}

func (app *TestApp) register(t *testing.T, name, email, password string) int64 {
	t.Helper()
	resp := app.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))
	var user struct {
		ID int64 `json:"id"`
	}
	resp.decode(t, &user)
	return user.ID
}

func (app *TestApp) login(t *testing.T, email, password string) tokens {
	t.Helper()
	resp := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var tok tokens
	resp.decode(t, &tok)
	tok.refresh = resp.refreshCookie()
	require.NotNil(t, tok.refresh)
	return tok
}

func (app *TestApp) makeAdmin(t *testing.T, userID int64) {
	t.Helper()
	_, err := app.DB.Exec(`UPDATE users SET is_admin = TRUE WHERE id = $1`, userID)
	require.NoError(t, err)
}
