package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/adapters/token/jwt"
	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T) ports.TokenCodec {
	t.Helper()
	codec, err := jwt.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "accounts-test",
		jwt.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return codec
}

func accessToken(t *testing.T, codec ports.TokenCodec, userID int64, admin bool) string {
	t.Helper()
	tok, err := codec.Issue(domain.Subject{UserID: userID, IsAdmin: admin}, domain.TokenClassAccess, 15*time.Minute)
	require.NoError(t, err)
	return tok.Value
}

func testPair() *domain.TokenPair {
	return &domain.TokenPair{
		Access: domain.IssuedToken{
			Value:     "access-token",
			IssuedAt:  testNow,
			ExpiresAt: testNow.Add(15 * time.Minute),
		},
		Refresh: domain.IssuedToken{
			Value:     "refresh-token",
			ID:        "0190d6a8-0000-7000-8000-000000000001",
			IssuedAt:  testNow,
			ExpiresAt: testNow.Add(7 * 24 * time.Hour),
		},
	}
}

type stubAuthService struct {
	login     func(ctx context.Context, email, password, clientIP string) (*domain.TokenPair, error)
	refresh   func(ctx context.Context, token string) (*domain.TokenPair, error)
	logout    func(ctx context.Context, token string) error
	logoutAll func(ctx context.Context, userID int64) error
}

func (s *stubAuthService) Login(ctx context.Context, email, password, clientIP string) (*domain.TokenPair, error) {
	return s.login(ctx, email, password, clientIP)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*domain.TokenPair, error) {
	return s.refresh(ctx, token)
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error {
	return s.logout(ctx, token)
}

func (s *stubAuthService) LogoutAll(ctx context.Context, userID int64) error {
	return s.logoutAll(ctx, userID)
}

type stubUserService struct {
	register func(ctx context.Context, input ports.RegisterUserInput) (*domain.User, error)
	getByID  func(ctx context.Context, actor domain.AuthContext, id int64) (*domain.User, error)
	list     func(ctx context.Context, page int) ([]*domain.User, int, error)
	update   func(ctx context.Context, actor domain.AuthContext, id int64, input ports.UpdateUserInput) (*domain.User, error)
	delete   func(ctx context.Context, actor domain.AuthContext, id int64) error
}

func (s *stubUserService) Register(ctx context.Context, input ports.RegisterUserInput) (*domain.User, error) {
	return s.register(ctx, input)
}

func (s *stubUserService) GetByID(ctx context.Context, actor domain.AuthContext, id int64) (*domain.User, error) {
	return s.getByID(ctx, actor, id)
}

func (s *stubUserService) List(ctx context.Context, page int) ([]*domain.User, int, error) {
	return s.list(ctx, page)
}

func (s *stubUserService) Update(ctx context.Context, actor domain.AuthContext, id int64, input ports.UpdateUserInput) (*domain.User, error) {
	return s.update(ctx, actor, id, input)
}

func (s *stubUserService) Delete(ctx context.Context, actor domain.AuthContext, id int64) error {
	return s.delete(ctx, actor, id)
}

type stubEntityService struct {
	create  func(ctx context.Context, name string) (*domain.Entity, error)
	getByID func(ctx context.Context, id int64) (*domain.Entity, error)
	list    func(ctx context.Context, page int) ([]*domain.Entity, int, error)
	update  func(ctx context.Context, id int64, name string) (*domain.Entity, error)
	delete  func(ctx context.Context, id int64) error
}

func (s *stubEntityService) Create(ctx context.Context, name string) (*domain.Entity, error) {
	return s.create(ctx, name)
}

func (s *stubEntityService) GetByID(ctx context.Context, id int64) (*domain.Entity, error) {
	return s.getByID(ctx, id)
}

func (s *stubEntityService) List(ctx context.Context, page int) ([]*domain.Entity, int, error) {
	return s.list(ctx, page)
}

func (s *stubEntityService) Update(ctx context.Context, id int64, name string) (*domain.Entity, error) {
	return s.update(ctx, id, name)
}

func (s *stubEntityService) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

type testServer struct {
	handler  http.Handler
	codec    ports.TokenCodec
	auth     *stubAuthService
	users    *stubUserService
	entities *stubEntityService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		codec:    newTestCodec(t),
		auth:     &stubAuthService{},
		users:    &stubUserService{},
		entities: &stubEntityService{},
	}
	logger := zap.NewNop()
	s.handler = NewHandler(
		NewAuthHandler(s.auth, CookieConfig{Secure: true, SameSite: http.SameSiteStrictMode}, logger),
		NewUserHandler(s.users, s.auth, logger),
		NewEntityHandler(s.entities, logger),
		s.codec,
		RouterConfig{Logger: logger},
	)
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
