package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

func TestUserHandler_Register(t *testing.T) {
	s := newTestServer(t)
	var got ports.RegisterUserInput
	s.users.register = func(_ context.Context, input ports.RegisterUserInput) (*domain.User, error) {
		got = input
		return &domain.User{ID: 1, Name: input.Name, Email: input.Email, PasswordHash: "hash"}, nil
	}

	rec := s.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "Secret123",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ports.RegisterUserInput{Name: "Alice", Email: "a@x.com", Password: "Secret123"}, got)
	assert.NotContains(t, rec.Body.String(), "hash")
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, false, body["is_admin"])
}

func TestUserHandler_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be at least 8 characters", decodeBody[errorResponse](t, rec).Fields["password"])

	s.users.register = func(context.Context, ports.RegisterUserInput) (*domain.User, error) {
		return nil, domain.ErrEmailTaken
	}
	rec = s.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "Secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUserHandler_GetMe(t *testing.T) {
	s := newTestServer(t)
	s.users.getByID = func(_ context.Context, actor domain.AuthContext, id int64) (*domain.User, error) {
		assert.Equal(t, domain.AuthContext{UserID: 5}, actor)
		return &domain.User{ID: id, Email: "me@x.com"}, nil
	}

	rec := s.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/me", accessToken(t, s.codec, 5, false), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decodeBody[map[string]any](t, rec)["id"])
}

func TestUserHandler_List(t *testing.T) {
	s := newTestServer(t)
	var gotPage int
	s.users.list = func(_ context.Context, page int) ([]*domain.User, int, error) {
		gotPage = page
		return []*domain.User{{ID: 1}, {ID: 2}}, 12, nil
	}

	rec := s.do(t, http.MethodGet, "/api/users?page=2", accessToken(t, s.codec, 5, false), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users?page=2", accessToken(t, s.codec, 1, true), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, gotPage)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(12), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Len(t, body["users"], 2)
}

func TestUserHandler_Get(t *testing.T) {
	s := newTestServer(t)
	s.users.getByID = func(_ context.Context, actor domain.AuthContext, id int64) (*domain.User, error) {
		if !actor.CanAccess(id) {
			return nil, domain.ErrForbidden
		}
		if id == 99 {
			return nil, domain.ErrNotFound
		}
		return &domain.User{ID: id}, nil
	}
	token := accessToken(t, s.codec, 5, false)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users/5", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/users/6", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/users/abc", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/users/99", accessToken(t, s.codec, 1, true), nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/users/5", "", nil).Code)
}

func TestUserHandler_Update(t *testing.T) {
	s := newTestServer(t)
	var got ports.UpdateUserInput
	s.users.update = func(_ context.Context, actor domain.AuthContext, id int64, input ports.UpdateUserInput) (*domain.User, error) {
		got = input
		return &domain.User{ID: id, Name: *input.Name}, nil
	}

	rec := s.do(t, http.MethodPut, "/api/users/5", accessToken(t, s.codec, 5, false), map[string]string{
		"name":             "Bob",
		"current_password": "Secret123",
		"new_password":     "Secret456",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Bob", *got.Name)
	assert.Nil(t, got.Email)
	assert.Equal(t, "Secret123", got.CurrentPassword)
	require.NotNil(t, got.NewPassword)
	assert.Equal(t, "Secret456", *got.NewPassword)

	rec = s.do(t, http.MethodPut, "/api/users/5", accessToken(t, s.codec, 5, false), map[string]string{
		"email": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserHandler_Delete(t *testing.T) {
	s := newTestServer(t)
	var deleted int64
	s.users.delete = func(_ context.Context, actor domain.AuthContext, id int64) error {
		if !actor.CanAccess(id) {
			return domain.ErrForbidden
		}
		deleted = id
		return nil
	}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodDelete, "/api/users/5", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/users/6", accessToken(t, s.codec, 5, false), nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/users/5", accessToken(t, s.codec, 5, false), nil).Code)
	assert.Equal(t, int64(5), deleted)
}

func TestUserHandler_RevokeSessions(t *testing.T) {
	s := newTestServer(t)
	var revoked int64
	s.auth.logoutAll = func(_ context.Context, userID int64) error {
		if userID == 99 {
			return domain.ErrNotFound
		}
		revoked = userID
		return nil
	}

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/users/5/sessions/revoke", accessToken(t, s.codec, 5, false), nil).Code)
	assert.Equal(t, http.StatusNoContent,
		s.do(t, http.MethodPost, "/api/users/5/sessions/revoke", accessToken(t, s.codec, 1, true), nil).Code)
	assert.Equal(t, int64(5), revoked)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodPost, "/api/users/99/sessions/revoke", accessToken(t, s.codec, 1, true), nil).Code)
}
