package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

type UserHandler struct {
	service     ports.UserService
	authService ports.AuthService
	logger      *zap.Logger
}

func NewUserHandler(service ports.UserService, authService ports.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service:     service,
		authService: authService,
		logger:      logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type updateUserRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	CurrentPassword string  `json:"current_password" validate:"max=72"`
	NewPassword     *string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

type userListResponse struct {
	Users []*domain.User `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
}

// Register godoc
// @Summary      Creates an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user  body      registerRequest  true  "New account"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.service.Register(r.Context(), ports.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetMe godoc
// @Summary      Returns the authenticated user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthContextFrom(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	user, err := h.service.GetByID(r.Context(), ac, ac.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// List godoc
// @Summary      Lists users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page number"  default(1)
// @Success      200   {object}  userListResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	users, total, err := h.service.List(r.Context(), page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userListResponse{Users: users, Total: total, Page: page})
}

// Get godoc
// @Summary      Returns a user
// @Description  Users can read themselves only. Admins can read anyone.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthContextFrom(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.service.GetByID(r.Context(), ac, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update godoc
// @Summary      Updates a user
// @Description  Changing the password requires `current_password` unless the caller is an admin, and ends every session of the user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "User ID"
// @Param        user  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthContextFrom(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.service.Update(r.Context(), ac, id, ports.UpdateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete godoc
// @Summary      Deletes a user
// @Tags         users
// @Security     BearerAuth
// @Param        id  path  int  true  "User ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthContextFrom(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), ac, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeSessions godoc
// @Summary      Ends every session of a user
// @Description  Invalidates every refresh token of the user. Admin only.
// @Tags         users
// @Security     BearerAuth
// @Param        id  path  int  true  "User ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id}/sessions/revoke [post]
func (h *UserHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.authService.LogoutAll(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
