package http

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

const (
	refreshTokenCookie = "refresh_token"
	refreshCookiePath  = "/api/auth"
)

type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieConfig
	logger      *zap.Logger
}

func NewAuthHandler(authService ports.AuthService, cookies CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		logger:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login godoc
// @Summary      Logs a user in
// @Description  Verifies the credentials and issues an access token. The refresh token is set as an HttpOnly cookie scoped to `/api/auth`.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      loginRequest  true  "Email and password"
// @Success      200          {object}  tokenResponse
// @Failure      400          {object}  errorResponse
// @Failure      401          {object}  errorResponse
// @Failure      429          {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.writeTokens(w, pair)
}

// Refresh godoc
// @Summary      Rotates the refresh token
// @Description  Exchanges the refresh token, taken from the cookie or from the JSON body for clients without a cookie jar, for a new pair. Reusing a rotated token ends every session of the user.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  body      refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      200    {object}  tokenResponse
// @Failure      401    {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshTokenFrom(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if token == "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: missing refresh token", domain.ErrTokenInvalid))
		return
	}

	pair, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if domain.IsAuthError(err) {
			h.expireRefreshCookie(w)
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.writeTokens(w, pair)
}

// Logout godoc
// @Summary      Logs the authenticated session out
// @Description  Revokes the refresh token and clears its cookie
// @Tags         auth
// @Accept       json
// @Param        token  body  refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshTokenFrom(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if token == "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: missing refresh token", domain.ErrValidation))
		return
	}

	err = h.authService.Logout(r.Context(), token)
	if err != nil && !domain.IsAuthError(err) {
		writeError(w, r, h.logger, err)
		return
	}
	h.expireRefreshCookie(w)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll godoc
// @Summary      Logs every session of the user out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthContextFrom(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.authService.LogoutAll(r.Context(), ac.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.expireRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) refreshTokenFrom(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if r.ContentLength == 0 {
		return "", nil
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", err
	}
	return req.RefreshToken, nil
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, pair *domain.TokenPair) {
	h.setRefreshCookie(w, pair.Refresh)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.Access.Value,
		TokenType:   "Bearer",
		ExpiresIn:   int64(pair.Access.ExpiresAt.Sub(pair.Access.IssuedAt) / time.Second),
	})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token domain.IssuedToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    token.Value,
		Path:     refreshCookiePath,
		Domain:   h.cookies.Domain,
		Expires:  token.ExpiresAt,
		MaxAge:   int(token.ExpiresAt.Sub(token.IssuedAt) / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

func (h *AuthHandler) expireRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Path:     refreshCookiePath,
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}
