package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sellerhub/backend/internal/api/dto"
	"github.com/sellerhub/backend/internal/auth"
	"github.com/sellerhub/backend/internal/config"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/utils"
	"github.com/sellerhub/backend/internal/pkg/validator"
)

// AuthHandler handles dashboard session login
type AuthHandler struct {
	cfg       config.AuthConfig
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(cfg config.AuthConfig, log *logger.Logger, val *validator.Validator) *AuthHandler {
	return &AuthHandler{cfg: cfg, logger: log, validator: val}
}

// Login verifies the operator password and issues a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.Validation("validation failed", errs))
		return
	}

	if err := auth.VerifyPassword(req.Password, h.cfg.AdminPasswordHash); err != nil {
		h.logger.Warn("Login rejected")
		utils.WriteError(w, err)
		return
	}

	token, err := auth.MintSession(h.cfg.JWTSecret, h.cfg.TokenExpiry)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to mint session token")
		utils.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.TokenExpiry.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteSuccess(w, http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresIn: int(h.cfg.TokenExpiry.Seconds()),
	})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	utils.WriteSuccessWithMessage(w, http.StatusOK, "logged out", nil)
}
