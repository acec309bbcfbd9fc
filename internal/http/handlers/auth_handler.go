package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/miqat/umrah-bookings/internal/http/response"
	"github.com/miqat/umrah-bookings/internal/repo/postgres"
	"github.com/miqat/umrah-bookings/pkg/auth"
	"github.com/miqat/umrah-bookings/pkg/config"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

type AuthHandler struct {
	Users postgres.UsersRepository
	Auth  config.AuthConfig
}

func NewAuthHandler(users postgres.UsersRepository, authCfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{Users: users, Auth: authCfg}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	return r
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	user, err := h.Users.FindByEmail(r.Context(), in.Email)
	if err != nil {
		logger.ErrorContext(r.Context(), "Login lookup failed", "error", err)
		response.InternalError(w, "internal error")
		return
	}
	if user == nil {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	match, err := argon2id.ComparePasswordAndHash(in.Password, user.PasswordHash)
	if err != nil || !match {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(strconv.FormatInt(user.ID, 10), user.Email, user.Role, "staff", h.Auth.JWTSecret, h.Auth.StaffTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue access token", "error", err)
		response.InternalError(w, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"role":         user.Role,
		"name":         user.Name,
	})
}
