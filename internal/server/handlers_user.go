package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// KV key written on every successful login.
const kvLastLogin = "last_login"

// validateUsername checks that a username is safe for storage.
// Rejects empty, too long, null bytes, and control characters.
func validateUsername(username string) string {
	if username == "" {
		return "username is required"
	}
	if len(username) > 128 {
		return "username must be 128 characters or fewer"
	}
	for _, c := range username {
		if c < 0x20 || c == 0x7f {
			return "username contains invalid control characters"
		}
	}
	return ""
}

// hashPassword bcrypt-hashes a password, truncated to bcrypt's 72-byte limit.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return b
}

// handleUserCreate handles POST /api/users: register a new user.
func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if errMsg := validateUsername(req.Username); errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}
	if req.Password == "" {
		WriteError(w, http.StatusBadRequest, "password is required")
		return
	}

	ctx := r.Context()
	store := s.app.Storage.InternalStore()

	if _, err := store.GetUser(ctx, req.Username); err == nil {
		WriteError(w, http.StatusConflict, fmt.Sprintf("user '%s' already exists", req.Username))
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error().Err(err).Str("username", req.Username).Msg("Failed to check user")
		WriteError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		WriteError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	now := time.Now().UTC()
	user := &models.InternalUser{
		UserID:       req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if err := store.SaveUser(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("username", req.Username).Msg("Failed to save user")
		WriteError(w, http.StatusInternalServerError, "failed to save user")
		return
	}

	s.logger.Info().Str("username", user.UserID).Msg("User registered")
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "ok",
		"data":   userResponse(user, nil),
	})
}

// handleAuthLogin handles POST /api/auth/login: authenticate a user.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	store := s.app.Storage.InternalStore()

	user, err := store.GetUser(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), truncatePassword(req.Password)); err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := signJWT(user, &s.app.Config.Auth)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign JWT for login")
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	if err := store.SetUserKV(ctx, user.UserID, kvLastLogin, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn().Err(err).Str("username", user.UserID).Msg("Failed to record last login")
	}

	kvs, _ := store.ListUserKV(ctx, user.UserID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"token":      token,
			"expires_in": int(s.app.Config.Auth.GetTokenExpiry().Seconds()),
			"user":       userResponse(user, kvs),
		},
	})
}

// handleUserMe handles GET/PUT /api/users/me. PUT stores the given
// preferences as per-user key-value entries.
func (s *Server) handleUserMe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}

	ctx := r.Context()
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		WriteServiceError(w, models.ErrUnauthenticated)
		return
	}
	store := s.app.Storage.InternalStore()

	if r.Method == http.MethodPut {
		var req struct {
			Preferences map[string]string `json:"preferences"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		for key, value := range req.Preferences {
			key = strings.TrimSpace(key)
			if key == "" || len(key) > 64 || key == kvLastLogin {
				WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid preference key %q", key))
				return
			}
			if err := store.SetUserKV(ctx, userID, key, value); err != nil {
				s.logger.Error().Err(err).Str("username", userID).Msg("Failed to save preference")
				WriteError(w, http.StatusInternalServerError, "failed to save preferences")
				return
			}
		}
	}

	kvs, err := store.ListUserKV(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("username", userID).Msg("Failed to list preferences")
		WriteError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		// Header-authenticated identities may have no account record.
		user = &models.InternalUser{UserID: userID, Role: models.RoleUser}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   userResponse(user, kvs),
	})
}

// userResponse builds a safe response from InternalUser + UserKV entries.
func userResponse(user *models.InternalUser, kvs []*models.UserKeyValue) map[string]interface{} {
	resp := map[string]interface{}{
		"username": user.UserID,
		"email":    user.Email,
		"role":     user.Role,
	}
	if len(kvs) > 0 {
		resp["preferences"] = kvToMap(kvs)
	}
	return resp
}

func kvToMap(kvs []*models.UserKeyValue) map[string]string {
	m := make(map[string]string)
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}
