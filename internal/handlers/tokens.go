package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/go-chi/chi/v5"
)

var (
	errTokenNameRequired = errors.New("token name is required")
	errInvalidTokenScope = errors.New("token scope must be ai-proxy or calendar-feed")
)

// TokenHandler lets admins issue tokens for the AI proxy and the calendar feed.
type TokenHandler struct {
	tokenRepo repository.APITokenRepository
	now       func() time.Time
}

func NewTokenHandler(tokenRepo repository.APITokenRepository) *TokenHandler {
	return &TokenHandler{tokenRepo: tokenRepo, now: time.Now}
}

type createTokenRequest struct {
	Name          string            `json:"name"`
	Scope         models.TokenScope `json:"scope"`
	ExpiresInDays int               `json:"expiresInDays"`
}

// createTokenResponse is the only place the raw token is ever returned.
type createTokenResponse struct {
	models.APIToken
	Token string `json:"token"`
}

func (handler *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := handler.tokenRepo.FindAll(r.Context())
	if err != nil {
		writeError(w, "loading tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (handler *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createTokenRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "creating token", err)
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		writeError(w, "creating token", errTokenNameRequired)
		return
	}

	if body.Scope == "" {
		body.Scope = models.ScopeAIProxy
	}
	if !body.Scope.Valid() {
		writeError(w, "creating token", errInvalidTokenScope)
		return
	}

	rawToken, err := generateToken()
	if err != nil {
		writeError(w, "creating token", err)
		return
	}

	token := models.APIToken{
		Name:            body.Name,
		TokenHash:       repository.HashToken(rawToken),
		Scope:           body.Scope,
		CreatedByUserID: middleware.GetUser(r.Context()).ID,
	}
	if body.ExpiresInDays > 0 {
		expiresAt := handler.now().AddDate(0, 0, body.ExpiresInDays)
		token.ExpiresAt = &expiresAt
	}

	created, err := handler.tokenRepo.Create(r.Context(), token)
	if err != nil {
		writeError(w, "creating token", err)
		return
	}
	writeJSON(w, http.StatusCreated, createTokenResponse{APIToken: created, Token: rawToken})
}

func (handler *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.tokenRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
