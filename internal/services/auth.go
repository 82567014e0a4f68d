package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bensuskins/command-center/internal/config"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const (
	sessionCookie = "session"
	stateMaxAge   = 10 * time.Minute
	devSubject    = "dev-admin"
)

var (
	ErrOIDCNotConfigured = errors.New("OIDC not configured")
	ErrStateMismatch     = errors.New("oauth state mismatch")
)

type AuthService struct {
	oauthConfig  *oauth2.Config
	oidcVerifier *oidc.IDTokenVerifier
	secureCookie *securecookie.SecureCookie
	secure       bool
	userRepo     repository.UserRepository
}

type SessionData struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAuthService(ctx context.Context, cfg config.Config, userRepo repository.UserRepository) (*AuthService, error) {
	service := &AuthService{
		secureCookie: securecookie.New([]byte(cfg.SessionSecret), nil),
		secure:       strings.HasPrefix(cfg.BaseURL, "https:"),
		userRepo:     userRepo,
	}
	service.secureCookie.SetSerializer(securecookie.JSONEncoder{})

	if !config.IsSet(cfg.OIDCIssuer) {
		slog.Warn("OIDC not configured, dev login enabled")
		return service, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("creating OIDC provider: %w", err)
	}

	service.oauthConfig = &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	service.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	return service, nil
}

func (service *AuthService) OIDCConfigured() bool {
	return service.oauthConfig != nil
}

func (service *AuthService) LoginURL(state string) string {
	if service.oauthConfig == nil {
		return ""
	}
	return service.oauthConfig.AuthCodeURL(state)
}

func (service *AuthService) HandleCallback(ctx context.Context, code string) (models.User, error) {
	if service.oauthConfig == nil {
		return models.User{}, ErrOIDCNotConfigured
	}

	token, err := service.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return models.User{}, fmt.Errorf("exchanging code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return models.User{}, errors.New("no id_token in response")
	}

	idToken, err := service.oidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return models.User{}, fmt.Errorf("verifying id token: %w", err)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Picture           string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return models.User{}, fmt.Errorf("parsing claims: %w", err)
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.PreferredUsername
	}
	if displayName == "" {
		displayName = claims.Email
	}

	return service.provisionUser(ctx, claims.Subject, claims.Email, displayName, claims.Picture)
}

// DevLogin signs in a fixed local admin. Only reachable when OIDC is off.
func (service *AuthService) DevLogin(ctx context.Context) (models.User, error) {
	if service.OIDCConfigured() {
		return models.User{}, errors.New("dev login disabled while OIDC is configured")
	}
	return service.provisionUser(ctx, devSubject, "dev@localhost", "Dev Admin", "")
}

// provisionUser refreshes a known profile or creates the user. The first
// user becomes admin.
func (service *AuthService) provisionUser(ctx context.Context, subject, email, name, avatarURL string) (models.User, error) {
	existingUser, err := service.userRepo.FindByOIDCSubject(ctx, subject)
	if err == nil {
		if err := service.userRepo.UpdateProfile(ctx, existingUser.ID, name, email, avatarURL); err != nil {
			slog.Warn("failed to update user profile on login", "error", err)
		}
		existingUser.Name = name
		existingUser.Email = email
		existingUser.AvatarURL = avatarURL
		return existingUser, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("looking up user: %w", err)
	}

	userCount, err := service.userRepo.Count(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("counting users: %w", err)
	}

	role := models.RoleMember
	if userCount == 0 || subject == devSubject {
		role = models.RoleAdmin
	}

	created, err := service.userRepo.Create(ctx, models.User{
		OIDCSubject: subject,
		Email:       email,
		Name:        name,
		AvatarURL:   avatarURL,
		Role:        role,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	slog.Info("provisioned new user", "id", created.ID, "name", created.Name, "role", created.Role)
	return created, nil
}

func (service *AuthService) SetSession(w http.ResponseWriter, userID string) error {
	value, err := service.secureCookie.Encode(sessionCookie, SessionData{UserID: userID, CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("encoding session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   service.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 30,
	})
	return nil
}

func (service *AuthService) GetSession(r *http.Request) (SessionData, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return SessionData{}, fmt.Errorf("no session cookie: %w", err)
	}

	var session SessionData
	if err := service.secureCookie.Decode(sessionCookie, cookie.Value, &session); err != nil {
		return SessionData{}, fmt.Errorf("decoding session cookie: %w", err)
	}
	return session, nil
}

func (service *AuthService) ClearSession(w http.ResponseWriter) {
	clearCookie(w, sessionCookie)
}

func (service *AuthService) GetCurrentUser(r *http.Request) (models.User, error) {
	session, err := service.GetSession(r)
	if err != nil {
		return models.User{}, err
	}

	user, err := service.userRepo.FindByID(r.Context(), session.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}

// IssueState stores a fresh signed state under the named cookie and returns
// it for the authorization URL.
func (service *AuthService) IssueState(w http.ResponseWriter, name string) (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(bytes)

	value, err := service.secureCookie.Encode(name, state)
	if err != nil {
		return "", fmt.Errorf("encoding state cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   service.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateMaxAge.Seconds()),
	})
	return state, nil
}

// VerifyState checks the returned state against the cookie and clears it.
func (service *AuthService) VerifyState(w http.ResponseWriter, r *http.Request, name string) error {
	defer clearCookie(w, name)

	cookie, err := r.Cookie(name)
	if err != nil {
		return fmt.Errorf("reading state cookie: %w", ErrStateMismatch)
	}
	var expected string
	if err := service.secureCookie.Decode(name, cookie.Value, &expected); err != nil {
		return fmt.Errorf("decoding state cookie: %w", ErrStateMismatch)
	}
	if expected == "" || r.URL.Query().Get("state") != expected {
		return ErrStateMismatch
	}
	return nil
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
