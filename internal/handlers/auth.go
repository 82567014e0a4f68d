package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/services"
)

const loginStateCookie = "oauth_state"

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login redirects to the identity provider, or signs in the local dev admin
// when no provider is configured.
func (handler *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !handler.authService.OIDCConfigured() {
		handler.devLogin(w, r)
		return
	}

	state, err := handler.authService.IssueState(w, loginStateCookie)
	if err != nil {
		slog.Error("issuing login state", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, handler.authService.LoginURL(state), http.StatusFound)
}

func (handler *AuthHandler) devLogin(w http.ResponseWriter, r *http.Request) {
	user, err := handler.authService.DevLogin(r.Context())
	if err != nil {
		slog.Error("dev login", "error", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}
	if err := handler.authService.SetSession(w, user.ID); err != nil {
		slog.Error("setting session", "error", err)
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	slog.Warn("signed in dev admin, configure OIDC_ISSUER to require real sign-in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (handler *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := handler.authService.VerifyState(w, r, loginStateCookie); err != nil {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	user, err := handler.authService.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("handling callback", "error", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	if err := handler.authService.SetSession(w, user.ID); err != nil {
		slog.Error("setting session", "error", err)
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (handler *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	handler.authService.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (handler *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.GetUser(r.Context()))
}
