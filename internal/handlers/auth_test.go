package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bensuskins/command-center/internal/config"
	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/bensuskins/command-center/internal/testutil"
)

func newTestAuthService(t *testing.T) (*services.AuthService, *repository.SQLiteUserRepository) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	userRepo := repository.NewUserRepository(db)

	authService, err := services.NewAuthService(
		context.Background(),
		config.Config{SessionSecret: "test-secret", BaseURL: "http://localhost:8080"},
		userRepo,
	)
	if err != nil {
		t.Fatalf("creating auth service: %v", err)
	}
	return authService, userRepo
}

func TestLogin_DevAutoLogin_WhenOIDCNotConfigured(t *testing.T) {
	authService, _ := newTestAuthService(t)
	handler := NewAuthHandler(authService)

	request := httptest.NewRequest(http.MethodGet, "/login", nil)
	recorder := httptest.NewRecorder()
	handler.Login(recorder, request)

	if recorder.Code != http.StatusFound {
		t.Errorf("expected 302, got %d\nbody: %s", recorder.Code, recorder.Body.String())
	}

	location := recorder.Header().Get("Location")
	if location != "/" {
		t.Errorf("expected redirect to /, got %q", location)
	}

	var sessionCookie string
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == "session" {
			sessionCookie = cookie.Value
			break
		}
	}
	if sessionCookie == "" {
		t.Fatal("expected session cookie to be set")
	}

	sessionRequest := httptest.NewRequest(http.MethodGet, "/", nil)
	sessionRequest.AddCookie(&http.Cookie{Name: "session", Value: sessionCookie})
	user, err := authService.GetCurrentUser(sessionRequest)
	if err != nil {
		t.Fatalf("session cookie not usable: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected dev user to be admin, got %q", user.Role)
	}
}

func TestCallback_RejectsMissingState(t *testing.T) {
	authService, _ := newTestAuthService(t)
	handler := NewAuthHandler(authService)

	request := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=forged", nil)
	recorder := httptest.NewRecorder()
	handler.Callback(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

func TestMe_ReturnsContextUser(t *testing.T) {
	authService, _ := newTestAuthService(t)
	handler := NewAuthHandler(authService)

	user := models.User{ID: "u1", Name: "Alex", Role: models.RoleMember}
	request := requestWithUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), user)
	recorder := httptest.NewRecorder()
	handler.Me(recorder, request)

	if got := decode[models.User](t, recorder); got.ID != "u1" || got.Name != "Alex" {
		t.Errorf("expected current user, got %+v", got)
	}
}

func TestRequireAuth_APIGets401(t *testing.T) {
	authService, _ := newTestAuthService(t)
	protected := middleware.RequireAuth(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	recorder := httptest.NewRecorder()
	protected.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/grocery", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for API call, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	protected.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/calendar/connect", nil))
	if recorder.Code != http.StatusFound || recorder.Header().Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %d %q", recorder.Code, recorder.Header().Get("Location"))
	}
}
