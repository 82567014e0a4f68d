package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bensuskins/command-center/internal/config"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/testutil"
)

func newDevAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	userRepo := repository.NewUserRepository(db)
	service, err := NewAuthService(context.Background(), config.Config{SessionSecret: "test-secret"}, userRepo)
	if err != nil {
		t.Fatalf("creating auth service: %v", err)
	}
	return service
}

func TestDevLogin_CreatesDevAdminUser(t *testing.T) {
	service := newDevAuthService(t)

	user, err := service.DevLogin(context.Background())
	if err != nil {
		t.Fatalf("DevLogin: %v", err)
	}

	if user.Name != "Dev Admin" {
		t.Errorf("expected name 'Dev Admin', got %q", user.Name)
	}
	if user.Email != "dev@localhost" {
		t.Errorf("expected email 'dev@localhost', got %q", user.Email)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected role admin, got %q", user.Role)
	}
	if user.ID == "" {
		t.Error("expected non-empty user ID")
	}
}

func TestDevLogin_IdempotentOnSecondCall(t *testing.T) {
	service := newDevAuthService(t)

	first, err := service.DevLogin(context.Background())
	if err != nil {
		t.Fatalf("first DevLogin: %v", err)
	}

	second, err := service.DevLogin(context.Background())
	if err != nil {
		t.Fatalf("second DevLogin: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected same user ID, got %q and %q", first.ID, second.ID)
	}
}

func TestSession_RoundTripsThroughCookie(t *testing.T) {
	service := newDevAuthService(t)
	user, err := service.DevLogin(context.Background())
	if err != nil {
		t.Fatalf("DevLogin: %v", err)
	}

	recorder := httptest.NewRecorder()
	if err := service.SetSession(recorder, user.ID); err != nil {
		t.Fatalf("setting session: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range recorder.Result().Cookies() {
		request.AddCookie(cookie)
	}

	current, err := service.GetCurrentUser(request)
	if err != nil {
		t.Fatalf("getting current user: %v", err)
	}
	if current.ID != user.ID {
		t.Errorf("expected user %q, got %q", user.ID, current.ID)
	}
}

func TestGetCurrentUser_RejectsTamperedCookie(t *testing.T) {
	service := newDevAuthService(t)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: "session", Value: "forged"})

	if _, err := service.GetCurrentUser(request); err == nil {
		t.Error("expected error for tampered session cookie")
	}
}

func TestState_VerifiesMatchingCallback(t *testing.T) {
	service := newDevAuthService(t)

	recorder := httptest.NewRecorder()
	state, err := service.IssueState(recorder, "calendar_state")
	if err != nil {
		t.Fatalf("issuing state: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/callback?state="+state, nil)
	for _, cookie := range recorder.Result().Cookies() {
		request.AddCookie(cookie)
	}
	if err := service.VerifyState(httptest.NewRecorder(), request, "calendar_state"); err != nil {
		t.Errorf("expected matching state to verify, got %v", err)
	}

	request = httptest.NewRequest(http.MethodGet, "/callback?state=other", nil)
	for _, cookie := range recorder.Result().Cookies() {
		request.AddCookie(cookie)
	}
	if err := service.VerifyState(httptest.NewRecorder(), request, "calendar_state"); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("expected ErrStateMismatch, got %v", err)
	}
}
