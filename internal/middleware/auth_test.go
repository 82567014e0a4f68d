package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/testutil"
)

type tokenFixture struct {
	handler   http.Handler
	tokenRepo *repository.SQLiteAPITokenRepository
	owner     models.User
}

func setupTokenFixture(t *testing.T) tokenFixture {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewAPITokenRepository(db)

	owner, err := userRepo.Create(context.Background(), models.User{OIDCSubject: "owner", Name: "Owner"})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(middleware.GetUser(r.Context()).Name))
	})
	return tokenFixture{
		handler:   middleware.RequireAPIToken(tokenRepo, userRepo, models.ScopeAIProxy)(next),
		tokenRepo: tokenRepo,
		owner:     owner,
	}
}

func (fixture tokenFixture) issue(t *testing.T, raw string, scope models.TokenScope, expiresAt *time.Time) models.APIToken {
	t.Helper()
	token, err := fixture.tokenRepo.Create(context.Background(), models.APIToken{
		Name:            raw,
		TokenHash:       repository.HashToken(raw),
		Scope:           scope,
		CreatedByUserID: fixture.owner.ID,
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		t.Fatalf("creating token: %v", err)
	}
	return token
}

func (fixture tokenFixture) call(authorization string) *httptest.ResponseRecorder {
	return fixture.callTarget("/api/ai/proxy", authorization)
}

func (fixture tokenFixture) callTarget(target string, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, target, nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestRequireAPIToken_AcceptsValidToken(t *testing.T) {
	fixture := setupTokenFixture(t)
	fixture.issue(t, "good-token", models.ScopeAIProxy, nil)

	recorder := fixture.call("Bearer good-token")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if recorder.Body.String() != "Owner" {
		t.Errorf("expected token owner on context, got %q", recorder.Body.String())
	}

	tokens, err := fixture.tokenRepo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("finding tokens: %v", err)
	}
	if tokens[0].LastUsedAt == nil {
		t.Error("expected last use to be recorded")
	}
}

func TestRequireAPIToken_Rejects(t *testing.T) {
	fixture := setupTokenFixture(t)
	past := time.Now().Add(-time.Hour)
	fixture.issue(t, "old-token", models.ScopeAIProxy, &past)
	fixture.issue(t, "feed-token", models.ScopeCalendarFeed, nil)

	tests := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic old-token"},
		{"empty bearer", "Bearer "},
		{"unknown token", "Bearer other-token"},
		{"expired token", "Bearer old-token"},
		{"other scope", "Bearer feed-token"},
	}

	for _, testCase := range tests {
		if recorder := fixture.call(testCase.authorization); recorder.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", testCase.name, recorder.Code)
		}
	}
}

func TestRequireAPIToken_QueryParameter(t *testing.T) {
	fixture := setupTokenFixture(t)
	fixture.issue(t, "query-token", models.ScopeAIProxy, nil)

	if recorder := fixture.callTarget("/api/ai/proxy?token=query-token", ""); recorder.Code != http.StatusOK {
		t.Errorf("expected 200 with query token, got %d", recorder.Code)
	}
	if recorder := fixture.callTarget("/api/ai/proxy?token=query-token", "Basic abc"); recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected a malformed header to win over the query token, got %d", recorder.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := middleware.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, expected := range map[models.Role]int{models.RoleAdmin: http.StatusNoContent, models.RoleMember: http.StatusForbidden} {
		request := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		request = request.WithContext(middleware.WithUser(request.Context(), models.User{Role: role}))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		if recorder.Code != expected {
			t.Errorf("%s: expected %d, got %d", role, expected, recorder.Code)
		}
	}
}
