package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/storage"
	"github.com/bensuskins/command-center/internal/testutil"
)

var fixedNow = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

type fakeAuthorizer struct {
	token *oauth2.Token
	err   error
}

func (authorizer *fakeAuthorizer) AuthCodeURL(state string, _ ...oauth2.AuthCodeOption) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (authorizer *fakeAuthorizer) Exchange(_ context.Context, _ string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return authorizer.token, authorizer.err
}

func (authorizer *fakeAuthorizer) TokenSource(_ context.Context, token *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(token)
}

type fakeSource struct {
	mutex  sync.Mutex
	name   string
	events []models.CalendarEvent
	err    error
	from   time.Time
	to     time.Time
}

func (source *fakeSource) Name() string { return source.name }

func (source *fakeSource) Events(_ context.Context, from time.Time, to time.Time) ([]models.CalendarEvent, error) {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	source.from, source.to = from, to
	if source.err != nil {
		return nil, source.err
	}
	return append([]models.CalendarEvent(nil), source.events...), nil
}

func (source *fakeSource) fail(err error) {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	source.err = err
}

type revokeRecorder struct {
	mutex  sync.Mutex
	tokens []string
}

func newRevokeServer(t *testing.T) (*httptest.Server, *revokeRecorder) {
	t.Helper()
	recorder := &revokeRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		recorder.mutex.Lock()
		recorder.tokens = append(recorder.tokens, r.PostForm.Get("token"))
		recorder.mutex.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, recorder
}

func setupService(t *testing.T, authorizer Authorizer, remote *fakeSource, feeds ...Source) (*Service, *storage.Local) {
	t.Helper()
	local, _ := testutil.NewMemoryLocal()
	revokeServer, _ := newRevokeServer(t)
	service := NewService(local, Options{
		OAuth:     authorizer,
		RevokeURL: revokeServer.URL,
		Location:  time.UTC,
		Now:       func() time.Time { return fixedNow },
		NewSource: func(context.Context, oauth2.TokenSource) (Source, error) { return remote, nil },
	}, feeds...)
	return service, local
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func TestService_SignInConnectsAndLoads(t *testing.T) {
	remote := &fakeSource{name: "google", events: []models.CalendarEvent{
		timedEvent("dentist", "2024-05-15T14:00:00Z", "2024-05-15T15:00:00Z"),
	}}
	service, local := setupService(t, &fakeAuthorizer{token: validToken()}, remote)
	ctx := context.Background()

	authURL, err := service.BeginSignIn(ctx, "state-123")
	if err != nil {
		t.Fatalf("beginning sign in: %v", err)
	}
	if !strings.Contains(authURL, "state-123") {
		t.Errorf("expected state in auth url, got %q", authURL)
	}
	if service.State() != StateConnecting {
		t.Errorf("expected connecting, got %s", service.State())
	}

	if err := service.CompleteSignIn(ctx, "code"); err != nil {
		t.Fatalf("completing sign in: %v", err)
	}
	if service.State() != StateConnected {
		t.Errorf("expected connected, got %s", service.State())
	}
	if len(service.Events()) != 1 {
		t.Errorf("expected 1 cached event, got %d", len(service.Events()))
	}

	if !remote.from.Equal(fixedNow.AddDate(0, 0, -DefaultDaysBehind)) || !remote.to.Equal(fixedNow.AddDate(0, 0, DefaultDaysAhead)) {
		t.Errorf("unexpected window %v - %v", remote.from, remote.to)
	}

	saved, ok := storage.Get[*oauth2.Token](ctx, local, storage.KeyGoogleCalendarToken)
	if !ok || saved.AccessToken != "access" {
		t.Errorf("expected saved token, got %v", saved)
	}
}

func TestService_SignInFailureReturnsToDisconnected(t *testing.T) {
	service, _ := setupService(t, &fakeAuthorizer{err: errors.New("consent denied")}, &fakeSource{})
	ctx := context.Background()

	if _, err := service.BeginSignIn(ctx, "state"); err != nil {
		t.Fatalf("beginning sign in: %v", err)
	}
	if err := service.CompleteSignIn(ctx, "code"); err == nil {
		t.Fatal("expected sign in error")
	}
	if service.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", service.State())
	}
	if service.Err() == nil {
		t.Error("expected error signal to be set")
	}
}

func TestService_FetchFailureKeepsCache(t *testing.T) {
	remote := &fakeSource{name: "google", events: []models.CalendarEvent{
		timedEvent("recital", "2024-05-16T18:00:00Z", "2024-05-16T19:00:00Z"),
	}}
	service, _ := setupService(t, &fakeAuthorizer{token: validToken()}, remote)
	ctx := context.Background()

	if err := service.CompleteSignIn(ctx, "code"); err != nil {
		t.Fatalf("completing sign in: %v", err)
	}

	remote.fail(errors.New("503 backend error"))
	if err := service.LoadEvents(ctx, DefaultDaysAhead, DefaultDaysBehind); err == nil {
		t.Fatal("expected load error")
	}

	events := service.Events()
	if len(events) != 1 || events[0].ID != "recital" {
		t.Errorf("expected previous cache to survive, got %v", events)
	}
	if service.Err() == nil {
		t.Error("expected sticky error after failed fetch")
	}

	remote.fail(nil)
	if err := service.Refresh(ctx); err != nil {
		t.Fatalf("refreshing: %v", err)
	}
	if service.Err() != nil {
		t.Errorf("expected error cleared after successful fetch, got %v", service.Err())
	}
}

func TestService_RestoreUnexpiredToken(t *testing.T) {
	remote := &fakeSource{name: "google", events: []models.CalendarEvent{
		allDayEvent("field-trip", "2024-05-17", "2024-05-18"),
	}}
	service, local := setupService(t, &fakeAuthorizer{}, remote)
	ctx := context.Background()

	if err := local.Set(ctx, storage.KeyGoogleCalendarToken, validToken()); err != nil {
		t.Fatalf("saving token: %v", err)
	}

	if !service.Restore(ctx) {
		t.Fatal("expected restore to succeed")
	}
	if service.State() != StateConnected {
		t.Errorf("expected connected, got %s", service.State())
	}
	if len(service.Events()) != 1 {
		t.Errorf("expected events loaded on restore, got %d", len(service.Events()))
	}
}

func TestService_RestoreDropsExpiredToken(t *testing.T) {
	service, local := setupService(t, &fakeAuthorizer{}, &fakeSource{})
	ctx := context.Background()

	expired := &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}
	if err := local.Set(ctx, storage.KeyGoogleCalendarToken, expired); err != nil {
		t.Fatalf("saving token: %v", err)
	}

	if service.Restore(ctx) {
		t.Fatal("expected restore to fail for expired token")
	}
	if service.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", service.State())
	}
	if _, ok := storage.Get[*oauth2.Token](ctx, local, storage.KeyGoogleCalendarToken); ok {
		t.Error("expected expired token to be removed")
	}
}

func TestService_SignOutRevokesAndClears(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()
	revokeServer, revoked := newRevokeServer(t)
	remote := &fakeSource{name: "google", events: []models.CalendarEvent{
		timedEvent("practice", "2024-05-15T17:00:00Z", "2024-05-15T18:00:00Z"),
	}}
	service := NewService(local, Options{
		OAuth:     &fakeAuthorizer{token: validToken()},
		RevokeURL: revokeServer.URL,
		Now:       func() time.Time { return fixedNow },
		NewSource: func(context.Context, oauth2.TokenSource) (Source, error) { return remote, nil },
	})
	ctx := context.Background()

	if err := service.CompleteSignIn(ctx, "code"); err != nil {
		t.Fatalf("completing sign in: %v", err)
	}
	if err := service.SignOut(ctx); err != nil {
		t.Fatalf("signing out: %v", err)
	}

	if service.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", service.State())
	}
	if len(service.Events()) != 0 {
		t.Errorf("expected empty cache, got %d events", len(service.Events()))
	}
	if _, ok := storage.Get[*oauth2.Token](ctx, local, storage.KeyGoogleCalendarToken); ok {
		t.Error("expected token removed")
	}
	revoked.mutex.Lock()
	defer revoked.mutex.Unlock()
	if len(revoked.tokens) != 1 || revoked.tokens[0] != "refresh" {
		t.Errorf("expected refresh token revoked, got %v", revoked.tokens)
	}
}

func TestService_NotConfigured(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()
	service := NewService(local, Options{})

	if _, err := service.BeginSignIn(context.Background(), "state"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if service.Restore(context.Background()) {
		t.Error("expected restore to be skipped")
	}
}

func TestService_FeedsLoadWithoutSignIn(t *testing.T) {
	feed := &fakeSource{name: "ical", events: []models.CalendarEvent{
		allDayEvent("school-holiday", "2024-05-20", "2024-05-21"),
	}}
	broken := &fakeSource{name: "broken", err: errors.New("feed down")}
	service, _ := setupService(t, nil, nil, feed, broken)

	if err := service.Refresh(context.Background()); err != nil {
		t.Fatalf("refreshing: %v", err)
	}
	if len(service.Events()) != 1 {
		t.Errorf("expected feed events without sign in, got %d", len(service.Events()))
	}

	view := service.ProjectDay(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	if len(view.AllDay) != 1 {
		t.Errorf("expected holiday in day view, got %v", view.AllDay)
	}
}

func TestService_PublishesStateChanges(t *testing.T) {
	service, _ := setupService(t, &fakeAuthorizer{token: validToken()}, &fakeSource{name: "google"})
	ctx := context.Background()

	var states []State
	cancel := service.SubscribeState(func(state State) { states = append(states, state) })
	defer cancel()

	if _, err := service.BeginSignIn(ctx, "state"); err != nil {
		t.Fatalf("beginning sign in: %v", err)
	}
	if err := service.CompleteSignIn(ctx, "code"); err != nil {
		t.Fatalf("completing sign in: %v", err)
	}

	if len(states) != 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Errorf("expected [connecting connected], got %v", states)
	}
}
