package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/bensuskins/command-center/internal/config"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/signal"
	"github.com/bensuskins/command-center/internal/storage"
)

const (
	DefaultDaysAhead  = 60
	DefaultDaysBehind = 7
	defaultRevokeURL  = "https://oauth2.googleapis.com/revoke"
)

var (
	ErrNotConfigured    = errors.New("google calendar not configured")
	ErrAlreadyConnected = errors.New("google calendar already connected")
)

// Authorizer is the part of *oauth2.Config the connector needs.
type Authorizer interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
}

type Options struct {
	OAuth      Authorizer
	CalendarID string
	RevokeURL  string
	Location   *time.Location
	Now        func() time.Time
	HTTPClient *http.Client
	// NewSource builds the remote source for a signed-in token. Defaults to
	// the Google Calendar API.
	NewSource func(ctx context.Context, tokens oauth2.TokenSource) (Source, error)
}

func OptionsFromConfig(cfg config.Config) Options {
	options := Options{CalendarID: cfg.CalendarID}
	if cfg.CalendarConfigured() {
		redirectURL := cfg.GoogleRedirectURL
		if redirectURL == "" {
			redirectURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/calendar/callback"
		}
		options.OAuth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarReadonlyScope},
		}
	}
	return options
}

// Service connects to a Google calendar, caches a window of events and
// projects the cache onto day and week views.
type Service struct {
	options  Options
	local    *storage.Local
	timeline Timeline
	conn     *connection
	feeds    []Source
	events   *signal.Value[[]models.CalendarEvent]
	errors   *signal.Value[error]

	mutex  sync.Mutex
	token  *oauth2.Token
	remote Source
}

func NewService(local *storage.Local, options Options, feeds ...Source) *Service {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.RevokeURL == "" {
		options.RevokeURL = defaultRevokeURL
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if options.NewSource == nil {
		calendarID := options.CalendarID
		options.NewSource = func(ctx context.Context, tokens oauth2.TokenSource) (Source, error) {
			return NewGoogleSource(ctx, calendarID, option.WithTokenSource(tokens))
		}
	}
	return &Service{
		options:  options,
		local:    local,
		timeline: NewTimeline(options.Location),
		conn:     newConnection(),
		feeds:    feeds,
		events:   signal.New([]models.CalendarEvent{}),
		errors:   signal.New[error](nil),
	}
}

func (service *Service) Configured() bool {
	return service.options.OAuth != nil
}

func (service *Service) State() State {
	return service.conn.current()
}

func (service *Service) SubscribeState(fn func(State)) func() {
	return service.conn.state.Subscribe(fn)
}

func (service *Service) Events() []models.CalendarEvent {
	events := service.events.Get()
	return append([]models.CalendarEvent(nil), events...)
}

func (service *Service) SubscribeEvents(fn func([]models.CalendarEvent)) func() {
	return service.events.Subscribe(fn)
}

func (service *Service) Err() error {
	return service.errors.Get()
}

func (service *Service) Errors() *signal.Value[error] {
	return service.errors
}

func (service *Service) ClearError() {
	service.errors.Set(nil)
}

func (service *Service) Timeline() Timeline {
	return service.timeline
}

// Restore reconnects from a saved token. Expired tokens are discarded.
func (service *Service) Restore(ctx context.Context) bool {
	if !service.Configured() {
		return false
	}
	token, ok := storage.Get[*oauth2.Token](ctx, service.local, storage.KeyGoogleCalendarToken)
	if !ok || token == nil || token.AccessToken == "" {
		return false
	}
	if !token.Valid() {
		slog.Info("discarding expired calendar token", "expiry", token.Expiry)
		if err := service.local.Remove(ctx, storage.KeyGoogleCalendarToken); err != nil {
			slog.Warn("removing calendar token", "error", err)
		}
		return false
	}

	if err := service.connect(ctx, token); err != nil {
		service.fail(err)
		return false
	}
	if err := service.LoadEvents(ctx, DefaultDaysAhead, DefaultDaysBehind); err != nil {
		slog.Warn("loading events after restore", "error", err)
	}
	return true
}

// BeginSignIn moves to connecting and returns the consent URL.
func (service *Service) BeginSignIn(ctx context.Context, state string) (string, error) {
	if !service.Configured() {
		return "", ErrNotConfigured
	}
	if service.State() == StateConnected {
		return "", ErrAlreadyConnected
	}
	if err := service.conn.trigger(ctx, eventBegin); err != nil {
		return "", err
	}
	return service.options.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// CompleteSignIn exchanges the consent code. A failure is recorded on the
// error signal and the connector returns to disconnected.
func (service *Service) CompleteSignIn(ctx context.Context, code string) error {
	if !service.Configured() {
		return ErrNotConfigured
	}

	token, err := service.options.OAuth.Exchange(ctx, code)
	if err == nil {
		err = service.connect(ctx, token)
	}
	if err != nil {
		err = fmt.Errorf("signing in to google calendar: %w", err)
		service.AbortSignIn(ctx, err)
		return err
	}

	if err := service.local.Set(ctx, storage.KeyGoogleCalendarToken, token); err != nil {
		slog.Warn("saving calendar token", "error", err)
	}
	service.ClearError()
	return service.LoadEvents(ctx, DefaultDaysAhead, DefaultDaysBehind)
}

// AbortSignIn records err and returns a pending sign-in to disconnected.
func (service *Service) AbortSignIn(ctx context.Context, err error) {
	service.fail(err)
	if service.State() != StateConnecting {
		return
	}
	if triggerErr := service.conn.trigger(ctx, eventFail); triggerErr != nil {
		slog.Warn("resetting calendar state", "error", triggerErr)
	}
}

func (service *Service) connect(ctx context.Context, token *oauth2.Token) error {
	remote, err := service.options.NewSource(ctx, service.options.OAuth.TokenSource(context.WithoutCancel(ctx), token))
	if err != nil {
		return err
	}

	service.mutex.Lock()
	service.token = token
	service.remote = remote
	service.mutex.Unlock()

	return service.conn.trigger(ctx, eventConnect)
}

// SignOut revokes the token, forgets it and empties the cache.
func (service *Service) SignOut(ctx context.Context) error {
	service.mutex.Lock()
	token := service.token
	service.token = nil
	service.remote = nil
	service.mutex.Unlock()

	if token != nil {
		if err := service.revoke(ctx, token); err != nil {
			slog.Warn("revoking calendar token", "error", err)
		}
	}
	if err := service.local.Remove(ctx, storage.KeyGoogleCalendarToken); err != nil {
		slog.Warn("removing calendar token", "error", err)
	}

	service.events.Set([]models.CalendarEvent{})
	service.ClearError()
	return service.conn.trigger(ctx, eventDisconnect)
}

func (service *Service) revoke(ctx context.Context, token *oauth2.Token) error {
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, service.options.RevokeURL,
		strings.NewReader(url.Values{"token": {value}}.Encode()))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := service.options.HTTPClient.Do(request)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoking token: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LoadEvents refetches the whole window and replaces the cache. When the
// remote fetch fails the previous cache stays and the error is recorded.
func (service *Service) LoadEvents(ctx context.Context, daysAhead int, daysBehind int) error {
	now := service.options.Now()
	from := now.AddDate(0, 0, -daysBehind)
	to := now.AddDate(0, 0, daysAhead)

	service.mutex.Lock()
	remote := service.remote
	service.mutex.Unlock()

	var events []models.CalendarEvent
	if remote != nil {
		remoteEvents, err := remote.Events(ctx, from, to)
		if err != nil {
			err = fmt.Errorf("loading events: %w", err)
			service.fail(err)
			return err
		}
		events = append(events, remoteEvents...)
	}
	for _, feed := range service.feeds {
		feedEvents, err := feed.Events(ctx, from, to)
		if err != nil {
			slog.Warn("loading calendar feed", "source", feed.Name(), "error", err)
			continue
		}
		events = append(events, feedEvents...)
	}

	if events == nil {
		events = []models.CalendarEvent{}
	}
	service.events.Set(events)
	service.ClearError()
	return nil
}

// Refresh reloads the default window.
func (service *Service) Refresh(ctx context.Context) error {
	return service.LoadEvents(ctx, DefaultDaysAhead, DefaultDaysBehind)
}

func (service *Service) ProjectDay(date time.Time) DayView {
	return service.timeline.ProjectDay(service.events.Get(), date)
}

func (service *Service) ProjectWeek(date time.Time) []DayView {
	return service.timeline.ProjectWeek(service.events.Get(), date)
}

func (service *Service) CurrentTimePosition() float64 {
	return service.timeline.CurrentTimePosition(service.options.Now())
}

func (service *Service) fail(err error) {
	slog.Error("calendar failure", "error", err)
	service.errors.Set(err)
}
