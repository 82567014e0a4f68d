package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/bensuskins/command-center/internal/storage"
	"github.com/bensuskins/command-center/internal/testutil"
	"github.com/go-chi/chi/v5"
)

type scriptedCompleter struct {
	mutex   sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (completer *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	completer.mutex.Lock()
	completer.prompts = append(completer.prompts, prompt)
	completer.mutex.Unlock()
	return completer.reply(prompt)
}

func replyWith(text string) *scriptedCompleter {
	return &scriptedCompleter{reply: func(string) (string, error) { return text, nil }}
}

func failWith(err error) *scriptedCompleter {
	return &scriptedCompleter{reply: func(string) (string, error) { return "", err }}
}

var errUnused = errors.New("completer not expected")

func requestWithUser(request *http.Request, user models.User) *http.Request {
	return request.WithContext(middleware.WithUser(request.Context(), user))
}

func newGroceryService(t *testing.T, completer *scriptedCompleter) *services.GroceryService {
	t.Helper()
	local, _ := testutil.NewMemoryLocal()
	list, err := lists.New[models.GroceryItem](context.Background(), local, storage.NewDocuments(nil), lists.Options{
		Key:        storage.KeyGroceryItems,
		Collection: services.GroceryCollection,
	})
	if err != nil {
		t.Fatalf("creating grocery list: %v", err)
	}
	t.Cleanup(list.Close)
	if completer == nil {
		completer = failWith(errUnused)
	}
	return services.NewGroceryService(list, completer)
}

// serve sends a JSON request through router and returns the recorder.
func serve(t *testing.T, router http.Handler, method string, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("decoding response %q: %v", recorder.Body.String(), err)
	}
	return value
}

func newRouter(register func(chi.Router)) *chi.Mux {
	router := chi.NewRouter()
	register(router)
	return router
}
