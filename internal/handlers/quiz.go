package handlers

import (
	"net/http"

	"github.com/bensuskins/command-center/internal/quiz"
	"github.com/go-chi/chi/v5"
)

type QuizHandler struct {
	store *quiz.Store
}

func NewQuizHandler(store *quiz.Store) *QuizHandler {
	return &QuizHandler{store: store}
}

type sessionResponse struct {
	ID string `json:"id"`
	quiz.Summary
}

func (handler *QuizHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, handler.store.Pools().Categories())
}

func (handler *QuizHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, session := handler.store.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Summary: session.Summary()})
}

func (handler *QuizHandler) session(w http.ResponseWriter, r *http.Request) (string, *quiz.Session, bool) {
	id := chi.URLParam(r, "id")
	session, err := handler.store.Get(id)
	if err != nil {
		writeError(w, "loading quiz session", err)
		return "", nil, false
	}
	return id, session, true
}

func (handler *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, session, ok := handler.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Summary: session.Summary()})
}

func (handler *QuizHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	id, session, ok := handler.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Category string `json:"category"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "selecting quiz category", err)
		return
	}
	if err := session.SelectCategory(body.Category); err != nil {
		writeError(w, "selecting quiz category", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Summary: session.Summary()})
}

type nextResponse struct {
	Question *quiz.Question `json:"question"`
	Complete bool           `json:"complete"`
}

func (handler *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	_, session, ok := handler.session(w, r)
	if !ok {
		return
	}

	question, found, err := session.Next()
	if err != nil {
		writeError(w, "drawing quiz question", err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, nextResponse{Complete: true})
		return
	}
	writeJSON(w, http.StatusOK, nextResponse{Question: &question})
}

type answerResponse struct {
	Result quiz.Result  `json:"result"`
	Score  quiz.Summary `json:"score"`
}

func (handler *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	_, session, ok := handler.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Answer string `json:"answer"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "answering quiz question", err)
		return
	}

	result, err := session.Submit(body.Answer)
	if err != nil {
		writeError(w, "answering quiz question", err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Result: result, Score: session.Summary()})
}

func (handler *QuizHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id, session, ok := handler.session(w, r)
	if !ok {
		return
	}
	session.Restart()
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Summary: session.Summary()})
}

func (handler *QuizHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	handler.store.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
