package handlers

import (
	"net/http"
	"strings"

	"github.com/bensuskins/command-center/internal/assistant"
)

type AssistantHandler struct {
	client  *assistant.Client
	direct  *assistant.Client
	counter *assistant.Counter
}

// NewAssistantHandler takes the app's client and a direct client for
// serving the proxy endpoint, which must never forward to itself.
func NewAssistantHandler(client *assistant.Client, direct *assistant.Client, counter *assistant.Counter) *AssistantHandler {
	return &AssistantHandler{client: client, direct: direct, counter: counter}
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (handler *AssistantHandler) complete(w http.ResponseWriter, r *http.Request, action string, prompt string) {
	text, err := handler.client.Complete(r.Context(), prompt)
	if err != nil {
		writeError(w, action, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (handler *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body promptRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "completing prompt", err)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}
	handler.complete(w, r, "completing prompt", body.Prompt)
}

func (handler *AssistantHandler) CookingHelp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "answering cooking question", err)
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	handler.complete(w, r, "answering cooking question", assistant.CookingHelpPrompt(body.Question))
}

func (handler *AssistantHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	handler.complete(w, r, "writing welcome message", assistant.WelcomePrompt())
}

type usageResponse struct {
	Configured bool `json:"configured"`
	Calls      int  `json:"calls"`
}

func (handler *AssistantHandler) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, usageResponse{
		Configured: handler.client.Configured(),
		Calls:      handler.counter.Count(),
	})
}

func (handler *AssistantHandler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	handler.counter.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Proxy serves the proxy wire shape. Failures are reported in the body as
// well as the status so proxy clients can surface the message.
func (handler *AssistantHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	var body assistant.ProxyRequest
	if err := readJSON(w, r, &body); err != nil || strings.TrimSpace(body.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, assistant.ProxyResponse{Error: "prompt is required"})
		return
	}

	text, err := handler.direct.Complete(r.Context(), body.Prompt)
	if err != nil {
		writeJSON(w, statusFor(err), assistant.ProxyResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, assistant.ProxyResponse{Success: true, Text: text})
}
