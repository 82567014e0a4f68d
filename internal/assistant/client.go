package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bensuskins/command-center/internal/config"
)

const (
	temperature = 0.7
	maxTokens   = 4096
)

type Options struct {
	Token      string
	Endpoint   string
	Model      string
	UseProxy   bool
	ProxyURL   string
	ProxyToken string
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Token:      cfg.AIToken,
		Endpoint:   cfg.AIEndpoint,
		Model:      cfg.AIModel,
		UseProxy:   cfg.AIUseProxy,
		ProxyURL:   cfg.AIProxyURL,
		ProxyToken: cfg.AIProxyToken,
	}
}

// Completer turns a prompt into free text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	options    Options
	counter    *Counter
	httpClient *http.Client
}

func NewClient(options Options, counter *Counter) *Client {
	return &Client{
		options:    options,
		counter:    counter,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (client *Client) Configured() bool {
	if client.options.UseProxy {
		return config.IsSet(client.options.ProxyURL)
	}
	return config.IsSet(client.options.Token)
}

func (client *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !client.Configured() {
		return "", ErrNotConfigured
	}

	var (
		text string
		err  error
	)
	if client.options.UseProxy {
		text, err = client.completeViaProxy(ctx, prompt)
	} else {
		text, err = client.completeDirect(ctx, prompt)
	}
	if err != nil {
		slog.Error("completing prompt", "proxy", client.options.UseProxy, "error", err)
		return "", err
	}

	if client.counter != nil {
		client.counter.Increment(ctx)
	}
	return text, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (client *Client) completeDirect(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Model:       client.options.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	url := strings.TrimRight(client.options.Endpoint, "/") + "/chat/completions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+client.options.Token)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("posting completion request: %w", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("reading completion response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		var failure errorResponse
		_ = json.Unmarshal(payload, &failure)
		message := failure.Error.Message
		if message == "" {
			message = http.StatusText(response.StatusCode)
		}
		return "", &RequestFailedError{Status: response.StatusCode, Message: message}
	}

	var completion chatResponse
	if err := json.Unmarshal(payload, &completion); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponseShape, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", ErrInvalidResponseShape
	}
	return completion.Choices[0].Message.Content, nil
}

// ProxyRequest and ProxyResponse are the wire shapes of the proxy endpoint.
type ProxyRequest struct {
	Prompt string `json:"prompt"`
}

type ProxyResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

func (client *Client) completeViaProxy(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ProxyRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encoding proxy request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.options.ProxyURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building proxy request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if config.IsSet(client.options.ProxyToken) {
		request.Header.Set("Authorization", "Bearer "+client.options.ProxyToken)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("posting proxy request: %w", err)
	}
	defer response.Body.Close()

	var result ProxyResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		if response.StatusCode < 200 || response.StatusCode > 299 {
			return "", &RequestFailedError{Status: response.StatusCode, Message: http.StatusText(response.StatusCode)}
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidResponseShape, err)
	}

	if !result.Success || response.StatusCode < 200 || response.StatusCode > 299 {
		return "", &RequestFailedError{Status: response.StatusCode, Message: result.Error}
	}
	if result.Text == "" {
		return "", ErrInvalidResponseShape
	}
	return result.Text, nil
}
