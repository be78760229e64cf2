// Package assistant bridges free-form user instructions to structured
// edits: it talks to the chat model, grounds it with a project summary,
// and parses the (often messy) reply into typed effects and actions.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured indicates the chat backend has no API key
var ErrNotConfigured = errors.New("assistant API key is not configured")

// ChatMessage is one turn in the model conversation
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64-encoded frames
}

// ChatClient completes a conversation and returns the model's text
type ChatClient interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}

// OllamaClient talks to an Ollama-compatible chat endpoint
type OllamaClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a chat client. baseURL should not end with a
// trailing slash; model names the hosted model.
func NewOllamaClient(baseURL, apiKey, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Chat sends the conversation and returns the assistant's content.
// Transient failures (transport errors, 5xx) are retried once.
func (c *OllamaClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}

		content, retryable, err := c.send(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return "", lastErr
}

func (c *OllamaClient) send(ctx context.Context, payload []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("chat response read failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode >= 500,
			fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("chat response malformed: %w", err)
	}

	return parsed.Message.Content, false, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
