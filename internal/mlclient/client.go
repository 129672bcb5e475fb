package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible chat-completions endpoint. It is
// an optional collaborator; the engine must work with it absent.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// New builds a client. Endpoint, model and key must all be set for the
// client to be usable.
func New(endpoint, model, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("ml client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("ml client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return out.Choices[0].Message.Content, nil
}

// Classify asks the model to score the text against each category in
// [0,1] and returns the parsed map.
func (c *Client) Classify(ctx context.Context, text string, categories []string) (map[string]float64, error) {
	system := "You score legislative text against categories. Respond with a single JSON object mapping each category name to a score between 0 and 1. No prose."
	user := fmt.Sprintf("Categories: %s\n\nText:\n%s", strings.Join(categories, ", "), text)
	raw, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	// Strip a markdown fence if the model added one.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	var scores map[string]float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &scores); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	return scores, nil
}

// Generate asks the model to transform text per the instruction.
func (c *Client) Generate(ctx context.Context, text, instruction string) (string, error) {
	return c.complete(ctx, instruction, text)
}
