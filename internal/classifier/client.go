// Package classifier talks to an Ollama-compatible model server that labels
// sprite animations from their frame count.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the local Ollama endpoint.
const DefaultBaseURL = "http://localhost:11434"

// ErrUnavailable wraps every transport, status and decoding failure.
var ErrUnavailable = errors.New("classifier unavailable")

// Model is one entry of the /api/tags listing.
type Model struct {
	Name    string       `json:"name"`
	Details ModelDetails `json:"details"`
}

type ModelDetails struct {
	Family   string   `json:"family"`
	Families []string `json:"families"`
}

// Client is a minimal HTTP client for the model server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListModels returns every model the server reports.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var body struct {
		Models []Model `json:"models"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	return body.Models, nil
}

// FilterVisionModels keeps models whose family is "mllama" or whose families
// mention "mllama" or "clip", compared case-insensitively.
func FilterVisionModels(models []Model) []Model {
	out := []Model{}
	for _, m := range models {
		if strings.EqualFold(m.Details.Family, "mllama") {
			out = append(out, m)
			continue
		}
		for _, f := range m.Details.Families {
			f = strings.ToLower(f)
			if strings.Contains(f, "mllama") || strings.Contains(f, "clip") {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Classify asks model to label a sequence of length frames. The answer is
// returned trimmed and lowercased; callers treat it as an opaque label.
func (c *Client) Classify(ctx context.Context, length int, model string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: Prompt(length),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var body generateResponse
	if err := c.do(req, &body); err != nil {
		return "", err
	}
	label := strings.ToLower(strings.TrimSpace(body.Response))
	c.logger.Debug("classified animation", "model", model, "frames", length, "label", label)
	return label, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrUnavailable, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, req.URL.Path, err)
	}
	return nil
}
