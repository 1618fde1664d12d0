// Package search implements agentloops.Retriever with the Tavily search API.
package search

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

	"github.com/rickchristie/agentloops"
)

// DefaultTavilyBaseURL is the public Tavily endpoint.
const DefaultTavilyBaseURL = "https://api.tavily.com"

// TavilyConfig configures a Tavily client.
type TavilyConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL defaults to DefaultTavilyBaseURL.
	BaseURL string

	// SearchDepth is "basic" or "advanced". Empty uses the API default.
	SearchDepth string

	// Timeout defaults to 30s. Ignored when HTTPClient is set.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Tavily is a Tavily search client.
type Tavily struct {
	apiKey  string
	baseURL string
	depth   string
	client  *http.Client
}

// NewTavily creates a client. It fails with agentloops.ErrMissingCredential when no API key
// is configured.
func NewTavily(cfg TavilyConfig) (*Tavily, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: tavily api key", agentloops.ErrMissingCredential)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultTavilyBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Tavily{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		depth:   cfg.SearchDepth,
		client:  client,
	}, nil
}

type tavilyRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search implements agentloops.Retriever. It returns the content of at most maxResults
// results, in the order the API ranks them.
func (t *Tavily) Search(execCtx *agentloops.ExecutionContext, query string, maxResults int) ([]string, error) {
	execCtx.PublishBeforeRetrieval(agentloops.ProviderTavily, query, maxResults)
	start := time.Now()

	results, err := t.search(execCtx.Context(), query, maxResults)

	execCtx.PublishAfterRetrieval(agentloops.ProviderTavily, query, results, time.Since(start), err)
	return results, err
}

func (t *Tavily) search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		return []string{}, nil
	}

	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: maxResults, SearchDepth: t.depth})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &agentloops.TransportError{Provider: agentloops.ProviderTavily, Op: "search", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &agentloops.TransportError{Provider: agentloops.ProviderTavily, Op: "search", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &agentloops.TransportError{
			Provider:   agentloops.ProviderTavily,
			Op:         "search",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(respBody))),
		}
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &agentloops.TransportError{
			Provider: agentloops.ProviderTavily,
			Op:       "search",
			Err:      fmt.Errorf("parse response: %w", err),
		}
	}

	snippets := make([]string, 0, min(len(parsed.Results), maxResults))
	for _, r := range parsed.Results {
		if len(snippets) == maxResults {
			break
		}
		snippets = append(snippets, r.Content)
	}
	return snippets, nil
}

var _ agentloops.Retriever = (*Tavily)(nil)
