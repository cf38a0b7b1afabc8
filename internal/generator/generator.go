package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pktikkani/mindful-poster/internal/posts"
)

// Client drafts posts through the Anthropic Messages API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	apiURL     string
	model      string
	maxTokens  int
}

// Config holds producer configuration.
type Config struct {
	APIKey    string
	APIURL    string
	Model     string
	MaxTokens int
}

const (
	defaultAPIURL    = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1500
)

// NewClient creates a draft producer backed by the Anthropic API.
func NewClient(cfg Config) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     cfg.APIKey,
		apiURL:     apiURL,
		model:      model,
		maxTokens:  maxTokens,
	}
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   tokenUsage     `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type tokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Generate asks the model for a draft on the given theme and reports the
// token spend of the call.
func (c *Client) Generate(ctx context.Context, theme string) (posts.Draft, posts.Usage, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    styleSystemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: draftPrompt(theme)}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: decode response: %w", err)
	}

	var text string
	for _, block := range result.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: response carried no text content")
	}

	var draft posts.Draft
	if err := json.Unmarshal([]byte(stripFences(text)), &draft); err != nil {
		return posts.Draft{}, posts.Usage{}, fmt.Errorf("anthropic: decode draft: %w", err)
	}

	usage := posts.Usage{
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Model:        c.model,
	}
	usage.CostUSD, usage.CostINR = draftCost(result.Usage.InputTokens, result.Usage.OutputTokens)
	return draft, usage, nil
}

// stripFences drops a leading ```lang line and a trailing ``` from model
// output. Models occasionally fence the JSON despite the prompt.
func stripFences(text string) string {
	raw := strings.TrimSpace(text)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if _, rest, ok := strings.Cut(raw, "\n"); ok {
		raw = rest
	} else {
		raw = ""
	}
	if strings.HasSuffix(raw, "```") {
		raw = raw[:len(raw)-3]
	}
	return strings.TrimSpace(raw)
}

// draftCost prices a call at $3/M input and $15/M output tokens, with the
// rupee figure pegged at 85 INR per USD.
func draftCost(inputTokens, outputTokens int) (usd, inr float64) {
	usd = roundTo(float64(inputTokens)*3/1e6+float64(outputTokens)*15/1e6, 6)
	inr = roundTo(usd*85, 4)
	return usd, inr
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
