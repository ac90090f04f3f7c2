// Package llm provides a JSON-completion client for the Gemini API.
// This is part of the platform layer and contains no business logic: callers
// own the prompt, the schema hint and the interpretation of the result.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Config configures the LLM client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Enabled bool
}

// CompletionOptions control a single completion call. Zero values fall back
// to the client defaults.
type CompletionOptions struct {
	Model        string
	Temperature  float32
	MaxTokens    int32
	SystemPrompt string
}

// Usage describes token consumption for a completed call.
type Usage struct {
	Model         string
	TotalTokens   int
	EstimatedCost float64
	LatencyMs     int64
}

// Client calls the Gemini API for structured JSON completions.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	enabled bool
}

// tokenPricePer1K maps model prefixes to an approximate blended price per
// 1K tokens, used only for cost reporting.
var tokenPricePer1K = []struct {
	prefix string
	price  float64
}{
	{"gemini-2.0-flash", 0.00025},
	{"gemini-1.5-pro", 0.0025},
	{"gemini", 0.0005},
}

// New creates an LLM client. A disabled client (no API key, Enabled false,
// or failed initialization) is still usable: Available reports false and
// CompleteJSON fails fast, letting callers fall back.
func New(ctx context.Context, cfg Config) *Client {
	c := &Client{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		enabled: cfg.Enabled && cfg.APIKey != "",
	}
	if c.model == "" {
		c.model = "gemini-2.0-flash"
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if !c.enabled {
		return c
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		c.enabled = false
		return c
	}
	c.client = client
	return c
}

// Available reports whether the client can serve completions.
func (c *Client) Available() bool {
	return c != nil && c.enabled && c.client != nil
}

// CompleteJSON sends the prompt and returns the parsed JSON payload together
// with usage metadata. The schemaHint is appended to the prompt so the model
// knows the exact response shape. The call is bounded by the configured
// timeout; a hang surfaces as a context deadline error.
func (c *Client) CompleteJSON(ctx context.Context, prompt, schemaHint string, opts CompletionOptions) (json.RawMessage, Usage, error) {
	if !c.Available() {
		return nil, Usage{}, fmt.Errorf("llm client is not available")
	}

	model := opts.Model
	if model == "" {
		model = c.model
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		MaxOutputTokens:  maxTokens,
		ResponseMIMEType: "application/json",
	}
	if opts.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}

	fullPrompt := prompt
	if schemaHint != "" {
		fullPrompt = prompt + "\n\nRespond with a single JSON object matching exactly this schema:\n" + schemaHint
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(callCtx, model, genai.Text(fullPrompt), genCfg)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, Usage{}, fmt.Errorf("llm completion failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, Usage{}, fmt.Errorf("llm returned an empty response")
	}
	payload := stripCodeFence(text)

	if !json.Valid([]byte(payload)) {
		return nil, Usage{}, fmt.Errorf("llm returned malformed JSON")
	}

	usage := Usage{Model: model, LatencyMs: latency}
	if resp.UsageMetadata != nil {
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
		usage.EstimatedCost = estimateCost(model, usage.TotalTokens)
	}

	return json.RawMessage(payload), usage, nil
}

// stripCodeFence removes a surrounding markdown code fence when the model
// wraps its JSON answer despite the response MIME type.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func estimateCost(model string, totalTokens int) float64 {
	for _, entry := range tokenPricePer1K {
		if strings.HasPrefix(model, entry.prefix) {
			return float64(totalTokens) / 1000 * entry.price
		}
	}
	return 0
}
