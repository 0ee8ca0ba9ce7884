package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/util"
)

const (
	anthropicDefaultURL   = "https://api.anthropic.com"
	anthropicDefaultModel = "claude-3-5-haiku-20241022"
	anthropicVersion      = "2023-06-01"
)

// AnthropicParser tags sentences through the Anthropic Messages API
type AnthropicParser struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicParser creates a tagger client; an API key is required
func NewAnthropicParser(cfg model.ParserConfig) (*AnthropicParser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic parser requires api_key")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = anthropicDefaultModel
	}

	return &AnthropicParser{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      modelName,
		httpClient: util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}, nil
}

func (p *AnthropicParser) Name() string {
	return "anthropic"
}

// Parse asks the model for a JSON token list and aligns it against the text
func (p *AnthropicParser) Parse(ctx context.Context, text string) ([]model.Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := p.send(ctx, anthropicRequest{
		Model:     p.model,
		MaxTokens: 2048,
		System:    taggerSystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: text}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	content, ok := jsonObject(sb.String())
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in tagger output", ErrMalformedParse)
	}

	var tagged taggedSentence
	if err := json.Unmarshal([]byte(content), &tagged); err != nil {
		return nil, fmt.Errorf("%w: decode tagger output: %v", ErrMalformedParse, err)
	}

	raw := make([]rawToken, len(tagged.Tokens))
	for i, t := range tagged.Tokens {
		raw[i] = rawToken{Text: t.Text, POS: t.Pos, Dep: t.Dep}
	}
	if err := alignWhitespace(text, raw); err != nil {
		return nil, err
	}

	return normalize(raw)
}

// Probe sends a one-token request to confirm the key and model are accepted
func (p *AnthropicParser) Probe(ctx context.Context) error {
	_, err := p.send(ctx, anthropicRequest{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	})
	return err
}

func (p *AnthropicParser) send(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s - %s", httpResp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// jsonObject cuts the outermost {...} out of s. Models sometimes wrap
// the object in a code fence or a sentence of prose.
func jsonObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
