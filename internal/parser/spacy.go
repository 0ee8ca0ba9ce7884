package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/util"
)

// ErrModelMissing is returned by Probe when the service does not have the model installed
var ErrModelMissing = errors.New("model not installed")

const maxSpacyResponseBytes = 4 << 20

// SpacyParser talks to a spaCy-compatible HTTP parsing service
type SpacyParser struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type spacyParseRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// spacyToken mirrors spaCy's token attributes
type spacyToken struct {
	Text       string `json:"text"`
	Whitespace string `json:"whitespace"`
	Pos        string `json:"pos"`
	Dep        string `json:"dep"`
	Tag        string `json:"tag,omitempty"`
	Lemma      string `json:"lemma,omitempty"`
	Idx        int    `json:"idx"`
	Head       int    `json:"head"`
}

type spacyParseResponse struct {
	Model  string       `json:"model"`
	Tokens []spacyToken `json:"tokens"`
}

type spacyError struct {
	Error string `json:"error"`
}

// NewSpacyParser creates a client for the service at cfg.BaseURL
func NewSpacyParser(cfg model.ParserConfig) (*SpacyParser, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("spacy parser requires base_url")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("spacy base_url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SpacyParser{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}, nil
}

func (p *SpacyParser) Name() string {
	return "spacy"
}

// Parse sends text to POST /parse
func (p *SpacyParser) Parse(ctx context.Context, text string) ([]model.Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	body, err := json.Marshal(spacyParseRequest{Text: text, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSpacyResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var parsed spacyParseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformedParse, err)
	}

	raw := make([]rawToken, 0, len(parsed.Tokens))
	for _, t := range parsed.Tokens {
		// spaCy emits SPACE tokens for runs of whitespace; fold them into the previous token
		if strings.TrimSpace(t.Text) == "" && len(raw) > 0 {
			raw[len(raw)-1].Whitespace += t.Text + t.Whitespace
			continue
		}
		raw = append(raw, rawToken{Text: t.Text, Whitespace: t.Whitespace, POS: t.Pos, Dep: t.Dep})
	}

	return normalize(raw)
}

// Probe checks GET /models/{model}
func (p *SpacyParser) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.modelURL(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", p.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelMissing, p.model)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, body)
	}
}

// Fetch asks the service to download and install the model (POST /models/{model})
func (p *SpacyParser) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.modelURL(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", p.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, body)
	}
	return nil
}

func (p *SpacyParser) modelURL() string {
	return p.baseURL + "/models/" + url.PathEscape(p.model)
}

func statusError(status int, body []byte) error {
	var e spacyError
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("unexpected status %d: %s", status, e.Error)
	}
	return fmt.Errorf("unexpected status %d: %s", status, strings.TrimSpace(string(body)))
}
