package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/util"
	"github.com/sashabaranov/go-openai"
)

const taggerSystemPrompt = `You are a dependency parser using Universal Dependencies part-of-speech tags and spaCy dependency labels.
Split the user's sentence into tokens exactly as they appear in the text, punctuation included.
Reply with a JSON object of the form {"tokens":[{"text":"...","pos":"...","dep":"..."}]}.
"pos" must be one of ADJ ADP ADV AUX CCONJ DET INTJ NOUN NUM PART PRON PROPN PUNCT SCONJ SYM VERB X.
"dep" is the spaCy dependency label; the head of the sentence has dep "ROOT".
Do not add commentary.`

// OpenAIParser asks an OpenAI-compatible chat model to tag the sentence.
// Any endpoint speaking the chat completions API works, including Ollama.
type OpenAIParser struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

type taggedSentence struct {
	Tokens []struct {
		Text string `json:"text"`
		Pos  string `json:"pos"`
		Dep  string `json:"dep"`
	} `json:"tokens"`
}

// NewOpenAIParser creates a tagger client
func NewOpenAIParser(cfg model.ParserConfig) (*OpenAIParser, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai parser requires api_key or base_url")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	return &OpenAIParser{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   modelName,
		timeout: timeout,
	}, nil
}

func (p *OpenAIParser) Name() string {
	return "openai"
}

// Parse requests a JSON token list and aligns it against the source text
func (p *OpenAIParser) Parse(ctx context.Context, text string) ([]model.Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: taggerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedParse)
	}

	var tagged taggedSentence
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
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

// Probe lists models to confirm the endpoint and key work
func (p *OpenAIParser) Probe(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	return err
}
