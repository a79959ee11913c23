package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-pro"

// maxPromptChars bounds the assembled prompt to stay inside context limits.
const maxPromptChars = 30000

// GeminiProvider generates narratives through the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider backed by the Gemini API. An empty
// model selects the default.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Complete implements Provider. The response text is parsed for the
// structured reasoning sections the system prompt mandates.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	m := p.client.GenerativeModel(p.model)
	m.SetTemperature(0.2)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	prompt := req.Prompt
	if req.Context != "" {
		prompt = req.Context + "\n\n" + req.Prompt
	}
	if len(prompt) > maxPromptChars {
		prompt = truncatePrompt(prompt, maxPromptChars) + "\n\n[Content truncated due to length...]"
	}

	start := time.Now()
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, classify(ctx, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, &Error{Transient: true, Reason: "empty completion"}
	}

	parsed := ParseReasoning(text)
	completion := &Completion{
		Text:           text,
		RiskIndicators: parsed.Indicators,
		Typologies:     parsed.Typologies,
		Confidence:     parsed.Confidence,
		DataSources:    parsed.DataSources,
		Limitations:    parsed.Limitations,
		Provider:       p.Name(),
		Model:          p.model,
		LatencyMS:      latency,
	}
	if resp.UsageMetadata != nil {
		completion.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}

// truncatePrompt cuts s to at most limit bytes without splitting a rune.
func truncatePrompt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

// classify maps an SDK error onto the transient/fatal taxonomy. Rate
// limits and upstream 5xx responses are retryable; everything else is not.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &Error{Transient: false, Reason: "request canceled", Err: ctx.Err()}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return &Error{Transient: true, Reason: fmt.Sprintf("upstream status %d", apiErr.Code), Err: err}
		}
		return &Error{Transient: false, Reason: fmt.Sprintf("upstream status %d", apiErr.Code), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Transient: false, Reason: "request canceled", Err: err}
	}

	// Network-level failures surface without a status code.
	return &Error{Transient: true, Reason: "request failed", Err: err}
}
