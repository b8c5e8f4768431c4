package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/opacity/internal/logging"
	"google.golang.org/genai"
)

const (
	systemInstruction = "Response with the single best describing emojis in JSON."
	fewShotExample    = `For example: ["Computer Networking", "College English", "Practical English", "Mathematics", "Higher Mathematics"]: {"emojis": ["🛜", "🇬🇧", "🇬🇧", "🧮", "📈"]}`

	// DefaultMaxRetries bounds the re-prompts on a length mismatch.
	DefaultMaxRetries = 3
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// newGenAIClient is a seam for tests.
var newGenAIClient = func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cc)
}

// GeminiLabeler asks a Gemini model for one emoji per dimension name.
type GeminiLabeler struct {
	model      string
	generate   generateFunc
	logger     logging.Logger
	maxRetries int
}

func NewGeminiLabeler(ctx context.Context, apiKey, model string, logger logging.Logger) (*GeminiLabeler, error) {
	client, err := newGenAIClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return newGeminiLabeler(model, client.Models.GenerateContent, logger), nil
}

func newGeminiLabeler(model string, generate generateFunc, logger logging.Logger) *GeminiLabeler {
	return &GeminiLabeler{
		model:      model,
		generate:   generate,
		logger:     logger.With("module", "labeler", "backend", "gemini"),
		maxRetries: DefaultMaxRetries,
	}
}

func (g *GeminiLabeler) Name() string { return "gemini" }

type emojiResponse struct {
	Emojis []string `json:"emojis"`
}

func (g *GeminiLabeler) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.7),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"emojis": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"emojis"},
		},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}, {Text: fewShotExample}},
		},
	}
}

// Labels prompts the model and re-prompts with the mismatch when the answer
// does not carry one label per name. After maxRetries the last answer is
// accepted and only the positionally available labels are returned.
func (g *GeminiLabeler) Labels(ctx context.Context, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	q, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: fmt.Sprintf("Which emojis best describe %s? ", q)}}},
	}
	config := g.config()

	var answer emojiResponse
	for attempt := 0; ; attempt++ {
		resp, err := g.generate(ctx, g.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}

		text := responseText(resp)
		answer = emojiResponse{}
		if err := json.Unmarshal([]byte(text), &answer); err != nil {
			return nil, fmt.Errorf("decode model response: %w", err)
		}
		if len(answer.Emojis) == len(names) {
			break
		}
		if attempt >= g.maxRetries {
			g.logger.Warn(ctx, "accepting mismatched labels",
				"requested", len(names), "received", len(answer.Emojis), "attempts", attempt+1)
			break
		}

		g.logger.Debug(ctx, "label count mismatch, re-prompting",
			"requested", len(names), "received", len(answer.Emojis))
		contents = append(contents,
			&genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
			&genai.Content{Role: "user", Parts: []*genai.Part{{Text: fmt.Sprintf(
				"Your response is mismatching my request in length (%d != %d). Please try again.",
				len(answer.Emojis), len(names))}}},
		)
	}

	labels := make(map[string]string, len(names))
	for i, name := range names {
		if i >= len(answer.Emojis) {
			break
		}
		labels[name] = answer.Emojis[i]
	}
	return labels, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
