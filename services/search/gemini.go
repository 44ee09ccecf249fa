package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ContentGenerator produces raw model output for a prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiClient is a ContentGenerator backed by the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient creates a client that asks Gemini for JSON output.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "models/gemini-1.5-pro"
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// GeminiSearcher answers both search operations by prompting a language model for a JSON
// provider list.
type GeminiSearcher struct {
	gen          ContentGenerator
	defaultCount int
}

func NewGeminiSearcher(gen ContentGenerator, defaultCount int) *GeminiSearcher {
	if defaultCount <= 0 {
		defaultCount = 5
	}
	return &GeminiSearcher{gen: gen, defaultCount: defaultCount}
}

const structuredPrompt = `You help people find local service providers.
List up to %d real %s providers serving %s.
%sRespond with JSON only: {"providers":[{"name":"","phone":"","address":"","details":"","location_note":"","confidence":0.0}]}`

const freeTextPrompt = `You help people find local service providers.
Decide whether the request below asks for a local service provider. If it does not, respond {"valid":false}.
Otherwise list up to %d matching providers.
Request: %q
Respond with JSON only: {"valid":true,"providers":[{"name":"","phone":"","address":"","details":"","location_note":"","confidence":0.0}]}`

func (s *GeminiSearcher) SearchStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	count := req.Count
	if count <= 0 {
		count = s.defaultCount
	}
	exclude := ""
	if len(req.Existing) > 0 {
		exclude = fmt.Sprintf("Do not include any of: %s.\n", strings.Join(req.Existing, "; "))
	}
	raw, err := s.gen.GenerateContent(ctx, fmt.Sprintf(structuredPrompt, count, req.Service, req.Location, exclude))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var resp StructuredResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode model output: %v", ErrBackendUnavailable, err)
	}
	return &resp, nil
}

func (s *GeminiSearcher) SearchFreeText(ctx context.Context, req FreeTextRequest) (*FreeTextResponse, error) {
	raw, err := s.gen.GenerateContent(ctx, fmt.Sprintf(freeTextPrompt, s.defaultCount, req.Query))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var resp FreeTextResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode model output: %v", ErrBackendUnavailable, err)
	}
	return &resp, nil
}

// stripCodeFence removes a ```json fence models sometimes wrap around output.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
