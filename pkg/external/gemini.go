package external

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini API client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // optional override, used by tests and proxies
	// HTTPClient is optional; the SDK default is used when nil.
	HTTPClient *http.Client
}

// GeminiGenerator implements TextGenerator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

// Generate sends req and returns the concatenated text of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toGenaiSchema(req.ResponseSchema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

func toGenaiSchema(schema *ResponseSchema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(schema.Properties)),
	}
	for _, prop := range schema.Properties {
		out.Properties[prop.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: prop.Description,
		}
		out.Required = append(out.Required, prop.Name)
		out.PropertyOrdering = append(out.PropertyOrdering, prop.Name)
	}
	return out
}
