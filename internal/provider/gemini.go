package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiTextModel  = "gemini-2.0-flash"
	defaultGeminiImageModel = "gemini-2.0-flash-preview-image-generation"
	geminiTimeout           = 180 * time.Second
)

// geminiConfig bounds every Gemini call with geminiTimeout.
func geminiConfig(s Settings) *genai.ClientConfig {
	cfg := &genai.ClientConfig{
		APIKey:     s.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: geminiTimeout},
	}
	if s.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = strings.TrimRight(s.BaseURL, "/") + "/"
	}
	return cfg
}

// Gemini serves text and reference-conditioned images through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, s Settings) (*Gemini, error) {
	client, err := genai.NewClient(ctx, geminiConfig(s))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: s.Model}, nil
}

func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (Output, error) {
	model := g.model
	if model == "" {
		model = defaultGeminiTextModel
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, g.wrap(err)
	}

	var sb strings.Builder
	for _, part := range firstParts(resp) {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return nil, blockedOrEmpty(resp)
	}
	return Text{Content: strings.TrimSpace(sb.String())}, nil
}

func (g *Gemini) GenerateImage(ctx context.Context, req ImageRequest) (Output, error) {
	model := g.model
	if model == "" {
		model = defaultGeminiImageModel
	}

	prompt := withNegative(req.Prompt, req.NegativePrompt)
	if req.AspectRatio != "" {
		prompt += "\n\nAspect ratio: " + req.AspectRatio
	}

	parts := make([]*genai.Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: ref.Data, MIMEType: ref.MIMEType}})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	cfg := &genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	resp, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{{Role: "user", Parts: parts}}, cfg)
	if err != nil {
		return nil, g.wrap(err)
	}

	for _, part := range firstParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return InlineAsset{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}
	return nil, blockedOrEmpty(resp)
}

func (g *Gemini) SupportsReference() bool {
	return true
}

func (g *Gemini) wrap(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   KindGemini,
			StatusCode: apiErr.Code,
			Code:       apiErr.Status,
			Message:    apiErr.Message,
		}
	}
	return classify(KindGemini, err)
}

func firstParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func blockedOrEmpty(resp *genai.GenerateContentResponse) error {
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return &APIError{Provider: KindGemini, Code: "safety", Message: "response blocked by safety filters"}
	}
	return errors.New("gemini: response contained no usable content")
}
