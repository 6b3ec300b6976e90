// Package gemini provides an ImageStreamer implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// Responses are consumed with GenerateContentStream. Each chunk contributes at
// most one piece of content: the image when the first part of the first
// candidate carries inline data, or failing that the candidate's text.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/mhpenta/imagestudio"
)

// streamer is the slice of *genai.Models used by the Generator.
type streamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Config holds the settings for a Gemini Generator.
type Config struct {
	// APIKey for the Gemini API. If empty, the SDK reads GOOGLE_API_KEY or GEMINI_API_KEY.
	APIKey string

	// Model used for every request that does not name one
	Model imagestudio.Model

	// SafetyThreshold is applied to every harm category, e.g. "BLOCK_ONLY_HIGH".
	// Empty keeps the API defaults.
	SafetyThreshold string
}

// Generator implements imagestudio.ImageStreamer using Google's Gemini API.
type Generator struct {
	models         streamer
	model          imagestudio.Model
	safetySettings []*genai.SafetySetting
}

var _ imagestudio.ImageStreamer = (*Generator)(nil)

// New creates a Generator from a Config.
func New(ctx context.Context, cfg *Config) (*Generator, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}

	safety, err := safetySettings(cfg.SafetyThreshold)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := newGenerator(client.Models, cfg.Model)
	g.safetySettings = safety
	return g, nil
}

// NewWithAPIKey creates a Generator for the default image model.
func NewWithAPIKey(ctx context.Context, apiKey string) (*Generator, error) {
	return New(ctx, &Config{APIKey: apiKey})
}

func newGenerator(models streamer, model imagestudio.Model) *Generator {
	if model == "" {
		model = imagestudio.ModelDefault
	}
	return &Generator{models: models, model: model}
}

// Model returns the default model name.
func (g *Generator) Model() imagestudio.Model {
	return g.model
}

// Stream sends parts as a single user turn and drains the streamed response.
//
// The stream is consumed to completion. An error at any point, including
// context cancellation between chunks, discards everything accumulated so far.
func (g *Generator) Stream(ctx context.Context, parts []imagestudio.ContentPart, config *imagestudio.GenerateConfig) (*imagestudio.StreamResult, error) {
	if config == nil {
		config = imagestudio.DefaultConfig()
	}

	modelName := g.resolveModel(config)

	contents := []*genai.Content{
		genai.NewContentFromParts(convertParts(parts), genai.RoleUser),
	}

	var acc imagestudio.StreamAccumulator
	genConfig := buildGenerateContentConfig(config)
	genConfig.SafetySettings = g.safetySettings

	for resp, err := range g.models.GenerateContentStream(ctx, modelName, contents, genConfig) {
		if err != nil {
			return nil, checkAPIError(err, modelName)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, checkAPIError(ctxErr, modelName)
		}
		if chunk, ok := chunkFromResponse(resp); ok {
			acc.Add(chunk)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, checkAPIError(ctxErr, modelName)
	}

	return acc.Result(), nil
}

// Close releases any resources held by the generator.
func (g *Generator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

func (g *Generator) resolveModel(config *imagestudio.GenerateConfig) string {
	if config != nil && config.Model != "" {
		return config.Model.String()
	}
	return g.model.String()
}

// buildGenerateContentConfig requests both modalities and the aspect ratio.
func buildGenerateContentConfig(config *imagestudio.GenerateConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	aspect := config.AspectRatio
	if aspect == "" {
		aspect = imagestudio.AspectRatioDefault
	}
	genConfig.ImageConfig = &genai.ImageConfig{
		AspectRatio: aspect.String(),
	}

	return genConfig
}

var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// safetySettings expands one threshold over all harm categories.
func safetySettings(threshold string) ([]*genai.SafetySetting, error) {
	t := genai.HarmBlockThreshold(strings.ToUpper(strings.TrimSpace(threshold)))
	switch t {
	case "":
		return nil, nil
	case genai.HarmBlockThresholdBlockLowAndAbove,
		genai.HarmBlockThresholdBlockMediumAndAbove,
		genai.HarmBlockThresholdBlockOnlyHigh,
		genai.HarmBlockThresholdBlockNone,
		genai.HarmBlockThresholdOff:
	default:
		return nil, fmt.Errorf("unknown safety threshold %q", threshold)
	}

	out := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, c := range harmCategories {
		out = append(out, &genai.SafetySetting{Category: c, Threshold: t})
	}
	return out, nil
}

func convertParts(parts []imagestudio.ContentPart) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case imagestudio.ImagePart:
			out = append(out, &genai.Part{
				InlineData: &genai.Blob{
					Data:     v.Data,
					MIMEType: v.MIMEType,
				},
			})
		case imagestudio.TextPart:
			out = append(out, &genai.Part{Text: v.Text})
		}
	}
	return out
}

// chunkFromResponse extracts the useful content of one streamed chunk.
// Only the first part is checked for an image; inline data elsewhere is ignored.
// Chunks without a candidate, content or parts yield nothing.
func chunkFromResponse(resp *genai.GenerateContentResponse) (imagestudio.StreamChunk, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return imagestudio.StreamChunk{}, false
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return imagestudio.StreamChunk{}, false
	}

	if first := candidate.Content.Parts[0]; first != nil && first.InlineData != nil && len(first.InlineData.Data) > 0 {
		return imagestudio.StreamChunk{
			Image: &imagestudio.ImagePart{
				Data:     first.InlineData.Data,
				MIMEType: first.InlineData.MIMEType,
			},
		}, true
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return imagestudio.StreamChunk{}, false
	}
	return imagestudio.StreamChunk{Text: text.String()}, true
}

// checkAPIError classifies a structured API error by code and status, then
// falls back to the text rules of imagestudio.ClassifyRemoteError.
func checkAPIError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
			return &imagestudio.RateLimitError{Model: model, Err: err}
		case apiErr.Code == 500 || apiErr.Status == "INTERNAL":
			return &imagestudio.UpstreamError{Model: model, Err: err}
		}
	}

	return imagestudio.ClassifyRemoteError(err, model)
}
