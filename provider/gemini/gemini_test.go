package gemini

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/mhpenta/imagestudio"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	err       error
	errAfter  int

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContentStream(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.gotModel = model
	f.gotContents = contents
	f.gotConfig = config

	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for i, resp := range f.responses {
			if f.err != nil && i == f.errAfter {
				yield(nil, f.err)
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
		if f.err != nil && f.errAfter >= len(f.responses) {
			yield(nil, f.err)
		}
	}
}

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func imageChunk(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{
				InlineData: &genai.Blob{Data: data, MIMEType: mime},
			}}},
		}},
	}
}

func TestStream_AccumulatesTextAndLastImage(t *testing.T) {
	fake := &fakeModels{
		responses: []*genai.GenerateContentResponse{
			textChunk("Here "),
			imageChunk([]byte{1}, "image/png"),
			{},
			{Candidates: []*genai.Candidate{{}}},
			textChunk("you go"),
			imageChunk([]byte{2}, "image/jpeg"),
		},
	}
	g := newGenerator(fake, "")

	out, err := g.Stream(context.Background(), []imagestudio.ContentPart{
		imagestudio.TextPart{Text: "a cat"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Here you go", out.Text)
	require.NotNil(t, out.Image)
	assert.Equal(t, []byte{2}, out.Image.Data)
	assert.Equal(t, "image/jpeg", out.Image.MIMEType)
}

func TestStream_BuildsRequest(t *testing.T) {
	fake := &fakeModels{}
	g := newGenerator(fake, "")

	parts := []imagestudio.ContentPart{
		imagestudio.ImagePart{Data: []byte{0xFF, 0xD8, 0xFF}, MIMEType: "image/jpeg"},
		imagestudio.TextPart{Text: "make it blue"},
	}
	_, err := g.Stream(context.Background(), parts, &imagestudio.GenerateConfig{AspectRatio: imagestudio.AspectRatio16x9})
	require.NoError(t, err)

	assert.Equal(t, imagestudio.ModelDefault.String(), fake.gotModel)
	require.Len(t, fake.gotContents, 1)
	assert.Equal(t, string(genai.RoleUser), fake.gotContents[0].Role)

	sent := fake.gotContents[0].Parts
	require.Len(t, sent, 2)
	require.NotNil(t, sent[0].InlineData)
	assert.Equal(t, "image/jpeg", sent[0].InlineData.MIMEType)
	assert.Equal(t, "make it blue", sent[1].Text)

	require.NotNil(t, fake.gotConfig)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, fake.gotConfig.ResponseModalities)
	require.NotNil(t, fake.gotConfig.ImageConfig)
	assert.Equal(t, "16:9", fake.gotConfig.ImageConfig.AspectRatio)
}

func TestStream_ConfigModelOverridesDefault(t *testing.T) {
	fake := &fakeModels{}
	g := newGenerator(fake, "custom-model")
	assert.Equal(t, imagestudio.Model("custom-model"), g.Model())

	_, err := g.Stream(context.Background(), []imagestudio.ContentPart{imagestudio.TextPart{Text: "x"}},
		&imagestudio.GenerateConfig{Model: "other-model"})
	require.NoError(t, err)
	assert.Equal(t, "other-model", fake.gotModel)
}

func TestStream_ErrorDiscardsPartialOutput(t *testing.T) {
	fake := &fakeModels{
		responses: []*genai.GenerateContentResponse{
			imageChunk([]byte{1}, "image/png"),
			textChunk("more"),
		},
		err:      errors.New("connection reset"),
		errAfter: 1,
	}
	g := newGenerator(fake, "")

	out, err := g.Stream(context.Background(), []imagestudio.ContentPart{imagestudio.TextPart{Text: "x"}}, nil)
	assert.Nil(t, out)

	var remErr *imagestudio.RemoteError
	require.ErrorAs(t, err, &remErr)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeModels{responses: []*genai.GenerateContentResponse{textChunk("hi")}}
	g := newGenerator(fake, "")

	out, err := g.Stream(ctx, []imagestudio.ContentPart{imagestudio.TextPart{Text: "x"}}, nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantRL  bool
		wantUp  bool
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "429 code", err: genai.APIError{Code: 429, Message: "slow down"}, wantRL: true},
		{name: "resource exhausted", err: genai.APIError{Status: "RESOURCE_EXHAUSTED"}, wantRL: true},
		{name: "500 code", err: genai.APIError{Code: 500, Message: "boom"}, wantUp: true},
		{name: "503 unavailable", err: genai.APIError{Code: 503, Status: "UNAVAILABLE"}},
		{name: "internal status", err: genai.APIError{Status: "INTERNAL"}, wantUp: true},
		{name: "quota text", err: errors.New("Quota exceeded for project"), wantRL: true},
		{name: "plain failure", err: errors.New("bad request: invalid argument")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkAPIError(tt.err, "m")
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.wantRL, imagestudio.IsRateLimitError(got), "rate limit: %v", got)
			assert.Equal(t, tt.wantUp, imagestudio.IsUpstreamError(got), "upstream: %v", got)
			assert.Contains(t, got.Error(), tt.err.Error())
		})
	}
}

func TestChunkFromResponse_SkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "answer"},
			}},
		}},
	}

	chunk, ok := chunkFromResponse(resp)
	require.True(t, ok)
	assert.Equal(t, "answer", chunk.Text)
	assert.Nil(t, chunk.Image)
}

func TestChunkFromResponse_FirstPartImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: []byte{7}, MIMEType: "image/png"}},
				{Text: "caption"},
			}},
		}},
	}

	chunk, ok := chunkFromResponse(resp)
	require.True(t, ok)
	require.NotNil(t, chunk.Image)
	assert.Equal(t, []byte{7}, chunk.Image.Data)
	assert.Empty(t, chunk.Text)
}

func TestChunkFromResponse_LaterImageIgnored(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "caption "},
				{InlineData: &genai.Blob{Data: []byte{9}, MIMEType: "image/png"}},
			}},
		}},
	}

	chunk, ok := chunkFromResponse(resp)
	require.True(t, ok)
	assert.Nil(t, chunk.Image)
	assert.Equal(t, "caption ", chunk.Text)
}

func TestStream_TextBeforeImageInSameChunk(t *testing.T) {
	fake := &fakeModels{
		responses: []*genai.GenerateContentResponse{{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "caption "},
					{InlineData: &genai.Blob{Data: []byte{9}, MIMEType: "image/png"}},
				}},
			}},
		}},
	}
	g := newGenerator(fake, "")

	out, err := g.Stream(context.Background(), []imagestudio.ContentPart{imagestudio.TextPart{Text: "x"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "caption ", out.Text)
	assert.Nil(t, out.Image)
}

func TestChunkFromResponse_EmptyInlineDataFallsBackToText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "image/png"}},
				{Text: "no picture"},
			}},
		}},
	}

	chunk, ok := chunkFromResponse(resp)
	require.True(t, ok)
	assert.Nil(t, chunk.Image)
	assert.Equal(t, "no picture", chunk.Text)
}

func TestSafetySettings(t *testing.T) {
	settings, err := safetySettings("")
	require.NoError(t, err)
	assert.Nil(t, settings)

	settings, err = safetySettings(" block_only_high ")
	require.NoError(t, err)
	require.Len(t, settings, len(harmCategories))
	for i, s := range settings {
		assert.Equal(t, harmCategories[i], s.Category)
		assert.Equal(t, genai.HarmBlockThresholdBlockOnlyHigh, s.Threshold)
	}

	_, err = safetySettings("BLOCK_EVERYTHING")
	assert.Error(t, err)
}

func TestStream_SendsSafetySettings(t *testing.T) {
	fake := &fakeModels{}
	g := newGenerator(fake, "")
	settings, err := safetySettings("BLOCK_NONE")
	require.NoError(t, err)
	g.safetySettings = settings

	_, err = g.Stream(context.Background(), []imagestudio.ContentPart{imagestudio.TextPart{Text: "x"}}, nil)
	require.NoError(t, err)
	require.NotNil(t, fake.gotConfig)
	assert.Equal(t, settings, fake.gotConfig.SafetySettings)
}
