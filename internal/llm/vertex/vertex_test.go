package vertex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
)

func fakeClient(gen generateFunc) *Client {
	return &Client{cfg: Config{Model: "gemini-1.5-pro"}, generate: gen, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestComplete_MapsRequest(t *testing.T) {
	var model *genai.GenerativeModel
	var parts []genai.Part
	c := fakeClient(func(_ context.Context, m *genai.GenerativeModel, p ...genai.Part) (*genai.GenerateContentResponse, error) {
		model, parts = m, p
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"summary":`), genai.Text(`"ok"}`)}},
		}}}, nil
	})

	resp, err := c.Complete(context.Background(), llm.AnalysisRequest("έγγραφο"))
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, resp.Content)

	require.NotNil(t, model.SystemInstruction)
	assert.Equal(t, genai.Text(llm.AnalysisSystemPrompt), model.SystemInstruction.Parts[0])
	assert.Equal(t, []genai.Part{genai.Text("έγγραφο")}, parts)
	assert.Equal(t, "application/json", model.GenerationConfig.ResponseMIMEType)
	assert.Equal(t, int32(3000), *model.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.3, *model.GenerationConfig.Temperature, 1e-6)
}

func TestComplete_Errors(t *testing.T) {
	c := fakeClient(func(context.Context, *genai.GenerativeModel, ...genai.Part) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("quota exhausted")
	})
	_, err := c.Complete(context.Background(), llm.QARequest("a", "b"))
	require.ErrorContains(t, err, "quota exhausted")

	c.generate = func(context.Context, *genai.GenerativeModel, ...genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}
	_, err = c.Complete(context.Background(), llm.QARequest("a", "b"))
	require.ErrorIs(t, err, ErrEmptyReply)
}

func TestNewClient_RequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Location: "europe-west1"}, nil)
	require.Error(t, err)
}
