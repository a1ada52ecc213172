// Package vertex adapts Gemini on Vertex AI to llm.ChatModel.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
)

// ErrEmptyReply is returned when Gemini produced no text candidate.
var ErrEmptyReply = errors.New("no response content from AI")

type Config struct {
	ProjectID       string
	Location        string
	Model           string // default gemini-1.5-pro
	CredentialsFile string
}

// generateFunc sends one request; swapped out in tests.
type generateFunc func(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type Client struct {
	cfg      Config
	base     *genai.Client
	generate generateFunc
	logger   *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex: project and location cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{cfg: cfg, base: base, generate: sendGenerate, logger: logger}, nil
}

func sendGenerate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return model.GenerateContent(ctx, parts...)
}

func (c *Client) Name() string { return "vertex:" + c.cfg.Model }

// Complete maps system messages to the system instruction and user messages to
// content parts.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	start := time.Now()
	model, parts := c.buildModel(req)

	resp, err := c.generate(ctx, model, parts...)
	if err != nil {
		c.logger.Error("llm.vertex.generate_error", "model", c.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.ChatResponse{}, fmt.Errorf("vertex: %w", err)
	}
	text, finish := extractText(resp)
	if text == "" {
		return llm.ChatResponse{}, ErrEmptyReply
	}
	c.logger.Info("llm.vertex.ok", "model", c.cfg.Model, "finish_reason", finish, "chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return llm.ChatResponse{Content: text, FinishReason: finish, Model: c.cfg.Model}, nil
}

func (c *Client) buildModel(req llm.ChatRequest) (*genai.GenerativeModel, []genai.Part) {
	var model *genai.GenerativeModel
	if c.base != nil {
		model = c.base.GenerativeModel(c.cfg.Model)
	} else {
		model = &genai.GenerativeModel{}
	}

	var system []genai.Part
	var parts []genai.Part
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, genai.Text(m.Content))
		default:
			parts = append(parts, genai.Text(m.Content))
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(req.MaxTokens))
	}
	if req.JSON {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}
	return model, parts
}

func extractText(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ""
	}
	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String()), cand.FinishReason.String()
}

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}
