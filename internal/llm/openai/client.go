package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
)

// ErrEmptyReply is returned when the completion carries no content.
var ErrEmptyReply = errors.New("no response content from AI")

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 90 * time.Second
	apiKeyEnv      = "OPENAI_API_KEY"
)

// Config for an OpenAI-compatible endpoint. Zero fields take the defaults;
// an empty APIKey is read from OPENAI_API_KEY.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(apiKeyEnv)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Client implements llm.ChatModel against /chat/completions.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:      cfg,
		endpoint: cfg.BaseURL + "/chat/completions",
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With("provider", "openai"),
	}
}

func (c *Client) Name() string { return "openai:" + c.cfg.Model }

// Complete implements llm.ChatModel over /chat/completions.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", req.Temperature,
		"max_tokens", req.MaxTokens,
		"json", req.JSON,
		"messages", len(req.Messages),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": req.Temperature,
		"messages":    req.Messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.SendJSON(ctx, c.http, c.endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Model   string `json:"model"`
		Choices []struct {
			FinishReason string `json:"finish_reason"`
			Message      struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.ChatResponse{}, fmt.Errorf("no choices in openai response")
	}
	choice := cc.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return llm.ChatResponse{}, ErrEmptyReply
	}

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"finish_reason", choice.FinishReason,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.ChatResponse{Content: content, FinishReason: choice.FinishReason, Model: cc.Model}, nil
}
