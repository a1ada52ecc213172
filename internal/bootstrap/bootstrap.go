// Package bootstrap builds the runtime components from a loaded Config. It is
// shared by the lexiscan binaries.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/llm/openai"
	"github.com/joseph-ayodele/lexiscan/internal/llm/vertex"
	"github.com/joseph-ayodele/lexiscan/internal/ocr"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
	"github.com/joseph-ayodele/lexiscan/internal/store"
)

// Cleanup releases what a builder opened. Never nil.
type Cleanup func()

func noop() {}

// NewLogger returns a text or JSON slog logger at the configured level.
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Pipeline builds the OCR pipeline: rasterizer, preprocessor and both engines.
// A disabled or unavailable Vision engine leaves Tesseract as the only reader.
func Pipeline(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (*pipeline.Pipeline, Cleanup, error) {
	var rast ocr.Rasterizer
	switch cfg.Rasterizer {
	case "pdftoppm":
		rast = ocr.NewPopplerRasterizer(cfg.Pdftoppm, constants.TargetDPI, cfg.MaxPages, ocr.ExecRunner{Logger: logger}, logger)
	case "fitz", "":
		rast = ocr.NewFitzRasterizer(constants.TargetDPI, cfg.MaxPages, logger)
	default:
		return nil, noop, fmt.Errorf("unknown rasterizer %q", cfg.Rasterizer)
	}

	cleanup := noop
	var primary, fallback ocr.Engine
	if cfg.VisionEnabled {
		v, err := ocr.NewVisionEngine(ctx, cfg.VisionCredentialsFile, logger)
		if err != nil {
			logger.Warn("vision engine unavailable, continuing with tesseract only", "error", err)
		} else {
			primary = v
			cleanup = func() {
				if err := v.Close(); err != nil {
					logger.Warn("vision close failed", "error", err)
				}
			}
		}
	}
	if cfg.TesseractEnabled {
		fallback = ocr.NewTesseractEngine(cfg.TessdataDir, logger)
	}
	if primary == nil && fallback == nil {
		cleanup()
		return nil, noop, fmt.Errorf("no OCR engine enabled")
	}

	p := pipeline.New(rast, ocr.NewPreprocessor(), ocr.NewExtractor(primary, fallback, logger), logger,
		pipeline.WithArbiter(ocr.Arbiter{MinPrimaryChars: cfg.ArbiterMinPrimaryChars}))
	logger.Info("ocr pipeline ready",
		"rasterizer", cfg.Rasterizer,
		"vision", primary != nil,
		"tesseract", fallback != nil,
		"max_pages", cfg.MaxPages,
	)
	return p, cleanup, nil
}

// ChatModel builds the configured language model client.
func ChatModel(ctx context.Context, cfg common.LLMConfig, credentialsFile string, logger *slog.Logger) (llm.ChatModel, Cleanup, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		c := openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
		logger.Info("llm client ready", "model", c.Name())
		return c, noop, nil
	case "vertex":
		c, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID:       cfg.VertexProject,
			Location:        cfg.VertexLocation,
			Model:           cfg.VertexModel,
			CredentialsFile: credentialsFile,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("llm client ready", "model", c.Name())
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("vertex close failed", "error", err)
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// Slot builds the latest-analysis slot.
func Slot(ctx context.Context, cfg common.SlotConfig, logger *slog.Logger) (store.Slot, Cleanup, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return store.NewMemorySlot(), noop, nil
	case "redis":
		s, err := store.NewRedisSlot(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Info("latest-analysis slot on redis", "addr", cfg.RedisAddr)
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("redis close failed", "error", err)
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown slot backend %q", cfg.Backend)
}
