package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/lexiscan/internal/analysis"
	"github.com/joseph-ayodele/lexiscan/internal/bootstrap"
	"github.com/joseph-ayodele/lexiscan/internal/common"
)

// Repeats the analysis of one text file to check how stable the model's
// answers are across runs.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <text-file> [times]")
		os.Exit(2)
	}
	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read text", "path", os.Args[1], "error", err)
		os.Exit(2)
	}
	times := 5
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	model, cleanup, err := bootstrap.ChatModel(context.Background(), cfg.LLM, cfg.OCR.VisionCredentialsFile, logger)
	if err != nil {
		logger.Error("build model", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	orch := analysis.NewOrchestrator(model, logger)

	fallbacks := 0
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("llm.run.start", "iter", i, "model", model.Name())

		res, outcome, err := orch.AnalyzeDetailed(runCtx, string(text))
		cancelRun()

		switch {
		case err != nil:
			logger.Error("llm.run.error", "iter", i, "err", err)
		case outcome.Fallback:
			fallbacks++
			logger.Warn("llm.run.fallback", "iter", i, "err", outcome.Err)
		default:
			logger.Info("llm.run.ok",
				"iter", i,
				"outcomes", len(res.Outcomes),
				"recommendations", len(res.Recommendations),
				"missing", outcome.Missing,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "times", times, "fallbacks", fallbacks)
}
