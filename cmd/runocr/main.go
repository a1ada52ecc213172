package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/bootstrap"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file.pdf|file.jpg|file.png>")
		os.Exit(2)
	}
	path := os.Args[1]
	mime := constants.MIMEForPath(path)
	if mime == "" {
		logger.Error("unsupported file type", "path", path)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	p, cleanup, err := bootstrap.Pipeline(ctx, cfg.OCR, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	start := time.Now()
	doc, err := p.Process(ctx, pipeline.SourceFile{
		Name: filepath.Base(path),
		MIME: mime,
		Size: int64(len(data)),
		Data: data,
	})
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	for _, pg := range doc.Pages {
		logger.Info("page",
			"page", pg.Index+1,
			"source", pg.Source,
			"lines", len(pg.Lines),
			"skipped", pg.Skipped,
		)
	}
	logger.Info("text extraction OK",
		"pages", len(doc.Pages),
		"skipped", doc.Skipped(),
		"chars", len([]rune(doc.Text)),
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Println(doc.Text)
}
