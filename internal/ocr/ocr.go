// Package ocr turns page images into text. Two engines (cloud vision and a local
// tesseract) read each page independently; an Arbiter decides whose lines win.
package ocr

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine identifiers.
const (
	EngineVision    = "vision"
	EngineTesseract = "tesseract"
)

// Engine recognizes text in one encoded page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img []byte) (string, error)
}

// CandidateStatus is the outcome of one engine on one page.
type CandidateStatus string

const (
	StatusOK     CandidateStatus = "ok"     // at least one accepted line
	StatusEmpty  CandidateStatus = "empty"  // engine ran (or is disabled) but nothing survived validation
	StatusFailed CandidateStatus = "failed" // engine errored; text treated as empty
)

// Candidate is one engine's reading of a page.
type Candidate struct {
	Engine     string
	Status     CandidateStatus
	RawText    string
	Lines      []string
	Confidence float32
	Err        error
	Duration   time.Duration
}

// Text joins the accepted lines.
func (c Candidate) Text() string { return strings.Join(c.Lines, "\n") }

// Extractor runs the primary (cloud) and fallback (local) engines over a page.
type Extractor struct {
	primary  Engine
	fallback Engine
	logger   *slog.Logger
}

// NewExtractor accepts nil engines; a missing engine always yields an empty candidate.
func NewExtractor(primary, fallback Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{primary: primary, fallback: fallback, logger: logger}
}

// ExtractPage runs both engines concurrently and waits for both. Engine errors are
// folded into the returned candidates and never abort the page.
func (e *Extractor) ExtractPage(ctx context.Context, img []byte) (primary, fallback Candidate) {
	var g errgroup.Group
	g.Go(func() error {
		primary = e.run(ctx, e.primary, EngineVision, img)
		return nil
	})
	g.Go(func() error {
		fallback = e.run(ctx, e.fallback, EngineTesseract, img)
		return nil
	})
	_ = g.Wait()
	return primary, fallback
}

func (e *Extractor) run(ctx context.Context, eng Engine, slot string, img []byte) Candidate {
	if eng == nil {
		return Candidate{Engine: slot, Status: StatusEmpty}
	}
	start := time.Now()
	raw, err := eng.Recognize(ctx, img)
	c := Candidate{Engine: eng.Name(), Duration: time.Since(start)}
	if err != nil {
		e.logger.Warn("ocr.engine.failed",
			"engine", c.Engine,
			"error", err,
			"elapsed_ms", c.Duration.Milliseconds(),
		)
		c.Status = StatusFailed
		c.Err = err
		return c
	}
	c.RawText = raw
	c.Lines = AcceptedLines(raw)
	c.Confidence = heuristicConfidence(c.Lines)
	if len(c.Lines) > 0 {
		c.Status = StatusOK
	} else {
		c.Status = StatusEmpty
	}
	e.logger.Debug("ocr.engine.ok",
		"engine", c.Engine,
		"raw_chars", len(raw),
		"accepted_lines", len(c.Lines),
		"confidence", c.Confidence,
		"elapsed_ms", c.Duration.Milliseconds(),
	)
	return c
}
