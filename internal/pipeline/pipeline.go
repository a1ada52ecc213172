// Package pipeline turns an uploaded document into text: rasterize, preprocess,
// read each page with both OCR engines and keep the arbiter's choice.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/ocr"
)

// ErrUnsupportedType is returned for MIME types other than PDF, JPEG and PNG.
var ErrUnsupportedType = errors.New("unsupported file type")

// SourceFile is one upload, held in memory for the duration of a request.
type SourceFile struct {
	Name string
	MIME string
	Size int64
	Data []byte
}

// PageResult records how one page was resolved.
type PageResult struct {
	Index    int
	Source   string // winning engine, "" when neither produced lines
	Lines    []string
	Text     string
	Primary  ocr.CandidateStatus
	Fallback ocr.CandidateStatus
	Skipped  bool
	Err      error
}

// Document is the pipeline output.
type Document struct {
	Text  string
	Kind  string // constants.PDF | constants.IMAGE
	Pages []PageResult
}

// Skipped counts pages that contributed no text because they failed.
func (d Document) Skipped() int {
	n := 0
	for _, p := range d.Pages {
		if p.Skipped {
			n++
		}
	}
	return n
}

// PageExtractor reads one page with both engines.
type PageExtractor interface {
	ExtractPage(ctx context.Context, img []byte) (primary, fallback ocr.Candidate)
}

// ImagePreprocessor cleans a page image before OCR.
type ImagePreprocessor interface {
	Process(data []byte, meta ocr.ImageMeta) ([]byte, error)
}

type Pipeline struct {
	rasterizer ocr.Rasterizer
	pre        ImagePreprocessor
	extractor  PageExtractor
	arbiter    ocr.Arbiter
	tempRoot   string
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTempRoot sets the parent directory for per-document work dirs (default os.TempDir()).
func WithTempRoot(dir string) Option { return func(p *Pipeline) { p.tempRoot = dir } }

// WithArbiter replaces the default strict-priority arbiter.
func WithArbiter(a ocr.Arbiter) Option { return func(p *Pipeline) { p.arbiter = a } }

func New(r ocr.Rasterizer, pre ImagePreprocessor, ex PageExtractor, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{rasterizer: r, pre: pre, extractor: ex, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process extracts the text of src. Pages are resolved one at a time in source
// order; all temporary files live in a work dir removed before Process returns.
func (p *Pipeline) Process(ctx context.Context, src SourceFile) (Document, error) {
	kind := constants.KindForMIME(src.MIME)
	if kind != constants.PDF && kind != constants.IMAGE {
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedType, src.MIME)
	}

	docID := uuid.NewString()
	logger := p.logger.With("doc_id", docID, "name", src.Name, "kind", kind)
	start := time.Now()

	workDir, err := os.MkdirTemp(p.tempRoot, "lexiscan-"+docID[:8]+"-")
	if err != nil {
		return Document{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("pipeline.cleanup.failed", "dir", workDir, "error", err)
		}
	}()

	var doc Document
	switch kind {
	case constants.PDF:
		doc, err = p.processPDF(ctx, src, workDir, logger)
	default:
		doc, err = p.processImage(ctx, src, logger)
	}
	if err != nil {
		logger.Error("pipeline.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Document{}, err
	}
	logger.Info("pipeline.ok",
		"pages", len(doc.Pages),
		"skipped", doc.Skipped(),
		"chars", len([]rune(doc.Text)),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (p *Pipeline) processPDF(ctx context.Context, src SourceFile, workDir string, logger *slog.Logger) (Document, error) {
	if n, err := ocr.PageCount(src.Data); err != nil {
		logger.Warn("pipeline.page_count.failed", "error", err)
	} else if n == 0 {
		return Document{}, fmt.Errorf("%w: document has no pages", ocr.ErrConversion)
	} else {
		logger.Info("pipeline.pdf.start", "pages", n)
	}

	images, err := p.rasterizer.Rasterize(ctx, src.Data, workDir)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Document{}, err
		}
		if !errors.Is(err, ocr.ErrConversion) {
			err = fmt.Errorf("%w: %v", ocr.ErrConversion, err)
		}
		return Document{}, err
	}

	doc := Document{Kind: constants.PDF, Pages: make([]PageResult, 0, len(images))}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		doc.Pages = append(doc.Pages, p.resolveFile(ctx, img, logger))
	}
	slices.SortStableFunc(doc.Pages, func(a, b PageResult) int { return a.Index - b.Index })
	doc.Text = joinPages(doc.Pages)
	return doc, nil
}

// resolveFile reads one rendered page back, resolves its text and removes the file.
func (p *Pipeline) resolveFile(ctx context.Context, img ocr.PageImage, logger *slog.Logger) PageResult {
	defer func() {
		if img.Path == "" {
			return
		}
		if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn("pipeline.page.cleanup_failed", "page", img.Index+1, "error", err)
		}
	}()

	if img.Err != nil {
		logger.Warn("pipeline.page.skipped", "page", img.Index+1, "reason", "render", "error", img.Err)
		return PageResult{Index: img.Index, Skipped: true, Err: img.Err}
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		logger.Warn("pipeline.page.skipped", "page", img.Index+1, "reason", "read", "error", err)
		return PageResult{Index: img.Index, Skipped: true, Err: err}
	}
	res, err := p.resolve(ctx, img.Index, data, ocr.ImageMeta{Density: constants.TargetDPI}, logger)
	if err != nil {
		logger.Warn("pipeline.page.skipped", "page", img.Index+1, "reason", "preprocess", "error", err)
	}
	return res
}

func (p *Pipeline) processImage(ctx context.Context, src SourceFile, logger *slog.Logger) (Document, error) {
	res, err := p.resolve(ctx, 0, src.Data, ocr.ImageMeta{}, logger)
	if err != nil {
		if !errors.Is(err, ocr.ErrImageProcessing) {
			err = fmt.Errorf("%w: %v", ocr.ErrImageProcessing, err)
		}
		return Document{}, err
	}
	return Document{Kind: constants.IMAGE, Text: res.Text, Pages: []PageResult{res}}, nil
}

// resolve preprocesses one page, runs both engines and applies the arbiter.
// A preprocessing error marks the page skipped and is also returned.
func (p *Pipeline) resolve(ctx context.Context, index int, data []byte, meta ocr.ImageMeta, logger *slog.Logger) (PageResult, error) {
	cleaned, err := p.pre.Process(data, meta)
	if err != nil {
		return PageResult{Index: index, Skipped: true, Err: err}, err
	}
	primary, fallback := p.extractor.ExtractPage(ctx, cleaned)
	d := p.arbiter.Choose(primary, fallback)

	logger.Debug("pipeline.page.ok",
		"page", index+1,
		"source", d.Source,
		"lines", len(d.Lines),
		"primary", primary.Status,
		"fallback", fallback.Status,
	)
	return PageResult{
		Index:    index,
		Source:   d.Source,
		Lines:    d.Lines,
		Text:     d.Text,
		Primary:  primary.Status,
		Fallback: fallback.Status,
	}, nil
}

// joinPages concatenates resolved pages. Skipped pages add nothing.
func joinPages(pages []PageResult) string {
	var b strings.Builder
	first := true
	for _, pg := range pages {
		if pg.Skipped {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(pg.Text)
		first = false
	}
	return b.String()
}
