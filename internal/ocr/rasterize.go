package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/lexiscan/constants"
)

// ErrConversion means the PDF could not be rasterized at all.
var ErrConversion = errors.New("pdf conversion failed")

// PageImage is one rendered page on disk. Err is set when that page alone failed
// to render; the caller skips it.
type PageImage struct {
	Index int // zero-based, source page order
	Path  string
	Err   error
}

// Rasterizer renders every page of a PDF into workDir.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, workDir string) ([]PageImage, error)
}

// PageCount reads the page count with pdfcpu in relaxed validation mode.
func PageCount(pdf []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// FitzRasterizer renders pages with MuPDF (go-fitz).
type FitzRasterizer struct {
	DPI      int
	MaxPages int // 0 = all pages
	logger   *slog.Logger
}

func NewFitzRasterizer(dpi, maxPages int, logger *slog.Logger) *FitzRasterizer {
	if dpi <= 0 {
		dpi = constants.TargetDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FitzRasterizer{DPI: dpi, MaxPages: maxPages, logger: logger}
}

func (r *FitzRasterizer) Rasterize(ctx context.Context, pdf []byte, workDir string) ([]PageImage, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrConversion, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			r.logger.Warn("ocr.rasterize.close_error", "error", err)
		}
	}()

	n := doc.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrConversion)
	}
	if r.MaxPages > 0 && n > r.MaxPages {
		r.logger.Warn("ocr.rasterize.page_cap", "pages", n, "max_pages", r.MaxPages)
		n = r.MaxPages
	}

	pages := make([]PageImage, 0, n)
	failed := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := PageImage{Index: i, Path: filepath.Join(workDir, fmt.Sprintf("page-%04d.png", i+1))}
		if err := r.renderPage(doc, i, p.Path); err != nil {
			r.logger.Warn("ocr.rasterize.page_failed", "page", i+1, "error", err)
			p.Err = err
			failed++
		}
		pages = append(pages, p)
	}
	if failed == n {
		return nil, fmt.Errorf("%w: no page could be rendered", ErrConversion)
	}
	return pages, nil
}

func (r *FitzRasterizer) renderPage(doc *fitz.Document, i int, path string) error {
	img, err := doc.ImageDPI(i, float64(r.DPI))
	if err != nil {
		return fmt.Errorf("render page %d: %w", i+1, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode page %d: %w", i+1, err)
	}
	return f.Close()
}

// PopplerRasterizer shells out to pdftoppm.
type PopplerRasterizer struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int
	MaxPages int
	runner   Runner
	logger   *slog.Logger
}

func NewPopplerRasterizer(bin string, dpi, maxPages int, runner Runner, logger *slog.Logger) *PopplerRasterizer {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = constants.TargetDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PopplerRasterizer{Pdftoppm: bin, DPI: dpi, MaxPages: maxPages, runner: runner, logger: logger}
}

func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdf []byte, workDir string) ([]PageImage, error) {
	src := filepath.Join(workDir, "source.pdf")
	if err := os.WriteFile(src, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("%w: stage pdf: %v", ErrConversion, err)
	}
	defer func() { _ = os.Remove(src) }()

	prefix := filepath.Join(workDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <work/page>
	args := []string{"-r", strconv.Itoa(r.DPI), "-png"}
	if r.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(r.MaxPages))
	}
	args = append(args, src, prefix)
	if _, errb, err := r.runner.Run(ctx, r.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %v: %s", ErrConversion, err, clip(string(errb), 512))
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order.
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no images", ErrConversion)
	}
	pages := make([]PageImage, len(matches))
	for i, m := range matches {
		pages[i] = PageImage{Index: i, Path: m}
	}
	return pages, nil
}
