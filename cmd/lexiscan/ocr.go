package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lexiscan/internal/async"
	"github.com/joseph-ayodele/lexiscan/internal/bootstrap"
	"github.com/joseph-ayodele/lexiscan/internal/ingest"
)

var (
	ocrWorkers int
	ocrOutDir  string
	ocrDedupe  bool
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file|dir>...",
	Short: "Extract the text of PDF and image files",
	Long: `Runs every file through the OCR pipeline on a pool of workers. Directories are
walked recursively, skipping hidden entries. Text is written to <out>/<name>.txt
when --out is set, otherwise printed to stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().IntVarP(&ocrWorkers, "workers", "w", 2, "concurrent documents")
	ocrCmd.Flags().StringVarP(&ocrOutDir, "out", "o", "", "directory for .txt output")
	ocrCmd.Flags().BoolVar(&ocrDedupe, "dedupe", true, "process identical files once")
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	found, stats, err := ingest.Discover(args, ingest.Options{SkipHidden: true, Dedupe: ocrDedupe})
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	logger.Info("ocr.discovered", "scanned", stats.Scanned, "matched", stats.Matched,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	if len(found) == 0 {
		return errors.New("no PDF or image files found")
	}
	paths := make([]string, 0, len(found))
	for _, f := range found {
		paths = append(paths, f.Path)
	}

	p, cleanup, err := bootstrap.Pipeline(ctx, cfg.OCR, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if ocrOutDir != "" {
		if err := os.MkdirAll(ocrOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("OCR"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
		progressbar.OptionSetRenderBlankState(true),
	)

	var mu sync.Mutex
	results := make(map[string]async.Result, len(paths))
	q := async.NewProcessorQueue(async.PipelineHandler(p), logger,
		async.WithWorkers(ocrWorkers),
		async.WithProcessTimeout(cfg.Server.RequestTimeout),
		async.WithResults(func(r async.Result) {
			mu.Lock()
			results[r.Job.Path] = r
			mu.Unlock()
			_ = bar.Add(1)
		}),
	)

	for _, path := range paths {
		if err := q.Enqueue(ctx, async.NewJob(path)); err != nil {
			q.Shutdown(context.WithoutCancel(ctx))
			return err
		}
	}
	q.Shutdown(context.WithoutCancel(ctx))
	_ = bar.Finish()

	failed := 0
	out := cmd.OutOrStdout()
	for _, path := range paths {
		r := results[path]
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, r.Err)
			continue
		}
		if ocrOutDir == "" {
			fmt.Fprintf(out, "==> %s (%d pages, %d skipped) <==\n%s\n\n", path, r.Pages, r.Skipped, r.Text)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".txt"
		if err := os.WriteFile(filepath.Join(ocrOutDir, name), []byte(r.Text), 0o644); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: write output: %v\n", path, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
