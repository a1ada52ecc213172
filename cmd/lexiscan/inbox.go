package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/lexiscan/internal/async"
	"github.com/joseph-ayodele/lexiscan/internal/ingest"
)

// watchInbox analyzes every document dropped under dir until ctx is done. The
// returned func blocks until in-flight analyses finish.
func watchInbox(ctx context.Context, dir string, a async.FileAnalyzer, workers int, timeout time.Duration, logger *slog.Logger) (func(), error) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	q := async.NewProcessorQueue(async.AnalysisHandler(a), logger,
		async.WithWorkers(workers),
		async.WithProcessTimeout(timeout),
		async.WithResults(func(r async.Result) {
			if r.Err == nil {
				logger.Info("inbox.analyzed", "path", r.Job.Path, "pages", r.Pages, "elapsed_ms", r.Elapsed.Milliseconds())
			}
		}),
	)
	logger.Info("inbox.watching", "dir", dir, "workers", workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer q.Shutdown(context.Background())
		for {
			select {
			case path, ok := <-events:
				if !ok {
					return
				}
				if err := q.Enqueue(ctx, async.NewJob(path)); err != nil {
					logger.Warn("inbox.enqueue.failed", "path", path, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("inbox.watch.error", "error", err)
			}
		}
	}()
	return func() { <-done }, nil
}
