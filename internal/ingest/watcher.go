package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // emit files already present
	SkipHidden  bool
	Debounce    time.Duration // coalesce write bursts per file
	Logger      *slog.Logger
}

// StartWatcher emits the path of every supported document created or written
// under the roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	// addDir watches root and every directory below it, returning the supported
	// files already present.
	addDir := func(root string) ([]string, error) {
		var found []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if AllowedExt(filepath.Ext(path)) {
				found = append(found, path)
			}
			return nil
		})
		return found, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		found, err := addDir(r)
		if err != nil {
			logger.Error("watch.root.failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			initial = append(initial, found...)
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	emit := func(path string) {
		select {
		case evCh <- path:
		case <-ctx.Done():
		}
	}

	go func() {
		var pending sync.WaitGroup
		defer close(errCh)
		defer close(evCh)
		defer pending.Wait()
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watch.close.failed", "error", err)
			}
		}()

		for _, p := range initial {
			emit(p)
		}

		timers := map[string]*time.Timer{}
		var mu sync.Mutex
		schedule := func(path string) {
			if cfg.Debounce <= 0 {
				emit(path)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if t, ok := timers[path]; ok && t.Stop() {
				pending.Done()
			}
			pending.Add(1)
			timers[path] = time.AfterFunc(cfg.Debounce, func() {
				defer pending.Done()
				mu.Lock()
				delete(timers, path)
				mu.Unlock()
				emit(path)
			})
		}

		for {
			select {
			case <-ctx.Done():
				mu.Lock()
				for p, t := range timers {
					if t.Stop() {
						pending.Done()
					}
					delete(timers, p)
				}
				mu.Unlock()
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						found, err := addDir(e.Name)
						if err != nil {
							logger.Warn("watch.dir.add_failed", "path", e.Name, "error", err)
						}
						for _, p := range found {
							schedule(p)
						}
						continue
					}
				}
				if AllowedExt(filepath.Ext(e.Name)) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					logger.Debug("watch.event", "path", e.Name, "op", e.Op.String())
					schedule(e.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
