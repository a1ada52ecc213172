// Package ingest finds documents on the local filesystem: one-shot discovery
// for batch runs and a recursive watcher for inbox directories.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/lexiscan/constants"
)

// FileResult is one discovered document.
type FileResult struct {
	Path    string
	HashHex string
	Size    int64
}

// Stats summarizes a discovery run.
type Stats struct {
	Scanned      uint32
	Matched      uint32
	Deduplicated uint32
	Failed       uint32
}

// Options tunes Discover.
type Options struct {
	SkipHidden bool
	// Dedupe drops files whose content was already seen under another path.
	Dedupe bool
}

// AllowedExt reports whether a file extension names a PDF or image.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory name starts with '.'.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Discover expands roots into supported document files. Plain files are taken
// as given; directories are walked recursively. Unreadable entries are counted
// in Stats.Failed and reported in the joined error, but never stop the walk.
func Discover(roots []string, opts Options) ([]FileResult, Stats, error) {
	var (
		out   []FileResult
		stats Stats
		errs  []error
	)
	seen := map[string]string{}

	add := func(path string) {
		stats.Matched++
		fr, err := describe(path)
		if err != nil {
			stats.Failed++
			errs = append(errs, err)
			return
		}
		if opts.Dedupe {
			if first, dup := seen[fr.HashHex]; dup && first != path {
				stats.Deduplicated++
				return
			}
			seen[fr.HashHex] = path
		}
		out = append(out, fr)
	}

	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			stats.Scanned++
			stats.Failed++
			errs = append(errs, err)
			continue
		}
		if !info.IsDir() {
			stats.Scanned++
			if !AllowedExt(filepath.Ext(root)) {
				stats.Failed++
				errs = append(errs, fmt.Errorf("%s: unsupported extension", root))
				continue
			}
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			stats.Scanned++
			if walkErr != nil {
				stats.Failed++
				errs = append(errs, walkErr)
				return nil
			}
			if opts.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", root, err))
		}
	}
	return out, stats, errors.Join(errs...)
}

func describe(path string) (FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileResult{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return FileResult{Path: path, HashHex: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}
