package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "existing.pdf"), "a")
	write(t, filepath.Join(dir, "ignored.txt"), "b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(dir, "existing.pdf"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit")
	}

	fresh := filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(fresh, []byte("png"), 0o600))

	select {
	case p := <-events:
		assert.Equal(t, fresh, p)
	case <-time.After(3 * time.Second):
		t.Fatal("new file was not reported")
	}

	cancel()
	for range events {
	}
}
