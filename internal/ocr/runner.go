package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// stderrLogCap bounds how much of a failing command's stderr reaches the log.
const stderrLogCap = 4 << 10

// Runner executes an external tool such as pdftoppm. Tests swap in a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs tools on the host with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"tool", name, "argv", strings.Join(args, " "), "elapsed_ms", time.Since(start).Milliseconds()}
	if err != nil {
		logger.Error("ocr.tool.failed", append(attrs, "error", err, "stderr", clip(stderr.String(), stderrLogCap))...)
	} else {
		logger.Debug("ocr.tool.done", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
