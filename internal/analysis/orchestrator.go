// Package analysis produces the structured legal analysis of document text and
// answers follow-up questions against it.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
)

// ErrEmptyText is returned when there is nothing to analyse.
var ErrEmptyText = errors.New("no text to analyse")

// Outcome of one Analyze call, for logging and the audit log.
type Outcome struct {
	Fallback bool
	Missing  []string
	Err      error // the failure that caused the fallback
}

type Orchestrator struct {
	model  llm.ChatModel
	logger *slog.Logger
}

func NewOrchestrator(model llm.ChatModel, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{model: model, logger: logger}
}

// Analyze asks the model for the five-field analysis of text. Transport, parse
// and schema failures are absorbed into FallbackResult; the only error is
// ErrEmptyText, returned before any model call.
func (o *Orchestrator) Analyze(ctx context.Context, text string) (llm.AnalysisResult, error) {
	res, _, err := o.AnalyzeDetailed(ctx, text)
	return res, err
}

// AnalyzeDetailed is Analyze plus a report of how the result was obtained.
func (o *Orchestrator) AnalyzeDetailed(ctx context.Context, text string) (llm.AnalysisResult, Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return llm.AnalysisResult{}, Outcome{}, ErrEmptyText
	}
	rid := uuid.New().String()
	start := time.Now()
	logger := o.logger.With("req_id", rid)
	logger.Info("analysis.start", "text_len", len([]rune(text)), "preview", preview(text, 100))

	res, rep, err := o.run(ctx, text)
	if err != nil {
		logger.Error("analysis.fallback", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return FallbackResult(err), Outcome{Fallback: true, Err: err}, nil
	}
	if len(rep.Missing) > 0 {
		logger.Warn("analysis.missing_fields", "fields", rep.Missing)
	}
	logger.Info("analysis.ok",
		"recommendations", len(res.Recommendations),
		"references", len(res.References),
		"outcomes", len(res.Outcomes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, Outcome{Missing: rep.Missing}, nil
}

func (o *Orchestrator) run(ctx context.Context, text string) (llm.AnalysisResult, llm.CoerceReport, error) {
	if o.model == nil {
		return llm.AnalysisResult{}, llm.CoerceReport{}, errors.New("no language model configured")
	}
	resp, err := o.model.Complete(ctx, llm.AnalysisRequest(text))
	if err != nil {
		return llm.AnalysisResult{}, llm.CoerceReport{}, err
	}
	res, rep, err := llm.DecodeAnalysis([]byte(resp.Content), o.logger)
	if err != nil {
		return llm.AnalysisResult{}, rep, fmt.Errorf("failed to parse AI response as JSON: %w", err)
	}
	return res, rep, nil
}

// FallbackResult is returned whenever the model could not produce an analysis.
// Every list carries exactly one entry.
func FallbackResult(cause error) llm.AnalysisResult {
	msg := "άγνωστο σφάλμα"
	if cause != nil {
		msg = cause.Error()
	}
	return llm.AnalysisResult{
		Summary:         "Δεν ήταν δυνατή η ανάλυση του κειμένου. Παρουσιάστηκε σφάλμα επικοινωνίας με την υπηρεσία AI.",
		Details:         "Λεπτομέρειες σφάλματος: " + msg,
		Recommendations: []string{"Παρακαλώ ελέγξτε την σύνδεσή σας και προσπαθήστε ξανά."},
		References: []llm.Reference{{
			ID:          "error_ref",
			Title:       "Σφάλμα επικοινωνίας",
			Description: "Παρουσιάστηκε πρόβλημα κατά την επικοινωνία με την υπηρεσία AI.",
		}},
		Outcomes: []llm.Outcome{{
			ID:          "error_outcome",
			Scenario:    "Αποτυχία ανάλυσης",
			Probability: 100,
			Reasoning:   "Δεν ήταν δυνατή η ανάλυση του κειμένου λόγω τεχνικού σφάλματος.",
		}},
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
