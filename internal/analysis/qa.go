package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/store"
)

var (
	ErrNoQuestion = errors.New("no question provided")
	ErrNoContext  = errors.New("no context available")
)

// QAErrorPrefix starts the answer returned when the model call fails.
const QAErrorPrefix = "Σφάλμα κατά την επικοινωνία με την υπηρεσία AI: "

// QA answers questions grounded in a document text.
type QA struct {
	model  llm.ChatModel
	slot   store.Slot
	logger *slog.Logger
}

func NewQA(model llm.ChatModel, slot store.Slot, logger *slog.Logger) *QA {
	if logger == nil {
		logger = slog.Default()
	}
	return &QA{model: model, slot: slot, logger: logger}
}

// Ask answers question against docContext, or against the latest analysed text
// when docContext is empty. Model failures come back as an answer string that
// starts with QAErrorPrefix; only missing input is an error.
func (q *QA) Ask(ctx context.Context, question, docContext string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrNoQuestion
	}
	if strings.TrimSpace(docContext) == "" {
		docContext = q.latestText(ctx)
	}
	if strings.TrimSpace(docContext) == "" {
		return "", ErrNoContext
	}

	start := time.Now()
	q.logger.Info("qa.start", "context_len", len([]rune(docContext)), "question", preview(question, 200))
	if q.model == nil {
		return QAErrorPrefix + "no language model configured", nil
	}
	resp, err := q.model.Complete(ctx, llm.QARequest(docContext, question))
	if err != nil {
		q.logger.Error("qa.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return QAErrorPrefix + err.Error(), nil
	}
	q.logger.Info("qa.ok", "finish_reason", resp.FinishReason, "chars", len(resp.Content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return resp.Content, nil
}

func (q *QA) latestText(ctx context.Context) string {
	if q.slot == nil {
		return ""
	}
	latest, ok, err := q.slot.Get(ctx)
	if err != nil {
		q.logger.Warn("qa.slot.read_failed", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return latest.Text
}
