// Package cases is the application layer behind the HTTP surface and the CLI:
// it runs uploads through OCR and analysis, keeps the latest result and the
// audit log, and answers questions about the last analysed document.
package cases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/analysis"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/ocr"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
	"github.com/joseph-ayodele/lexiscan/internal/repository"
	"github.com/joseph-ayodele/lexiscan/internal/store"
)

// DocumentProcessor extracts the text of an uploaded file.
type DocumentProcessor interface {
	Process(ctx context.Context, src pipeline.SourceFile) (pipeline.Document, error)
}

// Analyzer produces the structured analysis of a text.
type Analyzer interface {
	AnalyzeDetailed(ctx context.Context, text string) (llm.AnalysisResult, analysis.Outcome, error)
}

// Answerer answers a question against a context text.
type Answerer interface {
	Ask(ctx context.Context, question, docContext string) (string, error)
}

// Exporter renders the audit log as a workbook.
type Exporter interface {
	ExportRunsXLSX(ctx context.Context, limit int) ([]byte, error)
}

// FileAnalysis is the result of AnalyzeFile. Analysis is nil and Error is set
// when the text was extracted but could not be analysed.
type FileAnalysis struct {
	ExtractedText string
	Analysis      *llm.AnalysisResult
	Error         string
	Pages         int
	SkippedPages  int
}

type Service struct {
	docs      DocumentProcessor
	analyzer  Analyzer
	qa        Answerer
	slot      store.Slot
	runs      repository.AnalysisRunRepository // optional
	exporter  Exporter                         // optional
	maxUpload int64
	logger    *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithAuditLog records every analysis run in runs.
func WithAuditLog(runs repository.AnalysisRunRepository) Option {
	return func(s *Service) { s.runs = runs }
}

// WithExporter enables ExportXLSX.
func WithExporter(e Exporter) Option { return func(s *Service) { s.exporter = e } }

// WithMaxUpload caps accepted file sizes in bytes.
func WithMaxUpload(n int64) Option { return func(s *Service) { s.maxUpload = n } }

func NewService(docs DocumentProcessor, analyzer Analyzer, qa Answerer, slot store.Slot, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if slot == nil {
		slot = store.NewMemorySlot()
	}
	s := &Service{
		docs:      docs,
		analyzer:  analyzer,
		qa:        qa,
		slot:      slot,
		maxUpload: int64(constants.MaxUploadMBDefault) << 20,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ValidateUpload checks presence, MIME type and size of an upload.
func (s *Service) ValidateUpload(src pipeline.SourceFile) error {
	if len(src.Data) == 0 && src.Size == 0 {
		return common.InvalidInputError(constants.MsgNoFile)
	}
	v := common.NewValidator().
		Field("mime", src.MIME, common.OneOf(constants.AllowedMIMETypes, constants.NormalizeMIME, constants.MsgUnsupportedType)).
		Field("size", src.Size, common.MaxSize(s.maxUpload, constants.MsgFileTooLarge))
	return common.ValidateAndReturnError(v)
}

// AnalyzeFile extracts the text of src and analyses it. Extraction failures are
// errors; analysis failures after a successful extraction are reported in
// FileAnalysis.Error or as the fallback analysis.
func (s *Service) AnalyzeFile(ctx context.Context, src pipeline.SourceFile) (FileAnalysis, error) {
	if src.Size == 0 {
		src.Size = int64(len(src.Data))
	}
	if err := s.ValidateUpload(src); err != nil {
		return FileAnalysis{}, err
	}
	start := time.Now()
	kind := constants.KindForMIME(src.MIME)
	logger := s.logger.With("name", src.Name, "kind", kind, "size", src.Size)
	logger.Info("cases.file.start")

	run := repository.AnalysisRun{SourceName: src.Name, SourceKind: kind}

	doc, err := s.docs.Process(ctx, src)
	if err != nil {
		mapped := mapPipelineError(err)
		logger.Error("cases.file.extract_failed", "error", err)
		run.Status = constants.RunStatusFailed
		run.Error = err.Error()
		s.record(ctx, run, start)
		return FileAnalysis{}, mapped
	}

	out := FileAnalysis{
		ExtractedText: doc.Text,
		Pages:         len(doc.Pages),
		SkippedPages:  doc.Skipped(),
	}
	run.Pages = out.Pages
	run.Chars = len([]rune(doc.Text))

	res, outcome, err := s.analyzer.AnalyzeDetailed(ctx, doc.Text)
	if err != nil {
		logger.Warn("cases.file.analysis_skipped", "error", err)
		out.Error = constants.MsgAnalysisFailed
		run.Status = constants.RunStatusAnalysisSkipped
		run.Error = err.Error()
		s.record(ctx, run, start)
		return out, nil
	}
	if terr := analysisTimedOut(ctx, outcome); terr != nil {
		logger.Error("cases.file.analysis_timeout", "error", terr, "elapsed_ms", time.Since(start).Milliseconds())
		run.Status = constants.RunStatusFailed
		run.Error = terr.Error()
		s.record(ctx, run, start)
		return FileAnalysis{}, common.NewAppError(common.CodeTimeout, constants.MsgTimeout, terr)
	}

	s.remember(ctx, doc.Text, res)
	out.Analysis = &res
	run.Status = statusFor(outcome)
	if outcome.Err != nil {
		run.Error = outcome.Err.Error()
	}
	run.Summary = res.Summary
	run.Analysis = encode(res)
	s.record(ctx, run, start)

	logger.Info("cases.file.ok",
		"pages", out.Pages,
		"skipped_pages", out.SkippedPages,
		"fallback", outcome.Fallback,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// AnalyzeText analyses text submitted directly.
func (s *Service) AnalyzeText(ctx context.Context, text string) (llm.AnalysisResult, error) {
	start := time.Now()
	res, outcome, err := s.analyzer.AnalyzeDetailed(ctx, text)
	if errors.Is(err, analysis.ErrEmptyText) {
		return llm.AnalysisResult{}, common.InvalidInputError(constants.MsgNoText)
	}
	if err != nil {
		return llm.AnalysisResult{}, common.InternalError(constants.MsgInternal, err)
	}
	run := repository.AnalysisRun{
		SourceName: "text",
		SourceKind: constants.TEXT,
		Chars:      len([]rune(text)),
	}
	if terr := analysisTimedOut(ctx, outcome); terr != nil {
		s.logger.Error("cases.text.analysis_timeout", "error", terr, "elapsed_ms", time.Since(start).Milliseconds())
		run.Status = constants.RunStatusFailed
		run.Error = terr.Error()
		s.record(ctx, run, start)
		return llm.AnalysisResult{}, common.NewAppError(common.CodeTimeout, constants.MsgTimeout, terr)
	}

	s.remember(ctx, text, res)
	run.Status = statusFor(outcome)
	run.Summary = res.Summary
	run.Analysis = encode(res)
	if outcome.Err != nil {
		run.Error = outcome.Err.Error()
	}
	s.record(ctx, run, start)
	return res, nil
}

// Latest returns the most recent analysis, or a NOT_FOUND error.
func (s *Service) Latest(ctx context.Context) (store.LatestAnalysis, error) {
	latest, ok, err := s.slot.Get(ctx)
	if err != nil {
		return store.LatestAnalysis{}, common.InternalError(constants.MsgInternal, err)
	}
	if !ok {
		return store.LatestAnalysis{}, common.NotFoundError(constants.MsgNoLatestAnalysis)
	}
	latest.Analysis.EnsureLists()
	return latest, nil
}

// Ask answers question against docContext or, when empty, the latest analysed text.
func (s *Service) Ask(ctx context.Context, question, docContext string) (string, error) {
	answer, err := s.qa.Ask(ctx, question, docContext)
	switch {
	case errors.Is(err, analysis.ErrNoQuestion):
		return "", common.InvalidInputError(constants.MsgNoQuestion)
	case errors.Is(err, analysis.ErrNoContext):
		return "", common.NewAppError(common.CodeNoContext, constants.MsgNoContext, err)
	case err != nil:
		return "", common.InternalError(constants.MsgInternal, err)
	}
	return answer, nil
}

// History lists the newest audit-log entries.
func (s *Service) History(ctx context.Context, limit int) ([]repository.AnalysisRun, error) {
	if s.runs == nil {
		return nil, common.NotFoundError(constants.MsgHistoryUnavailable)
	}
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, common.InternalError(constants.MsgHistoryUnavailable, err)
	}
	return runs, nil
}

// ExportXLSX renders the newest audit-log entries as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.exporter == nil {
		return nil, common.NotFoundError(constants.MsgHistoryUnavailable)
	}
	b, err := s.exporter.ExportRunsXLSX(ctx, limit)
	if err != nil {
		return nil, common.InternalError(constants.MsgHistoryUnavailable, err)
	}
	return b, nil
}

func (s *Service) remember(ctx context.Context, text string, res llm.AnalysisResult) {
	err := s.slot.Set(ctx, store.LatestAnalysis{
		Timestamp: time.Now().UTC(),
		Text:      text,
		Analysis:  res,
	})
	if err != nil {
		s.logger.Warn("cases.slot.write_failed", "error", err)
	}
}

// record writes run to the audit log; failures are only logged.
func (s *Service) record(ctx context.Context, run repository.AnalysisRun, start time.Time) {
	if s.runs == nil {
		return
	}
	run.ID = uuid.New()
	run.CreatedAt = time.Now().UTC()
	run.ElapsedMS = time.Since(start).Milliseconds()
	if _, err := s.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("cases.audit.record_failed", "run_id", run.ID, "error", err)
	}
}

func statusFor(o analysis.Outcome) constants.RunStatus {
	if o.Fallback {
		return constants.RunStatusAnalysisFallback
	}
	return constants.RunStatusOK
}

// analysisTimedOut returns the cause when a fallback came from the request
// running out of time. Such a fallback is not an analysis and is never stored.
func analysisTimedOut(ctx context.Context, outcome analysis.Outcome) error {
	if !outcome.Fallback {
		return nil
	}
	if errors.Is(outcome.Err, context.DeadlineExceeded) || errors.Is(outcome.Err, context.Canceled) {
		return outcome.Err
	}
	return ctx.Err()
}

func mapPipelineError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError(common.CodeTimeout, constants.MsgTimeout, err)
	case errors.Is(err, pipeline.ErrUnsupportedType):
		return common.InvalidInputError(constants.MsgUnsupportedType)
	case errors.Is(err, ocr.ErrConversion):
		return common.NewAppError(common.CodeConversionFailed, constants.MsgPDFFailed, err)
	case errors.Is(err, ocr.ErrImageProcessing):
		return common.NewAppError(common.CodeImageFailed, constants.MsgImageFailed, err)
	}
	return common.InternalError(constants.MsgFileAnalysis, err)
}

func encode(res llm.AnalysisResult) string {
	b, err := json.Marshal(res)
	if err != nil {
		return ""
	}
	return string(b)
}
