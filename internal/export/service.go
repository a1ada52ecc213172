package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/repository"
)

// Sheet names in the exported workbook.
const (
	SheetRuns     = "Αναλύσεις"
	SheetOutcomes = "Σενάρια"
)

// Service turns the analysis audit log into XLSX workbooks.
type Service struct {
	runs   repository.AnalysisRunRepository
	logger *slog.Logger
}

func NewService(runs repository.AnalysisRunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunsXLSX returns a workbook with the newest limit runs and, on a second
// sheet, every outcome scenario those runs produced.
func (s *Service) ExportRunsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis runs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetRuns); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetOutcomes); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetRuns)
	f.SetActiveSheet(idx)

	writeRow(f, SheetRuns, 1, "Ημερομηνία", "Αρχείο", "Τύπος", "Σελίδες", "Χαρακτήρες",
		"Κατάσταση", "Περίληψη", "Σφάλμα", "Χρόνος (ms)", "ID")
	writeRow(f, SheetOutcomes, 1, "ID ανάλυσης", "Σενάριο", "Πιθανότητα (%)", "Αιτιολόγηση")

	outRow := 2
	for i, r := range runs {
		writeRow(f, SheetRuns, i+2,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.SourceName,
			r.SourceKind,
			r.Pages,
			r.Chars,
			string(r.Status),
			truncate(r.Summary, 300),
			truncate(r.Error, 200),
			r.ElapsedMS,
			r.ID.String(),
		)

		if r.Analysis == "" {
			continue
		}
		var a llm.AnalysisResult
		if err := json.Unmarshal([]byte(r.Analysis), &a); err != nil {
			s.logger.Warn("export.xlsx.bad_analysis", "run_id", r.ID, "error", err)
			continue
		}
		for _, o := range a.Outcomes {
			writeRow(f, SheetOutcomes, outRow, r.ID.String(), o.Scenario, o.Probability, truncate(o.Reasoning, 300))
			outRow++
		}
	}

	_ = f.SetColWidth(SheetRuns, "A", "A", 20) // date
	_ = f.SetColWidth(SheetRuns, "B", "B", 32) // file
	_ = f.SetColWidth(SheetRuns, "C", "F", 12)
	_ = f.SetColWidth(SheetRuns, "G", "H", 60) // summary, error
	_ = f.SetColWidth(SheetRuns, "J", "J", 38)
	_ = f.SetColWidth(SheetOutcomes, "A", "A", 38)
	_ = f.SetColWidth(SheetOutcomes, "B", "B", 40)
	_ = f.SetColWidth(SheetOutcomes, "D", "D", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(runs),
		"outcomes", outRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
