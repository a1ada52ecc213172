package async

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
	"github.com/joseph-ayodele/lexiscan/internal/services/cases"
)

// DocumentProcessor extracts the text of one file.
type DocumentProcessor interface {
	Process(ctx context.Context, src pipeline.SourceFile) (pipeline.Document, error)
}

// FileAnalyzer runs extraction and analysis for one file.
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, src pipeline.SourceFile) (cases.FileAnalysis, error)
}

// LoadSource reads a PDF or image from disk, typing it by extension.
func LoadSource(path string) (pipeline.SourceFile, error) {
	mime := constants.MIMEForPath(path)
	if mime == "" {
		return pipeline.SourceFile{}, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedType, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.SourceFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return pipeline.SourceFile{
		Name: filepath.Base(path),
		MIME: mime,
		Size: int64(len(data)),
		Data: data,
	}, nil
}

// PipelineHandler reads each job's file from disk and runs it through p.
func PipelineHandler(p DocumentProcessor) Handler {
	return func(ctx context.Context, job Job) (Result, error) {
		src, err := LoadSource(job.Path)
		if err != nil {
			return Result{}, err
		}
		doc, err := p.Process(ctx, src)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: doc.Text, Pages: len(doc.Pages), Skipped: doc.Skipped()}, nil
	}
}

// AnalysisHandler reads each job's file and runs the full extract-then-analyze
// flow, so the result also becomes the latest analysis.
func AnalysisHandler(a FileAnalyzer) Handler {
	return func(ctx context.Context, job Job) (Result, error) {
		src, err := LoadSource(job.Path)
		if err != nil {
			return Result{}, err
		}
		out, err := a.AnalyzeFile(ctx, src)
		if err != nil {
			return Result{}, err
		}
		res := Result{Text: out.ExtractedText, Pages: out.Pages, Skipped: out.SkippedPages}
		if out.Error != "" {
			return res, errors.New(out.Error)
		}
		return res, nil
	}
}
