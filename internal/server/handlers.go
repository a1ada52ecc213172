package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
	"github.com/joseph-ayodele/lexiscan/internal/repository"
	"github.com/joseph-ayodele/lexiscan/internal/similarity"
)

const (
	multipartMemory = 32 << 20
	multipartSlack  = 1 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	historyDefault  = 50
	historyMax      = 1000
)

type analyzeFileResponse struct {
	ExtractedText string              `json:"extractedText"`
	Text          string              `json:"text"`
	Analysis      *llm.AnalysisResult `json:"analysis,omitempty"`
	Error         string              `json:"error,omitempty"`
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

type analysisResponse struct {
	Analysis llm.AnalysisResult `json:"analysis"`
}

type latestResponse struct {
	Analysis  llm.AnalysisResult `json:"analysis"`
	Timestamp time.Time          `json:"timestamp"`
}

type askRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type similarityRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

type similarityResponse struct {
	Score float64 `json:"score"`
}

type historyResponse struct {
	Runs []repository.AnalysisRun `json:"runs"`
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "service": "lexiscan", "database": "disabled"}
	status := http.StatusOK
	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			common.LoggerFromContext(r.Context(), a.logger).Warn("health.db.failed", "error", err)
			resp["status"], resp["database"] = "degraded", "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}
	writeJSON(w, status, resp)
}

// AnalyzeFile handles POST /analyze with a multipart "file" field.
func (a *API) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src, err := a.readUpload(w, r)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgNoFile, a.logger)
		return
	}

	out, err := a.cases.AnalyzeFile(ctx, src)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgFileAnalysis, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, analyzeFileResponse{
		ExtractedText: out.ExtractedText,
		Text:          out.ExtractedText,
		Analysis:      out.Analysis,
		Error:         out.Error,
	})
}

// readUpload pulls the "file" part into memory, capped at the upload limit.
func (a *API) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.SourceFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return pipeline.SourceFile{}, uploadError(err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return pipeline.SourceFile{}, uploadError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.SourceFile{}, uploadError(err)
	}

	mime := constants.NormalizeMIME(hdr.Header.Get("Content-Type"))
	if mime == "" || mime == "application/octet-stream" {
		mime = constants.NormalizeMIME(http.DetectContentType(data))
	}
	return pipeline.SourceFile{
		Name: hdr.Filename,
		MIME: mime,
		Size: hdr.Size,
		Data: data,
	}, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.InvalidInputError(constants.MsgFileTooLarge)
	}
	return common.NewAppError(common.CodeInvalidInput, constants.MsgNoFile, err)
}

// AnalyzeText handles POST /cases/analyze.
func (a *API) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req analyzeTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(ctx, w, err, constants.MsgInvalidBody, a.logger)
		return
	}
	res, err := a.cases.AnalyzeText(ctx, req.Text)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgInternal, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Analysis: res})
}

// LatestAnalysis handles GET /cases/latest-analysis.
func (a *API) LatestAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	latest, err := a.cases.Latest(ctx)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgInternal, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, latestResponse{Analysis: latest.Analysis, Timestamp: latest.Timestamp})
}

// Ask handles POST /chat/ask.
func (a *API) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(ctx, w, err, constants.MsgInvalidBody, a.logger)
		return
	}
	answer, err := a.cases.Ask(ctx, req.Question, req.Context)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgInternal, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

// Similarity handles POST /similarity.
func (a *API) Similarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err, constants.MsgInvalidBody, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, similarityResponse{Score: similarity.Score(req.A, req.B)})
}

// History handles GET /cases/history?limit=N.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgInvalidBody, a.logger)
		return
	}
	runs, err := a.cases.History(ctx, limit)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgHistoryUnavailable, a.logger)
		return
	}
	if runs == nil {
		runs = []repository.AnalysisRun{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Runs: runs})
}

// ExportHistory handles GET /cases/history/export?limit=N.
func (a *API) ExportHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgInvalidBody, a.logger)
		return
	}
	b, err := a.cases.ExportXLSX(ctx, limit)
	if err != nil {
		writeAppError(ctx, w, err, constants.MsgHistoryUnavailable, a.logger)
		return
	}
	name := fmt.Sprintf("lexiscan-analyses-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return historyDefault, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, common.InvalidInputError(constants.MsgInvalidBody)
	}
	return min(n, historyMax), nil
}
