package cases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/analysis"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/ocr"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
	"github.com/joseph-ayodele/lexiscan/internal/repository"
	"github.com/joseph-ayodele/lexiscan/internal/store"
)

const goodReply = `{"summary":"Μίσθωση κατοικίας","details":"Λεπτομέρειες",
"recommendations":["Α","Β"],
"references":[{"id":"r1","title":"ΑΚ 574","description":"Μίσθωση"}],
"outcomes":[{"id":"o1","scenario":"Λύση","probability":0.6,"reasoning":"..."},{"id":"o2","scenario":"Παράταση","probability":40,"reasoning":"..."}]}`

type fakeModel struct {
	reply string
	err   error
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Complete(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if f.err != nil {
		return llm.ChatResponse{}, f.err
	}
	return llm.ChatResponse{Content: f.reply, FinishReason: "stop"}, nil
}

type fakeDocs struct {
	doc pipeline.Document
	err error
}

func (f *fakeDocs) Process(_ context.Context, _ pipeline.SourceFile) (pipeline.Document, error) {
	return f.doc, f.err
}

type fakeRuns struct {
	mu   sync.Mutex
	runs []repository.AnalysisRun
	err  error
}

func (f *fakeRuns) Migrate(context.Context) error { return nil }

func (f *fakeRuns) Record(_ context.Context, run repository.AnalysisRun) (repository.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return repository.AnalysisRun{}, f.err
	}
	f.runs = append(f.runs, run)
	return run, nil
}

func (f *fakeRuns) List(_ context.Context, limit int) ([]repository.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(model llm.ChatModel, docs DocumentProcessor, runs *fakeRuns) (*Service, store.Slot) {
	slot := store.NewMemorySlot()
	log := discard()
	return NewService(docs, analysis.NewOrchestrator(model, log), analysis.NewQA(model, slot, log), slot, log,
		WithAuditLog(runs), WithMaxUpload(1<<20)), slot
}

func pdf(data string) pipeline.SourceFile {
	return pipeline.SourceFile{Name: "lease.pdf", MIME: "application/pdf", Data: []byte(data)}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var ae *common.AppError
	require.True(t, errors.As(err, &ae), "expected AppError, got %v", err)
	return ae.Code
}

func TestAnalyzeFile_Success(t *testing.T) {
	runs := &fakeRuns{}
	docs := &fakeDocs{doc: pipeline.Document{Text: "ΣΥΜΒΑΣΗ ΜΙΣΘΩΣΗΣ\nΟ εκμισθωτής", Kind: constants.PDF,
		Pages: []pipeline.PageResult{{Index: 0}, {Index: 1}}}}
	svc, slot := newTestService(&fakeModel{reply: goodReply}, docs, runs)

	out, err := svc.AnalyzeFile(context.Background(), pdf("%PDF-1.4"))
	require.NoError(t, err)
	require.NotNil(t, out.Analysis)
	assert.Equal(t, "ΣΥΜΒΑΣΗ ΜΙΣΘΩΣΗΣ\nΟ εκμισθωτής", out.ExtractedText)
	assert.Equal(t, 2, out.Pages)
	assert.Equal(t, 60.0, out.Analysis.Outcomes[0].Probability)
	assert.Empty(t, out.Error)

	latest, ok, err := slot.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, out.ExtractedText, latest.Text)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, constants.RunStatusOK, runs.runs[0].Status)
	assert.Equal(t, 2, runs.runs[0].Pages)
	assert.Equal(t, "Μίσθωση κατοικίας", runs.runs[0].Summary)
	assert.NotEmpty(t, runs.runs[0].Analysis)
}

func TestAnalyzeFile_ModelDownReturnsFallback(t *testing.T) {
	runs := &fakeRuns{}
	docs := &fakeDocs{doc: pipeline.Document{Text: "Κείμενο εγγράφου", Kind: constants.IMAGE, Pages: []pipeline.PageResult{{}}}}
	svc, slot := newTestService(&fakeModel{err: errors.New("connection reset")}, docs, runs)

	out, err := svc.AnalyzeFile(context.Background(), pipeline.SourceFile{Name: "a.png", MIME: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	require.NotNil(t, out.Analysis)
	assert.Equal(t, "error_outcome", out.Analysis.Outcomes[0].ID)

	_, ok, _ := slot.Get(context.Background())
	assert.True(t, ok, "fallback results are stored too")
	require.Len(t, runs.runs, 1)
	assert.Equal(t, constants.RunStatusAnalysisFallback, runs.runs[0].Status)
	assert.Contains(t, runs.runs[0].Error, "connection reset")
}

func TestAnalyze_DeadlineIsATimeout(t *testing.T) {
	runs := &fakeRuns{}
	docs := &fakeDocs{doc: pipeline.Document{Text: "Κείμενο εγγράφου", Kind: constants.PDF, Pages: []pipeline.PageResult{{}}}}
	svc, slot := newTestService(&fakeModel{err: context.DeadlineExceeded}, docs, runs)

	_, err := svc.AnalyzeFile(context.Background(), pdf("%PDF"))
	require.Error(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, common.HTTPStatus(err))
	assert.Equal(t, constants.MsgTimeout, common.UserMessage(err, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.AnalyzeText(ctx, "Αγωγή αποζημίωσης")
	assert.Equal(t, http.StatusGatewayTimeout, common.HTTPStatus(err))

	_, ok, _ := slot.Get(context.Background())
	assert.False(t, ok, "timed-out fallbacks are not stored")
	require.Len(t, runs.runs, 2)
	for _, r := range runs.runs {
		assert.Equal(t, constants.RunStatusFailed, r.Status)
		assert.Empty(t, r.Analysis)
	}
}

func TestAnalyzeFile_EmptyTextSkipsAnalysis(t *testing.T) {
	runs := &fakeRuns{}
	model := &fakeModel{reply: goodReply}
	svc, slot := newTestService(model, &fakeDocs{doc: pipeline.Document{Kind: constants.PDF}}, runs)

	out, err := svc.AnalyzeFile(context.Background(), pdf("%PDF"))
	require.NoError(t, err)
	assert.Nil(t, out.Analysis)
	assert.Equal(t, "", out.ExtractedText)
	assert.Equal(t, constants.MsgAnalysisFailed, out.Error)

	_, ok, _ := slot.Get(context.Background())
	assert.False(t, ok)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, constants.RunStatusAnalysisSkipped, runs.runs[0].Status)
}

func TestAnalyzeFile_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"conversion", fmt.Errorf("%w: exit 1", ocr.ErrConversion), common.CodeConversionFailed, 500},
		{"image", fmt.Errorf("%w: decode", ocr.ErrImageProcessing), common.CodeImageFailed, 500},
		{"unsupported", pipeline.ErrUnsupportedType, common.CodeInvalidInput, 400},
		{"timeout", context.DeadlineExceeded, common.CodeTimeout, 504},
		{"other", errors.New("disk full"), common.CodeInternal, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runs := &fakeRuns{}
			svc, _ := newTestService(&fakeModel{reply: goodReply}, &fakeDocs{err: tc.err}, runs)
			_, err := svc.AnalyzeFile(context.Background(), pdf("%PDF"))
			require.Error(t, err)
			assert.Equal(t, tc.code, appCode(t, err))
			assert.Equal(t, tc.status, common.HTTPStatus(err))
			require.Len(t, runs.runs, 1)
			assert.Equal(t, constants.RunStatusFailed, runs.runs[0].Status)
		})
	}
}

func TestValidateUpload(t *testing.T) {
	svc, _ := newTestService(&fakeModel{}, &fakeDocs{}, &fakeRuns{})

	cases := []struct {
		name string
		src  pipeline.SourceFile
		msg  string
	}{
		{"missing", pipeline.SourceFile{}, constants.MsgNoFile},
		{"wrong type", pipeline.SourceFile{MIME: "text/plain", Size: 3, Data: []byte("abc")}, constants.MsgUnsupportedType},
		{"too large", pipeline.SourceFile{MIME: "application/pdf", Size: 2 << 20, Data: []byte("x")}, constants.MsgFileTooLarge},
		{"ok with params", pipeline.SourceFile{MIME: "image/JPEG; q=1", Size: 3, Data: []byte("abc")}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ValidateUpload(tc.src)
			if tc.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.msg, common.UserMessage(err, ""))
			assert.Equal(t, 400, common.HTTPStatus(err))
		})
	}
}

func TestAnalyzeText(t *testing.T) {
	runs := &fakeRuns{}
	svc, _ := newTestService(&fakeModel{reply: goodReply}, &fakeDocs{}, runs)

	_, err := svc.AnalyzeText(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, constants.MsgNoText, common.UserMessage(err, ""))
	assert.Empty(t, runs.runs)

	res, err := svc.AnalyzeText(context.Background(), "σύντομο")
	require.NoError(t, err)
	assert.Equal(t, "Μίσθωση κατοικίας", res.Summary)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, constants.TEXT, runs.runs[0].SourceKind)
}

func TestLatest(t *testing.T) {
	svc, _ := newTestService(&fakeModel{reply: goodReply}, &fakeDocs{}, &fakeRuns{})

	_, err := svc.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, 404, common.HTTPStatus(err))

	_, err = svc.AnalyzeText(context.Background(), "κείμενο")
	require.NoError(t, err)
	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "κείμενο", latest.Text)
	assert.False(t, latest.Timestamp.IsZero())
}

func TestAsk(t *testing.T) {
	svc, _ := newTestService(&fakeModel{reply: "Η προθεσμία είναι 30 ημέρες."}, &fakeDocs{}, &fakeRuns{})
	ctx := context.Background()

	_, err := svc.Ask(ctx, "", "κείμενο")
	assert.Equal(t, constants.MsgNoQuestion, common.UserMessage(err, ""))

	_, err = svc.Ask(ctx, "Ποια η προθεσμία;", "")
	require.Error(t, err)
	assert.Equal(t, common.CodeNoContext, appCode(t, err))
	assert.Equal(t, 400, common.HTTPStatus(err))

	answer, err := svc.Ask(ctx, "Ποια η προθεσμία;", "Σύμβαση")
	require.NoError(t, err)
	assert.Equal(t, "Η προθεσμία είναι 30 ημέρες.", answer)
}

func TestHistory(t *testing.T) {
	svc := NewService(&fakeDocs{}, nil, nil, nil, discard())
	_, err := svc.History(context.Background(), 10)
	assert.Equal(t, 404, common.HTTPStatus(err))
	_, err = svc.ExportXLSX(context.Background(), 10)
	assert.Equal(t, 404, common.HTTPStatus(err))

	runs := &fakeRuns{}
	svc2, _ := newTestService(&fakeModel{reply: goodReply}, &fakeDocs{}, runs)
	_, err = svc2.AnalyzeText(context.Background(), "κείμενο")
	require.NoError(t, err)
	got, err := svc2.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordFailureIsNotFatal(t *testing.T) {
	runs := &fakeRuns{err: errors.New("database is locked")}
	svc, _ := newTestService(&fakeModel{reply: goodReply}, &fakeDocs{}, runs)
	_, err := svc.AnalyzeText(context.Background(), "κείμενο")
	assert.NoError(t, err)
}
