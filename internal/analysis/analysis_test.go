package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/store"
)

type fakeModel struct {
	reply string
	err   error
	calls []llm.ChatRequest
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Complete(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return llm.ChatResponse{}, f.err
	}
	return llm.ChatResponse{Content: f.reply}, nil
}

const goodReply = `{
	"summary": "Αγωγή αποζημίωσης από τροχαίο",
	"details": "Ο ενάγων ζητά αποζημίωση για υλικές ζημιές",
	"recommendations": ["Συλλογή αποδείξεων", "Πραγματογνωμοσύνη"],
	"references": [{"id": "ref_1", "title": "ΑΚ 914", "description": "Αδικοπραξία"}],
	"outcomes": [
		{"id": "outcome_1", "scenario": "Πλήρης δικαίωση", "probability": 0.6, "reasoning": "Σαφής υπαιτιότητα"},
		{"id": "outcome_2", "scenario": "Συνυπαιτιότητα", "probability": 40, "reasoning": "Ταχύτητα ενάγοντος"}
	]
}`

func TestAnalyze_EmptyTextMakesNoCall(t *testing.T) {
	m := &fakeModel{reply: goodReply}
	o := NewOrchestrator(m, nil)
	for _, text := range []string{"", "   \n\t "} {
		_, err := o.Analyze(context.Background(), text)
		require.ErrorIs(t, err, ErrEmptyText)
	}
	assert.Empty(t, m.calls)
}

func TestAnalyze_Success(t *testing.T) {
	m := &fakeModel{reply: goodReply}
	res, out, err := NewOrchestrator(m, nil).AnalyzeDetailed(context.Background(), "Κείμενο αγωγής")
	require.NoError(t, err)
	assert.False(t, out.Fallback)

	require.Len(t, m.calls, 1)
	req := m.calls[0]
	assert.True(t, req.JSON)
	assert.Equal(t, 3000, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	assert.Equal(t, "Κείμενο αγωγής", req.Messages[1].Content)

	assert.Equal(t, "Αγωγή αποζημίωσης από τροχαίο", res.Summary)
	assert.Equal(t, 60.0, res.Outcomes[0].Probability)
	assert.Equal(t, 40.0, res.Outcomes[1].Probability)
}

func TestAnalyze_MissingFieldsAreNotFatal(t *testing.T) {
	m := &fakeModel{reply: `{"summary": "Μόνο περίληψη", "outcomes": "δεν ξέρω"}`}
	res, out, err := NewOrchestrator(m, nil).AnalyzeDetailed(context.Background(), "κείμενο")
	require.NoError(t, err)
	assert.False(t, out.Fallback)
	assert.ElementsMatch(t, []string{"details", "recommendations", "references"}, out.Missing)
	assert.Equal(t, "Μόνο περίληψη", res.Summary)
	assert.NotNil(t, res.Outcomes)
	assert.Empty(t, res.Outcomes)
}

func TestAnalyze_NeverFailsOnModelErrors(t *testing.T) {
	tests := []struct {
		name  string
		model llm.ChatModel
	}{
		{"transport error", &fakeModel{err: errors.New("dial tcp: i/o timeout")}},
		{"not json", &fakeModel{reply: "Ως μοντέλο γλώσσας δεν μπορώ"}},
		{"json array", &fakeModel{reply: `[{"summary":"x"}]`}},
		{"no model", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out, err := NewOrchestrator(tt.model, nil).AnalyzeDetailed(context.Background(), "κείμενο")
			require.NoError(t, err)
			assert.True(t, out.Fallback)
			require.Error(t, out.Err)

			assert.NotEmpty(t, res.Summary)
			assert.Len(t, res.Recommendations, 1)
			assert.Len(t, res.References, 1)
			require.Len(t, res.Outcomes, 1)
			assert.Equal(t, 100.0, res.Outcomes[0].Probability)
			assert.Equal(t, "error_outcome", res.Outcomes[0].ID)
		})
	}
}

func TestFallbackResult_CarriesCause(t *testing.T) {
	res := FallbackResult(errors.New("status 429: Rate limit reached"))
	assert.Contains(t, res.Details, "Rate limit reached")
	assert.Equal(t, "error_ref", res.References[0].ID)
	assert.NotEmpty(t, FallbackResult(nil).Details)
}

func TestAsk_Validation(t *testing.T) {
	m := &fakeModel{reply: "απάντηση"}
	qa := NewQA(m, store.NewMemorySlot(), nil)

	_, err := qa.Ask(context.Background(), "  ", "κάποιο κείμενο")
	require.ErrorIs(t, err, ErrNoQuestion)

	_, err = qa.Ask(context.Background(), "Τι ισχύει;", "")
	require.ErrorIs(t, err, ErrNoContext)

	_, err = NewQA(m, nil, nil).Ask(context.Background(), "Τι ισχύει;", "")
	require.ErrorIs(t, err, ErrNoContext)
	assert.Empty(t, m.calls)
}

func TestAsk_UsesExplicitContext(t *testing.T) {
	m := &fakeModel{reply: "Σύμφωνα με το άρθρο 914 ΑΚ..."}
	answer, err := NewQA(m, nil, nil).Ask(context.Background(), "Ποιος ευθύνεται;", "Το κείμενο της αγωγής")
	require.NoError(t, err)
	assert.Equal(t, "Σύμφωνα με το άρθρο 914 ΑΚ...", answer)

	require.Len(t, m.calls, 1)
	assert.Equal(t, "Context: Το κείμενο της αγωγής\n\nΕρώτηση: Ποιος ευθύνεται;", m.calls[0].Messages[1].Content)
	assert.False(t, m.calls[0].JSON)
	assert.Equal(t, 2000, m.calls[0].MaxTokens)
}

func TestAsk_FallsBackToLatestSlot(t *testing.T) {
	slot := store.NewMemorySlot()
	require.NoError(t, slot.Set(context.Background(), store.LatestAnalysis{Timestamp: time.Now(), Text: "Κείμενο από το slot"}))
	m := &fakeModel{reply: "ok"}

	_, err := NewQA(m, slot, nil).Ask(context.Background(), "Ερώτηση;", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.calls[0].Messages[1].Content, "Context: Κείμενο από το slot\n\n"))
}

func TestAsk_ModelFailureBecomesAnswer(t *testing.T) {
	m := &fakeModel{err: errors.New("connection reset")}
	answer, err := NewQA(m, nil, nil).Ask(context.Background(), "Ερώτηση;", "context")
	require.NoError(t, err)
	assert.Equal(t, QAErrorPrefix+"connection reset", answer)
}

// The fallback summary is valid context for a follow-up question, whatever the
// model does with it.
func TestFallbackRoundTripThroughQA(t *testing.T) {
	broken := &fakeModel{err: errors.New("network down")}
	res, err := NewOrchestrator(broken, nil).Analyze(context.Background(), "έγγραφο")
	require.NoError(t, err)

	for _, m := range []*fakeModel{broken, {reply: "Δεν υπάρχει ανάλυση διαθέσιμη."}} {
		answer, err := NewQA(m, nil, nil).Ask(context.Background(), "Τι έγινε;", res.Summary)
		require.NoError(t, err)
		assert.NotEmpty(t, answer)
	}
}
