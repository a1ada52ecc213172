package ocr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(ctx context.Context, _ []byte) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

func TestExtractPage_BothEnginesRun(t *testing.T) {
	vision := &fakeEngine{name: EngineVision, text: "Το δικαστήριο αποφασίζει\nxx"}
	tess := &fakeEngine{name: EngineTesseract, text: "Το δικαστηριο αποφασιζει", delay: 10 * time.Millisecond}

	p, f := NewExtractor(vision, tess, nil).ExtractPage(context.Background(), []byte("img"))

	assert.Equal(t, int32(1), vision.calls.Load())
	assert.Equal(t, int32(1), tess.calls.Load())
	assert.Equal(t, StatusOK, p.Status)
	assert.Equal(t, []string{"Το δικαστήριο αποφασίζει"}, p.Lines)
	assert.Equal(t, StatusOK, f.Status)
	assert.Equal(t, EngineTesseract, f.Engine)
}

func TestExtractPage_EngineErrorDoesNotStopTheOther(t *testing.T) {
	vision := &fakeEngine{name: EngineVision, err: errors.New("quota exceeded")}
	tess := &fakeEngine{name: EngineTesseract, text: "Η προθεσμία λήγει αύριο"}

	p, f := NewExtractor(vision, tess, nil).ExtractPage(context.Background(), nil)

	assert.Equal(t, StatusFailed, p.Status)
	require.Error(t, p.Err)
	assert.Empty(t, p.Lines)
	assert.Equal(t, StatusOK, f.Status)

	d := Arbiter{}.Choose(p, f)
	assert.Equal(t, "Η προθεσμία λήγει αύριο", d.Text)
}

func TestExtractPage_MissingEngine(t *testing.T) {
	tess := &fakeEngine{name: EngineTesseract, text: "english only text here"}
	p, f := NewExtractor(nil, tess, nil).ExtractPage(context.Background(), nil)

	assert.Equal(t, EngineVision, p.Engine)
	assert.Equal(t, StatusEmpty, p.Status)
	assert.Equal(t, StatusEmpty, f.Status, "no greek lines survive validation")
	assert.Equal(t, "english only text here", f.RawText)
}
