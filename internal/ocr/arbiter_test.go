package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cand(engine string, lines ...string) Candidate {
	c := Candidate{Engine: engine, Lines: lines, Status: StatusEmpty}
	if len(lines) > 0 {
		c.Status = StatusOK
	}
	return c
}

func TestArbiter_PrimaryWinsWhenItHasLines(t *testing.T) {
	primary := cand(EngineVision, "Ο εκμισθωτής δηλώνει ότι")
	fallback := cand(EngineTesseract, "Ο εκμισθωτής δηλώνει ότι είναι κύριος", "και νομέας του ακινήτου")

	d := Arbiter{}.Choose(primary, fallback)
	assert.Equal(t, EngineVision, d.Source)
	assert.Equal(t, "Ο εκμισθωτής δηλώνει ότι", d.Text)
}

func TestArbiter_FallbackWhenPrimaryEmpty(t *testing.T) {
	primary := Candidate{Engine: EngineVision, Status: StatusFailed}
	fallback := cand(EngineTesseract, "πρώτη γραμμή κειμένου", "δεύτερη γραμμή κειμένου")

	d := Arbiter{}.Choose(primary, fallback)
	assert.Equal(t, EngineTesseract, d.Source)
	assert.Equal(t, "πρώτη γραμμή κειμένου\nδεύτερη γραμμή κειμένου", d.Text)
}

func TestArbiter_NothingAccepted(t *testing.T) {
	d := Arbiter{}.Choose(cand(EngineVision), cand(EngineTesseract))
	assert.Equal(t, "", d.Source)
	assert.Equal(t, "", d.Text)
}

func TestArbiter_MinPrimaryChars(t *testing.T) {
	short := cand(EngineVision, "σύντομη γραμμή")
	long := cand(EngineTesseract, "πολύ μεγαλύτερη γραμμή κειμένου από τον τοπικό κινητήρα")

	tests := []struct {
		name     string
		arbiter  Arbiter
		primary  Candidate
		fallback Candidate
		want     string
	}{
		{"strict priority by default", Arbiter{}, short, long, EngineVision},
		{"threshold lets fallback win", Arbiter{MinPrimaryChars: 40}, short, long, EngineTesseract},
		{"threshold met keeps primary", Arbiter{MinPrimaryChars: 10}, short, long, EngineVision},
		{"short primary beats empty fallback", Arbiter{MinPrimaryChars: 40}, short, cand(EngineTesseract), EngineVision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.arbiter.Choose(tt.primary, tt.fallback).Source)
		})
	}
}
