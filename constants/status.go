package constants

// RunStatus is the outcome recorded for an analysis run in the audit log.
type RunStatus string

// Stable values (stored as-is in the analysis_runs table).
const (
	RunStatusOK               RunStatus = "OK"                // text extracted and analysed
	RunStatusAnalysisFallback RunStatus = "ANALYSIS_FALLBACK" // model failed, fallback returned
	RunStatusAnalysisSkipped  RunStatus = "ANALYSIS_SKIPPED"  // nothing to analyse after OCR
	RunStatusFailed           RunStatus = "FAILED"            // extraction failed
)
