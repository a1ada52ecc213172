package llm

import "context"

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral chat completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	JSON        bool // ask the provider for a single JSON object
}

type ChatResponse struct {
	Content      string
	FinishReason string
	Model        string
}

// ChatModel is implemented by every LLM provider (openai, vertex).
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// AnalysisResult is the structured legal analysis of one document.
type AnalysisResult struct {
	Summary         string      `json:"summary"`
	Details         string      `json:"details"`
	Recommendations []string    `json:"recommendations"`
	References      []Reference `json:"references"`
	Outcomes        []Outcome   `json:"outcomes"`
}

type Reference struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outcome is one possible scenario. Probability is a percentage in [0, 100].
type Outcome struct {
	ID          string  `json:"id"`
	Scenario    string  `json:"scenario"`
	Probability float64 `json:"probability"`
	Reasoning   string  `json:"reasoning"`
}

// EnsureLists replaces nil lists with empty ones so they marshal as [].
func (a *AnalysisResult) EnsureLists() {
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	if a.References == nil {
		a.References = []Reference{}
	}
	if a.Outcomes == nil {
		a.Outcomes = []Outcome{}
	}
}
