package llm

import "fmt"

// Generation settings shared by all providers.
const (
	AnalysisTemperature float32 = 0.3
	AnalysisMaxTokens           = 3000
	QATemperature       float32 = 0.3
	QAMaxTokens                 = 2000
)

// AnalysisSystemPrompt instructs the model to return the five-field analysis object.
const AnalysisSystemPrompt = `Είσαι ένας έμπειρος νομικός σύμβουλος. Ανάλυσε το παρακάτω νομικό έγγραφο και δώσε μια δομημένη απάντηση στη μορφή JSON με τα εξής πεδία:

{
  "summary": "Σύντομη περίληψη της υπόθεσης (τουλάχιστον 100 χαρακτήρες)",
  "details": "Λεπτομερής ανάλυση των νομικών ζητημάτων (τουλάχιστον 200 χαρακτήρες)",
  "recommendations": [
    "Λίστα με προτεινόμενες ενέργειες (τουλάχιστον 3 προτάσεις)"
  ],
  "references": [
    {
      "id": "ref_1",
      "title": "Τίτλος νομικής αναφοράς",
      "description": "Περιγραφή σχετικότητας"
    }
  ],
  "outcomes": [
    {
      "id": "outcome_1",
      "scenario": "Περιγραφή πιθανού σεναρίου",
      "probability": 75,
      "reasoning": "Αιτιολόγηση πιθανότητας"
    }
  ]
}

Σημαντικές οδηγίες:
1. Όλα τα πεδία είναι ΥΠΟΧΡΕΩΤΙΚΑ
2. Το 'probability' πρέπει να είναι αριθμός από 1 έως 100
3. Η λίστα 'recommendations' πρέπει να έχει τουλάχιστον 2 συστάσεις
4. Η λίστα 'outcomes' πρέπει να έχει τουλάχιστον 2 σενάρια
5. Φρόντισε η απάντησή σου να είναι ΠΑΝΤΑ έγκυρο JSON`

// QASystemPrompt asks for a grounded, law-referencing, action-oriented answer.
const QASystemPrompt = `Είσαι ένας έμπειρος νομικός σύμβουλος. Απάντησε στην ερώτηση με βάση το context που δίνεται.
Η απάντησή σου πρέπει να είναι:
1. Συγκεκριμένη και τεκμηριωμένη
2. Να αναφέρει σχετικά άρθρα νόμων όπου χρειάζεται
3. Να προτείνει συγκεκριμένες ενέργειες
4. Να επισημαίνει πιθανούς κινδύνους`

// AnalysisRequest builds the chat request for analysing document text.
func AnalysisRequest(text string) ChatRequest {
	return ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: AnalysisSystemPrompt},
			{Role: RoleUser, Content: text},
		},
		Temperature: AnalysisTemperature,
		MaxTokens:   AnalysisMaxTokens,
		JSON:        true,
	}
}

// QARequest builds the chat request for a question over a context text.
func QARequest(context, question string) ChatRequest {
	return ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: QASystemPrompt},
			{Role: RoleUser, Content: fmt.Sprintf("Context: %s\n\nΕρώτηση: %s", context, question)},
		},
		Temperature: QATemperature,
		MaxTokens:   QAMaxTokens,
	}
}
