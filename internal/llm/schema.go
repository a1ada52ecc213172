package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// AnalysisFields are the required top-level keys of an AnalysisResult.
var AnalysisFields = []string{"summary", "details", "recommendations", "references", "outcomes"}

// BuildAnalysisJSONSchema returns the JSON-Schema an AnalysisResult document must satisfy
// after coercion.
func BuildAnalysisJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	reference := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "string", "minLength": 1},
			"title":       str,
			"description": str,
		},
		"required": []string{"id", "title", "description"},
	}
	outcome := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "string", "minLength": 1},
			"scenario":    str,
			"probability": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"reasoning":   str,
		},
		"required": []string{"id", "scenario", "probability", "reasoning"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary":         str,
			"details":         str,
			"recommendations": map[string]any{"type": "array", "items": str},
			"references":      map[string]any{"type": "array", "items": reference},
			"outcomes":        map[string]any{"type": "array", "items": outcome},
		},
		"required": AnalysisFields,
	}
}

// CompileSchema compiles a schema map with the jsonschema/v5 compiler.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

var analysisSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema(BuildAnalysisJSONSchema())
})

// ValidateAnalysis checks a decoded JSON document against the analysis schema.
func ValidateAnalysis(doc any) error {
	schema, err := analysisSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
