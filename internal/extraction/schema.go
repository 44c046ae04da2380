package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaMap builds the JSON Schema describing a Payload. The map form is
// embedded into the extraction prompt and compiled for validation.
func SchemaMap() map[string]any {
	optionalText := func(desc string) map[string]any {
		return map[string]any{
			"type":        []string{"string", "null"},
			"description": desc,
		}
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"medicines", "medications_details"},
		"properties": map[string]any{
			"medicines": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Names of the medicines prescribed in this document.",
			},
			"medications_details": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name"},
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"dose":      map[string]any{"type": []string{"string", "null"}},
						"frequency": map[string]any{"type": []string{"string", "null"}},
					},
				},
				"description": "Structured dose and frequency per medicine where legible.",
			},
			"additional_info":      optionalText("Any other notes on the document."),
			"present_conditions":   optionalText("Conditions the patient currently has."),
			"diagnosed_conditions": optionalText("Conditions diagnosed in this document."),
			"medications_past":     optionalText("Past medications mentioned."),
			"allergies":            optionalText("Allergies mentioned."),
			"medical_history":      optionalText("Relevant medical history."),
			"family_history":       optionalText("Relevant family history."),
			"surgeries":            optionalText("Surgeries mentioned."),
			"immunizations":        optionalText("Immunizations mentioned."),
			"lifestyle_factors":    optionalText("Lifestyle factors such as smoking or alcohol."),
		},
	}
}

// SchemaJSON renders the schema as indented JSON for prompt embedding.
func SchemaJSON() string {
	b, err := json.MarshalIndent(SchemaMap(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

const schemaURL = "inline://extraction-payload.json"

func compileSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(SchemaMap())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks a normalized payload against the JSON Schema. It is used
// on user-supplied corrections before they replace a stored extraction.
func Validate(p *Payload) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
