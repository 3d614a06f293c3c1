package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Model responses are untrusted input. Each sub-result is validated
// against a schema before use; a validation failure is treated exactly
// like a failed model call.

const primaryIntentSchema = `{
	"type": "object",
	"required": ["canAutoRespond", "confidence"],
	"properties": {
		"canAutoRespond": {"type": "boolean"},
		"response": {"type": "string"},
		"reasoning": {"type": "string"},
		"urgencyLevel": {"type": "string", "enum": ["low", "normal", "high", "critical"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"tags": {"type": "array", "items": {"type": "string"}},
		"suggestedActions": {"type": "array", "items": {"type": "string"}}
	}
}`

const sentimentSchema = `{
	"type": "object",
	"required": ["sentiment", "confidence"],
	"properties": {
		"sentiment": {"type": "string", "enum": ["positive", "neutral", "negative"]},
		"emotions": {"type": "array", "items": {"type": "string"}},
		"frustrationScore": {"type": "number", "minimum": 0, "maximum": 100},
		"satisfactionScore": {"type": "number", "minimum": 0, "maximum": 100},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"tags": {"type": "array", "items": {"type": "string"}}
	}
}`

const intentSchema = `{
	"type": "object",
	"required": ["primary", "confidence"],
	"properties": {
		"primary": {"type": "string"},
		"secondary": {"type": "array", "items": {"type": "string"}},
		"actions": {"type": "array", "items": {"type": "string"}},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"tags": {"type": "array", "items": {"type": "string"}}
	}
}`

var schemas = mustCompileSchemas(map[string]string{
	"primary.json":   primaryIntentSchema,
	"sentiment.json": sentimentSchema,
	"intent.json":    intentSchema,
})

func mustCompileSchemas(sources map[string]string) map[string]*jsonschema.Schema {
	c := jsonschema.NewCompiler()
	for name, src := range sources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			panic(fmt.Sprintf("ai: schema %s: %v", name, err))
		}
		if err := c.AddResource(name, doc); err != nil {
			panic(fmt.Sprintf("ai: schema %s: %v", name, err))
		}
	}
	out := make(map[string]*jsonschema.Schema, len(sources))
	for name := range sources {
		out[name] = c.MustCompile(name)
	}
	return out
}

// decodeValidated parses raw model output, validates it against the
// named schema and unmarshals it into out.
func decodeValidated(schemaName, raw string, out any) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("model output is not valid JSON: %w", err)
	}
	if err := schemas[schemaName].Validate(inst); err != nil {
		return fmt.Errorf("model output failed validation: %w", err)
	}
	return json.Unmarshal([]byte(raw), out)
}
