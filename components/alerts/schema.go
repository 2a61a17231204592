package alerts

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const optionsSchema = `{
  "type": "object",
  "required": ["column", "op", "value"],
  "properties": {
    "column": {"type": "string", "minLength": 1},
    "op": {"enum": [">", ">=", "<", "<=", "==", "!="]},
    "value": {"type": ["number", "string"]},
    "muted": {"type": "boolean"},
    "custom_subject": {"type": "string"},
    "custom_body": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("alert_options.json", strings.NewReader(optionsSchema)); err != nil {
			schemaErr = fmt.Errorf("alerts: load options schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("alert_options.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("alerts: compile options schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidateOptions checks the trigger condition before it is sent to the backend.
func ValidateOptions(opts Options) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	payload := map[string]any{
		"column": opts.Column,
		"op":     opts.Op,
		"muted":  opts.Muted,
	}
	if opts.Value != nil {
		payload["value"] = opts.Value
	}
	if opts.CustomSubject != "" {
		payload["custom_subject"] = opts.CustomSubject
	}
	if opts.CustomBody != "" {
		payload["custom_body"] = opts.CustomBody
	}
	// round-trip so Go numeric types validate as JSON numbers
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("alerts: marshal options: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("alerts: normalize options: %w", err)
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("alerts: invalid options: %w", err)
	}
	return nil
}
