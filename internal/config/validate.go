package config

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaDoc string

// Validate checks raw configuration bytes against the embedded JSON Schema
// before they are ever unmarshalled into Config.
func Validate(raw []byte) error {
	sch, err := jsonschema.CompileString("schema.json", schemaDoc)
	if err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: not valid JSON: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: schema violation: %w", err)
	}
	return nil
}
