package control

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// configPatchSchema constrains config.patch documents before they are sent.
// The gateway owns the full config schema; client-side validation only
// rejects shapes that can never be valid: non-object documents, empty
// patches, and non-string keys inside the channels section.
const configPatchSchema = `{
	"type": "object",
	"minProperties": 1,
	"properties": {
		"channels": {
			"type": "object",
			"additionalProperties": { "type": "object" }
		},
		"gateway": { "type": "object" },
		"scheduler": { "type": "object" }
	}
}`

// patchValidator validates config patch documents against the compiled
// schema.
type patchValidator struct {
	schema *jsonschema.Schema
}

func newPatchValidator() (*patchValidator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(configPatchSchema))
	if err != nil {
		return nil, fmt.Errorf("compile config patch schema: %w", err)
	}
	return &patchValidator{schema: schema}, nil
}

func (v *patchValidator) validate(patch map[string]any) error {
	if len(patch) == 0 {
		return fmt.Errorf("empty patch")
	}
	result := v.schema.Validate(patch)
	if !result.IsValid() {
		return fmt.Errorf("invalid patch: %s", result.Error())
	}
	return nil
}
