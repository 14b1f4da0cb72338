package routing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
)

// patchSchemaFor describes a partial update of a routing record with the
// limits the upload applies. Unknown keys are allowed and ignored.
func patchSchemaFor(s *ingest.Schema) map[string]any {
	props := make(map[string]any, len(s.Columns))
	for _, c := range s.Columns {
		p := map[string]any{"type": "string"}
		if c.MaxLen > 0 {
			p["maxLength"] = c.MaxLen
		}
		if c.NotBlank {
			p["pattern"] = `\S`
		}
		if c.Date {
			p["format"] = "date"
		}
		props[c.Field] = p
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
	}
}

func compilePatchSchema(s *ingest.Schema) (*jsonschema.Schema, error) {
	b, err := json.Marshal(patchSchemaFor(s))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("route_patch.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("route_patch.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
