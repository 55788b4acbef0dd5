package openai

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fragmentSchema validates the shape of model responses before they
// are mapped onto typed structures. Fields are optional because sparse
// chunks legitimately produce sparse fragments, but present fields
// must have the right types.
const fragmentSchema = `{
	"type": "object",
	"properties": {
		"vendor_name": {"type": "string"},
		"document_type": {"type": "string"},
		"pricing": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"item": {"type": "string"},
					"quantity": {"type": "string"},
					"unit_price": {"type": "string"},
					"total_price": {"type": "string"}
				}
			}
		},
		"products_or_services": {
			"type": "array",
			"items": {"type": "string"}
		},
		"delivery_terms": {"type": "string"},
		"payment_terms": {"type": "string"},
		"special_clauses": {"type": "string"},
		"notes": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

func compileFragmentSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fragment.json", strings.NewReader(fragmentSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("fragment.json")
}
