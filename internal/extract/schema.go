package extract

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// Top-level shapes only; field-level coercion happens in the decoders.
const (
	leadAnalysisSchema = `{
		"type": "object",
		"anyOf": [
			{"required": ["leadScore"]},
			{"required": ["lead_score"]},
			{"required": ["score"]}
		]
	}`

	taskPayloadSchema = `{
		"oneOf": [
			{"type": "array"},
			{
				"type": "object",
				"required": ["tasks"],
				"properties": {"tasks": {"type": "array"}}
			}
		]
	}`
)

var (
	leadAnalysisShape = mustSchema(leadAnalysisSchema)
	taskPayloadShape  = mustSchema(taskPayloadSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// validateShape checks doc against schema and reports every violation.
func validateShape(schema *gojsonschema.Schema, doc any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return eris.Wrap(err, "extract: validate shape")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return eris.Errorf("extract: shape mismatch: %s", strings.Join(msgs, "; "))
}
