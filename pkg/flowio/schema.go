package flowio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	perrors "github.com/matzehuels/procflow/pkg/errors"
)

const schemaURL = "https://procflow.dev/schemas/flow.json"

// flowSchemaJSON is the JSON Schema of a flow document.
const flowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://procflow.dev/schemas/flow.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": "array",
      "items": { "$ref": "#/$defs/edge" }
    }
  },
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "type": {
          "oneOf": [
            { "type": "integer", "enum": [1, 2, 3, 4, 5, 6, 8, 9, 10] },
            {
              "type": "string",
              "enum": ["sequenceFlow", "startEvent", "endEvent", "userTask", "serviceTask",
                       "exclusiveGateway", "callActivity", "parallelGateway", "inclusiveGateway"]
            }
          ]
        },
        "position": {
          "type": "object",
          "required": ["x", "y"],
          "properties": {
            "x": { "type": "number" },
            "y": { "type": "number" }
          }
        },
        "width": { "type": "number", "minimum": 0 },
        "height": { "type": "number", "minimum": 0 },
        "data": {
          "type": "object",
          "properties": {
            "name": { "type": "string" },
            "properties": { "type": "object" },
            "hasError": { "type": "boolean" }
          }
        }
      }
    },
    "edge": {
      "type": "object",
      "required": ["source", "target"],
      "properties": {
        "id": { "type": "string" },
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 },
        "sourceHandle": { "type": "string" },
        "targetHandle": { "type": "string" },
        "data": {
          "type": "object",
          "properties": {
            "conditionsequenceflow": { "type": "string" }
          }
        }
      }
    }
  }
}`

var flowSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(flowSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal flow schema: %w", err)
	}
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add flow schema resource: %w", err)
	}
	return c.Compile(schemaURL)
})

// Schema returns the JSON Schema flow documents are checked against.
func Schema() string { return flowSchemaJSON }

// validate checks a decoded JSON value against the flow schema.
func validate(doc any) error {
	s, err := flowSchema()
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInternal, err, "compile flow schema")
	}
	if err := s.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

// Violations extracts the individual schema violations from an error
// returned by [Decode], one "pointer: message" string each. It returns nil
// for other errors.
func Violations(err error) []string {
	var se *SchemaError
	if !errors.As(err, &se) {
		return nil
	}
	return se.Violations
}

// SchemaError lists the schema violations of a rejected document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0]
	}
	return fmt.Sprintf("%d schema violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

func schemaError(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "validate flow")
	}
	violations := collectViolations(verr)
	if len(violations) == 0 {
		violations = []string{verr.Error()}
	}
	return perrors.Wrap(perrors.ErrCodeInvalidFormat, &SchemaError{Violations: violations}, "invalid flow document")
}

// collectViolations walks the error tree and returns the leaf messages with
// their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
