package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
)

// ErrMalformedFilterSpec rejects a spec before any store access.
var ErrMalformedFilterSpec = errors.New("malformed filter spec")

type Operator string

const (
	OpEq       Operator = "eq"
	OpContains Operator = "contains"
)

// Filter is one conjunctive condition. Field is free text resolved through the
// alias table.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Spec is an ordered, conjunctive filter list.
type Spec []Filter

const specSchemaURL = "https://ogdash2.local/schemas/filter-spec.json"

const specSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["field", "value"],
    "properties": {
      "field": {"type": "string", "minLength": 1},
      "operator": {"type": "string"},
      "op": {"type": "string"},
      "value": {"type": ["string", "number", "boolean"]}
    },
    "anyOf": [
      {"required": ["operator"]},
      {"required": ["op"]}
    ]
  }
}`

var loadSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(specSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(specSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(specSchemaURL)
})

type rawFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Op       string `json:"op"`
	Value    any    `json:"value"`
}

// ParseSpec decodes and validates a JSON filter list. Anything that is not a
// list of {field, operator|op, value} objects is ErrMalformedFilterSpec.
func ParseSpec(raw []byte) (Spec, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedFilterSpec)
	}
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("compile filter schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFilterSpec, err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFilterSpec, err)
	}

	var items []rawFilter
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFilterSpec, err)
	}
	spec := make(Spec, 0, len(items))
	for _, it := range items {
		op := it.Operator
		if strings.TrimSpace(op) == "" {
			op = it.Op
		}
		value, _ := fields.Stringify(it.Value)
		spec = append(spec, Filter{Field: it.Field, Operator: Operator(op), Value: value})
	}
	return spec.Normalize()
}

// Normalize trims fields, canonicalizes operator spellings, and rejects
// unknown operators or blank field names.
func (s Spec) Normalize() (Spec, error) {
	out := make(Spec, 0, len(s))
	for i, f := range s {
		f.Field = strings.TrimSpace(f.Field)
		if f.Field == "" {
			return nil, fmt.Errorf("%w: filter %d has no field", ErrMalformedFilterSpec, i)
		}
		op, ok := canonicalOperator(string(f.Operator))
		if !ok {
			return nil, fmt.Errorf("%w: filter %d has unsupported operator %q", ErrMalformedFilterSpec, i, f.Operator)
		}
		f.Operator = op
		f.Value = strings.TrimSpace(f.Value)
		out = append(out, f)
	}
	return out, nil
}

func canonicalOperator(raw string) (Operator, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "eq", "equals", "=", "==":
		return OpEq, true
	case "contains", "like", "ilike":
		return OpContains, true
	default:
		return "", false
	}
}
