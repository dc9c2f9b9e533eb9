package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaValidator compiles and caches JSON Schemas for tool payloads declared
// without a generated strongly-typed codec. Dispatch uses it as the fallback
// validation path: a tool registered via ToolSpec.Payload.Schema but with no
// Codec.FromJSON is validated generically against its schema before the tool
// body runs.
type SchemaValidator struct {
	mu     sync.Mutex
	cache  map[string]*jsonschema.Schema
	schema func(name string) *jsonschema.Compiler
}

// NewSchemaValidator returns a validator with an empty compiled-schema cache.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate compiles spec.Payload.Schema on first use (cached thereafter by
// spec.Name) and checks payload against it. It returns nil if the payload has
// no schema to check against, matching tools that rely entirely on a
// generated codec for validation.
func (v *SchemaValidator) Validate(spec *ToolSpec, payload []byte) ([]FieldIssue, error) {
	if spec == nil || len(spec.Payload.Schema) == 0 {
		return nil, nil
	}
	schema, err := v.compiled(spec.Name, spec.Payload.Schema)
	if err != nil {
		return nil, fmt.Errorf("tools: compile schema for %s: %w", spec.Name, err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return []FieldIssue{{Field: "", Constraint: "invalid_field_type"}}, nil
	}

	if err := schema.Validate(doc); err != nil {
		return issuesFromValidationError(err), nil
	}
	return nil, nil
}

func (v *SchemaValidator) compiled(name string, raw []byte) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.cache[name]; ok {
		return s, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	resource := "mem://" + name
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.cache[name] = schema
	return schema, nil
}

// issuesFromValidationError flattens a jsonschema validation error tree into
// the FieldIssue shape shared with generated codec validation, so dispatch
// code does not need to distinguish the two validation sources.
func issuesFromValidationError(err error) []FieldIssue {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldIssue{{Field: "", Constraint: "invalid_field_type"}}
	}

	var issues []FieldIssue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := "/"
			if len(e.InstanceLocation) > 0 {
				field = "/" + joinPointer(e.InstanceLocation)
			}
			issues = append(issues, FieldIssue{
				Field:      field,
				Constraint: "invalid_field_type",
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return issues
}

func joinPointer(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += "/"
		}
		out += t
	}
	return out
}
