package generation

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/teranos/vigil/errors"
)

// FieldType is the JSON type of a structured output field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

// Field is one property of a structured output
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Enum        []string // only for TypeString
	MaxLength   int      // runes; 0 = unbounded
	Required    bool
}

// Schema names and types a structured output. It doubles as the tool
// definition sent to the provider.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

type jsonProperty struct {
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	MaxLength   int       `json:"maxLength,omitempty"`
}

type jsonSchema struct {
	Type                 string                  `json:"type"`
	Properties           map[string]jsonProperty `json:"properties"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// JSONSchema renders s as a JSON schema object.
func (s Schema) JSONSchema() json.RawMessage {
	out := jsonSchema{
		Type:       "object",
		Properties: make(map[string]jsonProperty, len(s.Fields)),
		Required:   []string{},
	}
	for _, f := range s.Fields {
		out.Properties[f.Name] = jsonProperty{
			Type:        f.Type,
			Description: f.Description,
			Enum:        f.Enum,
			MaxLength:   f.MaxLength,
		}
		if f.Required {
			out.Required = append(out.Required, f.Name)
		}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		// only static types above
		panic(err)
	}
	return raw
}

// Decode parses raw tool arguments and validates them against s. Anything
// that does not conform is an ErrGenerationSchema; nothing is coerced.
// Integers decode to int64 and numbers to float64.
func (s Schema) Decode(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s: output is not a JSON object", s.Name), errors.ErrGenerationSchema)
	}
	if values == nil {
		return nil, errors.NewGenerationSchemaError("%s: output is null", s.Name)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.NewGenerationSchemaError("%s: unexpected data after the JSON object", s.Name)
	}

	declared := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Name] = f
	}

	var undeclared []string
	for name := range values {
		if _, ok := declared[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return nil, errors.NewGenerationSchemaError("%s: field %q is not declared", s.Name, undeclared[0])
	}

	out := make(map[string]any, len(values))
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, errors.NewGenerationSchemaError("%s: required field %q is missing", s.Name, f.Name)
			}
			continue
		}
		converted, err := f.check(v)
		if err != nil {
			return nil, errors.Wrap(err, s.Name)
		}
		out[f.Name] = converted
	}
	return out, nil
}

func (f Field) check(v any) (any, error) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, f.typeError(v)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			return nil, errors.NewGenerationSchemaError("field %q: %q is not one of %v", f.Name, s, f.Enum)
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			return nil, errors.NewGenerationSchemaError("field %q: length %d exceeds %d", f.Name, utf8.RuneCountInString(s), f.MaxLength)
		}
		return s, nil
	case TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return nil, f.typeError(v)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, f.typeError(v)
		}
		return i, nil
	case TypeNumber:
		n, ok := v.(json.Number)
		if !ok {
			return nil, f.typeError(v)
		}
		x, err := n.Float64()
		if err != nil {
			return nil, f.typeError(v)
		}
		return x, nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, f.typeError(v)
		}
		return b, nil
	default:
		return nil, errors.Newf("field %q has unsupported type %q", f.Name, f.Type)
	}
}

func (f Field) typeError(v any) error {
	return errors.NewGenerationSchemaError("field %q: expected %s, got %s", f.Name, f.Type, jsonTypeName(v))
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "null"
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
