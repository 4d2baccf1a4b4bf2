package plugin

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/kiosk404/athena/pkg/utils/json"
)

// ArgType is the type of a tool or event argument.
type ArgType string

const (
	TypeString  ArgType = "string"
	TypeNumber  ArgType = "number"
	TypeBoolean ArgType = "boolean"
	TypeObject  ArgType = "object"
	TypeArray   ArgType = "array"
)

// Schema describes one argument or return value.
// Fields is only used by objects and Items only by arrays; both are
// serialized as "of".
type Schema struct {
	Type     ArgType
	Desc     string
	Required bool
	Fields   Args
	Items    *Schema
}

// Args maps argument names to their schema.
type Args map[string]*Schema

type schemaJSON struct {
	Type     ArgType         `json:"type"`
	Desc     string          `json:"desc"`
	Required bool            `json:"required"`
	Of       json.RawMessage `json:"of,omitempty"`
}

// String returns a string argument schema.
func String(desc string, required bool) *Schema {
	return &Schema{Type: TypeString, Desc: desc, Required: required}
}

// Number returns a number argument schema.
func Number(desc string, required bool) *Schema {
	return &Schema{Type: TypeNumber, Desc: desc, Required: required}
}

// Boolean returns a boolean argument schema.
func Boolean(desc string, required bool) *Schema {
	return &Schema{Type: TypeBoolean, Desc: desc, Required: required}
}

// Object returns an object argument schema. A nil fields map accepts any object.
func Object(desc string, required bool, fields Args) *Schema {
	return &Schema{Type: TypeObject, Desc: desc, Required: required, Fields: fields}
}

// Array returns an array argument schema. A nil items schema accepts any element.
func Array(desc string, required bool, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Desc: desc, Required: required, Items: items}
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	out := schemaJSON{Type: s.Type, Desc: s.Desc, Required: s.Required}
	var (
		of  []byte
		err error
	)
	switch {
	case s.Type == TypeObject && s.Fields != nil:
		of, err = json.Marshal(s.Fields)
	case s.Type == TypeArray && s.Items != nil:
		of, err = json.Marshal(s.Items)
	}
	if err != nil {
		return nil, err
	}
	out.Of = of
	return json.Marshal(out)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var in schemaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Schema{Type: in.Type, Desc: in.Desc, Required: in.Required}
	if len(in.Of) == 0 || string(in.Of) == "null" {
		return nil
	}
	switch in.Type {
	case TypeObject:
		return json.Unmarshal(in.Of, &s.Fields)
	case TypeArray:
		s.Items = &Schema{}
		return json.Unmarshal(in.Of, s.Items)
	}
	return nil
}

// Validate checks values against the schema. Missing optional arguments and
// unknown extra arguments are accepted. The returned error wraps
// ErrInvalidArgs and names the first offending dotted path.
func (a Args) Validate(values map[string]interface{}) error {
	if err := a.validate("", values); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

func (a Args) validate(prefix string, values map[string]interface{}) error {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := a[name]
		if s == nil {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		v, ok := values[name]
		if !ok || v == nil {
			if s.Required {
				return fmt.Errorf("%s: required argument is missing", path)
			}
			continue
		}
		if err := s.validate(path, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validate(path string, v interface{}) error {
	switch s.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return typeError(path, s.Type, v)
		}
	case TypeNumber:
		if _, ok := ToFloat(v); !ok {
			return typeError(path, s.Type, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeError(path, s.Type, v)
		}
	case TypeObject:
		m, ok := toObject(v)
		if !ok {
			return typeError(path, s.Type, v)
		}
		if s.Fields != nil {
			return s.Fields.validate(path, m)
		}
	case TypeArray:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return typeError(path, s.Type, v)
		}
		if s.Items == nil {
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			if elem == nil {
				return fmt.Errorf("%s: null element", elemPath)
			}
			if err := s.Items.validate(elemPath, elem); err != nil {
				return err
			}
		}
	}
	return nil
}

func typeError(path string, want ArgType, v interface{}) error {
	return fmt.Errorf("%s: expected %s, got %T", path, want, v)
}

func toObject(v interface{}) (map[string]interface{}, bool) {
	if m, ok := v.(map[string]interface{}); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// StringArg returns args[key] when it is a string.
func StringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// NumberArg returns args[key] as float64 when it is numeric.
func NumberArg(args map[string]interface{}, key string) (float64, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	return ToFloat(v)
}
