package login

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// OmitPolicy decides when a field is left out of the data-check string.
type OmitPolicy int

const (
	// OmitInherit uses the schema's DefaultOmit.
	OmitInherit OmitPolicy = iota
	// OmitNever always includes the field, writing "null" for nil values.
	OmitNever
	// OmitNull drops the field when its value is nil.
	OmitNull
	// OmitZero drops the field when its value is nil or its type's zero value.
	OmitZero
)

// Field declares one signed field of a payload type T.
type Field[T any] struct {
	Name  string
	Omit  OmitPolicy
	Value func(*T) any
}

// Schema lists the signed fields of a payload type and where to find its
// hash and authentication date. Build it with NewSchema.
type Schema[T any] struct {
	Fields []Field[T]

	// DefaultOmit applies to fields declared with OmitInherit. The zero
	// value means OmitNull.
	DefaultOmit OmitPolicy

	// HashField is the wire name of the hash; it never takes part in the
	// data-check string. Defaults to "hash".
	HashField string

	Hash     func(*T) string
	AuthDate func(*T) (time.Time, bool)
}

// NewSchema checks s and returns a copy with its fields sorted by name and
// the hash field removed.
func NewSchema[T any](s Schema[T]) (*Schema[T], error) {
	if s.Hash == nil {
		return nil, fmt.Errorf("login: schema: hash accessor is required")
	}
	if s.HashField == "" {
		s.HashField = "hash"
	}
	if s.DefaultOmit == OmitInherit {
		s.DefaultOmit = OmitNull
	}

	fields := make([]Field[T], 0, len(s.Fields))
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || f.Value == nil {
			return nil, fmt.Errorf("login: schema: field %q needs a name and an accessor", f.Name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("login: schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Name == s.HashField {
			continue
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	s.Fields = fields
	return &s, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package-level schema declarations.
func MustSchema[T any](s Schema[T]) *Schema[T] {
	schema, err := NewSchema(s)
	if err != nil {
		panic(err)
	}
	return schema
}

// DataCheckString returns the "name=value" lines of p's signed fields,
// sorted by name and joined by "\n".
func (s *Schema[T]) DataCheckString(p *T) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nil payload", ErrInvalidArgument)
	}
	lines := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		v := f.Value(p)
		if s.omitted(f.Omit, v) {
			continue
		}
		text, err := fieldText(v)
		if err != nil {
			return "", fmt.Errorf("login: field %s: %w", f.Name, err)
		}
		lines = append(lines, f.Name+"="+text)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Schema[T]) omitted(policy OmitPolicy, v any) bool {
	if policy == OmitInherit {
		policy = s.DefaultOmit
	}
	switch policy {
	case OmitNull:
		return isNull(v)
	case OmitZero:
		return isNull(v) || reflect.ValueOf(v).IsZero()
	default:
		return false
	}
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// fieldText renders v as JSON; a JSON string contributes its raw content.
func fieldText(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(data), nil
}
