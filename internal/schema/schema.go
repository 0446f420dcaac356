// Package schema declares the structured records the conversational agents
// collect: which fields exist, which are required, and how a candidate
// extracted by the language model is validated and finalized.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

type FieldType string

const (
	FieldText FieldType = "text"
	FieldList FieldType = "list"
	FieldEnum FieldType = "enum"
)

// Field is one entry in a record schema. Optional fields carry a Default
// that is filled in at finalization when the field was never provided.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	Prompt      string   // question shown to the user when the field is missing
	Values      []string // allowed values for FieldEnum
	Default     any      // string for text/enum, []string for list
}

type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

// Record is a candidate extraction: field name to value. Values are either
// string or []string; anything else is treated as malformed by Validate.
// A nil map, empty string, empty list, or list of only blank strings all
// count as "absent".
type Record map[string]any

// Result is the outcome of validating a candidate against a schema.
type Result struct {
	Missing   []string
	Malformed []string
}

func (r Result) Valid() bool {
	return len(r.Missing) == 0 && len(r.Malformed) == 0
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks a candidate record against the schema. It is a pure
// function and total over any candidate shape, including nil.
func (s Schema) Validate(rec Record) Result {
	var res Result
	for _, f := range s.Fields {
		val, present := presentValue(rec, f)
		if !present {
			if f.Required {
				res.Missing = append(res.Missing, f.Name)
			}
			continue
		}
		if !wellTyped(f, val) {
			res.Malformed = append(res.Malformed, f.Name)
		}
	}
	sort.Strings(res.Missing)
	sort.Strings(res.Malformed)
	return res
}

// Finalize returns a copy of rec with defaults filled in for absent optional
// fields, enum values canonicalized, and list values normalized to []string.
// Callers finalize only after Validate reports the record valid.
func (s Schema) Finalize(rec Record) Record {
	out := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		val, present := presentValue(rec, f)
		if !present {
			if !f.Required && f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		switch f.Type {
		case FieldEnum:
			out[f.Name] = canonicalEnum(f, asText(val))
		case FieldList:
			items, _ := asList(val)
			out[f.Name] = items
		default:
			out[f.Name] = strings.TrimSpace(asText(val))
		}
	}
	return out
}

// Merge overlays an extraction onto a prior candidate: a field present in
// next replaces the old value, a field absent in next keeps its old value.
// Fields are never cleared by a later turn.
func (s Schema) Merge(prev, next Record) Record {
	out := make(Record, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for _, f := range s.Fields {
		if val, present := presentValue(next, f); present {
			out[f.Name] = val
		}
	}
	return out
}

func presentValue(rec Record, f Field) (any, bool) {
	if rec == nil {
		return nil, false
	}
	val, ok := rec[f.Name]
	if !ok || val == nil {
		return nil, false
	}
	switch v := val.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}
	case []string:
		// A list holding only blank strings is as absent as an empty list.
		if items, _ := asList(v); len(items) == 0 {
			return nil, false
		}
	case []any:
		if items, ok := asList(v); ok && len(items) == 0 {
			return nil, false
		}
	}
	return val, true
}

func wellTyped(f Field, val any) bool {
	switch f.Type {
	case FieldText:
		_, ok := val.(string)
		return ok
	case FieldList:
		_, ok := asList(val)
		return ok
	case FieldEnum:
		str, ok := val.(string)
		if !ok {
			return false
		}
		return canonicalEnum(f, str) != ""
	}
	return false
}

func canonicalEnum(f Field, val string) string {
	val = strings.TrimSpace(val)
	for _, allowed := range f.Values {
		if strings.EqualFold(allowed, val) {
			return allowed
		}
	}
	return ""
}

func asText(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

// asList normalizes a list value to []string, dropping blank items.
func asList(val any) ([]string, bool) {
	switch v := val.(type) {
	case []string:
		items := make([]string, 0, len(v))
		for _, s := range v {
			if strings.TrimSpace(s) == "" {
				continue
			}
			items = append(items, s)
		}
		return items, true
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			items = append(items, s)
		}
		return items, true
	}
	return nil, false
}

// Text returns the string value of a field, or "" when absent.
func (r Record) Text(name string) string {
	if r == nil {
		return ""
	}
	if s, ok := r[name].(string); ok {
		return s
	}
	return ""
}

// List returns the list value of a field, or nil when absent.
func (r Record) List(name string) []string {
	if r == nil {
		return nil
	}
	items, ok := asList(r[name])
	if !ok {
		return nil
	}
	return items
}
