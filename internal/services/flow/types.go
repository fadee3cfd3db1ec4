package flow

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// EntityRef identifies a tracker entity. It marshals to the {type, id} form
// the API accepts for entity fields.
type EntityRef struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Ref builds an EntityRef.
func Ref(entityType string, id int) EntityRef {
	return EntityRef{Type: entityType, ID: id}
}

// IsZero reports whether the reference is unset.
func (r EntityRef) IsZero() bool { return r.Type == "" && r.ID == 0 }

// Filter is a single [field, relation, values...] condition.
type Filter struct {
	Field    string
	Relation string
	Values   []any
}

// Is matches field equal to value.
func Is(field string, value any) Filter {
	return Filter{Field: field, Relation: "is", Values: []any{value}}
}

// In matches field equal to any of values.
func In(field string, values ...any) Filter {
	return Filter{Field: field, Relation: "in", Values: values}
}

// MarshalJSON renders the array format: ["code", "is", "Tree02"].
func (f Filter) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, 2+len(f.Values))
	out = append(out, f.Field, f.Relation)
	if f.Relation == "in" {
		out = append(out, f.Values)
	} else {
		out = append(out, f.Values...)
	}
	return json.Marshal(out)
}

// Record is one entity returned by the API. Attribute fields and
// relationship fields are kept apart the way the API returns them.
type Record struct {
	Type       string
	ID         int
	Attributes map[string]any
	Relations  map[string][]EntityRef
}

// Text returns a string attribute, or "".
func (r Record) Text(field string) string {
	if v, ok := r.Attributes[field].(string); ok {
		return v
	}
	return ""
}

// Ref returns the first entity linked through field.
func (r Record) Ref(field string) (EntityRef, bool) {
	refs := r.Relations[field]
	if len(refs) == 0 {
		return EntityRef{}, false
	}
	return refs[0], true
}

// Refs returns every entity linked through field.
func (r Record) Refs(field string) []EntityRef {
	return append([]EntityRef(nil), r.Relations[field]...)
}

// EntityRef returns a reference to the record itself, named after nameField.
func (r Record) EntityRef(nameField string) EntityRef {
	return EntityRef{Type: r.Type, ID: r.ID, Name: r.Text(nameField)}
}

type resource struct {
	Type          string                     `json:"type"`
	ID            int                        `json:"id"`
	Attributes    map[string]any             `json:"attributes"`
	Relationships map[string]json.RawMessage `json:"relationships"`
}

type relationship struct {
	Data json.RawMessage `json:"data"`
}

func (res resource) record() (Record, error) {
	rec := Record{
		Type:       res.Type,
		ID:         res.ID,
		Attributes: res.Attributes,
		Relations:  make(map[string][]EntityRef, len(res.Relationships)),
	}
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	for field, raw := range res.Relationships {
		var rel relationship
		if err := json.Unmarshal(raw, &rel); err != nil {
			return Record{}, fmt.Errorf("decode relationship %s: %w", field, err)
		}
		refs, err := decodeRefs(rel.Data)
		if err != nil {
			return Record{}, fmt.Errorf("decode relationship %s: %w", field, err)
		}
		rec.Relations[field] = refs
	}
	return rec, nil
}

func decodeRefs(raw json.RawMessage) ([]EntityRef, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil, nil
	case strings.HasPrefix(trimmed, "["):
		var refs []EntityRef
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, err
		}
		return refs, nil
	default:
		var ref EntityRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, err
		}
		return []EntityRef{ref}, nil
	}
}

// entityPath converts an entity type to its collection path segment:
// HumanUser -> human_users.
func entityPath(entityType string) string {
	var b strings.Builder
	for i, r := range entityType {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String() + "s"
}
