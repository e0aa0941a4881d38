package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrStructural is matched by every StructuralError.
var ErrStructural = errors.New("unexpected record structure")

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// StructuralError reports upstream records that lack keys the aggregation
// depends on. It is fatal for a run.
type StructuralError struct {
	Record string
	Fields []FieldError
}

func (e *StructuralError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%s: %s", e.Record, strings.Join(parts, "; "))
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// RequireKeys checks that raw (a JSON object) carries every dotted key path.
// A segment ending in "[]" names an array whose elements must all carry the
// rest of the path. A null leaf counts as missing: decoding it would silently
// yield a zero value.
func RequireKeys(kind string, raw []byte, paths ...string) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}

	var errs []FieldError
	for _, p := range paths {
		if !hasPath(doc, strings.Split(p, ".")) {
			errs = append(errs, FieldError{Field: p, Msg: "required"})
		}
	}
	if len(errs) == 0 {
		return nil
	}

	record := kind
	if obj, ok := doc.(map[string]any); ok {
		if id, ok := obj["id"].(string); ok && id != "" {
			record += " " + id
		}
	}
	return &StructuralError{Record: record, Fields: errs}
}

func hasPath(node any, parts []string) bool {
	if len(parts) == 0 {
		return node != nil
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return false
	}

	key, isArray := strings.CutSuffix(parts[0], "[]")
	v, ok := obj[key]
	if !ok {
		return false
	}
	if !isArray {
		return hasPath(v, parts[1:])
	}

	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if !hasPath(item, parts[1:]) {
			return false
		}
	}
	return true
}
