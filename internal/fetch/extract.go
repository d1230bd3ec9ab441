package fetch

import (
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Extraction helpers over decoded JSON documents. Field mappings carry a
// JMESPath expression per canonical field; a missing path, failed expression,
// or mismatched type degrades the field to unset rather than failing the
// whole repository record.

func extractValue(expr string, doc any) any {
	out, err := jmespath.Search(expr, doc)
	if err != nil {
		return nil
	}
	return out
}

func extractString(expr string, doc any) *string {
	s, ok := extractValue(expr, doc).(string)
	if !ok {
		return nil
	}
	return &s
}

func extractInt(expr string, doc any) *int {
	// encoding/json decodes numbers as float64.
	f, ok := extractValue(expr, doc).(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func extractTime(expr string, doc any) *time.Time {
	s, ok := extractValue(expr, doc).(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func extractStringList(expr string, doc any) []string {
	raw, ok := extractValue(expr, doc).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
