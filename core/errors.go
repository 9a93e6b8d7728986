package core

import (
	"fmt"
	"sort"
	"strings"
)

// RecordError reports record data that failed validation against a dataset
// schema. Fields maps each offending field name to its failure reason, so a
// single pass surfaces every problem at once.
type RecordError struct {
	Fields map[string]string
}

func (e *RecordError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid record data: " + strings.Join(parts, "; ")
}

// FieldNames returns the offending field names in sorted order.
func (e *RecordError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
