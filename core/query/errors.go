package query

import (
	"fmt"
	"sort"
	"strings"
)

// QueryError reports an invalid query. Fields names the offending fields or
// result keys, when the failure is attributable to specific ones.
type QueryError struct {
	Fields []string
	Reason string
}

func (e *QueryError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid query: " + e.Reason
	}
	names := append([]string(nil), e.Fields...)
	sort.Strings(names)
	return fmt.Sprintf("invalid query: %s: %s", strings.Join(names, ", "), e.Reason)
}
