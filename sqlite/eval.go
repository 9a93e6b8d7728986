package sqlite

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/query"
)

// matchDocument evaluates a filter wire document against a record. Multiple
// keys in one document are an implicit conjunction. An empty document
// matches everything.
func matchDocument(doc core.Document, r *core.Record) (bool, error) {
	for key, value := range doc {
		ok, err := matchClause(key, value, r)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchClause(key string, value any, r *core.Record) (bool, error) {
	switch key {
	case "$and", "$or":
		children, err := toDocuments(value)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			ok, err := matchDocument(child, r)
			if err != nil {
				return false, err
			}
			if key == "$and" && !ok {
				return false, nil
			}
			if key == "$or" && ok {
				return true, nil
			}
		}
		return key == "$and", nil

	case "id":
		return r.ID == fmt.Sprint(value), nil
	case "dataset_id":
		return r.DatasetID == fmt.Sprint(value), nil
	case "user_id", "owner":
		// An unscoped store carries no owner; the clause matches trivially.
		if r.Owner == "" {
			return true, nil
		}
		return r.Owner == fmt.Sprint(value), nil
	}

	if field, ok := strings.CutPrefix(key, query.DataFieldPrefix); ok {
		condition, err := toDocument(value)
		if err != nil {
			return false, err
		}
		actual := r.Data[field]
		for op, expected := range condition {
			ok, err := evalCondition(op, actual, expected)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	// Envelope keys this store does not track match trivially.
	return true, nil
}

func evalCondition(op string, actual, expected any) (bool, error) {
	switch op {
	case "$eq":
		return equalValues(actual, expected), nil
	case "$ne":
		return !equalValues(actual, expected), nil
	case "$gt", "$gte", "$lt", "$lte":
		if actual == nil || expected == nil {
			return false, nil
		}
		c := compareValuesForSort(actual, expected)
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	default:
		return false, &query.QueryError{Reason: fmt.Sprintf("unknown filter operator %q", op)}
	}
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := core.ToFloat64(a); ok {
		if bf, ok := core.ToFloat64(b); ok {
			return af == bf
		}
		return false
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValuesForSort orders two values of the same field: nil first, then
// numerics, times, booleans, and strings by their natural order. Mixed or
// unknown kinds fall back to their string forms.
func compareValuesForSort(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if af, ok := core.ToFloat64(a); ok {
		if bf, ok := core.ToFloat64(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case bb:
				return -1
			default:
				return 1
			}
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toDocument(value any) (core.Document, error) {
	switch t := value.(type) {
	case core.Document:
		return t, nil
	case map[string]any:
		return core.Document(t), nil
	default:
		return nil, &query.QueryError{Reason: fmt.Sprintf("expected a document, got %T", value)}
	}
}

func toDocuments(value any) ([]core.Document, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, &query.QueryError{Reason: fmt.Sprintf("expected a list of documents, got %T", value)}
	}
	docs := make([]core.Document, 0, len(items))
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
