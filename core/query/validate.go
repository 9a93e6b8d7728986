package query

import (
	"fmt"

	"github.com/asaidimu/go-docstore/core/schema"
)

// ValidateFilter checks an expression tree against a dataset schema and
// returns a copy with every condition value coerced through the field's type
// validator. The input tree is left untouched.
func ValidateFilter(reg *schema.Registry, fields schema.DatasetSchema, node *FilterNode) (*FilterNode, error) {
	if node == nil {
		return nil, nil
	}
	return validateFilter(reg, fields, node, 1)
}

func validateFilter(reg *schema.Registry, fields schema.DatasetSchema, node *FilterNode, depth int) (*FilterNode, error) {
	if depth > MaxFilterDepth {
		return nil, &QueryError{Reason: fmt.Sprintf("filter nesting exceeds %d levels", MaxFilterDepth)}
	}

	switch {
	case node.Condition != nil:
		c := node.Condition
		f, ok := fields.Field(c.Field)
		if !ok {
			return nil, &QueryError{Fields: []string{c.Field}, Reason: "field does not exist in the dataset schema"}
		}
		if _, ok := comparisonCodes[c.Operator]; !ok {
			return nil, &QueryError{Fields: []string{c.Field}, Reason: fmt.Sprintf("unknown comparison operator %q", c.Operator)}
		}
		v, err := reg.FieldValidator(f)
		if err != nil {
			return nil, &QueryError{Fields: []string{c.Field}, Reason: err.Error()}
		}
		coerced, err := v.Validate(c.Value)
		if err != nil {
			return nil, &QueryError{Fields: []string{c.Field}, Reason: err.Error()}
		}
		return &FilterNode{Condition: &FilterCondition{Field: c.Field, Operator: c.Operator, Value: coerced}}, nil

	case node.Group != nil:
		g := node.Group
		if _, ok := logicalCodes[g.Operator]; !ok {
			return nil, &QueryError{Reason: fmt.Sprintf("unknown logical operator %q", g.Operator)}
		}
		if len(g.Expressions) == 0 {
			return nil, &QueryError{Reason: fmt.Sprintf("%s group must contain at least one expression", g.Operator)}
		}
		out := &FilterGroup{Operator: g.Operator, Expressions: make([]FilterNode, 0, len(g.Expressions))}
		for i := range g.Expressions {
			child, err := validateFilter(reg, fields, &g.Expressions[i], depth+1)
			if err != nil {
				return nil, err
			}
			out.Expressions = append(out.Expressions, *child)
		}
		return &FilterNode{Group: out}, nil

	default:
		return nil, &QueryError{Reason: "filter node has neither a condition nor a group"}
	}
}

// Validate checks the query against a dataset schema and returns a
// normalized copy: filter values coerced, aggregation aliases resolved.
//
// Group-by fields must exist; each aggregation must name an existing field
// and an operation valid for its type; sort keys must be schema fields or
// aggregation result keys. Invalid sort keys are reported together.
func (q *RecordQuery) Validate(reg *schema.Registry, fields schema.DatasetSchema) (*RecordQuery, error) {
	out := &RecordQuery{Limit: q.Limit}

	if q.Limit < 0 {
		return nil, &QueryError{Reason: "limit cannot be negative"}
	}

	for _, name := range q.GroupBy {
		if !fields.HasField(name) {
			return nil, &QueryError{Fields: []string{name}, Reason: "group-by field does not exist in the dataset schema"}
		}
	}
	out.GroupBy = append(out.GroupBy, q.GroupBy...)

	aliases := make(map[string]struct{}, len(q.Aggregations))
	for _, agg := range q.Aggregations {
		f, ok := fields.Field(agg.Field)
		if !ok {
			return nil, &QueryError{Fields: []string{agg.Field}, Reason: "aggregation field does not exist in the dataset schema"}
		}
		op := schema.AggregationType(agg.Operation)
		if !schema.CanAggregate(f.Type, op) {
			return nil, &QueryError{Fields: []string{agg.Field}, Reason: fmt.Sprintf(
				"aggregation %q is not valid for %s fields", agg.Operation, f.Type)}
		}
		alias := agg.ResolvedAlias()
		if _, dup := aliases[alias]; dup {
			return nil, &QueryError{Fields: []string{alias}, Reason: "duplicate aggregation alias"}
		}
		aliases[alias] = struct{}{}
		agg.Alias = alias
		out.Aggregations = append(out.Aggregations, agg)
	}

	filter, err := ValidateFilter(reg, fields, q.Filter)
	if err != nil {
		return nil, err
	}
	out.Filter = filter

	if len(q.Sort) > 0 {
		var invalid []string
		out.Sort = make(map[string]SortOrder, len(q.Sort))
		for key, order := range q.Sort {
			if order != SortAscending && order != SortDescending {
				return nil, &QueryError{Fields: []string{key}, Reason: fmt.Sprintf("unknown sort order %q", order)}
			}
			_, isAlias := aliases[key]
			if !fields.HasField(key) && !isAlias {
				invalid = append(invalid, key)
				continue
			}
			out.Sort[key] = order
		}
		if len(invalid) > 0 {
			return nil, &QueryError{Fields: invalid, Reason: "sort key is neither a schema field nor an aggregation alias"}
		}
	}

	return out, nil
}
