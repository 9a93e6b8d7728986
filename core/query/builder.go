package query

import (
	"fmt"

	"github.com/asaidimu/go-docstore/core"
)

const (
	// MaxFilterDepth bounds expression-tree nesting for building and
	// validation alike.
	MaxFilterDepth = 32
	// DataFieldPrefix namespaces record fields in wire documents, keeping
	// them apart from envelope keys like id and created_at.
	DataFieldPrefix = "data."
)

var comparisonCodes = map[ComparisonOperator]string{
	ComparisonOperatorEq:  "$eq",
	ComparisonOperatorNe:  "$ne",
	ComparisonOperatorGt:  "$gt",
	ComparisonOperatorGte: "$gte",
	ComparisonOperatorLt:  "$lt",
	ComparisonOperatorLte: "$lte",
}

var logicalCodes = map[LogicalOperator]string{
	LogicalOperatorAnd: "$and",
	LogicalOperatorOr:  "$or",
}

// ConditionBuilder starts a fluent condition on a field.
type ConditionBuilder struct {
	field string
}

// Where begins a condition on the named record field.
func Where(field string) ConditionBuilder { return ConditionBuilder{field: field} }

func (b ConditionBuilder) node(op ComparisonOperator, value any) *FilterNode {
	return &FilterNode{Condition: &FilterCondition{Field: b.field, Operator: op, Value: value}}
}

// Eq builds an equality condition.
func (b ConditionBuilder) Eq(value any) *FilterNode { return b.node(ComparisonOperatorEq, value) }

// Ne builds an inequality condition.
func (b ConditionBuilder) Ne(value any) *FilterNode { return b.node(ComparisonOperatorNe, value) }

// Gt builds a greater-than condition.
func (b ConditionBuilder) Gt(value any) *FilterNode { return b.node(ComparisonOperatorGt, value) }

// Gte builds a greater-or-equal condition.
func (b ConditionBuilder) Gte(value any) *FilterNode { return b.node(ComparisonOperatorGte, value) }

// Lt builds a less-than condition.
func (b ConditionBuilder) Lt(value any) *FilterNode { return b.node(ComparisonOperatorLt, value) }

// Lte builds a less-or-equal condition.
func (b ConditionBuilder) Lte(value any) *FilterNode { return b.node(ComparisonOperatorLte, value) }

// And combines expressions under a conjunction.
func And(expressions ...*FilterNode) *FilterNode {
	return group(LogicalOperatorAnd, expressions)
}

// Or combines expressions under a disjunction.
func Or(expressions ...*FilterNode) *FilterNode {
	return group(LogicalOperatorOr, expressions)
}

func group(op LogicalOperator, expressions []*FilterNode) *FilterNode {
	g := &FilterGroup{Operator: op, Expressions: make([]FilterNode, 0, len(expressions))}
	for _, e := range expressions {
		if e != nil {
			g.Expressions = append(g.Expressions, *e)
		}
	}
	return &FilterNode{Group: g}
}

// BuildFilterDocument translates an expression tree into the wire document a
// backend consumes: conditions become {"data.<field>": {"$op": value}} and
// groups become {"$and"/"$or": [...]}. A nil node yields an empty document
// matching all records.
func BuildFilterDocument(node *FilterNode) (core.Document, error) {
	if node == nil {
		return core.Document{}, nil
	}
	return buildFilter(node, 1)
}

func buildFilter(node *FilterNode, depth int) (core.Document, error) {
	if depth > MaxFilterDepth {
		return nil, &QueryError{Reason: fmt.Sprintf("filter nesting exceeds %d levels", MaxFilterDepth)}
	}

	switch {
	case node.Condition != nil:
		c := node.Condition
		if c.Field == "" {
			return nil, &QueryError{Reason: "condition is missing a field"}
		}
		code, ok := comparisonCodes[c.Operator]
		if !ok {
			return nil, &QueryError{Fields: []string{c.Field}, Reason: fmt.Sprintf("unknown comparison operator %q", c.Operator)}
		}
		return core.Document{DataFieldPrefix + c.Field: core.Document{code: c.Value}}, nil

	case node.Group != nil:
		g := node.Group
		code, ok := logicalCodes[g.Operator]
		if !ok {
			return nil, &QueryError{Reason: fmt.Sprintf("unknown logical operator %q", g.Operator)}
		}
		if len(g.Expressions) == 0 {
			return nil, &QueryError{Reason: fmt.Sprintf("%s group must contain at least one expression", g.Operator)}
		}
		children := make([]any, 0, len(g.Expressions))
		for i := range g.Expressions {
			child, err := buildFilter(&g.Expressions[i], depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return core.Document{code: children}, nil

	default:
		return nil, &QueryError{Reason: "filter node has neither a condition nor a group"}
	}
}
