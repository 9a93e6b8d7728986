// Package query defines the filter DSL for datasets: a recursive expression
// tree of typed conditions and logical groups, schema-aware validation, and
// translation into the wire documents storage backends consume.
package query

import "encoding/json"

// ComparisonOperator defines the set of operators usable in a condition.
type ComparisonOperator string

// Supported comparison operators.
const (
	ComparisonOperatorEq  ComparisonOperator = "eq"
	ComparisonOperatorNe  ComparisonOperator = "ne"
	ComparisonOperatorGt  ComparisonOperator = "gt"
	ComparisonOperatorGte ComparisonOperator = "gte"
	ComparisonOperatorLt  ComparisonOperator = "lt"
	ComparisonOperatorLte ComparisonOperator = "lte"
)

// LogicalOperator combines the expressions of a filter group.
type LogicalOperator string

// Supported logical operators.
const (
	LogicalOperatorAnd LogicalOperator = "and"
	LogicalOperatorOr  LogicalOperator = "or"
)

// SortOrder specifies the direction for sorting a result key.
type SortOrder string

// Supported sort orders.
const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// FilterCondition is a leaf of the expression tree: one field compared
// against one value.
type FilterCondition struct {
	Field    string             `json:"field"`
	Operator ComparisonOperator `json:"operator"`
	Value    any                `json:"value"`
}

// FilterGroup combines one or more expressions under a logical operator.
type FilterGroup struct {
	Operator    LogicalOperator `json:"operator"`
	Expressions []FilterNode    `json:"expressions"`
}

// FilterNode is a union of a single condition or a nested group. Exactly one
// of the two is set.
type FilterNode struct {
	Condition *FilterCondition
	Group     *FilterGroup
}

// MarshalJSON flattens the union: a condition node serializes as the
// condition object, a group node as the group object.
func (n FilterNode) MarshalJSON() ([]byte, error) {
	if n.Condition != nil {
		return json.Marshal(n.Condition)
	}
	return json.Marshal(n.Group)
}

// UnmarshalJSON restores the union. An object is a condition iff it carries
// a "field" key; otherwise it is treated as a group.
func (n *FilterNode) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["field"]; ok {
		n.Condition = &FilterCondition{}
		return json.Unmarshal(data, n.Condition)
	}
	n.Group = &FilterGroup{}
	return json.Unmarshal(data, n.Group)
}

// AggregationField requests one aggregation over one field.
type AggregationField struct {
	Field     string `json:"field"`
	Operation string `json:"operation"`
	Alias     string `json:"alias,omitempty"`
}

// ResolvedAlias returns the result key for the aggregation: the explicit
// alias when set, otherwise "<field>_<operation>".
func (a AggregationField) ResolvedAlias() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Field + "_" + a.Operation
}

// RecordQuery describes a full query over a dataset: optional filtering,
// grouping, aggregation, ordering, and a result bound.
type RecordQuery struct {
	Filter       *FilterNode          `json:"filter,omitempty"`
	GroupBy      []string             `json:"group_by,omitempty"`
	Aggregations []AggregationField   `json:"aggregations,omitempty"`
	Sort         map[string]SortOrder `json:"sort,omitempty"`
	Limit        int64                `json:"limit,omitempty"`
}
