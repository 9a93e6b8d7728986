package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNodeJSONUnion(t *testing.T) {
	node := And(
		Where("quantity").Gte(3),
		Or(
			Where("item").Eq("milk"),
			Where("item").Eq("bread"),
		),
	)

	raw, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded FilterNode
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.NotNil(t, decoded.Group)
	assert.Equal(t, LogicalOperatorAnd, decoded.Group.Operator)
	require.Len(t, decoded.Group.Expressions, 2)

	leaf := decoded.Group.Expressions[0]
	require.NotNil(t, leaf.Condition)
	assert.Equal(t, "quantity", leaf.Condition.Field)
	assert.Equal(t, ComparisonOperatorGte, leaf.Condition.Operator)

	nested := decoded.Group.Expressions[1]
	require.NotNil(t, nested.Group)
	assert.Equal(t, LogicalOperatorOr, nested.Group.Operator)
}

func TestFilterNodeUnmarshalPicksByFieldKey(t *testing.T) {
	var cond FilterNode
	require.NoError(t, json.Unmarshal([]byte(`{"field":"a","operator":"eq","value":1}`), &cond))
	require.NotNil(t, cond.Condition)
	assert.Nil(t, cond.Group)

	var grp FilterNode
	require.NoError(t, json.Unmarshal([]byte(`{"operator":"and","expressions":[{"field":"a","operator":"eq","value":1}]}`), &grp))
	require.NotNil(t, grp.Group)
	assert.Nil(t, grp.Condition)
}

func TestResolvedAlias(t *testing.T) {
	assert.Equal(t, "price_sum", AggregationField{Field: "price", Operation: "sum"}.ResolvedAlias())
	assert.Equal(t, "total", AggregationField{Field: "price", Operation: "sum", Alias: "total"}.ResolvedAlias())
}
