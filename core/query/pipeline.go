package query

import (
	"github.com/asaidimu/go-docstore/core"
	"github.com/google/uuid"
)

// BuildPipeline translates a validated query into an aggregation pipeline of
// wire-document stages. The first stage always scopes to the owner and
// dataset; filter, grouping, ordering, and limit stages follow as the query
// requires.
func BuildPipeline(userID, datasetID uuid.UUID, q *RecordQuery) ([]core.Document, error) {
	pipeline := []core.Document{
		{"$match": core.Document{
			"user_id":    userID.String(),
			"dataset_id": datasetID.String(),
		}},
	}

	if q.Filter != nil {
		filter, err := BuildFilterDocument(q.Filter)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, core.Document{"$match": filter})
	}

	grouped := len(q.GroupBy) > 0 || len(q.Aggregations) > 0
	if grouped {
		pipeline = append(pipeline, core.Document{"$group": buildGroupStage(q)})
	}

	if len(q.Sort) > 0 {
		sort := make(core.Document, len(q.Sort))
		for key, order := range q.Sort {
			direction := 1
			if order == SortDescending {
				direction = -1
			}
			sort[resolveSortKey(q, key, grouped)] = direction
		}
		pipeline = append(pipeline, core.Document{"$sort": sort})
	}

	if q.Limit > 0 {
		pipeline = append(pipeline, core.Document{"$limit": q.Limit})
	}

	return pipeline, nil
}

func buildGroupStage(q *RecordQuery) core.Document {
	stage := make(core.Document, len(q.Aggregations)+1)

	if len(q.GroupBy) == 0 {
		stage["_id"] = nil
	} else {
		id := make(core.Document, len(q.GroupBy))
		for _, f := range q.GroupBy {
			id[f] = "$" + DataFieldPrefix + f
		}
		stage["_id"] = id
	}

	for _, agg := range q.Aggregations {
		alias := agg.ResolvedAlias()
		if agg.Operation == "count" {
			stage[alias] = core.Document{"$sum": 1}
			continue
		}
		stage[alias] = core.Document{"$" + agg.Operation: "$" + DataFieldPrefix + agg.Field}
	}

	return stage
}

// resolveSortKey maps a sort key onto the document shape at its pipeline
// position: aggregation aliases stay as-is, group-by fields live under _id,
// and ungrouped record fields carry the data prefix.
func resolveSortKey(q *RecordQuery, key string, grouped bool) string {
	for _, agg := range q.Aggregations {
		if agg.ResolvedAlias() == key {
			return key
		}
	}
	if grouped {
		return "_id." + key
	}
	return DataFieldPrefix + key
}
