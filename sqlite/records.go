package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/query"
	"github.com/asaidimu/go-docstore/core/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InsertRecord validates the data against the dataset schema and stores a
// new record.
func (s *Store) InsertRecord(ctx context.Context, datasetName string, data core.RecordData) (*core.Record, error) {
	result, err := s.withEvents("create", datasetName,
		core.RecordCreateStart, core.RecordCreateSuccess, core.RecordCreateFailed,
		data,
		func() (any, error) {
			ds, err := getDataset(ctx, s.db, datasetName)
			if err != nil {
				return nil, err
			}
			validated, err := s.validator.ValidateRecord(ds.Schema, data)
			if err != nil {
				return nil, err
			}
			if err := s.checkUnique(ctx, ds, validated, ""); err != nil {
				return nil, err
			}

			now := time.Now().UTC()
			r := &core.Record{
				ID:        uuid.NewString(),
				Owner:     s.owner,
				DatasetID: ds.ID,
				Data:      validated,
				CreatedAt: now,
				UpdatedAt: now,
			}
			raw, err := encodeRecordData(r.Data)
			if err != nil {
				return nil, &StoreError{Op: "insert record", Err: err}
			}
			if _, err := s.db.ExecContext(ctx,
				`INSERT INTO records (id, owner, dataset_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
				r.ID, r.Owner, r.DatasetID, string(raw), r.CreatedAt, r.UpdatedAt); err != nil {
				return nil, &StoreError{Op: "insert record", Err: err}
			}

			s.logger.Debug("record inserted",
				zap.String("dataset", datasetName), zap.String("record", r.ID))
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	return result.(*core.Record), nil
}

// Record loads a single record by id.
func (s *Store) Record(ctx context.Context, datasetName, id string) (*core.Record, error) {
	ds, err := getDataset(ctx, s.db, datasetName)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, dataset_id, data, created_at, updated_at FROM records WHERE id = ? AND dataset_id = ?`,
		id, ds.ID)
	r, err := scanRecord(row, ds.Schema)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "record", Name: id}
	}
	return r, err
}

// UpdateRecord validates a partial change set, merges it into the stored
// record, and writes the result back.
func (s *Store) UpdateRecord(ctx context.Context, datasetName, id string, changes core.RecordData) (*core.Record, error) {
	result, err := s.withEvents("update", datasetName,
		core.RecordUpdateStart, core.RecordUpdateSuccess, core.RecordUpdateFailed,
		changes,
		func() (any, error) {
			ds, err := getDataset(ctx, s.db, datasetName)
			if err != nil {
				return nil, err
			}
			validated, err := s.validator.ValidateChanges(ds.Schema, changes)
			if err != nil {
				return nil, err
			}

			r, err := s.Record(ctx, datasetName, id)
			if err != nil {
				return nil, err
			}
			merged := r.Data.Clone()
			for k, v := range validated {
				if v == nil {
					delete(merged, k)
					continue
				}
				merged[k] = v
			}
			if err := s.checkUnique(ctx, ds, merged, r.ID); err != nil {
				return nil, err
			}

			r.Data = merged
			r.UpdatedAt = time.Now().UTC()
			if err := writeRecordData(ctx, s.db, r); err != nil {
				return nil, err
			}
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	return result.(*core.Record), nil
}

// DeleteRecord removes a record by id.
func (s *Store) DeleteRecord(ctx context.Context, datasetName, id string) error {
	_, err := s.withEvents("delete", datasetName,
		core.RecordDeleteStart, core.RecordDeleteSuccess, core.RecordDeleteFailed,
		id,
		func() (any, error) {
			ds, err := getDataset(ctx, s.db, datasetName)
			if err != nil {
				return nil, err
			}
			res, err := s.db.ExecContext(ctx,
				`DELETE FROM records WHERE id = ? AND dataset_id = ?`, id, ds.ID)
			if err != nil {
				return nil, &StoreError{Op: "delete record", Err: err}
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, &StoreError{Op: "delete record", Err: err}
			}
			if affected == 0 {
				return nil, &NotFoundError{Kind: "record", Name: id}
			}
			return affected, nil
		})
	return err
}

// QueryRecords validates the query against the dataset schema and returns
// the matching records, ordered and bounded as requested.
func (s *Store) QueryRecords(ctx context.Context, datasetName string, q *query.RecordQuery) ([]*core.Record, error) {
	ds, err := getDataset(ctx, s.db, datasetName)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = &query.RecordQuery{}
	}
	validated, err := q.Validate(s.registry, ds.Schema)
	if err != nil {
		return nil, err
	}
	filter, err := query.BuildFilterDocument(validated.Filter)
	if err != nil {
		return nil, err
	}

	records, err := loadRecords(ctx, s.db, ds.ID, ds.Schema)
	if err != nil {
		return nil, err
	}

	matched := records[:0]
	for _, r := range records {
		ok, err := matchDocument(filter, r)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	sortRecords(matched, validated.Sort)
	if validated.Limit > 0 && int64(len(matched)) > validated.Limit {
		matched = matched[:validated.Limit]
	}
	return matched, nil
}

// Aggregate validates the query, groups the matching records, and computes
// the requested aggregations. Each result row holds the group-by values plus
// one key per aggregation alias.
func (s *Store) Aggregate(ctx context.Context, datasetName string, q *query.RecordQuery) ([]core.Document, error) {
	ds, err := getDataset(ctx, s.db, datasetName)
	if err != nil {
		return nil, err
	}
	if q == nil || len(q.Aggregations) == 0 {
		return nil, &query.QueryError{Reason: "aggregation query needs at least one aggregation"}
	}
	validated, err := q.Validate(s.registry, ds.Schema)
	if err != nil {
		return nil, err
	}
	filter, err := query.BuildFilterDocument(validated.Filter)
	if err != nil {
		return nil, err
	}

	records, err := loadRecords(ctx, s.db, ds.ID, ds.Schema)
	if err != nil {
		return nil, err
	}
	var matched []*core.Record
	for _, r := range records {
		ok, err := matchDocument(filter, r)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	rows := aggregateRecords(matched, ds.Schema, validated)
	sortDocuments(rows, validated.Sort)
	if validated.Limit > 0 && int64(len(rows)) > validated.Limit {
		rows = rows[:validated.Limit]
	}
	return rows, nil
}

// aggregateRecords buckets records by the group-by values and reduces each
// bucket. With no group-by fields everything collapses into one bucket.
func aggregateRecords(records []*core.Record, fields schema.DatasetSchema, q *query.RecordQuery) []core.Document {
	type bucket struct {
		key     core.Document
		members []*core.Record
	}

	buckets := make(map[string]*bucket)
	var order []string
	for _, r := range records {
		key := make(core.Document, len(q.GroupBy))
		id := ""
		for _, f := range q.GroupBy {
			key[f] = r.Data[f]
			id += fmt.Sprintf("%v\x00", r.Data[f])
		}
		b, ok := buckets[id]
		if !ok {
			b = &bucket{key: key}
			buckets[id] = b
			order = append(order, id)
		}
		b.members = append(b.members, r)
	}

	rows := make([]core.Document, 0, len(buckets))
	for _, id := range order {
		b := buckets[id]
		row := make(core.Document, len(q.GroupBy)+len(q.Aggregations))
		for k, v := range b.key {
			row[k] = v
		}
		for _, agg := range q.Aggregations {
			f, _ := fields.Field(agg.Field)
			row[agg.ResolvedAlias()] = reduce(b.members, f, agg.Operation)
		}
		rows = append(rows, row)
	}
	return rows
}

func reduce(members []*core.Record, f schema.SchemaField, operation string) any {
	if operation == string(schema.AggregationCount) {
		return int64(len(members))
	}

	var values []any
	for _, r := range members {
		if v, ok := r.Data[f.FieldName]; ok && v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}

	switch schema.AggregationType(operation) {
	case schema.AggregationSum, schema.AggregationAvg:
		var sum float64
		for _, v := range values {
			n, _ := core.ToFloat64(v)
			sum += n
		}
		if schema.AggregationType(operation) == schema.AggregationAvg {
			return sum / float64(len(values))
		}
		if f.Type == schema.FieldTypeInteger {
			return int64(sum)
		}
		return sum
	case schema.AggregationMin, schema.AggregationMax:
		best := values[0]
		for _, v := range values[1:] {
			c := compareValuesForSort(v, best)
			if (schema.AggregationType(operation) == schema.AggregationMin && c < 0) ||
				(schema.AggregationType(operation) == schema.AggregationMax && c > 0) {
				best = v
			}
		}
		return best
	default:
		return nil
	}
}

// checkUnique scans the dataset for another record holding the same value in
// any unique field. excludeID skips the record being updated.
func (s *Store) checkUnique(ctx context.Context, ds *core.Dataset, data core.RecordData, excludeID string) error {
	var uniqueFields []schema.SchemaField
	for _, f := range ds.Schema {
		if f.Unique {
			if v, ok := data[f.FieldName]; ok && v != nil {
				uniqueFields = append(uniqueFields, f)
			}
		}
	}
	if len(uniqueFields) == 0 {
		return nil
	}

	records, err := loadRecords(ctx, s.db, ds.ID, ds.Schema)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == excludeID {
			continue
		}
		for _, f := range uniqueFields {
			existing, ok := r.Data[f.FieldName]
			if !ok || existing == nil {
				continue
			}
			if fmt.Sprint(existing) == fmt.Sprint(data[f.FieldName]) {
				return &ConflictError{Kind: "record", Name: f.FieldName,
					Reason: fmt.Sprintf("value %v already used by record %s", existing, r.ID)}
			}
		}
	}
	return nil
}

func loadRecords(ctx context.Context, runner dbRunner, datasetID string, fields schema.DatasetSchema) ([]*core.Record, error) {
	rows, err := runner.QueryContext(ctx,
		`SELECT id, owner, dataset_id, data, created_at, updated_at FROM records WHERE dataset_id = ? ORDER BY created_at, id`,
		datasetID)
	if err != nil {
		return nil, &StoreError{Op: "load records", Err: err}
	}
	defer rows.Close()

	var records []*core.Record
	for rows.Next() {
		r, err := scanRecord(rows, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRecord(row rowScanner, fields schema.DatasetSchema) (*core.Record, error) {
	var r core.Record
	var raw string
	if err := row.Scan(&r.ID, &r.Owner, &r.DatasetID, &raw, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, &StoreError{Op: "scan record", Err: err}
	}
	data, err := decodeRecordData(fields, []byte(raw))
	if err != nil {
		return nil, &StoreError{Op: "scan record", Err: err}
	}
	r.Data = data
	return &r, nil
}

func writeRecordData(ctx context.Context, runner dbRunner, r *core.Record) error {
	raw, err := encodeRecordData(r.Data)
	if err != nil {
		return &StoreError{Op: "write record", Err: err}
	}
	if _, err := runner.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = ? WHERE id = ?`,
		string(raw), r.UpdatedAt, r.ID); err != nil {
		return &StoreError{Op: "write record", Err: err}
	}
	return nil
}

// sortRecords orders records by the sort keys applied in alphabetical key
// order, so multi-key sorts are deterministic.
func sortRecords(records []*core.Record, keys map[string]query.SortOrder) {
	if len(keys) == 0 {
		return
	}
	names := sortedSortKeys(keys)
	sort.SliceStable(records, func(i, j int) bool {
		for _, name := range names {
			c := compareValuesForSort(records[i].Data[name], records[j].Data[name])
			if c == 0 {
				continue
			}
			if keys[name] == query.SortDescending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func sortDocuments(rows []core.Document, keys map[string]query.SortOrder) {
	if len(keys) == 0 {
		return
	}
	names := sortedSortKeys(keys)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, name := range names {
			c := compareValuesForSort(rows[i][name], rows[j][name])
			if c == 0 {
				continue
			}
			if keys[name] == query.SortDescending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func sortedSortKeys(keys map[string]query.SortOrder) []string {
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
