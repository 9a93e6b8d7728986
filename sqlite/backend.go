package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/query"
)

// Backend adapts the store to the core.DocumentBackend interface, operating
// directly on wire documents.
type Backend struct {
	store *Store
}

var _ core.DocumentBackend = (*Backend)(nil)

// Backend returns the store's wire-document interface.
func (s *Store) Backend() *Backend {
	return &Backend{store: s}
}

// Insert stores validated record data.
func (b *Backend) Insert(ctx context.Context, dataset string, data core.RecordData) (*core.Record, error) {
	return b.store.InsertRecord(ctx, dataset, data)
}

// Find returns the records matching the filter document.
func (b *Backend) Find(ctx context.Context, dataset string, filter core.Document, opts *core.FindOptions) ([]*core.Record, error) {
	matched, _, err := b.matchedRecords(ctx, dataset, filter)
	if err != nil {
		return nil, err
	}

	if opts != nil {
		if len(opts.Sort) > 0 {
			sortRecordsBySpecs(matched, opts.Sort)
		}
		if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
			matched = matched[:opts.Limit]
		}
	}
	return matched, nil
}

// Update merges the changes into every matching record and reports how many
// were changed.
func (b *Backend) Update(ctx context.Context, dataset string, filter core.Document, changes core.RecordData) (int64, error) {
	ds, err := getDataset(ctx, b.store.db, dataset)
	if err != nil {
		return 0, err
	}
	validated, err := b.store.validator.ValidateChanges(ds.Schema, changes)
	if err != nil {
		return 0, err
	}

	matched, _, err := b.matchedRecords(ctx, dataset, filter)
	if err != nil {
		return 0, err
	}

	// Writing one value into a unique field of several records would break
	// the constraint before any scan could catch it.
	if len(matched) > 1 {
		for _, f := range ds.Schema {
			if f.Unique {
				if v, ok := validated[f.FieldName]; ok && v != nil {
					return 0, &ConflictError{Kind: "record", Name: f.FieldName,
						Reason: fmt.Sprintf("cannot set unique field on %d records at once", len(matched))}
				}
			}
		}
	}

	result, err := b.store.inTx(ctx, func(tx *sql.Tx) (any, error) {
		var count int64
		for _, r := range matched {
			merged := r.Data.Clone()
			for k, v := range validated {
				if v == nil {
					delete(merged, k)
					continue
				}
				merged[k] = v
			}
			if err := b.store.checkUnique(ctx, ds, merged, r.ID); err != nil {
				return nil, err
			}
			r.Data = merged
			r.UpdatedAt = time.Now().UTC()
			if err := writeRecordData(ctx, tx, r); err != nil {
				return nil, err
			}
			count++
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Delete removes every matching record and reports how many were removed.
func (b *Backend) Delete(ctx context.Context, dataset string, filter core.Document) (int64, error) {
	matched, ds, err := b.matchedRecords(ctx, dataset, filter)
	if err != nil {
		return 0, err
	}

	result, err := b.store.inTx(ctx, func(tx *sql.Tx) (any, error) {
		var count int64
		for _, r := range matched {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM records WHERE id = ? AND dataset_id = ?`, r.ID, ds.ID)
			if err != nil {
				return nil, &StoreError{Op: "delete records", Err: err}
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, &StoreError{Op: "delete records", Err: err}
			}
			count += affected
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Aggregate interprets a pipeline of wire-document stages. Match stages
// filter the working set, a group stage reduces it to result rows, and sort
// and limit stages order and bound whichever shape is current.
func (b *Backend) Aggregate(ctx context.Context, dataset string, pipeline []core.Document) ([]core.Document, error) {
	ds, err := getDataset(ctx, b.store.db, dataset)
	if err != nil {
		return nil, err
	}
	records, err := loadRecords(ctx, b.store.db, ds.ID, ds.Schema)
	if err != nil {
		return nil, err
	}

	var rows []core.Document
	grouped := false
	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, &query.QueryError{Reason: "pipeline stage must hold exactly one operator"}
		}
		for op, spec := range stage {
			switch op {
			case "$match":
				doc, err := toDocument(spec)
				if err != nil {
					return nil, err
				}
				if grouped {
					return nil, &query.QueryError{Reason: "$match after $group is not supported"}
				}
				var kept []*core.Record
				for _, r := range records {
					ok, err := matchDocument(doc, r)
					if err != nil {
						return nil, err
					}
					if ok {
						kept = append(kept, r)
					}
				}
				records = kept

			case "$group":
				doc, err := toDocument(spec)
				if err != nil {
					return nil, err
				}
				rows, err = groupStage(records, doc)
				if err != nil {
					return nil, err
				}
				grouped = true

			case "$sort":
				doc, err := toDocument(spec)
				if err != nil {
					return nil, err
				}
				if grouped {
					sortRowsByPaths(rows, doc)
				} else {
					sortRecordsByStage(records, doc)
				}

			case "$limit":
				n, ok := core.ToFloat64(spec)
				if !ok || n < 0 {
					return nil, &query.QueryError{Reason: fmt.Sprintf("invalid $limit %v", spec)}
				}
				limit := int(n)
				if grouped {
					if len(rows) > limit {
						rows = rows[:limit]
					}
				} else if len(records) > limit {
					records = records[:limit]
				}

			default:
				return nil, &query.QueryError{Reason: fmt.Sprintf("unknown pipeline stage %q", op)}
			}
		}
	}

	if !grouped {
		rows = make([]core.Document, 0, len(records))
		for _, r := range records {
			rows = append(rows, core.Document{
				"id":         r.ID,
				"dataset_id": r.DatasetID,
				"data":       r.Data,
				"created_at": r.CreatedAt,
				"updated_at": r.UpdatedAt,
			})
		}
	}
	return rows, nil
}

func (b *Backend) matchedRecords(ctx context.Context, dataset string, filter core.Document) ([]*core.Record, *core.Dataset, error) {
	ds, err := getDataset(ctx, b.store.db, dataset)
	if err != nil {
		return nil, nil, err
	}
	records, err := loadRecords(ctx, b.store.db, ds.ID, ds.Schema)
	if err != nil {
		return nil, nil, err
	}

	matched := records[:0]
	for _, r := range records {
		ok, err := matchDocument(filter, r)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, ds, nil
}

// groupStage reduces records according to a $group specification: an _id
// key of field references (or nil for one bucket) plus alias keys mapping to
// accumulator documents.
func groupStage(records []*core.Record, spec core.Document) ([]core.Document, error) {
	idSpec, hasID := spec["_id"]
	if !hasID {
		return nil, &query.QueryError{Reason: "$group stage is missing _id"}
	}

	var idFields core.Document
	if idSpec != nil {
		doc, err := toDocument(idSpec)
		if err != nil {
			return nil, err
		}
		idFields = doc
	}

	type bucket struct {
		id      any
		members []*core.Record
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, r := range records {
		var id any
		key := ""
		if idFields != nil {
			idDoc := make(core.Document, len(idFields))
			for name, ref := range idFields {
				value, err := resolveFieldRef(r, ref)
				if err != nil {
					return nil, err
				}
				idDoc[name] = value
				key += fmt.Sprintf("%v\x00", value)
			}
			id = idDoc
		}
		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{id: id}
			buckets[key] = bk
			order = append(order, key)
		}
		bk.members = append(bk.members, r)
	}

	rows := make([]core.Document, 0, len(buckets))
	for _, key := range order {
		bk := buckets[key]
		row := core.Document{"_id": bk.id}
		for alias, accSpec := range spec {
			if alias == "_id" {
				continue
			}
			acc, err := toDocument(accSpec)
			if err != nil {
				return nil, err
			}
			value, err := accumulate(bk.members, acc)
			if err != nil {
				return nil, err
			}
			row[alias] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// accumulate applies a single-operator accumulator like {"$sum": "$data.f"}
// or {"$sum": 1} over the bucket members.
func accumulate(members []*core.Record, acc core.Document) (any, error) {
	if len(acc) != 1 {
		return nil, &query.QueryError{Reason: "accumulator must hold exactly one operator"}
	}
	for op, arg := range acc {
		// Constant argument: every member contributes the constant.
		if n, ok := core.ToFloat64(arg); ok {
			if op != "$sum" {
				return nil, &query.QueryError{Reason: fmt.Sprintf("constant argument is not valid for %s", op)}
			}
			return int64(n) * int64(len(members)), nil
		}

		var values []any
		for _, r := range members {
			value, err := resolveFieldRef(r, arg)
			if err != nil {
				return nil, err
			}
			if value != nil {
				values = append(values, value)
			}
		}
		if len(values) == 0 {
			return nil, nil
		}

		switch op {
		case "$sum", "$avg":
			var sum float64
			allInts := true
			for _, v := range values {
				n, _ := core.ToFloat64(v)
				sum += n
				if _, isInt := v.(int64); !isInt {
					allInts = false
				}
			}
			if op == "$avg" {
				return sum / float64(len(values)), nil
			}
			if allInts {
				return int64(sum), nil
			}
			return sum, nil
		case "$min", "$max":
			best := values[0]
			for _, v := range values[1:] {
				c := compareValuesForSort(v, best)
				if (op == "$min" && c < 0) || (op == "$max" && c > 0) {
					best = v
				}
			}
			return best, nil
		default:
			return nil, &query.QueryError{Reason: fmt.Sprintf("unknown accumulator %q", op)}
		}
	}
	return nil, nil
}

// resolveFieldRef resolves a "$data.<field>" reference against a record.
func resolveFieldRef(r *core.Record, ref any) (any, error) {
	s, ok := ref.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return nil, &query.QueryError{Reason: fmt.Sprintf("invalid field reference %v", ref)}
	}
	path := strings.TrimPrefix(s, "$")
	if field, ok := strings.CutPrefix(path, query.DataFieldPrefix); ok {
		return r.Data[field], nil
	}
	switch path {
	case "id":
		return r.ID, nil
	case "dataset_id":
		return r.DatasetID, nil
	case "owner", "user_id":
		return r.Owner, nil
	default:
		return nil, &query.QueryError{Reason: fmt.Sprintf("unknown field reference %q", s)}
	}
}

// lookupPath reads a dotted path like "_id.item" out of a result row.
func lookupPath(row core.Document, path string) any {
	head, rest, nested := strings.Cut(path, ".")
	value, ok := row[head]
	if !ok || !nested {
		return value
	}
	child, err := toDocument(value)
	if err != nil {
		return nil
	}
	return lookupPath(child, rest)
}

func sortRowsByPaths(rows []core.Document, spec core.Document) {
	paths := make([]string, 0, len(spec))
	for path := range spec {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, path := range paths {
			c := compareValuesForSort(lookupPath(rows[i], path), lookupPath(rows[j], path))
			if c == 0 {
				continue
			}
			if direction(spec[path]) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func sortRecordsByStage(records []*core.Record, spec core.Document) {
	keys := make([]string, 0, len(spec))
	for key := range spec {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			field := strings.TrimPrefix(key, query.DataFieldPrefix)
			c := compareValuesForSort(records[i].Data[field], records[j].Data[field])
			if c == 0 {
				continue
			}
			if direction(spec[key]) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func sortRecordsBySpecs(records []*core.Record, specs []core.SortSpec) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, s := range specs {
			c := compareValuesForSort(records[i].Data[s.Key], records[j].Data[s.Key])
			if c == 0 {
				continue
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func direction(v any) int {
	if n, ok := core.ToFloat64(v); ok && n < 0 {
		return -1
	}
	return 1
}
