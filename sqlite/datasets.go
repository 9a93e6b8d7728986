package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateDataset validates the schema and stores a new dataset under a unique
// name. The returned dataset carries the normalized schema.
func (s *Store) CreateDataset(ctx context.Context, name, description string, fields schema.DatasetSchema) (*core.Dataset, error) {
	result, err := s.withEvents("create", name,
		core.DatasetCreateStart, core.DatasetCreateSuccess, core.DatasetCreateFailed,
		fields,
		func() (any, error) {
			if name == "" {
				return nil, &ConflictError{Kind: "dataset", Name: name, Reason: "name cannot be empty"}
			}
			normalized, err := schema.ValidateSchema(s.registry, fields)
			if err != nil {
				return nil, err
			}

			now := time.Now().UTC()
			ds := &core.Dataset{
				ID:          uuid.NewString(),
				Owner:       s.owner,
				Name:        name,
				Description: description,
				Schema:      normalized,
				CreatedAt:   now,
				UpdatedAt:   now,
			}

			schemaJSON, err := json.Marshal(ds.Schema)
			if err != nil {
				return nil, &StoreError{Op: "create dataset", Err: err}
			}
			_, err = s.db.ExecContext(ctx,
				`INSERT INTO datasets (id, owner, name, description, schema, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				ds.ID, ds.Owner, ds.Name, ds.Description, string(schemaJSON), ds.CreatedAt, ds.UpdatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return nil, &ConflictError{Kind: "dataset", Name: name, Reason: "already exists"}
				}
				return nil, &StoreError{Op: "create dataset", Err: err}
			}

			s.logger.Info("dataset created", zap.String("dataset", name), zap.Int("fields", len(ds.Schema)))
			return ds, nil
		})
	if err != nil {
		return nil, err
	}
	return result.(*core.Dataset), nil
}

// Dataset loads a dataset by name.
func (s *Store) Dataset(ctx context.Context, name string) (*core.Dataset, error) {
	return getDataset(ctx, s.db, name)
}

// ListDatasets returns all datasets ordered by name.
func (s *Store) ListDatasets(ctx context.Context) ([]*core.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, name, description, schema, created_at, updated_at FROM datasets ORDER BY name`)
	if err != nil {
		return nil, &StoreError{Op: "list datasets", Err: err}
	}
	defer rows.Close()

	var datasets []*core.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes a dataset and, via the foreign key cascade, all of
// its records.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	_, err := s.withEvents("delete", name,
		core.DatasetDeleteStart, core.DatasetDeleteSuccess, core.DatasetDeleteFailed,
		nil,
		func() (any, error) {
			res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
			if err != nil {
				return nil, &StoreError{Op: "delete dataset", Err: err}
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, &StoreError{Op: "delete dataset", Err: err}
			}
			if affected == 0 {
				return nil, &NotFoundError{Kind: "dataset", Name: name}
			}
			s.logger.Info("dataset deleted", zap.String("dataset", name))
			return affected, nil
		})
	return err
}

// AddField appends a field to a dataset's schema. When records already exist,
// a required field must bring a default; the default is backfilled into every
// record missing the field.
func (s *Store) AddField(ctx context.Context, datasetName string, field schema.SchemaField) (*core.Dataset, error) {
	result, err := s.withEvents("add_field", datasetName,
		core.DatasetUpdateStart, core.DatasetUpdateSuccess, core.DatasetUpdateFailed,
		field,
		func() (any, error) {
			return s.inTx(ctx, func(tx *sql.Tx) (any, error) {
				ds, err := getDataset(ctx, tx, datasetName)
				if err != nil {
					return nil, err
				}
				if ds.Schema.HasField(field.FieldName) {
					return nil, &ConflictError{Kind: "field", Name: field.FieldName, Reason: "already exists"}
				}

				updated, err := schema.ValidateSchema(s.registry, append(ds.Schema, field))
				if err != nil {
					return nil, err
				}
				normalized, _ := updated.Field(field.FieldName)

				records, err := loadRecords(ctx, tx, ds.ID, ds.Schema)
				if err != nil {
					return nil, err
				}
				if len(records) > 0 && normalized.Required && normalized.Default == nil {
					return nil, &ConflictError{Kind: "field", Name: field.FieldName,
						Reason: "required field needs a default when the dataset already has records"}
				}
				if normalized.Default != nil {
					for _, r := range records {
						if _, present := r.Data[normalized.FieldName]; present {
							continue
						}
						r.Data[normalized.FieldName] = normalized.Default
						if err := writeRecordData(ctx, tx, r); err != nil {
							return nil, err
						}
					}
				}

				return saveSchema(ctx, tx, ds, updated)
			})
		})
	if err != nil {
		return nil, err
	}
	return result.(*core.Dataset), nil
}

// UpdateField replaces a field definition after checking the evolution rules
// and every stored record. Type changes rewrite record values through the new
// type's validator; promoting a field to required or unique is only allowed
// when the existing records already satisfy it.
func (s *Store) UpdateField(ctx context.Context, datasetName, fieldName string, proposed schema.SchemaField) (*core.Dataset, error) {
	result, err := s.withEvents("update_field", datasetName,
		core.DatasetUpdateStart, core.DatasetUpdateSuccess, core.DatasetUpdateFailed,
		proposed,
		func() (any, error) {
			return s.inTx(ctx, func(tx *sql.Tx) (any, error) {
				ds, err := getDataset(ctx, tx, datasetName)
				if err != nil {
					return nil, err
				}

				update, err := schema.ValidateFieldUpdate(s.registry, ds.Schema, fieldName, proposed)
				if err != nil {
					return nil, err
				}
				if update == nil {
					return ds, nil
				}
				next, _ := update.Schema.Field(proposed.FieldName)

				records, err := loadRecords(ctx, tx, ds.ID, ds.Schema)
				if err != nil {
					return nil, err
				}

				validator, err := s.registry.FieldValidator(next)
				if err != nil {
					return nil, err
				}

				seen := make(map[string]string, len(records))
				for _, r := range records {
					value, present := r.Data[fieldName]
					if !present || value == nil {
						if next.Default != nil {
							value = next.Default
						} else if next.Required {
							return nil, &ConflictError{Kind: "field", Name: fieldName,
								Reason: fmt.Sprintf("cannot require: record %s has no value", r.ID)}
						} else {
							continue
						}
					}

					coerced, err := validator.Validate(value)
					if err != nil {
						return nil, &ConflictError{Kind: "field", Name: fieldName,
							Reason: fmt.Sprintf("record %s: %v", r.ID, err)}
					}

					if next.Unique && !update.Old.Unique {
						key := fmt.Sprint(coerced)
						if other, dup := seen[key]; dup {
							return nil, &ConflictError{Kind: "field", Name: fieldName,
								Reason: fmt.Sprintf("cannot make unique: records %s and %s share value %v", other, r.ID, coerced)}
						}
						seen[key] = r.ID
					}

					delete(r.Data, fieldName)
					r.Data[next.FieldName] = coerced
					if err := writeRecordData(ctx, tx, r); err != nil {
						return nil, err
					}
				}

				return saveSchema(ctx, tx, ds, update.Schema)
			})
		})
	if err != nil {
		return nil, err
	}
	return result.(*core.Dataset), nil
}

// DeleteField drops a field from the schema and strips it from every record.
func (s *Store) DeleteField(ctx context.Context, datasetName, fieldName string) (*core.Dataset, error) {
	result, err := s.withEvents("delete_field", datasetName,
		core.DatasetUpdateStart, core.DatasetUpdateSuccess, core.DatasetUpdateFailed,
		fieldName,
		func() (any, error) {
			return s.inTx(ctx, func(tx *sql.Tx) (any, error) {
				ds, err := getDataset(ctx, tx, datasetName)
				if err != nil {
					return nil, err
				}
				if !ds.Schema.HasField(fieldName) {
					return nil, &NotFoundError{Kind: "field", Name: fieldName}
				}

				remaining := make(schema.DatasetSchema, 0, len(ds.Schema)-1)
				for _, f := range ds.Schema {
					if f.FieldName != fieldName {
						remaining = append(remaining, f)
					}
				}
				updated, err := schema.ValidateSchema(s.registry, remaining)
				if err != nil {
					return nil, err
				}

				records, err := loadRecords(ctx, tx, ds.ID, ds.Schema)
				if err != nil {
					return nil, err
				}
				for _, r := range records {
					if _, present := r.Data[fieldName]; !present {
						continue
					}
					delete(r.Data, fieldName)
					if err := writeRecordData(ctx, tx, r); err != nil {
						return nil, err
					}
				}

				return saveSchema(ctx, tx, ds, updated)
			})
		})
	if err != nil {
		return nil, err
	}
	return result.(*core.Dataset), nil
}

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) (any, error)) (any, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StoreError{Op: "begin", Err: err}
	}
	result, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: "commit", Err: err}
	}
	return result, nil
}

func getDataset(ctx context.Context, runner dbRunner, name string) (*core.Dataset, error) {
	row := runner.QueryRowContext(ctx,
		`SELECT id, owner, name, description, schema, created_at, updated_at FROM datasets WHERE name = ?`, name)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "dataset", Name: name}
	}
	return ds, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*core.Dataset, error) {
	var ds core.Dataset
	var schemaJSON string
	if err := row.Scan(&ds.ID, &ds.Owner, &ds.Name, &ds.Description, &schemaJSON, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, &StoreError{Op: "scan dataset", Err: err}
	}
	if err := json.Unmarshal([]byte(schemaJSON), &ds.Schema); err != nil {
		return nil, &StoreError{Op: "scan dataset", Err: err}
	}
	// Defaults round-trip through JSON; restore their native representations.
	for i, f := range ds.Schema {
		ds.Schema[i].Default = decodeValue(f, f.Default)
	}
	return &ds, nil
}

func saveSchema(ctx context.Context, runner dbRunner, ds *core.Dataset, updated schema.DatasetSchema) (*core.Dataset, error) {
	schemaJSON, err := json.Marshal(updated)
	if err != nil {
		return nil, &StoreError{Op: "save schema", Err: err}
	}
	now := time.Now().UTC()
	if _, err := runner.ExecContext(ctx,
		`UPDATE datasets SET schema = ?, updated_at = ? WHERE id = ?`,
		string(schemaJSON), now, ds.ID); err != nil {
		return nil, &StoreError{Op: "save schema", Err: err}
	}
	ds.Schema = updated
	ds.UpdatedAt = now
	return ds, nil
}
