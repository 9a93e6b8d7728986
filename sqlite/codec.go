package sqlite

import (
	"encoding/json"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/schema"
)

// encodeRecordData serializes record data for storage. time.Time values
// marshal as RFC 3339 strings; decodeRecordData restores them.
func encodeRecordData(data core.RecordData) ([]byte, error) {
	return json.Marshal(data)
}

// decodeRecordData deserializes stored record data and undoes the JSON
// round-trip per field type: numbers back to int64 for integer fields,
// RFC 3339 strings back to time.Time, arrays back to []string.
func decodeRecordData(fields schema.DatasetSchema, raw []byte) (core.RecordData, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	out := make(core.RecordData, len(m))
	for name, value := range m {
		f, ok := fields.Field(name)
		if !ok {
			out[name] = value
			continue
		}
		out[name] = decodeValue(f, value)
	}
	return out, nil
}

func decodeValue(f schema.SchemaField, value any) any {
	if value == nil {
		return nil
	}
	switch f.Type {
	case schema.FieldTypeInteger:
		if fl, ok := value.(float64); ok {
			return int64(fl)
		}
	case schema.FieldTypeDate, schema.FieldTypeDatetime:
		if s, ok := value.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t.UTC()
			}
		}
	case schema.FieldTypeMultiSelect:
		if arr, ok := value.([]any); ok {
			values := make([]string, 0, len(arr))
			for _, item := range arr {
				if s, ok := item.(string); ok {
					values = append(values, s)
				}
			}
			return values
		}
	}
	return value
}
