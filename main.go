package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/query"
	"github.com/asaidimu/go-docstore/core/schema"
	"github.com/asaidimu/go-docstore/sqlite"
	"go.uber.org/zap"
)

const dbFileName = "groceries.db"

func main() {
	// Start fresh on each run.
	if err := os.Remove(dbFileName); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing database file %s: %v", dbFileName, err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := sqlite.Open(dbFileName, &sqlite.Options{Logger: logger})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Watch record creation as it happens.
	unsubscribe := store.Subscribe(core.RecordCreateSuccess, func(_ context.Context, event core.StoreEvent) error {
		fmt.Printf("event: %s on %s (%dms)\n", event.Type, *event.Dataset, *event.Duration)
		return nil
	})
	defer unsubscribe()

	// --- Dataset with a typed schema ---
	ds, err := store.CreateDataset(ctx, "groceries", "weekly shopping list", schema.DatasetSchema{
		{FieldName: "item", Type: schema.FieldTypeString, Required: true},
		{FieldName: "quantity", Type: schema.FieldTypeInteger, Required: true},
		{FieldName: "price", Type: schema.FieldTypeFloat},
		{FieldName: "added", Type: schema.FieldTypeDate},
		{FieldName: "status", Type: schema.FieldTypeSelect, Options: []string{"needed", "bought"}, Default: "needed"},
	})
	if err != nil {
		log.Fatalf("Failed to create dataset: %v", err)
	}
	fmt.Printf("Created dataset %q with %d fields\n", ds.Name, len(ds.Schema))

	// --- Records: values are coerced through the schema on the way in ---
	rows := []core.RecordData{
		{"item": "milk", "quantity": "3", "price": 1.5, "added": "2024-06-15"},
		{"item": "bread", "quantity": 1, "price": 2.0, "added": "2024-06-15", "status": "bought"},
		{"item": "eggs", "quantity": 12, "price": 4.5, "added": "2024-06-16"},
	}
	for _, row := range rows {
		if _, err := store.InsertRecord(ctx, "groceries", row); err != nil {
			log.Fatalf("Failed to insert record: %v", err)
		}
	}

	// A record that breaks the schema is rejected with every problem named.
	if _, err := store.InsertRecord(ctx, "groceries", core.RecordData{
		"item": "cheese", "quantity": "plenty", "status": "eaten",
	}); err != nil {
		fmt.Printf("Rejected as expected: %v\n", err)
	}

	// --- Typed filtering ---
	needed, err := store.QueryRecords(ctx, "groceries", &query.RecordQuery{
		Filter: query.And(
			query.Where("status").Eq("needed"),
			query.Where("quantity").Gte(3),
		),
		Sort: map[string]query.SortOrder{"item": query.SortAscending},
	})
	if err != nil {
		log.Fatalf("Failed to query records: %v", err)
	}
	fmt.Printf("Still needed (%d):\n", len(needed))
	for _, r := range needed {
		fmt.Printf("  %v x%v\n", r.Data["item"], r.Data["quantity"])
	}

	// --- Aggregation ---
	totals, err := store.Aggregate(ctx, "groceries", &query.RecordQuery{
		GroupBy: []string{"status"},
		Aggregations: []query.AggregationField{
			{Field: "quantity", Operation: "sum"},
			{Field: "price", Operation: "avg"},
			{Field: "item", Operation: "count"},
		},
	})
	if err != nil {
		log.Fatalf("Failed to aggregate: %v", err)
	}
	out, _ := json.MarshalIndent(totals, "", "  ")
	fmt.Printf("Totals by status:\n%s\n", out)

	// --- Schema evolution: a safe type change rewrites stored values ---
	if _, err := store.UpdateField(ctx, "groceries", "quantity", schema.SchemaField{
		FieldName: "quantity", Type: schema.FieldTypeFloat, Required: true,
	}); err != nil {
		log.Fatalf("Failed to update field: %v", err)
	}
	fmt.Println("quantity is now a float field; stored records were rewritten")

	// An unsafe change is refused.
	if _, err := store.UpdateField(ctx, "groceries", "item", schema.SchemaField{
		FieldName: "item", Type: schema.FieldTypeInteger, Required: true,
	}); err != nil {
		fmt.Printf("Refused as expected: %v\n", err)
	}
}
