// Package surrealmigrate runs bulk data migrations against a partitioned
// SurrealDB container.
//
// A run executes exactly one Migration: a CreateMigration inserts the
// documents of a source, an UpdateMigration rewrites the documents a query
// selects, and a DeleteMigration removes them. Every run follows the same
// straight line:
//
//	select -> confirm -> [validate] -> transform -> execute
//
// The operator sees the number of affected documents and must confirm
// before anything is written; declining ends the run without writes.
// Writes go through [bulk.Writer], which submits batches of at most 100
// operations one after another and retries only the failed operations of
// a batch. Batches committed before a failure stay committed.
//
//	engine := surrealmigrate.NewEngine(container, bulk.New(container), confirm.Always(true))
//	report, err := engine.Run(ctx, &surrealmigrate.UpdateMigration{
//		Select:    store.Query{Statement: "SELECT * FROM items WHERE type = $type", Vars: map[string]any{"type": "appProductsByDay"}},
//		Transform: transform.Increment("count", 1),
//	})
//
// The command line tool in cmd/surrealmigrate reads migrations from YAML
// files, see [github.com/surrealdb/surrealmigrate/pkg/migrationfile].
package surrealmigrate
