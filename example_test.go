package surrealmigrate_test

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealmigrate"
	"github.com/surrealdb/surrealmigrate/pkg/bulk"
	"github.com/surrealdb/surrealmigrate/pkg/confirm"
	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
	"github.com/surrealdb/surrealmigrate/pkg/store/memstore"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

func ExampleEngine_Run() {
	mem := memstore.New("tenantId")
	mem.Seed(
		models.Document{"id": "a", "tenantId": "t1", "type": "daily", "count": int64(1)},
		models.Document{"id": "b", "tenantId": "t1", "type": "daily", "count": int64(5)},
		models.Document{"id": "c", "tenantId": "t2", "type": "weekly", "count": int64(9)},
	)
	container := store.NewContainer(mem)

	engine := surrealmigrate.NewEngine(container, bulk.New(container), confirm.Func(func(msg string) (bool, error) {
		fmt.Println(msg)
		return true, nil
	}))

	report, err := engine.Run(context.Background(), &surrealmigrate.UpdateMigration{
		Select: store.Query{
			Statement: "SELECT * FROM items WHERE type = $type",
			Vars:      map[string]any{"type": "daily"},
		},
		Transform: transform.Increment("count", 1),
		Inverse:   transform.Increment("count", -1),
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(report.Phase, report.Written())

	b, _ := mem.Get("b")
	fmt.Println(b["count"])

	// Output:
	// Operation type: Update. Found: 2 documents. Proceed?
	// executed 2
	// 6
}
