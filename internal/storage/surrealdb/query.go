package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// execQuery runs a statement batch whose results are not needed. A statement
// that fails reports Status "ERR" with a nil transport error, so both are
// checked.
func execQuery(ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) error {
	results, err := surrealdb.Query[any](ctx, db, sql, vars)
	if err != nil {
		return err
	}
	if results == nil {
		return nil
	}
	for _, r := range *results {
		if r.Status == "ERR" {
			return fmt.Errorf("%v", r.Result)
		}
	}
	return nil
}
