// Package migrations contains all database migrations for skillbench.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jingkaihe/skillbench/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20260815120000CreateEvalTables(),
		Migration20260815120001CreateTrendViews(),
	}
}
