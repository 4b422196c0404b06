package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillbench/pkg/db"
	"github.com/jingkaihe/skillbench/pkg/db/migrations"
	"github.com/jingkaihe/skillbench/pkg/presenter"
	"github.com/jingkaihe/skillbench/pkg/store"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the skillbench results database (migrations, repair, etc.)`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := db.RunMigrations(cmd.Context(), dbPath(), migrations.All()); err != nil {
			return err
		}
		presenter.Success("database is up to date")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sqlDB, err := db.Open(ctx, dbPath())
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		applied, err := db.NewMigrationRunner(sqlDB).GetAppliedVersions(ctx)
		if err != nil {
			return err
		}

		appliedMap := make(map[int64]bool)
		for _, v := range applied {
			appliedMap[v] = true
		}

		presenter.Section("Migration status")
		presenter.Info("Database: " + dbPath())
		appliedCount := 0
		for _, m := range migrations.All() {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[x]"
				appliedCount++
			}
			presenter.Info(fmt.Sprintf("%s %d - %s", status, m.Version, m.Description))
		}
		presenter.Info(fmt.Sprintf("Applied: %d/%d migrations", appliedCount, len(migrations.All())))
		return nil
	},
}

var dbRepairCmd = &cobra.Command{
	Use:   "repair <run-id>",
	Short: "Recompute a run's aggregates from its persisted result rows",
	Long: `Repairs a run left non-finalized by a crash mid-batch by recomputing its
aggregate counters from the persisted per-case result rows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.NewSQLiteStore(ctx, dbPath())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.RecomputeRunAggregates(ctx, args[0]); err != nil {
			return err
		}
		presenter.Success("run aggregates recomputed")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRepairCmd)
}
