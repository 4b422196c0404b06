package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillbench/pkg/db"
)

// Migration20260815120000CreateEvalTables creates the run, result, log and
// skill-version tables. Results cascade-delete with their run; quality child
// rows cascade-delete with their result.
func Migration20260815120000CreateEvalTables() db.Migration {
	return db.Migration{
		Version:     20260815120000,
		Description: "Create test run, result, log and skill version tables",
		Up: func(tx *sql.Tx) error {
			statements := []struct {
				name string
				ddl  string
			}{
				{"test_runs", `
					CREATE TABLE IF NOT EXISTS test_runs (
						id TEXT PRIMARY KEY,
						run_timestamp DATETIME NOT NULL,
						model TEXT NOT NULL,
						git_commit_hash TEXT,
						total_tests INTEGER NOT NULL DEFAULT 0,
						passed_tests INTEGER NOT NULL DEFAULT 0,
						failed_tests INTEGER NOT NULL DEFAULT 0,
						test_type TEXT NOT NULL CHECK (test_type IN ('activation', 'quality', 'anti-pattern')),
						total_input_tokens INTEGER NOT NULL DEFAULT 0,
						total_output_tokens INTEGER NOT NULL DEFAULT 0,
						total_cache_read_tokens INTEGER NOT NULL DEFAULT 0,
						total_latency_ms INTEGER NOT NULL DEFAULT 0,
						total_cost_usd REAL NOT NULL DEFAULT 0,
						avg_latency_ms REAL NOT NULL DEFAULT 0,
						created_at DATETIME NOT NULL
					)
				`},
				{"activation_results", `
					CREATE TABLE IF NOT EXISTS activation_results (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						run_id TEXT NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
						test_id TEXT NOT NULL,
						query TEXT NOT NULL,
						expected_skill TEXT NOT NULL,
						activated_skill TEXT,
						should_activate INTEGER NOT NULL,
						passed INTEGER NOT NULL,
						error TEXT,
						test_case_source TEXT NOT NULL CHECK (test_case_source IN ('synthetic', 'real_session', 'regression', 'user_reported')),
						session_context TEXT,
						input_tokens INTEGER NOT NULL DEFAULT 0,
						output_tokens INTEGER NOT NULL DEFAULT 0,
						cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
						cache_read_tokens INTEGER NOT NULL DEFAULT 0,
						thinking_tokens INTEGER NOT NULL DEFAULT 0,
						latency_ms INTEGER NOT NULL DEFAULT 0,
						cost_usd REAL NOT NULL DEFAULT 0,
						created_at DATETIME NOT NULL
					)
				`},
				{"quality_results", `
					CREATE TABLE IF NOT EXISTS quality_results (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						run_id TEXT NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
						test_id TEXT NOT NULL,
						skill TEXT NOT NULL,
						query TEXT NOT NULL,
						response_preview TEXT NOT NULL,
						response_full_text TEXT,
						passed INTEGER NOT NULL,
						error TEXT,
						test_case_source TEXT NOT NULL CHECK (test_case_source IN ('synthetic', 'real_session', 'regression', 'user_reported')),
						session_context TEXT,
						input_tokens INTEGER NOT NULL DEFAULT 0,
						output_tokens INTEGER NOT NULL DEFAULT 0,
						cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
						cache_read_tokens INTEGER NOT NULL DEFAULT 0,
						thinking_tokens INTEGER NOT NULL DEFAULT 0,
						latency_ms INTEGER NOT NULL DEFAULT 0,
						cost_usd REAL NOT NULL DEFAULT 0,
						created_at DATETIME NOT NULL
					)
				`},
				{"missing_facts", `
					CREATE TABLE IF NOT EXISTS missing_facts (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						quality_result_id INTEGER NOT NULL REFERENCES quality_results(id) ON DELETE CASCADE,
						fact TEXT NOT NULL
					)
				`},
				{"forbidden_content", `
					CREATE TABLE IF NOT EXISTS forbidden_content (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						quality_result_id INTEGER NOT NULL REFERENCES quality_results(id) ON DELETE CASCADE,
						content TEXT NOT NULL
					)
				`},
				{"test_logs", `
					CREATE TABLE IF NOT EXISTS test_logs (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						test_result_id INTEGER NOT NULL,
						test_type TEXT NOT NULL CHECK (test_type IN ('activation', 'quality')),
						log_message TEXT NOT NULL,
						log_timestamp DATETIME NOT NULL
					)
				`},
				{"skill_versions", `
					CREATE TABLE IF NOT EXISTS skill_versions (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						skill_name TEXT NOT NULL,
						content_hash TEXT NOT NULL,
						files_json TEXT NOT NULL,
						created_at DATETIME NOT NULL,
						UNIQUE (skill_name, content_hash)
					)
				`},
				{"test_run_skill_versions", `
					CREATE TABLE IF NOT EXISTS test_run_skill_versions (
						test_run_id TEXT NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
						skill_version_id INTEGER NOT NULL REFERENCES skill_versions(id) ON DELETE CASCADE,
						PRIMARY KEY (test_run_id, skill_version_id)
					)
				`},
			}

			for _, stmt := range statements {
				if _, err := tx.Exec(stmt.ddl); err != nil {
					return errors.Wrapf(err, "failed to create %s table", stmt.name)
				}
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_test_runs_created_at ON test_runs(created_at DESC)",
				"CREATE INDEX IF NOT EXISTS idx_activation_results_run_id ON activation_results(run_id)",
				"CREATE INDEX IF NOT EXISTS idx_activation_results_test_id ON activation_results(test_id)",
				"CREATE INDEX IF NOT EXISTS idx_quality_results_run_id ON quality_results(run_id)",
				"CREATE INDEX IF NOT EXISTS idx_quality_results_test_id ON quality_results(test_id)",
				"CREATE INDEX IF NOT EXISTS idx_missing_facts_result_id ON missing_facts(quality_result_id)",
				"CREATE INDEX IF NOT EXISTS idx_forbidden_content_result_id ON forbidden_content(quality_result_id)",
				"CREATE INDEX IF NOT EXISTS idx_test_logs_result ON test_logs(test_result_id, test_type)",
				"CREATE INDEX IF NOT EXISTS idx_skill_versions_name ON skill_versions(skill_name)",
			}
			for _, ddl := range indexes {
				if _, err := tx.Exec(ddl); err != nil {
					return errors.Wrap(err, "failed to create index")
				}
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			tables := []string{
				"test_run_skill_versions",
				"skill_versions",
				"test_logs",
				"forbidden_content",
				"missing_facts",
				"quality_results",
				"activation_results",
				"test_runs",
			}
			for _, table := range tables {
				if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
					return errors.Wrapf(err, "failed to drop %s table", table)
				}
			}
			return nil
		},
	}
}
