package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillbench/pkg/db"
)

// Migration20260815120001CreateTrendViews creates the derived read-side views
// used for trend analysis. Views are non-authoritative; the tables remain the
// source of truth.
func Migration20260815120001CreateTrendViews() db.Migration {
	return db.Migration{
		Version:     20260815120001,
		Description: "Create read-side trend analysis views",
		Up: func(tx *sql.Tx) error {
			views := []struct {
				name string
				ddl  string
			}{
				{"v_activation_history", `
					CREATE VIEW IF NOT EXISTS v_activation_history AS
					SELECT
						ar.test_id,
						ar.query,
						ar.expected_skill,
						ar.activated_skill,
						ar.passed,
						ar.error,
						ar.created_at,
						tr.model,
						tr.run_timestamp,
						sv.content_hash AS skill_version_hash
					FROM activation_results ar
					JOIN test_runs tr ON tr.id = ar.run_id
					LEFT JOIN test_run_skill_versions trsv ON trsv.test_run_id = tr.id
					LEFT JOIN skill_versions sv
						ON sv.id = trsv.skill_version_id AND sv.skill_name = ar.expected_skill
				`},
				{"v_quality_history", `
					CREATE VIEW IF NOT EXISTS v_quality_history AS
					SELECT
						qr.test_id,
						qr.skill,
						qr.query,
						qr.passed,
						qr.error,
						qr.created_at,
						tr.model,
						tr.run_timestamp,
						(SELECT COUNT(*) FROM missing_facts mf WHERE mf.quality_result_id = qr.id) AS missing_fact_count,
						(SELECT COUNT(*) FROM forbidden_content fc WHERE fc.quality_result_id = qr.id) AS forbidden_content_count
					FROM quality_results qr
					JOIN test_runs tr ON tr.id = qr.run_id
				`},
				{"v_missing_fact_frequency", `
					CREATE VIEW IF NOT EXISTS v_missing_fact_frequency AS
					SELECT
						qr.skill,
						mf.fact,
						COUNT(*) AS occurrences
					FROM missing_facts mf
					JOIN quality_results qr ON qr.id = mf.quality_result_id
					GROUP BY qr.skill, mf.fact
				`},
				{"v_activation_trend", `
					CREATE VIEW IF NOT EXISTS v_activation_trend AS
					SELECT
						ar.expected_skill AS skill,
						tr.run_timestamp,
						COUNT(*) AS total,
						SUM(ar.passed) AS passed,
						CAST(SUM(ar.passed) AS REAL) / COUNT(*) AS pass_rate
					FROM activation_results ar
					JOIN test_runs tr ON tr.id = ar.run_id
					GROUP BY ar.expected_skill, tr.run_timestamp
				`},
				{"v_quality_trend", `
					CREATE VIEW IF NOT EXISTS v_quality_trend AS
					SELECT
						qr.skill,
						tr.run_timestamp,
						COUNT(*) AS total,
						SUM(qr.passed) AS passed,
						CAST(SUM(qr.passed) AS REAL) / COUNT(*) AS pass_rate
					FROM quality_results qr
					JOIN test_runs tr ON tr.id = qr.run_id
					GROUP BY qr.skill, tr.run_timestamp
				`},
				{"v_source_comparison", `
					CREATE VIEW IF NOT EXISTS v_source_comparison AS
					SELECT
						test_case_source,
						COUNT(*) AS total,
						SUM(passed) AS passed,
						CAST(SUM(passed) AS REAL) / COUNT(*) AS pass_rate
					FROM (
						SELECT test_case_source, passed FROM activation_results
						UNION ALL
						SELECT test_case_source, passed FROM quality_results
					)
					GROUP BY test_case_source
				`},
			}

			for _, view := range views {
				if _, err := tx.Exec(view.ddl); err != nil {
					return errors.Wrapf(err, "failed to create %s view", view.name)
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			views := []string{
				"v_source_comparison",
				"v_quality_trend",
				"v_activation_trend",
				"v_missing_fact_frequency",
				"v_quality_history",
				"v_activation_history",
			}
			for _, view := range views {
				if _, err := tx.Exec("DROP VIEW IF EXISTS " + view); err != nil {
					return errors.Wrapf(err, "failed to drop %s view", view)
				}
			}
			return nil
		},
	}
}
