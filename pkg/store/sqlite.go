package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/jingkaihe/skillbench/pkg/db"
	"github.com/jingkaihe/skillbench/pkg/db/migrations"
	"github.com/jingkaihe/skillbench/pkg/skills"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// SQLiteStore implements Store backed by a single shared sqlite handle,
// opened once at process start and closed on shutdown.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at dbPath and applies pending migrations.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return &SQLiteStore{db: sqlDB}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run record with zeroed aggregates.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *eval.TestRun) error {
	query := `
		INSERT INTO test_runs (
			id, run_timestamp, model, git_commit_hash, total_tests, passed_tests,
			failed_tests, test_type, total_input_tokens, total_output_tokens,
			total_cache_read_tokens, total_latency_ms, total_cost_usd,
			avg_latency_ms, created_at
		) VALUES (
			:id, :run_timestamp, :model, :git_commit_hash, :total_tests, :passed_tests,
			:failed_tests, :test_type, :total_input_tokens, :total_output_tokens,
			:total_cache_read_tokens, :total_latency_ms, :total_cost_usd,
			:avg_latency_ms, :created_at
		)
	`
	_, err := s.db.NamedExecContext(ctx, query, fromTestRun(run))
	return errors.Wrap(err, "failed to create test run")
}

// FinalizeRun writes the final aggregates for a run.
func (s *SQLiteStore) FinalizeRun(ctx context.Context, run *eval.TestRun) error {
	query := `
		UPDATE test_runs SET
			total_tests = :total_tests,
			passed_tests = :passed_tests,
			failed_tests = :failed_tests,
			total_input_tokens = :total_input_tokens,
			total_output_tokens = :total_output_tokens,
			total_cache_read_tokens = :total_cache_read_tokens,
			total_latency_ms = :total_latency_ms,
			total_cost_usd = :total_cost_usd,
			avg_latency_ms = :avg_latency_ms
		WHERE id = :id
	`
	result, err := s.db.NamedExecContext(ctx, query, fromTestRun(run))
	if err != nil {
		return errors.Wrap(err, "failed to finalize test run")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check finalize result")
	}
	if rows == 0 {
		return errors.Errorf("test run %s not found", run.ID)
	}
	return nil
}

// GetRun loads a run record by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*eval.TestRun, error) {
	var record dbTestRun
	err := s.db.GetContext(ctx, &record, "SELECT * FROM test_runs WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("test run %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get test run")
	}
	return record.toTestRun(), nil
}

// SaveActivationResult persists one activation result and sets its ID.
func (s *SQLiteStore) SaveActivationResult(ctx context.Context, result *eval.ActivationResult) error {
	query := `
		INSERT INTO activation_results (
			run_id, test_id, query, expected_skill, activated_skill,
			should_activate, passed, error, test_case_source, session_context,
			input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
			thinking_tokens, latency_ms, cost_usd, created_at
		) VALUES (
			:run_id, :test_id, :query, :expected_skill, :activated_skill,
			:should_activate, :passed, :error, :test_case_source, :session_context,
			:input_tokens, :output_tokens, :cache_creation_tokens, :cache_read_tokens,
			:thinking_tokens, :latency_ms, :cost_usd, :created_at
		)
	`
	res, err := s.db.NamedExecContext(ctx, query, fromActivationResult(result))
	if err != nil {
		return errors.Wrap(err, "failed to save activation result")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get activation result id")
	}
	result.ID = id
	return nil
}

// SaveQualityResult persists one quality result and its missing-fact and
// forbidden-content child rows in a single transaction, and sets its ID.
func (s *SQLiteStore) SaveQualityResult(ctx context.Context, result *eval.QualityResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO quality_results (
			run_id, test_id, skill, query, response_preview, response_full_text,
			passed, error, test_case_source, session_context,
			input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
			thinking_tokens, latency_ms, cost_usd, created_at
		) VALUES (
			:run_id, :test_id, :skill, :query, :response_preview, :response_full_text,
			:passed, :error, :test_case_source, :session_context,
			:input_tokens, :output_tokens, :cache_creation_tokens, :cache_read_tokens,
			:thinking_tokens, :latency_ms, :cost_usd, :created_at
		)
	`
	res, err := tx.NamedExecContext(ctx, query, fromQualityResult(result))
	if err != nil {
		return errors.Wrap(err, "failed to save quality result")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get quality result id")
	}

	for _, fact := range result.MissingFacts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO missing_facts (quality_result_id, fact) VALUES (?, ?)",
			id, fact); err != nil {
			return errors.Wrap(err, "failed to save missing fact")
		}
	}
	for _, content := range result.ForbiddenContent {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO forbidden_content (quality_result_id, content) VALUES (?, ?)",
			id, content); err != nil {
			return errors.Wrap(err, "failed to save forbidden content")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit quality result")
	}
	result.ID = id
	return nil
}

// AppendLogs appends ordered trace lines for one result.
func (s *SQLiteStore) AppendLogs(ctx context.Context, resultID int64, kind eval.TestKind, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := time.Now()
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO test_logs (test_result_id, test_type, log_message, log_timestamp) VALUES (?, ?, ?, ?)",
			resultID, string(kind), line, now); err != nil {
			return errors.Wrap(err, "failed to append test log")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit test logs")
}

// Logs returns the trace lines for one result in insertion order.
func (s *SQLiteStore) Logs(ctx context.Context, resultID int64, kind eval.TestKind) ([]string, error) {
	var lines []string
	err := s.db.SelectContext(ctx, &lines,
		"SELECT log_message FROM test_logs WHERE test_result_id = ? AND test_type = ? ORDER BY id",
		resultID, string(kind))
	return lines, errors.Wrap(err, "failed to load test logs")
}

// LookupOrInsertSkillVersion dedups snapshots by (skill name, content hash).
func (s *SQLiteStore) LookupOrInsertSkillVersion(ctx context.Context, snapshot skills.Snapshot) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		"SELECT id FROM skill_versions WHERE skill_name = ? AND content_hash = ?",
		snapshot.SkillName, snapshot.ContentHash)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.Wrap(err, "failed to look up skill version")
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO skill_versions (skill_name, content_hash, files_json, created_at) VALUES (?, ?, ?, ?)",
		snapshot.SkillName, snapshot.ContentHash, snapshot.FilesJSON, time.Now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert skill version")
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get skill version id")
	}
	return id, nil
}

// LinkRunSkillVersions records which skill versions were active for a run.
func (s *SQLiteStore) LinkRunSkillVersions(ctx context.Context, runID string, versionIDs []int64) error {
	if len(versionIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, versionID := range versionIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO test_run_skill_versions (test_run_id, skill_version_id) VALUES (?, ?)",
			runID, versionID); err != nil {
			return errors.Wrap(err, "failed to link skill version")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit skill version links")
}

// RecomputeRunAggregates recomputes a run's aggregates from its persisted
// child rows. Repair path for runs left non-finalized by a crash mid-batch;
// the hot path uses in-memory accumulators instead.
func (s *SQLiteStore) RecomputeRunAggregates(ctx context.Context, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	table := "activation_results"
	if run.TestType == eval.TestKindQuality {
		table = "quality_results"
	}

	var agg struct {
		Total           int     `db:"total"`
		Passed          int     `db:"passed"`
		InputTokens     int     `db:"input_tokens"`
		OutputTokens    int     `db:"output_tokens"`
		CacheReadTokens int     `db:"cache_read_tokens"`
		LatencyMs       int64   `db:"latency_ms"`
		CostUSD         float64 `db:"cost_usd"`
	}
	err = s.db.GetContext(ctx, &agg, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(passed), 0) AS passed,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(SUM(cache_read_tokens), 0) AS cache_read_tokens,
			COALESCE(SUM(latency_ms), 0) AS latency_ms,
			COALESCE(SUM(cost_usd), 0) AS cost_usd
		FROM `+table+` WHERE run_id = ?`, runID)
	if err != nil {
		return errors.Wrap(err, "failed to aggregate result rows")
	}

	run.TotalTests = agg.Total
	run.PassedTests = agg.Passed
	run.FailedTests = agg.Total - agg.Passed
	run.TotalInputTokens = agg.InputTokens
	run.TotalOutputTokens = agg.OutputTokens
	run.TotalCacheReadTokens = agg.CacheReadTokens
	run.TotalLatencyMs = agg.LatencyMs
	run.TotalCostUSD = agg.CostUSD
	run.AvgLatencyMs = 0
	if agg.Total > 0 {
		run.AvgLatencyMs = float64(agg.LatencyMs) / float64(agg.Total)
	}

	return s.FinalizeRun(ctx, run)
}

// ActivationTrend returns per-skill pass rates per run for activation tests.
func (s *SQLiteStore) ActivationTrend(ctx context.Context) ([]TrendPoint, error) {
	var points []TrendPoint
	err := s.db.SelectContext(ctx, &points,
		"SELECT skill, run_timestamp, total, passed, pass_rate FROM v_activation_trend ORDER BY run_timestamp")
	return points, errors.Wrap(err, "failed to query activation trend")
}

// QualityTrend returns per-skill pass rates per run for quality tests.
func (s *SQLiteStore) QualityTrend(ctx context.Context) ([]TrendPoint, error) {
	var points []TrendPoint
	err := s.db.SelectContext(ctx, &points,
		"SELECT skill, run_timestamp, total, passed, pass_rate FROM v_quality_trend ORDER BY run_timestamp")
	return points, errors.Wrap(err, "failed to query quality trend")
}

// MissingFactFrequency returns how often each expected fact went missing.
func (s *SQLiteStore) MissingFactFrequency(ctx context.Context) ([]FactFrequency, error) {
	var rows []FactFrequency
	err := s.db.SelectContext(ctx, &rows,
		"SELECT skill, fact, occurrences FROM v_missing_fact_frequency ORDER BY occurrences DESC")
	return rows, errors.Wrap(err, "failed to query missing fact frequency")
}

// SourceComparison compares pass rates across test case provenance.
func (s *SQLiteStore) SourceComparison(ctx context.Context) ([]SourceStats, error) {
	var rows []SourceStats
	err := s.db.SelectContext(ctx, &rows,
		"SELECT test_case_source, total, passed, pass_rate FROM v_source_comparison ORDER BY test_case_source")
	return rows, errors.Wrap(err, "failed to query source comparison")
}
