// Package store is the persistence layer for evaluation runs: run records,
// per-case results and their child rows, free-text test logs, skill version
// snapshots and the run-to-version links, plus the read-side trend queries.
// The orchestrator depends on the Store interface only; writes are sequential
// by construction, so no application-level locking exists beyond the
// database's own transaction for a single insert or update.
package store

import (
	"context"
	"time"

	"github.com/jingkaihe/skillbench/pkg/skills"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// TrendPoint is one (skill, run) pass-rate sample from a trend view.
type TrendPoint struct {
	Skill        string    `db:"skill"`
	RunTimestamp time.Time `db:"run_timestamp"`
	Total        int       `db:"total"`
	Passed       int       `db:"passed"`
	PassRate     float64   `db:"pass_rate"`
}

// FactFrequency counts how often an expected fact went missing for a skill.
type FactFrequency struct {
	Skill       string `db:"skill"`
	Fact        string `db:"fact"`
	Occurrences int    `db:"occurrences"`
}

// SourceStats compares pass rates across test case provenance.
type SourceStats struct {
	Source   eval.Provenance `db:"test_case_source"`
	Total    int             `db:"total"`
	Passed   int             `db:"passed"`
	PassRate float64         `db:"pass_rate"`
}

// Store is the repository contract for the evaluation harness.
type Store interface {
	// CreateRun inserts a new run record with zeroed aggregates.
	CreateRun(ctx context.Context, run *eval.TestRun) error
	// FinalizeRun writes the final aggregates for a run. Issued exactly once,
	// at batch end.
	FinalizeRun(ctx context.Context, run *eval.TestRun) error
	// GetRun loads a run record by id.
	GetRun(ctx context.Context, id string) (*eval.TestRun, error)

	// SaveActivationResult persists one activation result and sets its ID.
	SaveActivationResult(ctx context.Context, result *eval.ActivationResult) error
	// SaveQualityResult persists one quality result together with its
	// missing-fact and forbidden-content child rows, and sets its ID.
	SaveQualityResult(ctx context.Context, result *eval.QualityResult) error

	// AppendLogs appends ordered trace lines for one result. Append-only.
	AppendLogs(ctx context.Context, resultID int64, kind eval.TestKind, lines []string) error

	// LookupOrInsertSkillVersion dedups by (skill name, content hash) and
	// returns the version row id either way.
	LookupOrInsertSkillVersion(ctx context.Context, snapshot skills.Snapshot) (int64, error)
	// LinkRunSkillVersions records which skill versions were active for a run.
	LinkRunSkillVersions(ctx context.Context, runID string, versionIDs []int64) error

	// RecomputeRunAggregates repairs a run's aggregates from its persisted
	// child rows, for runs left non-finalized by a crash mid-batch.
	RecomputeRunAggregates(ctx context.Context, runID string) error

	ActivationTrend(ctx context.Context) ([]TrendPoint, error)
	QualityTrend(ctx context.Context) ([]TrendPoint, error)
	MissingFactFrequency(ctx context.Context) ([]FactFrequency, error)
	SourceComparison(ctx context.Context) ([]SourceStats, error)

	Close() error
}
