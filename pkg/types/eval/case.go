// Package eval defines the shared domain types for the evaluation harness:
// test cases, per-case results, run records and usage counters.
package eval

import "time"

// TestKind identifies what a run is probing for.
type TestKind string

const (
	TestKindActivation  TestKind = "activation"
	TestKindQuality     TestKind = "quality"
	TestKindAntiPattern TestKind = "anti-pattern"
)

// Provenance records where a test case came from.
type Provenance string

const (
	SourceSynthetic    Provenance = "synthetic"
	SourceRealSession  Provenance = "real_session"
	SourceRegression   Provenance = "regression"
	SourceUserReported Provenance = "user_reported"
)

// ActivationCase probes whether the agent activates the expected skill for a
// given query.
type ActivationCase struct {
	ID             string     `yaml:"id"`
	Query          string     `yaml:"query"`
	ExpectedSkill  string     `yaml:"expected_skill"`
	ShouldActivate bool       `yaml:"should_activate"`
	Source         Provenance `yaml:"source"`
	SessionContext string     `yaml:"session_context,omitempty"`
}

// QualityCase probes whether the agent's response, with a skill active,
// contains the expected facts and avoids forbidden content.
type QualityCase struct {
	ID             string     `yaml:"id"`
	Skill          string     `yaml:"skill"`
	Query          string     `yaml:"query"`
	ExpectedFacts  []string   `yaml:"expected_facts"`
	MustNotContain []string   `yaml:"must_not_contain,omitempty"`
	Source         Provenance `yaml:"source"`
	SessionContext string     `yaml:"session_context,omitempty"`
}

// TestRun is one batch execution of a set of test cases against one model.
// Aggregates are zero at creation and written exactly once at finalization.
type TestRun struct {
	ID                   string
	RunTimestamp         time.Time
	Model                string
	GitCommitHash        string
	TestType             TestKind
	TotalTests           int
	PassedTests          int
	FailedTests          int
	TotalInputTokens     int
	TotalOutputTokens    int
	TotalCacheReadTokens int
	TotalLatencyMs       int64
	TotalCostUSD         float64
	AvgLatencyMs         float64
	CreatedAt            time.Time
}
