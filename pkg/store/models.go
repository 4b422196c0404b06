package store

import (
	"time"

	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// dbTestRun represents the test_runs table structure
type dbTestRun struct {
	ID                   string    `db:"id"`
	RunTimestamp         time.Time `db:"run_timestamp"`
	Model                string    `db:"model"`
	GitCommitHash        *string   `db:"git_commit_hash"` // NULL in database
	TotalTests           int       `db:"total_tests"`
	PassedTests          int       `db:"passed_tests"`
	FailedTests          int       `db:"failed_tests"`
	TestType             string    `db:"test_type"`
	TotalInputTokens     int       `db:"total_input_tokens"`
	TotalOutputTokens    int       `db:"total_output_tokens"`
	TotalCacheReadTokens int       `db:"total_cache_read_tokens"`
	TotalLatencyMs       int64     `db:"total_latency_ms"`
	TotalCostUSD         float64   `db:"total_cost_usd"`
	AvgLatencyMs         float64   `db:"avg_latency_ms"`
	CreatedAt            time.Time `db:"created_at"`
}

func fromTestRun(run *eval.TestRun) dbTestRun {
	record := dbTestRun{
		ID:                   run.ID,
		RunTimestamp:         run.RunTimestamp,
		Model:                run.Model,
		TotalTests:           run.TotalTests,
		PassedTests:          run.PassedTests,
		FailedTests:          run.FailedTests,
		TestType:             string(run.TestType),
		TotalInputTokens:     run.TotalInputTokens,
		TotalOutputTokens:    run.TotalOutputTokens,
		TotalCacheReadTokens: run.TotalCacheReadTokens,
		TotalLatencyMs:       run.TotalLatencyMs,
		TotalCostUSD:         run.TotalCostUSD,
		AvgLatencyMs:         run.AvgLatencyMs,
		CreatedAt:            run.CreatedAt,
	}
	if run.GitCommitHash != "" {
		record.GitCommitHash = &run.GitCommitHash
	}
	return record
}

func (r *dbTestRun) toTestRun() *eval.TestRun {
	run := &eval.TestRun{
		ID:                   r.ID,
		RunTimestamp:         r.RunTimestamp,
		Model:                r.Model,
		TestType:             eval.TestKind(r.TestType),
		TotalTests:           r.TotalTests,
		PassedTests:          r.PassedTests,
		FailedTests:          r.FailedTests,
		TotalInputTokens:     r.TotalInputTokens,
		TotalOutputTokens:    r.TotalOutputTokens,
		TotalCacheReadTokens: r.TotalCacheReadTokens,
		TotalLatencyMs:       r.TotalLatencyMs,
		TotalCostUSD:         r.TotalCostUSD,
		AvgLatencyMs:         r.AvgLatencyMs,
		CreatedAt:            r.CreatedAt,
	}
	if r.GitCommitHash != nil {
		run.GitCommitHash = *r.GitCommitHash
	}
	return run
}

// dbActivationResult represents the activation_results table structure
type dbActivationResult struct {
	ID                  int64     `db:"id"`
	RunID               string    `db:"run_id"`
	TestID              string    `db:"test_id"`
	Query               string    `db:"query"`
	ExpectedSkill       string    `db:"expected_skill"`
	ActivatedSkill      *string   `db:"activated_skill"` // NULL in database
	ShouldActivate      bool      `db:"should_activate"`
	Passed              bool      `db:"passed"`
	Error               *string   `db:"error"` // NULL in database
	TestCaseSource      string    `db:"test_case_source"`
	SessionContext      *string   `db:"session_context"` // NULL in database
	InputTokens         int       `db:"input_tokens"`
	OutputTokens        int       `db:"output_tokens"`
	CacheCreationTokens int       `db:"cache_creation_tokens"`
	CacheReadTokens     int       `db:"cache_read_tokens"`
	ThinkingTokens      int       `db:"thinking_tokens"`
	LatencyMs           int64     `db:"latency_ms"`
	CostUSD             float64   `db:"cost_usd"`
	CreatedAt           time.Time `db:"created_at"`
}

func fromActivationResult(result *eval.ActivationResult) dbActivationResult {
	record := dbActivationResult{
		RunID:               result.RunID,
		TestID:              result.TestID,
		Query:               result.Query,
		ExpectedSkill:       result.ExpectedSkill,
		ActivatedSkill:      result.ActivatedSkill,
		ShouldActivate:      result.ShouldActivate,
		Passed:              result.Passed,
		TestCaseSource:      string(result.Source),
		InputTokens:         result.Usage.InputTokens,
		OutputTokens:        result.Usage.OutputTokens,
		CacheCreationTokens: result.Usage.CacheCreationInputTokens,
		CacheReadTokens:     result.Usage.CacheReadInputTokens,
		ThinkingTokens:      result.Usage.ThinkingTokens,
		LatencyMs:           result.Usage.LatencyMs,
		CostUSD:             result.Usage.CostUSD,
		CreatedAt:           result.CreatedAt,
	}
	if result.Error != "" {
		record.Error = &result.Error
	}
	if result.SessionContext != "" {
		record.SessionContext = &result.SessionContext
	}
	return record
}

// dbQualityResult represents the quality_results table structure
type dbQualityResult struct {
	ID                  int64     `db:"id"`
	RunID               string    `db:"run_id"`
	TestID              string    `db:"test_id"`
	Skill               string    `db:"skill"`
	Query               string    `db:"query"`
	ResponsePreview     string    `db:"response_preview"`
	ResponseFullText    *string   `db:"response_full_text"` // NULL in database
	Passed              bool      `db:"passed"`
	Error               *string   `db:"error"` // NULL in database
	TestCaseSource      string    `db:"test_case_source"`
	SessionContext      *string   `db:"session_context"` // NULL in database
	InputTokens         int       `db:"input_tokens"`
	OutputTokens        int       `db:"output_tokens"`
	CacheCreationTokens int       `db:"cache_creation_tokens"`
	CacheReadTokens     int       `db:"cache_read_tokens"`
	ThinkingTokens      int       `db:"thinking_tokens"`
	LatencyMs           int64     `db:"latency_ms"`
	CostUSD             float64   `db:"cost_usd"`
	CreatedAt           time.Time `db:"created_at"`
}

func fromQualityResult(result *eval.QualityResult) dbQualityResult {
	record := dbQualityResult{
		RunID:               result.RunID,
		TestID:              result.TestID,
		Skill:               result.Skill,
		Query:               result.Query,
		ResponsePreview:     result.ResponsePreview,
		Passed:              result.Passed,
		TestCaseSource:      string(result.Source),
		InputTokens:         result.Usage.InputTokens,
		OutputTokens:        result.Usage.OutputTokens,
		CacheCreationTokens: result.Usage.CacheCreationInputTokens,
		CacheReadTokens:     result.Usage.CacheReadInputTokens,
		ThinkingTokens:      result.Usage.ThinkingTokens,
		LatencyMs:           result.Usage.LatencyMs,
		CostUSD:             result.Usage.CostUSD,
		CreatedAt:           result.CreatedAt,
	}
	if result.ResponseFullText != "" {
		record.ResponseFullText = &result.ResponseFullText
	}
	if result.Error != "" {
		record.Error = &result.Error
	}
	if result.SessionContext != "" {
		record.SessionContext = &result.SessionContext
	}
	return record
}
