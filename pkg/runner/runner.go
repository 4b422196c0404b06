// Package runner drives evaluation batches: it captures skill versions,
// creates the run record, feeds each test case through the agent invoker,
// interpreter and scorer, persists per-case results, and finalizes the run
// aggregates. Cases execute strictly sequentially in input order; a failure
// in one case never stops the loop.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillbench/pkg/agent"
	"github.com/jingkaihe/skillbench/pkg/interpreter"
	"github.com/jingkaihe/skillbench/pkg/logger"
	"github.com/jingkaihe/skillbench/pkg/pricing"
	"github.com/jingkaihe/skillbench/pkg/scorer"
	"github.com/jingkaihe/skillbench/pkg/skills"
	"github.com/jingkaihe/skillbench/pkg/store"
	"github.com/jingkaihe/skillbench/pkg/testcases"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// Config holds the per-batch settings of a Runner.
type Config struct {
	Model              string
	GitCommitHash      string
	WorkingDir         string
	AllowedSkills      []string
	RetainFullResponse bool
}

// Runner orchestrates one batch at a time. The store may be nil, in which
// case every batch runs in degraded (non-persisted) mode and results are
// only returned to the caller.
type Runner struct {
	invoker   agent.Invoker
	store     store.Store
	discovery *skills.Discovery
	config    Config
}

// New creates a Runner.
func New(invoker agent.Invoker, st store.Store, discovery *skills.Discovery, config Config) *Runner {
	return &Runner{
		invoker:   invoker,
		store:     st,
		discovery: discovery,
		config:    config,
	}
}

// batch tracks the state of one run: the bound run record (nil in degraded
// mode), the skill versions captured at batch start, and the running
// aggregates.
type batch struct {
	run        *eval.TestRun
	versionIDs []int64

	total           int
	passed          int
	inputTokens     int
	outputTokens    int
	cacheReadTokens int
	latencyMs       int64
	costUSD         float64
}

func (b *batch) persisted() bool {
	return b.run != nil
}

func (b *batch) accumulate(usage eval.Usage, passed bool) {
	b.total++
	if passed {
		b.passed++
	}
	b.inputTokens += usage.InputTokens
	b.outputTokens += usage.OutputTokens
	b.cacheReadTokens += usage.CacheReadInputTokens
	b.latencyMs += usage.LatencyMs
	b.costUSD += usage.CostUSD
}

// begin captures skill versions and creates the run record. Any failure here
// degrades the batch to non-persisted mode instead of aborting: the caller
// still gets results, only durability is lost.
func (r *Runner) begin(ctx context.Context, kind eval.TestKind) *batch {
	log := logger.G(ctx)
	b := &batch{}

	if r.store == nil {
		log.Warn("no store configured, results will not be persisted")
		return b
	}

	snapshots, err := skills.SnapshotAll(r.discovery)
	if err != nil {
		log.WithError(err).Error("failed to capture skill versions, running without persistence")
		return b
	}

	versionIDs := make([]int64, 0, len(snapshots))
	for _, snapshot := range snapshots {
		id, err := r.store.LookupOrInsertSkillVersion(ctx, snapshot)
		if err != nil {
			log.WithError(err).WithField("skill", snapshot.SkillName).
				Error("failed to record skill version, running without persistence")
			return b
		}
		versionIDs = append(versionIDs, id)
	}

	run := &eval.TestRun{
		ID:            uuid.NewString(),
		RunTimestamp:  time.Now(),
		Model:         r.config.Model,
		GitCommitHash: r.config.GitCommitHash,
		TestType:      kind,
		CreatedAt:     time.Now(),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		log.WithError(err).Error("failed to create run record, running without persistence")
		return b
	}

	b.run = run
	b.versionIDs = versionIDs
	log.WithFields(logrus.Fields{"run_id": run.ID, "test_type": kind}).Info("run created")
	return b
}

// finish writes the final aggregates and the run-to-version links. Failures
// are logged, never rolled back: already-persisted case rows stay put.
func (r *Runner) finish(ctx context.Context, b *batch) {
	if !b.persisted() {
		return
	}
	log := logger.G(ctx)

	b.run.TotalTests = b.total
	b.run.PassedTests = b.passed
	b.run.FailedTests = b.total - b.passed
	b.run.TotalInputTokens = b.inputTokens
	b.run.TotalOutputTokens = b.outputTokens
	b.run.TotalCacheReadTokens = b.cacheReadTokens
	b.run.TotalLatencyMs = b.latencyMs
	b.run.TotalCostUSD = b.costUSD
	b.run.AvgLatencyMs = 0
	if b.total > 0 {
		b.run.AvgLatencyMs = float64(b.latencyMs) / float64(b.total)
	}

	if err := r.store.FinalizeRun(ctx, b.run); err != nil {
		log.WithError(err).WithField("run_id", b.run.ID).Error("failed to finalize run record")
	}
	if err := r.store.LinkRunSkillVersions(ctx, b.run.ID, b.versionIDs); err != nil {
		log.WithError(err).WithField("run_id", b.run.ID).Error("failed to link skill versions")
	}
}

// invoke runs one agent call and reduces its output. The returned outcome
// carries partial output when the stream errors mid-way; an invocation that
// fails outright yields an empty outcome with the error captured.
func (r *Runner) invoke(ctx context.Context, query string, detectActivation bool) (interpreter.Outcome, int64) {
	start := time.Now()

	stream, err := r.invoker.Invoke(ctx, query, agent.Options{
		Model:         r.config.Model,
		WorkingDir:    r.config.WorkingDir,
		AllowedSkills: r.config.AllowedSkills,
	})
	if err != nil {
		return interpreter.Outcome{Err: err}, time.Since(start).Milliseconds()
	}

	outcome := interpreter.Consume(stream, interpreter.Options{DetectActivation: detectActivation})
	return outcome, time.Since(start).Milliseconds()
}

// price applies the pricing table to the case usage. A pricing-table miss is
// fatal to that case's cost figure only: the cost stays zero with an explicit
// note, so aggregate totals are never silently corrupted.
func (r *Runner) price(ctx context.Context, usage *eval.Usage) string {
	cost, err := pricing.Cost(*usage, r.config.Model)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("cost estimation failed")
		return err.Error()
	}
	usage.CostUSD = cost
	return ""
}

// RunActivation executes a batch of activation test cases and returns one
// result per case, in input order. kind distinguishes plain activation runs
// from anti-pattern runs; both are activation-shaped.
func (r *Runner) RunActivation(ctx context.Context, kind eval.TestKind, cases []eval.ActivationCase) []eval.ActivationResult {
	log := logger.G(ctx)
	b := r.begin(ctx, kind)

	results := make([]eval.ActivationResult, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("batch cancelled, not starting remaining cases")
			break
		}

		result := r.runActivationCase(ctx, b, c)
		b.accumulate(result.Usage, result.Passed)
		results = append(results, result)
	}

	r.finish(ctx, b)
	return results
}

func (r *Runner) runActivationCase(ctx context.Context, b *batch, c eval.ActivationCase) eval.ActivationResult {
	log := logger.G(ctx).WithField("test_id", c.ID)
	result := eval.ActivationResult{
		TestID:         c.ID,
		Query:          c.Query,
		ExpectedSkill:  c.ExpectedSkill,
		ShouldActivate: c.ShouldActivate,
		Source:         c.Source,
		SessionContext: c.SessionContext,
		CreatedAt:      time.Now(),
	}
	var logLines []string

	if err := testcases.ValidateActivation(c); err != nil {
		result.Error = fmt.Sprintf("invalid test case: %v", err)
		logLines = append(logLines, result.Error)
		log.WithError(err).Error("test case rejected")
		r.persistActivation(ctx, b, &result, logLines)
		return result
	}

	outcome, latencyMs := r.invoke(ctx, c.Query, true)
	result.Usage = outcome.Usage
	result.Usage.LatencyMs = latencyMs
	result.ActivatedSkill = outcome.ActivatedSkill

	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
		logLines = append(logLines, "invocation failed: "+result.Error)
		log.WithError(outcome.Err).Error("agent invocation failed")
	} else {
		result.Passed = scorer.ScoreActivation(outcome.ActivatedSkill, c)
		activated := "none"
		if outcome.ActivatedSkill != nil {
			activated = *outcome.ActivatedSkill
		}
		logLines = append(logLines, fmt.Sprintf("expected skill %q, activated %q, passed=%v",
			c.ExpectedSkill, activated, result.Passed))
	}

	if note := r.price(ctx, &result.Usage); note != "" {
		if result.Error != "" {
			result.Error += "; "
		}
		result.Error += note
		logLines = append(logLines, "cost estimation failed: "+note)
	}

	r.persistActivation(ctx, b, &result, logLines)
	return result
}

func (r *Runner) persistActivation(ctx context.Context, b *batch, result *eval.ActivationResult, logLines []string) {
	if !b.persisted() {
		return
	}
	log := logger.G(ctx).WithField("test_id", result.TestID)

	result.RunID = b.run.ID
	if err := r.store.SaveActivationResult(ctx, result); err != nil {
		log.WithError(err).Error("failed to persist activation result")
		return
	}
	if err := r.store.AppendLogs(ctx, result.ID, eval.TestKindActivation, logLines); err != nil {
		log.WithError(err).Error("failed to persist test logs")
	}
}

// RunQuality executes a batch of quality test cases and returns one result
// per case, in input order.
func (r *Runner) RunQuality(ctx context.Context, cases []eval.QualityCase) []eval.QualityResult {
	log := logger.G(ctx)
	b := r.begin(ctx, eval.TestKindQuality)

	results := make([]eval.QualityResult, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("batch cancelled, not starting remaining cases")
			break
		}

		result := r.runQualityCase(ctx, b, c)
		b.accumulate(result.Usage, result.Passed)
		results = append(results, result)
	}

	r.finish(ctx, b)
	return results
}

func (r *Runner) runQualityCase(ctx context.Context, b *batch, c eval.QualityCase) eval.QualityResult {
	log := logger.G(ctx).WithField("test_id", c.ID)
	result := eval.QualityResult{
		TestID:         c.ID,
		Skill:          c.Skill,
		Query:          c.Query,
		Source:         c.Source,
		SessionContext: c.SessionContext,
		CreatedAt:      time.Now(),
	}
	var logLines []string

	if err := testcases.ValidateQuality(c); err != nil {
		result.Error = fmt.Sprintf("invalid test case: %v", err)
		logLines = append(logLines, result.Error)
		log.WithError(err).Error("test case rejected")
		r.persistQuality(ctx, b, &result, logLines)
		return result
	}

	outcome, latencyMs := r.invoke(ctx, c.Query, false)
	result.Usage = outcome.Usage
	result.Usage.LatencyMs = latencyMs
	result.ResponsePreview = eval.Preview(outcome.ResponseText)
	if r.config.RetainFullResponse {
		result.ResponseFullText = outcome.ResponseText
	}

	score := scorer.ScoreQuality(outcome.ResponseText, c)
	result.MissingFacts = score.Missing
	result.ForbiddenContent = score.Forbidden

	if outcome.Err != nil {
		// error short-circuit: an invocation failure forces a fail even if
		// the partial response happened to contain every fact
		result.Error = outcome.Err.Error()
		logLines = append(logLines, "invocation failed: "+result.Error)
		log.WithError(outcome.Err).Error("agent invocation failed")
	} else {
		result.Passed = score.Passed()
		logLines = append(logLines, fmt.Sprintf("missing %d facts, %d forbidden matches, passed=%v",
			len(score.Missing), len(score.Forbidden), result.Passed))
	}

	if note := r.price(ctx, &result.Usage); note != "" {
		if result.Error != "" {
			result.Error += "; "
		}
		result.Error += note
		logLines = append(logLines, "cost estimation failed: "+note)
	}

	r.persistQuality(ctx, b, &result, logLines)
	return result
}

func (r *Runner) persistQuality(ctx context.Context, b *batch, result *eval.QualityResult, logLines []string) {
	if !b.persisted() {
		return
	}
	log := logger.G(ctx).WithField("test_id", result.TestID)

	result.RunID = b.run.ID
	if err := r.store.SaveQualityResult(ctx, result); err != nil {
		log.WithError(err).Error("failed to persist quality result")
		return
	}
	if err := r.store.AppendLogs(ctx, result.ID, eval.TestKindQuality, logLines); err != nil {
		log.WithError(err).Error("failed to persist test logs")
	}
}
