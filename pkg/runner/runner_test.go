package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillbench/pkg/agent"
	"github.com/jingkaihe/skillbench/pkg/skills"
	"github.com/jingkaihe/skillbench/pkg/store"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

const testModel = "claude-sonnet-4-20250514"

// fakeInvoker replays scripted responses keyed by prompt.
type fakeInvoker struct {
	responses map[string][]agent.Message
	errs      map[string]error
	calls     []string
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string, _ agent.Options) (agent.Stream, error) {
	f.calls = append(f.calls, prompt)
	if err, ok := f.errs[prompt]; ok {
		return nil, err
	}
	return &sliceStream{messages: f.responses[prompt]}, nil
}

type sliceStream struct {
	messages []agent.Message
	pos      int
}

func (s *sliceStream) Next() (agent.Message, error) {
	if s.pos >= len(s.messages) {
		return agent.Message{}, io.EOF
	}
	msg := s.messages[s.pos]
	s.pos++
	return msg, nil
}

func (s *sliceStream) Close() error { return nil }

func assistantText(text string) agent.Message {
	return agent.Message{
		Kind:    agent.MessageAssistant,
		Usage:   &eval.Usage{InputTokens: 100, OutputTokens: 50},
		Content: []agent.ContentBlock{{Type: agent.BlockText, Text: text}},
	}
}

func assistantActivation(skill string) agent.Message {
	return agent.Message{
		Kind:  agent.MessageAssistant,
		Usage: &eval.Usage{InputTokens: 100, OutputTokens: 10},
		Content: []agent.ContentBlock{{
			Type:      agent.BlockToolUse,
			ToolName:  "Skill",
			ToolInput: map[string]any{"skill": skill},
		}},
	}
}

func newTestDiscovery(t *testing.T) *skills.Discovery {
	t.Helper()

	skillsDir := t.TempDir()
	skillDir := filepath.Join(skillsDir, "svelte5-runes")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	content := "---\nname: svelte5-runes\ndescription: Svelte 5 runes API\n---\n\nUse $state."
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644))

	discovery, err := skills.NewDiscovery(skills.WithSkillDirs(skillsDir))
	require.NoError(t, err)
	return discovery
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func activationCase(id, query string) eval.ActivationCase {
	return eval.ActivationCase{
		ID:             id,
		Query:          query,
		ExpectedSkill:  "svelte5-runes",
		ShouldActivate: true,
		Source:         eval.SourceSynthetic,
	}
}

func TestRunActivation(t *testing.T) {
	ctx := context.Background()
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"reactive state?": {assistantActivation("svelte5-runes")},
			"wrong skill?":    {assistantActivation("sveltekit-structure")},
			"no activation?":  {assistantText("plain answer")},
		},
	}
	st := newTestStore(t)
	r := New(invoker, st, newTestDiscovery(t), Config{Model: testModel, GitCommitHash: "abc1234"})

	cases := []eval.ActivationCase{
		activationCase("act-001", "reactive state?"),
		activationCase("act-002", "wrong skill?"),
		activationCase("act-003", "no activation?"),
	}
	results := r.RunActivation(ctx, eval.TestKindActivation, cases)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"reactive state?", "wrong skill?", "no activation?"}, invoker.calls)

	assert.True(t, results[0].Passed)
	require.NotNil(t, results[0].ActivatedSkill)
	assert.Equal(t, "svelte5-runes", *results[0].ActivatedSkill)

	assert.False(t, results[1].Passed)
	require.NotNil(t, results[1].ActivatedSkill)
	assert.Equal(t, "sveltekit-structure", *results[1].ActivatedSkill)

	assert.False(t, results[2].Passed)
	assert.Nil(t, results[2].ActivatedSkill)

	// all results bound to one persisted, finalized run
	runID := results[0].RunID
	require.NotEmpty(t, runID)
	run, err := st.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, eval.TestKindActivation, run.TestType)
	assert.Equal(t, 3, run.TotalTests)
	assert.Equal(t, 1, run.PassedTests)
	assert.Equal(t, 2, run.FailedTests)
	assert.Equal(t, 300, run.TotalInputTokens)
	assert.Positive(t, run.TotalCostUSD)
}

func TestRunActivationNegativeCase(t *testing.T) {
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"capital of France?": {assistantText("Paris")},
		},
	}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: testModel})

	c := eval.ActivationCase{
		ID:             "act-neg",
		Query:          "capital of France?",
		ShouldActivate: false,
		Source:         eval.SourceSynthetic,
	}
	results := r.RunActivation(context.Background(), eval.TestKindActivation, []eval.ActivationCase{c})

	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Nil(t, results[0].ActivatedSkill)
}

func TestRunActivationFailureIsolation(t *testing.T) {
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"good query": {assistantActivation("svelte5-runes")},
		},
		errs: map[string]error{
			"bad query": errors.New("agent exited with error: boom"),
		},
	}
	st := newTestStore(t)
	r := New(invoker, st, newTestDiscovery(t), Config{Model: testModel})

	cases := []eval.ActivationCase{
		activationCase("act-001", "bad query"),
		activationCase("act-002", "good query"),
	}
	results := r.RunActivation(context.Background(), eval.TestKindActivation, cases)

	require.Len(t, results, 2)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "boom")
	assert.True(t, results[1].Passed)
}

func TestRunActivationInvalidCase(t *testing.T) {
	invoker := &fakeInvoker{}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: testModel})

	c := eval.ActivationCase{ID: "act-001", ShouldActivate: true, Source: eval.SourceSynthetic}
	results := r.RunActivation(context.Background(), eval.TestKindActivation, []eval.ActivationCase{c})

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "invalid test case")
	// rejected before any agent call
	assert.Empty(t, invoker.calls)
}

func TestRunActivationCancellation(t *testing.T) {
	invoker := &fakeInvoker{}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: testModel})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []eval.ActivationCase{
		activationCase("act-001", "q1"),
		activationCase("act-002", "q2"),
	}
	results := r.RunActivation(ctx, eval.TestKindActivation, cases)
	assert.Empty(t, results)
	assert.Empty(t, invoker.calls)
}

func TestRunActivationDegradedMode(t *testing.T) {
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"reactive state?": {assistantActivation("svelte5-runes")},
		},
	}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: testModel})

	results := r.RunActivation(context.Background(), eval.TestKindActivation,
		[]eval.ActivationCase{activationCase("act-001", "reactive state?")})

	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Empty(t, results[0].RunID)
	assert.Zero(t, results[0].ID)
}

func TestRunActivationUnknownModelPricing(t *testing.T) {
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"reactive state?": {assistantActivation("svelte5-runes")},
		},
	}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: "unknown-model"})

	results := r.RunActivation(context.Background(), eval.TestKindActivation,
		[]eval.ActivationCase{activationCase("act-001", "reactive state?")})

	require.Len(t, results, 1)
	// scoring is unaffected; only the cost figure is withheld
	assert.True(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "no pricing for model")
	assert.Zero(t, results[0].Usage.CostUSD)
	assert.Equal(t, 100, results[0].Usage.InputTokens)
}

func TestRunQuality(t *testing.T) {
	ctx := context.Background()
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"click handler?": {assistantText("In Svelte 5 use onclick={handler} instead.")},
			"state rune?":    {assistantText("Reach for on:click and let/reactive statements.")},
		},
	}
	st := newTestStore(t)
	r := New(invoker, st, newTestDiscovery(t), Config{Model: testModel})

	cases := []eval.QualityCase{
		{
			ID: "qual-001", Skill: "svelte5-runes", Query: "click handler?",
			ExpectedFacts: []string{"onclick"}, MustNotContain: []string{"on:click"},
			Source: eval.SourceSynthetic,
		},
		{
			ID: "qual-002", Skill: "svelte5-runes", Query: "state rune?",
			ExpectedFacts: []string{"$state"}, MustNotContain: []string{"on:click"},
			Source: eval.SourceRegression,
		},
	}
	results := r.RunQuality(ctx, cases)

	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.Empty(t, results[0].MissingFacts)
	assert.Equal(t, "In Svelte 5 use onclick={handler} instead.", results[0].ResponsePreview)
	assert.Empty(t, results[0].ResponseFullText)

	assert.False(t, results[1].Passed)
	assert.Equal(t, []string{"$state"}, results[1].MissingFacts)
	assert.Equal(t, []string{"on:click"}, results[1].ForbiddenContent)

	run, err := st.GetRun(ctx, results[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, eval.TestKindQuality, run.TestType)
	assert.Equal(t, 2, run.TotalTests)
	assert.Equal(t, 1, run.PassedTests)
}

func TestRunQualityRetainFullResponse(t *testing.T) {
	invoker := &fakeInvoker{
		responses: map[string][]agent.Message{
			"click handler?": {assistantText("Use onclick={handler}.")},
		},
	}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: testModel, RetainFullResponse: true})

	results := r.RunQuality(context.Background(), []eval.QualityCase{{
		ID: "qual-001", Skill: "svelte5-runes", Query: "click handler?",
		ExpectedFacts: []string{"onclick"}, Source: eval.SourceSynthetic,
	}})

	require.Len(t, results, 1)
	assert.Equal(t, "Use onclick={handler}.", results[0].ResponseFullText)
}

func TestRunQualityErrorForcesFailure(t *testing.T) {
	// the partial response contains every expected fact, but the invocation
	// error still forces a fail
	invoker := &fakeInvoker{
		errs: map[string]error{
			"click handler?": errors.New("agent exited with error: timeout"),
		},
	}
	r := New(invoker, nil, newTestDiscovery(t), Config{Model: testModel})

	results := r.RunQuality(context.Background(), []eval.QualityCase{{
		ID: "qual-001", Skill: "svelte5-runes", Query: "click handler?",
		ExpectedFacts: []string{"onclick"}, Source: eval.SourceSynthetic,
	}})

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "timeout")
}
