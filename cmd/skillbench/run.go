package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillbench/pkg/agent/claudecli"
	"github.com/jingkaihe/skillbench/pkg/presenter"
	"github.com/jingkaihe/skillbench/pkg/runner"
	"github.com/jingkaihe/skillbench/pkg/skills"
	"github.com/jingkaihe/skillbench/pkg/store"
	"github.com/jingkaihe/skillbench/pkg/testcases"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of test cases against the agent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kind := eval.TestKind(viper.GetString("test_type"))
		switch kind {
		case eval.TestKindActivation, eval.TestKindQuality, eval.TestKindAntiPattern:
		default:
			return errors.Errorf("invalid test type %q", kind)
		}

		catalog, err := testcases.Load(viper.GetString("cases"))
		if err != nil {
			return err
		}

		discovery, err := newDiscovery()
		if err != nil {
			return err
		}

		var st store.Store
		sqliteStore, err := store.NewSQLiteStore(ctx, dbPath())
		if err != nil {
			// Degraded mode: results are still computed and shown, just not recorded
			presenter.Warning(fmt.Sprintf("results will not be persisted: %v", err))
		} else {
			st = sqliteStore
			defer sqliteStore.Close()
		}

		allowed, err := discovery.ListSkillNames()
		if err != nil {
			return err
		}

		r := runner.New(claudecli.NewInvoker(), st, discovery, runner.Config{
			Model:              viper.GetString("model"),
			GitCommitHash:      viper.GetString("git_commit"),
			WorkingDir:         viper.GetString("working_dir"),
			AllowedSkills:      allowed,
			RetainFullResponse: viper.GetBool("retain_full_response"),
		})

		if kind == eval.TestKindQuality {
			results := r.RunQuality(ctx, catalog.Quality)
			reportQuality(results)
		} else {
			results := r.RunActivation(ctx, kind, catalog.Activation)
			reportActivation(results)
		}
		return nil
	},
}

func newDiscovery() (*skills.Discovery, error) {
	if dirs := viper.GetStringSlice("skill_dirs"); len(dirs) > 0 {
		return skills.NewDiscovery(skills.WithSkillDirs(dirs...))
	}
	return skills.NewDiscovery()
}

func reportActivation(results []eval.ActivationResult) {
	presenter.Section("Activation results")

	passed := 0
	for _, result := range results {
		activated := "-"
		if result.ActivatedSkill != nil {
			activated = *result.ActivatedSkill
		}
		if result.Passed {
			passed++
			presenter.Success(fmt.Sprintf("%s: activated %s", result.TestID, activated))
			continue
		}
		if result.Error != "" {
			presenter.Error(errors.New(result.Error), result.TestID)
			continue
		}
		presenter.Warning(fmt.Sprintf("%s: expected %s, activated %s", result.TestID, result.ExpectedSkill, activated))
	}

	presenter.Info(fmt.Sprintf("\n%d/%d passed", passed, len(results)))
}

func reportQuality(results []eval.QualityResult) {
	presenter.Section("Quality results")

	passed := 0
	for _, result := range results {
		if result.Passed {
			passed++
			presenter.Success(result.TestID)
			continue
		}
		if result.Error != "" {
			presenter.Error(errors.New(result.Error), result.TestID)
			continue
		}
		presenter.Warning(fmt.Sprintf("%s: %d missing facts, %d forbidden matches",
			result.TestID, len(result.MissingFacts), len(result.ForbiddenContent)))
		for _, fact := range result.MissingFacts {
			presenter.Info("  missing: " + fact)
		}
		for _, content := range result.ForbiddenContent {
			presenter.Info("  forbidden: " + content)
		}
	}

	presenter.Info(fmt.Sprintf("\n%d/%d passed", passed, len(results)))
}

func init() {
	runCmd.Flags().String("type", "activation", "Test type (activation, quality, anti-pattern)")
	runCmd.Flags().String("cases", "testcases.yaml", "Path to the test case catalog")
	runCmd.Flags().StringSlice("skill-dirs", nil, "Skill directories (overrides defaults)")
	runCmd.Flags().String("git-commit", "", "Source control revision to record with the run")
	runCmd.Flags().String("working-dir", "", "Working directory for agent invocations")
	runCmd.Flags().Bool("retain-full-response", false, "Store the full response text, not just the preview")

	viper.BindPFlag("test_type", runCmd.Flags().Lookup("type"))
	viper.BindPFlag("cases", runCmd.Flags().Lookup("cases"))
	viper.BindPFlag("skill_dirs", runCmd.Flags().Lookup("skill-dirs"))
	viper.BindPFlag("git_commit", runCmd.Flags().Lookup("git-commit"))
	viper.BindPFlag("working_dir", runCmd.Flags().Lookup("working-dir"))
	viper.BindPFlag("retain_full_response", runCmd.Flags().Lookup("retain-full-response"))
}
