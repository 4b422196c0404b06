package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillbench/pkg/presenter"
	"github.com/jingkaihe/skillbench/pkg/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show pass-rate trends from past runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := store.NewSQLiteStore(ctx, dbPath())
		if err != nil {
			return err
		}
		defer st.Close()

		activation, err := st.ActivationTrend(ctx)
		if err != nil {
			return err
		}
		presenter.Section("Activation pass rate per run")
		for _, point := range activation {
			presenter.Info(fmt.Sprintf("%s %-30s %d/%d (%.0f%%)",
				point.RunTimestamp.Format("2006-01-02 15:04"), point.Skill,
				point.Passed, point.Total, point.PassRate*100))
		}

		quality, err := st.QualityTrend(ctx)
		if err != nil {
			return err
		}
		presenter.Section("Quality pass rate per run")
		for _, point := range quality {
			presenter.Info(fmt.Sprintf("%s %-30s %d/%d (%.0f%%)",
				point.RunTimestamp.Format("2006-01-02 15:04"), point.Skill,
				point.Passed, point.Total, point.PassRate*100))
		}

		facts, err := st.MissingFactFrequency(ctx)
		if err != nil {
			return err
		}
		if len(facts) > 0 {
			presenter.Section("Most frequently missing facts")
			for _, fact := range facts {
				presenter.Info(fmt.Sprintf("%3dx %s: %s", fact.Occurrences, fact.Skill, fact.Fact))
			}
		}

		sources, err := st.SourceComparison(ctx)
		if err != nil {
			return err
		}
		if len(sources) > 0 {
			presenter.Section("Pass rate by test case source")
			for _, source := range sources {
				presenter.Info(fmt.Sprintf("%-14s %d/%d (%.0f%%)",
					source.Source, source.Passed, source.Total, source.PassRate*100))
			}
		}

		return nil
	},
}
