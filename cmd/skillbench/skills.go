package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillbench/pkg/presenter"
	"github.com/jingkaihe/skillbench/pkg/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect the skills under evaluation",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered skills",
	RunE: func(_ *cobra.Command, _ []string) error {
		discovery, err := newDiscovery()
		if err != nil {
			return err
		}

		discovered, err := discovery.DiscoverSkills()
		if err != nil {
			return err
		}
		names, err := discovery.ListSkillNames()
		if err != nil {
			return err
		}

		presenter.Section("Skills")
		for _, name := range names {
			presenter.Info(fmt.Sprintf("%s - %s", name, discovered[name].Description))
		}
		return nil
	},
}

var skillsVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Show the current content fingerprint of each skill",
	RunE: func(_ *cobra.Command, _ []string) error {
		discovery, err := newDiscovery()
		if err != nil {
			return err
		}

		snapshots, err := skills.SnapshotAll(discovery)
		if err != nil {
			return err
		}

		presenter.Section("Skill versions")
		for _, snapshot := range snapshots {
			presenter.Info(fmt.Sprintf("%s %s", snapshot.ContentHash[:12], snapshot.SkillName))
		}
		return nil
	},
}

func init() {
	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsVersionsCmd)
}
