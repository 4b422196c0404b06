// Package testcases loads and validates the static test case catalog. The
// catalog is pure data in YAML; validation runs before any agent call so a
// malformed case is rejected up front rather than silently skipped.
package testcases

import (
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// Catalog is the full set of test case definitions.
type Catalog struct {
	Activation []eval.ActivationCase `yaml:"activation"`
	Quality    []eval.QualityCase    `yaml:"quality"`
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read test case catalog")
	}

	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, errors.Wrap(err, "failed to parse test case catalog")
	}

	return &catalog, nil
}

var validSources = map[eval.Provenance]bool{
	eval.SourceSynthetic:    true,
	eval.SourceRealSession:  true,
	eval.SourceRegression:   true,
	eval.SourceUserReported: true,
}

// ValidateActivation checks one activation case, accumulating every schema
// violation rather than stopping at the first.
func ValidateActivation(c eval.ActivationCase) error {
	var result *multierror.Error
	if c.ID == "" {
		result = multierror.Append(result, errors.New("test id is required"))
	}
	if c.Query == "" {
		result = multierror.Append(result, errors.New("query is required"))
	}
	if c.ExpectedSkill == "" && c.ShouldActivate {
		result = multierror.Append(result, errors.New("expected_skill is required when should_activate is true"))
	}
	if !validSources[c.Source] {
		result = multierror.Append(result, errors.Errorf("invalid test case source %q", c.Source))
	}
	return result.ErrorOrNil()
}

// ValidateQuality checks one quality case, accumulating every schema
// violation rather than stopping at the first.
func ValidateQuality(c eval.QualityCase) error {
	var result *multierror.Error
	if c.ID == "" {
		result = multierror.Append(result, errors.New("test id is required"))
	}
	if c.Skill == "" {
		result = multierror.Append(result, errors.New("skill is required"))
	}
	if c.Query == "" {
		result = multierror.Append(result, errors.New("query is required"))
	}
	if len(c.ExpectedFacts) == 0 && len(c.MustNotContain) == 0 {
		result = multierror.Append(result, errors.New("at least one expected fact or forbidden string is required"))
	}
	if !validSources[c.Source] {
		result = multierror.Append(result, errors.Errorf("invalid test case source %q", c.Source))
	}
	return result.ErrorOrNil()
}
