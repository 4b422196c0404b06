// Package scorer computes pass/fail for interpreted agent output against a
// test case's expectations.
package scorer

import (
	"strings"

	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// ScoreActivation decides whether an activation case passed. For positive
// cases the activated skill must equal the expected skill; a nil activation
// never passes. For negative cases (ShouldActivate false) the case passes
// only when no skill activated at all.
func ScoreActivation(activated *string, c eval.ActivationCase) bool {
	if !c.ShouldActivate {
		return activated == nil
	}
	return activated != nil && *activated == c.ExpectedSkill
}

// QualityScore holds the diagnostics of a quality-case evaluation. Missing
// and Forbidden preserve the order of the case's expectation lists.
type QualityScore struct {
	Missing   []string
	Forbidden []string
}

// Passed reports whether every expected fact was present and no forbidden
// content appeared.
func (s QualityScore) Passed() bool {
	return len(s.Missing) == 0 && len(s.Forbidden) == 0
}

// ScoreQuality checks the response text against the case's expected facts and
// forbidden strings using case-insensitive substring containment.
func ScoreQuality(response string, c eval.QualityCase) QualityScore {
	lower := strings.ToLower(response)

	var score QualityScore
	for _, fact := range c.ExpectedFacts {
		if !strings.Contains(lower, strings.ToLower(fact)) {
			score.Missing = append(score.Missing, fact)
		}
	}
	for _, content := range c.MustNotContain {
		if strings.Contains(lower, strings.ToLower(content)) {
			score.Forbidden = append(score.Forbidden, content)
		}
	}
	return score
}
