package eval

import "time"

// ResponsePreviewLimit bounds the stored response preview for quality results.
// The full response text is retained separately when configured.
const ResponsePreviewLimit = 500

// ActivationResult is the outcome of one activation test case.
type ActivationResult struct {
	ID             int64
	RunID          string
	TestID         string
	Query          string
	ExpectedSkill  string
	ActivatedSkill *string
	ShouldActivate bool
	Passed         bool
	Error          string
	Source         Provenance
	SessionContext string
	Usage          Usage
	CreatedAt      time.Time
}

// QualityResult is the outcome of one quality test case. MissingFacts and
// ForbiddenContent preserve the order of the case's expectation lists.
type QualityResult struct {
	ID               int64
	RunID            string
	TestID           string
	Skill            string
	Query            string
	ResponsePreview  string
	ResponseFullText string
	MissingFacts     []string
	ForbiddenContent []string
	Passed           bool
	Error            string
	Source           Provenance
	SessionContext   string
	Usage            Usage
	CreatedAt        time.Time
}

// Preview truncates a response to the preview limit.
func Preview(response string) string {
	if len(response) <= ResponsePreviewLimit {
		return response
	}
	return response[:ResponsePreviewLimit]
}
