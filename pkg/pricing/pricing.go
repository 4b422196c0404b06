// Package pricing maps model identifiers to per-token rates and computes the
// estimated cost of an agent invocation. Rates are derived from published
// per-million-token prices divided by one million.
package pricing

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// ModelPricing holds the per-token pricing for different operations
type ModelPricing struct {
	Input              float64
	Output             float64
	PromptCachingWrite float64
	PromptCachingRead  float64
	ContextWindow      int
}

// ModelPricingMap maps model names to their pricing information
var ModelPricingMap = map[string]ModelPricing{
	// Latest models
	string(anthropic.ModelClaudeSonnet4_0): {
		Input:              0.000003,   // $3.00 per million tokens
		Output:             0.000015,   // $15.00 per million tokens
		PromptCachingWrite: 0.00000375, // $3.75 per million tokens
		PromptCachingRead:  0.0000003,  // $0.30 per million tokens
		ContextWindow:      200_000,
	},
	string(anthropic.ModelClaudeSonnet4_20250514): {
		Input:              0.000003,   // $3.00 per million tokens
		Output:             0.000015,   // $15.00 per million tokens
		PromptCachingWrite: 0.00000375, // $3.75 per million tokens
		PromptCachingRead:  0.0000003,  // $0.30 per million tokens
		ContextWindow:      200_000,
	},
	string(anthropic.ModelClaudeOpus4_0): {
		Input:              0.000015,   // $15.00 per million tokens
		Output:             0.000075,   // $75.00 per million tokens
		PromptCachingWrite: 0.00001875, // $18.75 per million tokens
		PromptCachingRead:  0.0000015,  // $1.50 per million tokens
		ContextWindow:      200_000,
	},
	string(anthropic.ModelClaudeOpus4_1_20250805): {
		Input:              0.000015,   // $15.00 per million tokens
		Output:             0.000075,   // $75.00 per million tokens
		PromptCachingWrite: 0.00001875, // $18.75 per million tokens
		PromptCachingRead:  0.0000015,  // $1.50 per million tokens
		ContextWindow:      200_000,
	},
	string(anthropic.ModelClaude3_7Sonnet20250219): {
		Input:              0.000003,   // $3.00 per million tokens
		Output:             0.000015,   // $15.00 per million tokens
		PromptCachingWrite: 0.00000375, // $3.75 per million tokens
		PromptCachingRead:  0.0000003,  // $0.30 per million tokens
		ContextWindow:      200_000,
	},
	string(anthropic.ModelClaude3_5HaikuLatest): {
		Input:              0.0000008,  // $0.80 per million tokens
		Output:             0.000004,   // $4.00 per million tokens
		PromptCachingWrite: 0.000001,   // $1.00 per million tokens
		PromptCachingRead:  0.00000008, // $0.08 per million tokens
		ContextWindow:      200_000,
	},
	string(anthropic.ModelClaude3OpusLatest): {
		Input:              0.000015,   // $15.00 per million tokens
		Output:             0.000075,   // $75.00 per million tokens
		PromptCachingWrite: 0.00001875, // $18.75 per million tokens
		PromptCachingRead:  0.0000015,  // $1.50 per million tokens
		ContextWindow:      200_000,
	},
}

// Lookup returns the pricing information for a given model. An unknown model
// is an error rather than a default: silently costing zero would mask
// pricing-table drift in aggregate totals.
func Lookup(model string) (ModelPricing, error) {
	// First try exact match
	if pricing, ok := ModelPricingMap[model]; ok {
		return pricing, nil
	}
	// Fall back to a match on model family for dated aliases
	lowerModel := strings.ToLower(model)
	switch {
	case strings.Contains(lowerModel, "claude-sonnet-4"), strings.Contains(lowerModel, "claude-4-sonnet"):
		return ModelPricingMap[string(anthropic.ModelClaudeSonnet4_0)], nil
	case strings.Contains(lowerModel, "claude-opus-4-1"), strings.Contains(lowerModel, "claude-4-1-opus"):
		return ModelPricingMap[string(anthropic.ModelClaudeOpus4_1_20250805)], nil
	case strings.Contains(lowerModel, "claude-opus-4"), strings.Contains(lowerModel, "claude-4-opus"):
		return ModelPricingMap[string(anthropic.ModelClaudeOpus4_0)], nil
	case strings.Contains(lowerModel, "claude-3-7-sonnet"):
		return ModelPricingMap[string(anthropic.ModelClaude3_7Sonnet20250219)], nil
	case strings.Contains(lowerModel, "claude-3-5-haiku"):
		return ModelPricingMap[string(anthropic.ModelClaude3_5HaikuLatest)], nil
	case strings.Contains(lowerModel, "claude-3-opus"):
		return ModelPricingMap[string(anthropic.ModelClaude3OpusLatest)], nil
	}

	return ModelPricing{}, errors.Errorf("no pricing for model %q", model)
}

// Cost computes the estimated cost in USD for the given usage counters.
// Thinking tokens are not billed separately and do not contribute.
func Cost(usage eval.Usage, model string) (float64, error) {
	pricing, err := Lookup(model)
	if err != nil {
		return 0, err
	}

	cost := float64(usage.InputTokens)*pricing.Input +
		float64(usage.OutputTokens)*pricing.Output +
		float64(usage.CacheCreationInputTokens)*pricing.PromptCachingWrite +
		float64(usage.CacheReadInputTokens)*pricing.PromptCachingRead
	return cost, nil
}
