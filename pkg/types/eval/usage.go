package eval

// Usage represents token and latency counters reported by the agent for a
// single invocation, plus the estimated cost once pricing has been applied.
type Usage struct {
	InputTokens              int     // Regular input tokens count
	OutputTokens             int     // Output tokens generated
	CacheCreationInputTokens int     // Tokens used for creating cache entries
	CacheReadInputTokens     int     // Tokens used for reading from cache
	ThinkingTokens           int     // Extended thinking tokens (tracked, not billed with the rest)
	LatencyMs                int64   // Wall-clock latency for the invocation
	CostUSD                  float64 // Estimated cost in USD
}

// TotalTokens returns the total number of billable tokens used.
// Thinking tokens are tracked separately and intentionally excluded.
func (u *Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// Add accumulates another usage snapshot into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
	u.ThinkingTokens += other.ThinkingTokens
	u.LatencyMs += other.LatencyMs
	u.CostUSD += other.CostUSD
}
