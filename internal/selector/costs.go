package selector

// ModelCost holds per-1K-token prices in USD.
type ModelCost struct {
	Input  float64
	Output float64
}

// modelCosts maps model names to their per-1K-token prices. Unknown models
// fall back to defaultCost.
var modelCosts = map[string]ModelCost{
	"gpt-4":           {Input: 0.03, Output: 0.06},
	"gpt-4-turbo":     {Input: 0.01, Output: 0.03},
	"gpt-3.5-turbo":   {Input: 0.001, Output: 0.002},
	"claude-3-sonnet": {Input: 0.015, Output: 0.075},
	"claude-3-haiku":  {Input: 0.00025, Output: 0.00125},
}

var defaultCost = ModelCost{Input: 0.01, Output: 0.03}

// CostFor returns the price table entry for a model.
func CostFor(model string) ModelCost {
	if c, ok := modelCosts[model]; ok {
		return c
	}
	return defaultCost
}

// EstimateTokens approximates token count as one token per four characters.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// estimatedOutputTokens is the assumed completion size per file analysis.
const estimatedOutputTokens = 1000

// EstimateCost estimates the USD cost of one completion call with the given
// input token count against a model.
func EstimateCost(model string, inputTokens int) float64 {
	c := CostFor(model)
	return (float64(inputTokens)*c.Input + estimatedOutputTokens*c.Output) / 1000
}
