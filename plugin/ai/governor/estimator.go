package governor

import "strings"

// modelPricing is USD per million tokens. The table feeds pre-flight budget
// decisions only, never billing, so unknown models get a deliberately
// expensive fallback.
type modelPricing struct {
	inputPerMTokUSD  float64
	outputPerMTokUSD float64
}

var pricingByModel = map[string]modelPricing{
	"gpt-4o":        {inputPerMTokUSD: 2.50, outputPerMTokUSD: 10.00},
	"gpt-4o-mini":   {inputPerMTokUSD: 0.15, outputPerMTokUSD: 0.60},
	"gpt-4.1":       {inputPerMTokUSD: 2.00, outputPerMTokUSD: 8.00},
	"gpt-4.1-mini":  {inputPerMTokUSD: 0.40, outputPerMTokUSD: 1.60},
	"gpt-3.5-turbo": {inputPerMTokUSD: 0.50, outputPerMTokUSD: 1.50},
}

var fallbackPricing = modelPricing{inputPerMTokUSD: 5.00, outputPerMTokUSD: 15.00}

// EstimateTokensFromText estimates the token count of a text. It leans on the
// ~4 characters per token rule of thumb and rounds up; good enough for budget
// gating, not for billing.
func EstimateTokensFromText(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateMessagesTokens sums the token estimate over a message list, with a
// small per-message envelope overhead.
func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokensFromText(m.Content) + 4
	}
	return total
}

// EstimateModelCostUSD converts token counts into a conservative USD
// estimate for the given model.
func EstimateModelCostUSD(model string, inputTokens, outputTokens int64) float64 {
	p, ok := pricingByModel[model]
	if !ok {
		p = fallbackPricing
	}
	return float64(inputTokens)/1e6*p.inputPerMTokUSD + float64(outputTokens)/1e6*p.outputPerMTokUSD
}
