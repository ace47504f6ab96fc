// Package cost estimates the spend of provider completions from token usage.
package cost

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps a model name to its pricing.
type Rates map[string]ModelRate

// Calculator computes costs for provider usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Completion returns the cost of one completion. Unpriced models cost 0; the
// bool reports whether model had a rate.
func (c *Calculator) Completion(model string, input, output int) (float64, bool) {
	if c == nil {
		return 0, false
	}
	rate, ok := c.rates[model]
	if !ok {
		return 0, false
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost, true
}

// DefaultRates returns list prices for the default provider models.
func DefaultRates() Rates {
	return Rates{
		"llama-3.3-70b-versatile":           {Input: 0.59, Output: 0.79},
		"meta-llama/llama-3.3-70b-instruct": {Input: 0.13, Output: 0.40},
		"gpt-4o-mini":                       {Input: 0.15, Output: 0.60},
		"claude-haiku-4-5-20251001":         {Input: 1.00, Output: 5.00},
	}
}

// Merge returns DefaultRates overlaid with overrides.
func Merge(overrides Rates) Rates {
	out := DefaultRates()
	for model, r := range overrides {
		out[model] = r
	}
	return out
}
