package reply

import "math"

// Per-1K-token prices in CNY for the default model.
const (
	DefaultInputRate  = 0.001
	DefaultOutputRate = 0.002
)

// CostCalculator converts token usage into money using a fixed price
// table.
type CostCalculator struct {
	InputRate  float64
	OutputRate float64
}

// NewCostCalculator returns a calculator with the default rates.
func NewCostCalculator() CostCalculator {
	return CostCalculator{InputRate: DefaultInputRate, OutputRate: DefaultOutputRate}
}

// Cost returns the price of a call, rounded to 4 decimals.
func (c CostCalculator) Cost(promptTokens, completionTokens int) float64 {
	cost := float64(promptTokens)/1000*c.InputRate + float64(completionTokens)/1000*c.OutputRate
	return math.Round(cost*10000) / 10000
}
