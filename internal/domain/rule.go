package domain

// RuleConfig defines an operator-authored screening rule.
// Rules are CEL expressions evaluated against incoming transactions,
// alongside the built-in detection rules.
type RuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// CEL expression to evaluate; must yield a boolean.
	Expression string `json:"expression"`

	// Confidence assigned to findings when the rule fires.
	Confidence float64 `json:"confidence"`

	// Whether the rule is active
	Enabled bool `json:"enabled"`
}
