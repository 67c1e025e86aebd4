package models

// BudgetPeriod defines the time window for a token budget.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// TokenBudget caps the tokens remote analysis calls may spend per period.
// An empty Task or "*" applies to every task.
type TokenBudget struct {
	Task      string       `yaml:"task" json:"task"`
	MaxTokens int64        `yaml:"max_tokens" json:"max_tokens"`
	Period    BudgetPeriod `yaml:"period" json:"period"`
}

// BudgetStatus reports current usage against a budget.
type BudgetStatus struct {
	Budget    TokenBudget `json:"budget"`
	Used      int64       `json:"used"`
	Remaining int64       `json:"remaining"`
}
