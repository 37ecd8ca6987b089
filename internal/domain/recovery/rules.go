package recovery

// Rules is the auditable rule table used by the classifier.
// Keywords and codes are compared case-insensitively; field paths are JMESPath
// expressions evaluated against Failure.Data.
type Rules struct {
	BalanceKeywords []string
	BalanceCodes    []string
	BalanceFields   BalanceFieldPaths

	CredentialKeywords []string
	AttemptsFields     []string

	TransactionIDFields []string
}

// BalanceFieldPaths lists where structured balance figures may appear.
type BalanceFieldPaths struct {
	Current  []string
	Required []string
}

// All returns every path, current first.
func (b BalanceFieldPaths) All() []string {
	out := make([]string, 0, len(b.Current)+len(b.Required))
	out = append(out, b.Current...)
	return append(out, b.Required...)
}

// DefaultRules returns the rule set used in production.
func DefaultRules() Rules {
	return Rules{
		BalanceKeywords: []string{
			"insufficient",
			"low balance",
			"not enough",
			"balance too low",
			"insufficient funds",
			"insufficient balance",
			"balance is insufficient",
			"your balance is",
			"available balance",
			"current balance",
		},
		BalanceCodes: []string{
			"insufficient_balance",
			"insufficient_funds",
			"low_balance",
			"balance_too_low",
			"402",
			"insufficient",
		},
		BalanceFields: BalanceFieldPaths{
			Current:  []string{"currentBalance", "availableBalance", "balance"},
			Required: []string{"requiredAmount", "amount", "requestedAmount"},
		},
		CredentialKeywords:  []string{"pin", "password", "authentication"},
		AttemptsFields:      []string{"attemptsRemaining", "attempts_remaining", "remainingAttempts"},
		TransactionIDFields: []string{"transactionId", "transaction_id", "reference"},
	}
}
