package enums

import "fmt"

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TransactionTypeGemstonePurchase TransactionType = "GEMSTONE_PURCHASE"
	TransactionTypeInvestment       TransactionType = "INVESTMENT"
	TransactionTypeInvestmentRefund TransactionType = "INVESTMENT_REFUND"
	TransactionTypeBalanceTopup     TransactionType = "BALANCE_TOPUP"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeGemstonePurchase,
	TransactionTypeInvestment,
	TransactionTypeInvestmentRefund,
	TransactionTypeBalanceTopup,
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
