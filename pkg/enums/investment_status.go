package enums

import "fmt"

// InvestmentStatus tracks an investor position's lifecycle.
type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "ACTIVE"
	InvestmentStatusCompleted InvestmentStatus = "COMPLETED"
)

var validInvestmentStatuses = []InvestmentStatus{
	InvestmentStatusActive,
	InvestmentStatusCompleted,
}

// IsValid reports whether the value is a known InvestmentStatus.
func (s InvestmentStatus) IsValid() bool {
	for _, candidate := range validInvestmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvestmentStatus converts raw input into an InvestmentStatus.
func ParseInvestmentStatus(value string) (InvestmentStatus, error) {
	for _, candidate := range validInvestmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid investment status %q", value)
}
