package enums

import "fmt"

// InvestorStatus tracks an investor application's review state.
type InvestorStatus string

const (
	InvestorStatusNotApplied InvestorStatus = "not_applied"
	InvestorStatusPending    InvestorStatus = "pending"
	InvestorStatusApproved   InvestorStatus = "approved"
	InvestorStatusRejected   InvestorStatus = "rejected"
)

var validInvestorStatuses = []InvestorStatus{
	InvestorStatusNotApplied,
	InvestorStatusPending,
	InvestorStatusApproved,
	InvestorStatusRejected,
}

// IsValid reports whether the value is a known InvestorStatus.
func (s InvestorStatus) IsValid() bool {
	for _, candidate := range validInvestorStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvestorStatus converts raw input into an InvestorStatus.
func ParseInvestorStatus(value string) (InvestorStatus, error) {
	for _, candidate := range validInvestorStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid investor status %q", value)
}
