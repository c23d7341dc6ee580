package enums

import "fmt"

// PayoutMethod is the destination rail an investor withdraws earnings to.
type PayoutMethod string

const (
	PayoutMethodBank      PayoutMethod = "bank"
	PayoutMethodSadaPay   PayoutMethod = "sadapay"
	PayoutMethodNayaPay   PayoutMethod = "nayapay"
	PayoutMethodEasyPaisa PayoutMethod = "easypaisa"
	PayoutMethodJazzCash  PayoutMethod = "jazzcash"
	PayoutMethodUPaisa    PayoutMethod = "upaisa"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBank,
	PayoutMethodSadaPay,
	PayoutMethodNayaPay,
	PayoutMethodEasyPaisa,
	PayoutMethodJazzCash,
	PayoutMethodUPaisa,
}

// IsValid reports whether the value is a known PayoutMethod.
func (m PayoutMethod) IsValid() bool {
	for _, candidate := range validPayoutMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// RequiresIBAN reports whether the method settles over a bank account.
func (m PayoutMethod) RequiresIBAN() bool {
	return m == PayoutMethodBank
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	for _, candidate := range validPayoutMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout method %q", value)
}
