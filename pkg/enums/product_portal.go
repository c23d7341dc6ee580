package enums

import "fmt"

// ProductPortal controls which storefront a gemstone is visible on.
type ProductPortal string

const (
	ProductPortalPublic           ProductPortal = "PUBLIC"
	ProductPortalInvestor         ProductPortal = "INVESTOR"
	ProductPortalPublicByInvested ProductPortal = "PUBLIC BY INVESTED"
)

var validProductPortals = []ProductPortal{
	ProductPortalPublic,
	ProductPortalInvestor,
	ProductPortalPublicByInvested,
}

// IsValid reports whether the value is a known ProductPortal.
func (p ProductPortal) IsValid() bool {
	for _, candidate := range validProductPortals {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductPortal converts raw input into a ProductPortal.
func ParseProductPortal(value string) (ProductPortal, error) {
	for _, candidate := range validProductPortals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product portal %q", value)
}
