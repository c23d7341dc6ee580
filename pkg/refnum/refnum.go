// Package refnum generates the human-facing reference numbers stamped on
// orders, transactions, investments and products.
package refnum

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixOrder       = "ORD"
	PrefixTransaction = "TXN"
	PrefixInvestment  = "INV"
	PrefixProduct     = "GEM"
	PrefixInvestor    = "IVR"
)

// New returns a reference like "ORD-1767168000000-9FA3C1". The millisecond
// timestamp keeps references roughly sortable; the random suffix breaks ties.
func New(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
