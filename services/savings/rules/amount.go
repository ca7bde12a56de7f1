// Package savingsrules holds the pre-submission business rules for savings
// goals and the faucet. Rules are pure functions of freshly read chain state
// and the request time.
package savingsrules

import (
	"math"
	"strconv"
	"strings"

	"github.com/nestfund/savings_layer/internal/errors"
)

// ParseAmount parses a base-unit amount given as a plain decimal integer
// string. Only ASCII digits are accepted, so exponent and fraction syntax
// never reaches arbitrary-precision arithmetic. The value must be positive
// and fit in 64 bits.
func ParseAmount(field, raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.Validation("%s is required", field)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, errors.Validation("%s must be an integer amount in base units", field)
		}
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Validation("%s exceeds the maximum of %d", field, uint64(math.MaxUint64))
	}
	if v == 0 {
		return 0, errors.Validation("%s must be positive", field)
	}
	return v, nil
}
