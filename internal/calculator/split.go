package calculator

import (
	"fmt"
)

// EvenSplit divides total equally among all groups: every share is
// total / len(groups). Residual float rounding is kept as-is, there is no
// remainder redistribution.
func EvenSplit(total float64, groups []string) (map[string]float64, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("must have at least one group")
	}
	if total < 0 {
		return nil, fmt.Errorf("total cannot be negative: %v", total)
	}

	share := total / float64(len(groups))
	shares := make(map[string]float64, len(groups))
	for _, g := range groups {
		shares[g] = share
	}
	return shares, nil
}
