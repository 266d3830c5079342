package models

import (
	"fmt"
	"math"
	"time"
)

// ShareTolerance is the allowed drift between the sum of shares and the
// entry total caused by float64 division.
const ShareTolerance = 1e-6

// Entry is one recorded purchase. It is immutable once appended to the ledger.
type Entry struct {
	// Payer is the group that advanced the money.
	Payer string

	// Description is the free-text label of the purchase ("dinner", "taxi home").
	Description string

	// Total is the full cost of the purchase.
	Total float64

	// Shares maps every configured group to the amount it owes for this
	// purchase. Zero shares are stored explicitly.
	Shares map[string]float64

	// RecordedAt is when the entry was persisted. Display only.
	RecordedAt time.Time
}

// OrderedShares returns the shares in the table's group order.
func (e *Entry) OrderedShares(groups *GroupTable) []float64 {
	out := make([]float64, 0, groups.Len())
	for _, name := range groups.Names() {
		out = append(out, e.Shares[name])
	}
	return out
}

// Validate checks the entry against the group table: known payer,
// non-negative total, exactly one share per group, and shares summing to the
// total within ShareTolerance.
func (e *Entry) Validate(groups *GroupTable) error {
	if !groups.Has(e.Payer) {
		return fmt.Errorf("unknown payer group: %s", e.Payer)
	}
	if e.Total < 0 || math.IsNaN(e.Total) || math.IsInf(e.Total, 0) {
		return fmt.Errorf("invalid total: %v", e.Total)
	}
	if len(e.Shares) != groups.Len() {
		return fmt.Errorf("expected %d shares, got %d", groups.Len(), len(e.Shares))
	}
	var sum float64
	for name, share := range e.Shares {
		if !groups.Has(name) {
			return fmt.Errorf("share for unknown group: %s", name)
		}
		sum += share
	}
	if math.Abs(sum-e.Total) > ShareTolerance*math.Max(1, math.Abs(e.Total)) {
		return fmt.Errorf("shares sum to %v, total is %v", sum, e.Total)
	}
	return nil
}
