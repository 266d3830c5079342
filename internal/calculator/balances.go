package calculator

import (
	"math"
	"slices"

	"github.com/mmynk/moneybot/internal/models"
)

// settleEpsilon hides float noise when matching debtors with creditors.
const settleEpsilon = 0.01

// GroupBalance is the balance breakdown for one group.
type GroupBalance struct {
	Group string
	Paid  float64 // Sum of totals of entries this group paid for
	Owed  float64 // Sum of this group's shares across all entries
	Net   float64 // Paid - Owed. Positive = overpaid, negative = underpaid
}

// Transfer is a suggested payment that moves balances toward zero.
type Transfer struct {
	From   string // Group that underpaid
	To     string // Group that overpaid
	Amount float64
}

// Breakdown computes paid, owed and net amounts per group, in group order.
// Every configured group is present even when it has no entries.
//
// Algorithm:
// - For each entry: payer contributed +total, each group owes its share
// - net = paid - owed
func Breakdown(entries []models.Entry, groups []string) []GroupBalance {
	index := make(map[string]int, len(groups))
	out := make([]GroupBalance, len(groups))
	for i, g := range groups {
		index[g] = i
		out[i].Group = g
	}

	for _, e := range entries {
		if i, ok := index[e.Payer]; ok {
			out[i].Paid += e.Total
		}
		for g, share := range e.Shares {
			if i, ok := index[g]; ok {
				out[i].Owed += share
			}
		}
	}

	for i := range out {
		out[i].Net = out[i].Paid - out[i].Owed
	}
	return out
}

// ComputeBalances returns the net balance of every group. It is a pure
// function of the ledger history and is recomputed on every call.
func ComputeBalances(entries []models.Entry, groups []string) map[string]float64 {
	balances := make(map[string]float64, len(groups))
	for _, b := range Breakdown(entries, groups) {
		balances[b.Group] = b.Net
	}
	return balances
}

// SettleUp suggests transfers that bring every balance to zero, matching
// the largest debts with the largest credits first. Ties keep group order.
func SettleUp(balances map[string]float64, groups []string) []Transfer {
	type side struct {
		group  string
		amount float64
		order  int
	}

	var debtors, creditors []side
	for i, g := range groups {
		b := balances[g]
		switch {
		case b > settleEpsilon:
			creditors = append(creditors, side{group: g, amount: b, order: i})
		case b < -settleEpsilon:
			debtors = append(debtors, side{group: g, amount: -b, order: i})
		}
	}

	byAmount := func(a, b side) int {
		if a.amount != b.amount {
			if a.amount > b.amount {
				return -1
			}
			return 1
		}
		return a.order - b.order
	}
	slices.SortFunc(debtors, byAmount)
	slices.SortFunc(creditors, byAmount)

	// Greedy algorithm: match largest debts with largest credits
	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := math.Min(debtors[i].amount, creditors[j].amount)
		if amount > settleEpsilon {
			transfers = append(transfers, Transfer{
				From:   debtors[i].group,
				To:     creditors[j].group,
				Amount: amount,
			})
		}

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount < settleEpsilon {
			i++
		}
		if creditors[j].amount < settleEpsilon {
			j++
		}
	}
	return transfers
}
