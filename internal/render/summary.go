package render

import (
	"fmt"
	"strings"

	"github.com/mmynk/moneybot/internal/calculator"
)

// Summary renders one "group = balance" line per group followed by the
// suggested transfers, if any.
func Summary(balances []calculator.GroupBalance, transfers []calculator.Transfer) string {
	var b strings.Builder
	b.WriteString("Balances:")
	for _, gb := range balances {
		fmt.Fprintf(&b, "\n%s = %s", gb.Group, Amount(gb.Net))
	}

	if len(transfers) > 0 {
		b.WriteString("\n\nSettle up:")
		for _, t := range transfers {
			fmt.Fprintf(&b, "\n%s pays %s %s", t.From, t.To, Amount(t.Amount))
		}
	}
	return b.String()
}
