package conversation

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/moneybot/internal/models"
)

// parseAmountLine splits "<description words...> <amount>". The last token
// must be a non-negative decimal; the words before it, joined by single
// spaces, form the description (possibly empty).
func parseAmountLine(text string) (string, decimal.Decimal, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return "", decimal.Decimal{}, fmt.Errorf("empty message")
	}

	amount, err := parseAmount(tokens[len(tokens)-1])
	if err != nil {
		return "", decimal.Decimal{}, err
	}

	description := strings.Join(tokens[:len(tokens)-1], " ")
	// '|' is the ledger field delimiter.
	description = strings.ReplaceAll(description, "|", "/")
	return description, amount, nil
}

// parseCustomSplit parses alternating "<group> <amount>" tokens. Groups that
// are not named get a zero share. Each group may appear once.
func parseCustomSplit(text string, groups *models.GroupTable) (map[string]decimal.Decimal, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("expected group/amount pairs, got %d tokens", len(tokens))
	}

	amounts := make(map[string]decimal.Decimal, groups.Len())
	for i := 0; i < len(tokens); i += 2 {
		name := tokens[i]
		if !groups.Has(name) {
			return nil, fmt.Errorf("no such group %q", name)
		}
		if _, dup := amounts[name]; dup {
			return nil, fmt.Errorf("group %q listed twice", name)
		}
		amount, err := parseAmount(tokens[i+1])
		if err != nil {
			return nil, fmt.Errorf("amount for %s: %w", name, err)
		}
		amounts[name] = amount
	}

	for _, name := range groups.Names() {
		if _, ok := amounts[name]; !ok {
			amounts[name] = decimal.Zero
		}
	}
	return amounts, nil
}

// maxAmountExponent bounds the decimal exponent of user amounts. Arithmetic
// on a decimal allocates 10^|exponent|, so "1e-2000000000" must never get
// past parsing.
const maxAmountExponent = 12

func parseAmount(token string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", token)
	}
	if exp := amount.Exponent(); exp < -maxAmountExponent || exp > maxAmountExponent {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q: exponent out of range", token)
	}
	if f := amount.InexactFloat64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q: out of range", token)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount: %s", token)
	}
	return amount, nil
}
