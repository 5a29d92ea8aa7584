/**
 * @description
 * Canonical currency enumeration and alias normalization.
 * The tracked universe is fixed: US dollar, euro, 18k gold gram, Emami gold coin.
 *
 * @notes
 * - Normalize is a pure function; unrecognized input is a client error, never a fault.
 */

package currency

import "strings"

// Currency is one of the four tracked instruments.
type Currency string

const (
	USD      Currency = "usd"
	EUR      Currency = "eur"
	GoldGram Currency = "gold"
	GoldCoin Currency = "coin"
)

// aliasMap resolves colloquial names alongside the canonical tokens.
var aliasMap = map[string]Currency{
	"usd":    USD,
	"eur":    EUR,
	"gold":   GoldGram,
	"coin":   GoldCoin,
	"dollar": USD,
	"euro":   EUR,
	"emami":  GoldCoin,
}

// Normalize maps free-form input to a canonical currency.
// Input is trimmed and lower-cased; the second return is false when nothing matches.
func Normalize(input string) (Currency, bool) {
	v := strings.ToLower(strings.TrimSpace(input))
	if v == "" {
		return "", false
	}
	c, ok := aliasMap[v]
	return c, ok
}

// All returns the canonical currencies in a stable order.
func All() []Currency {
	return []Currency{USD, EUR, GoldGram, GoldCoin}
}

// AcceptedList describes valid inputs for client-facing error messages.
func AcceptedList() string {
	return "usd|eur|gold|coin (or aliases: dollar|euro|emami)"
}
