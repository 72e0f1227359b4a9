package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"aud": "A$",
	"cad": "C$",
	"eur": "€",
	"gbp": "£",
	"hkd": "HK$",
	"jpy": "¥",
	"nzd": "NZ$",
	"sgd": "S$",
	"usd": "$",
}

// Currencies charged in whole units rather than minor units.
var zeroDecimal = map[string]bool{
	"jpy": true,
}

// Format renders a minor-unit amount for display, e.g. Format(2500, "eur")
// returns "€25.00".
func Format(amount int64, currency string) string {
	cur := strings.ToLower(strings.TrimSpace(currency))
	sym, ok := symbols[cur]
	if !ok {
		sym = strings.ToUpper(cur) + " "
	}
	if zeroDecimal[cur] {
		return sym + decimal.NewFromInt(amount).String()
	}
	value := decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
	return sym + value.StringFixed(2)
}
