package money

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		amount   int64
		currency string
		want     string
	}{
		{2500, "eur", "€25.00"},
		{5500, "usd", "$55.00"},
		{999, "gbp", "£9.99"},
		{0, "eur", "€0.00"},
		{1500, "jpy", "¥1500"},
		{1234, "chf", "CHF 12.34"},
	}
	for _, tc := range cases {
		if got := Format(tc.amount, tc.currency); got != tc.want {
			t.Fatalf("Format(%d, %q) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}
