// README: Common money value object used across modules.
package types

// CurrencyINR is the only currency the platform charges in. Amounts are
// whole rupees; there is no paise subdivision anywhere in the system.
const CurrencyINR = "INR"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Rupees wraps a whole-rupee amount.
func Rupees(amount int64) Money {
	return Money{Amount: amount, Currency: CurrencyINR}
}
