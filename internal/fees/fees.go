// Package fees computes the processing fee and net amount for a gross
// monetary value. Deposit crediting and withdrawal debiting both go through
// Calculate so the two paths always agree on what a counterparty receives.
package fees

import "github.com/shopspring/decimal"

// CurrencyScale is the minor-unit precision fees are rounded to.
const CurrencyScale = 2

// Calculate returns (fee, net) for the given gross amount and rate. The fee
// is gross*rate rounded to CurrencyScale digits, half away from zero. Net is
// gross minus fee, floored at zero.
func Calculate(gross, rate decimal.Decimal) (fee, net decimal.Decimal) {
	// decimal.Round rounds half away from zero, the required currency rounding.
	fee = gross.Mul(rate).Round(CurrencyScale)
	net = gross.Sub(fee)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return fee, net
}
