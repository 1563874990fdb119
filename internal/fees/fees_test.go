package fees

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		gross       string
		rate        string
		expectedFee string
		expectedNet string
	}{
		{"standard deposit", "100.00", "0.15", "15", "85"},
		{"minimum top-up", "50.00", "0.15", "7.5", "42.5"},
		{"maximum top-up", "25000.00", "0.15", "3750", "21250"},
		{"rounds half away from zero", "0.10", "0.15", "0.02", "0.08"},
		{"sub-cent product rounds down", "33.30", "0.15", "5", "28.3"},
		{"zero rate", "100.00", "0", "0", "100"},
		{"zero gross", "0", "0.15", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross := decimal.RequireFromString(tt.gross)
			rate := decimal.RequireFromString(tt.rate)

			fee, net := Calculate(gross, rate)

			if !fee.Equal(decimal.RequireFromString(tt.expectedFee)) {
				t.Errorf("Expected fee %s, got %s", tt.expectedFee, fee.String())
			}
			if !net.Equal(decimal.RequireFromString(tt.expectedNet)) {
				t.Errorf("Expected net %s, got %s", tt.expectedNet, net.String())
			}
		})
	}
}

func TestCalculate_NetNeverNegative(t *testing.T) {
	// A rounded-up fee can exceed a tiny gross; net must floor at zero.
	gross := decimal.RequireFromString("0.01")
	rate := decimal.RequireFromString("1.5")

	fee, net := Calculate(gross, rate)

	if !fee.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("Expected fee 0.02, got %s", fee.String())
	}
	if !net.Equal(decimal.Zero) {
		t.Errorf("Expected net 0, got %s", net.String())
	}
}

func TestCalculate_FeePlusNetEqualsGross(t *testing.T) {
	rate := decimal.RequireFromString("0.15")
	for _, amount := range []string{"50.00", "123.45", "999.99", "25000.00"} {
		gross := decimal.RequireFromString(amount)
		fee, net := Calculate(gross, rate)
		if !fee.Add(net).Equal(gross) {
			t.Errorf("fee %s + net %s != gross %s", fee.String(), net.String(), gross.String())
		}
	}
}
